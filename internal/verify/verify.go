// Package verify asks the AI judge whether a photo proves a task was done.
// Verify never fails: every error becomes the fixed fallback verdict.
package verify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/nhle/focusproof/internal/ai"
	"github.com/nhle/focusproof/internal/model"
)

// FallbackExplanation is reported when no verdict could be obtained.
const FallbackExplanation = "Verification failed. Please try again later."

// defaultMediaType is assumed for bare base64 images.
const defaultMediaType = "image/jpeg"

// Fallback returns the verdict used for every transport or parse failure.
func Fallback() model.VerificationResult {
	return model.VerificationResult{
		IsSuccessful:     false,
		Explanation:      FallbackExplanation,
		PointsAdjustment: model.PointsFailure,
	}
}

// Completer sends a request to the judge model.
type Completer interface {
	Complete(ctx context.Context, req ai.Request) (string, error)
}

// Request describes a proof to judge.
type Request struct {
	TaskTitle       string
	TaskDescription string

	// Image is a data URL or bare base64 data.
	Image string

	// MIMEType is used when Image carries no data URL prefix.
	MIMEType string
}

// Gateway is the single boundary to the judge.
type Gateway struct {
	judge  Completer
	logger zerolog.Logger
}

// New creates a Gateway. A nil judge makes every verdict the fallback.
func New(judge Completer, logger zerolog.Logger) *Gateway {
	return &Gateway{
		judge:  judge,
		logger: logger.With().Str("component", "verify").Logger(),
	}
}

// Verify makes one best-effort judge call. The points adjustment in the
// reply is trusted as-is.
func (g *Gateway) Verify(ctx context.Context, req Request) model.VerificationResult {
	result, err := g.verify(ctx, req)
	if err != nil {
		g.logger.Warn().Err(err).Str("title", req.TaskTitle).Msg("verification failed, using fallback")
		return Fallback()
	}

	g.logger.Info().
		Str("title", req.TaskTitle).
		Bool("success", result.IsSuccessful).
		Int("points", result.PointsAdjustment).
		Msg("verdict received")
	return result
}

func (g *Gateway) verify(ctx context.Context, req Request) (model.VerificationResult, error) {
	if g.judge == nil {
		return model.VerificationResult{}, errors.New("no judge configured")
	}

	mediaType, data := SplitDataURL(req.Image)
	if mediaType == "" {
		mediaType = req.MIMEType
	}
	if mediaType == "" {
		mediaType = defaultMediaType
	}
	if data == "" {
		return model.VerificationResult{}, errors.New("empty proof image")
	}

	reply, err := g.judge.Complete(ctx, ai.Request{
		System: systemPrompt,
		Turns: []ai.Turn{{
			Role: ai.RoleUser,
			Blocks: []ai.Block{
				ai.TextBlock(buildPrompt(req.TaskTitle, req.TaskDescription)),
				ai.ImageBlock(mediaType, data),
			},
		}},
	})
	if err != nil {
		return model.VerificationResult{}, err
	}

	return ParseVerdict(reply)
}

const systemPrompt = `You judge photographic proof of completed personal tasks.
Reply with a single JSON object and nothing else:
{"isSuccessful": boolean, "explanation": string, "pointsAdjustment": number}`

func buildPrompt(title, description string) string {
	var sb strings.Builder
	sb.WriteString("As a fair and wise auditor, verify this task:\n")
	fmt.Fprintf(&sb, "Title: %s\n", title)
	fmt.Fprintf(&sb, "Description: %s\n\n", description)
	fmt.Fprintf(&sb, "SCORING: Success=%d, Failure=%d.", model.PointsSuccess, model.PointsFailure)
	return sb.String()
}

// rawVerdict detects missing fields.
type rawVerdict struct {
	IsSuccessful     *bool    `json:"isSuccessful"`
	Explanation      *string  `json:"explanation"`
	PointsAdjustment *float64 `json:"pointsAdjustment"`
}

// ParseVerdict extracts the verdict object from a model reply. Code
// fences and surrounding prose are tolerated; missing fields are not.
func ParseVerdict(reply string) (model.VerificationResult, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end < start {
		return model.VerificationResult{}, fmt.Errorf("no JSON object in reply %q", truncate(reply, 80))
	}

	var raw rawVerdict
	if err := json.Unmarshal([]byte(reply[start:end+1]), &raw); err != nil {
		return model.VerificationResult{}, fmt.Errorf("decoding verdict: %w", err)
	}
	if raw.IsSuccessful == nil || raw.Explanation == nil || raw.PointsAdjustment == nil {
		return model.VerificationResult{}, errors.New("verdict is missing required fields")
	}

	return model.VerificationResult{
		IsSuccessful:     *raw.IsSuccessful,
		Explanation:      *raw.Explanation,
		PointsAdjustment: int(*raw.PointsAdjustment),
	}, nil
}

// SplitDataURL separates "data:<mime>;base64,<data>" into its media type
// and payload. Input without a prefix is returned as payload with an
// empty media type.
func SplitDataURL(s string) (mediaType, data string) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "data:") {
		return "", s
	}
	header, payload, ok := strings.Cut(s, ",")
	if !ok {
		return "", ""
	}
	header = strings.TrimPrefix(header, "data:")
	mediaType, _, _ = strings.Cut(header, ";")
	return mediaType, payload
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
