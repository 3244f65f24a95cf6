package companion

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nhle/focusproof/internal/model"
)

const (
	DefaultImagesURL   = "https://api.openai.com/v1/images/generations"
	DefaultImagesModel = "gpt-image-1"
	defaultImageSize   = "1024x1024"
	avatarTimeout      = 2 * time.Minute
)

// ImageConfig holds the settings for ImageClient.
type ImageConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Size    string

	HTTPClient *http.Client
}

// ImageClient generates avatars through an image generation endpoint
// that returns base64 payloads.
type ImageClient struct {
	apiKey  string
	baseURL string
	model   string
	size    string
	http    *http.Client
}

// NewImageClient creates an ImageClient, filling unset fields with defaults.
func NewImageClient(cfg ImageConfig) *ImageClient {
	c := &ImageClient{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		size:    cfg.Size,
		http:    cfg.HTTPClient,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultImagesURL
	}
	if c.model == "" {
		c.model = DefaultImagesModel
	}
	if c.size == "" {
		c.size = defaultImageSize
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: avatarTimeout}
	}
	return c
}

// AvatarPrompt describes the avatar for a mood.
func AvatarPrompt(mood model.Mood) string {
	return fmt.Sprintf(
		"A stylized profile avatar of a young man named Yahya. "+
			"Slightly dark complexion, black wavy hair. Expression: %s. "+
			"Professional minimalist background. Elegant 3D render.",
		mood,
	)
}

type imageRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Size   string `json:"size"`
	N      int    `json:"n"`
}

type imageResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Generate renders an avatar for mood and returns the decoded image bytes.
func (c *ImageClient) Generate(ctx context.Context, mood model.Mood) ([]byte, error) {
	body, err := json.Marshal(imageRequest{
		Model:  c.model,
		Prompt: AvatarPrompt(mood),
		Size:   c.size,
		N:      1,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling images API: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var result imageResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("images API error (%d): %s", resp.StatusCode, string(respBody))
		}
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if result.Error != nil {
			return nil, fmt.Errorf("images API error (%d): %s", resp.StatusCode, result.Error.Message)
		}
		return nil, fmt.Errorf("images API error (%d)", resp.StatusCode)
	}

	if len(result.Data) == 0 || result.Data[0].B64JSON == "" {
		return nil, errors.New("images API returned no image")
	}

	img, err := base64.StdEncoding.DecodeString(result.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return img, nil
}
