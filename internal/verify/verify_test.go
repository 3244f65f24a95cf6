package verify_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/focusproof/internal/ai"
	"github.com/nhle/focusproof/internal/model"
	"github.com/nhle/focusproof/internal/tracker"
	"github.com/nhle/focusproof/internal/verify"
	"github.com/nhle/focusproof/tests/testutil"
)

type stubJudge struct {
	reply string
	err   error
	got   ai.Request
	calls int
}

func (s *stubJudge) Complete(_ context.Context, req ai.Request) (string, error) {
	s.calls++
	s.got = req
	return s.reply, s.err
}

func cleanDesk() verify.Request {
	return verify.Request{
		TaskTitle:       "Clean desk",
		TaskDescription: "Nothing left on the desk",
		Image:           "data:image/png;base64,iVBORw0KGgo=",
	}
}

func TestVerifySuccess(t *testing.T) {
	judge := &stubJudge{reply: `{"isSuccessful": true, "explanation": "Spotless.", "pointsAdjustment": 10}`}
	g := verify.New(judge, zerolog.Nop())

	got := g.Verify(context.Background(), cleanDesk())
	assert.Equal(t, model.VerificationResult{IsSuccessful: true, Explanation: "Spotless.", PointsAdjustment: 10}, got)

	require.Equal(t, 1, judge.calls)
	require.Len(t, judge.got.Turns, 1)
	blocks := judge.got.Turns[0].Blocks
	require.Len(t, blocks, 2)
	assert.Contains(t, blocks[0].Text, "Title: Clean desk")
	assert.Contains(t, blocks[0].Text, "SCORING: Success=10, Failure=-5.")
	assert.Equal(t, "image/png", blocks[1].MediaType)
	assert.Equal(t, "iVBORw0KGgo=", blocks[1].ImageData, "data URL prefix stripped")
}

func TestVerifyTrustsAdjustment(t *testing.T) {
	judge := &stubJudge{reply: "```json\n{\"isSuccessful\": false, \"explanation\": \"Half done.\", \"pointsAdjustment\": -2}\n```"}
	g := verify.New(judge, zerolog.Nop())

	got := g.Verify(context.Background(), cleanDesk())
	assert.False(t, got.IsSuccessful)
	assert.Equal(t, -2, got.PointsAdjustment)
}

func TestVerifyFallbacks(t *testing.T) {
	tests := []struct {
		name  string
		judge verify.Completer
		req   verify.Request
	}{
		{"transport error", &stubJudge{err: errors.New("connection refused")}, cleanDesk()},
		{"not json", &stubJudge{reply: "Looks great to me!"}, cleanDesk()},
		{"missing field", &stubJudge{reply: `{"isSuccessful": true, "explanation": "ok"}`}, cleanDesk()},
		{"no judge", nil, cleanDesk()},
		{"empty image", &stubJudge{reply: `{}`}, verify.Request{TaskTitle: "Clean desk"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := verify.New(tt.judge, zerolog.Nop())
			assert.Equal(t, verify.Fallback(), g.Verify(context.Background(), tt.req))
		})
	}
}

func TestFallbackValue(t *testing.T) {
	f := verify.Fallback()
	assert.False(t, f.IsSuccessful)
	assert.Equal(t, "Verification failed. Please try again later.", f.Explanation)
	assert.Equal(t, -5, f.PointsAdjustment)
}

func TestVerifyOverHTTP(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		raw, _ := json.Marshal(req)
		body = string(raw)

		reply, _ := json.Marshal(`{"isSuccessful": true, "explanation": "Clear desk.", "pointsAdjustment": 10}`)
		fmt.Fprintf(w, `{"content":[{"type":"text","text":%s}]}`, reply)
	}))
	defer srv.Close()

	g := verify.New(ai.New(ai.Config{BaseURL: srv.URL}), zerolog.Nop())
	got := g.Verify(context.Background(), cleanDesk())

	assert.True(t, got.IsSuccessful)
	assert.Equal(t, 10, got.PointsAdjustment)
	assert.Contains(t, body, `"media_type":"image/png"`)
}

func TestVerifyServerErrorFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}))
	defer srv.Close()

	g := verify.New(ai.New(ai.Config{BaseURL: srv.URL}), zerolog.Nop())
	assert.Equal(t, verify.Fallback(), g.Verify(context.Background(), cleanDesk()))
}

func TestVerifyCancelledContextFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := verify.New(ai.New(ai.Config{BaseURL: srv.URL}), zerolog.Nop())
	assert.Equal(t, verify.Fallback(), g.Verify(ctx, cleanDesk()))
}

func TestSplitDataURL(t *testing.T) {
	mt, data := verify.SplitDataURL("data:image/jpeg;base64,/9j/4AAQ")
	assert.Equal(t, "image/jpeg", mt)
	assert.Equal(t, "/9j/4AAQ", data)

	mt, data = verify.SplitDataURL("  /9j/4AAQ ")
	assert.Empty(t, mt)
	assert.Equal(t, "/9j/4AAQ", data)

	_, data = verify.SplitDataURL("data:broken")
	assert.Empty(t, data)
}

func TestParseVerdictRejectsGarbage(t *testing.T) {
	for _, reply := range []string{"", "}{", "{not json}", strings.Repeat("x", 200)} {
		_, err := verify.ParseVerdict(reply)
		assert.Error(t, err, reply)
	}
}

func TestTransportFailureFailsTask(t *testing.T) {
	ctx := context.Background()
	c := testutil.NewFakeClock()
	tr := tracker.New(testutil.NewTestStore(t), c, zerolog.Nop())

	task, err := tr.AddTask(ctx, tracker.NewTask{Title: "Clean desk", DurationMinutes: 1})
	require.NoError(t, err)
	_, ok := tr.Start(ctx, task.ID)
	require.True(t, ok)
	_, ok = tr.OnTimeUp(ctx, task.ID)
	require.True(t, ok)
	_, ok = tr.ClaimProof(task.ID)
	require.True(t, ok)

	g := verify.New(&stubJudge{err: errors.New("network unreachable")}, zerolog.Nop())
	req := cleanDesk()
	verdict := g.Verify(ctx, req)

	done, ok := tr.Finalize(ctx, task.ID, verdict, req.Image)
	require.True(t, ok)
	assert.Equal(t, model.StatusFailed, done.Status)
	assert.Equal(t, -5, *done.PointsEarned)
	assert.Equal(t, verify.FallbackExplanation, *done.AIFeedback)
	assert.Equal(t, model.UserStats{Points: -5, FailedCount: 1}, tr.Stats())
}
