package companion_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/focusproof/internal/ai"
	"github.com/nhle/focusproof/internal/companion"
	"github.com/nhle/focusproof/internal/locale"
	"github.com/nhle/focusproof/internal/model"
	"github.com/nhle/focusproof/tests/testutil"
)

type stubChat struct {
	reply string
	err   error
	reqs  []ai.Request
}

func (s *stubChat) Complete(_ context.Context, req ai.Request) (string, error) {
	s.reqs = append(s.reqs, req)
	return s.reply, s.err
}

type stubAvatars struct{ moods []model.Mood }

func (s *stubAvatars) Generate(_ context.Context, mood model.Mood) ([]byte, error) {
	s.moods = append(s.moods, mood)
	return []byte("png:" + mood), nil
}

func TestMoodTransitions(t *testing.T) {
	c := companion.New(nil, nil, nil, zerolog.Nop())
	assert.Equal(t, model.MoodNeutral, c.Mood())

	assert.True(t, c.OnVerdict(model.VerificationResult{IsSuccessful: true}))
	assert.Equal(t, model.MoodHappy, c.Mood())
	assert.False(t, c.OnVerdict(model.VerificationResult{IsSuccessful: true}), "same mood is not a change")

	assert.True(t, c.OnVerdict(model.VerificationResult{IsSuccessful: false}))
	assert.Equal(t, model.MoodSad, c.Mood())

	assert.True(t, c.Reset())
	assert.Equal(t, model.MoodNeutral, c.Mood())
}

func TestChat(t *testing.T) {
	chat := &stubChat{reply: "Persevere."}
	c := companion.New(chat, nil, nil, zerolog.Nop())

	got := c.Chat(context.Background(), "How do I focus?", locale.English)
	assert.Equal(t, "Persevere.", got)
	assert.Equal(t, "Persevere.", c.LastResponse())
	assert.Len(t, c.History(), 2)

	c.Chat(context.Background(), "And tomorrow?", locale.Arabic)
	require.Len(t, chat.reqs, 2)
	assert.Len(t, chat.reqs[1].Turns, 3, "history plus the new message")
	assert.Contains(t, chat.reqs[1].System, "Response language: ar.")
}

func TestChatFallbacks(t *testing.T) {
	tests := []struct {
		name string
		chat companion.ChatClient
		lang locale.Lang
		want string
	}{
		{"error en", &stubChat{err: errors.New("timeout")}, locale.English, "It seems there is an obstacle between me and your answer now."},
		{"error ar", &stubChat{err: errors.New("timeout")}, locale.Arabic, "يبدو أن هناك عائقاً يحول بيني وبين إجابتك الآن."},
		{"empty en", &stubChat{reply: "  "}, locale.English, "I apologize, words escape me at this moment."},
		{"empty ar", &stubChat{reply: ""}, locale.Arabic, "أعتذر، خانتني الكلمات في هذه اللحظة."},
		{"unconfigured", nil, locale.English, "It seems there is an obstacle between me and your answer now."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := companion.New(tt.chat, nil, nil, zerolog.Nop())
			assert.Equal(t, tt.want, c.Chat(context.Background(), "hello", tt.lang))
			assert.Empty(t, c.History())
		})
	}
}

func TestMessageFallsBackToMoodLine(t *testing.T) {
	c := companion.New(&stubChat{reply: "Onward."}, nil, nil, zerolog.Nop())
	en := locale.For(locale.English)

	assert.Equal(t, en.CompanionIdle, c.Message(locale.English))
	c.OnVerdict(model.VerificationResult{IsSuccessful: false})
	assert.Equal(t, en.CompanionFailure, c.Message(locale.English))

	c.Chat(context.Background(), "hi", locale.English)
	assert.Equal(t, "Onward.", c.Message(locale.English))

	c.Reset()
	assert.Equal(t, en.CompanionIdle, c.Message(locale.English), "starting a task clears the reply")
}

func TestAvatarLifecycle(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	avatars := &stubAvatars{}
	file := filepath.Join(t.TempDir(), "avatar.png")

	c := companion.New(nil, avatars, s, zerolog.Nop(), companion.WithAvatarFile(file))
	require.NoError(t, c.Load(ctx))
	assert.True(t, c.NeedsAvatar())

	img, err := c.GenerateAvatar(ctx, c.Mood())
	require.NoError(t, err)
	assert.True(t, c.ApplyAvatar(ctx, model.MoodNeutral, img))
	assert.False(t, c.NeedsAvatar())

	onDisk, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, img, onDisk)

	// A generation for a mood that has since changed is dropped.
	c.SetMood(model.MoodHappy)
	assert.False(t, c.ApplyAvatar(ctx, model.MoodSad, []byte("png:sad")))
	assert.True(t, c.ApplyAvatar(ctx, model.MoodHappy, []byte("png:happy")))
	assert.False(t, c.ApplyAvatar(ctx, model.MoodHappy, nil), "failed generation keeps the avatar")

	reloaded := companion.New(nil, avatars, s, zerolog.Nop())
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, []byte("png:happy"), reloaded.Avatar())
}

func TestGenerateAvatarUnconfigured(t *testing.T) {
	c := companion.New(nil, nil, nil, zerolog.Nop())
	assert.False(t, c.NeedsAvatar())
	_, err := c.GenerateAvatar(context.Background(), model.MoodHappy)
	assert.Error(t, err)
}

func TestImageClient(t *testing.T) {
	var prompt, auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		prompt, _ = req["prompt"].(string)
		fmt.Fprintf(w, `{"data":[{"b64_json":%q}]}`, base64.StdEncoding.EncodeToString([]byte("image-bytes")))
	}))
	defer srv.Close()

	c := companion.NewImageClient(companion.ImageConfig{APIKey: "k", BaseURL: srv.URL})
	img, err := c.Generate(context.Background(), model.MoodSad)
	require.NoError(t, err)
	assert.Equal(t, []byte("image-bytes"), img)
	assert.Equal(t, "Bearer k", auth)
	assert.Contains(t, prompt, "Expression: sad.")
}

func TestImageClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"bad prompt","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	c := companion.NewImageClient(companion.ImageConfig{BaseURL: srv.URL})
	_, err := c.Generate(context.Background(), model.MoodHappy)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad prompt")

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[]}`)
	}))
	defer empty.Close()

	c = companion.NewImageClient(companion.ImageConfig{BaseURL: empty.URL})
	_, err = c.Generate(context.Background(), model.MoodHappy)
	assert.Error(t, err)
}
