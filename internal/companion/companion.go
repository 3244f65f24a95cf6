// Package companion keeps the mood, avatar, and chat state of Yahya, the
// mentor persona that reacts to verdicts.
package companion

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/nhle/focusproof/internal/ai"
	"github.com/nhle/focusproof/internal/locale"
	"github.com/nhle/focusproof/internal/model"
	"github.com/nhle/focusproof/internal/store"
)

// avatarKey is the key/value record holding the avatar image.
const avatarKey = "companion.avatar"

// ChatClient sends a chat request to the language model.
type ChatClient interface {
	Complete(ctx context.Context, req ai.Request) (string, error)
}

// AvatarGenerator renders an avatar image for a mood.
type AvatarGenerator interface {
	Generate(ctx context.Context, mood model.Mood) ([]byte, error)
}

// KV persists small blobs.
type KV interface {
	GetValue(ctx context.Context, key string) ([]byte, error)
	SetValue(ctx context.Context, key string, value []byte) error
}

// Option configures a Companion.
type Option func(*Companion)

// WithAvatarFile mirrors every applied avatar to path so it can be opened
// in an image viewer.
func WithAvatarFile(path string) Option {
	return func(c *Companion) { c.avatarFile = path }
}

// WithHistory sets how many chat messages are kept as context.
func WithHistory(n int) Option {
	return func(c *Companion) { c.history = ai.NewConversationContext(n) }
}

// Companion is the mood-reactive mentor.
type Companion struct {
	mu           sync.Mutex
	mood         model.Mood
	avatar       []byte
	lastResponse string

	history    *ai.ConversationContext
	chat       ChatClient
	avatars    AvatarGenerator
	kv         KV
	avatarFile string
	logger     zerolog.Logger
}

// New creates a neutral Companion. chat, avatars, and kv may be nil.
func New(chat ChatClient, avatars AvatarGenerator, kv KV, logger zerolog.Logger, opts ...Option) *Companion {
	c := &Companion{
		mood:    model.MoodNeutral,
		history: ai.NewConversationContext(0),
		chat:    chat,
		avatars: avatars,
		kv:      kv,
		logger:  logger.With().Str("component", "companion").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load restores the stored avatar, if any.
func (c *Companion) Load(ctx context.Context) error {
	if c.kv == nil {
		return nil
	}
	img, err := c.kv.GetValue(ctx, avatarKey)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading avatar: %w", err)
	}

	c.mu.Lock()
	c.avatar = img
	c.mu.Unlock()
	return nil
}

// Mood returns the current mood.
func (c *Companion) Mood() model.Mood {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mood
}

// Avatar returns the current avatar image, or nil.
func (c *Companion) Avatar() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.avatar
}

// NeedsAvatar reports whether no avatar has been generated yet.
func (c *Companion) NeedsAvatar() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.avatar) == 0 && c.avatars != nil
}

// CanGenerateAvatars reports whether an avatar generator is configured.
func (c *Companion) CanGenerateAvatars() bool {
	return c.avatars != nil
}

// LastResponse returns the most recent chat reply.
func (c *Companion) LastResponse() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastResponse
}

// SetMood changes the mood and reports whether it changed.
func (c *Companion) SetMood(mood model.Mood) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mood == mood {
		return false
	}
	c.logger.Debug().Str("from", string(c.mood)).Str("to", string(mood)).Msg("mood changed")
	c.mood = mood
	return true
}

// OnVerdict moves the mood to happy or sad.
func (c *Companion) OnVerdict(r model.VerificationResult) bool {
	return c.SetMood(model.MoodFor(r))
}

// Reset returns to neutral and forgets the last reply. Called when a task
// starts.
func (c *Companion) Reset() bool {
	c.mu.Lock()
	c.lastResponse = ""
	c.mu.Unlock()
	return c.SetMood(model.MoodNeutral)
}

// DefaultMessage is shown when there is no chat reply to display.
func (c *Companion) DefaultMessage(lang locale.Lang) string {
	return locale.For(lang).MoodMessage(c.Mood())
}

// Message returns the last reply, or the default line for the mood.
func (c *Companion) Message(lang locale.Lang) string {
	if r := c.LastResponse(); r != "" {
		return r
	}
	return c.DefaultMessage(lang)
}

// GenerateAvatar renders an avatar for mood without applying it.
func (c *Companion) GenerateAvatar(ctx context.Context, mood model.Mood) ([]byte, error) {
	if c.avatars == nil {
		return nil, errors.New("avatar generation is not configured")
	}
	return c.avatars.Generate(ctx, mood)
}

// ApplyAvatar stores img if mood is still the current mood. Results of a
// superseded generation, and empty images, are dropped.
func (c *Companion) ApplyAvatar(ctx context.Context, mood model.Mood, img []byte) bool {
	if len(img) == 0 {
		return false
	}

	c.mu.Lock()
	if c.mood != mood && len(c.avatar) > 0 {
		c.mu.Unlock()
		c.logger.Debug().Str("mood", string(mood)).Msg("dropping stale avatar")
		return false
	}
	c.avatar = img
	c.mu.Unlock()

	if c.kv != nil {
		if err := c.kv.SetValue(ctx, avatarKey, img); err != nil {
			c.logger.Error().Err(err).Msg("saving avatar")
		}
	}
	if c.avatarFile != "" {
		if err := writeFile(c.avatarFile, img); err != nil {
			c.logger.Warn().Err(err).Str("path", c.avatarFile).Msg("writing avatar file")
		}
	}
	return true
}

// Chat sends message to the mentor and returns the reply. Failures and
// empty replies become fixed localized lines; Chat never fails.
func (c *Companion) Chat(ctx context.Context, message string, lang locale.Lang) string {
	text := locale.For(lang)
	message = strings.TrimSpace(message)
	if message == "" {
		return c.Message(lang)
	}

	reply, err := c.complete(ctx, message, lang)
	switch {
	case err != nil:
		c.logger.Warn().Err(err).Msg("chat failed")
		reply = text.ChatError
	case strings.TrimSpace(reply) == "":
		reply = text.ChatEmpty
	default:
		c.history.AddMessage(ai.RoleUser, message)
		c.history.AddMessage(ai.RoleAssistant, reply)
	}

	c.mu.Lock()
	c.lastResponse = reply
	c.mu.Unlock()
	return reply
}

func (c *Companion) complete(ctx context.Context, message string, lang locale.Lang) (string, error) {
	if c.chat == nil {
		return "", errors.New("chat is not configured")
	}

	turns := c.history.Turns()
	turns = append(turns, ai.Turn{Role: ai.RoleUser, Blocks: []ai.Block{ai.TextBlock(message)}})

	return c.chat.Complete(ctx, ai.Request{
		System: systemPrompt(c.Mood(), lang),
		Turns:  turns,
	})
}

// History returns the chat messages kept as context.
func (c *Companion) History() []ai.Message {
	return c.history.GetMessages()
}

func systemPrompt(mood model.Mood, lang locale.Lang) string {
	var sb strings.Builder
	sb.WriteString("You are Yahya, a dignified personal guide and productivity mentor.\n")
	sb.WriteString("Physical description: slightly dark complexion, black wavy hair.\n")
	sb.WriteString("Personality: wise, fair, and encouraging. You give honest, balanced counsel. ")
	sb.WriteString("You celebrate success with grace and treat failure as a chance to grow.\n")
	fmt.Fprintf(&sb, "Your current mood is %s.\n\n", mood)
	sb.WriteString("When responding in Arabic, use eloquent Modern Standard Arabic ")
	sb.WriteString("(اللغة العربية الفصحى). Avoid slang.\n\n")
	fmt.Fprintf(&sb, "Response language: %s.\n", lang)
	sb.WriteString("Keep your response concise, respectful, and in character.")
	return sb.String()
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
