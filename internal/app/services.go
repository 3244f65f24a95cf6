package app

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/nhle/focusproof/internal/ai"
	"github.com/nhle/focusproof/internal/clock"
	"github.com/nhle/focusproof/internal/companion"
	"github.com/nhle/focusproof/internal/credential"
	"github.com/nhle/focusproof/internal/locale"
	"github.com/nhle/focusproof/internal/model"
	"github.com/nhle/focusproof/internal/proof"
	"github.com/nhle/focusproof/internal/reminder"
	"github.com/nhle/focusproof/internal/store"
	appsync "github.com/nhle/focusproof/internal/sync"
	"github.com/nhle/focusproof/internal/tracker"
	"github.com/nhle/focusproof/internal/verify"
)

// Services is the explicit context built at startup and shared by the
// TUI and the CLI commands.
type Services struct {
	Config    *model.AppConfig
	Store     store.Store
	Clock     clock.Clock
	Logger    zerolog.Logger
	Tracker   *tracker.Tracker
	Gateway   *verify.Gateway
	Companion *companion.Companion
	Checker   *reminder.Checker
	Bell      *reminder.Bell
	Notifier  *reminder.Async

	// ConfigPath is where the settings view saves Config. Empty disables saving.
	ConfigPath string

	// Mailbox and Poller are nil unless mailed proofs are enabled.
	Mailbox Mailbox
	Poller  *appsync.Poller
}

// Mailbox looks up mailed proofs.
type Mailbox interface {
	Find(ctx context.Context, task model.Task) (proof.Proof, error)
	FindAll(ctx context.Context, tasks []model.Task) (map[string]proof.Proof, error)
}

// Option adjusts Services after the defaults are wired.
type Option func(*Services)

// WithClock replaces the wall clock.
func WithClock(c clock.Clock) Option {
	return func(s *Services) { s.Clock = c }
}

// WithJudge replaces the verification backend.
func WithJudge(judge verify.Completer) Option {
	return func(s *Services) { s.Gateway = verify.New(judge, s.Logger) }
}

// WithConfigPath sets the file the settings view writes to.
func WithConfigPath(path string) Option {
	return func(s *Services) { s.ConfigPath = path }
}

// WithCompanion replaces the companion.
func WithCompanion(c *companion.Companion) Option {
	return func(s *Services) { s.Companion = c }
}

// NewServices wires every component from cfg. Credentials are read from the
// environment or the system keyring; a missing key disables the feature it
// serves rather than failing startup. out receives the terminal bell.
func NewServices(
	ctx context.Context,
	cfg *model.AppConfig,
	st store.Store,
	logger zerolog.Logger,
	out io.Writer,
	opts ...Option,
) (*Services, error) {
	s := &Services{
		Config: cfg,
		Store:  st,
		Clock:  clock.Real{},
		Logger: logger,
	}

	var judge verify.Completer
	var chat companion.ChatClient
	if key := credential.Lookup(credential.AnthropicAPIKey); key != "" {
		chat = ai.New(ai.Config{
			APIKey:    key,
			BaseURL:   cfg.AI.BaseURL,
			Model:     cfg.AI.Model,
			MaxTokens: cfg.AI.MaxTokens,
		})
		verifyModel := cfg.AI.VerifyModel
		if verifyModel == "" {
			verifyModel = cfg.AI.Model
		}
		judge = ai.New(ai.Config{
			APIKey:    key,
			BaseURL:   cfg.AI.BaseURL,
			Model:     verifyModel,
			MaxTokens: cfg.AI.MaxTokens,
		})
	} else {
		logger.Warn().Msg("no Anthropic API key; every proof will receive the fallback verdict")
	}
	s.Gateway = verify.New(judge, logger)

	var avatars companion.AvatarGenerator
	if cfg.Avatar.Enabled {
		if key := credential.Lookup(credential.AvatarAPIKey); key != "" {
			avatars = companion.NewImageClient(companion.ImageConfig{
				APIKey:  key,
				BaseURL: cfg.Avatar.BaseURL,
				Model:   cfg.Avatar.Model,
				Size:    cfg.Avatar.Size,
			})
		}
	}
	s.Companion = companion.New(chat, avatars, st, logger,
		companion.WithAvatarFile(filepath.Join(filepath.Dir(cfg.Data.DBPath), "avatar.png")),
	)

	for _, opt := range opts {
		opt(s)
	}

	s.Tracker = tracker.New(st, s.Clock, logger,
		tracker.WithDefaultDuration(cfg.Tasks.DefaultDurationMinutes),
	)
	if err := s.Tracker.Load(ctx); err != nil {
		return nil, fmt.Errorf("loading tasks: %w", err)
	}
	if err := s.Companion.Load(ctx); err != nil {
		logger.Warn().Err(err).Msg("companion avatar not restored")
	}

	s.Bell = reminder.NewBell(out, cfg.Reminder.Bell)
	s.Tracker.OnVerifying(func(model.Task) { s.Bell.Play(reminder.CueTimeUp) })
	s.Tracker.OnFinalized(func(_ model.Task, r model.VerificationResult) {
		if r.IsSuccessful {
			s.Bell.Play(reminder.CueSuccess)
		}
	})

	notifiers := reminder.Multi{reminder.Log{Logger: logger}, s.Bell}
	if email := cfg.Reminder.Email; email.Enabled {
		mailer, err := reminder.NewMailer(reminder.SMTPConfig{
			Host:     email.Host,
			Port:     email.Port,
			Username: email.Username,
			Password: credential.Lookup(credential.SMTPPassword),
			From:     email.From,
			To:       email.To,
			TLS:      email.TLS,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("reminder email disabled")
		} else {
			notifiers = append(notifiers, mailer)
		}
	}
	s.Notifier = reminder.NewAsync(notifiers, logger)
	s.Checker = reminder.NewChecker(s.Tracker, s.Notifier, st, locale.Parse(cfg.Display.Language), logger)

	if mb := cfg.Proof.Mailbox; mb.Enabled {
		mailbox := proof.NewMailbox(proof.MailboxConfig{
			Host:     mb.Host,
			Port:     mb.Port,
			Username: mb.Username,
			Password: credential.Lookup(credential.IMAPPassword),
			Mailbox:  mb.Mailbox,
			TLS:      mb.TLS,
			Insecure: mb.Insecure,
		})
		s.Mailbox = mailbox
		s.Poller = appsync.New(mailbox, s.Tracker,
			time.Duration(mb.PollIntervalSec)*time.Second, logger)
	}

	return s, nil
}

// Close waits for in-flight notifications.
func (s *Services) Close() {
	if s.Poller != nil {
		s.Poller.Stop()
	}
	if s.Notifier != nil {
		s.Notifier.Wait()
	}
}
