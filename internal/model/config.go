package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// AIConfig holds settings for the judge and companion chat calls.
type AIConfig struct {
	// BaseURL is the Messages API endpoint.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// Model is used for companion chat.
	Model string `mapstructure:"model" yaml:"model"`

	// VerifyModel is used to judge proofs. Falls back to Model when empty.
	VerifyModel string `mapstructure:"verify_model" yaml:"verify_model"`

	MaxTokens int `mapstructure:"max_tokens" yaml:"max_tokens"`
}

// AvatarConfig holds settings for companion avatar generation.
type AvatarConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	Model   string `mapstructure:"model" yaml:"model"`
	Size    string `mapstructure:"size" yaml:"size"`
}

// TasksConfig holds task creation defaults.
type TasksConfig struct {
	DefaultDurationMinutes int `mapstructure:"default_duration_minutes" yaml:"default_duration_minutes"`
}

// EmailConfig holds the SMTP settings used to mail reminders.
// The password is read from the keyring, never from this file.
type EmailConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Host     string `mapstructure:"host" yaml:"host"`
	Port     string `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`
	From     string `mapstructure:"from" yaml:"from"`
	To       string `mapstructure:"to" yaml:"to"`
	TLS      bool   `mapstructure:"tls" yaml:"tls"`
}

// ReminderConfig controls the reminder checker.
type ReminderConfig struct {
	// TickIntervalMS is the wall-clock polling granularity.
	TickIntervalMS int `mapstructure:"tick_interval_ms" yaml:"tick_interval_ms"`

	// Bell rings the terminal bell for reminders and time-up cues.
	Bell bool `mapstructure:"bell" yaml:"bell"`

	Email EmailConfig `mapstructure:"email" yaml:"email"`
}

// MailboxConfig holds the IMAP settings for mailed proof intake.
type MailboxConfig struct {
	Enabled         bool   `mapstructure:"enabled" yaml:"enabled"`
	Host            string `mapstructure:"host" yaml:"host"`
	Port            string `mapstructure:"port" yaml:"port"`
	Username        string `mapstructure:"username" yaml:"username"`
	TLS             bool   `mapstructure:"tls" yaml:"tls"`
	Insecure        bool   `mapstructure:"insecure" yaml:"insecure"`
	Mailbox         string `mapstructure:"mailbox" yaml:"mailbox"`
	PollIntervalSec int    `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`
}

// ProofConfig groups proof intake settings.
type ProofConfig struct {
	Mailbox MailboxConfig `mapstructure:"mailbox" yaml:"mailbox"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme    string `mapstructure:"theme" yaml:"theme"`
	Language string `mapstructure:"language" yaml:"language"`
}

// DataConfig holds storage locations.
type DataConfig struct {
	DBPath string `mapstructure:"db_path" yaml:"db_path"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	AI       AIConfig       `mapstructure:"ai" yaml:"ai"`
	Avatar   AvatarConfig   `mapstructure:"avatar" yaml:"avatar"`
	Tasks    TasksConfig    `mapstructure:"tasks" yaml:"tasks"`
	Reminder ReminderConfig `mapstructure:"reminder" yaml:"reminder"`
	Proof    ProofConfig    `mapstructure:"proof" yaml:"proof"`
	Display  DisplayConfig  `mapstructure:"display" yaml:"display"`
	Data     DataConfig     `mapstructure:"data" yaml:"data"`
}

// configDir returns ~/.config/focusproof, or "." when home is unknown.
func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "focusproof")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/focusproof/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// DefaultDBPath returns the default snapshot database location.
func DefaultDBPath() string {
	return filepath.Join(configDir(), "focusproof.db")
}

// DefaultLogPath returns the default log file location.
func DefaultLogPath() string {
	return filepath.Join(configDir(), "focusproof.log")
}

var defaults = map[string]any{
	"ai.base_url":                     "https://api.anthropic.com/v1/messages",
	"ai.model":                        "claude-sonnet-4-5-20250929",
	"ai.verify_model":                 "",
	"ai.max_tokens":                   1024,
	"avatar.enabled":                  true,
	"avatar.base_url":                 "https://api.openai.com/v1/images/generations",
	"avatar.model":                    "gpt-image-1",
	"avatar.size":                     "1024x1024",
	"tasks.default_duration_minutes":  DefaultDurationMinutes,
	"reminder.tick_interval_ms":       1000,
	"reminder.bell":                   true,
	"reminder.email.port":             "587",
	"proof.mailbox.port":              "993",
	"proof.mailbox.tls":               true,
	"proof.mailbox.mailbox":           "INBOX",
	"proof.mailbox.poll_interval_sec": 60,
	"display.theme":                   "dark",
	"display.language":                "en",
}

// DefaultAppConfig returns the configuration used when no file exists.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		AI: AIConfig{
			BaseURL:   "https://api.anthropic.com/v1/messages",
			Model:     "claude-sonnet-4-5-20250929",
			MaxTokens: 1024,
		},
		Avatar: AvatarConfig{
			Enabled: true,
			BaseURL: "https://api.openai.com/v1/images/generations",
			Model:   "gpt-image-1",
			Size:    "1024x1024",
		},
		Tasks: TasksConfig{DefaultDurationMinutes: DefaultDurationMinutes},
		Reminder: ReminderConfig{
			TickIntervalMS: 1000,
			Bell:           true,
			Email:          EmailConfig{Port: "587"},
		},
		Proof: ProofConfig{
			Mailbox: MailboxConfig{
				Port:            "993",
				TLS:             true,
				Mailbox:         "INBOX",
				PollIntervalSec: 60,
			},
		},
		Display: DisplayConfig{Theme: "dark", Language: "en"},
		Data:    DataConfig{DBPath: DefaultDBPath()},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetDefault("data.db_path", DefaultDBPath())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return DefaultAppConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return DefaultAppConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := DefaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Tasks.DefaultDurationMinutes <= 0 {
		cfg.Tasks.DefaultDurationMinutes = DefaultDurationMinutes
	}
	if cfg.Reminder.TickIntervalMS <= 0 {
		cfg.Reminder.TickIntervalMS = 1000
	}
	if cfg.Proof.Mailbox.PollIntervalSec <= 0 {
		cfg.Proof.Mailbox.PollIntervalSec = 60
	}
	switch cfg.Display.Language {
	case "en", "ar":
	default:
		cfg.Display.Language = "en"
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("ai", cfg.AI)
	v.Set("avatar", cfg.Avatar)
	v.Set("tasks", cfg.Tasks)
	v.Set("reminder", cfg.Reminder)
	v.Set("proof", cfg.Proof)
	v.Set("display", cfg.Display)
	v.Set("data", cfg.Data)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
