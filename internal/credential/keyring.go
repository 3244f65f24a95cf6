// Package credential stores API keys and mail passwords in the system
// keyring. Environment variables take precedence over stored values.
package credential

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/99designs/keyring"
)

const serviceName = "focusproof"

// Known credential keys.
const (
	AnthropicAPIKey = "anthropic-api-key"
	AvatarAPIKey    = "avatar-api-key"
	SMTPPassword    = "smtp-password"
	IMAPPassword    = "imap-password"
)

// envOverrides maps each key to the environment variable that overrides it.
var envOverrides = map[string]string{
	AnthropicAPIKey: "ANTHROPIC_API_KEY",
	AvatarAPIKey:    "OPENAI_API_KEY",
	SMTPPassword:    "FOCUSPROOF_SMTP_PASSWORD",
	IMAPPassword:    "FOCUSPROOF_IMAP_PASSWORD",
}

// ErrUnknownKey is returned for keys outside Keys().
var ErrUnknownKey = errors.New("unknown credential key")

// Keys lists the credential keys in a stable order.
func Keys() []string {
	keys := make([]string, 0, len(envOverrides))
	for k := range envOverrides {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// EnvVar returns the environment variable overriding key.
func EnvVar(key string) string {
	return envOverrides[key]
}

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/focusproof/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("focusproof-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Get returns the credential for key, preferring its environment override.
func Get(key string) (string, error) {
	env, ok := envOverrides[key]
	if !ok {
		return "", fmt.Errorf("%q: %w", key, ErrUnknownKey)
	}
	if v := os.Getenv(env); v != "" {
		return v, nil
	}

	ring, err := openKeyring()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(key)
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}

	return string(item.Data), nil
}

// Lookup is Get that treats any failure as an absent credential.
func Lookup(key string) string {
	v, err := Get(key)
	if err != nil {
		return ""
	}
	return v
}

// Set stores a credential value by key in the system keyring.
func Set(key string, value string) error {
	if _, ok := envOverrides[key]; !ok {
		return fmt.Errorf("%q: %w", key, ErrUnknownKey)
	}

	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:         key,
		Data:        []byte(value),
		Label:       "focusproof " + key,
		Description: "focusproof credential",
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}

	return nil
}

// Delete removes a credential by key from the system keyring.
func Delete(key string) error {
	if _, ok := envOverrides[key]; !ok {
		return fmt.Errorf("%q: %w", key, ErrUnknownKey)
	}

	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Remove(key)
	if err != nil {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}

	return nil
}
