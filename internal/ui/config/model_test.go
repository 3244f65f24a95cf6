package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/focusproof/internal/model"
)

func TestApplyKeepsUnlistedSettings(t *testing.T) {
	cfg := *model.DefaultAppConfig()
	cfg.AI.Model = "judge-model"

	v := valuesFrom(cfg)
	v.language = "ar"
	v.duration = " 45 "
	v.bell = false
	v.mailboxEnabled = true
	v.mailboxHost = " imap.example.com "

	got := v.apply(cfg)
	assert.Equal(t, "ar", got.Display.Language)
	assert.Equal(t, 45, got.Tasks.DefaultDurationMinutes)
	assert.False(t, got.Reminder.Bell)
	assert.True(t, got.Proof.Mailbox.Enabled)
	assert.Equal(t, "imap.example.com", got.Proof.Mailbox.Host)
	assert.Equal(t, "judge-model", got.AI.Model)
	assert.Equal(t, cfg.Data.DBPath, got.Data.DBPath)
}

func TestApplyIgnoresBadDuration(t *testing.T) {
	cfg := *model.DefaultAppConfig()
	v := valuesFrom(cfg)
	v.duration = "soon"

	assert.Equal(t, cfg.Tasks.DefaultDurationMinutes, v.apply(cfg).Tasks.DefaultDurationMinutes)
}

func TestSaveWritesConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := *model.DefaultAppConfig()
	cfg.Display.Language = "ar"

	msg := save(path, cfg, *valuesFrom(cfg))()
	saved, ok := msg.(SavedMsg)
	require.True(t, ok)
	require.NoError(t, saved.Err)
	assert.Equal(t, "ar", saved.Config.Display.Language)

	loaded, err := model.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "ar", loaded.Display.Language)
}

func TestValidators(t *testing.T) {
	assert.NoError(t, validateMinutes("25"))
	assert.Error(t, validateMinutes("0"))
	assert.Error(t, validateMinutes("abc"))

	assert.NoError(t, validatePort(""))
	assert.NoError(t, validatePort("993"))
	assert.Error(t, validatePort("99a"))
}

func TestStartBuildsForm(t *testing.T) {
	m := New(model.DefaultAppConfig(), "config.yaml", 80, 30)
	assert.Empty(t, m.View())

	m.Start()
	assert.Contains(t, m.View(), "Settings")
	assert.Contains(t, m.View(), "Language")
}
