package commands

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/nhle/focusproof/internal/app"
	"github.com/nhle/focusproof/internal/model"
	"github.com/nhle/focusproof/tests/testutil"
)

func newTestFlags(t *testing.T) *Flags {
	t.Helper()
	t.Setenv("ANTHROPIC_API_KEY", "test-key")

	cfg := model.DefaultAppConfig()
	cfg.Avatar.Enabled = false
	cfg.Reminder.Bell = false
	cfg.Data.DBPath = filepath.Join(t.TempDir(), "focusproof.db")

	svc, err := app.NewServices(context.Background(), cfg, testutil.NewTestStore(t), zerolog.Nop(), io.Discard,
		app.WithClock(testutil.NewFakeClock()),
	)
	require.NoError(t, err)
	t.Cleanup(svc.Close)

	return &Flags{
		ConfigPath: filepath.Join(t.TempDir(), "config.yaml"),
		Config:     cfg,
		Services:   svc,
	}
}

// run executes args against a fresh command tree and returns its output.
func run(flags *Flags, args ...string) (string, error) {
	out := &bytes.Buffer{}
	root := &cli.Command{Name: "focusproof", Writer: out}
	root = NewAddCmd(flags).Register(root)
	root = NewListCmd(flags).Register(root)
	root = NewStatsCmd(flags).Register(root)
	root = NewInitCmd(flags).Register(root)

	err := root.Run(context.Background(), append([]string{"focusproof"}, args...))
	return out.String(), err
}

func TestAddAndList(t *testing.T) {
	flags := newTestFlags(t)

	_, err := run(flags, "add", "--minutes", "10", "Clean", "desk")
	require.NoError(t, err)
	_, err = run(flags, "add", "--date", "2026-03-20", "Dentist")
	require.NoError(t, err)

	tasks := flags.Services.Tracker.Tasks()
	require.Len(t, tasks, 2)
	assert.Equal(t, "Dentist", tasks[0].Title)
	assert.Equal(t, model.DefaultDurationMinutes, tasks[0].DurationMinutes)
	assert.Equal(t, "Clean desk", tasks[1].Title)
	assert.Equal(t, 10, tasks[1].DurationMinutes)

	listing, err := run(flags, "list")
	require.NoError(t, err)
	assert.Contains(t, listing, "Today")
	assert.Contains(t, listing, "Upcoming")
	assert.Contains(t, listing, "2026-03-20")
	assert.Less(t, strings.Index(listing, "Clean desk"), strings.Index(listing, "Upcoming"))
}

func TestAddRejectsEmptyTitleAndBadDate(t *testing.T) {
	flags := newTestFlags(t)

	_, err := run(flags, "add")
	assert.Error(t, err)
	_, err = run(flags, "add", "--date", "tomorrow", "Dentist")
	assert.Error(t, err)
	assert.Empty(t, flags.Services.Tracker.Tasks())
}

func TestListEmpty(t *testing.T) {
	listing, err := run(newTestFlags(t), "list")
	require.NoError(t, err)
	assert.Contains(t, listing, "Nothing planned for today")
	assert.NotContains(t, listing, "Upcoming")
}

func TestStats(t *testing.T) {
	out, err := run(newTestFlags(t), "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Points")
	assert.Contains(t, out, "Unfinished")
}

func TestInitWritesConfigOnce(t *testing.T) {
	flags := newTestFlags(t)

	_, err := run(flags, "init")
	require.NoError(t, err)
	assert.FileExists(t, flags.ConfigPath)

	_, err = run(flags, "init")
	assert.Error(t, err)
	_, err = run(flags, "init", "--force")
	require.NoError(t, err)

	cfg, err := model.LoadConfig(flags.ConfigPath)
	require.NoError(t, err)
	assert.Equal(t, flags.Config.Tasks.DefaultDurationMinutes, cfg.Tasks.DefaultDurationMinutes)
}
