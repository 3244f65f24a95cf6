package companion

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/focusproof/internal/ai"
	mentor "github.com/nhle/focusproof/internal/companion"
	"github.com/nhle/focusproof/internal/locale"
	"github.com/nhle/focusproof/internal/model"
)

type replyFunc func(ai.Request) (string, error)

func (f replyFunc) Complete(_ context.Context, req ai.Request) (string, error) { return f(req) }

func newPanel(t *testing.T, chat mentor.ChatClient) Model {
	t.Helper()
	c := mentor.New(chat, nil, nil, zerolog.Nop())
	return New(context.Background(), c, locale.English, "notty", 80, 30)
}

func TestEmptyPanelShowsMoodLine(t *testing.T) {
	m := newPanel(t, nil)
	view := m.View()
	assert.Contains(t, view, "Yahya")
	assert.Contains(t, view, string(model.MoodNeutral))
	assert.Contains(t, view, "avatar: off")
	assert.Contains(t, view, "ready to begin")
}

func TestEnterSendsAndReplyRenders(t *testing.T) {
	m := newPanel(t, replyFunc(func(req ai.Request) (string, error) {
		return "**Keep going.**", nil
	}))

	m.input.SetValue("I finished my task")
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.True(t, m.waiting)
	assert.Empty(t, m.input.Value())

	// A second enter while waiting is ignored.
	m.input.SetValue("again")
	_, again := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, again)

	reply := cmd().(ReplyMsg)
	assert.Equal(t, "**Keep going.**", reply.Text)

	m, _ = m.Update(reply)
	assert.False(t, m.waiting)
	view := m.renderConversation()
	assert.Contains(t, view, "I finished my task")
	assert.Contains(t, view, "Keep going.")
}

func TestChatFailureShowsLocalizedFallback(t *testing.T) {
	m := newPanel(t, replyFunc(func(ai.Request) (string, error) {
		return "", errors.New("overloaded")
	}))
	m.SetLanguage(locale.Arabic)

	m.input.SetValue("مرحبا")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, locale.For(locale.Arabic).ChatError, cmd().(ReplyMsg).Text)
}

func TestEscCloses(t *testing.T) {
	m := newPanel(t, nil)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.IsType(t, CloseMsg{}, cmd())
}

func TestAvatarStatus(t *testing.T) {
	m := newPanel(t, nil)
	m.SetGenerating(true)
	assert.Equal(t, "avatar: generating", m.avatarStatus())
}

type ctxClient struct {
	err error
}

func (c *ctxClient) Complete(ctx context.Context, _ ai.Request) (string, error) {
	c.err = ctx.Err()
	if c.err != nil {
		return "", c.err
	}
	return "hello", nil
}

func TestChatUsesPanelContext(t *testing.T) {
	client := &ctxClient{}
	ctx, cancel := context.WithCancel(context.Background())
	m := New(ctx, mentor.New(client, nil, nil, zerolog.Nop()), locale.English, "notty", 80, 30)

	m.input.SetValue("still there?")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	cancel()
	reply := cmd().(ReplyMsg)
	assert.ErrorIs(t, client.err, context.Canceled)
	assert.Equal(t, locale.For(locale.English).ChatError, reply.Text)
}
