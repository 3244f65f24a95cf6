package companion

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	mentor "github.com/nhle/focusproof/internal/companion"
	"github.com/nhle/focusproof/internal/locale"
	"github.com/nhle/focusproof/internal/theme"
)

// chatTimeout bounds a single chat request.
const chatTimeout = 60 * time.Second

// CloseMsg signals the parent to close the companion panel.
type CloseMsg struct{}

// ReplyMsg carries Yahya's reply.
type ReplyMsg struct {
	Text string
}

// displayMessage represents a message rendered in the conversation viewport.
type displayMessage struct {
	fromUser bool
	content  string
}

// Model is the chat panel for the companion.
type Model struct {
	ctx        context.Context
	companion  *mentor.Companion
	lang       locale.Lang
	input      textarea.Model
	viewport   viewport.Model
	messages   []displayMessage
	waiting    bool
	generating bool
	style      string
	width      int
	height     int
}

// New creates the companion panel. Chat requests are cancelled with ctx.
// style is a glamour standard style name.
func New(ctx context.Context, c *mentor.Companion, lang locale.Lang, style string, width, height int) Model {
	ta := textarea.New()
	ta.Placeholder = "Talk to Yahya..."
	ta.Prompt = "> "
	ta.ShowLineNumbers = false
	ta.SetWidth(width - 4)
	ta.SetHeight(3)
	ta.CharLimit = 2000
	ta.Focus()

	vp := viewport.New(width-4, max(height-10, 4))
	vp.Style = lipgloss.NewStyle()

	if style == "" {
		style = "dark"
	}

	m := Model{
		ctx:       ctx,
		companion: c,
		lang:      lang,
		input:     ta,
		viewport:  vp,
		style:     style,
		width:     width,
		height:    height,
	}
	m.refreshViewport()
	return m
}

// Init returns the initial command for the panel.
func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

// Update handles messages for the panel.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ReplyMsg:
		m.waiting = false
		m.messages = append(m.messages, displayMessage{content: msg.Text})
		m.refreshViewport()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	var cmds []tea.Cmd

	var taCmd tea.Cmd
	m.input, taCmd = m.input.Update(msg)
	cmds = append(cmds, taCmd)

	var vpCmd tea.Cmd
	m.viewport, vpCmd = m.viewport.Update(msg)
	cmds = append(cmds, vpCmd)

	return m, tea.Batch(cmds...)
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m, func() tea.Msg { return CloseMsg{} }

	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case "enter":
		if m.waiting {
			return m, nil
		}

		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}

		m.input.Reset()
		m.messages = append(m.messages, displayMessage{fromUser: true, content: text})
		m.waiting = true
		m.refreshViewport()

		return m, sendMessage(m.ctx, m.companion, text, m.lang)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// sendMessage returns a command that asks the companion for a reply.
func sendMessage(parent context.Context, c *mentor.Companion, text string, lang locale.Lang) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, chatTimeout)
		defer cancel()
		return ReplyMsg{Text: c.Chat(ctx, text, lang)}
	}
}

// SetLanguage switches the reply language.
func (m *Model) SetLanguage(lang locale.Lang) {
	m.lang = lang
	m.refreshViewport()
}

// SetGenerating marks an avatar generation as in flight.
func (m *Model) SetGenerating(generating bool) {
	m.generating = generating
}

// Refresh re-renders after a mood change.
func (m *Model) Refresh() {
	m.refreshViewport()
}

func (m *Model) refreshViewport() {
	m.viewport.SetContent(m.renderConversation())
	m.viewport.GotoBottom()
}

func (m Model) renderConversation() string {
	if len(m.messages) == 0 {
		return m.renderMarkdown(m.companion.Message(m.lang))
	}

	userStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorBlue)
	yahyaStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorGreen)

	var sections []string
	for _, msg := range m.messages {
		if msg.fromUser {
			sections = append(sections, userStyle.Render("You:"), msg.content, "")
			continue
		}
		sections = append(sections, yahyaStyle.Render("Yahya:"), m.renderMarkdown(msg.content))
	}

	if m.waiting {
		sections = append(sections, theme.HelpStyle.Render("Yahya is thinking..."))
	}

	return strings.Join(sections, "\n")
}

// renderMarkdown renders s with glamour, falling back to plain text.
func (m Model) renderMarkdown(s string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(m.style),
		glamour.WithWordWrap(max(m.width-8, 20)),
	)
	if err != nil {
		return s
	}
	out, err := r.Render(s)
	if err != nil {
		return s
	}
	return strings.TrimRight(out, "\n")
}

func (m Model) avatarStatus() string {
	switch {
	case m.generating:
		return "avatar: generating"
	case len(m.companion.Avatar()) > 0:
		return "avatar: ready"
	case !m.companion.CanGenerateAvatars():
		return "avatar: off"
	default:
		return "avatar: none"
	}
}

// View renders the panel.
func (m Model) View() string {
	mood := m.companion.Mood()

	title := lipgloss.JoinHorizontal(
		lipgloss.Top,
		lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite).Render("Yahya"),
		"  ",
		theme.MoodStyle(mood).Render(string(mood)),
		"  ",
		theme.HelpStyle.Render(m.avatarStatus()),
	)

	separator := lipgloss.NewStyle().
		Foreground(theme.ColorSubtle).
		Render(strings.Repeat("─", min(max(m.width-6, 1), 80)))

	content := lipgloss.JoinVertical(
		lipgloss.Left,
		title,
		"",
		m.viewport.View(),
		separator,
		m.input.View(),
	)

	return theme.PanelStyle.
		Width(m.width - 4).
		Render(content)
}

// SetSize updates the panel dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.SetWidth(width - 4)
	m.viewport.Width = width - 4
	m.viewport.Height = max(height-10, 4)
	m.refreshViewport()
}

// Focus gives keyboard focus to the text input.
func (m *Model) Focus() tea.Cmd {
	return m.input.Focus()
}
