package config

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/focusproof/internal/credential"
	"github.com/nhle/focusproof/internal/model"
	"github.com/nhle/focusproof/internal/theme"
)

// ConfigDoneMsg signals the config view should close and return to the main app.
type ConfigDoneMsg struct{}

// SavedMsg carries the configuration that was written to disk.
type SavedMsg struct {
	Config *model.AppConfig
	Err    error
}

// formValues holds the form field values that huh binds to.
type formValues struct {
	language string
	theme    string
	duration string
	bell     bool
	avatar   bool

	emailEnabled  bool
	emailHost     string
	emailPort     string
	emailUsername string
	emailFrom     string
	emailTo       string
	emailPassword string

	mailboxEnabled  bool
	mailboxHost     string
	mailboxPort     string
	mailboxUsername string
	mailboxPassword string
}

// Model is the settings view. It edits a copy of the loaded configuration
// and writes it back to path.
type Model struct {
	form   *huh.Form
	values *formValues
	cfg    model.AppConfig
	path   string

	width, height int
}

// New creates a new configuration view model.
func New(cfg *model.AppConfig, path string, width, height int) Model {
	return Model{
		cfg:    *cfg,
		path:   path,
		width:  width,
		height: height,
	}
}

// Start resets the form from the current configuration.
func (m *Model) Start() tea.Cmd {
	m.values = valuesFrom(m.cfg)
	m.form = m.buildForm()
	return m.form.Init()
}

// Update handles messages for the settings form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.form = nil
		cfg := m.values.apply(m.cfg)
		m.cfg = cfg
		return m, save(m.path, cfg, *m.values)
	case huh.StateAborted:
		m.form = nil
		return m, func() tea.Msg { return ConfigDoneMsg{} }
	}

	return m, cmd
}

// View renders the settings form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	hint := lipgloss.NewStyle().Foreground(theme.ColorGray).
		Render("Passwords are stored in the system keyring. Mail changes apply on next start.")

	return lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Height(m.height).
		Render(titleStyle.Render("Settings") + "\n" + m.form.View() + "\n" + hint)
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	if m.form != nil {
		m.form = m.form.WithWidth(m.formWidth())
	}
}

func (m Model) formWidth() int {
	return max(min(m.width-4, 72), 20)
}

func (m *Model) buildForm() *huh.Form {
	v := m.values
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Language").
				Options(
					huh.NewOption("English", "en"),
					huh.NewOption("العربية", "ar"),
				).
				Value(&v.language),
			huh.NewSelect[string]().
				Title("Markdown style").
				Options(
					huh.NewOption("Dark", "dark"),
					huh.NewOption("Light", "light"),
					huh.NewOption("Plain", "notty"),
				).
				Value(&v.theme),
			huh.NewInput().
				Title("Default duration (minutes)").
				Value(&v.duration).
				Validate(validateMinutes),
			huh.NewConfirm().
				Title("Terminal bell").
				Description("Ring for reminders, time-up and success").
				Value(&v.bell),
			huh.NewConfirm().
				Title("Companion avatar").
				Description("Generate a picture of Yahya for each mood").
				Value(&v.avatar),
		).Title("General"),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Email reminders").
				Value(&v.emailEnabled),
			huh.NewInput().
				Title("SMTP Host").
				Placeholder("smtp.example.com").
				Value(&v.emailHost),
			huh.NewInput().
				Title("SMTP Port").
				Placeholder("587").
				Value(&v.emailPort).
				Validate(validatePort),
			huh.NewInput().
				Title("Username").
				Value(&v.emailUsername),
			huh.NewInput().
				Title("Password").
				Description("Leave empty to keep the stored one").
				EchoMode(huh.EchoModePassword).
				Value(&v.emailPassword),
			huh.NewInput().
				Title("From").
				Value(&v.emailFrom),
			huh.NewInput().
				Title("To").
				Value(&v.emailTo),
		).Title("Reminder email"),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Mailed proofs").
				Description("Poll an IMAP mailbox for photos tagged with the task").
				Value(&v.mailboxEnabled),
			huh.NewInput().
				Title("IMAP Host").
				Placeholder("imap.example.com").
				Value(&v.mailboxHost),
			huh.NewInput().
				Title("IMAP Port").
				Placeholder("993").
				Value(&v.mailboxPort).
				Validate(validatePort),
			huh.NewInput().
				Title("Username").
				Value(&v.mailboxUsername),
			huh.NewInput().
				Title("Password").
				Description("Leave empty to keep the stored one").
				EchoMode(huh.EchoModePassword).
				Value(&v.mailboxPassword),
		).Title("Proof mailbox"),
	).WithWidth(m.formWidth()).WithShowHelp(false)
}

func valuesFrom(cfg model.AppConfig) *formValues {
	return &formValues{
		language: cfg.Display.Language,
		theme:    cfg.Display.Theme,
		duration: strconv.Itoa(cfg.Tasks.DefaultDurationMinutes),
		bell:     cfg.Reminder.Bell,
		avatar:   cfg.Avatar.Enabled,

		emailEnabled:  cfg.Reminder.Email.Enabled,
		emailHost:     cfg.Reminder.Email.Host,
		emailPort:     cfg.Reminder.Email.Port,
		emailUsername: cfg.Reminder.Email.Username,
		emailFrom:     cfg.Reminder.Email.From,
		emailTo:       cfg.Reminder.Email.To,

		mailboxEnabled:  cfg.Proof.Mailbox.Enabled,
		mailboxHost:     cfg.Proof.Mailbox.Host,
		mailboxPort:     cfg.Proof.Mailbox.Port,
		mailboxUsername: cfg.Proof.Mailbox.Username,
	}
}

// apply returns cfg with the form values written over it.
func (v formValues) apply(cfg model.AppConfig) model.AppConfig {
	cfg.Display.Language = v.language
	cfg.Display.Theme = v.theme
	if n, err := strconv.Atoi(strings.TrimSpace(v.duration)); err == nil && n > 0 {
		cfg.Tasks.DefaultDurationMinutes = n
	}
	cfg.Reminder.Bell = v.bell
	cfg.Avatar.Enabled = v.avatar

	cfg.Reminder.Email.Enabled = v.emailEnabled
	cfg.Reminder.Email.Host = strings.TrimSpace(v.emailHost)
	cfg.Reminder.Email.Port = strings.TrimSpace(v.emailPort)
	cfg.Reminder.Email.Username = strings.TrimSpace(v.emailUsername)
	cfg.Reminder.Email.From = strings.TrimSpace(v.emailFrom)
	cfg.Reminder.Email.To = strings.TrimSpace(v.emailTo)

	cfg.Proof.Mailbox.Enabled = v.mailboxEnabled
	cfg.Proof.Mailbox.Host = strings.TrimSpace(v.mailboxHost)
	cfg.Proof.Mailbox.Port = strings.TrimSpace(v.mailboxPort)
	cfg.Proof.Mailbox.Username = strings.TrimSpace(v.mailboxUsername)
	return cfg
}

// save writes cfg to path and stores any new passwords in the keyring.
func save(path string, cfg model.AppConfig, v formValues) tea.Cmd {
	return func() tea.Msg {
		secrets := map[string]string{
			credential.SMTPPassword: v.emailPassword,
			credential.IMAPPassword: v.mailboxPassword,
		}
		for key, value := range secrets {
			if value == "" {
				continue
			}
			if err := credential.Set(key, value); err != nil {
				return SavedMsg{Err: fmt.Errorf("saving %s: %w", key, err)}
			}
		}

		if err := model.SaveConfig(path, &cfg); err != nil {
			return SavedMsg{Err: err}
		}
		return SavedMsg{Config: &cfg}
	}
}

// --- Validators ---

func validateMinutes(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return fmt.Errorf("enter a positive number of minutes")
	}
	return nil
}

func validatePort(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	for _, c := range strings.TrimSpace(s) {
		if c < '0' || c > '9' {
			return fmt.Errorf("port must be a number")
		}
	}
	return nil
}
