// Package setup is the connection setup screen: the dashboard backend
// and the optional inquiry mailbox.
package setup

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/notifybell/internal/backend"
	"github.com/nhle/notifybell/internal/credential"
	"github.com/nhle/notifybell/internal/keys"
	"github.com/nhle/notifybell/internal/model"
	"github.com/nhle/notifybell/internal/source/email"
	"github.com/nhle/notifybell/internal/theme"
)

// Mode represents the current state of the setup view.
type Mode int

const (
	ModeOverview       Mode = iota // Current settings
	ModeFormBackend                // Backend URL and token
	ModeFormInbox                  // IMAP mailbox
	ModeValidating                 // Testing connection
	ModeValidateResult             // Show validation result
)

const validateTimeout = 20 * time.Second

// DoneMsg signals the setup view should close and return to the main app.
type DoneMsg struct{}

// SavedMsg signals the configuration was written. Restart is true when
// a setting that is only read at startup changed.
type SavedMsg struct {
	Config  model.AppConfig
	Restart bool
}

// ValidateResultMsg carries the result of a connection validation attempt.
type ValidateResultMsg struct {
	Target string
	Detail string
	Err    error
}

// savedInternalMsg is sent after settings and secrets are persisted.
type savedInternalMsg struct {
	cfg     model.AppConfig
	restart bool
	err     error
}

type formFields struct {
	baseURL  string
	token    string
	imapHost string
	imapPort string
	username string
	password string
	mailbox  string
	tls      bool
	enabled  bool
}

// Model is the Bubble Tea model for the setup screen.
type Model struct {
	mode       Mode
	cfg        model.AppConfig
	configPath string
	creds      *credential.Store

	backendForm *huh.Form
	inboxForm   *huh.Form

	// Form field values. huh binds to these through pointers, so they
	// live behind one allocation shared by every copy of Model.
	form *formFields

	// pending holds the edited config until validation succeeds.
	pending   *model.AppConfig
	secret    string
	secretKey string

	validTarget string
	validDetail string
	validError  error
	spinner     spinner.Model

	statusMsg string

	keys          *keys.KeyMap
	width, height int
}

// New creates a setup view over cfg, persisting to configPath and
// storing secrets in creds.
func New(
	cfg model.AppConfig,
	configPath string,
	creds *credential.Store,
	k *keys.KeyMap,
	width, height int,
) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		mode:       ModeOverview,
		cfg:        cfg,
		configPath: configPath,
		creds:      creds,
		form:       &formFields{},
		keys:       k,
		spinner:    sp,
		width:      width,
		height:     height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Mode returns the current screen state.
func (m Model) Mode() Mode { return m.mode }

// Update handles messages and dispatches based on current mode.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case ValidateResultMsg:
		if m.mode != ModeValidating {
			return m, nil
		}
		m.validTarget = msg.Target
		m.validDetail = msg.Detail
		m.validError = msg.Err
		if msg.Err != nil {
			m.mode = ModeValidateResult
			return m, nil
		}
		return m, m.save()

	case savedInternalMsg:
		m.pending = nil
		m.secret = ""
		m.secretKey = ""
		if msg.err != nil {
			m.validError = msg.err
			m.mode = ModeValidateResult
			return m, nil
		}
		m.cfg = msg.cfg
		m.mode = ModeValidateResult
		saved := SavedMsg{Config: msg.cfg, Restart: msg.restart}
		return m, func() tea.Msg { return saved }

	case spinner.TickMsg:
		if m.mode == ModeValidating {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	return m.updateActiveForm(msg)
}

// handleKeyMsg processes key messages based on the current mode.
func (m Model) handleKeyMsg(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch m.mode {
	case ModeOverview:
		return m.handleOverviewKeys(msg)
	case ModeFormBackend, ModeFormInbox:
		return m.updateActiveForm(msg)
	case ModeValidateResult:
		switch msg.String() {
		case "enter", "esc":
			m.mode = ModeOverview
			m.validError = nil
			m.validDetail = ""
		}
		return m, nil
	case ModeValidating:
		// Only allow escape during validation
		if msg.String() == "esc" {
			m.mode = ModeOverview
			m.pending = nil
			m.secret = ""
			m.secretKey = ""
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleOverviewKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		return m, func() tea.Msg { return DoneMsg{} }

	case msg.String() == "b":
		m.form.baseURL = m.cfg.Backend.BaseURL
		m.form.token = ""
		m.backendForm = m.buildBackendForm()
		m.mode = ModeFormBackend
		return m, m.backendForm.Init()

	case msg.String() == "i":
		m.form.imapHost = m.cfg.Inbox.Host
		m.form.imapPort = m.cfg.Inbox.Port
		m.form.username = m.cfg.Inbox.Username
		m.form.mailbox = m.cfg.Inbox.Mailbox
		m.form.tls = m.cfg.Inbox.TLS
		m.form.enabled = m.cfg.Inbox.Enabled || m.cfg.Inbox.Host == ""
		m.form.password = ""
		m.inboxForm = m.buildInboxForm()
		m.mode = ModeFormInbox
		return m, m.inboxForm.Init()
	}
	return m, nil
}

// updateActiveForm dispatches messages to the currently active form.
func (m Model) updateActiveForm(msg tea.Msg) (Model, tea.Cmd) {
	var form **huh.Form
	switch m.mode {
	case ModeFormBackend:
		form = &m.backendForm
	case ModeFormInbox:
		form = &m.inboxForm
	default:
		return m, nil
	}
	if *form == nil {
		return m, nil
	}

	mdl, cmd := (*form).Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		*form = f
	}

	switch (*form).State {
	case huh.StateCompleted:
		if m.mode == ModeFormBackend {
			return m.submitBackend()
		}
		return m.submitInbox()
	case huh.StateAborted:
		m.mode = ModeOverview
		return m, nil
	}
	return m, cmd
}

// --- Backend Form ---

func (m *Model) buildBackendForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Base URL").
				Description("Dashboard API root (e.g., https://villas.example.com/api)").
				Placeholder("https://villas.example.com/api").
				Value(&m.form.baseURL).
				Validate(validateURL),
			huh.NewInput().
				Title("Access Token").
				Description("Bearer token; leave empty to keep the stored one").
				EchoMode(huh.EchoModePassword).
				Value(&m.form.token),
		),
	).WithWidth(m.formWidth())
}

func (m Model) submitBackend() (Model, tea.Cmd) {
	cfg := m.cfg
	cfg.Backend.BaseURL = strings.TrimRight(strings.TrimSpace(m.form.baseURL), "/")
	m.pending = &cfg

	token := strings.TrimSpace(m.form.token)
	if token == "" {
		stored, err := m.creds.Get(cfg.Backend.TokenKey)
		if err != nil && !errors.Is(err, credential.ErrNotFound) {
			m.statusMsg = fmt.Sprintf("Error reading token: %v", err)
			m.mode = ModeOverview
			return m, nil
		}
		token = stored
	} else {
		m.secret = token
		m.secretKey = cfg.Backend.TokenKey
	}

	m.mode = ModeValidating
	return m, tea.Batch(
		m.spinner.Tick,
		validateBackend(cfg.Backend, token),
	)
}

// --- Inbox Form ---

func (m *Model) buildInboxForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Poll inquiry mailbox").
				Value(&m.form.enabled),
			huh.NewInput().
				Title("IMAP Host").
				Placeholder("imap.example.com").
				Value(&m.form.imapHost).
				Validate(validateRequired("IMAP host")),
			huh.NewInput().
				Title("IMAP Port").
				Placeholder("993").
				Value(&m.form.imapPort).
				Validate(validatePort),
			huh.NewInput().
				Title("Username").
				Value(&m.form.username).
				Validate(validateRequired("Username")),
			huh.NewInput().
				Title("Password").
				Description("Leave empty to keep the stored one").
				EchoMode(huh.EchoModePassword).
				Value(&m.form.password),
			huh.NewInput().
				Title("Mailbox").
				Placeholder("INBOX").
				Value(&m.form.mailbox),
			huh.NewConfirm().
				Title("Use TLS").
				Value(&m.form.tls),
		),
	).WithWidth(m.formWidth())
}

func (m Model) submitInbox() (Model, tea.Cmd) {
	cfg := m.cfg
	cfg.Inbox.Enabled = m.form.enabled
	cfg.Inbox.Host = strings.TrimSpace(m.form.imapHost)
	cfg.Inbox.Port = strings.TrimSpace(m.form.imapPort)
	cfg.Inbox.Username = strings.TrimSpace(m.form.username)
	cfg.Inbox.Mailbox = strings.TrimSpace(m.form.mailbox)
	if cfg.Inbox.Mailbox == "" {
		cfg.Inbox.Mailbox = "INBOX"
	}
	cfg.Inbox.TLS = m.form.tls
	m.pending = &cfg

	password := m.form.password
	if password == "" {
		stored, err := m.creds.Get(credential.InboxPasswordKey)
		if err != nil && !errors.Is(err, credential.ErrNotFound) {
			m.statusMsg = fmt.Sprintf("Error reading password: %v", err)
			m.mode = ModeOverview
			return m, nil
		}
		password = stored
	} else {
		m.secret = password
		m.secretKey = credential.InboxPasswordKey
	}

	if !cfg.Inbox.Enabled {
		m.mode = ModeValidating
		return m, m.save()
	}

	m.mode = ModeValidating
	return m, tea.Batch(
		m.spinner.Tick,
		validateInbox(cfg.Inbox, password),
	)
}

// --- Persistence ---

// save writes the pending secret to the keyring under the key chosen by
// the submitting form, then the config without secrets.
func (m Model) save() tea.Cmd {
	if m.pending == nil {
		return nil
	}
	cfg := *m.pending
	prev := m.cfg
	secret := m.secret
	secretKey := m.secretKey
	creds := m.creds
	path := m.configPath

	return func() tea.Msg {
		if secret != "" && secretKey != "" {
			if err := creds.Set(secretKey, secret); err != nil {
				return savedInternalMsg{err: fmt.Errorf("saving credential: %w", err)}
			}
		}
		if err := model.SaveConfig(path, &cfg); err != nil {
			return savedInternalMsg{err: err}
		}
		restart := cfg.Backend.BaseURL != prev.Backend.BaseURL || cfg.Inbox != prev.Inbox
		return savedInternalMsg{cfg: cfg, restart: restart}
	}
}

// validateBackend lists notifications once with the candidate settings.
func validateBackend(cfg model.BackendConfig, token string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), validateTimeout)
		defer cancel()

		client := backend.NewClient(
			cfg.BaseURL,
			backend.StaticToken(token),
			backend.WithMaxRetries(0),
		)
		res, err := client.ListNotifications(ctx)
		if err != nil {
			return ValidateResultMsg{Target: "backend", Err: err}
		}
		detail := fmt.Sprintf("%d notifications (%s)", len(res.Items), res.Shape)
		return ValidateResultMsg{Target: "backend", Detail: detail}
	}
}

// validateInbox connects to the mailbox with the candidate settings.
func validateInbox(cfg model.InboxConfig, password string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), validateTimeout)
		defer cancel()

		adapter := email.NewAdapter(
			cfg.Host, cfg.Port, cfg.Username, password, cfg.Mailbox, cfg.TLS,
		)
		detail, err := adapter.ValidateConnection(ctx)
		return ValidateResultMsg{Target: "inbox", Detail: detail, Err: err}
	}
}

// --- View ---

// View renders the setup UI based on the current mode.
func (m Model) View() string {
	switch m.mode {
	case ModeOverview:
		return m.viewOverview()
	case ModeFormBackend:
		return m.viewForm(m.backendForm)
	case ModeFormInbox:
		return m.viewForm(m.inboxForm)
	case ModeValidating:
		return m.viewValidating()
	case ModeValidateResult:
		return m.viewValidateResult()
	default:
		return ""
	}
}

func (m Model) viewOverview() string {
	var b strings.Builder

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)
	labelStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)

	b.WriteString(titleStyle.Render("Connection Setup"))
	b.WriteString("\n\n")

	baseURL := m.cfg.Backend.BaseURL
	if baseURL == "" {
		baseURL = "(not set)"
	}
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Backend:  "), baseURL)
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Token:    "), m.secretState(m.cfg.Backend.TokenKey))

	inbox := "disabled"
	if m.cfg.Inbox.Enabled {
		inbox = fmt.Sprintf("%s@%s:%s/%s",
			m.cfg.Inbox.Username, m.cfg.Inbox.Host, m.cfg.Inbox.Port, m.cfg.Inbox.Mailbox)
	}
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Inbox:    "), inbox)

	if m.statusMsg != "" {
		b.WriteString("\n")
		statusStyle := lipgloss.NewStyle().
			Foreground(theme.ColorYellow).
			Italic(true)
		b.WriteString(statusStyle.Render(m.statusMsg))
	}

	b.WriteString("\n\n")
	b.WriteString(labelStyle.Render("b backend | i inbox | esc back"))

	return lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Height(m.height).
		Render(b.String())
}

func (m Model) secretState(key string) string {
	if m.creds == nil {
		return "unknown"
	}
	tok, err := m.creds.Get(key)
	switch {
	case errors.Is(err, credential.ErrNotFound):
		return "not stored"
	case err != nil:
		return "keyring unavailable"
	}
	exp, err := credential.TokenExpiry(tok)
	if err != nil {
		return "stored"
	}
	if credential.Expired(tok, time.Now()) {
		return "expired " + exp.Local().Format("2006-01-02 15:04")
	}
	return "valid until " + exp.Local().Format("2006-01-02 15:04")
}

func (m Model) viewForm(f *huh.Form) string {
	if f == nil {
		return ""
	}

	return lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Height(m.height).
		Render(f.View())
}

func (m Model) viewValidating() string {
	style := lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Height(m.height)

	content := fmt.Sprintf(
		"%s Testing connection...\n\nPress esc to cancel.",
		m.spinner.View(),
	)

	return style.Render(content)
}

func (m Model) viewValidateResult() string {
	style := lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Height(m.height)
	hint := lipgloss.NewStyle().Foreground(theme.ColorGray).Render("enter/esc back")

	if m.validError != nil {
		errStyle := lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.ColorRed)
		return style.Render(errStyle.Render("Connection failed") + "\n\n" +
			m.validError.Error() + "\n\n" + hint)
	}

	okStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorGreen)
	content := okStyle.Render("Saved") + "\n\n"
	if m.validDetail != "" {
		content += fmt.Sprintf("%s: %s", m.validTarget, m.validDetail) + "\n\n"
	}
	return style.Render(content + hint)
}

// --- Helpers ---

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m Model) formWidth() int {
	return min(max(m.width-4, 40), 100)
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateURL(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("URL is required")
	}
	parsed, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("URL must include http(s) scheme and host (e.g., https://example.com)")
	}
	return nil
}

func validatePort(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("port is required")
	}
	p, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || p <= 0 || p > 65535 {
		return fmt.Errorf("port must be a number between 1 and 65535")
	}
	return nil
}
