package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/notifybell/internal/credential"
	"github.com/nhle/notifybell/internal/keys"
	"github.com/nhle/notifybell/internal/model"
	"github.com/nhle/notifybell/internal/notify"
	appsync "github.com/nhle/notifybell/internal/sync"
	"github.com/nhle/notifybell/internal/theme"
	"github.com/nhle/notifybell/internal/ui"
	"github.com/nhle/notifybell/internal/ui/bell"
	"github.com/nhle/notifybell/internal/ui/command"
	"github.com/nhle/notifybell/internal/ui/detail"
	helpview "github.com/nhle/notifybell/internal/ui/help"
	"github.com/nhle/notifybell/internal/ui/notiflist"
	"github.com/nhle/notifybell/internal/ui/setup"
)

// subscriberName is the store subscription used by the UI.
const subscriberName = "tui"

// opTimeout bounds a single user-triggered backend call.
const opTimeout = 30 * time.Second

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewList ViewState = iota
	ViewDetail
	ViewBell
	ViewSetup
	ViewHelp
	ViewCommand
)

// snapshotMsg carries a store snapshot to the UI.
type snapshotMsg struct {
	snapshot notify.Snapshot
}

// opResultMsg reports the outcome of a coordinator operation.
type opResultMsg struct {
	op     string
	target string
	err    error
}

// Options wires the application to its collaborators.
type Options struct {
	Config      model.AppConfig
	ConfigPath  string
	Coordinator *appsync.Coordinator
	Poller      *appsync.Poller
	Credentials *credential.Store
	Logger      *zap.Logger
}

// Model is the root Bubble Tea model that manages view routing,
// layout, and the notification feed.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	keys         *keys.KeyMap
	coordinator  *appsync.Coordinator
	poller       *appsync.Poller
	logger       *zap.Logger
	updates      <-chan notify.Snapshot

	list        notiflist.Model
	detail      detail.Model
	bellView    bell.Model
	setupView   setup.Model
	helpView    helpview.Model
	commandView command.Model

	snapshot         notify.Snapshot
	ready            bool
	authErrorMessage string
	statusMessage    string
	lastTarget       string
	failed           bool
}

// New creates a new root application model.
func New(opts Options) Model {
	k := keys.DefaultKeyMap()
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	store := opts.Coordinator.Store()

	m := Model{
		currentView: ViewList,
		keys:        k,
		coordinator: opts.Coordinator,
		poller:      opts.Poller,
		logger:      logger,
		updates:     store.Subscribe(subscriberName),
		list:        notiflist.New(k, 80, 24),
		detail:      detail.New(k, 80, 24),
		bellView:    bell.New(k, opts.Config.Display.BellSize, 80, 24),
		setupView:   setup.New(opts.Config, opts.ConfigPath, opts.Credentials, k, 80, 24),
		helpView:    helpview.New(k, 80, 24),
		commandView: command.New(80, 24),
	}
	if opts.Config.Backend.BaseURL == "" {
		m.currentView = ViewSetup
	}
	return m
}

// Init emits the current snapshot and starts the poller. Handling each
// snapshotMsg arms the next wait, so exactly one goroutine reads the
// subscription at a time.
func (m Model) Init() tea.Cmd {
	initial := m.coordinator.Store().Snapshot()
	return tea.Batch(
		func() tea.Msg { return snapshotMsg{snapshot: initial} },
		m.poller.Start(),
	)
}

// waitForSnapshot blocks on the store subscription.
func (m Model) waitForSnapshot() tea.Cmd {
	ch := m.updates
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return nil
		}
		return snapshotMsg{snapshot: snap}
	}
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		contentWidth := m.layout.ContentWidth()
		contentHeight := m.layout.ContentHeight()
		m.list.SetSize(contentWidth, contentHeight)
		m.detail.SetSize(contentWidth, contentHeight)
		m.bellView.SetSize(contentWidth, contentHeight)
		m.setupView.SetSize(contentWidth, contentHeight)
		m.helpView.SetSize(contentWidth, contentHeight)
		m.commandView.SetSize(contentWidth, contentHeight)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case snapshotMsg:
		m.snapshot = msg.snapshot
		m.bellView.SetSnapshot(msg.snapshot)
		if cur, ok := m.detail.Current(); ok {
			if n, found := findByID(msg.snapshot.Items, cur.ID); found {
				m.detail.Refresh(n)
			} else if m.currentView == ViewDetail {
				m.currentView = ViewList
			}
		}
		return m, tea.Batch(m.list.SetSnapshot(msg.snapshot), m.waitForSnapshot())

	case appsync.SyncResultMsg:
		if msg.AuthError != nil {
			m.authErrorMessage = msg.AuthError.Message
		} else if msg.Error == nil && msg.Source == appsync.BackendSource {
			m.authErrorMessage = ""
		}
		if msg.NewCount > 0 {
			m.statusMessage = fmt.Sprintf("%d new from %s", msg.NewCount, msg.Source)
			m.failed = false
		}
		return m, m.poller.WaitForNextResult()

	case opResultMsg:
		return m.handleOpResult(msg)

	case notiflist.ActionMsg:
		switch msg.Action {
		case notiflist.ActionOpen:
			if !m.showDetail(msg.ID) {
				return m, nil
			}
			return m, m.open(msg.ID)
		case notiflist.ActionMarkRead:
			return m, m.readOne(msg.ID)
		case notiflist.ActionRemove:
			return m, m.remove(msg.ID)
		}
		return m, nil

	case detail.BackMsg:
		m.currentView = ViewList
		return m, nil

	case detail.ActionMsg:
		switch msg.Action {
		case detail.ActionFollow:
			return m, m.open(msg.ID)
		case detail.ActionMarkRead:
			return m, m.readOne(msg.ID)
		case detail.ActionRemove:
			m.currentView = ViewList
			return m, m.remove(msg.ID)
		}
		return m, nil

	case bell.OpenMsg:
		m.currentView = m.previousView
		return m, m.open(msg.ID)

	case bell.ReadAllMsg:
		return m, m.readAll()

	case bell.CloseMsg:
		m.currentView = m.previousView
		return m, nil

	case bell.ViewAllMsg:
		m.currentView = ViewList
		return m, nil

	case setup.DoneMsg:
		m.currentView = ViewList
		return m, nil

	case setup.SavedMsg:
		if msg.Restart {
			m.statusMessage = "Settings saved. Restart to apply connection changes."
		} else {
			m.statusMessage = "Settings saved."
		}
		m.authErrorMessage = ""
		m.failed = false
		return m, m.poller.RefreshAll()

	case command.CommandMsg:
		m.currentView = m.previousView
		return m, m.executeCommand(string(msg))

	case tea.KeyMsg:
		if next, cmd, handled := m.handleGlobalKey(msg); handled {
			return next, cmd
		}
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// handleGlobalKey handles keys that work regardless of the active view.
// Text-entry views only see ctrl+c.
func (m Model) handleGlobalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	if msg.String() == "ctrl+c" {
		m.shutdown()
		return m, tea.Quit, true
	}
	if m.currentView == ViewSetup || (m.currentView == ViewCommand && msg.String() != "esc") {
		return m, nil, false
	}

	switch {
	case m.currentView == ViewCommand:
		m.currentView = m.previousView
		return m, nil, true

	case key.Matches(msg, m.keys.Quit) && m.currentView == ViewList:
		m.shutdown()
		return m, tea.Quit, true

	case key.Matches(msg, m.keys.Help):
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return m, nil, true
		}
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return m, nil, true

	case key.Matches(msg, m.keys.Back) && m.currentView == ViewHelp:
		m.currentView = m.previousView
		return m, nil, true

	case key.Matches(msg, m.keys.Command):
		m.previousView = m.currentView
		m.currentView = ViewCommand
		return m, m.commandView.Focus(), true

	case key.Matches(msg, m.keys.Bell) && m.currentView != ViewBell:
		m.previousView = m.currentView
		m.currentView = ViewBell
		return m, nil, true

	case key.Matches(msg, m.keys.Refresh):
		m.statusMessage = "Refreshing..."
		m.failed = false
		return m, m.poller.RefreshAll(), true
	}

	if m.currentView != ViewList {
		return m, nil, false
	}

	switch {
	case key.Matches(msg, m.keys.MarkAllRead):
		return m, m.readAll(), true

	case key.Matches(msg, m.keys.ClearAll):
		return m, m.clearAll(), true

	case key.Matches(msg, m.keys.Setup):
		m.previousView = m.currentView
		m.currentView = ViewSetup
		return m, m.setupView.Init(), true
	}
	return m, nil, false
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewList:
		m.list, cmd = m.list.Update(msg)
	case ViewDetail:
		m.detail, cmd = m.detail.Update(msg)
	case ViewBell:
		m.bellView, cmd = m.bellView.Update(msg)
	case ViewSetup:
		m.setupView, cmd = m.setupView.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	}

	return m, cmd
}

// handleOpResult reports a finished coordinator operation in the status bar.
func (m Model) handleOpResult(msg opResultMsg) (tea.Model, tea.Cmd) {
	if msg.target != "" {
		m.lastTarget = msg.target
	}
	m.failed = msg.err != nil
	switch {
	case msg.err == nil:
		m.statusMessage = opDoneMessage(msg.op, msg.target)
	case errors.Is(msg.err, appsync.ErrNotFound):
		m.statusMessage = "Notification no longer exists."
	default:
		m.statusMessage = fmt.Sprintf("%s failed: %v", msg.op, msg.err)
	}
	return m, nil
}

func opDoneMessage(op, target string) string {
	switch op {
	case "open":
		if target != "" {
			return "→ " + target
		}
		return "Marked as read."
	case "mark read":
		return "Marked as read."
	case "mark all read":
		return "All notifications marked as read."
	case "remove":
		return "Notification removed."
	case "clear":
		return "Notifications cleared."
	default:
		return ""
	}
}

// showDetail switches to the detail view of a notification.
func (m *Model) showDetail(id model.ID) bool {
	n, ok := m.coordinator.Store().Get(id)
	if !ok {
		return false
	}
	m.previousView = m.currentView
	m.currentView = ViewDetail
	m.lastTarget = ""
	m.detail.SetNotification(n)
	return true
}

// open reads a notification and follows its link.
func (m Model) open(id model.ID) tea.Cmd {
	c := m.coordinator
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		target, err := c.Open(ctx, id)
		return opResultMsg{op: "open", target: target, err: err}
	}
}

func (m Model) readOne(id model.ID) tea.Cmd {
	c := m.coordinator
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		return opResultMsg{op: "mark read", err: c.ReadOne(ctx, id)}
	}
}

func (m Model) readAll() tea.Cmd {
	c := m.coordinator
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		return opResultMsg{op: "mark all read", err: c.ReadAll(ctx)}
	}
}

func (m Model) remove(id model.ID) tea.Cmd {
	c := m.coordinator
	return func() tea.Msg {
		return opResultMsg{op: "remove", err: c.RemoveLocal(context.Background(), id)}
	}
}

func (m Model) clearAll() tea.Cmd {
	c := m.coordinator
	return func() tea.Msg {
		c.ClearAll(context.Background())
		return opResultMsg{op: "clear"}
	}
}

func (m Model) shutdown() {
	m.poller.Stop()
	m.coordinator.Store().Unsubscribe(subscriberName)
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	navbar := m.layout.Navbar("Villa Notifications", m.syncStatus(), theme.BellLabel(m.snapshot.UnreadCount))
	content := m.renderContent()
	statusBar := m.layout.StatusBar(m.keyHints(), m.alerting())

	return m.layout.Frame(navbar, content, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewList:
		return m.list.View()
	case ViewDetail:
		return m.detail.View()
	case ViewBell:
		return m.layout.Dropdown(m.bellView.View())
	case ViewSetup:
		return m.setupView.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	default:
		return ""
	}
}

// syncStatus returns a short string describing the combined sync state.
func (m Model) syncStatus() string {
	statuses := m.poller.GetStatuses()

	running := 0
	var failing []string
	var last time.Time
	for _, s := range statuses {
		switch s.State {
		case appsync.SyncRunning:
			running++
		case appsync.SyncError:
			failing = append(failing, s.Source)
		}
		if s.Source == appsync.BackendSource {
			last = s.LastSync
		}
	}

	if running > 0 {
		return fmt.Sprintf("syncing (%d)", running)
	}
	if len(failing) > 0 {
		return "⚠ unreachable: " + strings.Join(failing, ", ")
	}
	if last.IsZero() {
		return "not synced"
	}
	return "synced " + last.Format("15:04")
}

// alerting reports whether the status bar carries a failure.
func (m Model) alerting() bool {
	if m.currentView != ViewList {
		return false
	}
	return m.authErrorMessage != "" || m.failed
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	// Show auth error prominently when present.
	if m.authErrorMessage != "" && m.currentView == ViewList {
		return m.authErrorMessage
	}

	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "enter execute | esc back"
	case ViewDetail:
		if m.lastTarget != "" {
			return "→ " + m.lastTarget + " | esc back"
		}
		return "esc back | enter follow link | m mark read | d remove | j/k scroll"
	case ViewBell:
		return "enter open | A mark all read | v view all | esc close"
	case ViewSetup:
		return "b backend | i inbox | esc back"
	default:
		if m.statusMessage != "" {
			return m.statusMessage
		}
		return "q quit | ? help | b bell | m read | A read all | u unread only"
	}
}

// executeCommand handles a command string from the command palette.
func (m *Model) executeCommand(cmd string) tea.Cmd {
	switch strings.ToLower(cmd) {
	case "refresh", "sync":
		return m.poller.RefreshAll()
	case "read all", "mark all", "mark-all-read":
		return m.readAll()
	case "clear", "clear all":
		return m.clearAll()
	case "bell":
		m.previousView = m.currentView
		m.currentView = ViewBell
		return nil
	case "setup", "configure", "config":
		m.previousView = m.currentView
		m.currentView = ViewSetup
		return m.setupView.Init()
	case "help":
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return nil
	case "quit", "q":
		m.shutdown()
		return tea.Quit
	default:
		m.statusMessage = fmt.Sprintf("unknown command %q", cmd)
		m.failed = true
		return nil
	}
}

func findByID(items []model.Notification, id model.ID) (model.Notification, bool) {
	for _, n := range items {
		if n.ID == id {
			return n, true
		}
	}
	return model.Notification{}, false
}
