package sync

import (
	"context"
	"fmt"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/notifybell/internal/backend"
	"github.com/nhle/notifybell/internal/source"
)

// BackendSource is the status name of the dashboard backend.
const BackendSource = "backend"

// SyncState represents the current state of a sync operation.
type SyncState int

const (
	SyncIdle SyncState = iota
	SyncRunning
	SyncError
)

func (s SyncState) String() string {
	switch s {
	case SyncRunning:
		return "syncing"
	case SyncError:
		return "error"
	default:
		return "idle"
	}
}

// SyncStatus holds the sync state for a single source.
type SyncStatus struct {
	Source   string
	State    SyncState
	LastSync time.Time
	Error    error
}

// SyncResultMsg is a tea.Msg sent when a sync operation completes.
type SyncResultMsg struct {
	Source    string
	Error     error
	AuthError *AuthErrorMsg
	NewCount  int
}

// AuthErrorMsg is a tea.Msg sent when a source returns an authentication error.
type AuthErrorMsg struct {
	Source  string
	Message string
}

// fetchTimeout is the maximum time allowed for a single fetch operation.
const fetchTimeout = 30 * time.Second

// pollEntry is a registered feed with its own interval and trigger.
type pollEntry struct {
	name     string
	interval time.Duration
	fetch    func(ctx context.Context) (int, error)
	trigger  chan struct{}
}

// Poller periodically resynchronizes the coordinator with the backend
// and drains registered push sources into it.
type Poller struct {
	coordinator *Coordinator
	logger      *zap.Logger
	entries     []*pollEntry
	statuses    map[string]*SyncStatus
	resultCh    chan SyncResultMsg
	stopCh      chan struct{}
	wg          gosync.WaitGroup
	mu          gosync.Mutex
	running     bool
}

// NewPoller creates a Poller that resyncs with the backend every interval.
func NewPoller(c *Coordinator, interval time.Duration) *Poller {
	p := &Poller{
		coordinator: c,
		logger:      c.Logger(),
		statuses:    make(map[string]*SyncStatus),
		resultCh:    make(chan SyncResultMsg, 16),
		stopCh:      make(chan struct{}),
	}
	p.register(BackendSource, interval, p.fetchBackend)
	return p
}

// RegisterSource adds a push source polled on its own interval. It must
// be called before Start.
func (p *Poller) RegisterSource(src source.PushSource, interval time.Duration) {
	p.register(src.Name(), interval, func(ctx context.Context) (int, error) {
		return p.drainSource(ctx, src)
	})
}

func (p *Poller) register(
	name string,
	interval time.Duration,
	fetch func(ctx context.Context) (int, error),
) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if interval <= 0 {
		interval = 120 * time.Second
	}
	p.entries = append(p.entries, &pollEntry{
		name:     name,
		interval: interval,
		fetch:    fetch,
		trigger:  make(chan struct{}, 1),
	})
	p.statuses[name] = &SyncStatus{Source: name, State: SyncIdle}
}

// Start returns a tea.Cmd that starts all polling goroutines and
// subscribes to results. The returned command waits on the result
// channel and returns SyncResultMsg messages to the Bubble Tea runtime.
func (p *Poller) Start() tea.Cmd {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	entries := append([]*pollEntry(nil), p.entries...)
	p.mu.Unlock()

	for _, entry := range entries {
		p.wg.Add(1)
		go p.poll(entry)
	}

	return p.waitForResult()
}

// Stop halts all polling goroutines and waits for them to exit.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	close(p.stopCh)
	p.running = false
	p.mu.Unlock()

	p.wg.Wait()
}

// RefreshAll triggers an immediate poll of every feed.
func (p *Poller) RefreshAll() tea.Cmd {
	p.mu.Lock()
	entries := append([]*pollEntry(nil), p.entries...)
	p.mu.Unlock()

	for _, entry := range entries {
		select {
		case entry.trigger <- struct{}{}:
		default:
			// A refresh is already pending.
		}
	}
	return nil
}

// GetStatuses returns the current sync status of every feed, backend first.
func (p *Poller) GetStatuses() []SyncStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	statuses := make([]SyncStatus, 0, len(p.entries))
	for _, entry := range p.entries {
		statuses = append(statuses, *p.statuses[entry.name])
	}
	return statuses
}

// poll runs the polling loop for a single feed.
func (p *Poller) poll(entry *pollEntry) {
	defer p.wg.Done()

	ticker := time.NewTicker(entry.interval)
	defer ticker.Stop()

	p.runOnce(entry)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.runOnce(entry)
		case <-entry.trigger:
			p.runOnce(entry)
		}
	}
}

// runOnce performs a single fetch and reports the outcome.
func (p *Poller) runOnce(entry *pollEntry) {
	p.setStatus(entry.name, SyncRunning, nil)

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	newCount, err := entry.fetch(ctx)
	if err != nil {
		p.setStatus(entry.name, SyncError, err)
		p.logger.Warn("sync failed",
			zap.String("source", entry.name),
			zap.Error(err),
		)

		if backend.IsAuthError(err) || source.IsAuthError(err) {
			p.sendResult(SyncResultMsg{
				Source: entry.name,
				Error:  err,
				AuthError: &AuthErrorMsg{
					Source: entry.name,
					Message: fmt.Sprintf(
						"%s: authentication expired. Press 'c' to reconfigure.",
						entry.name,
					),
				},
			})
			return
		}

		p.sendResult(SyncResultMsg{Source: entry.name, Error: err})
		return
	}

	p.setStatus(entry.name, SyncIdle, nil)
	p.sendResult(SyncResultMsg{Source: entry.name, NewCount: newCount})
}

// fetchBackend refreshes the server items and counts unread ids that
// were not present before.
func (p *Poller) fetchBackend(ctx context.Context) (int, error) {
	before := p.coordinator.Store().Snapshot()
	known := make(map[string]bool, len(before.Items))
	for _, n := range before.Items {
		known[n.ID.String()] = true
	}

	if err := p.coordinator.Resync(ctx); err != nil {
		return 0, err
	}

	// The first fetch populates an empty store; nothing is "new" yet.
	if len(before.Items) == 0 {
		return 0, nil
	}

	added := 0
	for _, n := range p.coordinator.Store().Snapshot().Items {
		if n.ID.IsServer() && !known[n.ID.String()] && !n.Read {
			added++
		}
	}
	return added, nil
}

// drainSource pushes everything a source currently reports.
func (p *Poller) drainSource(ctx context.Context, src source.PushSource) (int, error) {
	items, err := src.Poll(ctx)
	if err != nil {
		return 0, err
	}

	added := 0
	for _, n := range items {
		if p.coordinator.Push(ctx, n) && !n.Read {
			added++
		}
	}
	return added, nil
}

// setStatus updates the sync status for a feed.
func (p *Poller) setStatus(name string, state SyncState, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	status, ok := p.statuses[name]
	if !ok {
		return
	}

	status.State = state
	status.Error = err
	if state == SyncIdle && err == nil {
		status.LastSync = time.Now()
	}
}

// sendResult sends a SyncResultMsg on the result channel without blocking.
func (p *Poller) sendResult(msg SyncResultMsg) {
	select {
	case p.resultCh <- msg:
	default:
		// Drop if channel is full to avoid blocking the poller
	}
}

// waitForResult returns a tea.Cmd that waits for the next result from
// the result channel.
func (p *Poller) waitForResult() tea.Cmd {
	return func() tea.Msg {
		result, ok := <-p.resultCh
		if !ok {
			return nil
		}
		return result
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next sync result.
// This should be called after processing a SyncResultMsg to continue
// listening for future results.
func (p *Poller) WaitForNextResult() tea.Cmd {
	return p.waitForResult()
}
