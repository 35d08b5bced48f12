// Package sync bridges the notification store to the dashboard backend
// and keeps it fresh in the background.
package sync

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/nhle/notifybell/internal/backend"
	"github.com/nhle/notifybell/internal/ident"
	"github.com/nhle/notifybell/internal/model"
	"github.com/nhle/notifybell/internal/notify"
)

// ErrNotFound is returned when an operation names an id the store does
// not hold.
var ErrNotFound = errors.New("notification not found")

// Backend is the remote side of the notification collection.
type Backend interface {
	ListNotifications(ctx context.Context) (*backend.ListResult, error)
	MarkRead(ctx context.Context, id model.ID) error
	MarkAllRead(ctx context.Context) error
}

// Cache persists the last known collection between runs.
type Cache interface {
	SaveSnapshot(ctx context.Context, items []model.Notification, unread int) error
	LoadSnapshot(ctx context.Context) ([]model.Notification, int, error)
}

// NavigateFunc receives the target of a clicked notification.
type NavigateFunc func(target string, n model.Notification)

// Coordinator applies backend results to the store and encodes the
// optimistic update policy.
type Coordinator struct {
	backend    Backend
	store      *notify.Store
	cache      Cache
	logger     *zap.Logger
	onNavigate NavigateFunc
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithCache persists a snapshot after every successful mutation.
func WithCache(cache Cache) Option {
	return func(c *Coordinator) { c.cache = cache }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithNavigator registers the navigation callback used by NavigateOnClick.
func WithNavigator(fn NavigateFunc) Option {
	return func(c *Coordinator) { c.onNavigate = fn }
}

// NewCoordinator creates a Coordinator over the given backend and store.
func NewCoordinator(b Backend, s *notify.Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		backend: b,
		store:   s,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store returns the store the coordinator mutates.
func (c *Coordinator) Store() *notify.Store { return c.store }

// Logger returns the coordinator's logger.
func (c *Coordinator) Logger() *zap.Logger { return c.logger }

// FetchAll replaces the collection with the backend's list. On failure
// the store is left untouched.
func (c *Coordinator) FetchAll(ctx context.Context) error {
	result, err := c.list(ctx)
	if err != nil {
		return err
	}
	c.store.ReplaceAll(result.Items, result.UnseenCount)
	c.fetched(ctx, result)
	return nil
}

// Resync refreshes the server items from the backend and keeps the
// client-id items pushed by other sources, in one store operation. On
// failure the store is left untouched.
func (c *Coordinator) Resync(ctx context.Context) error {
	result, err := c.list(ctx)
	if err != nil {
		return err
	}
	c.store.ReplaceServerItems(result.Items, result.UnseenCount)
	c.fetched(ctx, result)
	return nil
}

func (c *Coordinator) list(ctx context.Context) (*backend.ListResult, error) {
	result, err := c.backend.ListNotifications(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching notifications: %w", err)
	}
	if result.Shape == backend.Unrecognized {
		c.logger.Warn("unrecognized notification list shape, treating as empty")
	}
	return result, nil
}

func (c *Coordinator) fetched(ctx context.Context, result *backend.ListResult) {
	c.logger.Debug("notifications fetched",
		zap.Stringer("shape", result.Shape),
		zap.Int("items", len(result.Items)),
		zap.Int("unread", c.store.UnreadCount()),
	)
	c.persist(ctx)
}

// MarkOneRead confirms a read with the backend. Client ids resolve
// immediately without a request. On success the local read is applied
// again, which is a no-op when the caller already applied it. A failure
// leaves local state as it is.
func (c *Coordinator) MarkOneRead(ctx context.Context, id model.ID) error {
	if id.IsServer() {
		if err := c.backend.MarkRead(ctx, id); err != nil {
			return err
		}
	}
	if c.store.MarkOneReadLocal(id) {
		c.persist(ctx)
	}
	return nil
}

// ReadOne is the row-level flow: mark read locally, then confirm. The
// optimistic read is kept when confirmation fails.
func (c *Coordinator) ReadOne(ctx context.Context, id model.ID) error {
	if c.store.MarkOneReadLocal(id) {
		c.persist(ctx)
	}
	if err := c.MarkOneRead(ctx, id); err != nil {
		c.logger.Warn("mark read failed, keeping local state",
			zap.String("id", id.String()),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// MarkAllRead issues the single mark-all request and, on success, forces
// the store into the all-read state.
func (c *Coordinator) MarkAllRead(ctx context.Context) error {
	if err := c.backend.MarkAllRead(ctx); err != nil {
		return err
	}
	c.store.MarkAllReadLocal()
	c.persist(ctx)
	return nil
}

// ReadAll marks everything read locally, confirms with the backend and
// falls back to a resync when the confirmation fails.
func (c *Coordinator) ReadAll(ctx context.Context) error {
	c.store.MarkAllReadLocal()

	err := c.MarkAllRead(ctx)
	if err == nil {
		return nil
	}

	c.logger.Info("mark all read failed, resyncing", zap.Error(err))
	if fetchErr := c.Resync(ctx); fetchErr != nil {
		return errors.Join(err, fetchErr)
	}
	return err
}

// NavigateOnClick reports the navigation target of n, if any, and hands
// it to the registered navigator.
func (c *Coordinator) NavigateOnClick(n model.Notification) (string, bool) {
	target, ok := n.Target()
	if !ok {
		return "", false
	}
	if c.onNavigate != nil {
		c.onNavigate(target, n)
	}
	return target, true
}

// Open handles a click on a row: read it, then navigate. A failed read
// confirmation does not prevent navigation; the error is still returned.
func (c *Coordinator) Open(ctx context.Context, id model.ID) (string, error) {
	n, ok := c.store.Get(id)
	if !ok {
		return "", fmt.Errorf("opening %s: %w", id, ErrNotFound)
	}

	readErr := c.ReadOne(ctx, id)
	target, _ := c.NavigateOnClick(n)
	return target, readErr
}

// RemoveLocal drops a notification from the collection. The backend is
// not involved.
func (c *Coordinator) RemoveLocal(ctx context.Context, id model.ID) error {
	if !c.store.Remove(id) {
		return fmt.Errorf("removing %s: %w", id, ErrNotFound)
	}
	c.persist(ctx)
	return nil
}

// ClearAll empties the collection locally.
func (c *Coordinator) ClearAll(ctx context.Context) {
	c.store.Clear()
	c.persist(ctx)
}

// Push applies a live arrival. It reports whether a new visible item
// was added. A visible arrival without an id gets a client id, and a
// client-id item the user already read is not turned unread again.
func (c *Coordinator) Push(ctx context.Context, n model.Notification) bool {
	if n.ID.IsZero() && n.Type != model.TypeUnseenCount {
		n.ID = model.ParseID(ident.NewClientID("push"))
	}
	added := c.store.ApplyPushed(notify.EventFor(n))
	c.persist(ctx)
	return added
}

// Restore seeds the store from the cache. It is a no-op without a cache.
func (c *Coordinator) Restore(ctx context.Context) error {
	if c.cache == nil {
		return nil
	}
	items, unread, err := c.cache.LoadSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("restoring cached notifications: %w", err)
	}
	c.store.ReplaceAll(items, &unread)
	return nil
}

// persist saves the current snapshot. Cache failures are logged only.
func (c *Coordinator) persist(ctx context.Context) {
	if c.cache == nil {
		return
	}
	snap := c.store.Snapshot()
	if err := c.cache.SaveSnapshot(ctx, snap.Items, snap.UnreadCount); err != nil {
		c.logger.Warn("saving notification cache failed", zap.Error(err))
	}
}
