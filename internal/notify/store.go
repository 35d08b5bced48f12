// Package notify holds the authoritative in-memory notification
// collection and its unread counter.
package notify

import (
	"slices"
	"sync"

	"github.com/nhle/notifybell/internal/model"
)

// Snapshot is an immutable copy of the collection.
type Snapshot struct {
	Items       []model.Notification
	UnreadCount int
}

// Store owns the notification list and the unread counter. All methods
// are safe for concurrent use and atomic relative to each other.
type Store struct {
	mu     sync.Mutex
	items  []model.Notification
	unread int

	subscribers map[string]chan Snapshot
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		items:       []model.Notification{},
		subscribers: make(map[string]chan Snapshot),
	}
}

// ReplaceAll discards the current items and installs items in order.
// A non-nil, non-negative serverUnseen is trusted over the local count.
func (s *Store) ReplaceAll(items []model.Notification, serverUnseen *int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = make([]model.Notification, 0, len(items))
	for _, n := range items {
		s.items = append(s.items, n.Clone())
	}
	if serverUnseen != nil && *serverUnseen >= 0 {
		s.unread = *serverUnseen
	} else {
		s.unread = countUnread(s.items)
	}
	s.publishLocked()
}

// ReplaceServerItems installs a backend list while keeping the client-id
// items already held, which the backend can never return. Kept items
// stay in front, in their current order, and their unread ones are added
// to the server count.
func (s *Store) ReplaceServerItems(items []model.Notification, serverUnseen *int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]model.Notification, 0, len(items)+len(s.items))
	localUnread := 0
	for _, n := range s.items {
		if n.ID.IsServer() {
			continue
		}
		next = append(next, n)
		if !n.Read {
			localUnread++
		}
	}
	for _, n := range items {
		if !n.ID.IsServer() {
			continue
		}
		next = append(next, n.Clone())
	}
	s.items = next

	if serverUnseen != nil && *serverUnseen >= 0 {
		s.unread = *serverUnseen + localUnread
	} else {
		s.unread = countUnread(s.items)
	}
	s.publishLocked()
}

// Add routes a pushed record through EventFor and applies it.
func (s *Store) Add(n model.Notification) {
	s.Apply(EventFor(n))
}

// Apply applies a classified event. A CountUpdate only sets the counter;
// a NotificationEvent is prepended, or merged into the existing record
// with the same id. It reports whether a new item was inserted.
func (s *Store) Apply(ev Event) bool {
	return s.apply(ev, false)
}

// ApplyPushed is Apply for arrivals from client-side sources. Those
// sources cannot see local reads, so a client-id record that is already
// read stays read.
func (s *Store) ApplyPushed(ev Event) bool {
	return s.apply(ev, true)
}

func (s *Store) apply(ev Event, keepLocalRead bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	inserted := false
	switch e := ev.(type) {
	case CountUpdate:
		if e.Count == nil {
			return false
		}
		s.unread = max(0, *e.Count)
	case NotificationEvent:
		inserted = s.addLocked(e.Notification, keepLocalRead)
	default:
		return false
	}
	s.publishLocked()
	return inserted
}

func (s *Store) addLocked(n model.Notification, keepLocalRead bool) bool {
	idx := s.indexLocked(n.ID)
	if idx < 0 {
		s.items = slices.Insert(s.items, 0, n.Clone())
		if !n.Read {
			s.unread++
		}
		return true
	}

	existing := &s.items[idx]
	wasRead := existing.Read
	if keepLocalRead && wasRead && !existing.ID.IsServer() {
		n.Read = true
	}
	merge(existing, n)

	switch {
	case !wasRead && existing.Read:
		s.decrementLocked()
	case wasRead && !existing.Read:
		s.unread++
	}
	return false
}

// merge copies the populated fields of in onto dst. Data keys are merged
// and Read is always taken from in.
func merge(dst *model.Notification, in model.Notification) {
	if in.Type != "" {
		dst.Type = in.Type
	}
	if in.Title != "" {
		dst.Title = in.Title
	}
	if in.Body != "" {
		dst.Body = in.Body
	}
	if in.CreatedAt != "" {
		dst.CreatedAt = in.CreatedAt
	}
	if len(in.Data) > 0 {
		if dst.Data == nil {
			dst.Data = make(map[string]any, len(in.Data))
		}
		for k, v := range in.Data {
			dst.Data[k] = v
		}
	}
	dst.Read = in.Read
}

// MarkOneReadLocal marks the item read if it exists and is unread.
// It reports whether anything changed.
func (s *Store) MarkOneReadLocal(id model.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 || s.items[idx].Read {
		return false
	}
	s.items[idx].Read = true
	s.decrementLocked()
	s.publishLocked()
	return true
}

// MarkAllReadLocal marks every item read and zeroes the counter.
func (s *Store) MarkAllReadLocal() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		s.items[i].Read = true
	}
	s.unread = 0
	s.publishLocked()
}

// Remove deletes the item with id. It reports whether an item was removed.
func (s *Store) Remove(id model.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return false
	}
	if !s.items[idx].Read {
		s.decrementLocked()
	}
	s.items = slices.Delete(s.items, idx, idx+1)
	s.publishLocked()
	return true
}

// SetUnreadCount forces the counter to max(0, n).
func (s *Store) SetUnreadCount(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.unread = max(0, n)
	s.publishLocked()
}

// Clear empties the collection.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = []model.Notification{}
	s.unread = 0
	s.publishLocked()
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// UnreadCount returns the current counter.
func (s *Store) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread
}

// Len returns the number of items.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Get returns a copy of the item with id.
func (s *Store) Get(id model.ID) (model.Notification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return model.Notification{}, false
	}
	return s.items[idx].Clone(), true
}

// Subscribe returns a channel that receives the latest snapshot after
// every mutation. Slow readers only ever see the newest snapshot.
// Subscribing again under the same name replaces the old channel.
func (s *Store) Subscribe(name string) <-chan Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.subscribers[name]; ok {
		close(old)
	}
	ch := make(chan Snapshot, 1)
	s.subscribers[name] = ch
	return ch
}

// Unsubscribe closes and removes the named subscription.
func (s *Store) Unsubscribe(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ch, ok := s.subscribers[name]; ok {
		close(ch)
		delete(s.subscribers, name)
	}
}

func (s *Store) publishLocked() {
	if len(s.subscribers) == 0 {
		return
	}
	snap := s.snapshotLocked()
	for _, ch := range s.subscribers {
		// Drop a stale pending snapshot so the send never blocks.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

func (s *Store) snapshotLocked() Snapshot {
	items := make([]model.Notification, len(s.items))
	for i, n := range s.items {
		items[i] = n.Clone()
	}
	return Snapshot{Items: items, UnreadCount: s.unread}
}

func (s *Store) indexLocked(id model.ID) int {
	return slices.IndexFunc(s.items, func(n model.Notification) bool {
		return n.ID.String() == id.String()
	})
}

func (s *Store) decrementLocked() {
	if s.unread > 0 {
		s.unread--
	}
}

func countUnread(items []model.Notification) int {
	count := 0
	for _, n := range items {
		if !n.Read {
			count++
		}
	}
	return count
}
