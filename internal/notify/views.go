package notify

import (
	"slices"

	"github.com/nhle/notifybell/internal/model"
)

// NewestFirst returns a copy of items ordered by creation time, newest
// first. Items without a parseable timestamp keep their relative order
// after the dated ones.
func NewestFirst(items []model.Notification) []model.Notification {
	out := slices.Clone(items)
	slices.SortStableFunc(out, func(a, b model.Notification) int {
		ta, okA := a.CreatedTime()
		tb, okB := b.CreatedTime()
		switch {
		case okA && okB:
			return tb.Compare(ta)
		case okA:
			return -1
		case okB:
			return 1
		default:
			return 0
		}
	})
	return out
}

// LatestUnread returns up to n unread items, newest first. This backs
// the bell dropdown.
func LatestUnread(items []model.Notification, n int) []model.Notification {
	if n <= 0 {
		return nil
	}
	unread := make([]model.Notification, 0, n)
	for _, item := range NewestFirst(items) {
		if item.Read {
			continue
		}
		unread = append(unread, item)
		if len(unread) == n {
			break
		}
	}
	return unread
}

// Unread filters items down to the unread ones, preserving order.
func Unread(items []model.Notification) []model.Notification {
	out := make([]model.Notification, 0, len(items))
	for _, item := range items {
		if !item.Read {
			out = append(out, item)
		}
	}
	return out
}
