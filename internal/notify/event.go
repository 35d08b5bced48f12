package notify

import "github.com/nhle/notifybell/internal/model"

// Event is a pushed record classified at the transport boundary: either
// a count-only control message or a visible notification.
type Event interface {
	isEvent()
}

// CountUpdate carries a fresh unread tally from the backend. Count is
// nil when the control message had no usable count.
type CountUpdate struct {
	Count *int
}

// NotificationEvent carries a visible notification.
type NotificationEvent struct {
	Notification model.Notification
}

func (CountUpdate) isEvent()       {}
func (NotificationEvent) isEvent() {}

// EventFor classifies a pushed record once.
func EventFor(n model.Notification) Event {
	if n.Type == model.TypeUnseenCount {
		var update CountUpdate
		if count, ok := n.Count(); ok {
			update.Count = &count
		}
		return update
	}
	return NotificationEvent{Notification: n}
}
