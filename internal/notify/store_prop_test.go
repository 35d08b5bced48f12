package notify

import (
	"strconv"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/nhle/notifybell/internal/model"
)

const (
	opAddUnread = iota
	opAddRead
	opMarkOne
	opMarkAll
	opRemove
	opCount
)

// OpsStrategy encodes an operation and a target id in each int.
func OpsStrategy() gopter.Gen {
	return gen.SliceOf(gen.IntRange(0, opCount*8-1))
}

func apply(s *Store, code int) {
	id := model.ParseID(strconv.Itoa(code / opCount))
	switch code % opCount {
	case opAddUnread:
		s.Add(model.Notification{ID: id, Type: "t", Title: "t"})
	case opAddRead:
		s.Add(model.Notification{ID: id, Type: "t", Title: "t", Read: true})
	case opMarkOne:
		s.MarkOneReadLocal(id)
	case opMarkAll:
		s.MarkAllReadLocal()
	case opRemove:
		s.Remove(id)
	}
}

func TestStoreUnreadInvariantProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("unread count tracks unread items", prop.ForAll(
		func(ops []int) bool {
			s := NewStore()
			for _, code := range ops {
				apply(s, code)
				snap := s.Snapshot()
				if snap.UnreadCount < 0 || snap.UnreadCount != unreadOf(snap) {
					return false
				}
			}
			return true
		},
		OpsStrategy(),
	))

	properties.Property("ids stay unique", prop.ForAll(
		func(ops []int) bool {
			s := NewStore()
			for _, code := range ops {
				apply(s, code)
			}
			seen := map[string]bool{}
			for _, n := range s.Snapshot().Items {
				if seen[n.ID.String()] {
					return false
				}
				seen[n.ID.String()] = true
			}
			return true
		},
		OpsStrategy(),
	))

	properties.Property("mark one read twice equals once", prop.ForAll(
		func(ops []int, target int) bool {
			s := NewStore()
			for _, code := range ops {
				apply(s, code)
			}
			id := model.ParseID(strconv.Itoa(target))
			s.MarkOneReadLocal(id)
			once := s.Snapshot()
			s.MarkOneReadLocal(id)
			twice := s.Snapshot()
			return once.UnreadCount == twice.UnreadCount &&
				len(once.Items) == len(twice.Items)
		},
		OpsStrategy(),
		gen.IntRange(0, 7),
	))

	properties.TestingRun(t)
}
