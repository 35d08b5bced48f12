package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nhle/notifybell/internal/backend"
	"github.com/nhle/notifybell/internal/model"
	"github.com/nhle/notifybell/internal/notify"
	"github.com/nhle/notifybell/internal/source"
)

type fakeSource struct {
	items []model.Notification
	err   error
}

func (f *fakeSource) Name() string { return "inbox" }

func (f *fakeSource) ValidateConnection(context.Context) (string, error) {
	return "ok", nil
}

func (f *fakeSource) Poll(context.Context) ([]model.Notification, error) {
	return f.items, f.err
}

func nextResult(t *testing.T, p *Poller) SyncResultMsg {
	t.Helper()
	done := make(chan SyncResultMsg, 1)
	go func() {
		done <- p.WaitForNextResult()().(SyncResultMsg)
	}()
	select {
	case msg := <-done:
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for sync result")
		return SyncResultMsg{}
	}
}

func TestPoller_BackendAndPushSource(t *testing.T) {
	b := new(MockBackend)
	b.On("ListNotifications", mock.Anything).Return(&backend.ListResult{
		Shape: backend.RawArray,
		Items: []model.Notification{n("1", false)},
	}, nil)

	s := notify.NewStore()
	c := NewCoordinator(b, s)
	p := NewPoller(c, time.Hour)
	p.RegisterSource(&fakeSource{items: []model.Notification{n("mail-7", false)}}, time.Hour)

	require.NotNil(t, p.Start())
	defer p.Stop()

	results := map[string]SyncResultMsg{}
	for len(results) < 2 {
		msg := nextResult(t, p)
		results[msg.Source] = msg
	}

	assert.NoError(t, results[BackendSource].Error)
	assert.NoError(t, results["inbox"].Error)
	assert.Equal(t, 1, results["inbox"].NewCount)

	_, ok := s.Get(model.ParseID("mail-7"))
	assert.True(t, ok)

	statuses := p.GetStatuses()
	require.Len(t, statuses, 2)
	assert.Equal(t, BackendSource, statuses[0].Source)
}

func TestPoller_AuthErrorsAreFlagged(t *testing.T) {
	b := new(MockBackend)
	b.On("ListNotifications", mock.Anything).Return(nil, &backend.RequestError{
		Method:     "GET",
		Path:       "/notifications/list/",
		StatusCode: 401,
		Message:    "unauthorized",
		Err:        &backend.AuthError{Message: "rejected"},
	})

	c := NewCoordinator(b, notify.NewStore())
	p := NewPoller(c, time.Hour)
	p.RegisterSource(&fakeSource{err: &source.AuthError{Source: "inbox", Message: "bad password"}}, time.Hour)

	p.Start()
	defer p.Stop()

	for i := 0; i < 2; i++ {
		msg := nextResult(t, p)
		require.Error(t, msg.Error)
		require.NotNil(t, msg.AuthError, msg.Source)
	}

	for _, st := range p.GetStatuses() {
		assert.Equal(t, SyncError, st.State)
	}
}

func TestPoller_RefreshAll(t *testing.T) {
	b := new(MockBackend)
	b.On("ListNotifications", mock.Anything).Return(nil, errors.New("offline"))

	p := NewPoller(NewCoordinator(b, notify.NewStore()), time.Hour)
	p.Start()
	defer p.Stop()

	nextResult(t, p)
	p.RefreshAll()
	msg := nextResult(t, p)

	assert.Equal(t, BackendSource, msg.Source)
	assert.Error(t, msg.Error)
}

// signalSource reports when it has been polled.
type signalSource struct {
	fakeSource
	polled chan struct{}
}

func (f *signalSource) Poll(ctx context.Context) ([]model.Notification, error) {
	defer close(f.polled)
	return f.fakeSource.Poll(ctx)
}

func TestPoller_PushDuringSlowResyncSurvives(t *testing.T) {
	src := &signalSource{
		fakeSource: fakeSource{items: []model.Notification{n("mail-7", false)}},
		polled:     make(chan struct{}),
	}

	b := new(MockBackend)
	b.On("ListNotifications", mock.Anything).
		Run(func(mock.Arguments) { <-src.polled }).
		Return(&backend.ListResult{
			Shape: backend.RawArray,
			Items: []model.Notification{n("1", false)},
		}, nil)

	s := notify.NewStore()
	p := NewPoller(NewCoordinator(b, s), time.Hour)
	p.RegisterSource(src, time.Hour)

	p.Start()
	defer p.Stop()

	results := map[string]SyncResultMsg{}
	for len(results) < 2 {
		msg := nextResult(t, p)
		results[msg.Source] = msg
	}
	require.NoError(t, results[BackendSource].Error)

	_, ok := s.Get(model.ParseID("mail-7"))
	assert.True(t, ok, "inbox item pushed while the list request was in flight")
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 2, s.UnreadCount())
}
