package backend

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/notifybell/internal/model"
)

type countingTokens struct {
	token string
	calls atomic.Int32
}

func (c *countingTokens) Token() (string, error) {
	c.calls.Add(1)
	return c.token, nil
}

func TestClient_ListNotifications(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/notifications/list/", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"results": {"unseen_count": 2, "notifications": [{"id": 1, "title": "A"}]}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/api/", StaticToken("secret"))
	got, err := c.ListNotifications(context.Background())
	require.NoError(t, err)

	assert.Equal(t, EnvelopeWithResults, got.Shape)
	require.Len(t, got.Items, 1)
	require.NotNil(t, got.UnseenCount)
	assert.Equal(t, 2, *got.UnseenCount)
}

func TestClient_TokenReadPerRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tokens := &countingTokens{token: "t"}
	c := NewClient(srv.URL, tokens)

	require.NoError(t, c.MarkAllRead(context.Background()))
	require.NoError(t, c.MarkAllRead(context.Background()))
	assert.Equal(t, int32(2), tokens.calls.Load())
}

func TestClient_EmptyTokenSendsEmptyHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"detail": "Authentication credentials were not provided."}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, StaticToken(""))
	_, err := c.ListNotifications(context.Background())
	require.Error(t, err)

	assert.True(t, IsAuthError(err))
	assert.Equal(t, http.StatusUnauthorized, StatusCode(err))
}

func TestClient_MarkRead(t *testing.T) {
	var gotPath, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotMethod = r.URL.Path, r.Method
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, StaticToken("t"))
	require.NoError(t, c.MarkRead(context.Background(), model.ParseID("42")))

	assert.Equal(t, http.MethodGet, gotMethod)
	assert.Equal(t, "/notifications/list/42/", gotPath)
}

func TestClient_MarkAllRead(t *testing.T) {
	var gotPath, gotMethod string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotMethod = r.URL.Path, r.Method
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, StaticToken("t"))
	require.NoError(t, c.MarkAllRead(context.Background()))

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/notifications/mark-all-as-read/", gotPath)
	assert.Empty(t, gotBody)
}

func TestClient_NonSuccessCarriesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, "not found")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, StaticToken("t"))
	err := c.MarkRead(context.Background(), model.ParseID("7"))
	require.Error(t, err)

	var reqErr *RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, http.StatusNotFound, reqErr.StatusCode)
	assert.Equal(t, "not found", reqErr.Message)
	assert.False(t, IsAuthError(err))
}

func TestClient_EmptyErrorBodyUsesDefaultMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, StaticToken("t"))
	err := c.MarkAllRead(context.Background())

	var reqErr *RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, "request failed with status 500", reqErr.Message)
}

func TestClient_RetriesOnRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, StaticToken("t"))
	got, err := c.ListNotifications(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(2), calls.Load())
	assert.Empty(t, got.Items)
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(url, StaticToken("t"), WithMaxRetries(0))
	_, err := c.ListNotifications(context.Background())
	require.Error(t, err)

	var reqErr *RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, 0, reqErr.StatusCode)
}
