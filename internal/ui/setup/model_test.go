package setup

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/99designs/keyring"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/notifybell/internal/credential"
	"github.com/nhle/notifybell/internal/keys"
	"github.com/nhle/notifybell/internal/model"
)

func newTestSetup(t *testing.T, cfg model.AppConfig) (Model, *credential.Store, string) {
	t.Helper()
	creds := credential.NewStoreWithKeyring(keyring.NewArrayKeyring(nil))
	path := filepath.Join(t.TempDir(), "config.yaml")
	return New(cfg, path, creds, keys.DefaultKeyMap(), 100, 30), creds, path
}

func baseConfig() model.AppConfig {
	var cfg model.AppConfig
	cfg.Backend.BaseURL = "https://villas.example.com/api"
	cfg.Backend.TokenKey = model.DefaultTokenKey
	cfg.Inbox = model.InboxConfig{
		Host:     "imap.example.com",
		Port:     "993",
		Username: "front@villas.example.com",
		Mailbox:  "INBOX",
		TLS:      true,
	}
	return cfg
}

// findValidateResult runs the commands of a batch until one yields a
// ValidateResultMsg.
func findValidateResult(t *testing.T, cmd tea.Cmd) ValidateResultMsg {
	t.Helper()
	require.NotNil(t, cmd)
	msg := cmd()
	if res, ok := msg.(ValidateResultMsg); ok {
		return res
	}
	batch, ok := msg.(tea.BatchMsg)
	require.True(t, ok, "unexpected message %T", msg)
	for _, c := range batch {
		if c == nil {
			continue
		}
		if res, ok := c().(ValidateResultMsg); ok {
			return res
		}
	}
	t.Fatal("no validation result in batch")
	return ValidateResultMsg{}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"", true},
		{"   ", true},
		{"ftp://villas.example.com", true},
		{"https://", true},
		{"villas.example.com/api", true},
		{"http://localhost:8000/api", false},
		{" https://villas.example.com/api ", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			err := validateURL(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePort(t *testing.T) {
	for _, bad := range []string{"", "0", "-1", "70000", "abc"} {
		assert.Error(t, validatePort(bad), bad)
	}
	for _, ok := range []string{"993", " 143 ", "65535"} {
		assert.NoError(t, validatePort(ok), ok)
	}
}

func TestValidateRequired(t *testing.T) {
	check := validateRequired("IMAP host")

	err := check("  ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "IMAP host is required")
	assert.NoError(t, check("imap.example.com"))
}

func TestSave_BackendTokenGoesToKeyring(t *testing.T) {
	m, creds, path := newTestSetup(t, baseConfig())
	m.form.baseURL = "https://other.example.com/api/"
	m.form.token = "tok-123"

	m, cmd := m.submitBackend()
	require.NotNil(t, cmd)
	assert.Equal(t, ModeValidating, m.Mode())

	m, cmd = m.Update(ValidateResultMsg{Target: "backend", Detail: "0 notifications"})
	require.NotNil(t, cmd)
	saved, ok := cmd().(savedInternalMsg)
	require.True(t, ok)
	require.NoError(t, saved.err)
	assert.True(t, saved.restart)

	m, cmd = m.Update(saved)
	assert.Equal(t, ModeValidateResult, m.Mode())
	require.NotNil(t, cmd)
	done, ok := cmd().(SavedMsg)
	require.True(t, ok)
	assert.True(t, done.Restart)
	assert.Equal(t, "https://other.example.com/api", done.Config.Backend.BaseURL)

	token, err := creds.Get(model.DefaultTokenKey)
	require.NoError(t, err)
	assert.Equal(t, "tok-123", token)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "tok-123")

	loaded, err := model.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://other.example.com/api", loaded.Backend.BaseURL)
}

func TestSave_InboxPasswordKeepsBackendToken(t *testing.T) {
	cfg := baseConfig()
	m, creds, _ := newTestSetup(t, cfg)
	require.NoError(t, creds.Set(model.DefaultTokenKey, "backend-token"))

	// Unchanged disabled inbox with a new password saves without a
	// connection check.
	m.form.enabled = false
	m.form.imapHost = cfg.Inbox.Host
	m.form.imapPort = cfg.Inbox.Port
	m.form.username = cfg.Inbox.Username
	m.form.mailbox = cfg.Inbox.Mailbox
	m.form.tls = cfg.Inbox.TLS
	m.form.password = "imap-secret"

	m, cmd := m.submitInbox()
	require.NotNil(t, cmd)
	saved, ok := cmd().(savedInternalMsg)
	require.True(t, ok)
	require.NoError(t, saved.err)
	assert.False(t, saved.restart)

	password, err := creds.Get(credential.InboxPasswordKey)
	require.NoError(t, err)
	assert.Equal(t, "imap-secret", password)

	token, err := creds.Get(model.DefaultTokenKey)
	require.NoError(t, err)
	assert.Equal(t, "backend-token", token)

	m, _ = m.Update(saved)
	assert.Equal(t, ModeValidateResult, m.Mode())
}

func TestSave_InboxChangeRequestsRestart(t *testing.T) {
	m, creds, _ := newTestSetup(t, baseConfig())
	m.form.enabled = false
	m.form.imapHost = "mail.villas.example.com"
	m.form.imapPort = "993"
	m.form.username = "front@villas.example.com"

	_, cmd := m.submitInbox()
	require.NotNil(t, cmd)
	saved := cmd().(savedInternalMsg)
	require.NoError(t, saved.err)
	assert.True(t, saved.restart)
	assert.Equal(t, "INBOX", saved.cfg.Inbox.Mailbox)

	_, err := creds.Get(credential.InboxPasswordKey)
	assert.ErrorIs(t, err, credential.ErrNotFound)
}

func TestValidateResult_FailureDoesNotSave(t *testing.T) {
	m, creds, path := newTestSetup(t, baseConfig())
	m.form.baseURL = "https://villas.example.com/api"
	m.form.token = "tok-123"
	m, _ = m.submitBackend()

	m, cmd := m.Update(ValidateResultMsg{Target: "backend", Err: errors.New("connection refused")})
	assert.Nil(t, cmd)
	assert.Equal(t, ModeValidateResult, m.Mode())
	assert.Contains(t, m.View(), "connection refused")

	_, err := creds.Get(model.DefaultTokenKey)
	assert.ErrorIs(t, err, credential.ErrNotFound)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestValidateResult_IgnoredOutsideValidation(t *testing.T) {
	m, _, _ := newTestSetup(t, baseConfig())

	m, cmd := m.Update(ValidateResultMsg{Target: "backend", Detail: "late"})
	assert.Nil(t, cmd)
	assert.Equal(t, ModeOverview, m.Mode())
}

func TestValidating_EscDropsPending(t *testing.T) {
	m, _, _ := newTestSetup(t, baseConfig())
	m.form.baseURL = "https://villas.example.com/api"
	m.form.token = "tok-123"
	m, _ = m.submitBackend()

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ModeOverview, m.Mode())
	assert.Nil(t, m.pending)
	assert.Empty(t, m.secret)
	assert.Nil(t, m.save())
}

func TestSubmitBackend_EmptyTokenUsesStored(t *testing.T) {
	auth := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case auth <- r.Header.Get("Authorization"):
		default:
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	cfg := baseConfig()
	m, creds, _ := newTestSetup(t, cfg)
	require.NoError(t, creds.Set(model.DefaultTokenKey, "stored-token"))
	m.form.baseURL = srv.URL
	m.form.token = ""

	m, cmd := m.submitBackend()
	assert.Empty(t, m.secret)

	res := findValidateResult(t, cmd)
	require.NoError(t, res.Err)
	assert.Equal(t, "backend", res.Target)
	assert.Equal(t, "Bearer stored-token", <-auth)
}

func TestOverview_OpensForms(t *testing.T) {
	m, _, _ := newTestSetup(t, baseConfig())

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("b")})
	assert.Equal(t, ModeFormBackend, next.Mode())
	assert.Equal(t, "https://villas.example.com/api", next.form.baseURL)

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("i")})
	assert.Equal(t, ModeFormInbox, next.Mode())
	assert.Equal(t, "imap.example.com", next.form.imapHost)
}
