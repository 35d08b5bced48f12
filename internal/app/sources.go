package app

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/notifybell/internal/credential"
	"github.com/nhle/notifybell/internal/model"
	"github.com/nhle/notifybell/internal/source/email"
	appsync "github.com/nhle/notifybell/internal/sync"
)

// RegisterSources registers every enabled push source with the poller
// and returns how many were registered. Credentials are loaded from the
// keyring; a source without credentials is skipped. Call it before the
// poller starts. A nil cursors store makes push sources start from
// their lookback window on every run.
func RegisterSources(
	p *appsync.Poller,
	cfg model.AppConfig,
	creds *credential.Store,
	cursors email.CursorStore,
	logger *zap.Logger,
) int {
	registered := 0

	if adapter := createInboxAdapter(cfg.Inbox, creds, logger); adapter != nil {
		if cursors != nil {
			adapter.WithCursorStore(cursors)
		}
		interval := time.Duration(cfg.Inbox.PollIntervalSec) * time.Second
		p.RegisterSource(adapter, interval)
		registered++
	}

	return registered
}

// createInboxAdapter builds the inquiry mailbox adapter, loading the
// IMAP password from the keyring.
func createInboxAdapter(
	cfg model.InboxConfig,
	creds *credential.Store,
	logger *zap.Logger,
) *email.Adapter {
	if !cfg.Enabled || cfg.Host == "" {
		return nil
	}

	password, err := creds.Get(credential.InboxPasswordKey)
	if err != nil {
		if errors.Is(err, credential.ErrNotFound) {
			logger.Warn("skipping inbox source: password not stored",
				zap.String("host", cfg.Host),
				zap.String("username", cfg.Username),
			)
		} else {
			logger.Warn("skipping inbox source: keyring unavailable", zap.Error(err))
		}
		return nil
	}

	return email.NewAdapter(
		cfg.Host, cfg.Port, cfg.Username, password, cfg.Mailbox, cfg.TLS,
	)
}
