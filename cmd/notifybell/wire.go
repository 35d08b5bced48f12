package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/notifybell/internal/backend"
	"github.com/nhle/notifybell/internal/credential"
	"github.com/nhle/notifybell/internal/logger"
	"github.com/nhle/notifybell/internal/model"
	"github.com/nhle/notifybell/internal/notify"
	"github.com/nhle/notifybell/internal/store"
	appsync "github.com/nhle/notifybell/internal/sync"
)

// env holds everything a command needs, built from the config file.
type env struct {
	cfg         *model.AppConfig
	logger      *zap.Logger
	creds       *credential.Store
	client      *backend.Client
	cache       *store.SQLiteStore
	coordinator *appsync.Coordinator
}

// newEnv loads configuration and wires the coordinator. withCache
// controls whether the snapshot cache is opened.
func newEnv(withCache bool) (*env, error) {
	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	creds := credential.NewStore()
	client := backend.NewClient(
		cfg.Backend.BaseURL,
		credential.NewTokenSource(creds, cfg.Backend.TokenKey),
		backend.WithTimeout(time.Duration(cfg.Backend.TimeoutSec)*time.Second),
	)

	e := &env{cfg: cfg, logger: log, creds: creds, client: client}

	opts := []appsync.Option{
		appsync.WithLogger(log),
		appsync.WithNavigator(func(target string, n model.Notification) {
			log.Info("navigate",
				zap.String("id", n.ID.String()),
				zap.String("target", target),
			)
		}),
	}
	if withCache && cfg.Sync.CacheEnabled {
		cache, err := openCache(cfg.Sync.CachePath)
		if err != nil {
			log.Warn("notification cache unavailable", zap.Error(err))
		} else {
			e.cache = cache
			opts = append(opts, appsync.WithCache(cache))
		}
	}

	e.coordinator = appsync.NewCoordinator(client, notify.NewStore(), opts...)
	return e, nil
}

func openCache(path string) (*store.SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	return store.NewSQLiteStore(path)
}

// Close releases the cache and flushes the logger.
func (e *env) Close() {
	if e.cache != nil {
		if err := e.cache.Close(); err != nil {
			e.logger.Warn("closing cache", zap.Error(err))
		}
	}
	_ = e.logger.Sync()
}

// requestContext bounds a one-shot CLI request.
func (e *env) requestContext() (context.Context, context.CancelFunc) {
	timeout := time.Duration(e.cfg.Backend.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	// Leave room for 429 retries on top of the per-request timeout.
	return context.WithTimeout(context.Background(), 2*timeout)
}

func (e *env) requireBaseURL() error {
	if e.cfg.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url is not set; run notifybell and press c, or edit %s", configPath)
	}
	return nil
}
