package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/zhubert/parley/internal/app"
	"github.com/zhubert/parley/internal/auth"
	"github.com/zhubert/parley/internal/blob"
	"github.com/zhubert/parley/internal/config"
	"github.com/zhubert/parley/internal/logger"
	"github.com/zhubert/parley/internal/relay"
	"github.com/zhubert/parley/internal/store"
)

// tokenTTL is how long a session token stays valid.
const tokenTTL = 30 * 24 * time.Hour

// openBackend wires the collaborators for the configured mode. The returned
// func releases them.
func openBackend(ctx context.Context, cfg *config.Config) (app.Backend, func(), error) {
	if ctx == nil {
		ctx = context.Background()
	}
	log := logger.ComponentLogger("Backend")

	switch cfg.GetBackend() {
	case config.BackendRemote:
		url := cfg.GetServerURL()
		dialCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		client, err := relay.Dial(dialCtx, url)
		if err != nil {
			return app.Backend{}, nil, fmt.Errorf("could not reach %s: %w", url, err)
		}
		log.Info("connected to relay", "url", url)
		return app.Backend{Auth: client, Docs: client, Blobs: client}, func() { client.Close() }, nil

	default:
		st, svc, blobs, err := openLocal(cfg, "")
		if err != nil {
			return app.Backend{}, nil, err
		}
		log.Info("using embedded store", "dir", cfg.GetDataDir())
		return app.Backend{Auth: auth.NewClient(svc), Docs: st, Blobs: blobs}, func() { st.Close() }, nil
	}
}

// openLocal opens the embedded store, the auth service over it and the blob
// directory. baseURL is empty for the TUI and the relay's address for serve.
func openLocal(cfg *config.Config, baseURL string) (*store.Store, *auth.Service, *blob.FileStore, error) {
	dataDir := cfg.GetDataDir()
	driver, dsn := cfg.GetStore()
	st, err := store.Open(driver, dsn, dataDir)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("error opening store: %w", err)
	}

	secret, created := cfg.EnsureJWTSecret()
	if created {
		if err := cfg.Save(); err != nil {
			st.Close()
			return nil, nil, nil, fmt.Errorf("error saving config: %w", err)
		}
	}
	svc := auth.NewService(st, auth.NewTokens(secret, tokenTTL))
	blobs := blob.NewFileStore(filepath.Join(dataDir, "blobs"), baseURL)
	return st, svc, blobs, nil
}
