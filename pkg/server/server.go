// Package server provides the public entry point for initializing the
// Framer backend.
//
// This package exists in pkg/ (not internal/) so embedders can compose
// the full server with their own middleware:
//
//	srv, err := server.New(ctx)
//	http.ListenAndServe(":8080", srv.Handler)
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/framerhq/framer/internal/aigw"
	"github.com/framerhq/framer/internal/api"
	"github.com/framerhq/framer/internal/api/handlers"
	"github.com/framerhq/framer/internal/auth"
	"github.com/framerhq/framer/internal/besteffort"
	"github.com/framerhq/framer/internal/config"
	"github.com/framerhq/framer/internal/history"
	"github.com/framerhq/framer/internal/index"
	"github.com/framerhq/framer/internal/retention"
	"github.com/framerhq/framer/internal/store"
	"github.com/framerhq/framer/internal/telemetry"
	"github.com/framerhq/framer/internal/templates"
	"github.com/framerhq/framer/internal/vectorstore"
)

// Server holds the initialized Framer backend.
type Server struct {
	// Handler is the HTTP handler with all routes and middleware.
	Handler http.Handler

	// Store is the data store.
	Store store.Store

	// Config is the effective configuration.
	Config *config.Config

	// Port is the port the server should listen on.
	Port int

	// ShutdownFunc should be called on graceful shutdown. It stops the
	// retention janitor, flushes telemetry, and closes the index.
	ShutdownFunc func(context.Context) error
}

// New initializes all backend components and returns a ready Server.
func New(ctx context.Context) (*Server, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return NewWithConfig(ctx, cfg)
}

// NewWithConfig initializes the backend with an explicit configuration.
func NewWithConfig(ctx context.Context, cfg *config.Config) (*Server, error) {
	telemetryShutdown, err := telemetry.Init(cfg.Telemetry, cfg.Version)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	dataStore := store.NewMemoryStore(cfg.DataDir)
	log.Info().Str("data_dir", cfg.DataDir).Msg("Store initialized")

	provider, err := aigw.New(cfg.AI)
	if err != nil {
		return nil, fmt.Errorf("init ai provider: %w", err)
	}
	log.Info().Str("provider", cfg.AI.Provider).Str("model", cfg.AI.Model).Msg("AI provider initialized")

	vectors := vectorstore.NewEmbeddedStore()

	var hist *history.Tracker
	if cfg.DataDir != "" {
		// The tracker shares the data directory with the store snapshot,
		// so each commit captures data.json.
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("init frame history: %w", err)
		}
		hist, err = history.Open(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("init frame history: %w", err)
		}
		log.Info().Msg("Frame version history initialized")
	}

	var idx *index.Index
	if cfg.Index.Path != "" {
		idx, err = index.Open(cfg.Index.Path)
		if err != nil {
			return nil, fmt.Errorf("init frame index: %w", err)
		}
		besteffort.Do("frame index rebuild", func() error {
			return idx.Rebuild(ctx, dataStore)
		})
		log.Info().Str("path", cfg.Index.Path).Msg("Frame index initialized")
	}

	var catalog *templates.Catalog
	if cfg.DataDir != "" {
		catalog = templates.NewCatalog(filepath.Join(cfg.DataDir, "templates"))
		log.Info().Msg("Template catalog initialized")
	}

	janitor := retention.NewJanitor(dataStore, idx, cfg.Retention)
	if err := janitor.Start(); err != nil {
		return nil, fmt.Errorf("start retention janitor: %w", err)
	}
	log.Info().Str("schedule", cfg.Retention.Schedule).Msg("Retention janitor started")

	var resolver auth.Resolver
	if cfg.Identity.Endpoint != "" {
		resolver = auth.NewClient(cfg.Identity)
		log.Info().Str("endpoint", cfg.Identity.Endpoint).Msg("Identity resolution enabled")
	}

	h := handlers.New(dataStore, provider, vectors, hist, idx, catalog, cfg)
	router := api.NewRouter(h, resolver)

	shutdown := func(ctx context.Context) error {
		janitor.Stop()
		if idx != nil {
			besteffort.Do("frame index close", idx.Close)
		}
		return telemetryShutdown(ctx)
	}

	return &Server{
		Handler:      router,
		Store:        dataStore,
		Config:       cfg,
		Port:         cfg.Port,
		ShutdownFunc: shutdown,
	}, nil
}
