package app

import (
	"context"
	"fmt"
	"os"

	"facets-go/internal/config"
	"facets-go/internal/database"
	"facets-go/internal/facet"
	"facets-go/internal/provider"
)

// FacetsApp is the application layer between the CLI and the facet
// service. It constructs all dependencies from config and manages the
// store lifecycle on Close.
type FacetsApp struct {
	cfg     *config.Config
	store   facet.Store
	service *facet.Service
	logFile *os.File
}

// NewFacetsApp creates a fully wired FacetsApp from the given config.
// command identifies the CLI command being run (e.g. "Refresh", "Show").
// The caller must call Close when done.
func NewFacetsApp(cfg *config.Config, command string) (*FacetsApp, error) {
	store, err := database.NewStoreFromConfig(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("creating store: %w", err)
	}

	logger, logFile, err := newLogger(cfg.LogDir, command)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	client := provider.NewClient(cfg.Provider.URL, cfg.Provider.Results, facet.UUIDGenerator{})
	svc := facet.NewService(store, client, &slogAdapter{l: logger}, facet.RealClock{})

	return &FacetsApp{
		cfg:     cfg,
		store:   store,
		service: svc,
		logFile: logFile,
	}, nil
}

// Refresh rebuilds the schema, seeds the taxonomy, and ingests a fresh
// batch from the provider. Returns the number of users ingested.
func (a *FacetsApp) Refresh(ctx context.Context) (int, error) {
	if err := a.service.Initialize(ctx); err != nil {
		return 0, err
	}
	return a.service.Ingest(ctx)
}

// Show derives the view-model for the given selection of facet-value
// identifiers. The schema must exist; run Refresh first.
func (a *FacetsApp) Show(ctx context.Context, selection []int64) (facet.View, error) {
	if err := a.service.CheckSchema(); err != nil {
		return facet.View{}, fmt.Errorf("store not initialized (run refresh first): %w", err)
	}
	return a.service.Query(ctx, selection)
}

// NewSession returns a Session over this app's service, for callers that
// own a long-lived screen with selection toggling.
func (a *FacetsApp) NewSession() *facet.Session {
	return facet.NewSession(a.service)
}

// Close closes the store and the log file.
func (a *FacetsApp) Close() error {
	var firstErr error
	if err := a.store.Close(); err != nil {
		firstErr = fmt.Errorf("closing store: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
