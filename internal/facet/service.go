package facet

import (
	"context"
	"fmt"
)

// Service coordinates the storage and provider boundaries to implement
// the three phases of a session: schema initialization, ingestion, and
// faceted querying. It serializes its own writes; the store and provider
// are the only sources of concurrency.
type Service struct {
	store    Store
	provider Provider
	logger   Logger
	clock    Clock
}

// NewService creates a Service with the provided dependencies.
func NewService(store Store, provider Provider, logger Logger, clock Clock) *Service {
	return &Service{
		store:    store,
		provider: provider,
		logger:   logger,
		clock:    clock,
	}
}

// Initialize destroys and rebuilds the schema, then seeds the fixed
// facet taxonomy. Must complete before Ingest.
func (s *Service) Initialize(ctx context.Context) error {
	if err := s.store.Reset(ctx); err != nil {
		return classify(ErrSchema, fmt.Errorf("resetting schema: %w", err))
	}
	if err := s.store.SeedFacets(ctx, FacetNames); err != nil {
		return classify(ErrSchema, fmt.Errorf("seeding facets: %w", err))
	}
	s.logger.Info("schema reset and seeded", "facets", len(FacetNames))
	return nil
}

// Ingest fetches a batch from the provider and writes it through the
// staged pipeline. Returns the number of users ingested.
func (s *Service) Ingest(ctx context.Context) (int, error) {
	started := s.clock.Now()

	batch, err := s.provider.Fetch(ctx)
	if err != nil {
		return 0, classify(ErrIngestion, fmt.Errorf("fetching users: %w", err))
	}

	pipeline := newIngestPipeline(s.store, s.logger)
	if err := pipeline.run(ctx, batch); err != nil {
		return 0, classify(ErrIngestion, err)
	}

	s.logger.Info("ingestion complete",
		"users", len(batch.Users),
		"elapsed", s.clock.Now().Sub(started).String())
	return len(batch.Users), nil
}

// Query derives the full view-model for the given selection of
// facet-value identifiers: the users matching every selected value, and
// every facet's values with match counts scoped to those users.
func (s *Service) Query(ctx context.Context, selection []int64) (View, error) {
	rows, err := s.store.ListUserRows(ctx, selection)
	if err != nil {
		return View{}, classify(ErrQuery, fmt.Errorf("listing user rows: %w", err))
	}

	users := ToUsers(rows)
	if len(rows) > 0 && len(users) == 0 {
		// Rows came back but no group had both required facets.
		return View{}, classify(ErrConversion, fmt.Errorf("%d rows produced no complete users", len(rows)))
	}

	// Counts are scoped to the filtered population, so the facet panel
	// always reflects the current selection.
	userIDs := make([]string, len(users))
	for i, u := range users {
		userIDs[i] = u.ID
	}

	facets, err := s.facetsWithCounts(ctx, rows, selection, userIDs)
	if err != nil {
		return View{}, err
	}

	return View{Users: users, Facets: facets}, nil
}

// facetsWithCounts builds the facet panel. The vocabulary must cover all
// values, not just those present in the filtered rows, so with an active
// selection the values are taken from an unfiltered join.
func (s *Service) facetsWithCounts(ctx context.Context, rows []UserRow, selection []int64, userIDs []string) ([]FacetWithCounts, error) {
	vocabRows := rows
	if len(selection) > 0 {
		all, err := s.store.ListUserRows(ctx, nil)
		if err != nil {
			return nil, classify(ErrQuery, fmt.Errorf("listing vocabulary rows: %w", err))
		}
		vocabRows = all
	}

	facets, err := WithCounts(ctx, s.store, ToFacets(vocabRows), userIDs)
	if err != nil {
		return nil, classify(ErrQuery, err)
	}
	return facets, nil
}

// CheckSchema reports whether the store's schema is present and current.
func (s *Service) CheckSchema() error {
	if err := s.store.CheckSchema(); err != nil {
		return classify(ErrSchema, err)
	}
	return nil
}
