package facet

import (
	"context"
	"fmt"
)

// Ingestion runs as three atomic units in a fixed order: users, then
// facet values, then associations. The order is a correctness invariant:
// association inserts resolve facet values by
// (facet name, value text) lookup, so the values stage must have
// committed first. Each stage checks its precondition explicitly rather
// than relying on call order.

type ingestStage int

const (
	stageUsers ingestStage = iota
	stageValues
	stageAssociations
)

func (s ingestStage) String() string {
	switch s {
	case stageUsers:
		return "users"
	case stageValues:
		return "values"
	case stageAssociations:
		return "associations"
	}
	return fmt.Sprintf("ingestStage(%d)", int(s))
}

// ingestPipeline tracks which stages have completed for one ingestion.
// A pipeline is single-use: build one per batch.
type ingestPipeline struct {
	store     Store
	logger    Logger
	completed map[ingestStage]bool
}

func newIngestPipeline(store Store, logger Logger) *ingestPipeline {
	return &ingestPipeline{
		store:     store,
		logger:    logger,
		completed: make(map[ingestStage]bool),
	}
}

// require fails unless every stage before s has completed.
func (p *ingestPipeline) require(s ingestStage) error {
	for prior := stageUsers; prior < s; prior++ {
		if !p.completed[prior] {
			return fmt.Errorf("stage %q requires stage %q completed", s, prior)
		}
	}
	return nil
}

func (p *ingestPipeline) runUsers(ctx context.Context, batch *Batch) error {
	if err := p.require(stageUsers); err != nil {
		return err
	}
	if err := p.store.InsertUsers(ctx, batch.Users); err != nil {
		return fmt.Errorf("inserting users: %w", err)
	}
	p.completed[stageUsers] = true
	p.logger.Debug("ingest stage complete", "stage", stageUsers.String(), "users", len(batch.Users))
	return nil
}

func (p *ingestPipeline) runValues(ctx context.Context, batch *Batch) error {
	if err := p.require(stageValues); err != nil {
		return err
	}
	if err := p.store.InsertFacetValues(ctx, batch.Vocabulary); err != nil {
		return fmt.Errorf("inserting facet values: %w", err)
	}
	p.completed[stageValues] = true
	p.logger.Debug("ingest stage complete", "stage", stageValues.String(), "facets", len(batch.Vocabulary))
	return nil
}

func (p *ingestPipeline) runAssociations(ctx context.Context, batch *Batch) error {
	if err := p.require(stageAssociations); err != nil {
		return err
	}
	if err := p.store.InsertAssociations(ctx, batch.Users); err != nil {
		return fmt.Errorf("inserting associations: %w", err)
	}
	p.completed[stageAssociations] = true
	p.logger.Debug("ingest stage complete", "stage", stageAssociations.String())
	return nil
}

// run executes all stages in order. A failed stage aborts the pipeline;
// the store is then in a state not guaranteed consistent, and the
// recovery path is the next session's Reset.
func (p *ingestPipeline) run(ctx context.Context, batch *Batch) error {
	if err := p.runUsers(ctx, batch); err != nil {
		return err
	}
	if err := p.runValues(ctx, batch); err != nil {
		return err
	}
	return p.runAssociations(ctx, batch)
}
