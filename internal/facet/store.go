package facet

import "context"

// ValueCounter is the slice of Store the count aggregator needs.
type ValueCounter interface {
	// CountUsersForValue counts association rows for the given facet-value
	// identifier, restricted to the supplied user population.
	CountUsersForValue(ctx context.Context, valueID int64, userIDs []string) (int, error)
}

// Store is the embedded relational storage boundary. Writes are grouped
// into atomic units per method call: each method commits or fails as a
// whole. Implementations must not be called concurrently with ingestion.
type Store interface {
	ValueCounter

	// Reset drops the four tables if present and recreates them with
	// their foreign-key relationships. Recovery from any earlier partial
	// state goes through here; no incremental repair exists.
	Reset(ctx context.Context) error

	// CheckSchema verifies the schema is present and current.
	CheckSchema() error

	// SeedFacets inserts the fixed facet taxonomy.
	SeedFacets(ctx context.Context, names []string) error

	// InsertUsers inserts one row per user (display name, identifier).
	InsertUsers(ctx context.Context, users []User) error

	// InsertFacetValues inserts one row per distinct value per facet,
	// resolving the owning facet by name. A facet name that resolves to
	// zero rows is a hard error.
	InsertFacetValues(ctx context.Context, vocab []FacetVocabulary) error

	// InsertAssociations inserts one association per user per facet,
	// resolving the facet value by (facet name, value text). A lookup
	// that resolves to zero rows is a hard error: it means the values
	// stage did not run or the vocabulary is out of sync.
	InsertAssociations(ctx context.Context, users []User) error

	// ListUserRows performs the four-way join producing one row per
	// (user, facet) pair. A non-empty selection restricts the result to
	// users associated with every selected facet-value identifier
	// (intersection across values).
	ListUserRows(ctx context.Context, selection []int64) ([]UserRow, error)

	// Close closes the underlying connection.
	Close() error
}

// Provider is the external user-record source. Fetch returns the raw
// batch with stable identifiers already assigned and the facet-value
// vocabulary already derived.
type Provider interface {
	Fetch(ctx context.Context) (*Batch, error)
}
