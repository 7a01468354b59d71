package database

import (
	"context"
	"database/sql"
	"fmt"

	"facets-go/internal/database/migrations"
	"facets-go/internal/facet"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore implements the facet.Store interface using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore creates a new SQLite store connection.
// path can be a file path or ":memory:" for an in-memory database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// NewSQLiteStoreFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly configured.
func NewSQLiteStoreFromDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, path: ""}
}

// OpenConnection opens and configures a SQLite connection.
// Exported for tools and tests that need a properly configured connection.
func OpenConnection(path string) (*sql.DB, error) {
	// Foreign keys go in the DSN so the pragma applies to every connection
	// the pool opens, not just the first (SQLite default is OFF per connection).
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Cap the pool at one connection. Each new ":memory:" connection is a
	// distinct empty database, so overlapping queries on a larger pool
	// would land on a database without the schema.
	db.SetMaxOpenConns(1)

	return db, nil
}

// Reset drops all tables and recreates the four-table schema.
func (s *SQLiteStore) Reset(ctx context.Context) error {
	if err := migrations.Reset(s.db); err != nil {
		return fmt.Errorf("resetting schema: %w", err)
	}
	return nil
}

// CheckSchema verifies the schema is present and at the current version.
func (s *SQLiteStore) CheckSchema() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// SeedFacets inserts the fixed facet taxonomy in one transaction.
func (s *SQLiteStore) SeedFacets(ctx context.Context, names []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	for _, name := range names {
		if _, err := tx.ExecContext(ctx, "INSERT INTO facets (name) VALUES (?)", name); err != nil {
			return fmt.Errorf("seeding facet %q: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// InsertUsers inserts one row per user in one transaction.
func (s *SQLiteStore) InsertUsers(ctx context.Context, users []facet.User) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	for _, u := range users {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO users (name, user_id) VALUES (?, ?)",
			u.DisplayName(), u.ID)
		if err != nil {
			return fmt.Errorf("inserting user %s: %w", u.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// InsertFacetValues inserts one row per distinct value per facet in one
// transaction, resolving the owning facet by name. A facet name that
// resolves to zero rows aborts the unit.
func (s *SQLiteStore) InsertFacetValues(ctx context.Context, vocab []facet.FacetVocabulary) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	for _, v := range vocab {
		for _, value := range v.Values {
			res, err := tx.ExecContext(ctx, `
				INSERT INTO facet_values (facet_id, facet_value)
				SELECT facet_id, ? FROM facets WHERE name = ?`,
				value, v.Facet)
			if err != nil {
				return fmt.Errorf("inserting value %q for facet %q: %w", value, v.Facet, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("checking insert of value %q: %w", value, err)
			}
			if n == 0 {
				return fmt.Errorf("facet %q not seeded, cannot insert value %q", v.Facet, value)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// InsertAssociations inserts, for every user and every facet, the
// association row resolving the facet value by (facet name, value text).
// The values stage must have committed first; a lookup resolving to zero
// rows is a hard error, never a silent drop.
func (s *SQLiteStore) InsertAssociations(ctx context.Context, users []facet.User) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	for _, u := range users {
		for _, a := range u.FacetAssignments() {
			res, err := tx.ExecContext(ctx, `
				INSERT INTO user_facets (user_id, facet_value_id)
				SELECT ?, fv.facet_value_id
				FROM facet_values fv
				JOIN facets f ON fv.facet_id = f.facet_id
				WHERE f.name = ? AND fv.facet_value = ?`,
				u.ID, a.Facet, a.Value)
			if err != nil {
				return fmt.Errorf("associating user %s with %s=%q: %w", u.ID, a.Facet, a.Value, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("checking association for user %s: %w", u.ID, err)
			}
			if n == 0 {
				return fmt.Errorf("no facet value for %s=%q, cannot associate user %s", a.Facet, a.Value, u.ID)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// ListUserRows performs the four-way join producing one row per
// (user, facet) pair. A non-empty selection adds one membership
// sub-condition per selected facet-value identifier, so results are the
// intersection across all selected values.
func (s *SQLiteStore) ListUserRows(ctx context.Context, selection []int64) ([]facet.UserRow, error) {
	filter, args := buildSelectionFilter(selection)
	query := `
		SELECT u.name, u.user_id, f.name, fv.facet_value, fv.facet_value_id
		FROM users u
		JOIN user_facets uf ON u.user_id = uf.user_id
		JOIN facet_values fv ON uf.facet_value_id = fv.facet_value_id
		JOIN facets f ON fv.facet_id = f.facet_id` +
		filter + `
		ORDER BY u.id, f.facet_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying user rows: %w", err)
	}
	defer rows.Close()

	var result []facet.UserRow
	for rows.Next() {
		var r facet.UserRow
		if err := rows.Scan(&r.UserName, &r.UserID, &r.FacetName, &r.FacetValue, &r.FacetValueID); err != nil {
			return nil, fmt.Errorf("scanning user row: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading user rows: %w", err)
	}
	return result, nil
}

// CountUsersForValue counts association rows for the given facet-value
// identifier restricted to the supplied user population. An empty
// population always counts zero.
func (s *SQLiteStore) CountUsersForValue(ctx context.Context, valueID int64, userIDs []string) (int, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}

	args := make([]any, 0, len(userIDs)+1)
	args = append(args, valueID)
	for _, id := range userIDs {
		args = append(args, id)
	}

	query := `
		SELECT COUNT(*)
		FROM user_facets uf
		WHERE uf.facet_value_id = ?
		AND uf.user_id IN (` + placeholders(len(userIDs)) + `)`

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting users for value %d: %w", valueID, err)
	}
	return count, nil
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time check that SQLiteStore implements facet.Store
var _ facet.Store = (*SQLiteStore)(nil)
