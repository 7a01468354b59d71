package facet

import (
	"errors"
	"fmt"
)

// Failure categories surfaced to the session orchestrator. Lower layers
// wrap their causes with one of these so callers can classify with
// errors.Is while the full cause chain stays intact.
var (
	// ErrSchema indicates a DDL failure while resetting or seeding the schema.
	ErrSchema = errors.New("schema operation failed")

	// ErrIngestion indicates a provider fetch failure or a write failure
	// in any ingestion stage.
	ErrIngestion = errors.New("ingestion failed")

	// ErrQuery indicates malformed filter input or a storage read failure.
	ErrQuery = errors.New("query failed")

	// ErrConversion indicates join rows with an unexpected shape, such as
	// every user group missing a required facet.
	ErrConversion = errors.New("row conversion failed")
)

// classify attaches a failure category to err. Returns nil for a nil err.
func classify(kind error, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", kind, err)
}
