package catalogue

import (
	"context"

	"sahaya/pkg/domain"
)

// Store is the versioned scheme persistence contract. Implementations must
// guarantee that every returned record is a single, fully-written version
// (no torn reads), and that Append for a given (id, version) pair is
// first-writer-wins.
//
// Stores return pkg/platform/sentinel errors:
//   - ErrNotFound when the id or (id, version) does not exist
//   - ErrConflict when the version slot is already taken
//   - ErrUnavailable (wrapped) when the backend cannot be reached
type Store interface {
	// GetCurrent returns the highest-version record for the id. Unless
	// includeInactive is set, an id whose current version is inactive is
	// reported as ErrNotFound.
	GetCurrent(ctx context.Context, id domain.SchemeID, includeInactive bool) (*SchemeRecord, error)

	// GetVersion is an exact historical lookup, available regardless of
	// status.
	GetVersion(ctx context.Context, id domain.SchemeID, version int64) (*SchemeRecord, error)

	// ListActive returns the current version of every active scheme, ordered
	// by category then resolved English name. The list is not an atomic
	// snapshot across the catalogue, but each record is internally
	// consistent.
	ListActive(ctx context.Context) ([]*SchemeRecord, error)

	// Append inserts record as a new immutable version. The record's Version
	// must be exactly one past the current highest for its id (or 1 for a
	// new id); otherwise ErrConflict.
	Append(ctx context.Context, record *SchemeRecord) error

	// AppendFlag attaches an advisory review flag to a scheme id.
	AppendFlag(ctx context.Context, id domain.SchemeID, flag Flag) error

	// ListFlags returns the flags recorded for a scheme id, oldest first.
	ListFlags(ctx context.Context, id domain.SchemeID) ([]Flag, error)
}
