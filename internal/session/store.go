package session

import (
	"context"
	"time"

	"sahaya/pkg/domain"
)

// Store is the session persistence contract. Implementations serialize
// mutations per session id; sessions are independent and never lock against
// each other.
//
// Stores return pkg/platform/sentinel errors: ErrNotFound for unknown or
// ended sessions, ErrConflict when an optimistic update loses a race.
type Store interface {
	Create(ctx context.Context, sess *Session) error

	// Get returns a copy of the session without touching last-activity.
	Get(ctx context.Context, id domain.SessionID) (*Session, error)

	// Update applies mutate under the session's write serialization and
	// stamps LastActivityAt. A session ended mid-call is reported as
	// ErrNotFound; the mutation never lands on erased state.
	Update(ctx context.Context, id domain.SessionID, now time.Time, mutate func(*Session) error) error

	// Delete erases the session's context and confirmation record and
	// invalidates the id. Idempotent: deleting an unknown id is ErrNotFound.
	Delete(ctx context.Context, id domain.SessionID) error

	// SweepExpired erases every session whose last activity is before
	// cutoff, returning how many were ended. Backends with native TTL expiry
	// may return 0.
	SweepExpired(ctx context.Context, cutoff time.Time) (int, error)
}
