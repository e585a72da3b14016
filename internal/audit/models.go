package audit

import (
	"context"
	"time"
)

// Event captures an administrative or privacy-relevant action. Keep it
// transport-agnostic so sinks (in-memory, Kafka) can fan out.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	SchemeID  string    `json:"scheme_id,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

// Actions recorded by this service. Scheme actions come from the
// administrative path; session actions exist so privacy erasure leaves a
// trace (the trace carries no attribute values).
const (
	ActionSchemeUpserted       = "scheme_version_created"
	ActionStatusChanged        = "scheme_status_changed"
	ActionSchemeReinstated     = "scheme_reinstated"
	ActionInconsistencyFlagged = "scheme_inconsistency_flagged"
	ActionSessionEnded         = "session_ended"
	ActionSessionsSwept        = "sessions_swept"
)

// Sink persists audit events.
type Sink interface {
	Append(ctx context.Context, event Event) error
}
