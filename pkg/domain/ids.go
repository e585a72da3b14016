package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "sahaya/pkg/domain-errors"
)

// SessionID identifies a single citizen conversation session. Session IDs are
// minted by the service, never supplied by callers, so a parse failure at the
// HTTP boundary always means a bad or stale reference.
type SessionID uuid.UUID

// NewSessionID mints a fresh session identifier.
func NewSessionID() SessionID {
	return SessionID(uuid.New())
}

// ParseSessionID validates a session ID from an untrusted source.
func ParseSessionID(raw string) (SessionID, error) {
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return SessionID{}, dErrors.New(dErrors.CodeBadRequest, "invalid session id")
	}
	if parsed == uuid.Nil {
		return SessionID{}, dErrors.New(dErrors.CodeBadRequest, "session id must not be nil")
	}
	return SessionID(parsed), nil
}

func (id SessionID) String() string {
	return uuid.UUID(id).String()
}

// IsNil reports whether the ID is the zero value.
func (id SessionID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}

// SchemeID is the stable administrative code of a welfare scheme (for example
// "PM-KISAN"). Scheme codes are assigned by the administrative path and are
// immutable once assigned; they are not UUIDs because the source registries
// publish human-readable codes.
type SchemeID string

const maxSchemeIDLen = 64

// ParseSchemeID validates a scheme code from an untrusted source. Codes are
// upper-cased so lookups are case-insensitive at the boundary.
func ParseSchemeID(raw string) (SchemeID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "scheme id must not be empty")
	}
	if len(trimmed) > maxSchemeIDLen {
		return "", dErrors.New(dErrors.CodeBadRequest, "scheme id too long")
	}
	for _, r := range trimmed {
		if !isSchemeIDRune(r) {
			return "", dErrors.New(dErrors.CodeBadRequest, "scheme id may contain only letters, digits, '-' and '_'")
		}
	}
	return SchemeID(strings.ToUpper(trimmed)), nil
}

func isSchemeIDRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '-' || r == '_':
		return true
	}
	return false
}

func (id SchemeID) String() string {
	return string(id)
}
