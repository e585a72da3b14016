package session

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"sahaya/internal/audit"
	"sahaya/internal/platform/metrics"
	"sahaya/pkg/domain"
	dErrors "sahaya/pkg/domain-errors"
	"sahaya/pkg/platform/sentinel"
	"sahaya/pkg/requestcontext"
)

// Service owns the session lifecycle and the sensitive-attribute confirmation
// gate. Attribute writes have overwrite semantics: last write wins per
// attribute.
type Service struct {
	store       Store
	policy      *SensitivityPolicy
	idleTimeout time.Duration
	logger      *slog.Logger
	metrics     *metrics.Metrics
	audit       *audit.Publisher
}

func NewService(store Store, policy *SensitivityPolicy, idleTimeout time.Duration, logger *slog.Logger, m *metrics.Metrics, publisher *audit.Publisher) *Service {
	return &Service{
		store:       store,
		policy:      policy,
		idleTimeout: idleTimeout,
		logger:      logger,
		metrics:     m,
		audit:       publisher,
	}
}

// IdleTimeout exposes the configured inactivity window for the sweeper.
func (s *Service) IdleTimeout() time.Duration {
	return s.idleTimeout
}

// Create starts a new session on first interaction.
func (s *Service) Create(ctx context.Context, preferredLanguage string) (domain.SessionID, error) {
	now := requestcontext.Now(ctx)
	sess := &Session{
		ID:                domain.NewSessionID(),
		PreferredLanguage: preferredLanguage,
		Context:           make(UserContext),
		Confirmations:     make(map[string]time.Time),
		CreatedAt:         now,
		LastActivityAt:    now,
	}
	if err := s.store.Create(ctx, sess); err != nil {
		return domain.SessionID{}, dErrors.Wrap(dErrors.CodeInternal, "create session", err)
	}
	s.metrics.IncSessionsCreated()
	s.logger.InfoContext(ctx, "session created",
		"request_id", requestcontext.RequestID(ctx),
		"session_id", sess.ID,
	)
	return sess.ID, nil
}

// SetAttribute stores or overwrites one declared attribute. A sensitive
// attribute without confirmed=true is not stored; the caller receives
// requires_confirmation and re-invokes with explicit confirmation. The gate
// fires before any store access, so a rejected write observably mutates
// nothing.
func (s *Service) SetAttribute(ctx context.Context, id domain.SessionID, name string, value any, confirmed bool) error {
	if name == "" {
		return dErrors.New(dErrors.CodeBadRequest, "attribute name must not be empty")
	}
	normalized, err := normalizeValue(value)
	if err != nil {
		return err
	}

	if s.policy.IsSensitive(name) && !confirmed {
		s.metrics.IncConfirmationRejections()
		return dErrors.New(dErrors.CodeRequiresConfirmation,
			"attribute "+name+" is sensitive and requires explicit confirmation")
	}

	now := requestcontext.Now(ctx)
	err = s.store.Update(ctx, id, now, func(sess *Session) error {
		sess.Context[name] = normalized
		if confirmed {
			sess.Confirmations[name] = now
		}
		return nil
	})
	if err != nil {
		return s.translate(err, "set attribute")
	}
	return nil
}

// GetContext returns a copy of the session's declared attributes. Unknown or
// ended sessions are not_found, never silently recreated.
func (s *Service) GetContext(ctx context.Context, id domain.SessionID) (UserContext, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return sess.Context, nil
}

// Get returns a copy of the full session record.
func (s *Service) Get(ctx context.Context, id domain.SessionID) (*Session, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, s.translate(err, "get session")
	}
	return sess, nil
}

// End irreversibly erases the session's context and confirmation record. The
// id is invalid for further reads and writes.
func (s *Service) End(ctx context.Context, id domain.SessionID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return s.translate(err, "end session")
	}
	s.metrics.IncSessionsEnded()
	s.audit.Emit(ctx, audit.Event{
		Action:    audit.ActionSessionEnded,
		SessionID: id.String(),
	})
	s.logger.InfoContext(ctx, "session ended",
		"request_id", requestcontext.RequestID(ctx),
		"session_id", id,
	)
	return nil
}

// SweepExpired ends every session idle past the configured threshold. Side
// effect per session is identical to End.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-s.idleTimeout)
	swept, err := s.store.SweepExpired(ctx, cutoff)
	if err != nil {
		return 0, dErrors.Wrap(dErrors.CodeInternal, "sweep expired sessions", err)
	}
	if swept > 0 {
		s.metrics.AddSessionsSwept(swept)
		s.audit.Emit(ctx, audit.Event{
			Action: audit.ActionSessionsSwept,
			Detail: strconv.Itoa(swept) + " sessions erased",
		})
		s.logger.InfoContext(ctx, "idle sessions swept", "count", swept)
	}
	return swept, nil
}

func (s *Service) translate(err error, op string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "session not found")
	}
	return dErrors.Wrap(dErrors.CodeInternal, op, err)
}

// normalizeValue restricts attribute values to the supported scalar types and
// collapses numerics to float64 so criteria comparison has one numeric type.
func normalizeValue(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, dErrors.New(dErrors.CodeBadRequest, "attribute value must not be null")
	case bool, string:
		return v, nil
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return nil, dErrors.New(dErrors.CodeBadRequest, "attribute value must be a number, string, or boolean")
	}
}
