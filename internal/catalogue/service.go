package catalogue

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"sahaya/internal/audit"
	"sahaya/internal/platform/metrics"
	"sahaya/pkg/domain"
	dErrors "sahaya/pkg/domain-errors"
	"sahaya/pkg/platform/sentinel"
	"sahaya/pkg/requestcontext"
)

// Service is the administrative and read surface of the scheme catalogue. It
// owns validation, the copy-on-write version sequence, and the status
// transition table; the store only persists immutable versions.
type Service struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
	audit   *audit.Publisher
}

func NewService(store Store, logger *slog.Logger, m *metrics.Metrics, publisher *audit.Publisher) *Service {
	return &Service{store: store, logger: logger, metrics: m, audit: publisher}
}

// UpsertInput carries field overrides for a new scheme version. Nil / empty
// fields keep the previous version's value; for a first version, Name and
// either criteria or OpenToAll are required.
type UpsertInput struct {
	Name        LocalizedText
	Description LocalizedText
	Category    string
	Criteria    *EligibilityCriteria
	Benefits    []Benefit
	Documents   []string
	Deadlines   []Deadline

	// ExpectedVersion, when non-zero, makes the write conditional on the
	// current version: a stale value fails fast with version_conflict before
	// reaching the store.
	ExpectedVersion int64
}

// Upsert creates version N+1 from version N plus the supplied overrides, or
// version 1 for a new id. It never mutates an existing version.
func (s *Service) Upsert(ctx context.Context, id domain.SchemeID, input UpsertInput) (int64, error) {
	current, err := s.store.GetCurrent(ctx, id, true)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return 0, dErrors.Wrap(dErrors.CodeCatalogueUnavailable, "read current scheme version", err)
	}

	var next *SchemeRecord
	if current == nil {
		next = &SchemeRecord{ID: id, Status: StatusActive, Version: 1}
	} else {
		if input.ExpectedVersion != 0 && input.ExpectedVersion != current.Version {
			s.metrics.IncVersionConflicts()
			return 0, dErrors.New(dErrors.CodeVersionConflict, "scheme was modified since the base version was read")
		}
		next = current.Clone()
		next.Version = current.Version + 1
	}
	applyOverrides(next, input)
	next.UpdatedAt = requestcontext.Now(ctx)

	if err := validateRecord(next); err != nil {
		return 0, err
	}

	if err := s.store.Append(ctx, next); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			s.metrics.IncVersionConflicts()
			return 0, dErrors.New(dErrors.CodeVersionConflict, "concurrent write won the version sequence, retry with a fresh read")
		}
		return 0, dErrors.Wrap(dErrors.CodeCatalogueUnavailable, "append scheme version", err)
	}

	s.metrics.IncSchemesUpserted()
	s.audit.Emit(ctx, audit.Event{
		Action:   audit.ActionSchemeUpserted,
		SchemeID: id.String(),
		Detail:   "version " + strconv.FormatInt(next.Version, 10),
	})
	s.logger.InfoContext(ctx, "scheme version created",
		"request_id", requestcontext.RequestID(ctx),
		"scheme_id", id,
		"version", next.Version,
	)
	return next.Version, nil
}

// SetStatus transitions a scheme's lifecycle state by appending a new version
// with the changed status. Allowed: active<->suspended, active->inactive,
// suspended->inactive. inactive->active is rejected; re-launch needs a new id.
func (s *Service) SetStatus(ctx context.Context, id domain.SchemeID, to Status) error {
	current, err := s.store.GetCurrent(ctx, id, true)
	if err != nil {
		return s.translateRead(err, "read current scheme version")
	}
	if current.Status == to {
		return nil
	}
	if !CanTransition(current.Status, to) {
		return dErrors.New(dErrors.CodeInvalidTransition,
			"status transition "+string(current.Status)+" -> "+string(to)+" is not allowed")
	}

	next := current.Clone()
	next.Status = to
	next.Version = current.Version + 1
	next.UpdatedAt = requestcontext.Now(ctx)

	if err := s.store.Append(ctx, next); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			s.metrics.IncVersionConflicts()
			return dErrors.New(dErrors.CodeVersionConflict, "concurrent write won the version sequence, retry with a fresh read")
		}
		return dErrors.Wrap(dErrors.CodeCatalogueUnavailable, "append scheme version", err)
	}

	action := audit.ActionStatusChanged
	if current.Status == StatusSuspended && to == StatusActive {
		// Reinstatement is the one backward transition and must leave a trace.
		action = audit.ActionSchemeReinstated
	}
	s.audit.Emit(ctx, audit.Event{
		Action:   action,
		SchemeID: id.String(),
		Detail:   string(current.Status) + " -> " + string(to),
	})
	s.logger.InfoContext(ctx, "scheme status changed",
		"request_id", requestcontext.RequestID(ctx),
		"scheme_id", id,
		"from", current.Status,
		"to", to,
	)
	return nil
}

// FlagInconsistency appends an advisory administrative-review flag. The
// scheme stays queryable and assessable; flags are not a soft delete.
func (s *Service) FlagInconsistency(ctx context.Context, id domain.SchemeID, description string) error {
	if description == "" {
		return dErrors.New(dErrors.CodeValidation, "flag description must not be empty")
	}
	err := s.store.AppendFlag(ctx, id, Flag{
		Description: description,
		FlaggedAt:   requestcontext.Now(ctx),
	})
	if err != nil {
		return s.translateRead(err, "append inconsistency flag")
	}
	s.metrics.IncInconsistencyFlags()
	s.audit.Emit(ctx, audit.Event{
		Action:   audit.ActionInconsistencyFlagged,
		SchemeID: id.String(),
		Detail:   description,
	})
	return nil
}

// GetCurrent returns the current version. By default inactive schemes are
// hidden; historical lookups go through GetVersion.
func (s *Service) GetCurrent(ctx context.Context, id domain.SchemeID, includeInactive bool) (*SchemeRecord, error) {
	record, err := s.store.GetCurrent(ctx, id, includeInactive)
	if err != nil {
		return nil, s.translateRead(err, "read current scheme version")
	}
	return record, nil
}

// GetVersion is an exact historical lookup, always available regardless of
// status.
func (s *Service) GetVersion(ctx context.Context, id domain.SchemeID, version int64) (*SchemeRecord, error) {
	record, err := s.store.GetVersion(ctx, id, version)
	if err != nil {
		return nil, s.translateRead(err, "read scheme version")
	}
	return record, nil
}

// ListActive returns the current version of every active scheme in the
// stable category-then-name order.
func (s *Service) ListActive(ctx context.Context) ([]*SchemeRecord, error) {
	records, err := s.store.ListActive(ctx)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeCatalogueUnavailable, "list active schemes", err)
	}
	return records, nil
}

// ListFlags returns the advisory flags for a scheme.
func (s *Service) ListFlags(ctx context.Context, id domain.SchemeID) ([]Flag, error) {
	flags, err := s.store.ListFlags(ctx, id)
	if err != nil {
		return nil, s.translateRead(err, "list scheme flags")
	}
	return flags, nil
}

func (s *Service) translateRead(err error, op string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "scheme not found")
	}
	return dErrors.Wrap(dErrors.CodeCatalogueUnavailable, op, err)
}

func applyOverrides(record *SchemeRecord, input UpsertInput) {
	if input.Name != nil {
		record.Name = input.Name.clone()
	}
	if input.Description != nil {
		record.Description = input.Description.clone()
	}
	if input.Category != "" {
		record.Category = input.Category
	}
	if input.Criteria != nil {
		record.Criteria = input.Criteria.clone()
	}
	if input.Benefits != nil {
		record.Benefits = append([]Benefit(nil), input.Benefits...)
	}
	if input.Documents != nil {
		record.Documents = append([]string(nil), input.Documents...)
	}
	if input.Deadlines != nil {
		record.Deadlines = append([]Deadline(nil), input.Deadlines...)
	}
}

func validateRecord(record *SchemeRecord) error {
	if record.Name.Resolve("") == "" {
		return dErrors.New(dErrors.CodeValidation, "scheme name is required")
	}
	if record.Criteria.IsEmpty() && !record.Criteria.OpenToAll {
		return dErrors.New(dErrors.CodeValidation, "scheme needs at least one criterion or the open_to_all flag")
	}
	for _, p := range record.Criteria.Predicates {
		if p.Field == "" {
			return dErrors.New(dErrors.CodeValidation, "predicate field is required")
		}
		switch p.Op {
		case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe, OpIn:
		default:
			return dErrors.New(dErrors.CodeValidation, "unknown predicate operator: "+string(p.Op))
		}
	}
	for _, b := range record.Benefits {
		switch b.Type {
		case BenefitFinancial, BenefitSubsidy, BenefitLoan, BenefitService:
		default:
			return dErrors.New(dErrors.CodeValidation, "unknown benefit type: "+string(b.Type))
		}
	}
	return nil
}
