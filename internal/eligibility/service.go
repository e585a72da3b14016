package eligibility

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"sahaya/internal/catalogue"
	"sahaya/internal/platform/metrics"
	"sahaya/internal/session"
	"sahaya/pkg/domain"
	dErrors "sahaya/pkg/domain-errors"
	"sahaya/pkg/requestcontext"
)

// SessionReader is the slice of the session service the engine needs.
type SessionReader interface {
	Get(ctx context.Context, id domain.SessionID) (*session.Session, error)
}

// CatalogueReader is the slice of the catalogue the engine needs. The
// catalogue may be slow or unavailable; a failed bulk read aborts the whole
// assessment rather than reporting eligibility against a truncated list.
type CatalogueReader interface {
	ListActive(ctx context.Context) ([]*catalogue.SchemeRecord, error)
	GetCurrent(ctx context.Context, id domain.SchemeID, includeInactive bool) (*catalogue.SchemeRecord, error)
}

// InconsistencyFlagger receives schemes whose rule sets could not be
// evaluated.
type InconsistencyFlagger interface {
	FlagInconsistency(ctx context.Context, id domain.SchemeID, description string) error
}

// Service evaluates session contexts against the catalogue, ranks results,
// explains single-scheme decisions, and proposes alternatives.
type Service struct {
	sessions        SessionReader
	catalogue       CatalogueReader
	flagger         InconsistencyFlagger
	ranker          *Ranker
	confidenceFloor float64
	alternativesN   int
	logger          *slog.Logger
	metrics         *metrics.Metrics
}

// evalParallelism bounds the per-scheme evaluation fan-out.
const evalParallelism = 8

func NewService(
	sessions SessionReader,
	cat CatalogueReader,
	flagger InconsistencyFlagger,
	ranker *Ranker,
	confidenceFloor float64,
	alternativesN int,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Service {
	if alternativesN <= 0 {
		alternativesN = 3
	}
	return &Service{
		sessions:        sessions,
		catalogue:       cat,
		flagger:         flagger,
		ranker:          ranker,
		confidenceFloor: confidenceFloor,
		alternativesN:   alternativesN,
		logger:          logger,
		metrics:         m,
	}
}

// Assess evaluates the session's context against every active scheme and
// returns ranked results. Results are computed fresh on every call.
func (s *Service) Assess(ctx context.Context, sessionID domain.SessionID) ([]Result, error) {
	start := time.Now()

	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	schemes, err := s.catalogue.ListActive(ctx)
	if err != nil {
		s.metrics.IncCatalogueReadFailures()
		if dErrors.HasCode(err, dErrors.CodeCatalogueUnavailable) {
			return nil, err
		}
		return nil, dErrors.Wrap(dErrors.CodeCatalogueUnavailable, "list active schemes", err)
	}

	results := make([]Result, 0, len(schemes))
	var mu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(evalParallelism)

	for _, record := range schemes {
		record := record
		group.Go(func() error {
			eval, err := Evaluate(record, sess.Context, s.confidenceFloor)
			if err != nil {
				// Malformed rule set: isolate the scheme and flag it for
				// administrative review, never abort the assessment.
				s.flagMalformed(groupCtx, record.ID, err)
				return nil
			}
			mu.Lock()
			results = append(results, toResult(record, eval, sess.PreferredLanguage))
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	s.ranker.Sort(results)

	s.metrics.IncAssessments()
	s.metrics.ObserveAssessment(time.Since(start).Seconds())
	s.logger.InfoContext(ctx, "eligibility assessed",
		"request_id", requestcontext.RequestID(ctx),
		"session_id", sessionID,
		"schemes", len(schemes),
		"results", len(results),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return results, nil
}

// Explanation is the per-criterion breakdown for one scheme.
type Explanation struct {
	SchemeID            domain.SchemeID   `json:"scheme_id"`
	SchemeName          string            `json:"scheme_name"`
	Eligible            bool              `json:"eligible"`
	Confidence          float64           `json:"confidence"`
	MissingRequirements []string          `json:"missing_requirements,omitempty"`
	Criteria            []CriterionResult `json:"criteria"`
}

// Explain re-runs the single-scheme evaluation and reports, per criterion,
// whether it passed, failed, or was unknown, plus the attribute value used.
// Inactive schemes have no current version to explain, so they are not_found.
func (s *Service) Explain(ctx context.Context, sessionID domain.SessionID, schemeID domain.SchemeID) (*Explanation, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	record, err := s.catalogue.GetCurrent(ctx, schemeID, false)
	if err != nil {
		return nil, err
	}
	eval, err := Evaluate(record, sess.Context, s.confidenceFloor)
	if err != nil {
		s.flagMalformed(ctx, record.ID, err)
		return nil, dErrors.Wrap(dErrors.CodeValidation, "scheme rule set cannot be evaluated", err)
	}
	return &Explanation{
		SchemeID:            record.ID,
		SchemeName:          record.Name.Resolve(sess.PreferredLanguage),
		Eligible:            eval.Eligible,
		Confidence:          eval.Confidence,
		MissingRequirements: eval.MissingRequirements,
		Criteria:            eval.Criteria,
	}, nil
}

// Recommendation is one alternatives entry. FullMatch is false when the
// engine had to fall back to the closest ineligible schemes.
type Recommendation struct {
	Result
	FullMatch bool `json:"full_match"`
}

// Alternatives is the findAlternatives response. Note is set only on the
// ineligible fallback.
type Alternatives struct {
	Recommendations []Recommendation `json:"recommendations"`
	Note            string           `json:"note,omitempty"`
}

// FindAlternatives re-runs the assessment, drops the excluded ids, and
// returns the top-N eligible results; with no eligible results it returns the
// closest-by-confidence ineligible ones, marked as not full matches.
func (s *Service) FindAlternatives(ctx context.Context, sessionID domain.SessionID, excluded []domain.SchemeID) (*Alternatives, error) {
	results, err := s.Assess(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	excludedSet := make(map[domain.SchemeID]struct{}, len(excluded))
	for _, id := range excluded {
		excludedSet[id] = struct{}{}
	}

	var eligible, ineligible []Result
	for _, r := range results {
		if _, skip := excludedSet[r.SchemeID]; skip {
			continue
		}
		if r.Eligible {
			eligible = append(eligible, r)
		} else {
			ineligible = append(ineligible, r)
		}
	}

	out := &Alternatives{}
	if len(eligible) > 0 {
		for _, r := range capN(eligible, s.alternativesN) {
			out.Recommendations = append(out.Recommendations, Recommendation{Result: r, FullMatch: true})
		}
		return out, nil
	}

	out.Note = "no fully eligible alternatives; closest matches shown"
	for _, r := range capN(ineligible, s.alternativesN) {
		out.Recommendations = append(out.Recommendations, Recommendation{Result: r, FullMatch: false})
	}
	return out, nil
}

func (s *Service) flagMalformed(ctx context.Context, id domain.SchemeID, evalErr error) {
	s.logger.WarnContext(ctx, "scheme excluded from assessment",
		"scheme_id", id,
		"error", evalErr,
	)
	if s.flagger == nil {
		return
	}
	if err := s.flagger.FlagInconsistency(ctx, id, evalErr.Error()); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.ErrorContext(ctx, "failed to flag inconsistent scheme",
			"scheme_id", id,
			"error", err,
		)
	}
}

func toResult(record *catalogue.SchemeRecord, eval *Evaluation, lang string) Result {
	return Result{
		SchemeID:            record.ID,
		SchemeName:          record.Name.Resolve(lang),
		Eligible:            eval.Eligible,
		Confidence:          eval.Confidence,
		MissingRequirements: eval.MissingRequirements,
		RequiredDocuments:   record.Documents,
		BenefitType:         record.PrimaryBenefitType(),
	}
}

func capN(results []Result, n int) []Result {
	if len(results) > n {
		return results[:n]
	}
	return results
}
