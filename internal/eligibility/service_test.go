package eligibility

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"sahaya/internal/catalogue"
	"sahaya/internal/session"
	"sahaya/pkg/domain"
	dErrors "sahaya/pkg/domain-errors"
)

type fakeSessions struct {
	sessions map[domain.SessionID]*session.Session
}

func (f *fakeSessions) Get(_ context.Context, id domain.SessionID) (*session.Session, error) {
	sess, ok := f.sessions[id]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "session not found")
	}
	return sess.Clone(), nil
}

type fakeCatalogue struct {
	schemes []*catalogue.SchemeRecord
	listErr error
}

func (f *fakeCatalogue) ListActive(context.Context) ([]*catalogue.SchemeRecord, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.schemes, nil
}

func (f *fakeCatalogue) GetCurrent(_ context.Context, id domain.SchemeID, _ bool) (*catalogue.SchemeRecord, error) {
	for _, record := range f.schemes {
		if record.ID == id {
			return record, nil
		}
	}
	return nil, dErrors.New(dErrors.CodeNotFound, "scheme not found")
}

type fakeFlagger struct {
	mu      sync.Mutex
	flagged []domain.SchemeID
}

func (f *fakeFlagger) FlagInconsistency(_ context.Context, id domain.SchemeID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flagged = append(f.flagged, id)
	return nil
}

type EngineServiceSuite struct {
	suite.Suite
	sessions  *fakeSessions
	catalogue *fakeCatalogue
	flagger   *fakeFlagger
	service   *Service
	sessionID domain.SessionID
}

func TestEngineServiceSuite(t *testing.T) {
	suite.Run(t, new(EngineServiceSuite))
}

func (s *EngineServiceSuite) SetupTest() {
	s.sessionID = domain.NewSessionID()
	s.sessions = &fakeSessions{sessions: map[domain.SessionID]*session.Session{
		s.sessionID: {
			ID:                s.sessionID,
			PreferredLanguage: "hi",
			Context: session.UserContext{
				session.AttrAge:   float64(65),
				session.AttrState: "UP",
			},
		},
	}}
	s.catalogue = &fakeCatalogue{}
	s.flagger = &fakeFlagger{}
	s.service = NewService(
		s.sessions, s.catalogue, s.flagger,
		NewRanker(nil), 0, 3,
		slog.New(slog.NewTextHandler(io.Discard, nil)), nil,
	)
}

func (s *EngineServiceSuite) addScheme(id domain.SchemeID, criteria catalogue.EligibilityCriteria, benefit catalogue.BenefitType) {
	record := &catalogue.SchemeRecord{
		ID:       id,
		Name:     catalogue.LocalizedText{"en": string(id) + " scheme", "hi": string(id) + " योजना"},
		Criteria: criteria,
		Status:   catalogue.StatusActive,
		Version:  1,
	}
	if benefit != "" {
		record.Benefits = []catalogue.Benefit{{Type: benefit}}
	}
	s.catalogue.schemes = append(s.catalogue.schemes, record)
}

func (s *EngineServiceSuite) TestAssessRanksFreshResults() {
	s.addScheme("PENSION", catalogue.EligibilityCriteria{
		AgeRange: &catalogue.Range{Min: ptr(60)},
	}, catalogue.BenefitFinancial)
	s.addScheme("YOUTH-LOAN", catalogue.EligibilityCriteria{
		AgeRange: &catalogue.Range{Max: ptr(35)},
	}, catalogue.BenefitLoan)
	s.addScheme("PARTIAL", catalogue.EligibilityCriteria{
		AgeRange:    &catalogue.Range{Min: ptr(60)},
		IncomeRange: &catalogue.Range{Max: ptr(50000)},
	}, catalogue.BenefitSubsidy)

	results, err := s.service.Assess(context.Background(), s.sessionID)
	s.Require().NoError(err)
	s.Require().Len(results, 3)

	s.Equal(domain.SchemeID("PENSION"), results[0].SchemeID, "full confident match first")
	s.Equal(domain.SchemeID("PARTIAL"), results[1].SchemeID, "provisional match second")
	s.Equal(domain.SchemeID("YOUTH-LOAN"), results[2].SchemeID, "ineligible last")
	s.Equal([]string{session.AttrIncome}, results[1].MissingRequirements)
	s.Equal("PENSION योजना", results[0].SchemeName, "names resolve in the session language")
}

func (s *EngineServiceSuite) TestAssessUnknownSession() {
	s.addScheme("PENSION", catalogue.EligibilityCriteria{OpenToAll: true}, "")

	_, err := s.service.Assess(context.Background(), domain.NewSessionID())
	s.Require().True(dErrors.Is(err, dErrors.CodeNotFound))
}

func (s *EngineServiceSuite) TestAssessCatalogueUnavailable() {
	s.catalogue.listErr = dErrors.New(dErrors.CodeCatalogueUnavailable, "catalogue read failed")

	_, err := s.service.Assess(context.Background(), s.sessionID)
	s.Require().True(dErrors.Is(err, dErrors.CodeCatalogueUnavailable),
		"a failed bulk read aborts the assessment, no partial results")
}

func (s *EngineServiceSuite) TestAssessIsolatesMalformedScheme() {
	s.addScheme("GOOD", catalogue.EligibilityCriteria{OpenToAll: true}, "")
	s.addScheme("BROKEN", catalogue.EligibilityCriteria{
		Predicates: []catalogue.Predicate{
			{Field: session.AttrState, Op: catalogue.OpGt, Value: "not a number"},
		},
	}, "")

	results, err := s.service.Assess(context.Background(), s.sessionID)
	s.Require().NoError(err)
	s.Require().Len(results, 1, "the malformed scheme is excluded, not fatal")
	s.Equal(domain.SchemeID("GOOD"), results[0].SchemeID)
	s.Equal([]domain.SchemeID{"BROKEN"}, s.flagger.flagged)
}

func (s *EngineServiceSuite) TestExplain() {
	s.addScheme("PENSION", catalogue.EligibilityCriteria{
		AgeRange:    &catalogue.Range{Min: ptr(60)},
		IncomeRange: &catalogue.Range{Max: ptr(50000)},
	}, catalogue.BenefitFinancial)

	explanation, err := s.service.Explain(context.Background(), s.sessionID, "PENSION")
	s.Require().NoError(err)

	s.True(explanation.Eligible)
	s.Equal(0.5, explanation.Confidence)
	s.Require().Len(explanation.Criteria, 2)
	s.Equal(VerdictPass, explanation.Criteria[0].Verdict)
	s.Equal(float64(65), explanation.Criteria[0].Value)
	s.Equal(VerdictUnknown, explanation.Criteria[1].Verdict)

	_, err = s.service.Explain(context.Background(), s.sessionID, "GHOST")
	s.Require().True(dErrors.Is(err, dErrors.CodeNotFound))
}

func (s *EngineServiceSuite) TestFindAlternatives() {
	s.addScheme("PENSION", catalogue.EligibilityCriteria{
		AgeRange: &catalogue.Range{Min: ptr(60)},
	}, catalogue.BenefitFinancial)
	s.addScheme("STATE-AID", catalogue.EligibilityCriteria{
		States: []string{"UP"},
	}, catalogue.BenefitSubsidy)

	s.Run("excluded ids are dropped, eligible rest returned", func() {
		alternatives, err := s.service.FindAlternatives(context.Background(), s.sessionID, []domain.SchemeID{"PENSION"})
		s.Require().NoError(err)
		s.Empty(alternatives.Note)
		s.Require().Len(alternatives.Recommendations, 1)
		s.Equal(domain.SchemeID("STATE-AID"), alternatives.Recommendations[0].SchemeID)
		s.True(alternatives.Recommendations[0].FullMatch)
	})

	s.Run("fallback to closest matches when nothing is eligible", func() {
		alternatives, err := s.service.FindAlternatives(context.Background(), s.sessionID,
			[]domain.SchemeID{"PENSION", "STATE-AID"})
		s.Require().NoError(err)
		s.Empty(alternatives.Recommendations)
		s.NotEmpty(alternatives.Note)
	})
}

func (s *EngineServiceSuite) TestFindAlternativesFallbackMarksPartial() {
	s.addScheme("NEAR", catalogue.EligibilityCriteria{
		AgeRange:    &catalogue.Range{Min: ptr(60)},
		IncomeRange: &catalogue.Range{Max: ptr(50000)},
		Gender:      "female",
	}, "")
	s.sessions.sessions[s.sessionID].Context[session.AttrGender] = "male"

	alternatives, err := s.service.FindAlternatives(context.Background(), s.sessionID, nil)
	s.Require().NoError(err)
	s.NotEmpty(alternatives.Note)
	s.Require().Len(alternatives.Recommendations, 1)
	s.False(alternatives.Recommendations[0].FullMatch)
}

func (s *EngineServiceSuite) TestAlternativesCapped() {
	for _, id := range []domain.SchemeID{"A", "B", "C", "D", "E"} {
		s.addScheme(id, catalogue.EligibilityCriteria{OpenToAll: true}, "")
	}

	alternatives, err := s.service.FindAlternatives(context.Background(), s.sessionID, nil)
	s.Require().NoError(err)
	s.Len(alternatives.Recommendations, 3)
}
