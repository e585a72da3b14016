package catalogue

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	"sahaya/internal/audit"
	"sahaya/pkg/domain"
	dErrors "sahaya/pkg/domain-errors"
)

type ServiceSuite struct {
	suite.Suite
	service  *Service
	auditLog *audit.MemoryStore
	inbox    chan audit.Event
	cancel   context.CancelFunc
	done     chan struct{}
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.auditLog = audit.NewMemoryStore()
	s.inbox = make(chan audit.Event, 64)
	s.done = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	worker := audit.NewWorker(s.inbox, log, s.auditLog)
	go func() {
		worker.Run(ctx)
		close(s.done)
	}()

	s.service = NewService(NewMemoryStore(), log, nil, audit.NewPublisher(s.inbox, log))
}

func (s *ServiceSuite) TearDownTest() {
	s.cancel()
	<-s.done
}

// drainAudit stops the worker and returns everything it recorded.
func (s *ServiceSuite) drainAudit() []audit.Event {
	s.cancel()
	<-s.done
	events, err := s.auditLog.List(context.Background())
	s.Require().NoError(err)
	return events
}

func ptr(v float64) *float64 { return &v }

func validInput() UpsertInput {
	return UpsertInput{
		Name:     LocalizedText{"en": "Kisan Samman Nidhi", "hi": "किसान सम्मान निधि"},
		Category: "agriculture",
		Criteria: &EligibilityCriteria{
			AgeRange:    &Range{Min: ptr(18)},
			Occupations: []string{"farmer"},
		},
		Benefits:  []Benefit{{Type: BenefitFinancial, Description: "6000 INR per year"}},
		Documents: []string{"aadhaar", "land record"},
	}
}

func (s *ServiceSuite) TestUpsertValidation() {
	ctx := context.Background()

	s.Run("first version requires a name", func() {
		input := validInput()
		input.Name = nil
		_, err := s.service.Upsert(ctx, "PM-KISAN", input)
		s.Require().True(dErrors.Is(err, dErrors.CodeValidation))
	})

	s.Run("first version requires criteria or open_to_all", func() {
		input := validInput()
		input.Criteria = &EligibilityCriteria{}
		_, err := s.service.Upsert(ctx, "PM-KISAN", input)
		s.Require().True(dErrors.Is(err, dErrors.CodeValidation))
	})

	s.Run("open_to_all alone is enough", func() {
		input := validInput()
		input.Criteria = &EligibilityCriteria{OpenToAll: true}
		version, err := s.service.Upsert(ctx, "OPEN-SCHEME", input)
		s.Require().NoError(err)
		s.Equal(int64(1), version)
	})

	s.Run("unknown predicate operator is rejected", func() {
		input := validInput()
		input.Criteria = &EligibilityCriteria{
			Predicates: []Predicate{{Field: "land_ownership", Op: "matches", Value: true}},
		}
		_, err := s.service.Upsert(ctx, "PM-KISAN", input)
		s.Require().True(dErrors.Is(err, dErrors.CodeValidation))
	})

	s.Run("unknown benefit type is rejected", func() {
		input := validInput()
		input.Benefits = []Benefit{{Type: "voucher"}}
		_, err := s.service.Upsert(ctx, "PM-KISAN", input)
		s.Require().True(dErrors.Is(err, dErrors.CodeValidation))
	})
}

func (s *ServiceSuite) TestUpsertCopyOnWrite() {
	ctx := context.Background()

	v1, err := s.service.Upsert(ctx, "PM-KISAN", validInput())
	s.Require().NoError(err)
	s.Equal(int64(1), v1)

	// Second upsert overrides only the income bound; everything else carries
	// forward from version 1.
	v2, err := s.service.Upsert(ctx, "PM-KISAN", UpsertInput{
		Criteria: &EligibilityCriteria{
			AgeRange:    &Range{Min: ptr(18)},
			IncomeRange: &Range{Max: ptr(200000)},
			Occupations: []string{"farmer"},
		},
	})
	s.Require().NoError(err)
	s.Equal(int64(2), v2)

	current, err := s.service.GetCurrent(ctx, "PM-KISAN", false)
	s.Require().NoError(err)
	s.Equal("Kisan Samman Nidhi", current.Name.Resolve("en"))
	s.Require().NotNil(current.Criteria.IncomeRange)
	s.Equal(float64(200000), *current.Criteria.IncomeRange.Max)

	// Version 1 is untouched.
	original, err := s.service.GetVersion(ctx, "PM-KISAN", 1)
	s.Require().NoError(err)
	s.Nil(original.Criteria.IncomeRange)
}

func (s *ServiceSuite) TestUpsertExpectedVersion() {
	ctx := context.Background()

	_, err := s.service.Upsert(ctx, "PM-KISAN", validInput())
	s.Require().NoError(err)
	_, err = s.service.Upsert(ctx, "PM-KISAN", UpsertInput{Category: "farming"})
	s.Require().NoError(err)

	s.Run("stale expected version conflicts", func() {
		_, err := s.service.Upsert(ctx, "PM-KISAN", UpsertInput{
			Category:        "rural",
			ExpectedVersion: 1,
		})
		s.Require().True(dErrors.Is(err, dErrors.CodeVersionConflict))
	})

	s.Run("matching expected version succeeds", func() {
		version, err := s.service.Upsert(ctx, "PM-KISAN", UpsertInput{
			Category:        "rural",
			ExpectedVersion: 2,
		})
		s.Require().NoError(err)
		s.Equal(int64(3), version)
	})
}

func (s *ServiceSuite) TestStatusTransitions() {
	ctx := context.Background()

	setup := func(id domain.SchemeID, path ...Status) {
		_, err := s.service.Upsert(ctx, id, validInput())
		s.Require().NoError(err)
		for _, status := range path {
			s.Require().NoError(s.service.SetStatus(ctx, id, status))
		}
	}

	s.Run("active to suspended and back", func() {
		setup("A", StatusSuspended, StatusActive)
		current, err := s.service.GetCurrent(ctx, "A", false)
		s.Require().NoError(err)
		s.Equal(StatusActive, current.Status)
		s.Equal(int64(3), current.Version, "each status change appends a version")
	})

	s.Run("inactive is terminal", func() {
		setup("B", StatusInactive)
		err := s.service.SetStatus(ctx, "B", StatusActive)
		s.Require().True(dErrors.Is(err, dErrors.CodeInvalidTransition))
		err = s.service.SetStatus(ctx, "B", StatusSuspended)
		s.Require().True(dErrors.Is(err, dErrors.CodeInvalidTransition))
	})

	s.Run("same-status change is a no-op", func() {
		setup("C")
		s.Require().NoError(s.service.SetStatus(ctx, "C", StatusActive))
		current, err := s.service.GetCurrent(ctx, "C", false)
		s.Require().NoError(err)
		s.Equal(int64(1), current.Version)
	})

	s.Run("unknown scheme is not found", func() {
		err := s.service.SetStatus(ctx, "GHOST", StatusSuspended)
		s.Require().True(dErrors.Is(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestReinstatementIsAudited() {
	ctx := context.Background()

	_, err := s.service.Upsert(ctx, "NSAP", validInput())
	s.Require().NoError(err)
	s.Require().NoError(s.service.SetStatus(ctx, "NSAP", StatusSuspended))
	s.Require().NoError(s.service.SetStatus(ctx, "NSAP", StatusActive))

	events := s.drainAudit()
	var actions []string
	for _, e := range events {
		actions = append(actions, e.Action)
	}
	s.Contains(actions, audit.ActionSchemeReinstated)
}

func (s *ServiceSuite) TestFlagInconsistency() {
	ctx := context.Background()

	_, err := s.service.Upsert(ctx, "PM-KISAN", validInput())
	s.Require().NoError(err)

	s.Run("empty description is rejected", func() {
		err := s.service.FlagInconsistency(ctx, "PM-KISAN", "")
		s.Require().True(dErrors.Is(err, dErrors.CodeValidation))
	})

	s.Run("flag does not suspend the scheme", func() {
		s.Require().NoError(s.service.FlagInconsistency(ctx, "PM-KISAN", "income bound contradicts circular"))

		flags, err := s.service.ListFlags(ctx, "PM-KISAN")
		s.Require().NoError(err)
		s.Require().Len(flags, 1)

		current, err := s.service.GetCurrent(ctx, "PM-KISAN", false)
		s.Require().NoError(err)
		s.Equal(StatusActive, current.Status)
	})
}

func (s *ServiceSuite) TestReadTranslation() {
	ctx := context.Background()

	_, err := s.service.GetCurrent(ctx, "GHOST", false)
	s.Require().True(dErrors.Is(err, dErrors.CodeNotFound))

	_, err = s.service.GetVersion(ctx, "GHOST", 1)
	s.Require().True(dErrors.Is(err, dErrors.CodeNotFound))
}
