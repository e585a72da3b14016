package session

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"sahaya/pkg/domain"
	dErrors "sahaya/pkg/domain-errors"
)

type ServiceSuite struct {
	suite.Suite
	service *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.service = NewService(
		NewMemoryStore(),
		DefaultSensitivityPolicy(),
		30*time.Minute,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		nil, nil,
	)
}

func (s *ServiceSuite) create() domain.SessionID {
	id, err := s.service.Create(context.Background(), "hi")
	s.Require().NoError(err)
	return id
}

func (s *ServiceSuite) TestCreateAndGet() {
	ctx := context.Background()
	id := s.create()

	sess, err := s.service.Get(ctx, id)
	s.Require().NoError(err)
	s.Equal("hi", sess.PreferredLanguage)
	s.Empty(sess.Context)

	_, err = s.service.Get(ctx, domain.NewSessionID())
	s.Require().True(dErrors.Is(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestConfirmationGate() {
	ctx := context.Background()
	id := s.create()

	s.Run("sensitive attribute without confirmation is rejected and not stored", func() {
		err := s.service.SetAttribute(ctx, id, AttrIncome, 45000, false)
		s.Require().True(dErrors.Is(err, dErrors.CodeRequiresConfirmation))

		got, err := s.service.GetContext(ctx, id)
		s.Require().NoError(err)
		s.NotContains(got, AttrIncome)
	})

	s.Run("same write with confirmation succeeds", func() {
		s.Require().NoError(s.service.SetAttribute(ctx, id, AttrIncome, 45000, true))

		sess, err := s.service.Get(ctx, id)
		s.Require().NoError(err)
		s.Equal(float64(45000), sess.Context[AttrIncome])
		s.Contains(sess.Confirmations, AttrIncome)
	})

	s.Run("non-sensitive attribute needs no confirmation", func() {
		s.Require().NoError(s.service.SetAttribute(ctx, id, AttrAge, 65, false))

		sess, err := s.service.Get(ctx, id)
		s.Require().NoError(err)
		s.Equal(float64(65), sess.Context[AttrAge])
		s.NotContains(sess.Confirmations, AttrAge)
	})
}

func (s *ServiceSuite) TestOverwriteSemantics() {
	ctx := context.Background()
	id := s.create()

	s.Require().NoError(s.service.SetAttribute(ctx, id, AttrState, "UP", false))
	s.Require().NoError(s.service.SetAttribute(ctx, id, AttrState, "MP", false))

	got, err := s.service.GetContext(ctx, id)
	s.Require().NoError(err)
	s.Equal("MP", got[AttrState])
	s.Len(got, 1, "overwrite replaces, it does not accumulate")
}

func (s *ServiceSuite) TestValueNormalization() {
	ctx := context.Background()
	id := s.create()

	s.Run("ints collapse to float64", func() {
		s.Require().NoError(s.service.SetAttribute(ctx, id, AttrFamilySize, int64(5), false))
		got, err := s.service.GetContext(ctx, id)
		s.Require().NoError(err)
		s.Equal(float64(5), got[AttrFamilySize])
	})

	s.Run("null value is rejected", func() {
		err := s.service.SetAttribute(ctx, id, AttrAge, nil, false)
		s.Require().True(dErrors.Is(err, dErrors.CodeBadRequest))
	})

	s.Run("structured value is rejected", func() {
		err := s.service.SetAttribute(ctx, id, AttrAge, map[string]any{"years": 65}, false)
		s.Require().True(dErrors.Is(err, dErrors.CodeBadRequest))
	})

	s.Run("empty name is rejected", func() {
		err := s.service.SetAttribute(ctx, id, "", 1, false)
		s.Require().True(dErrors.Is(err, dErrors.CodeBadRequest))
	})
}

func (s *ServiceSuite) TestEndErasesEverything() {
	ctx := context.Background()
	id := s.create()
	s.Require().NoError(s.service.SetAttribute(ctx, id, AttrIncome, 45000, true))

	s.Require().NoError(s.service.End(ctx, id))

	_, err := s.service.GetContext(ctx, id)
	s.Require().True(dErrors.Is(err, dErrors.CodeNotFound))

	err = s.service.SetAttribute(ctx, id, AttrAge, 65, false)
	s.Require().True(dErrors.Is(err, dErrors.CodeNotFound))

	err = s.service.End(ctx, id)
	s.Require().True(dErrors.Is(err, dErrors.CodeNotFound), "ending twice is not silently ok")
}

func (s *ServiceSuite) TestSweepExpired() {
	ctx := context.Background()
	store := NewMemoryStore()
	service := NewService(store, DefaultSensitivityPolicy(), 30*time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)), nil, nil)

	old := time.Now().Add(-2 * time.Hour)
	stale := &Session{
		ID:             domain.NewSessionID(),
		Context:        UserContext{AttrAge: float64(70)},
		Confirmations:  make(map[string]time.Time),
		CreatedAt:      old,
		LastActivityAt: old,
	}
	s.Require().NoError(store.Create(ctx, stale))

	fresh, err := service.Create(ctx, "")
	s.Require().NoError(err)

	swept, err := service.SweepExpired(ctx)
	s.Require().NoError(err)
	s.Equal(1, swept)

	_, err = service.Get(ctx, stale.ID)
	s.Require().True(dErrors.Is(err, dErrors.CodeNotFound))

	_, err = service.Get(ctx, fresh)
	s.Require().NoError(err)
}
