//go:build integration

package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"sevasetu/internal/session/models"
	"sevasetu/internal/session/store"
	id "sevasetu/pkg/domain"
	"sevasetu/pkg/platform/sentinel"
	"sevasetu/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *store.Redis
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = store.NewRedis(s.redis.Client, time.Hour)
}

func (s *RedisStoreSuite) TearDownSuite() {
	s.redis.Terminate(context.Background())
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) newSession() *models.Session {
	session, err := models.New(id.NewSessionID(), "device-1", "Chrome on Android", "10.0.0.1", time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(context.Background(), session))
	return session
}

func (s *RedisStoreSuite) TestCreateAndFindRoundTrip() {
	ctx := context.Background()
	session := s.newSession()

	got, err := s.store.FindByID(ctx, session.ID)
	s.Require().NoError(err)
	s.Equal(session.ID, got.ID)
	s.Equal("device-1", got.DeviceID)
	s.True(got.Active)
	s.False(got.Linked())
}

func (s *RedisStoreSuite) TestCreateDuplicateConflicts() {
	session := s.newSession()
	err := s.store.Create(context.Background(), session)
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *RedisStoreSuite) TestFindUnknownIsNotFound() {
	_, err := s.store.FindByID(context.Background(), id.NewSessionID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisStoreSuite) TestSetLanguagePersists() {
	ctx := context.Background()
	session := s.newSession()

	s.Require().NoError(s.store.SetLanguage(ctx, session.ID, id.LanguageHindi))

	got, err := s.store.FindByID(ctx, session.ID)
	s.Require().NoError(err)
	s.Equal(id.LanguageHindi, got.Language)
}

func (s *RedisStoreSuite) TestLinkReturnsPriorBinding() {
	ctx := context.Background()
	session := s.newSession()

	first := id.NewCitizenID()
	previous, err := s.store.Link(ctx, session.ID, first, "FAM-1")
	s.Require().NoError(err)
	s.True(previous.IsNil())

	second := id.NewCitizenID()
	previous, err = s.store.Link(ctx, session.ID, second, "FAM-2")
	s.Require().NoError(err)
	s.Equal(first, previous)

	got, err := s.store.FindByID(ctx, session.ID)
	s.Require().NoError(err)
	s.Equal(second, got.CitizenID)
	s.Equal("FAM-2", got.FamilyID)
}

func (s *RedisStoreSuite) TestDeactivateBlocksMutations() {
	ctx := context.Background()
	session := s.newSession()

	s.Require().NoError(s.store.Deactivate(ctx, session.ID))

	err := s.store.SetLanguage(ctx, session.ID, id.LanguageEnglish)
	s.ErrorIs(err, sentinel.ErrInvalidState)

	got, err := s.store.FindByID(ctx, session.ID)
	s.Require().NoError(err)
	s.False(got.Active)
}

// TestConcurrentFieldUpdatesDoNotClobber runs language and link writers at
// the same time; the optimistic transaction must preserve both fields.
func (s *RedisStoreSuite) TestConcurrentFieldUpdatesDoNotClobber() {
	ctx := context.Background()
	session := s.newSession()
	citizenID := id.NewCitizenID()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.NoError(s.store.SetLanguage(ctx, session.ID, id.LanguageHindi))
	}()
	go func() {
		defer wg.Done()
		_, err := s.store.Link(ctx, session.ID, citizenID, "FAM-9")
		s.NoError(err)
	}()
	wg.Wait()

	got, err := s.store.FindByID(ctx, session.ID)
	s.Require().NoError(err)
	s.Equal(id.LanguageHindi, got.Language)
	s.Equal(citizenID, got.CitizenID)
}
