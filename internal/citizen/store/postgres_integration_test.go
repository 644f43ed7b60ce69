//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"sevasetu/internal/citizen/models"
	"sevasetu/internal/citizen/store"
	id "sevasetu/pkg/domain"
	"sevasetu/pkg/platform/sentinel"
	"sevasetu/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) TearDownSuite() {
	s.postgres.Terminate(context.Background())
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "citizens"))
}

func (s *PostgresStoreSuite) TestCreateAndLookupRoundTrip() {
	ctx := context.Background()
	citizen, err := models.New(id.NewCitizenID(), "9876543210", "FAM-1", "Saroj Devi", time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(ctx, citizen))

	byID, err := s.store.FindByID(ctx, citizen.ID)
	s.Require().NoError(err)
	s.Equal("Saroj Devi", byID.Name)

	byPhone, err := s.store.FindByPhone(ctx, "9876543210")
	s.Require().NoError(err)
	s.Equal(citizen.ID, byPhone.ID)
	s.True(byPhone.Verified)
}

// TestConcurrentRegistrationSamePhone exercises the unique index under
// concurrency: exactly one insert wins, the rest surface ErrConflict.
func (s *PostgresStoreSuite) TestConcurrentRegistrationSamePhone() {
	ctx := context.Background()
	const goroutines = 50

	var wg sync.WaitGroup
	var wins, conflicts atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			citizen, err := models.New(id.NewCitizenID(), "9123456789", "FAM-2", "Ram Prasad", time.Now())
			if err != nil {
				return
			}
			switch err := s.store.Create(ctx, citizen); {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, sentinel.ErrConflict):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), wins.Load())
	s.Equal(int32(goroutines-1), conflicts.Load())
}

func (s *PostgresStoreSuite) TestTouchLastLogin() {
	ctx := context.Background()
	citizen, err := models.New(id.NewCitizenID(), "9000000001", "", "Meera Kumari", time.Now().Add(-time.Hour))
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(ctx, citizen))

	at := time.Now().Truncate(time.Millisecond)
	s.Require().NoError(s.store.TouchLastLogin(ctx, citizen.ID, at))

	got, err := s.store.FindByID(ctx, citizen.ID)
	s.Require().NoError(err)
	s.WithinDuration(at, got.LastLogin, time.Second)

	err = s.store.TouchLastLogin(ctx, id.NewCitizenID(), at)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
