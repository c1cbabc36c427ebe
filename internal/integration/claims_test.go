package integration_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/moonkyuu/cinebook/internal/repository"
)

type ClaimsSuite struct {
	BaseSuite
	repo *repository.PostgresClaimRepository
}

func (s *ClaimsSuite) SetupTest() {
	s.repo = repository.NewPostgresClaimRepository(s.db)
	s.truncate("seat_claims")
}

func (s *ClaimsSuite) TestClaimIsAllOrNothing() {
	ctx := context.Background()
	winner := uuid.NewString()
	loser := uuid.NewString()

	result, err := s.repo.Claim(ctx, "S101", []string{"A1", "A2"}, winner)
	s.Require().NoError(err)
	s.Require().True(result.Accepted)

	result, err = s.repo.Claim(ctx, "S101", []string{"A2", "A3"}, loser)
	s.Require().NoError(err)
	s.False(result.Accepted)
	s.Equal([]string{"A2"}, result.Conflicting)

	// The rejected claim must not have left a partial row behind.
	reserved, err := s.repo.QueryReserved(ctx, "S101")
	s.Require().NoError(err)
	s.Equal([]string{"A1", "A2"}, reserved)

	result, err = s.repo.Claim(ctx, "S101", []string{"A3"}, loser)
	s.Require().NoError(err)
	s.True(result.Accepted)
}

func (s *ClaimsSuite) TestConflictSetIsExact() {
	ctx := context.Background()
	first := uuid.NewString()
	second := uuid.NewString()

	_, err := s.repo.Claim(ctx, "S101", []string{"A1", "A3", "A5"}, first)
	s.Require().NoError(err)

	result, err := s.repo.Claim(ctx, "S101", []string{"A1", "A2", "A3", "A4"}, second)
	s.Require().NoError(err)
	s.False(result.Accepted)
	s.Equal([]string{"A1", "A3"}, result.Conflicting)
}

func (s *ClaimsSuite) TestReclaimBySameClaimantIsIdempotent() {
	ctx := context.Background()
	claimant := uuid.NewString()

	result, err := s.repo.Claim(ctx, "S101", []string{"A1", "A2"}, claimant)
	s.Require().NoError(err)
	s.Require().True(result.Accepted)

	result, err = s.repo.Claim(ctx, "S101", []string{"A1", "A2"}, claimant)
	s.Require().NoError(err)
	s.True(result.Accepted)

	seats, err := s.repo.ClaimsOf(ctx, "S101", claimant)
	s.Require().NoError(err)
	s.Equal([]string{"A1", "A2"}, seats)
}

func (s *ClaimsSuite) TestReleaseFreesOnlyOwnClaims() {
	ctx := context.Background()
	first := uuid.NewString()
	second := uuid.NewString()

	_, err := s.repo.Claim(ctx, "S101", []string{"A1", "A2"}, first)
	s.Require().NoError(err)
	_, err = s.repo.Claim(ctx, "S101", []string{"B1"}, second)
	s.Require().NoError(err)

	s.Require().NoError(s.repo.Release(ctx, "S101", first))

	reserved, err := s.repo.QueryReserved(ctx, "S101")
	s.Require().NoError(err)
	s.Equal([]string{"B1"}, reserved)

	// Releasing again is a no-op.
	s.Require().NoError(s.repo.Release(ctx, "S101", first))
}

func (s *ClaimsSuite) TestConcurrentClaimsAdmitOneWinner() {
	ctx := context.Background()
	seats := []string{"C1", "C2", "C3"}

	const claimants = 16

	var wg sync.WaitGroup
	winners := make(chan string, claimants)

	for i := 0; i < claimants; i++ {
		claimant := uuid.NewString()
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := s.repo.Claim(ctx, "S101", seats, claimant)
			if err != nil {
				s.T().Errorf("claim failed: %v", err)
				return
			}
			if result.Accepted {
				winners <- claimant
			}
		}()
	}

	wg.Wait()
	close(winners)

	var accepted []string
	for claimant := range winners {
		accepted = append(accepted, claimant)
	}
	s.Require().Len(accepted, 1, "exactly one claimant must win")

	seatsOfWinner, err := s.repo.ClaimsOf(ctx, "S101", accepted[0])
	s.Require().NoError(err)
	s.Equal(seats, seatsOfWinner)
}

// TestAcceptedClaimAlwaysLeavesRows races claims against releases of the same
// seat. A claim whose insert is skipped because of a row that a concurrent
// release then deletes must re-acquire the seat, never report Accepted with
// nothing written: an accepted claim with zero rows would let a later claimant
// double-book the seat.
func (s *ClaimsSuite) TestAcceptedClaimAlwaysLeavesRows() {
	ctx := context.Background()
	holder := uuid.NewString()
	challenger := uuid.NewString()

	done := make(chan struct{})
	churned := make(chan struct{})

	go func() {
		defer close(churned)
		for {
			select {
			case <-done:
				return
			default:
			}

			result, err := s.repo.Claim(ctx, "S101", []string{"A1"}, holder)
			if err != nil {
				s.T().Errorf("holder claim failed: %v", err)
				return
			}
			if result.Accepted {
				if err := s.repo.Release(ctx, "S101", holder); err != nil {
					s.T().Errorf("holder release failed: %v", err)
					return
				}
			}
		}
	}()

	for i := 0; i < 200; i++ {
		result, err := s.repo.Claim(ctx, "S101", []string{"A1"}, challenger)
		s.Require().NoError(err)

		if !result.Accepted {
			s.Require().Equal([]string{"A1"}, result.Conflicting)
			continue
		}

		held, err := s.repo.ClaimsOf(ctx, "S101", challenger)
		s.Require().NoError(err)
		s.Require().Equal([]string{"A1"}, held, "accepted claim must be backed by a ledger row")

		s.Require().NoError(s.repo.Release(ctx, "S101", challenger))
	}

	close(done)
	<-churned
}

func (s *ClaimsSuite) TestClaimsAreScopedPerShow() {
	ctx := context.Background()

	for i, show := range []string{"S101", "S102"} {
		claimant := uuid.NewString()
		result, err := s.repo.Claim(ctx, show, []string{"A1"}, claimant)
		s.Require().NoError(err, fmt.Sprintf("show %d", i))
		s.True(result.Accepted)
	}
}
