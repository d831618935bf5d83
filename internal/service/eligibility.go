package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mkallio/tag-league/backend/internal/repo"
)

// Eligibility thresholds. A player qualifies for the official standings
// when they have completed enough rounds league-wide and have shown up
// recently in the season being viewed.
const (
	// MinCompletedRounds is the league-wide completed-participation floor.
	MinCompletedRounds = 3

	// RecentRoundWindow caps how many of the season's latest rounds count
	// as "recent". Seasons with fewer rounds use what they have.
	RecentRoundWindow = 5
)

// EligibilityService decides whether a player's participation history
// qualifies them for official standings. It is strictly read-only: the
// result decorates the standings view and never gates tag reassignment —
// ineligible players still hold, lose, and gain tags.
type EligibilityService struct {
	runner repo.Runner
}

// NewEligibilityService constructs an EligibilityService.
func NewEligibilityService(runner repo.Runner) *EligibilityService {
	return &EligibilityService{runner: runner}
}

// IsEligible reports whether the player qualifies for the season's official
// standings: at least MinCompletedRounds completed participations across
// all rounds of the season's league, and at least one completed
// participation within the season's most recent RecentRoundWindow rounds.
// DNF participations never count toward either condition.
func (s *EligibilityService) IsEligible(ctx context.Context, playerID, seasonID uuid.UUID) (bool, error) {
	r := s.runner.Repos()

	season, err := r.Seasons.Get(ctx, seasonID)
	if err != nil {
		return false, fmt.Errorf("service.EligibilityService.IsEligible: %w", err)
	}
	recent, err := r.Rounds.RecentRoundIDs(ctx, seasonID, RecentRoundWindow)
	if err != nil {
		return false, fmt.Errorf("service.EligibilityService.IsEligible: %w", err)
	}

	ok, err := s.eligible(ctx, r, playerID, season.LeagueID, recent)
	if err != nil {
		return false, fmt.Errorf("service.EligibilityService.IsEligible: %w", err)
	}
	return ok, nil
}

// EligibleSet evaluates eligibility for many players at once, fetching the
// season context a single time. Used by the standings view.
func (s *EligibilityService) EligibleSet(ctx context.Context, seasonID uuid.UUID, playerIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	r := s.runner.Repos()

	season, err := r.Seasons.Get(ctx, seasonID)
	if err != nil {
		return nil, fmt.Errorf("service.EligibilityService.EligibleSet: %w", err)
	}
	recent, err := r.Rounds.RecentRoundIDs(ctx, seasonID, RecentRoundWindow)
	if err != nil {
		return nil, fmt.Errorf("service.EligibilityService.EligibleSet: %w", err)
	}

	set := make(map[uuid.UUID]bool, len(playerIDs))
	for _, playerID := range playerIDs {
		ok, err := s.eligible(ctx, r, playerID, season.LeagueID, recent)
		if err != nil {
			return nil, fmt.Errorf("service.EligibilityService.EligibleSet: %w", err)
		}
		set[playerID] = ok
	}
	return set, nil
}

func (s *EligibilityService) eligible(ctx context.Context, r repo.Repos, playerID, leagueID uuid.UUID, recentRounds []uuid.UUID) (bool, error) {
	total, err := r.Participations.CompletedCountInLeague(ctx, playerID, leagueID)
	if err != nil {
		return false, err
	}
	if total < MinCompletedRounds {
		return false, nil
	}

	// A season with no rounds yet has no recent window to satisfy.
	if len(recentRounds) == 0 {
		return false, nil
	}
	recent, err := r.Participations.CompletedCountInRounds(ctx, playerID, recentRounds)
	if err != nil {
		return false, err
	}
	return recent >= 1, nil
}
