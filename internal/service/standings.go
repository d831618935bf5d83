package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mkallio/tag-league/backend/internal/domain"
	"github.com/mkallio/tag-league/backend/internal/repo"
)

// StandingsService serves the read side: season standings decorated with
// eligibility, player tag history, round detail, and the stale-score view
// that lets an external process spot stuck rounds.
type StandingsService struct {
	runner      repo.Runner
	eligibility *EligibilityService
}

// NewStandingsService constructs a StandingsService.
func NewStandingsService(runner repo.Runner, eligibility *EligibilityService) *StandingsService {
	return &StandingsService{runner: runner, eligibility: eligibility}
}

// Standings returns one page of the season's current tag order, best tag
// first, with each row's eligibility flag filled in. Ineligible players
// appear in the list — filtering the official view is the caller's choice.
func (s *StandingsService) Standings(ctx context.Context, seasonID uuid.UUID, p domain.PaginationParams) ([]domain.Standing, int64, error) {
	r := s.runner.Repos()

	standings, total, err := r.Tags.ListStandings(ctx, seasonID, p)
	if err != nil {
		return nil, 0, fmt.Errorf("service.StandingsService.Standings: %w", err)
	}

	playerIDs := make([]uuid.UUID, len(standings))
	for i, st := range standings {
		playerIDs[i] = st.PlayerID
	}
	eligible, err := s.eligibility.EligibleSet(ctx, seasonID, playerIDs)
	if err != nil {
		return nil, 0, fmt.Errorf("service.StandingsService.Standings: %w", err)
	}
	for i := range standings {
		standings[i].Eligible = eligible[standings[i].PlayerID]
	}
	return standings, total, nil
}

// History returns one page of a player's tag ledger, oldest first,
// optionally restricted to a season.
func (s *StandingsService) History(ctx context.Context, playerID uuid.UUID, seasonID *uuid.UUID, p domain.PaginationParams) ([]domain.TagHistory, int64, error) {
	entries, total, err := s.runner.Repos().History.ListByPlayer(ctx, playerID, seasonID, p)
	if err != nil {
		return nil, 0, fmt.Errorf("service.StandingsService.History: %w", err)
	}
	return entries, total, nil
}

// RoundDetail assembles the full view of one round: every card with its
// members and confirmation state, the tag deltas once the round is
// finalized, and any entered scores still awaiting confirmation together
// with how long they have been waiting.
func (s *StandingsService) RoundDetail(ctx context.Context, roundID uuid.UUID) (domain.RoundDetail, error) {
	r := s.runner.Repos()

	round, err := r.Rounds.Get(ctx, roundID)
	if err != nil {
		return domain.RoundDetail{}, fmt.Errorf("service.StandingsService.RoundDetail: %w", err)
	}

	cards, err := r.Cards.ListByRound(ctx, roundID)
	if err != nil {
		return domain.RoundDetail{}, fmt.Errorf("service.StandingsService.RoundDetail: %w", err)
	}

	detail := domain.RoundDetail{Round: round, Cards: []domain.CardView{}, Deltas: []domain.TagDelta{}, Stale: []domain.StaleScore{}}
	now := time.Now().UTC()
	for _, card := range cards {
		members, err := r.Participations.ListByCard(ctx, card.ID)
		if err != nil {
			return domain.RoundDetail{}, fmt.Errorf("service.StandingsService.RoundDetail: %w", err)
		}
		detail.Cards = append(detail.Cards, domain.CardView{Card: card, Members: members})

		for _, m := range members {
			if m.AwaitingConfirmation() {
				detail.Stale = append(detail.Stale, domain.StaleScore{
					ParticipationID: m.ID,
					PlayerID:        m.PlayerID,
					RoundID:         roundID,
					CardID:          card.ID,
					EnteredAt:       *m.ScoreEnteredAt,
					Waiting:         now.Sub(*m.ScoreEnteredAt),
				})
			}
		}
	}

	if round.Status == domain.RoundFinalized {
		deltas, err := r.History.DeltasByRound(ctx, roundID)
		if err != nil {
			return domain.RoundDetail{}, fmt.Errorf("service.StandingsService.RoundDetail: %w", err)
		}
		detail.Deltas = deltas
	}
	return detail, nil
}

// StaleScores returns every entered score that has been awaiting
// confirmation longer than olderThan, oldest first. The watchdog worker
// polls this; the engine itself never mutates on a timer.
func (s *StandingsService) StaleScores(ctx context.Context, olderThan time.Duration) ([]domain.StaleScore, error) {
	now := time.Now().UTC()
	stale, err := s.runner.Repos().Participations.ListStale(ctx, now.Add(-olderThan))
	if err != nil {
		return nil, fmt.Errorf("service.StandingsService.StaleScores: %w", err)
	}
	for i := range stale {
		stale[i].Waiting = now.Sub(stale[i].EnteredAt)
	}
	return stale, nil
}
