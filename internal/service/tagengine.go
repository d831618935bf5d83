package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/mkallio/tag-league/backend/internal/domain"
	"github.com/mkallio/tag-league/backend/internal/repo"
)

// TagEngine owns every mutation of the season tag set: the initial max+1
// assignment at season registration and the round-close reassignment. Both
// paths run under row locks on the season's tags, so they serialize against
// each other, and both leave TagHistory ledger entries.
type TagEngine struct {
	runner repo.Runner
	log    *slog.Logger
}

// NewTagEngine constructs a TagEngine.
func NewTagEngine(runner repo.Runner, log *slog.Logger) *TagEngine {
	return &TagEngine{runner: runner, log: log}
}

// EnsureTagTx assigns the player's initial season tag inside the caller's
// transaction, returning the tag and whether it was newly created. The new
// number is max+1 over the season's tags, computed while holding FOR UPDATE
// locks on all of them so concurrent registrations cannot agree on the same
// number. A race between two first registrants (no rows to lock yet) falls
// through to the unique constraint and surfaces as
// domain.ErrReassignmentConflict; the caller retries.
func (e *TagEngine) EnsureTagTx(ctx context.Context, r repo.Repos, playerID, seasonID uuid.UUID) (domain.Tag, bool, error) {
	existing, err := r.Tags.GetByPlayerSeason(ctx, playerID, seasonID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Tag{}, false, err
	}

	tags, err := r.Tags.LockSeason(ctx, seasonID)
	if err != nil {
		return domain.Tag{}, false, err
	}
	next := 1
	for _, t := range tags {
		if t.TagNumber >= next {
			next = t.TagNumber + 1
		}
	}

	now := time.Now().UTC()
	created, err := r.Tags.Create(ctx, domain.Tag{
		PlayerID:       playerID,
		SeasonID:       seasonID,
		TagNumber:      next,
		AssignmentDate: now,
	})
	if err != nil {
		return domain.Tag{}, false, err
	}

	if _, err := r.History.Append(ctx, domain.TagHistory{
		TagNumber:      created.TagNumber,
		PlayerID:       playerID,
		SeasonID:       seasonID,
		RoundID:        nil, // initial assignment
		AssignmentDate: now,
	}); err != nil {
		return domain.Tag{}, false, err
	}
	return created, true, nil
}

// AssignInitial is EnsureTagTx in its own transaction, for callers that
// register a player into a season outside any round registration.
func (e *TagEngine) AssignInitial(ctx context.Context, playerID, seasonID uuid.UUID) (domain.Tag, error) {
	var out domain.Tag
	err := e.runner.InTx(ctx, func(r repo.Repos) error {
		if _, err := r.Seasons.Get(ctx, seasonID); err != nil {
			return err
		}
		tag, _, err := e.EnsureTagTx(ctx, r, playerID, seasonID)
		out = tag
		return err
	})
	if err != nil {
		return domain.Tag{}, fmt.Errorf("service.TagEngine.AssignInitial: %w", err)
	}
	return out, nil
}

// CloseRound performs the atomic round-close reassignment. The whole
// operation is one transaction: verify readiness, collect the round's
// completed participations, redistribute their own pre-round tag numbers by
// (score, pre-round tag), write the changed tags plus one ledger entry
// each, and finalize the round. Nothing is observable until commit.
//
// Closing an already-finalized round is a no-op, which makes retries after
// domain.ErrReassignmentConflict safe.
func (e *TagEngine) CloseRound(ctx context.Context, roundID uuid.UUID) error {
	err := e.runner.InTx(ctx, func(r repo.Repos) error {
		round, err := r.Rounds.GetForUpdate(ctx, roundID)
		if err != nil {
			return err
		}
		if round.Status == domain.RoundFinalized {
			e.log.InfoContext(ctx, "round already finalized", "round_id", roundID)
			return nil
		}

		cards, err := r.Cards.ListByRound(ctx, roundID)
		if err != nil {
			return err
		}
		if len(cards) == 0 {
			return fmt.Errorf("%w: round has no cards", domain.ErrRoundNotReady)
		}
		pending, err := r.Participations.UnconfirmedOnCards(ctx, roundID)
		if err != nil {
			return err
		}
		if pending > 0 {
			return fmt.Errorf("%w: %d scores unconfirmed", domain.ErrRoundNotReady, pending)
		}

		if err := r.Rounds.SetStatus(ctx, roundID, domain.RoundFinalizing); err != nil {
			return err
		}

		completed, err := r.Participations.ListCompletedByRound(ctx, roundID)
		if err != nil {
			return err
		}
		if len(completed) <= 1 {
			// Nothing to reorder with zero or one finisher.
			return r.Rounds.SetStatus(ctx, roundID, domain.RoundFinalized)
		}

		playerIDs := make([]uuid.UUID, len(completed))
		scores := make(map[uuid.UUID]int, len(completed))
		for i, p := range completed {
			playerIDs[i] = p.PlayerID
			scores[p.PlayerID] = *p.Score
		}

		tags, err := r.Tags.LockPlayers(ctx, round.SeasonID, playerIDs)
		if err != nil {
			return err
		}
		if len(tags) != len(completed) {
			return fmt.Errorf("%w: %d finishers but %d season tags", domain.ErrReassignmentConflict, len(completed), len(tags))
		}

		results := make([]RoundResult, len(tags))
		tagByPlayer := make(map[uuid.UUID]domain.Tag, len(tags))
		for i, t := range tags {
			results[i] = RoundResult{PlayerID: t.PlayerID, Score: scores[t.PlayerID], PreTag: t.TagNumber}
			tagByPlayer[t.PlayerID] = t
		}
		assignment := RedistributeTags(results)

		if err := r.Tags.DeferSeasonNumberCheck(ctx); err != nil {
			return err
		}

		now := time.Now().UTC()
		changed := 0
		for playerID, number := range assignment {
			t := tagByPlayer[playerID]
			if t.TagNumber == number {
				continue // unchanged players get no ledger entry
			}
			if err := r.Tags.UpdateNumber(ctx, t.ID, number, now); err != nil {
				return err
			}
			if _, err := r.History.Append(ctx, domain.TagHistory{
				TagNumber:      number,
				PlayerID:       playerID,
				SeasonID:       round.SeasonID,
				RoundID:        &roundID,
				AssignmentDate: now,
			}); err != nil {
				return err
			}
			changed++
		}

		e.log.InfoContext(ctx, "round closed",
			"round_id", roundID,
			"season_id", round.SeasonID,
			"finishers", len(completed),
			"tags_changed", changed,
		)
		return r.Rounds.SetStatus(ctx, roundID, domain.RoundFinalized)
	})
	if err != nil {
		return fmt.Errorf("service.TagEngine.CloseRound: %w", err)
	}
	return nil
}

// RoundResult is one finisher's input to the reassignment: their confirmed
// score and the tag number they held before the round.
type RoundResult struct {
	PlayerID uuid.UUID
	Score    int
	PreTag   int
}

// RedistributeTags computes the post-round tag number for each finisher.
// The multiset of numbers the finishers held before the round is handed
// back out in finishing order: best (lowest) score takes the best (lowest)
// of their numbers, and equal scores break by pre-round tag, so the player
// who already held the better tag keeps it. Non-participants are not in the
// input and therefore keep their numbers untouched; because the output is a
// permutation of the input numbers, season-wide uniqueness and density are
// preserved by construction.
func RedistributeTags(results []RoundResult) map[uuid.UUID]int {
	slots := make([]int, len(results))
	for i, res := range results {
		slots[i] = res.PreTag
	}
	sort.Ints(slots)

	ranked := make([]RoundResult, len(results))
	copy(ranked, results)
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score < ranked[j].Score
		}
		return ranked[i].PreTag < ranked[j].PreTag
	})

	assignment := make(map[uuid.UUID]int, len(ranked))
	for i, res := range ranked {
		assignment[res.PlayerID] = slots[i]
	}
	return assignment
}
