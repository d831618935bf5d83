package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mkallio/tag-league/backend/internal/domain"
	"github.com/mkallio/tag-league/backend/internal/repo"
)

// RoundCloser consumes the "round ready to close" signal the card workflow
// emits once every card in a round is confirmed. In production this is the
// TagEngine; tests substitute a recorder.
type RoundCloser interface {
	CloseRound(ctx context.Context, roundID uuid.UUID) error
}

// CardService turns raw entered scores into authoritative results: it forms
// cards, accepts score entry from the card's creator, and collects the
// peer confirmation that makes scores count. Confirmation is the single
// gate through which a participation reaches completed.
type CardService struct {
	runner repo.Runner
	closer RoundCloser
	log    *slog.Logger
}

// NewCardService constructs a CardService. closer receives the round-ready
// signal after the confirming transaction commits.
func NewCardService(runner repo.Runner, closer RoundCloser, log *slog.Logger) *CardService {
	return &CardService{runner: runner, closer: closer, log: log}
}

// CreateCard groups the listed players into a new card for the round. Every
// listed player must be checked in and not already on a card; the creator
// must be one of them. Three members is a hard minimum; more than six is
// legal but logged as unusual.
func (s *CardService) CreateCard(ctx context.Context, creatorID, roundID uuid.UUID, playerIDs []uuid.UUID) (domain.Card, error) {
	if len(playerIDs) < domain.MinCardSize {
		return domain.Card{}, fmt.Errorf("service.CardService.CreateCard: %w", domain.ErrCardTooSmall)
	}
	if len(playerIDs) > domain.TypicalMaxCardSize {
		s.log.WarnContext(ctx, "card larger than typical", "round_id", roundID, "size", len(playerIDs))
	}

	creatorListed := false
	seen := map[uuid.UUID]bool{}
	for _, id := range playerIDs {
		if seen[id] {
			return domain.Card{}, fmt.Errorf("service.CardService.CreateCard: %w: duplicate player %s", domain.ErrValidation, id)
		}
		seen[id] = true
		if id == creatorID {
			creatorListed = true
		}
	}
	if !creatorListed {
		return domain.Card{}, fmt.Errorf("service.CardService.CreateCard: %w: creator must be a card member", domain.ErrValidation)
	}

	var out domain.Card
	err := s.runner.InTx(ctx, func(r repo.Repos) error {
		round, err := r.Rounds.Get(ctx, roundID)
		if err != nil {
			return err
		}
		if round.Status != domain.RoundOpen {
			return fmt.Errorf("%w: round is %s", domain.ErrValidation, round.Status)
		}

		ids := make([]uuid.UUID, 0, len(playerIDs))
		for _, playerID := range playerIDs {
			p, err := r.Participations.GetByPlayerRound(ctx, playerID, roundID)
			if err != nil {
				return fmt.Errorf("player %s: %w", playerID, err)
			}
			if p.Status != domain.StatusCheckedIn {
				return fmt.Errorf("player %s: %w", playerID, domain.ErrNotCheckedIn)
			}
			if p.OnCard() {
				return fmt.Errorf("player %s: %w", playerID, domain.ErrAlreadyCarded)
			}
			ids = append(ids, p.ID)
		}

		out, err = r.Cards.Create(ctx, domain.Card{RoundID: roundID, CreatorID: creatorID})
		if err != nil {
			return err
		}
		return r.Participations.AssignCard(ctx, ids, out.ID)
	})
	if err != nil {
		return domain.Card{}, fmt.Errorf("service.CardService.CreateCard: %w", err)
	}
	return out, nil
}

// EnterScores records raw stroke counts for card members. Only the card's
// creator may enter scores, and only for members still checked in. Entering
// a score clears any dispute marker but never confirms: the entries stay
// pending until a non-creator member confirms them.
func (s *CardService) EnterScores(ctx context.Context, cardID, callerID uuid.UUID, scores map[uuid.UUID]int) ([]domain.Participation, error) {
	if len(scores) == 0 {
		return nil, fmt.Errorf("service.CardService.EnterScores: %w: no scores given", domain.ErrValidation)
	}
	for playerID, strokes := range scores {
		if strokes < 1 {
			return nil, fmt.Errorf("service.CardService.EnterScores: %w: invalid stroke count %d for %s", domain.ErrValidation, strokes, playerID)
		}
	}

	var out []domain.Participation
	err := s.runner.InTx(ctx, func(r repo.Repos) error {
		card, err := r.Cards.Get(ctx, cardID)
		if err != nil {
			return err
		}
		if card.CreatorID != callerID {
			return domain.ErrNotCardCreator
		}

		members, err := r.Participations.ListByCardForUpdate(ctx, cardID)
		if err != nil {
			return err
		}
		byPlayer := make(map[uuid.UUID]domain.Participation, len(members))
		for _, m := range members {
			byPlayer[m.PlayerID] = m
		}

		now := time.Now().UTC()
		out = make([]domain.Participation, 0, len(scores))
		for playerID, strokes := range scores {
			m, ok := byPlayer[playerID]
			if !ok {
				return fmt.Errorf("%w: player %s is not on this card", domain.ErrValidation, playerID)
			}
			if m.Status != domain.StatusCheckedIn {
				return fmt.Errorf("player %s: %w", playerID, domain.ErrNotCheckedIn)
			}

			strokes := strokes
			m.Score = &strokes
			m.ScoreEnteredBy = &callerID
			m.ScoreEnteredAt = &now
			m.ScoreConfirmed = false
			m.ScoreConfirmedBy = nil
			m.ScoreConfirmedAt = nil
			m.ScoreDisputed = false

			updated, err := r.Participations.UpdateState(ctx, m)
			if err != nil {
				return err
			}
			out = append(out, updated)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("service.CardService.EnterScores: %w", err)
	}
	return out, nil
}

// ConfirmScores applies peer confirmation to every pending score on the
// card, flipping those participations from checked_in to completed. The
// confirmer must be a card member other than the creator and not dnf.
// Confirming an already-confirmed card flips nothing, so concurrent or
// retried confirmations are safe.
//
// Whenever the confirmation leaves every card in the round confirmed,
// the round-ready signal fires after commit — including on retries that
// flipped nothing, so a close lost to a transient failure can be
// re-driven by confirming again.
func (s *CardService) ConfirmScores(ctx context.Context, cardID, confirmerID uuid.UUID) ([]domain.Participation, error) {
	return s.confirm(ctx, cardID, confirmerID, false)
}

// ForceConfirm is the organizer override for the InsufficientCardMembers
// dead-end: a card whose only possible confirmer would be its creator. The
// operator must hold round-management authority; the confirmation is
// recorded under the operator's identity.
func (s *CardService) ForceConfirm(ctx context.Context, cardID, operatorID uuid.UUID) ([]domain.Participation, error) {
	return s.confirm(ctx, cardID, operatorID, true)
}

func (s *CardService) confirm(ctx context.Context, cardID, confirmerID uuid.UUID, force bool) ([]domain.Participation, error) {
	op := "ConfirmScores"
	if force {
		op = "ForceConfirm"
	}

	var (
		out     []domain.Participation
		roundID uuid.UUID
		ready   bool
	)
	err := s.runner.InTx(ctx, func(r repo.Repos) error {
		card, err := r.Cards.Get(ctx, cardID)
		if err != nil {
			return err
		}
		roundID = card.RoundID

		members, err := r.Participations.ListByCardForUpdate(ctx, cardID)
		if err != nil {
			return err
		}

		if force {
			ok, err := r.Leagues.CanManageRound(ctx, confirmerID, card.RoundID)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: force-confirm requires round-management authority", domain.ErrForbidden)
			}
		} else {
			if err := checkConfirmer(card, members, confirmerID); err != nil {
				return err
			}
		}

		entered := 0
		for _, m := range members {
			if m.HasScore() {
				entered++
			}
		}
		if entered == 0 {
			return fmt.Errorf("%w: no scores entered on card", domain.ErrValidation)
		}

		now := time.Now().UTC()
		out = make([]domain.Participation, 0, len(members))
		for _, m := range members {
			if !m.AwaitingConfirmation() || m.ScoreDisputed {
				// Already confirmed, nothing entered, dnf, or disputed —
				// disputed entries only clear by being re-entered.
				continue
			}
			m.ScoreConfirmed = true
			m.ScoreConfirmedBy = &confirmerID
			m.ScoreConfirmedAt = &now
			m.ScoreDisputed = false
			m.Status = domain.StatusCompleted

			updated, err := r.Participations.UpdateState(ctx, m)
			if err != nil {
				return err
			}
			out = append(out, updated)
		}

		// Readiness is recomputed from rows inside this transaction, never
		// cached, so it cannot drift from the participations themselves.
		pending, err := r.Participations.UnconfirmedOnCards(ctx, card.RoundID)
		if err != nil {
			return err
		}
		ready = pending == 0
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("service.CardService.%s: %w", op, err)
	}

	// Signal on every confirmation that leaves the round ready, not only
	// the one that flipped the last score: closing is idempotent, and a
	// retried confirmation must be able to re-drive a close that failed
	// after the confirmations committed.
	if ready {
		if err := s.closer.CloseRound(ctx, roundID); err != nil {
			// The confirmations are committed; closing is idempotent and
			// retriable, so surface the failure without unwinding them.
			return out, fmt.Errorf("service.CardService.%s: close round: %w", op, err)
		}
	}
	return out, nil
}

// checkConfirmer enforces the peer-confirmation rule. The structural
// dead-end (no possible confirmer) is reported ahead of the individual
// checks so callers learn the card needs an organizer, not another member.
func checkConfirmer(card domain.Card, members []domain.Participation, confirmerID uuid.UUID) error {
	eligible := 0
	var confirmer *domain.Participation
	for i, m := range members {
		if m.PlayerID != card.CreatorID && m.Status != domain.StatusDNF {
			eligible++
		}
		if m.PlayerID == confirmerID {
			confirmer = &members[i]
		}
	}
	if eligible == 0 {
		return domain.ErrInsufficientCardMembers
	}
	if confirmerID == card.CreatorID {
		return domain.ErrSelfConfirmation
	}
	if confirmer == nil {
		return fmt.Errorf("%w: confirmer is not a card member", domain.ErrForbidden)
	}
	if confirmer.Status == domain.StatusDNF {
		return fmt.Errorf("%w: confirmer did not finish the round", domain.ErrForbidden)
	}
	return nil
}

// DisputeScores is the organizer escape hatch for bad confirmations: every
// confirmed score on the card reverts to checked_in with the dispute marker
// set, which blocks the round from closing until the scores are re-entered
// and re-confirmed. Finalized rounds cannot be disputed.
func (s *CardService) DisputeScores(ctx context.Context, cardID, operatorID uuid.UUID) ([]domain.Participation, error) {
	var out []domain.Participation
	err := s.runner.InTx(ctx, func(r repo.Repos) error {
		card, err := r.Cards.Get(ctx, cardID)
		if err != nil {
			return err
		}

		ok, err := r.Leagues.CanManageRound(ctx, operatorID, card.RoundID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: dispute requires round-management authority", domain.ErrForbidden)
		}

		round, err := r.Rounds.GetForUpdate(ctx, card.RoundID)
		if err != nil {
			return err
		}
		if round.Status == domain.RoundFinalized {
			return fmt.Errorf("%w: round already finalized", domain.ErrValidation)
		}

		members, err := r.Participations.ListByCardForUpdate(ctx, cardID)
		if err != nil {
			return err
		}

		out = make([]domain.Participation, 0, len(members))
		for _, m := range members {
			if !m.ScoreConfirmed {
				continue
			}
			m.ScoreConfirmed = false
			m.ScoreConfirmedBy = nil
			m.ScoreConfirmedAt = nil
			m.ScoreDisputed = true
			m.Status = domain.StatusCheckedIn

			updated, err := r.Participations.UpdateState(ctx, m)
			if err != nil {
				return err
			}
			out = append(out, updated)
		}
		if len(out) == 0 {
			return fmt.Errorf("%w: card has no confirmed scores to dispute", domain.ErrValidation)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("service.CardService.DisputeScores: %w", err)
	}
	return out, nil
}
