// Package service implements the business logic of the tag league engine:
// the participation lifecycle, the card score confirmation workflow, the
// eligibility calculator, and the tag assignment engine. Services hold no
// state beyond their dependencies; all cross-entity consistency comes from
// running each mutation inside a single database transaction.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mkallio/tag-league/backend/internal/domain"
	"github.com/mkallio/tag-league/backend/internal/repo"
)

// ParticipationService drives one player's lifecycle within one round:
// registration, physical check-in, and the DNF side exit. Completion is not
// reachable from here — only score confirmation (CardService) sets it.
type ParticipationService struct {
	runner repo.Runner
	engine *TagEngine
	bets   BetForfeiter
}

// NewParticipationService constructs a ParticipationService.
func NewParticipationService(runner repo.Runner, engine *TagEngine, bets BetForfeiter) *ParticipationService {
	return &ParticipationService{runner: runner, engine: engine, bets: bets}
}

// Register creates a participation in `registered` for (player, round) and,
// in the same transaction, assigns the player's initial season tag if they
// hold none yet. Returns domain.ErrDuplicateParticipation if the player is
// already registered for the round.
func (s *ParticipationService) Register(ctx context.Context, playerID, roundID uuid.UUID) (domain.Participation, error) {
	var out domain.Participation
	err := s.runner.InTx(ctx, func(r repo.Repos) error {
		round, err := r.Rounds.Get(ctx, roundID)
		if err != nil {
			return err
		}
		if round.Status != domain.RoundOpen {
			return fmt.Errorf("%w: round is %s", domain.ErrValidation, round.Status)
		}

		now := time.Now().UTC()
		created, err := r.Participations.Create(ctx, domain.Participation{
			PlayerID:               playerID,
			RoundID:                roundID,
			Status:                 domain.StatusRegistered,
			OnlineRegistrationTime: &now,
		})
		if err != nil {
			return err
		}

		if _, _, err := s.engine.EnsureTagTx(ctx, r, playerID, round.SeasonID); err != nil {
			return err
		}

		out = created
		return nil
	})
	if err != nil {
		return domain.Participation{}, fmt.Errorf("service.ParticipationService.Register: %w", err)
	}
	return out, nil
}

// CheckIn transitions the player's participation from registered to
// checked_in, stamping the physical check-in time. The operator must hold
// round-management authority. Returns domain.ErrInvalidTransition if the
// participation is not currently registered.
func (s *ParticipationService) CheckIn(ctx context.Context, playerID, roundID, operatorID uuid.UUID) (domain.Participation, error) {
	var out domain.Participation
	err := s.runner.InTx(ctx, func(r repo.Repos) error {
		ok, err := r.Leagues.CanManageRound(ctx, operatorID, roundID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: operator lacks round-management authority", domain.ErrForbidden)
		}

		p, err := r.Participations.GetByPlayerRound(ctx, playerID, roundID)
		if err != nil {
			return err
		}
		p, err = r.Participations.GetForUpdate(ctx, p.ID)
		if err != nil {
			return err
		}
		if !p.Status.CanTransitionTo(domain.StatusCheckedIn) {
			return fmt.Errorf("%w: cannot check in from %s", domain.ErrInvalidTransition, p.Status)
		}

		now := time.Now().UTC()
		p.Status = domain.StatusCheckedIn
		p.PhysicalCheckinTime = &now

		out, err = r.Participations.UpdateState(ctx, p)
		return err
	})
	if err != nil {
		return domain.Participation{}, fmt.Errorf("service.ParticipationService.CheckIn: %w", err)
	}
	return out, nil
}

// MarkDNF transitions any non-terminal participation to dnf. The actor must
// hold round-management authority or be the creator of the participation's
// card. On success the bet-forfeiture hook fires (after commit, so the bet
// collaborator never observes an uncommitted DNF), and if the DNF resolved
// the round's last pending carded score the round is closed. Returns
// domain.ErrAlreadyTerminal for completed or dnf participations.
func (s *ParticipationService) MarkDNF(ctx context.Context, participationID, actorID uuid.UUID) (domain.Participation, error) {
	var (
		out   domain.Participation
		ready bool
	)
	err := s.runner.InTx(ctx, func(r repo.Repos) error {
		p, err := r.Participations.GetForUpdate(ctx, participationID)
		if err != nil {
			return err
		}
		if p.Status.Terminal() {
			return fmt.Errorf("%w: participation is %s", domain.ErrAlreadyTerminal, p.Status)
		}

		allowed, err := s.canMarkDNF(ctx, r, p, actorID)
		if err != nil {
			return err
		}
		if !allowed {
			return fmt.Errorf("%w: actor may not mark this participation dnf", domain.ErrForbidden)
		}

		p.Status = domain.StatusDNF
		out, err = r.Participations.UpdateState(ctx, p)
		if err != nil {
			return err
		}

		// A DNF of a carded player can resolve the round's last pending
		// score, so readiness is recomputed here exactly as confirmation
		// does — otherwise the round could never close.
		if p.OnCard() {
			pending, err := r.Participations.UnconfirmedOnCards(ctx, p.RoundID)
			if err != nil {
				return err
			}
			ready = pending == 0
		}
		return nil
	})
	if err != nil {
		return domain.Participation{}, fmt.Errorf("service.ParticipationService.MarkDNF: %w", err)
	}

	if err := s.bets.ForfeitBets(ctx, out.PlayerID, out.RoundID); err != nil {
		// The DNF itself is committed; a failed hook is the bet
		// collaborator's problem to reconcile, not a reason to undo it.
		return out, fmt.Errorf("service.ParticipationService.MarkDNF: forfeit hook: %w", err)
	}

	if ready {
		if err := s.engine.CloseRound(ctx, out.RoundID); err != nil {
			// Same contract as the hook: the DNF stands, closing is
			// idempotent and retriable.
			return out, fmt.Errorf("service.ParticipationService.MarkDNF: close round: %w", err)
		}
	}
	return out, nil
}

// canMarkDNF applies the DNF authority rule: round managers always may, and
// the creator of the participation's card may while managing the card.
func (s *ParticipationService) canMarkDNF(ctx context.Context, r repo.Repos, p domain.Participation, actorID uuid.UUID) (bool, error) {
	ok, err := r.Leagues.CanManageRound(ctx, actorID, p.RoundID)
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}
	if p.CardID == nil {
		return false, nil
	}
	card, err := r.Cards.Get(ctx, *p.CardID)
	if err != nil {
		return false, err
	}
	return card.CreatorID == actorID, nil
}
