package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// LeagueRepo answers the authority questions the engine delegates to the
// league structure: a player manages a round when they organize the round's
// league, are an assigned assistant for it, or hold the TagMaster role.
type LeagueRepo interface {
	// CanManageRound reports whether the player holds round-management
	// authority over the given round.
	CanManageRound(ctx context.Context, playerID, roundID uuid.UUID) (bool, error)
}

type pgLeagueRepo struct {
	db db
}

// NewLeagueRepo constructs a LeagueRepo backed by the provided db connection.
func NewLeagueRepo(db db) LeagueRepo {
	return &pgLeagueRepo{db: db}
}

func (r *pgLeagueRepo) CanManageRound(ctx context.Context, playerID, roundID uuid.UUID) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1
			FROM rounds r
			JOIN seasons s ON s.id = r.season_id
			JOIN leagues l ON l.id = s.league_id
			LEFT JOIN league_assistants la
			       ON la.league_id = l.id AND la.player_id = @player_id
			WHERE r.id = @round_id
			  AND (l.organizer_id = @player_id
			       OR la.player_id IS NOT NULL
			       OR EXISTS (
			              SELECT 1 FROM players p
			              WHERE p.id = @player_id
			                AND 'TagMaster' = ANY (p.roles)))
		)`

	var ok bool
	err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"player_id": playerID, "round_id": roundID}).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("repo.LeagueRepo.CanManageRound: %w", err)
	}
	return ok, nil
}
