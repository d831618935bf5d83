package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/mkallio/tag-league/backend/internal/domain"
)

// TagHistoryRepo defines the persistence operations for the append-only tag
// ledger. There is intentionally no update or delete: the table carries a
// trigger that rejects both, so the ledger stays immutable even against
// buggy callers.
type TagHistoryRepo interface {
	// Append inserts one ledger entry and returns the persisted record.
	Append(ctx context.Context, h domain.TagHistory) (domain.TagHistory, error)

	// ListByPlayer returns one page of a player's ledger entries ordered by
	// assignment time ascending, optionally filtered to one season, plus
	// the total count.
	ListByPlayer(ctx context.Context, playerID uuid.UUID, seasonID *uuid.UUID, p domain.PaginationParams) ([]domain.TagHistory, int64, error)

	// DeltasByRound returns the tag movements recorded for a round: each
	// player's ledger entry for that round paired with the number they held
	// immediately before it.
	DeltasByRound(ctx context.Context, roundID uuid.UUID) ([]domain.TagDelta, error)
}

// pgTagHistoryRepo is the Postgres implementation of TagHistoryRepo.
type pgTagHistoryRepo struct {
	db db
}

// NewTagHistoryRepo constructs a TagHistoryRepo backed by the provided db connection.
func NewTagHistoryRepo(db db) TagHistoryRepo {
	return &pgTagHistoryRepo{db: db}
}

func (r *pgTagHistoryRepo) Append(ctx context.Context, h domain.TagHistory) (domain.TagHistory, error) {
	const q = `
		INSERT INTO tag_history (tag_number, player_id, season_id, round_id, assignment_date)
		VALUES (@tag_number, @player_id, @season_id, @round_id, @assignment_date)
		RETURNING id, tag_number, player_id, season_id, round_id, assignment_date, created_at`

	args := pgx.NamedArgs{
		"tag_number":      h.TagNumber,
		"player_id":       h.PlayerID,
		"season_id":       h.SeasonID,
		"round_id":        h.RoundID,
		"assignment_date": h.AssignmentDate,
	}

	row := r.db.QueryRow(ctx, q, args)
	result, err := scanTagHistory(row)
	if err != nil {
		return domain.TagHistory{}, fmt.Errorf("repo.TagHistoryRepo.Append: %w", err)
	}
	return result, nil
}

func (r *pgTagHistoryRepo) ListByPlayer(ctx context.Context, playerID uuid.UUID, seasonID *uuid.UUID, p domain.PaginationParams) ([]domain.TagHistory, int64, error) {
	const countQ = `
		SELECT count(*)
		FROM tag_history
		WHERE player_id = @player_id
		  AND (@season_id::uuid IS NULL OR season_id = @season_id)`

	var total int64
	countArgs := pgx.NamedArgs{"player_id": playerID, "season_id": seasonID}
	if err := r.db.QueryRow(ctx, countQ, countArgs).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repo.TagHistoryRepo.ListByPlayer: count: %w", err)
	}

	const q = `
		SELECT id, tag_number, player_id, season_id, round_id, assignment_date, created_at
		FROM tag_history
		WHERE player_id = @player_id
		  AND (@season_id::uuid IS NULL OR season_id = @season_id)
		ORDER BY assignment_date, created_at
		LIMIT @limit OFFSET @offset`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{
		"player_id": playerID,
		"season_id": seasonID,
		"limit":     p.Limit,
		"offset":    p.Offset(),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("repo.TagHistoryRepo.ListByPlayer: %w", err)
	}
	defer rows.Close()

	entries := []domain.TagHistory{}
	for rows.Next() {
		h, err := scanTagHistory(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("repo.TagHistoryRepo.ListByPlayer: scan: %w", err)
		}
		entries = append(entries, h)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repo.TagHistoryRepo.ListByPlayer: rows: %w", err)
	}
	return entries, total, nil
}

// DeltasByRound pairs each ledger entry for the round with the player's
// previous entry in the same season via a correlated subquery. Initial
// assignments have no predecessor; before then equals after.
func (r *pgTagHistoryRepo) DeltasByRound(ctx context.Context, roundID uuid.UUID) ([]domain.TagDelta, error) {
	const q = `
		SELECT h.player_id,
		       COALESCE((
		           SELECT h2.tag_number
		           FROM tag_history h2
		           WHERE h2.player_id = h.player_id
		             AND h2.season_id = h.season_id
		             AND h2.created_at < h.created_at
		           ORDER BY h2.created_at DESC
		           LIMIT 1
		       ), h.tag_number) AS before_tag,
		       h.tag_number AS after_tag
		FROM tag_history h
		WHERE h.round_id = @round_id
		ORDER BY after_tag`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"round_id": roundID})
	if err != nil {
		return nil, fmt.Errorf("repo.TagHistoryRepo.DeltasByRound: %w", err)
	}
	defer rows.Close()

	deltas := []domain.TagDelta{}
	for rows.Next() {
		var (
			d        domain.TagDelta
			playerID pgtype.UUID
		)
		if err := rows.Scan(&playerID, &d.BeforeTag, &d.AfterTag); err != nil {
			return nil, fmt.Errorf("repo.TagHistoryRepo.DeltasByRound: scan: %w", err)
		}
		d.PlayerID = uuid.UUID(playerID.Bytes)
		deltas = append(deltas, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.TagHistoryRepo.DeltasByRound: rows: %w", err)
	}
	return deltas, nil
}

// scanTagHistory maps a single database row into a domain.TagHistory.
func scanTagHistory(s scanner) (domain.TagHistory, error) {
	var (
		h        domain.TagHistory
		id       pgtype.UUID
		playerID pgtype.UUID
		seasonID pgtype.UUID
		roundID  pgtype.UUID
	)
	err := s.Scan(&id, &h.TagNumber, &playerID, &seasonID, &roundID, &h.AssignmentDate, &h.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.TagHistory{}, domain.ErrNotFound
		}
		return domain.TagHistory{}, err
	}
	h.ID = uuid.UUID(id.Bytes)
	h.PlayerID = uuid.UUID(playerID.Bytes)
	h.SeasonID = uuid.UUID(seasonID.Bytes)
	if roundID.Valid {
		rid := uuid.UUID(roundID.Bytes)
		h.RoundID = &rid
	}
	return h, nil
}
