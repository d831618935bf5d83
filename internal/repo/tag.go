package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/mkallio/tag-league/backend/internal/domain"
)

// TagRepo defines the persistence operations for the per-season Tag rows.
// Tags are the only mutable ranking projection; every mutation route goes
// through the tag engine, which relies on the locking variants here.
type TagRepo interface {
	// Create inserts a tag row. Returns domain.ErrReassignmentConflict when
	// a concurrent writer took the same (season, tag_number) or (player,
	// season) slot — the caller should retry its transaction.
	Create(ctx context.Context, t domain.Tag) (domain.Tag, error)

	// GetByPlayerSeason retrieves a player's current tag in a season.
	// Returns domain.ErrNotFound if the player holds no tag.
	GetByPlayerSeason(ctx context.Context, playerID, seasonID uuid.UUID) (domain.Tag, error)

	// ListBySeason returns all tags in a season ordered by tag_number.
	ListBySeason(ctx context.Context, seasonID uuid.UUID) ([]domain.Tag, error)

	// LockSeason returns all tags in a season ordered by tag_number, locking
	// every row FOR UPDATE. Initial assignment serializes against concurrent
	// registrations and round closes through this lock.
	LockSeason(ctx context.Context, seasonID uuid.UUID) ([]domain.Tag, error)

	// LockPlayers returns the tags of the given players in a season ordered
	// by tag_number, locking the rows FOR UPDATE. The deterministic order
	// keeps concurrent lockers from deadlocking.
	LockPlayers(ctx context.Context, seasonID uuid.UUID, playerIDs []uuid.UUID) ([]domain.Tag, error)

	// DeferSeasonNumberCheck defers the season+tag_number uniqueness
	// constraint until commit. Call inside the reassignment transaction so
	// permuting tag numbers does not trip the constraint mid-update.
	DeferSeasonNumberCheck(ctx context.Context) error

	// UpdateNumber rewrites one tag's number and assignment date.
	// Returns domain.ErrNotFound if the tag row does not exist.
	UpdateNumber(ctx context.Context, tagID uuid.UUID, number int, assignedAt time.Time) error

	// ListStandings returns one page of the season standings (tags joined
	// with player names, ordered by tag_number) plus the total row count.
	// The Eligible flag is left false; the standings service decorates it.
	ListStandings(ctx context.Context, seasonID uuid.UUID, p domain.PaginationParams) ([]domain.Standing, int64, error)
}

// pgTagRepo is the Postgres implementation of TagRepo.
type pgTagRepo struct {
	db db
}

// NewTagRepo constructs a TagRepo backed by the provided db connection.
func NewTagRepo(db db) TagRepo {
	return &pgTagRepo{db: db}
}

func (r *pgTagRepo) Create(ctx context.Context, t domain.Tag) (domain.Tag, error) {
	const q = `
		INSERT INTO tags (player_id, season_id, tag_number, assignment_date)
		VALUES (@player_id, @season_id, @tag_number, @assignment_date)
		RETURNING id, player_id, season_id, tag_number, assignment_date, created_at, updated_at`

	args := pgx.NamedArgs{
		"player_id":       t.PlayerID,
		"season_id":       t.SeasonID,
		"tag_number":      t.TagNumber,
		"assignment_date": t.AssignmentDate,
	}

	row := r.db.QueryRow(ctx, q, args)
	result, err := scanTag(row)
	if err != nil {
		if isUniqueViolation(err, "") {
			return domain.Tag{}, fmt.Errorf("repo.TagRepo.Create: %w", domain.ErrReassignmentConflict)
		}
		return domain.Tag{}, fmt.Errorf("repo.TagRepo.Create: %w", err)
	}
	return result, nil
}

func (r *pgTagRepo) GetByPlayerSeason(ctx context.Context, playerID, seasonID uuid.UUID) (domain.Tag, error) {
	const q = `
		SELECT id, player_id, season_id, tag_number, assignment_date, created_at, updated_at
		FROM tags
		WHERE player_id = @player_id AND season_id = @season_id`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"player_id": playerID, "season_id": seasonID})
	result, err := scanTag(row)
	if err != nil {
		return domain.Tag{}, fmt.Errorf("repo.TagRepo.GetByPlayerSeason: %w", err)
	}
	return result, nil
}

func (r *pgTagRepo) ListBySeason(ctx context.Context, seasonID uuid.UUID) ([]domain.Tag, error) {
	const q = `
		SELECT id, player_id, season_id, tag_number, assignment_date, created_at, updated_at
		FROM tags
		WHERE season_id = @season_id
		ORDER BY tag_number`

	return r.list(ctx, "ListBySeason", q, pgx.NamedArgs{"season_id": seasonID})
}

func (r *pgTagRepo) LockSeason(ctx context.Context, seasonID uuid.UUID) ([]domain.Tag, error) {
	const q = `
		SELECT id, player_id, season_id, tag_number, assignment_date, created_at, updated_at
		FROM tags
		WHERE season_id = @season_id
		ORDER BY tag_number
		FOR UPDATE`

	return r.list(ctx, "LockSeason", q, pgx.NamedArgs{"season_id": seasonID})
}

func (r *pgTagRepo) LockPlayers(ctx context.Context, seasonID uuid.UUID, playerIDs []uuid.UUID) ([]domain.Tag, error) {
	const q = `
		SELECT id, player_id, season_id, tag_number, assignment_date, created_at, updated_at
		FROM tags
		WHERE season_id = @season_id AND player_id = ANY(@player_ids)
		ORDER BY tag_number
		FOR UPDATE`

	return r.list(ctx, "LockPlayers", q, pgx.NamedArgs{"season_id": seasonID, "player_ids": playerIDs})
}

func (r *pgTagRepo) DeferSeasonNumberCheck(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, `SET CONSTRAINTS uq_tag_season_number DEFERRED`); err != nil {
		return fmt.Errorf("repo.TagRepo.DeferSeasonNumberCheck: %w", err)
	}
	return nil
}

func (r *pgTagRepo) UpdateNumber(ctx context.Context, tagID uuid.UUID, number int, assignedAt time.Time) error {
	const q = `
		UPDATE tags
		SET tag_number = @tag_number, assignment_date = @assignment_date, updated_at = now()
		WHERE id = @id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": tagID, "tag_number": number, "assignment_date": assignedAt})
	if err != nil {
		return fmt.Errorf("repo.TagRepo.UpdateNumber: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.TagRepo.UpdateNumber: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *pgTagRepo) ListStandings(ctx context.Context, seasonID uuid.UUID, p domain.PaginationParams) ([]domain.Standing, int64, error) {
	const countQ = `SELECT count(*) FROM tags WHERE season_id = @season_id`

	var total int64
	if err := r.db.QueryRow(ctx, countQ, pgx.NamedArgs{"season_id": seasonID}).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repo.TagRepo.ListStandings: count: %w", err)
	}

	const q = `
		SELECT t.player_id, pl.name, t.tag_number, t.assignment_date
		FROM tags t
		JOIN players pl ON pl.id = t.player_id
		WHERE t.season_id = @season_id
		ORDER BY t.tag_number
		LIMIT @limit OFFSET @offset`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{
		"season_id": seasonID,
		"limit":     p.Limit,
		"offset":    p.Offset(),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("repo.TagRepo.ListStandings: %w", err)
	}
	defer rows.Close()

	standings := []domain.Standing{}
	for rows.Next() {
		var (
			s        domain.Standing
			playerID pgtype.UUID
		)
		if err := rows.Scan(&playerID, &s.PlayerName, &s.TagNumber, &s.AssignmentDate); err != nil {
			return nil, 0, fmt.Errorf("repo.TagRepo.ListStandings: scan: %w", err)
		}
		s.PlayerID = uuid.UUID(playerID.Bytes)
		standings = append(standings, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repo.TagRepo.ListStandings: rows: %w", err)
	}
	return standings, total, nil
}

func (r *pgTagRepo) list(ctx context.Context, op, q string, args pgx.NamedArgs) ([]domain.Tag, error) {
	rows, err := r.db.Query(ctx, q, args)
	if err != nil {
		return nil, fmt.Errorf("repo.TagRepo.%s: %w", op, err)
	}
	defer rows.Close()

	tags := []domain.Tag{}
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.TagRepo.%s: scan: %w", op, err)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.TagRepo.%s: rows: %w", op, err)
	}
	return tags, nil
}

// scanTag maps a single database row into a domain.Tag.
func scanTag(s scanner) (domain.Tag, error) {
	var (
		t        domain.Tag
		id       pgtype.UUID
		playerID pgtype.UUID
		seasonID pgtype.UUID
	)
	err := s.Scan(&id, &playerID, &seasonID, &t.TagNumber, &t.AssignmentDate, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Tag{}, domain.ErrNotFound
		}
		return domain.Tag{}, err
	}
	t.ID = uuid.UUID(id.Bytes)
	t.PlayerID = uuid.UUID(playerID.Bytes)
	t.SeasonID = uuid.UUID(seasonID.Bytes)
	return t, nil
}
