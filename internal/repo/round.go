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

// RoundRepo defines the persistence operations the engine needs on rounds.
// Round CRUD itself belongs to an external collaborator; the engine only
// reads rounds and drives their finalization state.
type RoundRepo interface {
	// Get retrieves a round by its UUID primary key.
	// Returns domain.ErrNotFound if it does not exist.
	Get(ctx context.Context, id uuid.UUID) (domain.Round, error)

	// GetForUpdate is Get with a FOR UPDATE row lock. The round-close
	// transaction takes this lock first so concurrent closes serialize.
	GetForUpdate(ctx context.Context, id uuid.UUID) (domain.Round, error)

	// SetStatus moves the round's finalization state.
	SetStatus(ctx context.Context, id uuid.UUID, status domain.RoundStatus) error

	// RecentRoundIDs returns the ids of the season's most recent rounds by
	// round date descending, capped at limit.
	RecentRoundIDs(ctx context.Context, seasonID uuid.UUID, limit int) ([]uuid.UUID, error)
}

// SeasonRepo reads seasons. Season CRUD is external; the engine needs the
// season only to find its league and date range.
type SeasonRepo interface {
	// Get retrieves a season by its UUID primary key.
	// Returns domain.ErrNotFound if it does not exist.
	Get(ctx context.Context, id uuid.UUID) (domain.Season, error)
}

type pgRoundRepo struct {
	db db
}

// NewRoundRepo constructs a RoundRepo backed by the provided db connection.
func NewRoundRepo(db db) RoundRepo {
	return &pgRoundRepo{db: db}
}

func (r *pgRoundRepo) Get(ctx context.Context, id uuid.UUID) (domain.Round, error) {
	const q = `
		SELECT id, season_id, creator_id, date, course_name, status, created_at, updated_at
		FROM rounds
		WHERE id = @id`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id})
	result, err := scanRound(row)
	if err != nil {
		return domain.Round{}, fmt.Errorf("repo.RoundRepo.Get: %w", err)
	}
	return result, nil
}

func (r *pgRoundRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (domain.Round, error) {
	const q = `
		SELECT id, season_id, creator_id, date, course_name, status, created_at, updated_at
		FROM rounds
		WHERE id = @id
		FOR UPDATE`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id})
	result, err := scanRound(row)
	if err != nil {
		return domain.Round{}, fmt.Errorf("repo.RoundRepo.GetForUpdate: %w", err)
	}
	return result, nil
}

func (r *pgRoundRepo) SetStatus(ctx context.Context, id uuid.UUID, status domain.RoundStatus) error {
	const q = `UPDATE rounds SET status = @status, updated_at = now() WHERE id = @id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id, "status": status})
	if err != nil {
		return fmt.Errorf("repo.RoundRepo.SetStatus: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.RoundRepo.SetStatus: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *pgRoundRepo) RecentRoundIDs(ctx context.Context, seasonID uuid.UUID, limit int) ([]uuid.UUID, error) {
	const q = `
		SELECT id
		FROM rounds
		WHERE season_id = @season_id
		ORDER BY date DESC, created_at DESC
		LIMIT @limit`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"season_id": seasonID, "limit": limit})
	if err != nil {
		return nil, fmt.Errorf("repo.RoundRepo.RecentRoundIDs: %w", err)
	}
	defer rows.Close()

	ids := []uuid.UUID{}
	for rows.Next() {
		var id pgtype.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("repo.RoundRepo.RecentRoundIDs: scan: %w", err)
		}
		ids = append(ids, uuid.UUID(id.Bytes))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.RoundRepo.RecentRoundIDs: rows: %w", err)
	}
	return ids, nil
}

// scanRound maps a single database row into a domain.Round.
func scanRound(s scanner) (domain.Round, error) {
	var (
		r         domain.Round
		id        pgtype.UUID
		seasonID  pgtype.UUID
		creatorID pgtype.UUID
		date      pgtype.Date
	)
	err := s.Scan(&id, &seasonID, &creatorID, &date, &r.CourseName, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Round{}, domain.ErrNotFound
		}
		return domain.Round{}, err
	}
	r.ID = uuid.UUID(id.Bytes)
	r.SeasonID = uuid.UUID(seasonID.Bytes)
	r.CreatorID = uuid.UUID(creatorID.Bytes)
	r.Date = date.Time
	return r, nil
}

type pgSeasonRepo struct {
	db db
}

// NewSeasonRepo constructs a SeasonRepo backed by the provided db connection.
func NewSeasonRepo(db db) SeasonRepo {
	return &pgSeasonRepo{db: db}
}

func (r *pgSeasonRepo) Get(ctx context.Context, id uuid.UUID) (domain.Season, error) {
	const q = `
		SELECT id, league_id, name, start_date, end_date
		FROM seasons
		WHERE id = @id`

	var (
		s         domain.Season
		sid       pgtype.UUID
		leagueID  pgtype.UUID
		startDate pgtype.Date
		endDate   pgtype.Date
	)
	err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}).Scan(&sid, &leagueID, &s.Name, &startDate, &endDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Season{}, fmt.Errorf("repo.SeasonRepo.Get: %w", domain.ErrNotFound)
		}
		return domain.Season{}, fmt.Errorf("repo.SeasonRepo.Get: %w", err)
	}
	s.ID = uuid.UUID(sid.Bytes)
	s.LeagueID = uuid.UUID(leagueID.Bytes)
	s.StartDate = startDate.Time
	s.EndDate = endDate.Time
	return s, nil
}
