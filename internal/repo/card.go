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

// CardRepo defines the persistence operations for Cards. Card membership
// lives on the participations table (card_id), so member queries belong to
// ParticipationRepo.
type CardRepo interface {
	// Create inserts a new card and returns the persisted record.
	Create(ctx context.Context, c domain.Card) (domain.Card, error)

	// Get retrieves a card by its UUID primary key.
	// Returns domain.ErrNotFound if it does not exist.
	Get(ctx context.Context, id uuid.UUID) (domain.Card, error)

	// ListByRound returns all cards in a round ordered by creation time.
	ListByRound(ctx context.Context, roundID uuid.UUID) ([]domain.Card, error)
}

// pgCardRepo is the Postgres implementation of CardRepo.
type pgCardRepo struct {
	db db
}

// NewCardRepo constructs a CardRepo backed by the provided db connection.
func NewCardRepo(db db) CardRepo {
	return &pgCardRepo{db: db}
}

func (r *pgCardRepo) Create(ctx context.Context, c domain.Card) (domain.Card, error) {
	const q = `
		INSERT INTO cards (round_id, creator_id)
		VALUES (@round_id, @creator_id)
		RETURNING id, round_id, creator_id, created_at, updated_at`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"round_id": c.RoundID, "creator_id": c.CreatorID})
	result, err := scanCard(row)
	if err != nil {
		return domain.Card{}, fmt.Errorf("repo.CardRepo.Create: %w", err)
	}
	return result, nil
}

func (r *pgCardRepo) Get(ctx context.Context, id uuid.UUID) (domain.Card, error) {
	const q = `
		SELECT id, round_id, creator_id, created_at, updated_at
		FROM cards
		WHERE id = @id`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id})
	result, err := scanCard(row)
	if err != nil {
		return domain.Card{}, fmt.Errorf("repo.CardRepo.Get: %w", err)
	}
	return result, nil
}

func (r *pgCardRepo) ListByRound(ctx context.Context, roundID uuid.UUID) ([]domain.Card, error) {
	const q = `
		SELECT id, round_id, creator_id, created_at, updated_at
		FROM cards
		WHERE round_id = @round_id
		ORDER BY created_at`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"round_id": roundID})
	if err != nil {
		return nil, fmt.Errorf("repo.CardRepo.ListByRound: %w", err)
	}
	defer rows.Close()

	cards := []domain.Card{}
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.CardRepo.ListByRound: scan: %w", err)
		}
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.CardRepo.ListByRound: rows: %w", err)
	}
	return cards, nil
}

// scanCard maps a single database row into a domain.Card.
func scanCard(s scanner) (domain.Card, error) {
	var (
		c         domain.Card
		id        pgtype.UUID
		roundID   pgtype.UUID
		creatorID pgtype.UUID
	)
	err := s.Scan(&id, &roundID, &creatorID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Card{}, domain.ErrNotFound
		}
		return domain.Card{}, err
	}
	c.ID = uuid.UUID(id.Bytes)
	c.RoundID = uuid.UUID(roundID.Bytes)
	c.CreatorID = uuid.UUID(creatorID.Bytes)
	return c, nil
}
