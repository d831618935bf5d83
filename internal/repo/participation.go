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

// ParticipationRepo defines the persistence operations for Participations.
// The service layer depends on this interface, not the concrete Postgres
// implementation, which allows the services to be unit-tested with fakes.
type ParticipationRepo interface {
	// Create inserts a new participation and returns the persisted record.
	// Returns domain.ErrDuplicateParticipation if the player already has a
	// participation for the round.
	Create(ctx context.Context, p domain.Participation) (domain.Participation, error)

	// Get retrieves a participation by its UUID primary key.
	// Returns domain.ErrNotFound if it does not exist.
	Get(ctx context.Context, id uuid.UUID) (domain.Participation, error)

	// GetForUpdate is Get with a FOR UPDATE row lock. Call inside a
	// transaction before mutating the participation.
	GetForUpdate(ctx context.Context, id uuid.UUID) (domain.Participation, error)

	// GetByPlayerRound retrieves the participation for a (player, round) pair.
	GetByPlayerRound(ctx context.Context, playerID, roundID uuid.UUID) (domain.Participation, error)

	// ListByRound returns all participations in a round, ordered by creation time.
	ListByRound(ctx context.Context, roundID uuid.UUID) ([]domain.Participation, error)

	// ListByCard returns all participations linked to a card.
	ListByCard(ctx context.Context, cardID uuid.UUID) ([]domain.Participation, error)

	// ListByCardForUpdate is ListByCard with FOR UPDATE row locks, ordered
	// by id so concurrent confirmations acquire locks in the same order.
	ListByCardForUpdate(ctx context.Context, cardID uuid.UUID) ([]domain.Participation, error)

	// ListCompletedByRound returns the round's completed participations —
	// the reassignment input set P.
	ListCompletedByRound(ctx context.Context, roundID uuid.UUID) ([]domain.Participation, error)

	// UpdateState overwrites the mutable lifecycle fields (status, card,
	// check-in time, score and confirmation fields) and returns the updated
	// record. Returns domain.ErrNotFound if the row does not exist.
	UpdateState(ctx context.Context, p domain.Participation) (domain.Participation, error)

	// AssignCard links the given participations to a card in one statement.
	AssignCard(ctx context.Context, participationIDs []uuid.UUID, cardID uuid.UUID) error

	// UnconfirmedOnCards counts the round's carded participations still in
	// checked_in status. Zero means every card is fully confirmed (or dnf)
	// and the round is ready to close. Recomputed from rows on every call —
	// there is deliberately no cached readiness flag to drift.
	UnconfirmedOnCards(ctx context.Context, roundID uuid.UUID) (int, error)

	// CompletedCountInLeague counts a player's completed participations
	// across every round of every season in the league.
	CompletedCountInLeague(ctx context.Context, playerID, leagueID uuid.UUID) (int, error)

	// CompletedCountInRounds counts a player's completed participations
	// within the given rounds.
	CompletedCountInRounds(ctx context.Context, playerID uuid.UUID, roundIDs []uuid.UUID) (int, error)

	// ListStale returns scores entered before the cutoff that are still
	// awaiting confirmation, oldest first.
	ListStale(ctx context.Context, enteredBefore time.Time) ([]domain.StaleScore, error)
}

// pgParticipationRepo is the Postgres implementation of ParticipationRepo.
type pgParticipationRepo struct {
	db db
}

// NewParticipationRepo constructs a ParticipationRepo backed by the provided
// db connection.
func NewParticipationRepo(db db) ParticipationRepo {
	return &pgParticipationRepo{db: db}
}

const participationCols = `id, player_id, round_id, card_id, status,
	online_registration_time, physical_checkin_time,
	score, score_entered_by, score_entered_at,
	score_confirmed, score_confirmed_by, score_confirmed_at, score_disputed,
	created_at, updated_at`

func (r *pgParticipationRepo) Create(ctx context.Context, p domain.Participation) (domain.Participation, error) {
	const q = `
		INSERT INTO participations (player_id, round_id, status, online_registration_time)
		VALUES (@player_id, @round_id, @status, @online_registration_time)
		RETURNING ` + participationCols

	args := pgx.NamedArgs{
		"player_id":                p.PlayerID,
		"round_id":                 p.RoundID,
		"status":                   p.Status,
		"online_registration_time": p.OnlineRegistrationTime,
	}

	row := r.db.QueryRow(ctx, q, args)
	result, err := scanParticipation(row)
	if err != nil {
		if isUniqueViolation(err, "uq_participation_player_round") {
			return domain.Participation{}, fmt.Errorf("repo.ParticipationRepo.Create: %w", domain.ErrDuplicateParticipation)
		}
		return domain.Participation{}, fmt.Errorf("repo.ParticipationRepo.Create: %w", err)
	}
	return result, nil
}

func (r *pgParticipationRepo) Get(ctx context.Context, id uuid.UUID) (domain.Participation, error) {
	const q = `SELECT ` + participationCols + ` FROM participations WHERE id = @id`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id})
	result, err := scanParticipation(row)
	if err != nil {
		return domain.Participation{}, fmt.Errorf("repo.ParticipationRepo.Get: %w", err)
	}
	return result, nil
}

func (r *pgParticipationRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (domain.Participation, error) {
	const q = `SELECT ` + participationCols + ` FROM participations WHERE id = @id FOR UPDATE`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id})
	result, err := scanParticipation(row)
	if err != nil {
		return domain.Participation{}, fmt.Errorf("repo.ParticipationRepo.GetForUpdate: %w", err)
	}
	return result, nil
}

func (r *pgParticipationRepo) GetByPlayerRound(ctx context.Context, playerID, roundID uuid.UUID) (domain.Participation, error) {
	const q = `
		SELECT ` + participationCols + `
		FROM participations
		WHERE player_id = @player_id AND round_id = @round_id`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"player_id": playerID, "round_id": roundID})
	result, err := scanParticipation(row)
	if err != nil {
		return domain.Participation{}, fmt.Errorf("repo.ParticipationRepo.GetByPlayerRound: %w", err)
	}
	return result, nil
}

func (r *pgParticipationRepo) ListByRound(ctx context.Context, roundID uuid.UUID) ([]domain.Participation, error) {
	const q = `
		SELECT ` + participationCols + `
		FROM participations
		WHERE round_id = @round_id
		ORDER BY created_at`

	return r.list(ctx, "ListByRound", q, pgx.NamedArgs{"round_id": roundID})
}

func (r *pgParticipationRepo) ListByCard(ctx context.Context, cardID uuid.UUID) ([]domain.Participation, error) {
	const q = `
		SELECT ` + participationCols + `
		FROM participations
		WHERE card_id = @card_id
		ORDER BY id`

	return r.list(ctx, "ListByCard", q, pgx.NamedArgs{"card_id": cardID})
}

func (r *pgParticipationRepo) ListByCardForUpdate(ctx context.Context, cardID uuid.UUID) ([]domain.Participation, error) {
	const q = `
		SELECT ` + participationCols + `
		FROM participations
		WHERE card_id = @card_id
		ORDER BY id
		FOR UPDATE`

	return r.list(ctx, "ListByCardForUpdate", q, pgx.NamedArgs{"card_id": cardID})
}

func (r *pgParticipationRepo) ListCompletedByRound(ctx context.Context, roundID uuid.UUID) ([]domain.Participation, error) {
	const q = `
		SELECT ` + participationCols + `
		FROM participations
		WHERE round_id = @round_id AND status = 'completed'
		ORDER BY id`

	return r.list(ctx, "ListCompletedByRound", q, pgx.NamedArgs{"round_id": roundID})
}

func (r *pgParticipationRepo) UpdateState(ctx context.Context, p domain.Participation) (domain.Participation, error) {
	const q = `
		UPDATE participations
		SET card_id               = @card_id,
		    status                = @status,
		    physical_checkin_time = @physical_checkin_time,
		    score                 = @score,
		    score_entered_by      = @score_entered_by,
		    score_entered_at      = @score_entered_at,
		    score_confirmed       = @score_confirmed,
		    score_confirmed_by    = @score_confirmed_by,
		    score_confirmed_at    = @score_confirmed_at,
		    score_disputed        = @score_disputed,
		    updated_at            = now()
		WHERE id = @id
		RETURNING ` + participationCols

	args := pgx.NamedArgs{
		"id":                    p.ID,
		"card_id":               p.CardID,
		"status":                p.Status,
		"physical_checkin_time": p.PhysicalCheckinTime,
		"score":                 p.Score,
		"score_entered_by":      p.ScoreEnteredBy,
		"score_entered_at":      p.ScoreEnteredAt,
		"score_confirmed":       p.ScoreConfirmed,
		"score_confirmed_by":    p.ScoreConfirmedBy,
		"score_confirmed_at":    p.ScoreConfirmedAt,
		"score_disputed":        p.ScoreDisputed,
	}

	row := r.db.QueryRow(ctx, q, args)
	result, err := scanParticipation(row)
	if err != nil {
		return domain.Participation{}, fmt.Errorf("repo.ParticipationRepo.UpdateState: %w", err)
	}
	return result, nil
}

func (r *pgParticipationRepo) AssignCard(ctx context.Context, participationIDs []uuid.UUID, cardID uuid.UUID) error {
	const q = `
		UPDATE participations
		SET card_id = @card_id, updated_at = now()
		WHERE id = ANY(@ids)`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"card_id": cardID, "ids": participationIDs})
	if err != nil {
		return fmt.Errorf("repo.ParticipationRepo.AssignCard: %w", err)
	}
	if int(tag.RowsAffected()) != len(participationIDs) {
		return fmt.Errorf("repo.ParticipationRepo.AssignCard: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *pgParticipationRepo) UnconfirmedOnCards(ctx context.Context, roundID uuid.UUID) (int, error) {
	const q = `
		SELECT count(*)
		FROM participations
		WHERE round_id = @round_id
		  AND card_id IS NOT NULL
		  AND status = 'checked_in'`

	var n int
	if err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"round_id": roundID}).Scan(&n); err != nil {
		return 0, fmt.Errorf("repo.ParticipationRepo.UnconfirmedOnCards: %w", err)
	}
	return n, nil
}

func (r *pgParticipationRepo) CompletedCountInLeague(ctx context.Context, playerID, leagueID uuid.UUID) (int, error) {
	const q = `
		SELECT count(*)
		FROM participations p
		JOIN rounds r ON r.id = p.round_id
		JOIN seasons s ON s.id = r.season_id
		WHERE p.player_id = @player_id
		  AND s.league_id = @league_id
		  AND p.status = 'completed'`

	var n int
	if err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"player_id": playerID, "league_id": leagueID}).Scan(&n); err != nil {
		return 0, fmt.Errorf("repo.ParticipationRepo.CompletedCountInLeague: %w", err)
	}
	return n, nil
}

func (r *pgParticipationRepo) CompletedCountInRounds(ctx context.Context, playerID uuid.UUID, roundIDs []uuid.UUID) (int, error) {
	if len(roundIDs) == 0 {
		return 0, nil
	}

	const q = `
		SELECT count(*)
		FROM participations
		WHERE player_id = @player_id
		  AND round_id = ANY(@round_ids)
		  AND status = 'completed'`

	var n int
	if err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"player_id": playerID, "round_ids": roundIDs}).Scan(&n); err != nil {
		return 0, fmt.Errorf("repo.ParticipationRepo.CompletedCountInRounds: %w", err)
	}
	return n, nil
}

func (r *pgParticipationRepo) ListStale(ctx context.Context, enteredBefore time.Time) ([]domain.StaleScore, error) {
	const q = `
		SELECT id, player_id, round_id, card_id, score_entered_at
		FROM participations
		WHERE status = 'checked_in'
		  AND score IS NOT NULL
		  AND score_confirmed = false
		  AND score_entered_at < @entered_before
		ORDER BY score_entered_at`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"entered_before": enteredBefore})
	if err != nil {
		return nil, fmt.Errorf("repo.ParticipationRepo.ListStale: %w", err)
	}
	defer rows.Close()

	stale := []domain.StaleScore{}
	for rows.Next() {
		var (
			s         domain.StaleScore
			id        pgtype.UUID
			playerID  pgtype.UUID
			roundID   pgtype.UUID
			cardID    pgtype.UUID
			enteredAt pgtype.Timestamptz
		)
		if err := rows.Scan(&id, &playerID, &roundID, &cardID, &enteredAt); err != nil {
			return nil, fmt.Errorf("repo.ParticipationRepo.ListStale: scan: %w", err)
		}
		s.ParticipationID = uuid.UUID(id.Bytes)
		s.PlayerID = uuid.UUID(playerID.Bytes)
		s.RoundID = uuid.UUID(roundID.Bytes)
		if cardID.Valid {
			s.CardID = uuid.UUID(cardID.Bytes)
		}
		s.EnteredAt = enteredAt.Time
		stale = append(stale, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.ParticipationRepo.ListStale: rows: %w", err)
	}
	return stale, nil
}

func (r *pgParticipationRepo) list(ctx context.Context, op, q string, args pgx.NamedArgs) ([]domain.Participation, error) {
	rows, err := r.db.Query(ctx, q, args)
	if err != nil {
		return nil, fmt.Errorf("repo.ParticipationRepo.%s: %w", op, err)
	}
	defer rows.Close()

	parts := []domain.Participation{}
	for rows.Next() {
		p, err := scanParticipation(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.ParticipationRepo.%s: scan: %w", op, err)
		}
		parts = append(parts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.ParticipationRepo.%s: rows: %w", op, err)
	}
	return parts, nil
}

// scanParticipation maps a single database row into a domain.Participation.
// It handles the UUID conversions and the many nullable score columns.
func scanParticipation(s scanner) (domain.Participation, error) {
	var (
		p           domain.Participation
		id          pgtype.UUID
		playerID    pgtype.UUID
		roundID     pgtype.UUID
		cardID      pgtype.UUID
		regTime     pgtype.Timestamptz
		checkinTime pgtype.Timestamptz
		score       pgtype.Int4
		enteredBy   pgtype.UUID
		enteredAt   pgtype.Timestamptz
		confirmedBy pgtype.UUID
		confirmedAt pgtype.Timestamptz
	)

	err := s.Scan(&id, &playerID, &roundID, &cardID, &p.Status,
		&regTime, &checkinTime,
		&score, &enteredBy, &enteredAt,
		&p.ScoreConfirmed, &confirmedBy, &confirmedAt, &p.ScoreDisputed,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Participation{}, domain.ErrNotFound
		}
		return domain.Participation{}, err
	}

	p.ID = uuid.UUID(id.Bytes)
	p.PlayerID = uuid.UUID(playerID.Bytes)
	p.RoundID = uuid.UUID(roundID.Bytes)
	if cardID.Valid {
		cid := uuid.UUID(cardID.Bytes)
		p.CardID = &cid
	}
	if regTime.Valid {
		t := regTime.Time
		p.OnlineRegistrationTime = &t
	}
	if checkinTime.Valid {
		t := checkinTime.Time
		p.PhysicalCheckinTime = &t
	}
	if score.Valid {
		v := int(score.Int32)
		p.Score = &v
	}
	if enteredBy.Valid {
		u := uuid.UUID(enteredBy.Bytes)
		p.ScoreEnteredBy = &u
	}
	if enteredAt.Valid {
		t := enteredAt.Time
		p.ScoreEnteredAt = &t
	}
	if confirmedBy.Valid {
		u := uuid.UUID(confirmedBy.Bytes)
		p.ScoreConfirmedBy = &u
	}
	if confirmedAt.Valid {
		t := confirmedAt.Time
		p.ScoreConfirmedAt = &t
	}

	return p, nil
}
