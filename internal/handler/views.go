package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/mkallio/tag-league/backend/internal/domain"
)

// Response shapes. Domain structs are never serialized directly: the wire
// format is its own contract and can evolve without touching the domain.

type participationResponse struct {
	ID                     uuid.UUID  `json:"id"`
	PlayerID               uuid.UUID  `json:"player_id"`
	RoundID                uuid.UUID  `json:"round_id"`
	CardID                 *uuid.UUID `json:"card_id,omitempty"`
	Status                 string     `json:"status"`
	OnlineRegistrationTime *time.Time `json:"online_registration_time,omitempty"`
	PhysicalCheckinTime    *time.Time `json:"physical_checkin_time,omitempty"`
	Score                  *int       `json:"score,omitempty"`
	ScoreEnteredBy         *uuid.UUID `json:"score_entered_by,omitempty"`
	ScoreEnteredAt         *time.Time `json:"score_entered_at,omitempty"`
	ScoreConfirmed         bool       `json:"score_confirmed"`
	ScoreConfirmedBy       *uuid.UUID `json:"score_confirmed_by,omitempty"`
	ScoreConfirmedAt       *time.Time `json:"score_confirmed_at,omitempty"`
	ScoreDisputed          bool       `json:"score_disputed"`
}

func toParticipationResponse(p domain.Participation) participationResponse {
	return participationResponse{
		ID:                     p.ID,
		PlayerID:               p.PlayerID,
		RoundID:                p.RoundID,
		CardID:                 p.CardID,
		Status:                 string(p.Status),
		OnlineRegistrationTime: p.OnlineRegistrationTime,
		PhysicalCheckinTime:    p.PhysicalCheckinTime,
		Score:                  p.Score,
		ScoreEnteredBy:         p.ScoreEnteredBy,
		ScoreEnteredAt:         p.ScoreEnteredAt,
		ScoreConfirmed:         p.ScoreConfirmed,
		ScoreConfirmedBy:       p.ScoreConfirmedBy,
		ScoreConfirmedAt:       p.ScoreConfirmedAt,
		ScoreDisputed:          p.ScoreDisputed,
	}
}

func toParticipationResponses(ps []domain.Participation) []participationResponse {
	out := make([]participationResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, toParticipationResponse(p))
	}
	return out
}

type cardResponse struct {
	ID        uuid.UUID `json:"id"`
	RoundID   uuid.UUID `json:"round_id"`
	CreatorID uuid.UUID `json:"creator_id"`
	CreatedAt time.Time `json:"created_at"`
}

func toCardResponse(c domain.Card) cardResponse {
	return cardResponse{ID: c.ID, RoundID: c.RoundID, CreatorID: c.CreatorID, CreatedAt: c.CreatedAt}
}

type standingResponse struct {
	PlayerID       uuid.UUID `json:"player_id"`
	PlayerName     string    `json:"player_name"`
	TagNumber      int       `json:"tag_number"`
	AssignmentDate time.Time `json:"assignment_date"`
	Eligible       bool      `json:"eligible"`
}

type tagHistoryResponse struct {
	ID             uuid.UUID  `json:"id"`
	TagNumber      int        `json:"tag_number"`
	PlayerID       uuid.UUID  `json:"player_id"`
	SeasonID       uuid.UUID  `json:"season_id"`
	RoundID        *uuid.UUID `json:"round_id,omitempty"`
	AssignmentDate time.Time  `json:"assignment_date"`
}

type cardViewResponse struct {
	Card    cardResponse            `json:"card"`
	Members []participationResponse `json:"members"`
}

type tagDeltaResponse struct {
	PlayerID  uuid.UUID `json:"player_id"`
	BeforeTag int       `json:"before_tag"`
	AfterTag  int       `json:"after_tag"`
}

type staleScoreResponse struct {
	ParticipationID uuid.UUID `json:"participation_id"`
	PlayerID        uuid.UUID `json:"player_id"`
	RoundID         uuid.UUID `json:"round_id"`
	CardID          uuid.UUID `json:"card_id"`
	EnteredAt       time.Time `json:"entered_at"`
	WaitingSeconds  int64     `json:"waiting_seconds"`
}

type roundResponse struct {
	ID         uuid.UUID `json:"id"`
	SeasonID   uuid.UUID `json:"season_id"`
	Date       time.Time `json:"date"`
	CourseName string    `json:"course_name"`
	Status     string    `json:"status"`
}

type roundDetailResponse struct {
	Round  roundResponse        `json:"round"`
	Cards  []cardViewResponse   `json:"cards"`
	Deltas []tagDeltaResponse   `json:"deltas"`
	Stale  []staleScoreResponse `json:"stale_scores"`
}

type paginationMeta struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

type pagedResponse[T any] struct {
	Data       []T            `json:"data"`
	Pagination paginationMeta `json:"pagination"`
}

// queryPagination reads ?page= and ?limit= with defaults applied.
func queryPagination(r *http.Request) domain.PaginationParams {
	var page, limit *int
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil {
		page = &v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		limit = &v
	}
	return domain.NewPaginationParams(page, limit)
}
