// Package handler implements the HTTP handlers for the tag league API.
// All handlers are methods on Server; they decode requests, call the
// service layer, and map domain errors to typed JSON failures. Methods are
// split into domain-specific files but all share the same Server struct.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mkallio/tag-league/backend/internal/domain"
)

// ParticipationServicer defines the lifecycle operations the participation
// handlers depend on. Defining the interface here (in the consumer package)
// follows the Go convention: "accept interfaces, return concrete types".
// It lets handler tests inject a mock without touching the database.
type ParticipationServicer interface {
	Register(ctx context.Context, playerID, roundID uuid.UUID) (domain.Participation, error)
	CheckIn(ctx context.Context, playerID, roundID, operatorID uuid.UUID) (domain.Participation, error)
	MarkDNF(ctx context.Context, participationID, actorID uuid.UUID) (domain.Participation, error)
}

// CardServicer defines the card workflow operations the card handlers
// depend on.
type CardServicer interface {
	CreateCard(ctx context.Context, creatorID, roundID uuid.UUID, playerIDs []uuid.UUID) (domain.Card, error)
	EnterScores(ctx context.Context, cardID, callerID uuid.UUID, scores map[uuid.UUID]int) ([]domain.Participation, error)
	ConfirmScores(ctx context.Context, cardID, confirmerID uuid.UUID) ([]domain.Participation, error)
	ForceConfirm(ctx context.Context, cardID, operatorID uuid.UUID) ([]domain.Participation, error)
	DisputeScores(ctx context.Context, cardID, operatorID uuid.UUID) ([]domain.Participation, error)
}

// StandingsServicer defines the read-side operations the query handlers
// depend on.
type StandingsServicer interface {
	Standings(ctx context.Context, seasonID uuid.UUID, p domain.PaginationParams) ([]domain.Standing, int64, error)
	History(ctx context.Context, playerID uuid.UUID, seasonID *uuid.UUID, p domain.PaginationParams) ([]domain.TagHistory, int64, error)
	RoundDetail(ctx context.Context, roundID uuid.UUID) (domain.RoundDetail, error)
}

// Server holds the handler dependencies for all API endpoints.
type Server struct {
	participations ParticipationServicer
	cards          CardServicer
	standings      StandingsServicer
}

// NewServer constructs the Server with all its dependencies.
func NewServer(participations ParticipationServicer, cards CardServicer, standings StandingsServicer) *Server {
	return &Server{participations: participations, cards: cards, standings: standings}
}

// Routes returns the API route tree. Global middleware (request id,
// logging, identity, CORS) is applied by the caller in main.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.Health)

	r.Route("/rounds/{roundID}", func(r chi.Router) {
		r.Get("/", s.GetRoundDetail)
		r.Post("/participants", s.Register)
		r.Post("/participants/{playerID}/check-in", s.CheckIn)
		r.Post("/cards", s.CreateCard)
	})

	r.Post("/participations/{participationID}/dnf", s.MarkDNF)

	r.Route("/cards/{cardID}", func(r chi.Router) {
		r.Put("/scores", s.EnterScores)
		r.Post("/confirm", s.ConfirmScores)
		r.Post("/force-confirm", s.ForceConfirm)
		r.Post("/dispute", s.DisputeScores)
	})

	r.Get("/seasons/{seasonID}/standings", s.GetStandings)
	r.Get("/players/{playerID}/tag-history", s.GetTagHistory)

	return r
}

// urlUUID parses the named chi URL parameter as a UUID.
func urlUUID(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, name))
}
