package handler

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/mkallio/tag-league/backend/internal/middleware"
)

// identity pulls the calling player's id from the request context. Every
// mutating endpoint requires it; missing or malformed identity is 401.
func identity(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := middleware.PlayerID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "missing or invalid "+middleware.PlayerIDHeader+" header")
		return uuid.Nil, false
	}
	return id, true
}

// Register handles POST /rounds/{roundID}/participants. The calling player
// registers themselves for the round.
func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	playerID, ok := identity(w, r)
	if !ok {
		return
	}
	roundID, err := urlUUID(r, "roundID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid round id")
		return
	}

	p, err := s.participations.Register(r.Context(), playerID, roundID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respond(w, http.StatusCreated, toParticipationResponse(p))
}

// CheckIn handles POST /rounds/{roundID}/participants/{playerID}/check-in.
// The caller is the operator performing physical check-in and must manage
// the round.
func (s *Server) CheckIn(w http.ResponseWriter, r *http.Request) {
	operatorID, ok := identity(w, r)
	if !ok {
		return
	}
	roundID, err := urlUUID(r, "roundID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid round id")
		return
	}
	playerID, err := urlUUID(r, "playerID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid player id")
		return
	}

	p, err := s.participations.CheckIn(r.Context(), playerID, roundID, operatorID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respond(w, http.StatusOK, toParticipationResponse(p))
}

// MarkDNF handles POST /participations/{participationID}/dnf.
func (s *Server) MarkDNF(w http.ResponseWriter, r *http.Request) {
	actorID, ok := identity(w, r)
	if !ok {
		return
	}
	participationID, err := urlUUID(r, "participationID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid participation id")
		return
	}

	p, err := s.participations.MarkDNF(r.Context(), participationID, actorID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respond(w, http.StatusOK, toParticipationResponse(p))
}
