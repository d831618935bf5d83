package handler

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

type createCardRequest struct {
	PlayerIDs []uuid.UUID `json:"player_ids"`
}

// CreateCard handles POST /rounds/{roundID}/cards. The caller becomes the
// card creator and must be among the listed players.
func (s *Server) CreateCard(w http.ResponseWriter, r *http.Request) {
	creatorID, ok := identity(w, r)
	if !ok {
		return
	}
	roundID, err := urlUUID(r, "roundID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid round id")
		return
	}
	var req createCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	c, err := s.cards.CreateCard(r.Context(), creatorID, roundID, req.PlayerIDs)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respond(w, http.StatusCreated, toCardResponse(c))
}

type enterScoresRequest struct {
	Scores map[uuid.UUID]int `json:"scores"`
}

// EnterScores handles PUT /cards/{cardID}/scores. Only the card creator may
// enter scores; re-entering replaces prior values and resets confirmation.
func (s *Server) EnterScores(w http.ResponseWriter, r *http.Request) {
	callerID, ok := identity(w, r)
	if !ok {
		return
	}
	cardID, err := urlUUID(r, "cardID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid card id")
		return
	}
	var req enterScoresRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	ps, err := s.cards.EnterScores(r.Context(), cardID, callerID, req.Scores)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respond(w, http.StatusOK, toParticipationResponses(ps))
}

// ConfirmScores handles POST /cards/{cardID}/confirm. The caller must be a
// non-creator, non-dnf member of the card.
func (s *Server) ConfirmScores(w http.ResponseWriter, r *http.Request) {
	confirmerID, ok := identity(w, r)
	if !ok {
		return
	}
	cardID, err := urlUUID(r, "cardID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid card id")
		return
	}

	ps, err := s.cards.ConfirmScores(r.Context(), cardID, confirmerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respond(w, http.StatusOK, toParticipationResponses(ps))
}

// ForceConfirm handles POST /cards/{cardID}/force-confirm. Organizer-only
// override for cards with no eligible peer confirmer.
func (s *Server) ForceConfirm(w http.ResponseWriter, r *http.Request) {
	operatorID, ok := identity(w, r)
	if !ok {
		return
	}
	cardID, err := urlUUID(r, "cardID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid card id")
		return
	}

	ps, err := s.cards.ForceConfirm(r.Context(), cardID, operatorID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respond(w, http.StatusOK, toParticipationResponses(ps))
}

// DisputeScores handles POST /cards/{cardID}/dispute. Organizer-only: flips
// confirmed scores on the card back to pending so they can be corrected.
func (s *Server) DisputeScores(w http.ResponseWriter, r *http.Request) {
	operatorID, ok := identity(w, r)
	if !ok {
		return
	}
	cardID, err := urlUUID(r, "cardID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid card id")
		return
	}

	ps, err := s.cards.DisputeScores(r.Context(), cardID, operatorID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respond(w, http.StatusOK, toParticipationResponses(ps))
}
