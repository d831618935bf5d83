package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mkallio/tag-league/backend/internal/domain"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// respond writes v as JSON with the given status. A nil v writes only the
// status line.
func respond(w http.ResponseWriter, status int, v any) {
	if v == nil {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	respond(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

// writeDomainError maps a service error to the API's typed failure
// vocabulary. Unknown errors become an opaque 500; the detail goes to the
// log, not the client.
func writeDomainError(w http.ResponseWriter, err error) {
	for _, m := range errorMap {
		if errors.Is(err, m.sentinel) {
			writeError(w, m.status, m.code, err.Error())
			return
		}
	}
	slog.Error("unhandled service error", "error", err)
	writeError(w, http.StatusInternalServerError, "internal", "internal server error")
}

var errorMap = []struct {
	sentinel error
	status   int
	code     string
}{
	{domain.ErrNotFound, http.StatusNotFound, "not_found"},
	{domain.ErrForbidden, http.StatusForbidden, "forbidden"},
	{domain.ErrDuplicateParticipation, http.StatusConflict, "duplicate_participation"},
	{domain.ErrAlreadyCarded, http.StatusConflict, "already_carded"},
	{domain.ErrReassignmentConflict, http.StatusConflict, "reassignment_conflict"},
	{domain.ErrInvalidTransition, http.StatusUnprocessableEntity, "invalid_transition"},
	{domain.ErrAlreadyTerminal, http.StatusUnprocessableEntity, "already_terminal"},
	{domain.ErrNotCheckedIn, http.StatusUnprocessableEntity, "not_checked_in"},
	{domain.ErrCardTooSmall, http.StatusUnprocessableEntity, "card_too_small"},
	{domain.ErrNotCardCreator, http.StatusForbidden, "not_card_creator"},
	{domain.ErrSelfConfirmation, http.StatusUnprocessableEntity, "self_confirmation"},
	{domain.ErrInsufficientCardMembers, http.StatusUnprocessableEntity, "insufficient_card_members"},
	{domain.ErrRoundNotReady, http.StatusUnprocessableEntity, "round_not_ready"},
	{domain.ErrValidation, http.StatusUnprocessableEntity, "validation"},
}
