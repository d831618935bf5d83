package handler

import (
	"net/http"

	"github.com/google/uuid"
)

// GetStandings handles GET /seasons/{seasonID}/standings.
func (s *Server) GetStandings(w http.ResponseWriter, r *http.Request) {
	seasonID, err := urlUUID(r, "seasonID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid season id")
		return
	}
	p := queryPagination(r)

	rows, total, err := s.standings.Standings(r.Context(), seasonID, p)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	data := make([]standingResponse, 0, len(rows))
	for _, row := range rows {
		data = append(data, standingResponse{
			PlayerID:       row.PlayerID,
			PlayerName:     row.PlayerName,
			TagNumber:      row.TagNumber,
			AssignmentDate: row.AssignmentDate,
			Eligible:       row.Eligible,
		})
	}
	respond(w, http.StatusOK, pagedResponse[standingResponse]{
		Data:       data,
		Pagination: paginationMeta{Page: p.Page, Limit: p.Limit, Total: total},
	})
}

// GetTagHistory handles GET /players/{playerID}/tag-history. An optional
// ?season_id= narrows the ledger to one season.
func (s *Server) GetTagHistory(w http.ResponseWriter, r *http.Request) {
	playerID, err := urlUUID(r, "playerID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid player id")
		return
	}
	var seasonID *uuid.UUID
	if raw := r.URL.Query().Get("season_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "invalid season id")
			return
		}
		seasonID = &id
	}
	p := queryPagination(r)

	rows, total, err := s.standings.History(r.Context(), playerID, seasonID, p)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	data := make([]tagHistoryResponse, 0, len(rows))
	for _, row := range rows {
		data = append(data, tagHistoryResponse{
			ID:             row.ID,
			TagNumber:      row.TagNumber,
			PlayerID:       row.PlayerID,
			SeasonID:       row.SeasonID,
			RoundID:        row.RoundID,
			AssignmentDate: row.AssignmentDate,
		})
	}
	respond(w, http.StatusOK, pagedResponse[tagHistoryResponse]{
		Data:       data,
		Pagination: paginationMeta{Page: p.Page, Limit: p.Limit, Total: total},
	})
}

// GetRoundDetail handles GET /rounds/{roundID}: every card with its
// confirmation state, tag deltas once finalized, and stale pending scores.
func (s *Server) GetRoundDetail(w http.ResponseWriter, r *http.Request) {
	roundID, err := urlUUID(r, "roundID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid round id")
		return
	}

	detail, err := s.standings.RoundDetail(r.Context(), roundID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	cards := make([]cardViewResponse, 0, len(detail.Cards))
	for _, cv := range detail.Cards {
		cards = append(cards, cardViewResponse{
			Card:    toCardResponse(cv.Card),
			Members: toParticipationResponses(cv.Members),
		})
	}
	deltas := make([]tagDeltaResponse, 0, len(detail.Deltas))
	for _, d := range detail.Deltas {
		deltas = append(deltas, tagDeltaResponse{PlayerID: d.PlayerID, BeforeTag: d.BeforeTag, AfterTag: d.AfterTag})
	}
	stale := make([]staleScoreResponse, 0, len(detail.Stale))
	for _, st := range detail.Stale {
		stale = append(stale, staleScoreResponse{
			ParticipationID: st.ParticipationID,
			PlayerID:        st.PlayerID,
			RoundID:         st.RoundID,
			CardID:          st.CardID,
			EnteredAt:       st.EnteredAt,
			WaitingSeconds:  int64(st.Waiting.Seconds()),
		})
	}

	respond(w, http.StatusOK, roundDetailResponse{
		Round: roundResponse{
			ID:         detail.Round.ID,
			SeasonID:   detail.Round.SeasonID,
			Date:       detail.Round.Date,
			CourseName: detail.Round.CourseName,
			Status:     string(detail.Round.Status),
		},
		Cards:  cards,
		Deltas: deltas,
		Stale:  stale,
	})
}
