package domain

import (
	"time"

	"github.com/google/uuid"
)

// Standing is one row of the season standings view: the player's current tag
// decorated with their eligibility flag. Eligibility never gates the tag
// itself — ineligible players still hold and exchange tags, they are merely
// excluded from the official filtered view.
type Standing struct {
	PlayerID       uuid.UUID
	PlayerName     string
	TagNumber      int
	AssignmentDate time.Time
	Eligible       bool
}

// CardView is the per-card slice of a round detail: the card, its members,
// and how far each member's score has progressed through confirmation.
type CardView struct {
	Card    Card
	Members []Participation
}

// TagDelta records how one player's tag moved as a result of a closed round.
type TagDelta struct {
	PlayerID  uuid.UUID
	BeforeTag int
	AfterTag  int
}

// RoundDetail is the full query view of one round: every card with its
// confirmation state, the tag movements if the round has been finalized, and
// any scores still awaiting confirmation (the stuck-state surface).
type RoundDetail struct {
	Round  Round
	Cards  []CardView
	Deltas []TagDelta
	Stale  []StaleScore
}

// StaleScore is an entered score that has been awaiting confirmation longer
// than callers care about. The engine exposes the elapsed time as queryable
// state; it never mutates anything on a timer.
type StaleScore struct {
	ParticipationID uuid.UUID
	PlayerID        uuid.UUID
	RoundID         uuid.UUID
	CardID          uuid.UUID
	EnteredAt       time.Time
	Waiting         time.Duration
}
