package domain

import (
	"time"

	"github.com/google/uuid"
)

// RoundStatus is the finalization state of a round.
//
//	open → finalizing → finalized
//
// finalizing is only ever observed inside the round-close transaction; a
// crashed close rolls back to open. finalized rounds are closed forever —
// re-running the close on a finalized round is a no-op.
type RoundStatus string

const (
	RoundOpen       RoundStatus = "open"
	RoundFinalizing RoundStatus = "finalizing"
	RoundFinalized  RoundStatus = "finalized"
)

// Round is one game event within exactly one season.
type Round struct {
	ID         uuid.UUID
	SeasonID   uuid.UUID
	CreatorID  uuid.UUID
	Date       time.Time
	CourseName string
	Status     RoundStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Season identifies a competition period within a league and owns the tag
// numbering space. The engine only reads seasons; season CRUD is external.
type Season struct {
	ID        uuid.UUID
	LeagueID  uuid.UUID
	Name      string
	StartDate time.Time
	EndDate   time.Time
}
