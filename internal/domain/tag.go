package domain

import (
	"time"

	"github.com/google/uuid"
)

// Tag is the current rank of one player within one season. Exactly one Tag
// exists per (player, season); tag numbers are unique within a season and
// form a dense sequence 1..N, where 1 is best.
//
// Tags are mutated only by the tag engine: once at initial assignment, then
// by round-close reassignment. Every mutation leaves a TagHistory shadow.
type Tag struct {
	ID             uuid.UUID
	PlayerID       uuid.UUID
	SeasonID       uuid.UUID
	TagNumber      int
	AssignmentDate time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TagHistory is one immutable ledger entry: the tag number a player held in
// a season as of a given round. RoundID is nil for the initial assignment.
// Rows are append-only — the storage layer forbids update and delete.
type TagHistory struct {
	ID             uuid.UUID
	TagNumber      int
	PlayerID       uuid.UUID
	SeasonID       uuid.UUID
	RoundID        *uuid.UUID
	AssignmentDate time.Time
	CreatedAt      time.Time
}
