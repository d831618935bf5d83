// Package domain contains the core data types for the tag league engine.
// This package has zero external dependencies beyond uuid and is imported by
// every other internal package (repo, service, handler).
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Participation is the lifecycle record of one player in one round.
// At most one participation exists per (player, round) pair.
//
// Score fields are only meaningful once set: Score is nil until entered, and
// the confirmation fields are nil until a non-creator card member confirms.
// ScoreDisputed marks entries an organizer has flipped back to pending; a
// disputed score must be re-entered and re-confirmed before it counts.
type Participation struct {
	ID       uuid.UUID
	PlayerID uuid.UUID
	RoundID  uuid.UUID
	CardID   *uuid.UUID // nil until the player joins a card
	Status   Status

	OnlineRegistrationTime *time.Time
	PhysicalCheckinTime    *time.Time

	Score            *int // raw stroke count, lower is better
	ScoreEnteredBy   *uuid.UUID
	ScoreEnteredAt   *time.Time
	ScoreConfirmed   bool
	ScoreConfirmedBy *uuid.UUID
	ScoreConfirmedAt *time.Time
	ScoreDisputed    bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// OnCard reports whether the participation has been linked to a card.
func (p Participation) OnCard() bool {
	return p.CardID != nil
}

// HasScore reports whether a raw score has been entered, confirmed or not.
func (p Participation) HasScore() bool {
	return p.Score != nil
}

// AwaitingConfirmation reports whether an entered score is still pending
// peer confirmation. Used to surface stuck rounds: the elapsed time since
// ScoreEnteredAt is queryable state, never a trigger for automatic mutation.
func (p Participation) AwaitingConfirmation() bool {
	return p.Score != nil && !p.ScoreConfirmed && p.Status == StatusCheckedIn
}
