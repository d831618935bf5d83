package domain

import (
	"time"

	"github.com/google/uuid"
)

// MinCardSize is the hard lower bound on card membership. Peer confirmation
// needs at least one non-creator member, and league play assumes threes.
const MinCardSize = 3

// TypicalMaxCardSize is the soft upper bound on card membership. Larger
// cards are legal but unusual; creation logs a warning above this size.
const TypicalMaxCardSize = 6

// Card groups 3–6 participations for one round into a single scoring unit.
// The creator is the member who enters scores; any other non-dnf member may
// confirm them.
type Card struct {
	ID        uuid.UUID
	RoundID   uuid.UUID
	CreatorID uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}
