package domain

import "errors"

// ErrNotFound is returned by repo and service functions when the requested
// resource does not exist in the database.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. malformed score map, missing required field).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrForbidden is returned when the caller lacks the authority an operation
// requires (round management, organizer-only actions).
// Handlers should map this to HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrDuplicateParticipation is returned when a player already has a
// participation for the round. At most one participation may exist per
// (player, round) pair.
var ErrDuplicateParticipation = errors.New("player already registered for round")

// ErrInvalidTransition is returned when a participation status change is not
// permitted by the lifecycle (registered → checked_in → completed, with dnf
// as a side exit).
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrAlreadyTerminal is returned when an operation targets a participation
// already in a terminal state (completed or dnf).
var ErrAlreadyTerminal = errors.New("participation already terminal")

// ErrNotCheckedIn is returned when a score is entered for a participation
// that is not currently checked in.
var ErrNotCheckedIn = errors.New("participation not checked in")

// ErrCardTooSmall is returned when a card is created with fewer than three
// members. Three is the hard minimum required for peer confirmation.
var ErrCardTooSmall = errors.New("card requires at least 3 players")

// ErrAlreadyCarded is returned when a player listed for a new card already
// belongs to another card in the same round.
var ErrAlreadyCarded = errors.New("player already on a card in this round")

// ErrNotCardCreator is returned when someone other than the card's creator
// attempts to enter scores.
var ErrNotCardCreator = errors.New("only the card creator may enter scores")

// ErrSelfConfirmation is returned when the score creator attempts to confirm
// their own entries. Confirmation must come from a different card member.
var ErrSelfConfirmation = errors.New("confirmer is the score creator")

// ErrInsufficientCardMembers is returned when no eligible confirmer exists on
// the card (every non-creator member is dnf). This is a structural dead-end
// that only an organizer force-confirm can resolve.
var ErrInsufficientCardMembers = errors.New("no eligible confirmer on card")

// ErrReassignmentConflict is returned when concurrent tag mutation is
// detected (two registrations racing for the same tag number, or overlapping
// round closes). Callers may retry the transaction.
var ErrReassignmentConflict = errors.New("concurrent tag reassignment detected")

// ErrRoundNotReady is returned when a round close is requested before every
// card in the round has confirmed scores.
var ErrRoundNotReady = errors.New("round not fully confirmed")
