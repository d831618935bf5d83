package domain

// Status is the lifecycle state of a Participation within a round.
//
// The legal transitions are:
//
//	registered → checked_in → completed
//	registered → dnf
//	checked_in → dnf
//
// completed and dnf are terminal. The completed state is only ever reached
// through score confirmation (see service.CardService), never directly.
type Status string

const (
	StatusRegistered Status = "registered"
	StatusCheckedIn  Status = "checked_in"
	StatusCompleted  Status = "completed"
	StatusDNF        Status = "dnf"
)

// Terminal reports whether no further transitions are permitted from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusDNF
}

// CanTransitionTo reports whether the lifecycle permits moving from s to next.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusRegistered:
		return next == StatusCheckedIn || next == StatusDNF
	case StatusCheckedIn:
		return next == StatusCompleted || next == StatusDNF
	default:
		return false
	}
}

// Valid reports whether s is one of the four known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusRegistered, StatusCheckedIn, StatusCompleted, StatusDNF:
		return true
	}
	return false
}
