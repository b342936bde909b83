package domain

import "time"

// TicketHistory is an immutable audit entry written once per applied status change.
type TicketHistory struct {
	ID         string
	TicketID   string
	Action     string
	FromStatus TicketStatus
	ToStatus   TicketStatus
	ActorID    string
	// Automatic marks transitions derived from the activity log rather than requested directly.
	Automatic bool
	Note      string
	CreatedAt time.Time
}
