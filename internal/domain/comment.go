package domain

import "time"

// Comment is an append-only entry in a ticket thread.
type Comment struct {
	ID        string
	TicketID  string
	UserID    string
	Content   string
	CreatedAt time.Time
}
