package events

import (
	"time"

	"github.com/deskline/ticket-tracker/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated EventType = "ticket_created"
	EventTicketUpdated EventType = "ticket_updated"
	EventCommentAdded  EventType = "comment_added"
	EventRoleChanged   EventType = "role_changed"
)

// Event represents a domain event emitted by services. ActorID is the user id
// of the principal that caused it.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	ActorID   string      `json:"actor_id"`
	SubjectID string      `json:"subject_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Priority domain.TicketPriority `json:"priority"`
	Title    string                `json:"title"`
}

// TicketUpdatedPayload lists changed fields with their new values.
type TicketUpdatedPayload struct {
	Changes map[string]any `json:"changes"`
}

// CommentAddedPayload payload.
type CommentAddedPayload struct {
	CommentID   string `json:"comment_id"`
	BodyPreview string `json:"body_preview"`
}

// RoleChangedPayload payload.
type RoleChangedPayload struct {
	Role    domain.RoleTag `json:"role"`
	IsAdmin bool           `json:"is_admin"`
}
