package domain

import (
	"encoding/json"
	"time"
)

// AuditEntry is a persisted record of a domain event. ActorID is empty for
// operator actions taken outside a request.
type AuditEntry struct {
	ID         string
	EventID    string
	EventType  string
	ActorID    string
	SubjectID  string
	Payload    json.RawMessage
	OccurredAt time.Time
	CreatedAt  time.Time
}
