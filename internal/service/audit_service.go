package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/deskline/ticket-tracker/internal/domain"
	"github.com/deskline/ticket-tracker/internal/events"
	"github.com/deskline/ticket-tracker/internal/repository"
)

// AuditService writes a structured audit line for every domain event and,
// when a repository is configured, persists it.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	entries    repository.AuditRepository
}

// NewAuditService creates the service. entries may be nil.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger, entries repository.AuditRepository) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger.Named("audit"),
		entries:    entries,
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventTicketCreated, a.handleTicketCreated)
	a.dispatcher.Subscribe(events.EventTicketUpdated, a.handleTicketUpdated)
	a.dispatcher.Subscribe(events.EventCommentAdded, a.handleCommentAdded)
	a.dispatcher.Subscribe(events.EventRoleChanged, a.handleRoleChanged)
}

func (a *AuditService) handleTicketCreated(ctx context.Context, event events.Event) error {
	fields := a.baseFields(event, "ticket_id")
	if p, ok := event.Payload.(events.TicketCreatedPayload); ok {
		fields = append(fields, zap.String("priority", string(p.Priority)), zap.String("title", p.Title))
	}
	a.logger.Info("TicketCreated", fields...)
	return a.persist(ctx, event)
}

func (a *AuditService) handleTicketUpdated(ctx context.Context, event events.Event) error {
	fields := a.baseFields(event, "ticket_id")
	if p, ok := event.Payload.(events.TicketUpdatedPayload); ok {
		fields = append(fields, zap.Any("changes", p.Changes))
	}
	a.logger.Info("TicketUpdated", fields...)
	return a.persist(ctx, event)
}

func (a *AuditService) handleCommentAdded(ctx context.Context, event events.Event) error {
	fields := a.baseFields(event, "ticket_id")
	if p, ok := event.Payload.(events.CommentAddedPayload); ok {
		fields = append(fields, zap.String("comment_id", p.CommentID), zap.String("body_preview", p.BodyPreview))
	}
	a.logger.Info("CommentAdded", fields...)
	return a.persist(ctx, event)
}

func (a *AuditService) handleRoleChanged(ctx context.Context, event events.Event) error {
	fields := a.baseFields(event, "user_id")
	if p, ok := event.Payload.(events.RoleChangedPayload); ok {
		fields = append(fields, zap.String("role", string(p.Role)), zap.Bool("is_admin", p.IsAdmin))
	}
	a.logger.Info("RoleChanged", fields...)
	return a.persist(ctx, event)
}

func (a *AuditService) baseFields(event events.Event, subjectKey string) []zap.Field {
	return []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("actor_id", event.ActorID),
		zap.String(subjectKey, event.SubjectID),
		zap.Time("at", event.Timestamp),
	}
}

func (a *AuditService) persist(ctx context.Context, event events.Event) error {
	if a.entries == nil {
		return nil
	}
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("encode audit payload: %w", err)
	}
	entry := &domain.AuditEntry{
		EventID:    event.ID,
		EventType:  string(event.Type),
		ActorID:    event.ActorID,
		SubjectID:  event.SubjectID,
		Payload:    payload,
		OccurredAt: event.Timestamp,
	}
	if err := a.entries.Create(ctx, entry); err != nil {
		return fmt.Errorf("persist audit entry %s: %w", event.ID, err)
	}
	return nil
}
