package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/deskline/ticket-tracker/internal/authz"
	"github.com/deskline/ticket-tracker/internal/domain"
	"github.com/deskline/ticket-tracker/internal/events"
	"github.com/deskline/ticket-tracker/internal/observability"
	"github.com/deskline/ticket-tracker/internal/repository"
	apperrors "github.com/deskline/ticket-tracker/pkg/util/errorutil"
)

// TicketService coordinates ticket and comment workflows. Every operation
// checks the authorization engine before touching the repositories.
type TicketService struct {
	tickets    repository.TicketRepository
	comments   repository.CommentRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	gate       gate
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	CommentRepo repository.CommentRepository
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	Metrics     *observability.Metrics
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Priority    domain.TicketPriority
}

// TicketListFilter narrows a listing. It is always combined with the caller's
// visibility scope.
type TicketListFilter struct {
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	Limit      int
	Offset     int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	g := newGate(deps.Logger, deps.Metrics)
	return &TicketService{
		tickets:    deps.TicketRepo,
		comments:   deps.CommentRepo,
		dispatcher: deps.Dispatcher,
		logger:     g.logger,
		gate:       g,
	}
}

// Create files a new ticket owned by the principal.
func (s *TicketService) Create(ctx context.Context, principal domain.Principal, input TicketCreateInput) (*domain.Ticket, error) {
	if err := requireAuthenticated(principal); err != nil {
		return nil, err
	}
	if !s.gate.allow(principal, domain.DefaultRole(principal.ID), authz.ActionCreateTicket, "") {
		return nil, apperrors.NewForbidden("ticket creation not allowed")
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title required", map[string]any{"field": "title"})
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !priority.Valid() {
		return nil, invalidPriority(priority)
	}

	ticket := &domain.Ticket{
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Status:      domain.TicketStatusOpen,
		Priority:    priority,
		CreatedBy:   principal.ID,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, s.storeError("ticket create failed", err)
	}

	s.publishEvent(ctx, events.Event{
		Type:      events.EventTicketCreated,
		ActorID:   principal.ID,
		SubjectID: ticket.ID,
		Payload:   events.TicketCreatedPayload{Priority: ticket.Priority, Title: ticket.Title},
	})
	return ticket, nil
}

// Get returns a ticket the principal may view. A ticket the principal may not
// view is reported exactly like a missing one.
func (s *TicketService) Get(ctx context.Context, principal domain.Principal, role domain.Role, ticketID string) (*domain.Ticket, error) {
	if err := requireAuthenticated(principal); err != nil {
		return nil, err
	}
	return s.visibleTicket(ctx, principal, role, ticketID)
}

// List returns the tickets inside the principal's visibility scope, newest
// first.
func (s *TicketService) List(ctx context.Context, principal domain.Principal, role domain.Role, filter TicketListFilter) ([]domain.Ticket, error) {
	if err := requireAuthenticated(principal); err != nil {
		return nil, err
	}
	scope, decision := authz.TicketScopeFor(principal, role)
	s.gate.metrics.RecordDecision(string(authz.ActionListTickets), decision.String())
	if decision == authz.Deny {
		return nil, apperrors.NewForbidden("ticket listing not allowed")
	}

	for _, status := range filter.Statuses {
		if !status.Valid() {
			return nil, invalidStatus(status)
		}
	}
	for _, priority := range filter.Priorities {
		if !priority.Valid() {
			return nil, invalidPriority(priority)
		}
	}

	tickets, err := s.tickets.List(ctx, repository.TicketFilter{
		Scope:      scope,
		Statuses:   filter.Statuses,
		Priorities: filter.Priorities,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	})
	if err != nil {
		return nil, s.storeError("ticket list failed", err)
	}
	return tickets, nil
}

// Update applies a staff edit to title, description, status or priority.
func (s *TicketService) Update(ctx context.Context, principal domain.Principal, role domain.Role, ticketID string, patch domain.TicketPatch) (*domain.Ticket, error) {
	if err := requireAuthenticated(principal); err != nil {
		return nil, err
	}
	ticket, err := s.visibleTicket(ctx, principal, role, ticketID)
	if err != nil {
		return nil, err
	}
	if !s.gate.allow(principal, role, authz.ActionEditTicket, ticket.CreatedBy) {
		return nil, apperrors.NewForbidden("only support staff can edit tickets")
	}

	patch, err = normalizePatch(patch)
	if err != nil {
		return nil, err
	}

	updated, err := s.tickets.Update(ctx, ticket.ID, patch)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ticketNotFound()
		}
		return nil, s.storeError("ticket update failed", err)
	}

	s.publishEvent(ctx, events.Event{
		Type:      events.EventTicketUpdated,
		ActorID:   principal.ID,
		SubjectID: updated.ID,
		Payload:   events.TicketUpdatedPayload{Changes: patchChanges(patch)},
	})
	return updated, nil
}

// AddComment appends a comment to a ticket the principal may view.
func (s *TicketService) AddComment(ctx context.Context, principal domain.Principal, role domain.Role, ticketID, content string) (*domain.Comment, error) {
	if err := requireAuthenticated(principal); err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidationError("content required", map[string]any{"field": "content"})
	}

	ticket, err := s.fetchTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !s.gate.allow(principal, role, authz.ActionCreateComment, ticket.CreatedBy) {
		return nil, ticketNotFound()
	}

	comment := &domain.Comment{
		TicketID: ticket.ID,
		UserID:   principal.ID,
		Content:  content,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, s.storeError("comment create failed", err)
	}

	s.publishEvent(ctx, events.Event{
		Type:      events.EventCommentAdded,
		ActorID:   principal.ID,
		SubjectID: ticket.ID,
		Payload:   events.CommentAddedPayload{CommentID: comment.ID, BodyPreview: stringPreview(content, 120)},
	})
	return comment, nil
}

// ListComments returns a ticket's comments oldest first, gated like Get.
func (s *TicketService) ListComments(ctx context.Context, principal domain.Principal, role domain.Role, ticketID string) ([]domain.Comment, error) {
	if err := requireAuthenticated(principal); err != nil {
		return nil, err
	}
	ticket, err := s.visibleTicket(ctx, principal, role, ticketID)
	if err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, s.storeError("comment list failed", err)
	}
	return comments, nil
}

func (s *TicketService) visibleTicket(ctx context.Context, principal domain.Principal, role domain.Role, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.fetchTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !s.gate.allow(principal, role, authz.ActionViewTicket, ticket.CreatedBy) {
		return nil, ticketNotFound()
	}
	return ticket, nil
}

func (s *TicketService) fetchTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	if _, err := uuid.Parse(ticketID); err != nil {
		return nil, ticketNotFound()
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ticketNotFound()
		}
		return nil, s.storeError("ticket lookup failed", err)
	}
	return ticket, nil
}

func (s *TicketService) storeError(msg string, err error) error {
	s.logger.Error(msg, zap.Error(err))
	return apperrors.NewStoreUnavailable(err)
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

// ticketNotFound is the uniform response for missing and hidden tickets.
func ticketNotFound() error {
	return apperrors.NewNotFound("ticket", nil)
}

func normalizePatch(patch domain.TicketPatch) (domain.TicketPatch, error) {
	if patch.Empty() {
		return patch, apperrors.NewValidationError("no fields to update", map[string]any{
			"fields": []string{"title", "description", "status", "priority"},
		})
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return patch, apperrors.NewValidationError("title must not be empty", map[string]any{"field": "title"})
		}
		patch.Title = &title
	}
	if patch.Description != nil {
		description := strings.TrimSpace(*patch.Description)
		patch.Description = &description
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return patch, invalidStatus(*patch.Status)
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		return patch, invalidPriority(*patch.Priority)
	}
	return patch, nil
}

func patchChanges(patch domain.TicketPatch) map[string]any {
	changes := map[string]any{}
	if patch.Title != nil {
		changes["title"] = *patch.Title
	}
	if patch.Description != nil {
		changes["description"] = stringPreview(*patch.Description, 120)
	}
	if patch.Status != nil {
		changes["status"] = *patch.Status
	}
	if patch.Priority != nil {
		changes["priority"] = *patch.Priority
	}
	return changes
}

func invalidStatus(status domain.TicketStatus) error {
	return apperrors.NewValidationError("invalid status", map[string]any{
		"field":   "status",
		"value":   status,
		"allowed": []domain.TicketStatus{domain.TicketStatusOpen, domain.TicketStatusInProgress, domain.TicketStatusClosed},
	})
}

func invalidPriority(priority domain.TicketPriority) error {
	return apperrors.NewValidationError("invalid priority", map[string]any{
		"field":   "priority",
		"value":   priority,
		"allowed": []domain.TicketPriority{domain.TicketPriorityLow, domain.TicketPriorityMedium, domain.TicketPriorityHigh},
	})
}

// stringPreview truncates body to at most max runes.
func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if utf8.RuneCountInString(body) <= max {
		return body
	}
	runes := []rune(body)
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
