package service

import (
	"context"
	"errors"
	"strings"
	"time"

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

// AdminService exposes the user directory and role assignment to admins.
type AdminService struct {
	users      repository.UserRepository
	roles      *RoleStore
	dispatcher events.Dispatcher
	logger     *zap.Logger
	gate       gate
}

// AdminDependencies bundles collaborators for AdminService.
type AdminDependencies struct {
	UserRepo   repository.UserRepository
	RoleStore  *RoleStore
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Metrics    *observability.Metrics
}

// NewAdminService constructs the service.
func NewAdminService(deps AdminDependencies) *AdminService {
	g := newGate(deps.Logger, deps.Metrics)
	return &AdminService{
		users:      deps.UserRepo,
		roles:      deps.RoleStore,
		dispatcher: deps.Dispatcher,
		logger:     g.logger,
		gate:       g,
	}
}

// ListUsers returns every user joined with their role. Users without a role
// record are reported as plain users.
func (s *AdminService) ListUsers(ctx context.Context, principal domain.Principal, role domain.Role) ([]domain.UserWithRole, error) {
	if err := requireAuthenticated(principal); err != nil {
		return nil, err
	}
	if !s.gate.allow(principal, role, authz.ActionManageRoles, "") {
		return nil, apperrors.NewForbidden("admin access required")
	}

	users, err := s.users.List(ctx)
	if err != nil {
		s.logger.Error("user listing failed", zap.Error(err))
		return nil, apperrors.NewStoreUnavailable(err)
	}
	roles, err := s.roles.ListRoles(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]domain.UserWithRole, 0, len(users))
	for _, user := range users {
		r, ok := roles[user.ID]
		if !ok {
			r = domain.DefaultRole(user.ID)
		}
		result = append(result, domain.UserWithRole{
			ID:      user.ID,
			Email:   user.Email,
			Role:    r.Tag,
			IsAdmin: r.IsAdmin,
		})
	}
	return result, nil
}

// SetUserRole assigns tag and isAdmin to the target user. Assigning the
// values the user already holds is a no-op that still succeeds.
func (s *AdminService) SetUserRole(ctx context.Context, principal domain.Principal, role domain.Role, targetID string, tag domain.RoleTag, isAdmin bool) error {
	if err := requireAuthenticated(principal); err != nil {
		return err
	}
	if !s.gate.allow(principal, role, authz.ActionManageRoles, "") {
		return apperrors.NewForbidden("admin access required")
	}
	if !tag.Valid() {
		return apperrors.NewValidationError("unknown role", map[string]any{
			"field":   "role",
			"value":   tag,
			"allowed": []domain.RoleTag{domain.RoleTagUser, domain.RoleTagSupport, domain.RoleTagAdmin},
		})
	}

	if _, err := uuid.Parse(targetID); err != nil {
		return apperrors.NewNotFound("user", nil)
	}
	if _, err := s.users.GetByID(ctx, targetID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("user", nil)
		}
		s.logger.Error("user lookup failed", zap.String("user_id", targetID), zap.Error(err))
		return apperrors.NewStoreUnavailable(err)
	}

	return s.assign(ctx, principal.ID, targetID, tag, isAdmin)
}

// BootstrapAdmin grants the admin tag and flag to the user registered under
// email. It bypasses the authorization engine and is only reachable from the
// operator CLI.
func (s *AdminService) BootstrapAdmin(ctx context.Context, email string) (*domain.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, apperrors.NewValidationError("email required", map[string]any{"field": "email"})
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"email": email})
		}
		return nil, apperrors.NewStoreUnavailable(err)
	}
	if err := s.assign(ctx, "", user.ID, domain.RoleTagAdmin, true); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AdminService) assign(ctx context.Context, actorID, targetID string, tag domain.RoleTag, isAdmin bool) error {
	previous, err := s.roles.GetRole(ctx, targetID)
	if err != nil {
		return err
	}
	if err := s.roles.SetRole(ctx, targetID, tag, isAdmin); err != nil {
		return err
	}
	if previous.Tag == tag && previous.IsAdmin == isAdmin {
		return nil
	}

	s.logger.Info("role changed",
		zap.String("actor_id", actorID),
		zap.String("user_id", targetID),
		zap.String("role", string(tag)),
		zap.Bool("is_admin", isAdmin))

	if s.dispatcher == nil {
		return nil
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventRoleChanged,
		ActorID:   actorID,
		SubjectID: targetID,
		Timestamp: time.Now(),
		Payload:   events.RoleChangedPayload{Role: tag, IsAdmin: isAdmin},
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
