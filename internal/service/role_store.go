package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/deskline/ticket-tracker/internal/domain"
	"github.com/deskline/ticket-tracker/internal/observability"
	"github.com/deskline/ticket-tracker/internal/repository"
	apperrors "github.com/deskline/ticket-tracker/pkg/util/errorutil"
)

// RoleCache is a derived read-through cache for role records. The store stays
// the source of truth; cache failures only cost a database round trip.
// Readers fill misses with SetIfAbsent so a value read before a concurrent
// write can never replace the writer's entry.
type RoleCache interface {
	Get(ctx context.Context, userID string) (*domain.Role, error)
	Set(ctx context.Context, role domain.Role, ttl time.Duration) error
	SetIfAbsent(ctx context.Context, role domain.Role, ttl time.Duration) error
	Delete(ctx context.Context, userID string) error
}

// RoleStore maps users to their effective role.
type RoleStore struct {
	roles    repository.RoleRepository
	cache    RoleCache
	cacheTTL time.Duration
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// RoleStoreDependencies bundles collaborators for RoleStore. Cache may be nil.
type RoleStoreDependencies struct {
	RoleRepo repository.RoleRepository
	Cache    RoleCache
	CacheTTL time.Duration
	Logger   *zap.Logger
	Metrics  *observability.Metrics
}

// NewRoleStore constructs the accessor.
func NewRoleStore(deps RoleStoreDependencies) *RoleStore {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cache := deps.Cache
	if deps.CacheTTL <= 0 {
		cache = nil
	}
	return &RoleStore{
		roles:    deps.RoleRepo,
		cache:    cache,
		cacheTTL: deps.CacheTTL,
		logger:   logger,
		metrics:  deps.Metrics,
	}
}

// GetRole returns the user's role, defaulting to an unprivileged user role
// when no record exists.
func (s *RoleStore) GetRole(ctx context.Context, userID string) (domain.Role, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, userID)
		switch {
		case err != nil:
			s.metrics.RecordRoleCache("error")
			s.logger.Warn("role cache read failed", zap.String("user_id", userID), zap.Error(err))
		case cached != nil:
			s.metrics.RecordRoleCache("hit")
			return *cached, nil
		default:
			s.metrics.RecordRoleCache("miss")
		}
	}

	role, err := s.roles.GetByUserID(ctx, userID)
	var result domain.Role
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		result = domain.DefaultRole(userID)
	case err != nil:
		s.logger.Error("role lookup failed", zap.String("user_id", userID), zap.Error(err))
		return domain.Role{}, apperrors.NewStoreUnavailable(err)
	default:
		result = *role
	}

	if s.cache != nil {
		if err := s.cache.SetIfAbsent(ctx, result, s.cacheTTL); err != nil {
			s.logger.Warn("role cache fill failed", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return result, nil
}

// SetRole upserts the user's role, replacing any prior record wholesale.
// Writing the same values twice leaves identical state.
func (s *RoleStore) SetRole(ctx context.Context, userID string, tag domain.RoleTag, isAdmin bool) error {
	if userID == "" {
		return apperrors.NewValidationError("user id required", map[string]any{"field": "user_id"})
	}
	if !tag.Valid() {
		return apperrors.NewValidationError("unknown role", map[string]any{
			"field":   "role",
			"allowed": []domain.RoleTag{domain.RoleTagUser, domain.RoleTagSupport, domain.RoleTagAdmin},
		})
	}

	role := domain.Role{UserID: userID, Tag: tag, IsAdmin: isAdmin}
	if err := s.roles.Upsert(ctx, role); err != nil {
		s.logger.Error("role upsert failed", zap.String("user_id", userID), zap.Error(err))
		return apperrors.NewStoreUnavailable(err)
	}

	// The new value overwrites whatever a concurrent reader may have filled.
	if s.cache != nil {
		if err := s.cache.Set(ctx, role, s.cacheTTL); err != nil {
			s.logger.Warn("role cache write failed", zap.String("user_id", userID), zap.Error(err))
			if err := s.cache.Delete(ctx, userID); err != nil {
				s.logger.Warn("role cache invalidation failed", zap.String("user_id", userID), zap.Error(err))
			}
		}
	}
	return nil
}

// ListRoles returns every stored role record keyed by user id.
func (s *RoleStore) ListRoles(ctx context.Context) (map[string]domain.Role, error) {
	roles, err := s.roles.List(ctx)
	if err != nil {
		s.logger.Error("role listing failed", zap.Error(err))
		return nil, apperrors.NewStoreUnavailable(err)
	}
	byUser := make(map[string]domain.Role, len(roles))
	for _, role := range roles {
		byUser[role.UserID] = role
	}
	return byUser, nil
}
