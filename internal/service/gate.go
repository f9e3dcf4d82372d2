package service

import (
	"go.uber.org/zap"

	"github.com/deskline/ticket-tracker/internal/authz"
	"github.com/deskline/ticket-tracker/internal/domain"
	"github.com/deskline/ticket-tracker/internal/observability"
	apperrors "github.com/deskline/ticket-tracker/pkg/util/errorutil"
)

// gate wraps the authorization engine with logging and metrics.
type gate struct {
	logger  *zap.Logger
	metrics *observability.Metrics
}

func newGate(logger *zap.Logger, metrics *observability.Metrics) gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return gate{logger: logger, metrics: metrics}
}

func (g gate) allow(principal domain.Principal, role domain.Role, action authz.Action, ownerID string) bool {
	decision := authz.Decide(principal, role, action, ownerID)
	g.metrics.RecordDecision(string(action), decision.String())
	if decision == authz.Deny {
		g.logger.Debug("authorization denied",
			zap.String("principal", principal.ID),
			zap.String("action", string(action)),
			zap.String("role", string(role.Tag)),
			zap.Bool("is_admin", role.IsAdmin))
	}
	return decision == authz.Allow
}

func requireAuthenticated(principal domain.Principal) error {
	if !principal.Authenticated || principal.ID == "" {
		return apperrors.NewUnauthorized("authentication required")
	}
	return nil
}
