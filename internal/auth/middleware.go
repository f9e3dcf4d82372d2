package auth

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/deskline/ticket-tracker/internal/domain"
	apperrors "github.com/deskline/ticket-tracker/pkg/util/errorutil"
)

const (
	principalKey = "auth_principal"
	roleKey      = "auth_role"
	tokenKey     = "auth_token"
)

// RoleResolver looks up the effective role of a user.
type RoleResolver interface {
	GetRole(ctx context.Context, userID string) (domain.Role, error)
}

// AuthMiddleware resolves the bearer token, then the caller's role, before any
// handler runs.
type AuthMiddleware struct {
	resolver *Resolver
	roles    RoleResolver
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(resolver *Resolver, roles RoleResolver) *AuthMiddleware {
	return &AuthMiddleware{resolver: resolver, roles: roles}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	token := BearerToken(c.Get(fiber.HeaderAuthorization))
	if token == "" {
		return apperrors.NewUnauthorized("missing bearer token")
	}

	principal, err := m.resolver.Resolve(c.UserContext(), token)
	if err != nil {
		return err
	}
	if !principal.Authenticated {
		return apperrors.NewUnauthorized("invalid or expired token")
	}

	role, err := m.roles.GetRole(c.UserContext(), principal.ID)
	if err != nil {
		return err
	}

	c.Locals(principalKey, principal)
	c.Locals(roleKey, role)
	c.Locals(tokenKey, token)
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated principal and role. ok is
// false when the middleware has not run.
func PrincipalFromContext(c *fiber.Ctx) (domain.Principal, domain.Role, bool) {
	principal, ok := c.Locals(principalKey).(domain.Principal)
	if !ok || !principal.Authenticated {
		return domain.Anonymous, domain.Role{}, false
	}
	role, ok := c.Locals(roleKey).(domain.Role)
	if !ok {
		role = domain.DefaultRole(principal.ID)
	}
	return principal, role, true
}

// TokenFromContext returns the raw bearer token of an authenticated request.
func TokenFromContext(c *fiber.Ctx) string {
	token, _ := c.Locals(tokenKey).(string)
	return token
}
