package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskline/ticket-tracker/internal/domain"
	apperrors "github.com/deskline/ticket-tracker/pkg/util/errorutil"
)

type staticRoles map[string]domain.Role

func (s staticRoles) GetRole(_ context.Context, userID string) (domain.Role, error) {
	if userID == "broken" {
		return domain.Role{}, apperrors.NewStoreUnavailable(errors.New("db down"))
	}
	if role, ok := s[userID]; ok {
		return role, nil
	}
	return domain.DefaultRole(userID), nil
}

func newMiddlewareApp(t *testing.T, tm *TokenManager, roles RoleResolver) *fiber.App {
	t.Helper()
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
		},
	})
	mw := NewAuthMiddleware(NewResolver(tm, nil), roles)
	app.Get("/whoami", mw.Handle, func(c *fiber.Ctx) error {
		principal, role, ok := PrincipalFromContext(c)
		if !ok {
			return c.SendStatus(http.StatusTeapot)
		}
		return c.JSON(fiber.Map{"id": principal.ID, "role": role.Tag, "admin": role.IsAdmin, "token": TokenFromContext(c) != ""})
	})
	return app
}

func TestAuthMiddleware(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	app := newMiddlewareApp(t, tm, staticRoles{"admin-1": {UserID: "admin-1", Tag: domain.RoleTagAdmin, IsAdmin: true}})

	adminToken, _, err := tm.GenerateToken("admin-1", "")
	require.NoError(t, err)
	brokenToken, _, err := tm.GenerateToken("broken", "")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + adminToken, http.StatusUnauthorized},
		{"invalid token", "Bearer nope", http.StatusUnauthorized},
		{"valid token", "Bearer " + adminToken, http.StatusOK},
		{"role lookup fails", "Bearer " + brokenToken, http.StatusServiceUnavailable},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}
