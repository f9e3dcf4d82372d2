package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskline/ticket-tracker/internal/config"
	"github.com/deskline/ticket-tracker/internal/domain"
	"github.com/deskline/ticket-tracker/internal/service"
	apperrors "github.com/deskline/ticket-tracker/pkg/util/errorutil"
)

type memoryRevocations struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func (m *memoryRevocations) Revoke(_ context.Context, tokenID string, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[tokenID] = until
	return nil
}

func (m *memoryRevocations) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.revoked[tokenID]
	return ok, nil
}

func TestAuthService_SignUpAndSignIn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	session, err := f.auth.SignUp(ctx, " Dana@Example.com ", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "dana@example.com", session.User.Email)
	assert.NotEmpty(t, session.Token)
	assert.True(t, session.ExpiresAt.After(time.Now()))

	principal, err := f.auth.Resolver().Resolve(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, domain.NewPrincipal(session.User.ID), principal)

	again, err := f.auth.SignIn(ctx, "dana@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, again.User.ID)

	me, err := f.auth.Me(ctx, principal)
	require.NoError(t, err)
	assert.Equal(t, domain.UserWithRole{ID: session.User.ID, Email: "dana@example.com", Role: domain.RoleTagUser}, *me)
}

func TestAuthService_SignUpRejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.auth.SignUp(ctx, "alice@example.com", "hunter22")
	requireCode(t, err, apperrors.CodeConflict)

	_, err = f.auth.SignUp(ctx, "not-an-email", "hunter22")
	requireCode(t, err, apperrors.CodeValidation)

	_, err = f.auth.SignUp(ctx, "eve@example.com", "12345")
	requireCode(t, err, apperrors.CodeValidation)
}

func TestAuthService_SignInFailuresLookAlike(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.auth.SignUp(ctx, "dana@example.com", "hunter22")
	require.NoError(t, err)

	_, wrongPassword := f.auth.SignIn(ctx, "dana@example.com", "hunter23")
	requireCode(t, wrongPassword, apperrors.CodeUnauthorized)

	_, unknownEmail := f.auth.SignIn(ctx, "nobody@example.com", "hunter22")
	requireCode(t, unknownEmail, apperrors.CodeUnauthorized)

	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func TestAuthService_SignOutRevokesToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	revocations := &memoryRevocations{revoked: map[string]time.Time{}}
	authSvc := service.NewAuthService(config.AuthConfig{
		JWTSecret:             "test-secret",
		AccessTokenTTLMinutes: 5,
		BcryptCost:            4,
	}, service.AuthDependencies{
		UserRepo:    f.store.Users,
		RoleStore:   f.roles,
		Revocations: revocations,
	})

	session, err := authSvc.SignUp(ctx, "dana@example.com", "hunter22")
	require.NoError(t, err)

	require.NoError(t, authSvc.SignOut(ctx, session.Token))
	assert.Len(t, revocations.revoked, 1)

	principal, err := authSvc.Resolver().Resolve(ctx, session.Token)
	require.NoError(t, err)
	assert.False(t, principal.Authenticated)

	// Signing out an already revoked token is harmless.
	require.NoError(t, authSvc.SignOut(ctx, session.Token))
}

func TestAuthService_SignOutWithoutStore(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.auth.SignOut(context.Background(), "garbage"))
}
