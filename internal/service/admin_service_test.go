package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskline/ticket-tracker/internal/domain"
	"github.com/deskline/ticket-tracker/internal/events"
	"github.com/deskline/ticket-tracker/internal/service"
	apperrors "github.com/deskline/ticket-tracker/pkg/util/errorutil"
)

func TestAdminService_ListUsersGate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.admin.ListUsers(ctx, domain.Anonymous, domain.Role{})
	requireCode(t, err, apperrors.CodeUnauthorized)

	for _, userID := range []string{f.alice, f.sam} {
		principal, role := f.as(t, userID)
		_, err := f.admin.ListUsers(ctx, principal, role)
		requireCode(t, err, apperrors.CodeForbidden)
	}

	// The admin tag alone does not grant role management.
	require.NoError(t, f.roles.SetRole(ctx, f.bob, domain.RoleTagAdmin, false))
	principal, role := f.as(t, f.bob)
	_, err = f.admin.ListUsers(ctx, principal, role)
	requireCode(t, err, apperrors.CodeForbidden)
}

func TestAdminService_ListUsersJoinsRoles(t *testing.T) {
	f := newFixture(t)
	principal, role := f.as(t, f.root)

	users, err := f.admin.ListUsers(context.Background(), principal, role)
	require.NoError(t, err)
	require.Len(t, users, 4)

	byEmail := map[string]domain.UserWithRole{}
	for _, u := range users {
		byEmail[u.Email] = u
	}
	assert.Equal(t, domain.UserWithRole{ID: f.alice, Email: "alice@example.com", Role: domain.RoleTagUser}, byEmail["alice@example.com"])
	assert.Equal(t, domain.RoleTagSupport, byEmail["sam@example.com"].Role)
	assert.False(t, byEmail["sam@example.com"].IsAdmin)
	assert.True(t, byEmail["root@example.com"].IsAdmin)
	assert.Equal(t, "alice@example.com", users[0].Email)
}

func TestAdminService_SupportGrantWithoutAdminFlag(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bobs := f.createTicket(t, f.bob, "bob's printer")

	admin, adminRole := f.as(t, f.root)
	require.NoError(t, f.admin.SetUserRole(ctx, admin, adminRole, f.alice, domain.RoleTagSupport, false))

	principal, role := f.as(t, f.alice)
	assert.Equal(t, domain.Role{UserID: f.alice, Tag: domain.RoleTagSupport}, role)

	got, err := f.tickets.Get(ctx, principal, role, bobs.ID)
	require.NoError(t, err)
	assert.Equal(t, bobs.ID, got.ID)

	_, err = f.tickets.Update(ctx, principal, role, bobs.ID, domain.TicketPatch{Status: ptr(domain.TicketStatusClosed)})
	require.NoError(t, err)

	_, err = f.admin.ListUsers(ctx, principal, role)
	requireCode(t, err, apperrors.CodeForbidden)
	err = f.admin.SetUserRole(ctx, principal, role, f.bob, domain.RoleTagSupport, false)
	requireCode(t, err, apperrors.CodeForbidden)
}

func TestAdminService_SetUserRoleIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin, adminRole := f.as(t, f.root)

	require.NoError(t, f.admin.SetUserRole(ctx, admin, adminRole, f.bob, domain.RoleTagSupport, true))
	first, err := f.roles.GetRole(ctx, f.bob)
	require.NoError(t, err)

	require.NoError(t, f.admin.SetUserRole(ctx, admin, adminRole, f.bob, domain.RoleTagSupport, true))
	second, err := f.roles.GetRole(ctx, f.bob)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, domain.Role{UserID: f.bob, Tag: domain.RoleTagSupport, IsAdmin: true}, second)

	changes := f.events.ofType(events.EventRoleChanged)
	require.Len(t, changes, 1)
	assert.Equal(t, f.root, changes[0].ActorID)
	assert.Equal(t, f.bob, changes[0].SubjectID)
}

func TestAdminService_SetUserRoleRejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin, adminRole := f.as(t, f.root)

	err := f.admin.SetUserRole(ctx, admin, adminRole, f.bob, domain.RoleTag("owner"), false)
	requireCode(t, err, apperrors.CodeValidation)

	err = f.admin.SetUserRole(ctx, admin, adminRole, uuid.NewString(), domain.RoleTagSupport, false)
	requireCode(t, err, apperrors.CodeNotFound)

	err = f.admin.SetUserRole(ctx, domain.Anonymous, domain.Role{}, f.bob, domain.RoleTagSupport, false)
	requireCode(t, err, apperrors.CodeUnauthorized)

	f.store.Roles.Fail(errors.New("connection reset"))
	err = f.admin.SetUserRole(ctx, admin, adminRole, f.bob, domain.RoleTagSupport, false)
	requireCode(t, err, apperrors.CodeStoreUnavailable)
}

func TestAdminService_RevokingAdminTakesEffect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin, adminRole := f.as(t, f.root)

	require.NoError(t, f.admin.SetUserRole(ctx, admin, adminRole, f.bob, domain.RoleTagUser, true))
	bob, bobRole := f.as(t, f.bob)
	require.NoError(t, f.admin.SetUserRole(ctx, bob, bobRole, f.root, domain.RoleTagUser, false))

	admin, adminRole = f.as(t, f.root)
	_, err := f.admin.ListUsers(ctx, admin, adminRole)
	requireCode(t, err, apperrors.CodeForbidden)
}

func TestAdminService_BootstrapAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.admin.BootstrapAdmin(ctx, " Alice@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, f.alice, user.ID)

	role, err := f.roles.GetRole(ctx, f.alice)
	require.NoError(t, err)
	assert.True(t, role.IsAdmin)
	assert.Equal(t, domain.RoleTagAdmin, role.Tag)

	_, err = f.admin.BootstrapAdmin(ctx, "nobody@example.com")
	requireCode(t, err, apperrors.CodeNotFound)
}

func TestAdminService_BootstrapAdminRefreshesCachedRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cache := newMapCache()
	cached := service.NewRoleStore(service.RoleStoreDependencies{
		RoleRepo: f.store.Roles,
		Cache:    cache,
		CacheTTL: time.Minute,
	})

	// A running server has already cached alice as a plain user.
	before, err := cached.GetRole(ctx, f.alice)
	require.NoError(t, err)
	assert.False(t, before.IsAdmin)

	admin := service.NewAdminService(service.AdminDependencies{
		UserRepo:   f.store.Users,
		RoleStore:  cached,
		Dispatcher: events.NewInMemoryDispatcher(),
	})
	_, err = admin.BootstrapAdmin(ctx, "alice@example.com")
	require.NoError(t, err)

	after, err := cached.GetRole(ctx, f.alice)
	require.NoError(t, err)
	assert.Equal(t, domain.Role{UserID: f.alice, Tag: domain.RoleTagAdmin, IsAdmin: true}, after)
}
