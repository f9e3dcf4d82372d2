package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/deskline/ticket-tracker/internal/config"
	"github.com/deskline/ticket-tracker/internal/domain"
	"github.com/deskline/ticket-tracker/internal/events"
	"github.com/deskline/ticket-tracker/internal/observability"
	"github.com/deskline/ticket-tracker/internal/service"
	"github.com/deskline/ticket-tracker/internal/testutil"
	apperrors "github.com/deskline/ticket-tracker/pkg/util/errorutil"
)

type fixture struct {
	store   *testutil.Store
	roles   *service.RoleStore
	tickets *service.TicketService
	admin   *service.AdminService
	auth    *service.AuthService
	events  *eventLog

	alice string
	bob   string
	sam   string
	root  string
}

type eventLog struct {
	mu     sync.Mutex
	events []events.Event
}

func (l *eventLog) record(_ context.Context, event events.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
	return nil
}

func (l *eventLog) ofType(eventType events.EventType) []events.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []events.Event
	for _, event := range l.events {
		if event.Type == eventType {
			out = append(out, event)
		}
	}
	return out
}

// newFixture wires the services over in-memory repositories with two plain
// users, one support agent and one admin.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := testutil.NewStore()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	log := &eventLog{}
	for _, eventType := range []events.EventType{
		events.EventTicketCreated, events.EventTicketUpdated, events.EventCommentAdded, events.EventRoleChanged,
	} {
		dispatcher.Subscribe(eventType, log.record)
	}

	roles := service.NewRoleStore(service.RoleStoreDependencies{
		RoleRepo: store.Roles,
		Logger:   logger,
		Metrics:  metrics,
	})

	f := &fixture{
		store: store,
		roles: roles,
		tickets: service.NewTicketService(service.TicketDependencies{
			TicketRepo:  store.Tickets,
			CommentRepo: store.Comments,
			Dispatcher:  dispatcher,
			Logger:      logger,
			Metrics:     metrics,
		}),
		admin: service.NewAdminService(service.AdminDependencies{
			UserRepo:   store.Users,
			RoleStore:  roles,
			Dispatcher: dispatcher,
			Logger:     logger,
			Metrics:    metrics,
		}),
		auth: service.NewAuthService(config.AuthConfig{
			JWTSecret:             "test-secret",
			AccessTokenTTLMinutes: 5,
			BcryptCost:            4,
		}, service.AuthDependencies{
			UserRepo:  store.Users,
			RoleStore: roles,
			Logger:    logger,
		}),
		events: log,
		alice:  store.Users.AddUser("alice@example.com"),
		bob:    store.Users.AddUser("bob@example.com"),
		sam:    store.Users.AddUser("sam@example.com"),
		root:   store.Users.AddUser("root@example.com"),
	}

	ctx := context.Background()
	require.NoError(t, roles.SetRole(ctx, f.sam, domain.RoleTagSupport, false))
	require.NoError(t, roles.SetRole(ctx, f.root, domain.RoleTagAdmin, true))
	return f
}

// as returns the principal and current role for userID.
func (f *fixture) as(t *testing.T, userID string) (domain.Principal, domain.Role) {
	t.Helper()
	role, err := f.roles.GetRole(context.Background(), userID)
	require.NoError(t, err)
	return domain.NewPrincipal(userID), role
}

func (f *fixture) createTicket(t *testing.T, userID, title string) *domain.Ticket {
	t.Helper()
	ticket, err := f.tickets.Create(context.Background(), domain.NewPrincipal(userID), service.TicketCreateInput{Title: title})
	require.NoError(t, err)
	return ticket
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.Truef(t, apperrors.HasCode(err, code), "expected %s, got %v", code, err)
}
