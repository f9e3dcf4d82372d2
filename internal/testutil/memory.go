// Package testutil provides in-memory repository implementations for tests.
// They follow the Postgres repositories' contracts: missing rows surface as
// pgx.ErrNoRows and listings honor the same ordering and scope rules.
package testutil

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/deskline/ticket-tracker/internal/domain"
	"github.com/deskline/ticket-tracker/internal/repository"
)

// Clock hands out strictly increasing timestamps so ordering by creation
// time is deterministic.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts a clock at a fixed instant.
func NewClock() *Clock {
	return &Clock{now: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
}

// Now advances the clock by a millisecond and returns the new instant.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

// Failure lets a test make every call on a fake fail.
type Failure struct {
	mu  sync.Mutex
	err error
}

// Fail makes subsequent calls return err. Pass nil to recover.
func (f *Failure) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *Failure) failure() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Store bundles one instance of every fake sharing a clock.
type Store struct {
	Clock    *Clock
	Tickets  *TicketRepo
	Comments *CommentRepo
	Roles    *RoleRepo
	Users    *UserRepo
	Audit    *AuditRepo
}

// NewStore builds an empty store.
func NewStore() *Store {
	clock := NewClock()
	return &Store{
		Clock:    clock,
		Tickets:  &TicketRepo{clock: clock, byID: map[string]domain.Ticket{}},
		Comments: &CommentRepo{clock: clock},
		Roles:    &RoleRepo{byUser: map[string]domain.Role{}},
		Users:    &UserRepo{clock: clock, byID: map[string]domain.User{}},
		Audit:    &AuditRepo{clock: clock},
	}
}

// TicketRepo is an in-memory repository.TicketRepository.
type TicketRepo struct {
	Failure
	mu    sync.RWMutex
	clock *Clock
	byID  map[string]domain.Ticket
}

var _ repository.TicketRepository = (*TicketRepo)(nil)

func (r *TicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	if err := r.failure(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.clock.Now()
	ticket.ID = uuid.NewString()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	r.byID[ticket.ID] = *ticket
	return nil
}

func (r *TicketRepo) Update(_ context.Context, id string, patch domain.TicketPatch) (*domain.Ticket, error) {
	if err := r.failure(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if patch.Title != nil {
		ticket.Title = *patch.Title
	}
	if patch.Description != nil {
		ticket.Description = *patch.Description
	}
	if patch.Status != nil {
		ticket.Status = *patch.Status
	}
	if patch.Priority != nil {
		ticket.Priority = *patch.Priority
	}
	ticket.UpdatedAt = r.clock.Now()
	r.byID[id] = ticket
	return &ticket, nil
}

func (r *TicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	if err := r.failure(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	ticket, ok := r.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &ticket, nil
}

func (r *TicketRepo) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	if err := r.failure(); err != nil {
		return nil, err
	}
	if !filter.Scope.All && filter.Scope.CreatedBy == "" {
		return nil, repository.ErrMissingScope
	}

	r.mu.RLock()
	result := []domain.Ticket{}
	for _, ticket := range r.byID {
		if !filter.Scope.Matches(ticket.CreatedBy) {
			continue
		}
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, ticket.Status) {
			continue
		}
		if len(filter.Priorities) > 0 && !slices.Contains(filter.Priorities, ticket.Priority) {
			continue
		}
		result = append(result, ticket)
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(result) {
		return []domain.Ticket{}, nil
	}
	end := offset + limit
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end], nil
}

// Put stores a ticket verbatim, for fixtures that need specific ids or times.
func (r *TicketRepo) Put(ticket domain.Ticket) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[ticket.ID] = ticket
}

// Count reports how many tickets are stored.
func (r *TicketRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// CommentRepo is an in-memory repository.CommentRepository.
type CommentRepo struct {
	Failure
	mu       sync.RWMutex
	clock    *Clock
	comments []domain.Comment
}

var _ repository.CommentRepository = (*CommentRepo)(nil)

func (r *CommentRepo) Create(_ context.Context, comment *domain.Comment) error {
	if err := r.failure(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	comment.ID = uuid.NewString()
	comment.CreatedAt = r.clock.Now()
	r.comments = append(r.comments, *comment)
	return nil
}

func (r *CommentRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Comment, error) {
	if err := r.failure(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := []domain.Comment{}
	for _, comment := range r.comments {
		if comment.TicketID == ticketID {
			result = append(result, comment)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// RoleRepo is an in-memory repository.RoleRepository.
type RoleRepo struct {
	Failure
	mu     sync.RWMutex
	byUser map[string]domain.Role
	reads  int
}

var _ repository.RoleRepository = (*RoleRepo)(nil)

func (r *RoleRepo) GetByUserID(_ context.Context, userID string) (*domain.Role, error) {
	if err := r.failure(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reads++
	role, ok := r.byUser[userID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &role, nil
}

func (r *RoleRepo) Upsert(_ context.Context, role domain.Role) error {
	if err := r.failure(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byUser[role.UserID] = role
	return nil
}

func (r *RoleRepo) List(_ context.Context) ([]domain.Role, error) {
	if err := r.failure(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]domain.Role, 0, len(r.byUser))
	for _, role := range r.byUser {
		result = append(result, role)
	}
	return result, nil
}

// Reads reports how many GetByUserID calls reached the repository.
func (r *RoleRepo) Reads() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.reads
}

// UserRepo is an in-memory repository.UserRepository.
type UserRepo struct {
	Failure
	mu    sync.RWMutex
	clock *Clock
	byID  map[string]domain.User
}

var _ repository.UserRepository = (*UserRepo)(nil)

func (r *UserRepo) Create(_ context.Context, user *domain.User) error {
	if err := r.failure(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	user.ID = uuid.NewString()
	user.CreatedAt = r.clock.Now()
	r.byID[user.ID] = *user
	return nil
}

func (r *UserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	if err := r.failure(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (r *UserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	if err := r.failure(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.byID {
		if user.Email == email {
			return &user, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *UserRepo) List(_ context.Context) ([]domain.User, error) {
	if err := r.failure(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]domain.User, 0, len(r.byID))
	for _, user := range r.byID {
		result = append(result, user)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Email < result[j].Email })
	return result, nil
}

// AddUser registers a user with an email and returns its id.
func (r *UserRepo) AddUser(email string) string {
	user := domain.User{Email: email}
	_ = r.Create(context.Background(), &user)
	return user.ID
}

// AuditRepo is an in-memory repository.AuditRepository.
type AuditRepo struct {
	Failure
	mu      sync.RWMutex
	clock   *Clock
	entries []domain.AuditEntry
}

var _ repository.AuditRepository = (*AuditRepo)(nil)

func (r *AuditRepo) Create(_ context.Context, entry *domain.AuditEntry) error {
	if err := r.failure(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.entries {
		if existing.EventID == entry.EventID {
			return nil
		}
	}
	entry.ID = uuid.NewString()
	entry.CreatedAt = r.clock.Now()
	r.entries = append(r.entries, *entry)
	return nil
}

// Entries returns a copy of the recorded entries in insertion order.
func (r *AuditRepo) Entries() []domain.AuditEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.AuditEntry(nil), r.entries...)
}
