package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/deskline/ticket-tracker/internal/domain"
)

const roleKeyPrefix = "roles:"

// RoleCache stores resolved roles in Redis as JSON.
type RoleCache struct {
	client *redis.Client
}

type cachedRole struct {
	Role    domain.RoleTag `json:"role"`
	IsAdmin bool           `json:"is_admin"`
}

// NewRoleCache returns nil when Redis is disabled.
func NewRoleCache(r *Redis) *RoleCache {
	if !r.Enabled() {
		return nil
	}
	return &RoleCache{client: r.Client}
}

// Get returns nil, nil on a cache miss.
func (c *RoleCache) Get(ctx context.Context, userID string) (*domain.Role, error) {
	raw, err := c.client.Get(ctx, roleKeyPrefix+userID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var entry cachedRole
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, err
	}
	return &domain.Role{UserID: userID, Tag: entry.Role, IsAdmin: entry.IsAdmin}, nil
}

// Set caches role for ttl, replacing any existing entry.
func (c *RoleCache) Set(ctx context.Context, role domain.Role, ttl time.Duration) error {
	raw, err := encodeRole(role)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, roleKeyPrefix+role.UserID, raw, ttl).Err()
}

// SetIfAbsent caches role only when no entry exists for the user.
func (c *RoleCache) SetIfAbsent(ctx context.Context, role domain.Role, ttl time.Duration) error {
	raw, err := encodeRole(role)
	if err != nil {
		return err
	}
	return c.client.SetNX(ctx, roleKeyPrefix+role.UserID, raw, ttl).Err()
}

func encodeRole(role domain.Role) ([]byte, error) {
	return json.Marshal(cachedRole{Role: role.Tag, IsAdmin: role.IsAdmin})
}

// Delete drops the cached role for userID.
func (c *RoleCache) Delete(ctx context.Context, userID string) error {
	return c.client.Del(ctx, roleKeyPrefix+userID).Err()
}
