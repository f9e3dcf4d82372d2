package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deskline/ticket-tracker/internal/domain"
)

// RoleRepository persists one role record per user.
type RoleRepository interface {
	// GetByUserID returns pgx.ErrNoRows when the user has no record.
	GetByUserID(ctx context.Context, userID string) (*domain.Role, error)
	// Upsert overwrites any prior record for role.UserID wholesale.
	Upsert(ctx context.Context, role domain.Role) error
	List(ctx context.Context) ([]domain.Role, error)
}

type roleRepository struct {
	pool *pgxpool.Pool
}

// NewRoleRepository returns a Postgres-backed implementation.
func NewRoleRepository(pool *pgxpool.Pool) RoleRepository {
	return &roleRepository{pool: pool}
}

func (r *roleRepository) GetByUserID(ctx context.Context, userID string) (*domain.Role, error) {
	const query = `SELECT user_id, role, is_admin FROM user_roles WHERE user_id=$1`

	var role domain.Role
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&role.UserID, &role.Tag, &role.IsAdmin); err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *roleRepository) Upsert(ctx context.Context, role domain.Role) error {
	const query = `
        INSERT INTO user_roles (user_id, role, is_admin)
        VALUES ($1,$2,$3)
        ON CONFLICT (user_id) DO UPDATE SET role=EXCLUDED.role, is_admin=EXCLUDED.is_admin, updated_at=NOW()`
	_, err := r.pool.Exec(ctx, query, role.UserID, role.Tag, role.IsAdmin)
	return err
}

func (r *roleRepository) List(ctx context.Context) ([]domain.Role, error) {
	const query = `SELECT user_id, role, is_admin FROM user_roles`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Role{}
	for rows.Next() {
		var role domain.Role
		if err := rows.Scan(&role.UserID, &role.Tag, &role.IsAdmin); err != nil {
			return nil, err
		}
		result = append(result, role)
	}
	return result, rows.Err()
}
