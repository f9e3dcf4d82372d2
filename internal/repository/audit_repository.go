package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deskline/ticket-tracker/internal/domain"
)

// AuditRepository stores audit entries. Entries are append-only.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditEntry) error
}

type auditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository builds repository.
func NewAuditRepository(pool *pgxpool.Pool) AuditRepository {
	return &auditRepository{pool: pool}
}

func (r *auditRepository) Create(ctx context.Context, entry *domain.AuditEntry) error {
	const query = `
        INSERT INTO audit_events (event_id, event_type, actor_id, subject_id, payload, occurred_at)
        VALUES ($1,$2,NULLIF($3,''),$4,$5,$6)
        ON CONFLICT (event_id) DO NOTHING
        RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, query,
		entry.EventID,
		entry.EventType,
		entry.ActorID,
		entry.SubjectID,
		entry.Payload,
		entry.OccurredAt,
	).Scan(&entry.ID, &entry.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// Already recorded.
		return nil
	}
	return err
}
