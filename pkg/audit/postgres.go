package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRecorder persists attempt outcomes to the mfa_audit table.
type PostgresRecorder struct {
	pool *pgxpool.Pool
}

func NewPostgresRecorder(pool *pgxpool.Pool) *PostgresRecorder {
	return &PostgresRecorder{pool: pool}
}

func (r *PostgresRecorder) Record(ctx context.Context, event Event) error {
	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO mfa_audit (attempt_id, username, outcome, detail, occurred_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		event.AttemptID, event.Username, event.Outcome, event.Detail, occurredAt)
	if err != nil {
		return fmt.Errorf("failed to record mfa audit event: %w", err)
	}
	return nil
}
