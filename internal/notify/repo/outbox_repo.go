package repo

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/sellergrid/service-core-go/pkg/utilities"
)

// OutboxRepo records outbound notification attempts for auditing. The log
// is best-effort: a failed insert never fails the send.
type OutboxRepo struct {
	db *sqlx.DB
}

func NewOutboxRepo(db *sqlx.DB) *OutboxRepo {
	return &OutboxRepo{db: db}
}

// EnsureTable creates the notification_log table if it does not already
// exist.
func (r *OutboxRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS notification_log (
  id VARCHAR(32) PRIMARY KEY,
  recipient TEXT NOT NULL,
  subject TEXT NOT NULL,
  status TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_notification_log_recipient ON notification_log (recipient);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// Record inserts one delivery attempt.
func (r *OutboxRepo) Record(ctx context.Context, recipient, subject, status string) error {
	const q = `INSERT INTO notification_log (id, recipient, subject, status) VALUES ($1, $2, $3, $4)`
	_, err := r.db.ExecContext(ctx, q, utilities.NewKSUID(), recipient, subject, status)
	return err
}
