package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/aziwar/dr-islam-gallery/common/db"
)

// AuditEntry is one moderation event: upload, approve or delete
type AuditEntry struct {
	ID         int64     `json:"id"`
	CaseID     string    `json:"caseId"`
	Action     string    `json:"action"`
	Actor      string    `json:"actor"`
	OccurredAt time.Time `json:"occurredAt"`
}

// AuditRepository keeps the moderation trail in Postgres. Deleted cases
// vanish from the case store, so this table is the only durable record that
// they existed.
type AuditRepository struct {
	db *db.DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *db.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// EnsureSchema creates the audit table if it does not exist
func (r *AuditRepository) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS gallery_audit (
			id          BIGSERIAL PRIMARY KEY,
			case_id     TEXT NOT NULL,
			action      TEXT NOT NULL,
			actor       TEXT NOT NULL,
			occurred_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`

	if _, err := r.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to ensure audit schema: %w", err)
	}

	return nil
}

// Record inserts one moderation event
func (r *AuditRepository) Record(ctx context.Context, caseID, action, actor string) error {
	query := `
		INSERT INTO gallery_audit (case_id, action, actor)
		VALUES ($1, $2, $3)
	`

	if _, err := r.db.Exec(ctx, query, caseID, action, actor); err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}

	return nil
}

// ListForCase retrieves the moderation history of one case, oldest first
func (r *AuditRepository) ListForCase(ctx context.Context, caseID string) ([]*AuditEntry, error) {
	query := `
		SELECT id, case_id, action, actor, occurred_at
		FROM gallery_audit
		WHERE case_id = $1
		ORDER BY occurred_at ASC
	`

	rows, err := r.db.Query(ctx, query, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*AuditEntry, 0)
	for rows.Next() {
		entry := &AuditEntry{}
		if err := rows.Scan(&entry.ID, &entry.CaseID, &entry.Action, &entry.Actor, &entry.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}
