package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"

	"sellerops/internal/database"
	"sellerops/internal/models"
	"sellerops/internal/session"
)

// SQLAudit mirrors every execution record write into the block_executions
// SQL table. Mirror failures are logged; the wrapped store stays authoritative.
type SQLAudit struct {
	Store
	db *database.DB
}

// NewSQLAudit wraps inner so execution writes are also recorded in db
func NewSQLAudit(inner Store, db *database.DB) *SQLAudit {
	return &SQLAudit{Store: inner, db: db}
}

// InsertExecutionRecord writes to the wrapped store, then mirrors the row
func (a *SQLAudit) InsertExecutionRecord(ctx context.Context, sess session.Context, rec models.ExecutionRecord) (*models.ExecutionRecord, error) {
	out, err := a.Store.InsertExecutionRecord(ctx, sess, rec)
	if err != nil {
		return nil, err
	}

	_, err = a.db.ExecContext(ctx, `
		INSERT INTO block_executions
			(id, user_id, block_id, category, name, status, demo_mode, error, input_json, output_json, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		out.ID, out.UserID, out.BlockID, string(out.Category), out.Name, string(out.Status), out.DemoMode,
		out.Error, toJSON(out.InputData), toJSON(out.OutputData), out.StartedAt, nullTime(out),
	)
	if err != nil {
		log.Printf("⚠️ [AUDIT] Failed to mirror execution %s: %v", out.ID, err)
	}
	return out, nil
}

// UpdateExecutionRecord writes to the wrapped store, then mirrors the change
func (a *SQLAudit) UpdateExecutionRecord(ctx context.Context, sess session.Context, id string, patch ExecutionPatch) error {
	if err := a.Store.UpdateExecutionRecord(ctx, sess, id, patch); err != nil {
		return err
	}

	completed := sql.NullTime{Time: patch.CompletedAt, Valid: !patch.CompletedAt.IsZero()}
	_, err := a.db.ExecContext(ctx, `
		UPDATE block_executions
		SET status = ?, error = ?, output_json = COALESCE(?, output_json), completed_at = ?
		WHERE id = ? AND user_id = ?`,
		string(patch.Status), patch.Error, toJSON(patch.OutputData), completed, id, sess.UserID,
	)
	if err != nil {
		log.Printf("⚠️ [AUDIT] Failed to mirror execution update %s: %v", id, err)
	}
	return nil
}

func toJSON(v map[string]any) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}

func nullTime(r *models.ExecutionRecord) sql.NullTime {
	if r.CompletedAt == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *r.CompletedAt, Valid: true}
}
