package repos

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"vendorpos/internal/domain"
	"vendorpos/internal/validate"
)

// MaxSyncBatch bounds how many queued mutations one push cycle handles.
const MaxSyncBatch = 50

type SyncQueueRepo struct{ db *sqlx.DB }

func NewSyncQueueRepo(db *sqlx.DB) *SyncQueueRepo { return &SyncQueueRepo{db: db} }

const queueCols = `id, table_name, operation, record_id, payload, op_key, created_at, attempts, last_error`

// Add queues a mutation and returns its sequence id. CREATE and UPDATE
// payloads must be valid JSON; the remote sends them as the request body.
func (r *SyncQueueRepo) Add(ctx context.Context, table, operation, recordID, payload string) (int64, error) {
	return insertQueueItem(ctx, r.db, table, operation, recordID, payload)
}

func insertQueueItem(ctx context.Context, e sqlx.ExecerContext, table, operation, recordID, payload string) (int64, error) {
	t, err := domain.ParseTable(table)
	if err != nil {
		return 0, err
	}
	op, err := domain.ParseOperation(operation)
	if err != nil {
		return 0, err
	}
	if recordID == "" {
		return 0, errors.New("repos: queue item needs a record id")
	}
	if op != domain.OpDelete && !json.Valid([]byte(payload)) {
		return 0, fmt.Errorf("%w: %s %s/%s payload is not valid JSON", validate.ErrInvalid, op, t, recordID)
	}
	res, err := e.ExecContext(ctx, `
	  INSERT INTO sync_queue(table_name, operation, record_id, payload, op_key, created_at, attempts)
	  VALUES (?, ?, ?, ?, ?, ?, 0)
	`, t, op, recordID, payload, uuid.NewString(), domain.NowMillis())
	if err != nil {
		return 0, fmt.Errorf("repos: enqueue %s %s/%s: %w", op, t, recordID, err)
	}
	return res.LastInsertId()
}

// Pending returns up to limit items oldest first; limit is clamped to MaxSyncBatch.
func (r *SyncQueueRepo) Pending(ctx context.Context, limit int) ([]domain.SyncQueueItem, error) {
	if limit <= 0 || limit > MaxSyncBatch {
		limit = MaxSyncBatch
	}
	out := []domain.SyncQueueItem{}
	err := r.db.SelectContext(ctx, &out, `
	  SELECT `+queueCols+`
	  FROM sync_queue
	  ORDER BY created_at, id
	  LIMIT ?
	`, limit)
	return out, err
}

func (r *SyncQueueRepo) Get(ctx context.Context, id int64) (domain.SyncQueueItem, error) {
	var it domain.SyncQueueItem
	err := r.db.GetContext(ctx, &it, `SELECT `+queueCols+` FROM sync_queue WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.SyncQueueItem{}, ErrNotFound
	}
	return it, err
}

func (r *SyncQueueRepo) Remove(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sync_queue WHERE id = ?`, id)
	return err
}

// RecordError bumps attempts by one and keeps the latest failure message.
func (r *SyncQueueRepo) RecordError(ctx context.Context, id int64, message string) error {
	res, err := r.db.ExecContext(ctx, `
	  UPDATE sync_queue SET attempts = attempts + 1, last_error = ? WHERE id = ?
	`, message, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SyncQueueRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM sync_queue`)
	return n, err
}

// HasPending reports whether another mutation for the record is still queued.
func (r *SyncQueueRepo) HasPending(ctx context.Context, table domain.Table, recordID string) (bool, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `
	  SELECT COUNT(*) FROM sync_queue WHERE table_name = ? AND record_id = ?
	`, table, recordID)
	return n > 0, err
}
