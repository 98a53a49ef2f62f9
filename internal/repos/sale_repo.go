package repos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"vendorpos/internal/domain"
)

type SaleRepo struct{ db *sqlx.DB }

func NewSaleRepo(db *sqlx.DB) *SaleRepo { return &SaleRepo{db: db} }

const saleCols = `
    id, items, subtotal, discount, tax, total, payment_method, customer_id,
    vendor_id, created_at, needs_sync, synced_at`

// OfflineSaleID builds an id for a sale recorded without one. The random
// suffix keeps two sales rung up in the same millisecond apart.
func OfflineSaleID(now int64) string {
	return fmt.Sprintf("offline-%d-%s", now, uuid.NewString()[:8])
}

// Save inserts a new sale and returns it as stored. Sales are never updated
// here; needs_sync is always set.
func (r *SaleRepo) Save(ctx context.Context, s domain.Sale) (domain.Sale, error) {
	now := domain.NowMillis()
	if s.ID == "" {
		s.ID = OfflineSaleID(now)
	}
	if s.CreatedAt == 0 {
		s.CreatedAt = now
	}
	s.NeedsSync = true
	s.SyncedAt = nil
	_, err := r.db.NamedExecContext(ctx, `
	  INSERT INTO sales(`+saleCols+`)
	  VALUES (:id, :items, :subtotal, :discount, :tax, :total, :payment_method, :customer_id,
	          :vendor_id, :created_at, :needs_sync, :synced_at)
	`, s)
	if isUniqueViolation(err) {
		return domain.Sale{}, fmt.Errorf("%w: sale %s", ErrDuplicate, s.ID)
	}
	if err != nil {
		return domain.Sale{}, fmt.Errorf("repos: save sale: %w", err)
	}
	return s, nil
}

func (r *SaleRepo) Get(ctx context.Context, id string) (domain.Sale, error) {
	var s domain.Sale
	err := r.db.GetContext(ctx, &s, `SELECT `+saleCols+` FROM sales WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Sale{}, ErrNotFound
	}
	return s, err
}

// Pending returns every sale awaiting acknowledgement, oldest first.
func (r *SaleRepo) Pending(ctx context.Context) ([]domain.Sale, error) {
	out := []domain.Sale{}
	err := r.db.SelectContext(ctx, &out, `
	  SELECT `+saleCols+`
	  FROM sales
	  WHERE needs_sync = 1
	  ORDER BY created_at, id
	`)
	return out, err
}

func (r *SaleRepo) MarkSynced(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
	  UPDATE sales SET needs_sync = 0, synced_at = ? WHERE id = ?
	`, domain.NowMillis(), id)
	if err != nil {
		return fmt.Errorf("repos: mark sale %s synced: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SaleRepo) ListByVendor(ctx context.Context, vendorID string, limit int) ([]domain.Sale, error) {
	if limit <= 0 {
		limit = 100
	}
	out := []domain.Sale{}
	err := r.db.SelectContext(ctx, &out, `
	  SELECT `+saleCols+`
	  FROM sales
	  WHERE vendor_id = ?
	  ORDER BY created_at DESC
	  LIMIT ?
	`, vendorID, limit)
	return out, err
}
