package repos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"vendorpos/internal/domain"
)

type ProductRepo struct{ db *sqlx.DB }

func NewProductRepo(db *sqlx.DB) *ProductRepo { return &ProductRepo{db: db} }

const productCols = `
    id, sku, name, description, category, cost_price, selling_price, stock,
    low_stock_threshold, barcode, image_url, vendor_id, synced_at, local_updated_at, needs_sync`

// Upsert inserts or overwrites a product keyed by id. A nil SyncedAt keeps the
// stored value; local_updated_at is always refreshed.
func (r *ProductRepo) Upsert(ctx context.Context, p domain.Product) error {
	return upsertProduct(ctx, r.db, p)
}

func upsertProduct(ctx context.Context, e sqlx.ExtContext, p domain.Product) error {
	p.LocalUpdatedAt = domain.NowMillis()
	_, err := sqlx.NamedExecContext(ctx, e, `
	  INSERT INTO products(`+productCols+`)
	  VALUES (:id, :sku, :name, :description, :category, :cost_price, :selling_price, :stock,
	          :low_stock_threshold, :barcode, :image_url, :vendor_id, :synced_at, :local_updated_at, :needs_sync)
	  ON CONFLICT(id) DO UPDATE SET
	    sku = excluded.sku,
	    name = excluded.name,
	    description = excluded.description,
	    category = excluded.category,
	    cost_price = excluded.cost_price,
	    selling_price = excluded.selling_price,
	    stock = excluded.stock,
	    low_stock_threshold = excluded.low_stock_threshold,
	    barcode = excluded.barcode,
	    image_url = excluded.image_url,
	    vendor_id = excluded.vendor_id,
	    synced_at = COALESCE(excluded.synced_at, products.synced_at),
	    local_updated_at = excluded.local_updated_at,
	    needs_sync = excluded.needs_sync
	`, p)
	if err != nil {
		return fmt.Errorf("repos: upsert product %s: %w", p.ID, err)
	}
	return nil
}

func (r *ProductRepo) Get(ctx context.Context, id string) (domain.Product, error) {
	var p domain.Product
	err := r.db.GetContext(ctx, &p, `SELECT `+productCols+` FROM products WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, ErrNotFound
	}
	return p, err
}

// ByBarcode returns the first product of the vendor carrying the barcode.
func (r *ProductRepo) ByBarcode(ctx context.Context, vendorID, barcode string) (domain.Product, error) {
	var p domain.Product
	err := r.db.GetContext(ctx, &p, `
	  SELECT `+productCols+`
	  FROM products
	  WHERE barcode = ? AND (? = '' OR vendor_id = ?)
	  ORDER BY id
	  LIMIT 1
	`, barcode, vendorID, vendorID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, ErrNotFound
	}
	return p, err
}

func (r *ProductRepo) ListByVendor(ctx context.Context, vendorID string) ([]domain.Product, error) {
	out := []domain.Product{}
	err := r.db.SelectContext(ctx, &out, `
	  SELECT `+productCols+`
	  FROM products
	  WHERE vendor_id = ?
	  ORDER BY name
	`, vendorID)
	return out, err
}

// Search matches name, sku or barcode within a vendor.
func (r *ProductRepo) Search(ctx context.Context, vendorID, q string, limit int) ([]domain.Product, error) {
	if limit <= 0 {
		limit = 50
	}
	like := "%" + q + "%"
	out := []domain.Product{}
	err := r.db.SelectContext(ctx, &out, `
	  SELECT `+productCols+`
	  FROM products
	  WHERE vendor_id = ? AND (LOWER(name) LIKE LOWER(?) OR sku LIKE ? OR barcode = ?)
	  ORDER BY name
	  LIMIT ?
	`, vendorID, like, like, q, limit)
	return out, err
}

// AdjustStock adds delta (negative for a sale) to the cached stock count.
func (r *ProductRepo) AdjustStock(ctx context.Context, id string, delta int) error {
	res, err := r.db.ExecContext(ctx, `
	  UPDATE products SET stock = stock + ?, local_updated_at = ? WHERE id = ?
	`, delta, domain.NowMillis(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkSynced clears needs_sync after the remote acknowledged a local edit.
func (r *ProductRepo) MarkSynced(ctx context.Context, id string, at int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE products SET needs_sync = 0, synced_at = ? WHERE id = ?`, at, id)
	return err
}
