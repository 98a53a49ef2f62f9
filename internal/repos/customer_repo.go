package repos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"vendorpos/internal/domain"
)

type CustomerRepo struct{ db *sqlx.DB }

func NewCustomerRepo(db *sqlx.DB) *CustomerRepo { return &CustomerRepo{db: db} }

const customerCols = `id, name, email, phone, address, vendor_id, synced_at, local_updated_at, needs_sync`

// Upsert follows the same rules as ProductRepo.Upsert.
func (r *CustomerRepo) Upsert(ctx context.Context, c domain.Customer) error {
	return upsertCustomer(ctx, r.db, c)
}

func upsertCustomer(ctx context.Context, e sqlx.ExtContext, c domain.Customer) error {
	c.LocalUpdatedAt = domain.NowMillis()
	_, err := sqlx.NamedExecContext(ctx, e, `
	  INSERT INTO customers(`+customerCols+`)
	  VALUES (:id, :name, :email, :phone, :address, :vendor_id, :synced_at, :local_updated_at, :needs_sync)
	  ON CONFLICT(id) DO UPDATE SET
	    name = excluded.name,
	    email = excluded.email,
	    phone = excluded.phone,
	    address = excluded.address,
	    vendor_id = excluded.vendor_id,
	    synced_at = COALESCE(excluded.synced_at, customers.synced_at),
	    local_updated_at = excluded.local_updated_at,
	    needs_sync = excluded.needs_sync
	`, c)
	if err != nil {
		return fmt.Errorf("repos: upsert customer %s: %w", c.ID, err)
	}
	return nil
}

func (r *CustomerRepo) Get(ctx context.Context, id string) (domain.Customer, error) {
	var c domain.Customer
	err := r.db.GetContext(ctx, &c, `SELECT `+customerCols+` FROM customers WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Customer{}, ErrNotFound
	}
	return c, err
}

func (r *CustomerRepo) ListByVendor(ctx context.Context, vendorID string) ([]domain.Customer, error) {
	out := []domain.Customer{}
	err := r.db.SelectContext(ctx, &out, `
	  SELECT `+customerCols+`
	  FROM customers
	  WHERE vendor_id = ?
	  ORDER BY name
	`, vendorID)
	return out, err
}

func (r *CustomerRepo) MarkSynced(ctx context.Context, id string, at int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE customers SET needs_sync = 0, synced_at = ? WHERE id = ?`, at, id)
	return err
}
