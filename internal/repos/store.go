package repos

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"vendorpos/internal/domain"
)

// Store bundles the repos over one local database. A nil *Store stands for a
// store that could not be opened.
type Store struct {
	db        *sqlx.DB
	Products  *ProductRepo
	Customers *CustomerRepo
	Sales     *SaleRepo
	Queue     *SyncQueueRepo
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{
		db:        db,
		Products:  NewProductRepo(db),
		Customers: NewCustomerRepo(db),
		Sales:     NewSaleRepo(db),
		Queue:     NewSyncQueueRepo(db),
	}
}

// Open is OpenDB followed by NewStore.
func Open(dsn string) (*Store, error) {
	db, err := OpenDB(dsn)
	if err != nil {
		return nil, err
	}
	return NewStore(db), nil
}

// Stats counts rows across the four tables in one read.
func (s *Store) Stats(ctx context.Context) (domain.OfflineStats, error) {
	var st domain.OfflineStats
	err := s.db.GetContext(ctx, &st, `
	  SELECT
	    (SELECT COUNT(*) FROM products)                   AS products,
	    (SELECT COUNT(*) FROM sales)                      AS sales,
	    (SELECT COUNT(*) FROM sales WHERE needs_sync = 1) AS pending_sales,
	    (SELECT COUNT(*) FROM customers)                  AS customers,
	    (SELECT COUNT(*) FROM sync_queue)                 AS queue_depth
	`)
	return st, err
}

// StatsForVendor scopes row counts to one vendor. The sync queue belongs to
// the device, so QueueDepth is not scoped.
func (s *Store) StatsForVendor(ctx context.Context, vendorID string) (domain.OfflineStats, error) {
	var st domain.OfflineStats
	err := s.db.GetContext(ctx, &st, `
	  SELECT
	    (SELECT COUNT(*) FROM products  WHERE vendor_id = ?)                   AS products,
	    (SELECT COUNT(*) FROM sales     WHERE vendor_id = ?)                   AS sales,
	    (SELECT COUNT(*) FROM sales     WHERE vendor_id = ? AND needs_sync = 1) AS pending_sales,
	    (SELECT COUNT(*) FROM customers WHERE vendor_id = ?)                   AS customers,
	    (SELECT COUNT(*) FROM sync_queue)                                      AS queue_depth
	`, vendorID, vendorID, vendorID, vendorID)
	return st, err
}

// SaveProductEdit stores a local product edit and queues its mutation in one
// transaction. It returns CREATE when the id was not stored before.
func (s *Store) SaveProductEdit(ctx context.Context, p domain.Product) (domain.Operation, error) {
	p.NeedsSync = true
	p.SyncedAt = nil
	return s.saveEdit(ctx, domain.TableProducts, p.ID, p, func(tx *sqlx.Tx) error {
		return upsertProduct(ctx, tx, p)
	})
}

// SaveCustomerEdit is SaveProductEdit for the customer directory.
func (s *Store) SaveCustomerEdit(ctx context.Context, c domain.Customer) (domain.Operation, error) {
	c.NeedsSync = true
	c.SyncedAt = nil
	return s.saveEdit(ctx, domain.TableCustomers, c.ID, c, func(tx *sqlx.Tx) error {
		return upsertCustomer(ctx, tx, c)
	})
}

func (s *Store) saveEdit(ctx context.Context, table domain.Table, id string, record any, upsert func(*sqlx.Tx) error) (domain.Operation, error) {
	payload, err := json.Marshal(record)
	if err != nil {
		return "", err
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	op := domain.OpUpdate
	var one int
	// table is one of the two parsed Table values, never user text.
	err = tx.GetContext(ctx, &one, `SELECT 1 FROM `+string(table)+` WHERE id = ?`, id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		op = domain.OpCreate
	case err != nil:
		return "", fmt.Errorf("repos: lookup %s/%s: %w", table, id, err)
	}
	if err := upsert(tx); err != nil {
		return "", err
	}
	if _, err := insertQueueItem(ctx, tx, string(table), string(op), id, string(payload)); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("repos: commit %s/%s: %w", table, id, err)
	}
	return op, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
