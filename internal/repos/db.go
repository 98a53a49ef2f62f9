package repos

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
	// ErrStoreUnavailable wraps any failure to open or initialize the local database.
	ErrStoreUnavailable = errors.New("local store unavailable")
)

// OpenDB opens the local sqlite file (or ":memory:") and ensures the schema.
func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	// One connection: sqlite serializes writers anyway, and ":memory:" is per-connection.
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: schema: %v", ErrStoreUnavailable, err)
	}
	return db, nil
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
PRAGMA journal_mode = WAL;
PRAGMA busy_timeout = 5000;
PRAGMA foreign_keys = ON;

-- Catalog cache
CREATE TABLE IF NOT EXISTS products(
  id TEXT PRIMARY KEY,
  sku TEXT NOT NULL DEFAULT '',
  name TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  category TEXT NOT NULL DEFAULT '',
  cost_price REAL NOT NULL DEFAULT 0,
  selling_price REAL NOT NULL DEFAULT 0,
  stock INTEGER NOT NULL DEFAULT 0,
  low_stock_threshold INTEGER NOT NULL DEFAULT 0,
  barcode TEXT NOT NULL DEFAULT '',
  image_url TEXT NOT NULL DEFAULT '',
  vendor_id TEXT NOT NULL DEFAULT '',
  synced_at INTEGER,
  local_updated_at INTEGER NOT NULL,
  needs_sync INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_products_barcode ON products(barcode);
CREATE INDEX IF NOT EXISTS idx_products_vendor  ON products(vendor_id);

-- Sales ledger
CREATE TABLE IF NOT EXISTS sales(
  id TEXT PRIMARY KEY,
  items TEXT NOT NULL,
  subtotal REAL NOT NULL,
  discount REAL NOT NULL DEFAULT 0,
  tax REAL NOT NULL DEFAULT 0,
  total REAL NOT NULL,
  payment_method TEXT NOT NULL,
  customer_id TEXT,
  vendor_id TEXT NOT NULL,
  created_at INTEGER NOT NULL,
  needs_sync INTEGER NOT NULL DEFAULT 1,
  synced_at INTEGER
);
CREATE INDEX IF NOT EXISTS idx_sales_vendor     ON sales(vendor_id);
CREATE INDEX IF NOT EXISTS idx_sales_needs_sync ON sales(needs_sync);

-- Only sync bookkeeping may change on a sale.
CREATE TRIGGER IF NOT EXISTS trg_sales_immutable
BEFORE UPDATE OF id, items, subtotal, discount, tax, total, payment_method, customer_id, vendor_id, created_at ON sales
BEGIN
  SELECT RAISE(ABORT, 'sales are immutable');
END;

-- Customer directory
CREATE TABLE IF NOT EXISTS customers(
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  email TEXT NOT NULL DEFAULT '',
  phone TEXT NOT NULL DEFAULT '',
  address TEXT NOT NULL DEFAULT '',
  vendor_id TEXT NOT NULL DEFAULT '',
  synced_at INTEGER,
  local_updated_at INTEGER NOT NULL,
  needs_sync INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_customers_vendor ON customers(vendor_id);

-- Pending catalog/customer mutations
CREATE TABLE IF NOT EXISTS sync_queue(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  table_name TEXT NOT NULL,
  operation TEXT NOT NULL CHECK (operation IN ('CREATE','UPDATE','DELETE')),
  record_id TEXT NOT NULL,
  payload TEXT NOT NULL DEFAULT '',
  op_key TEXT NOT NULL,
  created_at INTEGER NOT NULL,
  attempts INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);
CREATE INDEX IF NOT EXISTS idx_sync_queue_table   ON sync_queue(table_name);
CREATE INDEX IF NOT EXISTS idx_sync_queue_created ON sync_queue(created_at, id);
`
	_, err := db.Exec(schema)
	return err
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
