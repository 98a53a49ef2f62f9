package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	ErrUnknownTable     = errors.New("table is not synchronized")
	ErrInvalidOperation = errors.New("operation must be CREATE, UPDATE or DELETE")
)

// Table names a locally cached resource that local edits can be queued for.
type Table string

const (
	TableProducts  Table = "products"
	TableCustomers Table = "customers"
)

// ParseTable only accepts tables the push side knows how to dispatch.
func ParseTable(s string) (Table, error) {
	switch t := Table(s); t {
	case TableProducts, TableCustomers:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTable, s)
}

type Operation string

const (
	OpCreate Operation = "CREATE"
	OpUpdate Operation = "UPDATE"
	OpDelete Operation = "DELETE"
)

func ParseOperation(s string) (Operation, error) {
	switch op := Operation(s); op {
	case OpCreate, OpUpdate, OpDelete:
		return op, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidOperation, s)
}

// Timestamps are Unix milliseconds.
func NowMillis() int64 { return time.Now().UnixMilli() }

type Product struct {
	ID                string  `db:"id" json:"id" validate:"required,max=64"`
	SKU               string  `db:"sku" json:"sku"`
	Name              string  `db:"name" json:"name" validate:"required,max=200"`
	Description       string  `db:"description" json:"description"`
	Category          string  `db:"category" json:"category"`
	CostPrice         float64 `db:"cost_price" json:"costPrice" validate:"gte=0"`
	SellingPrice      float64 `db:"selling_price" json:"sellingPrice" validate:"gte=0"`
	Stock             int     `db:"stock" json:"stock"`
	LowStockThreshold int     `db:"low_stock_threshold" json:"lowStockThreshold" validate:"gte=0"`
	Barcode           string  `db:"barcode" json:"barcode"`
	ImageURL          string  `db:"image_url" json:"imageUrl"`
	VendorID          string  `db:"vendor_id" json:"vendorId"`
	SyncedAt          *int64  `db:"synced_at" json:"syncedAt,omitempty"`
	LocalUpdatedAt    int64   `db:"local_updated_at" json:"localUpdatedAt"`
	NeedsSync         bool    `db:"needs_sync" json:"needsSync"`
}

// LowStock reports whether the product is at or under its threshold.
func (p Product) LowStock() bool { return p.Stock <= p.LowStockThreshold }

type Customer struct {
	ID             string `db:"id" json:"id" validate:"required,max=64"`
	Name           string `db:"name" json:"name" validate:"required,max=200"`
	Email          string `db:"email" json:"email" validate:"omitempty,email"`
	Phone          string `db:"phone" json:"phone" validate:"max=32"`
	Address        string `db:"address" json:"address"`
	VendorID       string `db:"vendor_id" json:"vendorId"`
	SyncedAt       *int64 `db:"synced_at" json:"syncedAt,omitempty"`
	LocalUpdatedAt int64  `db:"local_updated_at" json:"localUpdatedAt"`
	NeedsSync      bool   `db:"needs_sync" json:"needsSync"`
}

type SaleItem struct {
	ProductID string  `json:"productId" validate:"required"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity" validate:"gte=1"`
	UnitPrice float64 `json:"unitPrice" validate:"gte=0"`
}

func (it SaleItem) LineTotal() float64 { return float64(it.Quantity) * it.UnitPrice }

// SaleItems is stored as a JSON text column.
type SaleItems []SaleItem

func (s SaleItems) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *SaleItems) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*s = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("domain: cannot scan %T into SaleItems", src)
	}
	if len(raw) == 0 {
		*s = nil
		return nil
	}
	return json.Unmarshal(raw, s)
}

func (s SaleItems) Subtotal() float64 {
	var total float64
	for _, it := range s {
		total += it.LineTotal()
	}
	return total
}

// Sale is immutable after creation except for NeedsSync and SyncedAt.
type Sale struct {
	ID            string    `db:"id" json:"id" validate:"max=96"`
	Items         SaleItems `db:"items" json:"items" validate:"required,min=1,dive"`
	Subtotal      float64   `db:"subtotal" json:"subtotal" validate:"gte=0"`
	Discount      float64   `db:"discount" json:"discount" validate:"gte=0"`
	Tax           float64   `db:"tax" json:"tax" validate:"gte=0"`
	Total         float64   `db:"total" json:"total" validate:"gte=0"`
	PaymentMethod string    `db:"payment_method" json:"paymentMethod" validate:"required,max=32"`
	CustomerID    *string   `db:"customer_id" json:"customerId,omitempty"`
	VendorID      string    `db:"vendor_id" json:"vendorId" validate:"required"`
	CreatedAt     int64     `db:"created_at" json:"createdAt"`
	NeedsSync     bool      `db:"needs_sync" json:"-"`
	SyncedAt      *int64    `db:"synced_at" json:"-"`
}

// SyncQueueItem is a pending local mutation of a product or customer.
// Payload is the JSON body sent for CREATE and UPDATE.
type SyncQueueItem struct {
	ID        int64     `db:"id" json:"id"`
	TableName Table     `db:"table_name" json:"tableName"`
	Operation Operation `db:"operation" json:"operation"`
	RecordID  string    `db:"record_id" json:"recordId"`
	Payload   string    `db:"payload" json:"payload"`
	OpKey     string    `db:"op_key" json:"opKey"`
	CreatedAt int64     `db:"created_at" json:"createdAt"`
	Attempts  int       `db:"attempts" json:"attempts"`
	LastError *string   `db:"last_error" json:"lastError,omitempty"`
}

type OfflineStats struct {
	Products     int `db:"products" json:"products"`
	Sales        int `db:"sales" json:"sales"`
	PendingSales int `db:"pending_sales" json:"pendingSales"`
	Customers    int `db:"customers" json:"customers"`
	QueueDepth   int `db:"queue_depth" json:"queueDepth"`
}

// Pending is what the POS badge shows.
func (s OfflineStats) Pending() int { return s.PendingSales + s.QueueDepth }
