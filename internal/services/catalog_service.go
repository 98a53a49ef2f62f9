package services

import (
	"context"
	"encoding/json"

	"vendorpos/internal/domain"
	applog "vendorpos/internal/log"
	"vendorpos/internal/repos"
	"vendorpos/internal/validate"
)

// CatalogService applies local product and customer edits and queues them
// for the push cycle.
type CatalogService struct {
	Engine *Engine
}

func NewCatalogService(e *Engine) *CatalogService { return &CatalogService{Engine: e} }

func (s *CatalogService) store() (*repos.Store, error) {
	st := s.Engine.Store()
	if st == nil {
		return nil, ErrNotInitialized
	}
	return st, nil
}

func (s *CatalogService) ListProducts(ctx context.Context, vendorID, q string) ([]domain.Product, error) {
	st, err := s.store()
	if err != nil {
		return []domain.Product{}, nil
	}
	if q != "" {
		return st.Products.Search(ctx, vendorID, q, 50)
	}
	return st.Products.ListByVendor(ctx, vendorID)
}

func (s *CatalogService) ProductByBarcode(ctx context.Context, vendorID, barcode string) (domain.Product, error) {
	st, err := s.store()
	if err != nil {
		return domain.Product{}, err
	}
	return st.Products.ByBarcode(ctx, vendorID, barcode)
}

func (s *CatalogService) ListCustomers(ctx context.Context, vendorID string) ([]domain.Customer, error) {
	st, err := s.store()
	if err != nil {
		return []domain.Customer{}, nil
	}
	return st.Customers.ListByVendor(ctx, vendorID)
}

// SaveProduct stores a local edit and queues CREATE for unknown ids, UPDATE
// otherwise. The existence check, upsert and enqueue share one transaction.
func (s *CatalogService) SaveProduct(ctx context.Context, p domain.Product) (domain.Operation, error) {
	st, err := s.store()
	if err != nil {
		return "", err
	}
	if err := validate.Struct(p); err != nil {
		return "", err
	}
	op, err := st.SaveProductEdit(ctx, p)
	if err != nil {
		return "", err
	}
	applog.Info(nil, "sync.queue.add", map[string]any{"table": domain.TableProducts, "op": op, "record_id": p.ID})
	return op, nil
}

// DeleteProduct queues a DELETE. The local row stays as history, like sales.
func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	st, err := s.store()
	if err != nil {
		return err
	}
	if _, err := st.Products.Get(ctx, id); err != nil {
		return err
	}
	return s.enqueue(ctx, domain.TableProducts, domain.OpDelete, id, nil)
}

func (s *CatalogService) SaveCustomer(ctx context.Context, c domain.Customer) (domain.Operation, error) {
	st, err := s.store()
	if err != nil {
		return "", err
	}
	if err := validate.Struct(c); err != nil {
		return "", err
	}
	op, err := st.SaveCustomerEdit(ctx, c)
	if err != nil {
		return "", err
	}
	applog.Info(nil, "sync.queue.add", map[string]any{"table": domain.TableCustomers, "op": op, "record_id": c.ID})
	return op, nil
}

func (s *CatalogService) QueuedItems(ctx context.Context) ([]domain.SyncQueueItem, error) {
	return s.Engine.GetPendingSyncItems(ctx, repos.MaxSyncBatch)
}

func (s *CatalogService) enqueue(ctx context.Context, table domain.Table, op domain.Operation, id string, record any) error {
	payload := ""
	if record != nil {
		b, err := json.Marshal(record)
		if err != nil {
			return err
		}
		payload = string(b)
	}
	qid, err := s.Engine.AddToSyncQueue(ctx, string(table), string(op), id, payload)
	if err != nil {
		return err
	}
	applog.Info(nil, "sync.queue.add", map[string]any{"queue_id": qid, "table": table, "op": op, "record_id": id})
	return nil
}
