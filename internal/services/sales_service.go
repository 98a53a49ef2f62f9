package services

import (
	"context"
	"math"

	"vendorpos/internal/domain"
	applog "vendorpos/internal/log"
	"vendorpos/internal/validate"
)

// SalesService records point-of-sale transactions locally. Recording never
// waits on the network; the push cycle picks the sale up later.
type SalesService struct {
	Engine *Engine
}

func NewSalesService(e *Engine) *SalesService { return &SalesService{Engine: e} }

// Record validates the sale, fills in amounts the till left at zero, stores
// it and then decrements cached stock for each line.
func (s *SalesService) Record(ctx context.Context, sale domain.Sale) (domain.Sale, error) {
	if !s.Engine.Initialized() {
		return domain.Sale{}, ErrNotInitialized
	}
	if sale.Subtotal == 0 {
		sale.Subtotal = round2(sale.Items.Subtotal())
	}
	if sale.Total == 0 {
		sale.Total = round2(math.Max(0, sale.Subtotal-sale.Discount+sale.Tax))
	}
	if err := validate.Struct(sale); err != nil {
		return domain.Sale{}, err
	}

	saved, err := s.Engine.SaveSale(ctx, sale)
	if err != nil {
		return domain.Sale{}, err
	}

	// Stock is a cache of the remote count; a missing product must not fail the sale.
	products := s.Engine.Store().Products
	for _, it := range saved.Items {
		if err := products.AdjustStock(ctx, it.ProductID, -it.Quantity); err != nil {
			applog.Warn(nil, "sale.stock.adjust.fail", err, map[string]any{"sale_id": saved.ID, "product_id": it.ProductID})
		}
	}
	applog.Info(nil, "sale.recorded", map[string]any{"sale_id": saved.ID, "vendor_id": saved.VendorID, "total": saved.Total})
	return saved, nil
}

func (s *SalesService) Pending(ctx context.Context) ([]domain.Sale, error) {
	return s.Engine.GetPendingSales(ctx)
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }
