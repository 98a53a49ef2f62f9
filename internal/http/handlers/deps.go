package handlers

import (
	"vendorpos/internal/config"
	"vendorpos/internal/metrics"
	"vendorpos/internal/services"
)

type Deps struct {
	SyncHandler    *SyncHandler
	SalesHandler   *SalesHandler
	CatalogHandler *CatalogHandler
	StatusHandler  *StatusHandler

	Metrics       *metrics.Sync
	DeviceKeyHash string
}

func NewDeps(engine *services.Engine, cfg config.Config, m *metrics.Sync) *Deps {
	salesSvc := services.NewSalesService(engine)
	catalogSvc := services.NewCatalogService(engine)

	return &Deps{
		SyncHandler:    &SyncHandler{Engine: engine, VendorID: cfg.VendorID},
		SalesHandler:   &SalesHandler{Sales: salesSvc, VendorID: cfg.VendorID},
		CatalogHandler: &CatalogHandler{Catalog: catalogSvc, VendorID: cfg.VendorID},
		StatusHandler:  &StatusHandler{Engine: engine},
		Metrics:        m,
		DeviceKeyHash:  cfg.DeviceKeyHash,
	}
}
