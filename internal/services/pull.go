package services

import (
	"context"
	"encoding/json"
	"errors"

	"golang.org/x/sync/errgroup"

	"vendorpos/internal/domain"
	applog "vendorpos/internal/log"
	"vendorpos/internal/metrics"
	"vendorpos/internal/repos"
)

type PullResult struct {
	Skipped        bool   `json:"skipped"`
	Reason         string `json:"reason,omitempty"`
	Products       int    `json:"products"`
	Customers      int    `json:"customers"`
	SkippedRecords int    `json:"skippedRecords"`
}

// PullSynchronizer refreshes the catalog and customer cache from the remote.
// It upserts every record returned and never deletes local rows missing from
// the response; upserts already applied stay applied when a later record or
// list fails.
type PullSynchronizer struct {
	Store   *repos.Store
	Remote  Remote
	Gate    *Gate
	Metrics *metrics.Sync
}

func NewPullSynchronizer(store *repos.Store, remote Remote, gate *Gate, m *metrics.Sync) *PullSynchronizer {
	return &PullSynchronizer{Store: store, Remote: remote, Gate: gate, Metrics: m}
}

func (p *PullSynchronizer) Run(ctx context.Context, vendorID string) (PullResult, error) {
	if !p.Gate.Online() {
		applog.Info(nil, "sync.pull.skipped", map[string]any{"reason": ReasonOffline, "vendor_id": vendorID})
		p.Metrics.Cycle("pull", "skipped")
		return PullResult{Skipped: true, Reason: ReasonOffline}, nil
	}

	var (
		g                   errgroup.Group
		products, customers []json.RawMessage
		prodErr, custErr    error
	)
	g.Go(func() error {
		products, prodErr = p.Remote.FetchProducts(ctx, vendorID)
		return prodErr
	})
	g.Go(func() error {
		customers, custErr = p.Remote.FetchCustomers(ctx, vendorID)
		return custErr
	})
	if err := g.Wait(); err != nil {
		applog.Warn(nil, "sync.pull.fetch.fail", err, map[string]any{"vendor_id": vendorID})
	}

	fetchedAt := domain.NowMillis()
	var res PullResult
	if prodErr == nil {
		p.applyProducts(ctx, vendorID, fetchedAt, products, &res)
	}
	if custErr == nil {
		p.applyCustomers(ctx, vendorID, fetchedAt, customers, &res)
	}
	p.Metrics.PullRecords(string(domain.TableProducts), res.Products)
	p.Metrics.PullRecords(string(domain.TableCustomers), res.Customers)

	err := errors.Join(prodErr, custErr)
	if err != nil {
		p.Metrics.Cycle("pull", "error")
	} else {
		p.Metrics.Cycle("pull", "ok")
	}
	applog.Info(nil, "sync.pull.done", map[string]any{
		"vendor_id": vendorID, "products": res.Products, "customers": res.Customers, "skipped": res.SkippedRecords,
	})
	return res, err
}

func (p *PullSynchronizer) applyProducts(ctx context.Context, vendorID string, at int64, raw []json.RawMessage, res *PullResult) {
	for i, r := range raw {
		var prod domain.Product
		if err := json.Unmarshal(r, &prod); err != nil || prod.ID == "" || prod.Name == "" {
			res.SkippedRecords++
			applog.Warn(nil, "sync.pull.record.skip", err, map[string]any{"table": domain.TableProducts, "index": i})
			continue
		}
		if prod.VendorID == "" {
			prod.VendorID = vendorID
		}
		prod.NeedsSync = false
		prod.SyncedAt = &at
		if err := p.Store.Products.Upsert(ctx, prod); err != nil {
			res.SkippedRecords++
			applog.Error(nil, "sync.pull.record.store.fail", err, map[string]any{"table": domain.TableProducts, "id": prod.ID})
			continue
		}
		res.Products++
	}
}

func (p *PullSynchronizer) applyCustomers(ctx context.Context, vendorID string, at int64, raw []json.RawMessage, res *PullResult) {
	for i, r := range raw {
		var c domain.Customer
		if err := json.Unmarshal(r, &c); err != nil || c.ID == "" || c.Name == "" {
			res.SkippedRecords++
			applog.Warn(nil, "sync.pull.record.skip", err, map[string]any{"table": domain.TableCustomers, "index": i})
			continue
		}
		if c.VendorID == "" {
			c.VendorID = vendorID
		}
		c.NeedsSync = false
		c.SyncedAt = &at
		if err := p.Store.Customers.Upsert(ctx, c); err != nil {
			res.SkippedRecords++
			applog.Error(nil, "sync.pull.record.store.fail", err, map[string]any{"table": domain.TableCustomers, "id": c.ID})
			continue
		}
		res.Customers++
	}
}
