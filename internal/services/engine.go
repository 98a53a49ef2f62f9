package services

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"vendorpos/internal/domain"
	applog "vendorpos/internal/log"
	"vendorpos/internal/metrics"
	"vendorpos/internal/repos"
)

// ErrNotInitialized is returned by writes when the local store never opened.
var ErrNotInitialized = errors.New("offline store not initialized")

type EngineOptions struct {
	Online  bool
	Metrics *metrics.Sync
	// VendorID scopes GetOfflineStats; empty counts every vendor on the device.
	VendorID string
	// PullVendorID, when set, is pulled after connectivity returns.
	PullVendorID string
}

// Engine is the host-facing surface of offline mode. When built without a
// store it stays uninitialized: reads return empty results, syncs report
// skipped and writes return ErrNotInitialized, so the host can fall back to
// online-only behavior.
type Engine struct {
	ctx    context.Context
	store  *repos.Store
	remote Remote
	gate   *Gate

	push   *PushSynchronizer
	pull   *PullSynchronizer
	sched  *Scheduler
	flight singleflight.Group

	vendorID     string
	pullVendorID string
}

// NewEngine wires the synchronizers and scheduler. ctx bounds background
// cycles and should live as long as the host process.
func NewEngine(ctx context.Context, store *repos.Store, remote Remote, opts EngineOptions) *Engine {
	e := &Engine{
		ctx:          ctx,
		store:        store,
		remote:       remote,
		gate:         NewGate(opts.Online),
		vendorID:     opts.VendorID,
		pullVendorID: opts.PullVendorID,
	}
	e.push = NewPushSynchronizer(store, remote, e.gate, opts.Metrics)
	e.pull = NewPullSynchronizer(store, remote, e.gate, opts.Metrics)
	e.sched = NewScheduler(ctx, func(ctx context.Context) { _, _ = e.SyncToServer(ctx) })
	if store == nil {
		applog.Warn(nil, "offline.disabled", repos.ErrStoreUnavailable, nil)
	}
	return e
}

func (e *Engine) Initialized() bool { return e.store != nil }

// SetOnlineStatus is called by the host when connectivity changes. Going
// from offline to online starts a push, then a pull if a vendor is configured.
func (e *Engine) SetOnlineStatus(online bool) {
	changed := e.gate.Set(online)
	applog.Info(nil, "connectivity.change", map[string]any{"online": online, "changed": changed})
	if !changed || !online || !e.Initialized() {
		return
	}
	go e.onReconnect(e.ctx)
}

func (e *Engine) onReconnect(ctx context.Context) {
	if _, err := e.SyncToServer(ctx); err != nil {
		applog.Error(nil, "sync.reconnect.push.fail", err, nil)
	}
	if e.pullVendorID == "" {
		return
	}
	if _, err := e.SyncFromServer(ctx, e.pullVendorID); err != nil {
		applog.Warn(nil, "sync.reconnect.pull.fail", err, map[string]any{"vendor_id": e.pullVendorID})
	}
}

func (e *Engine) IsOnline() bool { return e.gate.Online() }

// SetBaseURL changes the remote root when the remote supports it.
func (e *Engine) SetBaseURL(u string) {
	if r, ok := e.remote.(interface{ SetBaseURL(string) }); ok {
		r.SetBaseURL(u)
	}
}

// SyncToServer runs one push cycle. Concurrent callers share the cycle
// already in flight.
func (e *Engine) SyncToServer(ctx context.Context) (PushResult, error) {
	if !e.Initialized() {
		return PushResult{Skipped: true, Reason: ReasonNotInitialized}, nil
	}
	v, err, _ := e.flight.Do("push", func() (any, error) {
		return e.push.Run(ctx)
	})
	res, _ := v.(PushResult)
	return res, err
}

func (e *Engine) SyncFromServer(ctx context.Context, vendorID string) (PullResult, error) {
	if !e.Initialized() {
		return PullResult{Skipped: true, Reason: ReasonNotInitialized}, nil
	}
	v, err, _ := e.flight.Do("pull:"+vendorID, func() (any, error) {
		return e.pull.Run(ctx, vendorID)
	})
	res, _ := v.(PullResult)
	return res, err
}

func (e *Engine) StartAutoSync(interval time.Duration) {
	if !e.Initialized() {
		return
	}
	e.sched.Start(interval)
}

func (e *Engine) StopAutoSync() { e.sched.Stop() }

func (e *Engine) AutoSyncRunning() bool { return e.sched.Running() }

// TriggerSync starts one push cycle in the background.
func (e *Engine) TriggerSync() {
	if e.Initialized() {
		e.sched.Trigger()
	}
}

// GetOfflineStats reports counts for the engine's vendor.
func (e *Engine) GetOfflineStats(ctx context.Context) (domain.OfflineStats, error) {
	return e.GetOfflineStatsFor(ctx, e.vendorID)
}

// GetOfflineStatsFor counts rows owned by vendorID, or all rows when it is
// empty. The queue depth is always device-wide.
func (e *Engine) GetOfflineStatsFor(ctx context.Context, vendorID string) (domain.OfflineStats, error) {
	if !e.Initialized() {
		return domain.OfflineStats{}, nil
	}
	if vendorID == "" {
		return e.store.Stats(ctx)
	}
	return e.store.StatsForVendor(ctx, vendorID)
}

// Store is nil when the engine is uninitialized.
func (e *Engine) Store() *repos.Store { return e.store }

// Local store primitives.

func (e *Engine) UpsertProduct(ctx context.Context, p domain.Product) error {
	if !e.Initialized() {
		return ErrNotInitialized
	}
	return e.store.Products.Upsert(ctx, p)
}

func (e *Engine) UpsertCustomer(ctx context.Context, c domain.Customer) error {
	if !e.Initialized() {
		return ErrNotInitialized
	}
	return e.store.Customers.Upsert(ctx, c)
}

func (e *Engine) SaveSale(ctx context.Context, s domain.Sale) (domain.Sale, error) {
	if !e.Initialized() {
		return domain.Sale{}, ErrNotInitialized
	}
	return e.store.Sales.Save(ctx, s)
}

func (e *Engine) GetPendingSales(ctx context.Context) ([]domain.Sale, error) {
	if !e.Initialized() {
		return []domain.Sale{}, nil
	}
	return e.store.Sales.Pending(ctx)
}

func (e *Engine) MarkSaleSynced(ctx context.Context, id string) error {
	if !e.Initialized() {
		return ErrNotInitialized
	}
	return e.store.Sales.MarkSynced(ctx, id)
}

func (e *Engine) AddToSyncQueue(ctx context.Context, table, operation, recordID, payload string) (int64, error) {
	if !e.Initialized() {
		return 0, ErrNotInitialized
	}
	return e.store.Queue.Add(ctx, table, operation, recordID, payload)
}

func (e *Engine) GetPendingSyncItems(ctx context.Context, limit int) ([]domain.SyncQueueItem, error) {
	if !e.Initialized() {
		return []domain.SyncQueueItem{}, nil
	}
	return e.store.Queue.Pending(ctx, limit)
}

func (e *Engine) RemoveSyncItem(ctx context.Context, id int64) error {
	if !e.Initialized() {
		return ErrNotInitialized
	}
	return e.store.Queue.Remove(ctx, id)
}

func (e *Engine) UpdateSyncItemError(ctx context.Context, id int64, message string) error {
	if !e.Initialized() {
		return ErrNotInitialized
	}
	return e.store.Queue.RecordError(ctx, id, message)
}
