package services

import (
	"context"
	"errors"
	"fmt"

	"vendorpos/internal/domain"
	applog "vendorpos/internal/log"
	"vendorpos/internal/metrics"
	"vendorpos/internal/repos"
)

type PushResult struct {
	Skipped        bool   `json:"skipped"`
	Reason         string `json:"reason,omitempty"`
	SyncedSales    int    `json:"syncedSales"`
	FailedSales    int    `json:"failedSales"`
	ProcessedItems int    `json:"processedItems"`
	FailedItems    int    `json:"failedItems"`
}

// PushSynchronizer drains pending sales and queued mutations to the remote.
// An item leaves the pending set only when the remote acknowledged it, so
// running it again after any failure is safe.
type PushSynchronizer struct {
	Store   *repos.Store
	Remote  Remote
	Gate    *Gate
	Metrics *metrics.Sync
}

func NewPushSynchronizer(store *repos.Store, remote Remote, gate *Gate, m *metrics.Sync) *PushSynchronizer {
	return &PushSynchronizer{Store: store, Remote: remote, Gate: gate, Metrics: m}
}

// Run performs one sync cycle. The error is only set when the local store
// could not be read; remote failures are recorded per item.
func (p *PushSynchronizer) Run(ctx context.Context) (PushResult, error) {
	if !p.Gate.Online() {
		applog.Info(nil, "sync.push.skipped", map[string]any{"reason": ReasonOffline})
		p.Metrics.Cycle("push", "skipped")
		return PushResult{Skipped: true, Reason: ReasonOffline}, nil
	}

	var res PushResult
	salesErr := p.pushSales(ctx, &res)
	queueErr := p.pushQueue(ctx, &res)
	err := errors.Join(salesErr, queueErr)

	p.Metrics.SalesSynced(res.SyncedSales)
	p.Metrics.QueueItems(res.ProcessedItems, res.FailedItems)
	if st, serr := p.Store.Stats(ctx); serr == nil {
		p.Metrics.Pending(st.PendingSales, st.QueueDepth)
	}
	if err != nil {
		p.Metrics.Cycle("push", "error")
		applog.Error(nil, "sync.push.fail", err, nil)
	} else {
		p.Metrics.Cycle("push", "ok")
	}
	applog.Info(nil, "sync.push.done", map[string]any{
		"synced_sales": res.SyncedSales, "failed_sales": res.FailedSales,
		"processed_items": res.ProcessedItems, "failed_items": res.FailedItems,
	})
	return res, err
}

// proceed is checked before every network call.
func (p *PushSynchronizer) proceed(ctx context.Context) bool {
	return ctx.Err() == nil && p.Gate.Online()
}

func (p *PushSynchronizer) pushSales(ctx context.Context, res *PushResult) error {
	sales, err := p.Store.Sales.Pending(ctx)
	if err != nil {
		return fmt.Errorf("load pending sales: %w", err)
	}
	for _, s := range sales {
		if !p.proceed(ctx) {
			break
		}
		if err := p.Remote.PushSale(ctx, s); err != nil {
			res.FailedSales++
			applog.Warn(nil, "sync.push.sale.fail", err, map[string]any{"sale_id": s.ID})
			continue
		}
		if err := p.Store.Sales.MarkSynced(ctx, s.ID); err != nil {
			// Acknowledged remotely; the next cycle resends it and the remote dedupes on id.
			res.FailedSales++
			applog.Error(nil, "sync.push.sale.mark.fail", err, map[string]any{"sale_id": s.ID})
			continue
		}
		res.SyncedSales++
	}
	return nil
}

func (p *PushSynchronizer) pushQueue(ctx context.Context, res *PushResult) error {
	items, err := p.Store.Queue.Pending(ctx, repos.MaxSyncBatch)
	if err != nil {
		return fmt.Errorf("load sync queue: %w", err)
	}
	for _, it := range items {
		if !p.proceed(ctx) {
			break
		}
		fields := map[string]any{"queue_id": it.ID, "table": it.TableName, "op": it.Operation, "record_id": it.RecordID}
		if err := p.Remote.PushMutation(ctx, it); err != nil {
			res.FailedItems++
			applog.Warn(nil, "sync.queue.item.fail", err, fields)
			if rerr := p.Store.Queue.RecordError(ctx, it.ID, err.Error()); rerr != nil {
				applog.Error(nil, "sync.queue.item.record.fail", rerr, fields)
			}
			continue
		}
		if err := p.Store.Queue.Remove(ctx, it.ID); err != nil {
			res.FailedItems++
			applog.Error(nil, "sync.queue.item.remove.fail", err, fields)
			continue
		}
		res.ProcessedItems++
		p.markRecordSynced(ctx, it)
	}
	return nil
}

// markRecordSynced clears needs_sync on the local row a mutation came from.
func (p *PushSynchronizer) markRecordSynced(ctx context.Context, it domain.SyncQueueItem) {
	if it.Operation == domain.OpDelete {
		return
	}
	if more, err := p.Store.Queue.HasPending(ctx, it.TableName, it.RecordID); err != nil || more {
		return
	}
	now := domain.NowMillis()
	var err error
	switch it.TableName {
	case domain.TableProducts:
		err = p.Store.Products.MarkSynced(ctx, it.RecordID, now)
	case domain.TableCustomers:
		err = p.Store.Customers.MarkSynced(ctx, it.RecordID, now)
	}
	if err != nil {
		applog.Warn(nil, "sync.queue.record.mark.fail", err, map[string]any{"table": it.TableName, "record_id": it.RecordID})
	}
}
