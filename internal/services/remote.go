package services

import (
	"context"
	"encoding/json"

	"vendorpos/internal/domain"
)

// Remote is the platform side of synchronization. remote.Client implements it.
type Remote interface {
	PushSale(ctx context.Context, s domain.Sale) error
	PushMutation(ctx context.Context, it domain.SyncQueueItem) error
	FetchProducts(ctx context.Context, vendorID string) ([]json.RawMessage, error)
	FetchCustomers(ctx context.Context, vendorID string) ([]json.RawMessage, error)
}

const (
	ReasonOffline        = "offline"
	ReasonNotInitialized = "not initialized"
)
