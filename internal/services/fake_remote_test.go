package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"vendorpos/internal/domain"
	"vendorpos/internal/repos"
)

var errRemoteDown = errors.New("remote: 503 service unavailable")

// fakeRemote records every call and fails the ones it is told to.
type fakeRemote struct {
	mu sync.Mutex

	calls     int
	sales     []domain.Sale
	mutations []domain.SyncQueueItem

	rejectSales map[string]bool
	rejectItems bool

	products, customers       []json.RawMessage
	productsErr, customersErr error
}

func (f *fakeRemote) PushSale(_ context.Context, s domain.Sale) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.rejectSales[s.ID] {
		return errRemoteDown
	}
	f.sales = append(f.sales, s)
	return nil
}

func (f *fakeRemote) PushMutation(_ context.Context, it domain.SyncQueueItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.rejectItems {
		return errRemoteDown
	}
	f.mutations = append(f.mutations, it)
	return nil
}

func (f *fakeRemote) FetchProducts(context.Context, string) ([]json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.products, f.productsErr
}

func (f *fakeRemote) FetchCustomers(context.Context, string) ([]json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.customers, f.customersErr
}

func (f *fakeRemote) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func raw(s ...string) []json.RawMessage {
	out := make([]json.RawMessage, len(s))
	for i, v := range s {
		out[i] = json.RawMessage(v)
	}
	return out
}

func memstore(t *testing.T) *repos.Store {
	t.Helper()
	st, err := repos.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func sale(vendor string, total float64) domain.Sale {
	return domain.Sale{
		Items:         domain.SaleItems{{ProductID: "p-1", Name: "Rice", Quantity: 1, UnitPrice: total}},
		Subtotal:      total,
		Total:         total,
		PaymentMethod: "cash",
		VendorID:      vendor,
	}
}
