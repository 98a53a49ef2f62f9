package metrics_test

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendorpos/internal/metrics"
)

func scrape(t *testing.T, m *metrics.Sync) (int, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	b, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	return rec.Code, string(b)
}

func TestSyncMetrics(t *testing.T) {
	m := metrics.New()
	m.Cycle("push", "ok")
	m.Cycle("push", "ok")
	m.Cycle("pull", "skipped")
	m.SalesSynced(3)
	m.QueueItems(2, 1)
	m.PullRecords("products", 4)
	m.Pending(5, 6)

	code, body := scrape(t, m)
	assert.Equal(t, 200, code)
	assert.Contains(t, body, `vendorpos_sync_cycles_total{kind="push",result="ok"} 2`)
	assert.Contains(t, body, `vendorpos_sync_cycles_total{kind="pull",result="skipped"} 1`)
	assert.Contains(t, body, `vendorpos_sales_synced_total 3`)
	assert.Contains(t, body, `vendorpos_queue_items_total{result="error"} 1`)
	assert.Contains(t, body, `vendorpos_pull_records_total{table="products"} 4`)
	assert.Contains(t, body, `vendorpos_pending_sales 5`)
	assert.Contains(t, body, `vendorpos_queue_depth 6`)
}

func TestNilSyncIsSafe(t *testing.T) {
	var m *metrics.Sync
	assert.NotPanics(t, func() {
		m.Cycle("push", "ok")
		m.SalesSynced(1)
		m.QueueItems(1, 1)
		m.PullRecords("customers", 1)
		m.Pending(1, 1)
	})
	code, _ := scrape(t, m)
	assert.Equal(t, 503, code)
}
