package handlers_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	"vendorpos/internal/config"
	"vendorpos/internal/http/handlers"
	"vendorpos/internal/metrics"
	"vendorpos/internal/remote"
	"vendorpos/internal/repos"
	"vendorpos/internal/services"
)

const saleBody = `{"items":[{"productId":"p-1","name":"Rice","quantity":2,"unitPrice":3}],"paymentMethod":"cash"}`

type testApp struct {
	app    *fiber.App
	engine *services.Engine
	hits   *atomic.Int32
}

// newTestApp wires the real app against an in-memory store and a stub
// platform that accepts everything. withStore=false simulates a device
// whose store failed to open.
func newTestApp(t *testing.T, withStore bool, deviceKey string) testApp {
	t.Helper()
	hits := &atomic.Int32{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[]`)
	}))
	t.Cleanup(srv.Close)

	var store *repos.Store
	if withStore {
		st, err := repos.Open(":memory:")
		if err != nil {
			t.Fatalf("open store: %v", err)
		}
		t.Cleanup(func() { _ = st.Close() })
		store = st
	}

	cfg := config.Config{VendorID: "v1"}
	if deviceKey != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(deviceKey), bcrypt.MinCost)
		if err != nil {
			t.Fatalf("hash: %v", err)
		}
		cfg.DeviceKeyHash = string(h)
	}

	m := metrics.New()
	engine := services.NewEngine(context.Background(), store, remote.NewClient(srv.URL, "", 2*time.Second), services.EngineOptions{Metrics: m, VendorID: "v1"})
	t.Cleanup(engine.StopAutoSync)

	app, err := handlers.NewApp(handlers.NewDeps(engine, cfg, m))
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return testApp{app: app, engine: engine, hits: hits}
}

func do(t *testing.T, app *fiber.App, method, path, body string, headers map[string]string) (*http.Response, string) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, 5000)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	b, _ := io.ReadAll(resp.Body)
	return resp, string(b)
}

func TestRecordSaleOfflineUpdatesStats(t *testing.T) {
	ta := newTestApp(t, true, "")

	resp, body := do(t, ta.app, "POST", "/api/v1/sales", saleBody, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, body)
	}
	var saved struct {
		ID       string  `json:"id"`
		Total    float64 `json:"total"`
		VendorID string  `json:"vendorId"`
	}
	if err := json.Unmarshal([]byte(body), &saved); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasPrefix(saved.ID, "offline-") || saved.Total != 6 || saved.VendorID != "v1" {
		t.Fatalf("unexpected sale: %+v", saved)
	}

	_, body = do(t, ta.app, "GET", "/api/v1/stats", "", nil)
	var stats struct {
		Initialized bool `json:"initialized"`
		Online      bool `json:"online"`
		Pending     int  `json:"pending"`
	}
	if err := json.Unmarshal([]byte(body), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if !stats.Initialized || stats.Online || stats.Pending != 1 {
		t.Fatalf("unexpected stats: %s", body)
	}
	if ta.hits.Load() != 0 {
		t.Fatalf("recording a sale must not touch the network")
	}
}

func TestInvalidSaleIsRejected(t *testing.T) {
	ta := newTestApp(t, true, "")
	resp, _ := do(t, ta.app, "POST", "/api/v1/sales", `{"items":[],"paymentMethod":"cash"}`, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	resp, _ = do(t, ta.app, "POST", "/api/v1/sales", `{"items":`, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", resp.StatusCode)
	}
}

func TestDeviceKeyGuard(t *testing.T) {
	ta := newTestApp(t, true, "till-secret")

	resp, _ := do(t, ta.app, "POST", "/api/v1/sales", saleBody, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without key, got %d", resp.StatusCode)
	}
	resp, _ = do(t, ta.app, "POST", "/api/v1/sales", saleBody, map[string]string{"X-Device-Key": "wrong"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong key, got %d", resp.StatusCode)
	}
	resp, _ = do(t, ta.app, "POST", "/api/v1/sales", saleBody, map[string]string{"X-Device-Key": "till-secret"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 with key, got %d", resp.StatusCode)
	}
	// Reads stay open.
	resp, _ = do(t, ta.app, "GET", "/api/v1/stats", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for stats, got %d", resp.StatusCode)
	}
}

func TestPushWhileOfflineIsSkipped(t *testing.T) {
	ta := newTestApp(t, true, "")
	do(t, ta.app, "POST", "/api/v1/sales", saleBody, nil)

	resp, body := do(t, ta.app, "POST", "/api/v1/sync/push", "", nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, `"skipped":true`) || !strings.Contains(body, services.ReasonOffline) {
		t.Fatalf("expected skipped push, got %d: %s", resp.StatusCode, body)
	}
	if ta.hits.Load() != 0 {
		t.Fatalf("offline push reached the network")
	}
}

func TestGoingOnlinePushesPendingSales(t *testing.T) {
	ta := newTestApp(t, true, "")
	do(t, ta.app, "POST", "/api/v1/sales", saleBody, nil)
	do(t, ta.app, "POST", "/api/v1/sales", saleBody, nil)

	resp, body := do(t, ta.app, "POST", "/api/v1/connectivity", `{"online":true}`, nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, `"online":true`) {
		t.Fatalf("connectivity: %d %s", resp.StatusCode, body)
	}

	deadline := time.Now().Add(3 * time.Second)
	for {
		st, err := ta.engine.GetOfflineStats(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if st.PendingSales == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("sales still pending after reconnect: %+v", st)
		}
		time.Sleep(20 * time.Millisecond)
	}
	if ta.hits.Load() < 2 {
		t.Fatalf("expected both sales pushed, remote saw %d requests", ta.hits.Load())
	}

	_, metricsBody := do(t, ta.app, "GET", "/metrics", "", nil)
	if !strings.Contains(metricsBody, "vendorpos_sales_synced_total 2") {
		t.Fatalf("metrics missing synced sales:\n%s", metricsBody)
	}
}

func TestConnectivityRequiresFlag(t *testing.T) {
	ta := newTestApp(t, true, "")
	resp, _ := do(t, ta.app, "POST", "/api/v1/connectivity", `{}`, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCatalogEditsAreQueued(t *testing.T) {
	ta := newTestApp(t, true, "")

	resp, body := do(t, ta.app, "POST", "/api/v1/products", `{"id":"p-1","name":"Rice","sellingPrice":4,"barcode":"600100"}`, nil)
	if resp.StatusCode != http.StatusCreated || !strings.Contains(body, `"queued":"CREATE"`) {
		t.Fatalf("create product: %d %s", resp.StatusCode, body)
	}
	resp, body = do(t, ta.app, "PUT", "/api/v1/products/p-1", `{"name":"Rice","sellingPrice":5,"barcode":"600100"}`, nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, `"queued":"UPDATE"`) {
		t.Fatalf("update product: %d %s", resp.StatusCode, body)
	}
	resp, body = do(t, ta.app, "GET", "/api/v1/products/barcode/600100", "", nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, `"sellingPrice":5`) {
		t.Fatalf("barcode lookup: %d %s", resp.StatusCode, body)
	}
	resp, _ = do(t, ta.app, "GET", "/api/v1/products/barcode/000000", "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown barcode, got %d", resp.StatusCode)
	}
	resp, body = do(t, ta.app, "POST", "/api/v1/customers", `{"id":"c-1","name":"Ada"}`, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create customer: %d %s", resp.StatusCode, body)
	}

	_, body = do(t, ta.app, "GET", "/api/v1/sync/queue", "", nil)
	var items []struct {
		TableName string `json:"tableName"`
		Operation string `json:"operation"`
	}
	if err := json.Unmarshal([]byte(body), &items); err != nil {
		t.Fatalf("decode queue: %v", err)
	}
	if len(items) != 3 || items[0].Operation != "CREATE" || items[2].TableName != "customers" {
		t.Fatalf("unexpected queue: %s", body)
	}
}

func TestStatusPageShowsPendingBadge(t *testing.T) {
	ta := newTestApp(t, true, "")
	do(t, ta.app, "POST", "/api/v1/sales", saleBody, nil)

	resp, body := do(t, ta.app, "GET", "/", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(body, `id="pending-count">1<`) {
		t.Fatalf("pending badge missing:\n%s", body)
	}

	resp, body = do(t, ta.app, "POST", "/sync", "", nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "Sync skipped: offline.") {
		t.Fatalf("sync now while offline: %d\n%s", resp.StatusCode, body)
	}
}

func TestUninitializedStoreFallsBack(t *testing.T) {
	ta := newTestApp(t, false, "")

	resp, _ := do(t, ta.app, "POST", "/api/v1/sales", saleBody, nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
	_, body := do(t, ta.app, "GET", "/api/v1/stats", "", nil)
	if !strings.Contains(body, `"initialized":false`) || !strings.Contains(body, `"pending":0`) {
		t.Fatalf("unexpected stats: %s", body)
	}
	_, body = do(t, ta.app, "POST", "/api/v1/sync/push", "", nil)
	if !strings.Contains(body, services.ReasonNotInitialized) {
		t.Fatalf("expected not-initialized push, got %s", body)
	}
	resp, body = do(t, ta.app, "GET", "/", "", nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "Offline mode is disabled") {
		t.Fatalf("status page: %d\n%s", resp.StatusCode, body)
	}
	resp, _ = do(t, ta.app, "POST", "/api/v1/autosync", `{"intervalMs":1000}`, nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for autosync, got %d", resp.StatusCode)
	}
}

func TestAutoSyncToggle(t *testing.T) {
	ta := newTestApp(t, true, "")
	resp, body := do(t, ta.app, "POST", "/api/v1/autosync", `{"intervalMs":60000}`, nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, `"running":true`) {
		t.Fatalf("start: %d %s", resp.StatusCode, body)
	}
	resp, body = do(t, ta.app, "DELETE", "/api/v1/autosync", "", nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, `"running":false`) {
		t.Fatalf("stop: %d %s", resp.StatusCode, body)
	}
}

func TestUnknownRouteIsJSON404(t *testing.T) {
	ta := newTestApp(t, true, "")
	resp, body := do(t, ta.app, "GET", "/api/v1/nope", "", nil)
	if resp.StatusCode != http.StatusNotFound || !strings.Contains(body, `"error"`) {
		t.Fatalf("expected JSON 404, got %d %s", resp.StatusCode, body)
	}
}
