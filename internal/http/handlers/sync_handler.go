package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	applog "vendorpos/internal/log"
	"vendorpos/internal/services"
	"vendorpos/internal/validate"
)

type SyncHandler struct {
	Engine   *services.Engine
	VendorID string
}

// GET /api/v1/stats?vendorId=
func (h *SyncHandler) Stats(c *fiber.Ctx) error {
	vendorID := h.VendorID
	if raw := c.Query("vendorId"); raw != "" {
		id, ok := validate.ID(raw)
		if !ok {
			return badRequest(c, "vendorId", "invalid vendorId")
		}
		vendorID = id
	}
	st, err := h.Engine.GetOfflineStatsFor(c.UserContext(), vendorID)
	if err != nil {
		return fail(c, "stats.load.fail", err, nil)
	}
	return c.JSON(fiber.Map{
		"initialized": h.Engine.Initialized(),
		"online":      h.Engine.IsOnline(),
		"autoSync":    h.Engine.AutoSyncRunning(),
		"stats":       st,
		"pending":     st.Pending(),
	})
}

// POST /api/v1/sync/push
func (h *SyncHandler) Push(c *fiber.Ctx) error {
	res, err := h.Engine.SyncToServer(c.UserContext())
	if err != nil {
		return fail(c, "sync.push.fail", err, nil)
	}
	return c.JSON(res)
}

// POST /api/v1/sync/pull?vendorId=
func (h *SyncHandler) Pull(c *fiber.Ctx) error {
	vendorID, ok := validate.ID(c.Query("vendorId", h.VendorID))
	if !ok {
		return badRequest(c, "vendorId", "vendorId is required")
	}
	res, err := h.Engine.SyncFromServer(c.UserContext(), vendorID)
	if err != nil {
		// Partial pulls still applied what they could.
		applog.Warn(c, "sync.pull.fail", err, map[string]any{"vendor_id": vendorID})
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"result": res, "error": "remote fetch failed"})
	}
	return c.JSON(res)
}

// GET /api/v1/sync/queue
func (h *SyncHandler) Queue(c *fiber.Ctx) error {
	items, err := h.Engine.GetPendingSyncItems(c.UserContext(), 0)
	if err != nil {
		return fail(c, "sync.queue.list.fail", err, nil)
	}
	return c.JSON(items)
}

type connectivityRequest struct {
	Online *bool `json:"online"`
}

// POST /api/v1/connectivity
func (h *SyncHandler) Connectivity(c *fiber.Ctx) error {
	var req connectivityRequest
	if err := c.BodyParser(&req); err != nil || req.Online == nil {
		return badRequest(c, "online", "body must be {\"online\": true|false}")
	}
	h.Engine.SetOnlineStatus(*req.Online)
	return c.JSON(fiber.Map{"online": h.Engine.IsOnline()})
}

type autoSyncRequest struct {
	IntervalMs int64 `json:"intervalMs"`
}

// POST /api/v1/autosync
func (h *SyncHandler) StartAutoSync(c *fiber.Ctx) error {
	var req autoSyncRequest
	if err := c.BodyParser(&req); err != nil || req.IntervalMs < 0 {
		return badRequest(c, "intervalMs", "intervalMs must be a positive number")
	}
	if !h.Engine.Initialized() {
		return fail(c, "autosync.start", services.ErrNotInitialized, nil)
	}
	h.Engine.StartAutoSync(time.Duration(req.IntervalMs) * time.Millisecond)
	return c.JSON(fiber.Map{"running": h.Engine.AutoSyncRunning()})
}

// DELETE /api/v1/autosync
func (h *SyncHandler) StopAutoSync(c *fiber.Ctx) error {
	h.Engine.StopAutoSync()
	return c.JSON(fiber.Map{"running": h.Engine.AutoSyncRunning()})
}
