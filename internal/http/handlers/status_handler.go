package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "vendorpos/internal/log"
	"vendorpos/internal/services"
)

// StatusHandler serves the pending badge page and its "sync now" action.
type StatusHandler struct {
	Engine *services.Engine
}

// GET /
func (h *StatusHandler) Page(c *fiber.Ctx) error {
	return h.renderStatus(c, "")
}

// POST /sync
func (h *StatusHandler) SyncNow(c *fiber.Ctx) error {
	res, err := h.Engine.SyncToServer(c.UserContext())
	msg := ""
	switch {
	case err != nil:
		applog.Error(c, "sync.manual.fail", err, nil)
		msg = "Sync could not read local data. Please try again."
	case res.Skipped:
		msg = "Sync skipped: " + res.Reason + "."
	default:
		msg = "Synced " + itoa(res.SyncedSales) + " sales and " + itoa(res.ProcessedItems) + " changes."
		if res.FailedSales+res.FailedItems > 0 {
			msg += " " + itoa(res.FailedSales+res.FailedItems) + " will be retried."
		}
	}
	return h.renderStatus(c, msg)
}

func (h *StatusHandler) renderStatus(c *fiber.Ctx, msg string) error {
	st, err := h.Engine.GetOfflineStats(c.UserContext())
	if err != nil {
		applog.Error(c, "status.stats.fail", err, nil)
	}
	return render(c, "status", fiber.Map{
		"Initialized": h.Engine.Initialized(),
		"Online":      h.Engine.IsOnline(),
		"AutoSync":    h.Engine.AutoSyncRunning(),
		"Stats":       st,
		"Message":     msg,
	})
}
