package handlers

import (
	"errors"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	html "github.com/gofiber/template/html/v2"

	applog "vendorpos/internal/log"
	"vendorpos/web"
)

// NewApp builds the local API used by the point-of-sale UI on this device.
func NewApp(d *Deps) (*fiber.App, error) {
	views, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		return nil, err
	}
	engine := html.NewFileSystem(http.FS(views), ".html")

	app := fiber.New(fiber.Config{
		Views: engine,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			msg := "Something went wrong. Please try again."
			var fe *fiber.Error
			if errors.As(err, &fe) && fe.Code < fiber.StatusInternalServerError {
				code, msg = fe.Code, fe.Message
			}
			applog.Error(c, "server.error", err, nil)
			return c.Status(code).JSON(fiber.Map{"error": msg})
		},
	})
	app.Server().MaxRequestBodySize = 1 << 20 // 1 MiB

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(helmet.New())

	Register(app, d)
	return app, nil
}

// Register mounts every route on app.
func Register(app *fiber.App, d *Deps) {
	syncLimiter := limiter.New(limiter.Config{
		Max:        20,
		Expiration: time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.sync.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "too many sync requests, retry soon"})
		},
	})
	guard := RequireDeviceKey(d.DeviceKeyHash)

	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	app.Get("/metrics", adaptor.HTTPHandler(d.Metrics.Handler()))
	app.Get("/", d.StatusHandler.Page)
	app.Post("/sync", syncLimiter, d.StatusHandler.SyncNow)

	api := app.Group("/api/v1")
	api.Get("/stats", d.SyncHandler.Stats)

	api.Get("/sales/pending", d.SalesHandler.Pending)
	api.Post("/sales", guard, d.SalesHandler.Create)

	api.Get("/products", d.CatalogHandler.Products)
	api.Get("/products/barcode/:code", d.CatalogHandler.ByBarcode)
	api.Post("/products", guard, d.CatalogHandler.SaveProduct)
	api.Put("/products/:id", guard, d.CatalogHandler.SaveProduct)
	api.Delete("/products/:id", guard, d.CatalogHandler.DeleteProduct)

	api.Get("/customers", d.CatalogHandler.Customers)
	api.Post("/customers", guard, d.CatalogHandler.SaveCustomer)
	api.Put("/customers/:id", guard, d.CatalogHandler.SaveCustomer)

	api.Get("/sync/queue", d.SyncHandler.Queue)
	api.Post("/sync/push", guard, syncLimiter, d.SyncHandler.Push)
	api.Post("/sync/pull", guard, syncLimiter, d.SyncHandler.Pull)
	api.Post("/connectivity", guard, d.SyncHandler.Connectivity)
	api.Post("/autosync", guard, d.SyncHandler.StartAutoSync)
	api.Delete("/autosync", guard, d.SyncHandler.StopAutoSync)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	})
}

func itoa(n int) string { return strconv.Itoa(n) }
