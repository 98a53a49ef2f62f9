package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vendorpos/internal/config"
	"vendorpos/internal/http/handlers"
	applog "vendorpos/internal/log"
	"vendorpos/internal/metrics"
	"vendorpos/internal/remote"
	"vendorpos/internal/repos"
	"vendorpos/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	// Optional file logging
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Printf("[warn] could not open log file %s: %v", cfg.LogFile, err)
		} else {
			defer f.Close()
			log.SetOutput(io.MultiWriter(os.Stdout, f))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A store that cannot open disables offline mode; the process keeps serving.
	store, err := repos.Open(cfg.DBPath)
	if err != nil {
		applog.Error(nil, "store.open.fail", err, map[string]any{"path": cfg.DBPath})
	}
	defer store.Close()

	m := metrics.New()
	client := remote.NewClient(cfg.RemoteBaseURL, cfg.RemoteToken, cfg.RemoteTimeout)
	pullVendor := ""
	if cfg.PullOnReconnect {
		pullVendor = cfg.VendorID
	}
	engine := services.NewEngine(ctx, store, client, services.EngineOptions{
		Online:       cfg.StartOnline,
		Metrics:      m,
		VendorID:     cfg.VendorID,
		PullVendorID: pullVendor,
	})
	if cfg.AutoSyncEnabled {
		engine.StartAutoSync(cfg.AutoSyncInterval)
	}
	if cfg.StartOnline {
		engine.TriggerSync()
	}

	app, err := handlers.NewApp(handlers.NewDeps(engine, cfg, m))
	if err != nil {
		log.Fatal(err)
	}

	go func() {
		<-ctx.Done()
		engine.StopAutoSync()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("[warn] shutdown: %v", err)
		}
	}()

	log.Printf("[http] listening on :%s (offline mode: %t)", cfg.Port, engine.Initialized())
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}
