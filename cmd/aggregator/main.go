// Command aggregator runs the weather telemetry fabric's central HTTP
// surface: a single "/weather.json" route backed by a bounded,
// order-preserving in-memory store with crash-safe persistence and a
// Lamport clock threaded through every request/response.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/i474232898/weatherfabric/internal/config"
	"github.com/i474232898/weatherfabric/internal/httpapi"
	"github.com/i474232898/weatherfabric/internal/lamport"
	"github.com/i474232898/weatherfabric/internal/persistence"
	"github.com/i474232898/weatherfabric/internal/scheduler"
	"github.com/i474232898/weatherfabric/internal/store"
)

func main() {
	cfg := config.LoadAggregator()
	port := config.ResolvePort(os.Args[1:])

	persist := persistence.New(cfg.DataFile)
	records, err := persist.Load()
	if err != nil {
		log.Fatalf("aggregator: failed to load %s: %v", cfg.DataFile, err)
	}

	memStore := store.NewMemoryStore(cfg.MaxStations, cfg.Expiry)
	clock := lamport.New()
	if maxLamport := memStore.LoadSnapshot(records); maxLamport > 0 {
		clock.Raise(maxLamport)
	}
	log.Printf("aggregator: loaded %d station(s) from %s", memStore.Len(), cfg.DataFile)

	sched := scheduler.New(memStore, persist, cfg.SweepInterval)
	if err := sched.Start(); err != nil {
		log.Fatalf("aggregator: failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "weatherfabric-aggregator",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
	})
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(recover.New())

	httpapi.RegisterRoutes(app, httpapi.Dependencies{
		Store:       memStore,
		Clock:       clock,
		Persistence: persist,
	})

	go func() {
		if err := app.Listen(":" + strconv.Itoa(port)); err != nil {
			log.Printf("aggregator: server stopped: %v", err)
		}
	}()
	log.Printf("aggregator: listening on port %d", port)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("aggregator: error during shutdown: %v", err)
	}
}
