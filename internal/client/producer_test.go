package client

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weatherfabric/internal/httpapi"
	"github.com/i474232898/weatherfabric/internal/lamport"
	"github.com/i474232898/weatherfabric/internal/persistence"
	"github.com/i474232898/weatherfabric/internal/store"
)

// startTestAggregator spins up a real listener running the HTTP surface
// against a fresh in-memory store, returning the base URL and a
// shutdown func.
func startTestAggregator(t *testing.T) (baseURL string, shutdown func()) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}

	deps := httpapi.Dependencies{
		Store:       store.NewMemoryStore(20, 30*time.Second),
		Clock:       lamport.New(),
		Persistence: persistence.New(filepath.Join(t.TempDir(), "weather_data.json")),
	}
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	httpapi.RegisterRoutes(app, deps)

	go app.Listener(ln)
	time.Sleep(20 * time.Millisecond)

	return "http://" + ln.Addr().String(), func() { app.Shutdown() }
}

func TestProducerPutsFileContentsAndStopsAfterIterations(t *testing.T) {
	baseURL, shutdown := startTestAggregator(t)
	defer shutdown()

	file := filepath.Join(t.TempDir(), "station.txt")
	if err := os.WriteFile(file, []byte("id: A\ntemperature: 25\n"), 0o644); err != nil {
		t.Fatalf("write file failed: %v", err)
	}

	p := NewProducer(baseURL, 3, time.Millisecond, time.Millisecond)
	if err := p.Run(context.Background(), baseURL, file, 2); err != nil {
		t.Fatalf("producer run failed: %v", err)
	}

	consumer := NewConsumer(baseURL, 3, time.Millisecond)
	record, found, err := consumer.Fetch(context.Background(), baseURL, "A")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if !found {
		t.Fatalf("expected the produced station to be found")
	}
	if v, _ := record.Get("temperature"); v != "25" {
		t.Fatalf("expected temperature 25, got %q", v)
	}
}

func TestProducerAbortsWithoutIDField(t *testing.T) {
	baseURL, shutdown := startTestAggregator(t)
	defer shutdown()

	file := filepath.Join(t.TempDir(), "station.txt")
	if err := os.WriteFile(file, []byte("temperature: 25\n"), 0o644); err != nil {
		t.Fatalf("write file failed: %v", err)
	}

	p := NewProducer(baseURL, 3, time.Millisecond, time.Millisecond)
	if err := p.Run(context.Background(), baseURL, file, 1); err == nil {
		t.Fatalf("expected an error for a file without an id field")
	}
}
