// Command producer reads a local "key: value" record file and PUTs it
// to an aggregator every update interval, forever by default.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/i474232898/weatherfabric/internal/client"
	"github.com/i474232898/weatherfabric/internal/config"
)

func main() {
	if len(os.Args) < 3 {
		log.Fatalf("usage: producer <server-url> <file-path>")
	}
	serverURL := os.Args[1]
	filePath := os.Args[2]

	cfg := config.LoadProducer()
	p := client.NewProducer(serverURL, cfg.MaxRetries, cfg.RetryDelay, cfg.UpdateInterval)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := p.Run(ctx, serverURL, filePath, -1); err != nil && err != context.Canceled {
		log.Fatalf("producer: %v", err)
	}
}
