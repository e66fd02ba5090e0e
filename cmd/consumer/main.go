// Command consumer issues a single GET against an aggregator and
// pretty-prints the result.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/i474232898/weatherfabric/internal/client"
	"github.com/i474232898/weatherfabric/internal/config"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatalf("usage: consumer <server-url> [station-id]")
	}
	serverURL := os.Args[1]
	station := ""
	if len(os.Args) >= 3 {
		station = os.Args[2]
	}

	cfg := config.LoadClient()
	c := client.NewConsumer(serverURL, cfg.MaxRetries, cfg.RetryDelay)

	record, found, err := c.Fetch(context.Background(), serverURL, station)
	if err != nil {
		log.Fatalf("consumer: %v", err)
	}
	if !found {
		fmt.Println("No data available for this request.")
		return
	}
	fmt.Println(client.PrettyPrint(record))
}
