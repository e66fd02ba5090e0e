// Package client implements the producer and consumer clients: small
// HTTP loops that share the bounded retry combinator and Lamport clock
// with the aggregator's own protocol.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/i474232898/weatherfabric/internal/codec"
	"github.com/i474232898/weatherfabric/internal/ingest"
	"github.com/i474232898/weatherfabric/internal/lamport"
	"github.com/i474232898/weatherfabric/internal/retry"
)

// Producer periodically reads a local record file and PUTs it to an
// aggregator, retrying each cycle's send a bounded number of times
// before giving up on that cycle and waiting for the next interval.
type Producer struct {
	HTTPClient     *http.Client
	Clock          *lamport.Clock
	Breaker        *retry.Breaker
	MaxRetries     int
	RetryDelay     time.Duration
	UpdateInterval time.Duration
}

// NewProducer returns a Producer with a breaker named for the given
// server URL and sane HTTP client defaults.
func NewProducer(serverURL string, maxRetries int, retryDelay, updateInterval time.Duration) *Producer {
	return &Producer{
		HTTPClient:     &http.Client{Timeout: 10 * time.Second},
		Clock:          lamport.New(),
		Breaker:        retry.NewBreaker("producer->"+serverURL, retryDelay),
		MaxRetries:     maxRetries,
		RetryDelay:     retryDelay,
		UpdateInterval: updateInterval,
	}
}

// Run drives the PUT loop against serverURL, reading filePath fresh on
// every cycle. It runs forever when iterations < 0, otherwise it stops
// after that many completed cycles (used by tests). A refused read (no
// "id" field) aborts the whole run, since the producer cannot proceed
// without one.
func (p *Producer) Run(ctx context.Context, serverURL, filePath string, iterations int) error {
	endpoint := WeatherURL(serverURL, "")

	for cycle := 0; iterations < 0 || cycle < iterations; cycle++ {
		record, err := ingest.ReadFile(filePath)
		if err != nil {
			return fmt.Errorf("client: producer cannot read %s: %w", filePath, err)
		}

		err = retry.BoundedWithDelay(ctx, p.MaxRetries, p.RetryDelay, func(n int) error {
			return p.sendOnce(ctx, endpoint, record)
		})
		if err != nil {
			log.Printf("client: producer cycle %d abandoned after retries: %v", cycle, err)
		}

		if iterations >= 0 && cycle == iterations-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.UpdateInterval):
		}
	}
	return nil
}

// sendOnce ticks the clock, PUTs record, and on a {200,201} response
// merges the aggregator's reply clock. Any transport failure or
// unexpected status is returned as an error so the bounded retry
// wrapper calls sendOnce again (which ticks once more) while attempts
// remain.
func (p *Producer) sendOnce(ctx context.Context, endpoint string, record *codec.Object) error {
	p.Clock.Tick()
	body := []byte(codec.Encode(record))

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Length", strconv.Itoa(len(body)))
	req.Header.Set("X-Lamport-Clock", strconv.FormatUint(p.Clock.Value(), 10))

	var resp *http.Response
	err = p.Breaker.Execute(func() error {
		resp, err = p.HTTPClient.Do(req)
		return err
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("client: unexpected status %d", resp.StatusCode)
	}

	if peer := resp.Header.Get("X-Lamport-Clock"); peer != "" {
		if v, err := strconv.ParseUint(peer, 10, 64); err == nil {
			p.Clock.Merge(v)
		} else {
			log.Printf("client: ignoring malformed X-Lamport-Clock response header %q", peer)
		}
	}
	return nil
}
