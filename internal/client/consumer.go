package client

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/i474232898/weatherfabric/internal/codec"
	"github.com/i474232898/weatherfabric/internal/lamport"
	"github.com/i474232898/weatherfabric/internal/retry"
)

// Consumer issues a single bounded-retry GET against an aggregator and
// pretty-prints the result.
type Consumer struct {
	HTTPClient *http.Client
	Clock      *lamport.Clock
	Breaker    *retry.Breaker
	MaxRetries int
	RetryDelay time.Duration
}

// NewConsumer returns a Consumer with a breaker named for serverURL.
func NewConsumer(serverURL string, maxRetries int, retryDelay time.Duration) *Consumer {
	return &Consumer{
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		Clock:      lamport.New(),
		Breaker:    retry.NewBreaker("consumer->"+serverURL, retryDelay),
		MaxRetries: maxRetries,
		RetryDelay: retryDelay,
	}
}

// Fetch requests station (or the most recently written station, if
// station is "") from serverURL, retrying transport failures and
// unexpected statuses up to MaxRetries times. found is false for a 204
// with no body, never an error.
func (c *Consumer) Fetch(ctx context.Context, serverURL, station string) (record *codec.Object, found bool, err error) {
	endpoint := WeatherURL(serverURL, station)
	err = retry.BoundedWithDelay(ctx, c.MaxRetries, c.RetryDelay, func(n int) error {
		rec, ok, getErr := c.getOnce(ctx, endpoint)
		if getErr != nil {
			return getErr
		}
		record, found = rec, ok
		return nil
	})
	return record, found, err
}

func (c *Consumer) getOnce(ctx context.Context, endpoint string) (*codec.Object, bool, error) {
	c.Clock.Tick()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("X-Lamport-Clock", strconv.FormatUint(c.Clock.Value(), 10))

	var resp *http.Response
	err = c.Breaker.Execute(func() error {
		resp, err = c.HTTPClient.Do(req)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()

	if peer := resp.Header.Get("X-Lamport-Clock"); peer != "" {
		if v, err := strconv.ParseUint(peer, 10, 64); err == nil {
			c.Clock.Merge(v)
		} else {
			log.Printf("client: ignoring malformed X-Lamport-Clock response header %q", peer)
		}
	}

	if resp.StatusCode == http.StatusNoContent {
		io.Copy(io.Discard, resp.Body)
		return nil, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, false, fmt.Errorf("client: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, err
	}
	record, err := codec.Decode(string(data))
	if err != nil {
		return nil, false, err
	}
	return record, true, nil
}

// PrettyPrint renders record as "  key: value" lines in field order,
// hiding the aggregator-internal lamportClock field from user-visible
// output.
func PrettyPrint(record *codec.Object) string {
	var b strings.Builder
	for _, k := range record.Keys() {
		if k == "lamportClock" {
			continue
		}
		v, _ := record.Get(k)
		fmt.Fprintf(&b, "  %s: %s\n", k, v)
	}
	return strings.TrimSuffix(b.String(), "\n")
}
