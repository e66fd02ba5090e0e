package client

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/i474232898/weatherfabric/internal/codec"
)

func TestConsumerFetchReturnsNotFoundOnEmptyStore(t *testing.T) {
	baseURL, shutdown := startTestAggregator(t)
	defer shutdown()

	consumer := NewConsumer(baseURL, 3, time.Millisecond)
	_, found, err := consumer.Fetch(context.Background(), baseURL, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Fatalf("expected no data on an empty store")
	}
}

func TestConsumerFetchMergesResponseClock(t *testing.T) {
	baseURL, shutdown := startTestAggregator(t)
	defer shutdown()

	producer := NewProducer(baseURL, 3, time.Millisecond, time.Hour)
	file := writeTempFile(t, "id: A\ntemperature: 25\n")
	if err := producer.Run(context.Background(), baseURL, file, 1); err != nil {
		t.Fatalf("producer run failed: %v", err)
	}

	consumer := NewConsumer(baseURL, 3, time.Millisecond)
	before := consumer.Clock.Value()
	record, found, err := consumer.Fetch(context.Background(), baseURL, "A")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if !found {
		t.Fatalf("expected station A to be found")
	}
	if consumer.Clock.Value() <= before {
		t.Fatalf("expected consumer clock to advance after merging the response header")
	}
	if _, ok := record.Get("lamportClock"); !ok {
		t.Fatalf("expected the raw record to still carry lamportClock before pretty-printing")
	}
}

func TestPrettyPrintHidesLamportClock(t *testing.T) {
	record := codec.NewObject()
	record.Set("id", "A")
	record.Set("temperature", "25")
	record.Set("lamportClock", "7")

	out := PrettyPrint(record)
	if strings.Contains(out, "lamportClock") {
		t.Fatalf("expected lamportClock to be hidden from pretty-printed output, got %q", out)
	}
	if !strings.Contains(out, "id: A") || !strings.Contains(out, "temperature: 25") {
		t.Fatalf("expected visible fields to be printed, got %q", out)
	}
}

func writeTempFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "station.txt")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write file failed: %v", err)
	}
	return path
}
