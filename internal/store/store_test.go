package store

import (
	"strconv"
	"testing"
	"time"

	"github.com/i474232898/weatherfabric/internal/codec"
)

func record(id string, extra ...string) *codec.Object {
	o := codec.NewObject()
	o.Set("id", id)
	for i := 0; i+1 < len(extra); i += 2 {
		o.Set(extra[i], extra[i+1])
	}
	return o
}

func TestPutCreatedThenUpdated(t *testing.T) {
	s := NewMemoryStore(20, 30*time.Second)
	outcome, err := s.Put(record("A"))
	if err != nil || outcome != Created {
		t.Fatalf("expected Created, got %v err=%v", outcome, err)
	}
	outcome, err = s.Put(record("A", "temperature", "10"))
	if err != nil || outcome != Updated {
		t.Fatalf("expected Updated, got %v err=%v", outcome, err)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", s.Len())
	}
}

func TestPutMissingID(t *testing.T) {
	s := NewMemoryStore(20, 30*time.Second)
	_, err := s.Put(codec.NewObject())
	if err != ErrMissingID {
		t.Fatalf("expected ErrMissingID, got %v", err)
	}
}

func TestOverflowEvictsOldest(t *testing.T) {
	s := NewMemoryStore(20, 30*time.Second)
	for i := 1; i <= 21; i++ {
		if _, err := s.Put(record(stationName(i))); err != nil {
			t.Fatalf("unexpected error on put %d: %v", i, err)
		}
	}
	if s.Len() != 20 {
		t.Fatalf("expected 20 entries, got %d", s.Len())
	}
	if _, ok := s.GetByID(stationName(1)); ok {
		t.Fatalf("expected station 1 to be evicted")
	}
	latest, ok := s.GetLatest()
	if !ok {
		t.Fatalf("expected a latest record")
	}
	if id, _ := latest.Get("id"); id != stationName(21) {
		t.Fatalf("expected latest id %q, got %q", stationName(21), id)
	}
}

func TestUpdateMovesToMostRecentPosition(t *testing.T) {
	s := NewMemoryStore(3, 30*time.Second)
	s.Put(record("A"))
	s.Put(record("B"))
	s.Put(record("C"))
	// Re-PUT A: it should no longer be the oldest.
	s.Put(record("A"))
	// A 4th distinct id should now evict B, not A.
	s.Put(record("D"))
	if _, ok := s.GetByID("B"); ok {
		t.Fatalf("expected B to be evicted after A moved to most-recent")
	}
	if _, ok := s.GetByID("A"); !ok {
		t.Fatalf("expected A to survive")
	}
}

func TestSweepRemovesStaleEntries(t *testing.T) {
	current := time.Unix(1000, 0)
	s := NewMemoryStore(20, 30*time.Second).WithClock(func() time.Time { return current })
	s.Put(record("A"))

	current = current.Add(31 * time.Second)
	removed := s.Sweep(current)
	if !removed {
		t.Fatalf("expected Sweep to report removal")
	}
	if _, ok := s.GetByID("A"); ok {
		t.Fatalf("expected A to be expired")
	}
}

func TestSweepPreservesSurvivorOrder(t *testing.T) {
	current := time.Unix(1000, 0)
	s := NewMemoryStore(20, 30*time.Second).WithClock(func() time.Time { return current })
	s.Put(record("A"))
	current = current.Add(20 * time.Second)
	s.Put(record("B"))

	current = current.Add(15 * time.Second) // A is now 35s old, B is 15s old
	s.Sweep(current)

	snap := s.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("expected 1 survivor, got %d", len(snap))
	}
	if id, _ := snap[0].Get("id"); id != "B" {
		t.Fatalf("expected survivor B, got %q", id)
	}
}

func TestLoadSnapshotRestampsAndRaisesLamport(t *testing.T) {
	s := NewMemoryStore(20, 30*time.Second)
	recs := []*codec.Object{
		record("A", "lamportClock", "5"),
		record("B", "lamportClock", "12"),
	}
	max := s.LoadSnapshot(recs)
	if max != 12 {
		t.Fatalf("expected max lamport 12, got %d", max)
	}
	if s.Len() != 2 {
		t.Fatalf("expected 2 entries after load, got %d", s.Len())
	}
}

func stationName(i int) string {
	return "S" + strconv.Itoa(i)
}
