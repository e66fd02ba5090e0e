// Package store implements the aggregator's bounded, order-preserving,
// time-expiring in-memory record store.
package store

import (
	"sync"
	"time"

	"github.com/i474232898/weatherfabric/internal/codec"
)

// PutOutcome reports whether a Put created a new station or updated an
// existing one.
type PutOutcome int

const (
	Created PutOutcome = iota
	Updated
)

// ErrMissingID is returned by Put when the record has no "id" field.
var ErrMissingID = errMissingID{}

type errMissingID struct{}

func (errMissingID) Error() string { return "store: record is missing the 'id' field" }

// StoreEntry is a record plus the aggregator-owned ingest timestamp used
// for expiry and "most recent" resolution. The timestamp never travels on
// the wire; it is regenerated on load.
type StoreEntry struct {
	Record    *codec.Object
	Timestamp int64 // millis since epoch
}

// Clock abstracts the wall clock so tests can control time deterministically.
type Clock func() time.Time

// MemoryStore is a concurrency-safe, capacity-bounded, order-preserving
// map from station id to StoreEntry.
type MemoryStore struct {
	mu       sync.Mutex
	entries  *orderedMap[string, StoreEntry]
	capacity int
	expiry   time.Duration
	now      Clock
}

// NewMemoryStore creates an empty store with the given capacity and
// expiry window.
func NewMemoryStore(capacity int, expiry time.Duration) *MemoryStore {
	return &MemoryStore{
		entries:  newOrderedMap[string, StoreEntry](),
		capacity: capacity,
		expiry:   expiry,
		now:      time.Now,
	}
}

// WithClock overrides the wall clock used for ingest timestamps (Put and
// LoadSnapshot); intended for tests. Sweep does not read it: it compares
// those timestamps against the time its caller passes in.
func (s *MemoryStore) WithClock(now Clock) *MemoryStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

// Put inserts or replaces the record for record's "id", evicting the
// earliest-inserted entry if the store is at capacity and this is a new
// id. The caller is responsible for stamping the record's lamportClock
// field beforehand (see internal/httpapi), so that the store never needs
// to touch the Lamport clock while holding its own mutex.
func (s *MemoryStore) Put(record *codec.Object) (PutOutcome, error) {
	id, ok := record.Get("id")
	if !ok || id == "" {
		return 0, ErrMissingID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, existed := s.entries.Get(id)
	if !existed && s.entries.Len() >= s.capacity {
		if oldest, ok := s.entries.OldestKey(); ok {
			s.entries.Delete(oldest)
		}
	}

	s.entries.Set(id, StoreEntry{Record: record, Timestamp: s.now().UnixMilli()})

	if existed {
		return Updated, nil
	}
	return Created, nil
}

// GetByID returns the record for id, if present.
func (s *MemoryStore) GetByID(id string) (*codec.Object, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries.Get(id)
	if !ok {
		return nil, false
	}
	return e.Record, true
}

// GetLatest returns the record with the largest ingest timestamp. Ties
// are broken by most-recent insertion position, which Values() already
// reflects by iterating oldest-to-newest.
func (s *MemoryStore) GetLatest() (*codec.Object, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	values := s.entries.Values()
	if len(values) == 0 {
		return nil, false
	}
	latest := values[0]
	for _, e := range values[1:] {
		if e.Timestamp >= latest.Timestamp {
			latest = e
		}
	}
	return latest.Record, true
}

// Len reports the number of stations currently held.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries.Len()
}

// Sweep removes every entry older than the configured expiry window
// relative to now, returning true if anything was removed.
func (s *MemoryStore) Sweep(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	nowMillis := now.UnixMilli()
	var stale []string
	for _, e := range s.entries.Values() {
		if nowMillis-e.Timestamp > s.expiry.Milliseconds() {
			stale = append(stale, idOf(e.Record))
		}
	}
	for _, id := range stale {
		s.entries.Delete(id)
	}
	return len(stale) > 0
}

// Snapshot returns every record, in insertion order, suitable for
// persistence. Each record already includes its persisted lamportClock
// field.
func (s *MemoryStore) Snapshot() []*codec.Object {
	s.mu.Lock()
	defer s.mu.Unlock()
	values := s.entries.Values()
	out := make([]*codec.Object, 0, len(values))
	for _, e := range values {
		out = append(out, e.Record)
	}
	return out
}

// PersistWith runs flush against a snapshot of the current entries while
// still holding the store mutex, so that the persisted file content
// exactly corresponds to a consistent store snapshot rather than one
// that a concurrent Put could have raced with between snapshot and
// write.
func (s *MemoryStore) PersistWith(flush func([]*codec.Object) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	values := s.entries.Values()
	records := make([]*codec.Object, 0, len(values))
	for _, e := range values {
		records = append(records, e.Record)
	}
	return flush(records)
}

// LoadSnapshot replaces the store's contents with the given records,
// each stamped with the current time as its ingest timestamp (per the
// reference behavior: crash-recovered data gets a fresh expiry window,
// not its original remaining lifetime). It returns the maximum
// lamportClock value found across the loaded records, so the caller can
// raise the shared Lamport clock accordingly.
func (s *MemoryStore) LoadSnapshot(records []*codec.Object) (maxLamport uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = newOrderedMap[string, StoreEntry]()
	now := s.now().UnixMilli()

	for _, r := range records {
		id := idOf(r)
		if id == "" {
			continue
		}
		s.entries.Set(id, StoreEntry{Record: r, Timestamp: now})

		if lc, ok := r.Get("lamportClock"); ok {
			if v, ok := parseUint(lc); ok && v > maxLamport {
				maxLamport = v
			}
		}
	}
	return maxLamport
}

func idOf(r *codec.Object) string {
	id, _ := r.Get("id")
	return id
}

func parseUint(s string) (uint64, bool) {
	var v uint64
	if s == "" {
		return 0, false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
		v = v*10 + uint64(c-'0')
	}
	return v, true
}
