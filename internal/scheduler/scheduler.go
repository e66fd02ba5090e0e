// Package scheduler drives the aggregator's periodic expiry sweep as a
// named, stoppable background job.
package scheduler

import (
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/weatherfabric/internal/persistence"
	"github.com/i474232898/weatherfabric/internal/store"
)

// Scheduler runs the Store's expiry sweep on a fixed cadence, reflushing
// persistence whenever the sweep actually removed something.
type Scheduler struct {
	scheduler *gocron.Scheduler
	store     *store.MemoryStore
	persist   *persistence.Store
	interval  time.Duration
}

// New creates a Scheduler that sweeps store for entries older than its
// configured expiry every interval, persisting through persist whenever
// the sweep removes anything. The interval is rounded down to whole
// seconds, with a minimum of one second, and each sweep compares against
// time.Now rather than any clock set on the store with WithClock.
func New(store *store.MemoryStore, persist *persistence.Store, interval time.Duration) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		store:     store,
		persist:   persist,
		interval:  interval,
	}
}

// Start schedules the sweep job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	seconds := int(s.interval.Seconds())
	if seconds <= 0 {
		seconds = 1
	}

	_, err := s.scheduler.Every(seconds).Seconds().Do(func() {
		removed := s.store.Sweep(time.Now())
		if !removed {
			return
		}
		if err := s.store.PersistWith(s.persist.Flush); err != nil {
			log.Printf("scheduler: persistence flush after sweep failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
