package cache

import (
	"sync"
	"time"
)

// Cache is the read-through store used by report queries.
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Set(key K, value V)
	Delete(key K)
	Len() int
}

// Cleaner is implemented by caches that can drop expired entries eagerly.
type Cleaner interface {
	CleanExpired() int
}

// Janitor periodically sweeps registered caches.
type Janitor struct {
	mu      sync.Mutex
	caches  []Cleaner
	stop    chan struct{}
	done    chan struct{}
	onSweep func(removed int)
}

// NewJanitor creates a janitor. onSweep, if set, receives the number of
// entries removed by each sweep.
func NewJanitor(onSweep func(removed int)) *Janitor {
	return &Janitor{onSweep: onSweep}
}

// Register adds a cache to the sweep list
func (j *Janitor) Register(c Cleaner) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.caches = append(j.caches, c)
}

// Sweep cleans every registered cache once and returns the total removed.
func (j *Janitor) Sweep() int {
	j.mu.Lock()
	caches := append([]Cleaner(nil), j.caches...)
	j.mu.Unlock()

	removed := 0
	for _, c := range caches {
		removed += c.CleanExpired()
	}
	if j.onSweep != nil && removed > 0 {
		j.onSweep(removed)
	}
	return removed
}

// Start sweeps every interval until Stop is called. Calling Start twice is a no-op.
func (j *Janitor) Start(interval time.Duration) {
	j.mu.Lock()
	if j.stop != nil {
		j.mu.Unlock()
		return
	}
	j.stop = make(chan struct{})
	j.done = make(chan struct{})
	stop, done := j.stop, j.done
	j.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				j.Sweep()
			case <-stop:
				return
			}
		}
	}()
}

// Stop halts the sweep loop and waits for it to exit.
func (j *Janitor) Stop() {
	j.mu.Lock()
	stop, done := j.stop, j.done
	j.stop, j.done = nil, nil
	j.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
}
