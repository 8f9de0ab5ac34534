package index

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/MrSnakeDoc/vertx/internal/domain"
)

// Readings keeps the latest value of every metric in memory.
// It is always available, unlike the remote sinks.
type Readings struct {
	mu         sync.RWMutex
	readings   map[string]domain.Reading // metric name -> latest
	lastUpdate time.Time
	now        func() time.Time
}

// NewReadings creates an empty readings table.
func NewReadings() *Readings {
	return &Readings{
		readings: make(map[string]domain.Reading),
		now:      time.Now,
	}
}

// Record stores value as the latest reading of name. It never fails.
func (idx *Readings) Record(_ context.Context, name, value string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	at := idx.now()
	idx.readings[name] = domain.Reading{Name: name, Value: value, RecordedAt: at}
	idx.lastUpdate = at
	return nil
}

// Restore loads readings recovered from a store. A restored reading never
// overwrites a newer one already recorded.
func (idx *Readings) Restore(readings []domain.Reading) int {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	restored := 0
	for _, r := range readings {
		if cur, ok := idx.readings[r.Name]; ok && !cur.RecordedAt.Before(r.RecordedAt) {
			continue
		}
		idx.readings[r.Name] = r
		if r.RecordedAt.After(idx.lastUpdate) {
			idx.lastUpdate = r.RecordedAt
		}
		restored++
	}
	return restored
}

// Get returns the latest reading of name.
func (idx *Readings) Get(name string) (domain.Reading, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	r, ok := idx.readings[name]
	return r, ok
}

// Snapshot returns every reading sorted by metric name.
func (idx *Readings) Snapshot() []domain.Reading {
	idx.mu.RLock()
	out := make([]domain.Reading, 0, len(idx.readings))
	for _, r := range idx.readings {
		out = append(out, r)
	}
	idx.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Delete removes a metric.
func (idx *Readings) Delete(name string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	delete(idx.readings, name)
}

// Count returns the number of metrics held.
func (idx *Readings) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return len(idx.readings)
}

// LastUpdate returns when the most recent reading was recorded.
func (idx *Readings) LastUpdate() time.Time {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.lastUpdate
}
