package export

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// MemoryTracker stores attempts in memory (test/dev only).
type MemoryTracker struct {
	mu      sync.RWMutex
	records map[string]AttemptRecord
	order   []string
	counter uint64
}

// NewMemoryTracker creates an in-memory tracker.
func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{records: make(map[string]AttemptRecord)}
}

// Start creates a new attempt record.
func (t *MemoryTracker) Start(ctx context.Context, record AttemptRecord) (string, error) {
	_ = ctx
	if record.ID == "" {
		record.ID = t.nextID()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	t.mu.Lock()
	if _, exists := t.records[record.ID]; !exists {
		t.order = append(t.order, record.ID)
	}
	t.records[record.ID] = record
	t.mu.Unlock()
	return record.ID, nil
}

// Finish stores the outcome of an attempt.
func (t *MemoryTracker) Finish(ctx context.Context, id string, result ModeResult) error {
	_ = ctx

	t.mu.Lock()
	defer t.mu.Unlock()
	record, ok := t.records[id]
	if !ok {
		return NewError(KindValidation, fmt.Sprintf("attempt %q not found", id), nil)
	}
	record.Outcome = result.Outcome
	record.ErrorKind = result.ErrorKind
	record.Message = result.Message
	record.CompletedAt = time.Now()
	t.records[id] = record
	return nil
}

// Get returns an attempt by ID.
func (t *MemoryTracker) Get(id string) (AttemptRecord, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	record, ok := t.records[id]
	return record, ok
}

// List returns attempts matching filter, newest first.
func (t *MemoryTracker) List(ctx context.Context, filter AttemptFilter) ([]AttemptRecord, error) {
	_ = ctx
	t.mu.RLock()
	out := make([]AttemptRecord, 0, len(t.order))
	for _, id := range t.order {
		record := t.records[id]
		if !filter.Matches(record) {
			continue
		}
		out = append(out, record)
	}
	t.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// Matches reports whether record satisfies the filter, ignoring Limit.
func (f AttemptFilter) Matches(record AttemptRecord) bool {
	if f.RunID != "" && record.RunID != f.RunID {
		return false
	}
	if f.Mode != "" && record.Mode != f.Mode {
		return false
	}
	if f.Outcome != "" && record.Outcome != f.Outcome {
		return false
	}
	if !f.Since.IsZero() && record.CreatedAt.Before(f.Since) {
		return false
	}
	return true
}

func (t *MemoryTracker) nextID() string {
	id := atomic.AddUint64(&t.counter, 1)
	return fmt.Sprintf("att-%d", id)
}
