package repository

import (
	"context"
	"sync"
	"time"
)

type attemptEntry struct {
	count     int
	expiresAt time.Time
}

// MemoryAttemptRepository is the in-process fallback for booking attempts.
type MemoryAttemptRepository struct {
	mu      sync.Mutex
	entries map[int64]*attemptEntry
	now     func() time.Time
}

func NewMemoryAttemptRepository() *MemoryAttemptRepository {
	return &MemoryAttemptRepository{
		entries: make(map[int64]*attemptEntry),
		now:     time.Now,
	}
}

func (r *MemoryAttemptRepository) CheckRateLimit(_ context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	entry, ok := r.entries[userID]
	if !ok || !now.Before(entry.expiresAt) {
		entry = &attemptEntry{expiresAt: now.Add(window)}
		r.entries[userID] = entry
	}
	entry.count++

	return entry.count <= limit, nil
}

func (r *MemoryAttemptRepository) Reset(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, userID)
	return nil
}

// Sweep drops expired counters and returns how many were removed.
func (r *MemoryAttemptRepository) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for id, e := range r.entries {
		if !now.Before(e.expiresAt) {
			delete(r.entries, id)
			removed++
		}
	}
	return removed
}
