package flowstate

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps flows in process memory, ideal for local development
// or tests. Expired entries are dropped lazily on access and by the sweep
// loop when one is running.
type MemoryStore struct {
	mu    sync.Mutex
	flows map[string]memoryEntry
}

type memoryEntry struct {
	flow      Flow
	expiresAt time.Time
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{flows: make(map[string]memoryEntry)}
}

// Save persists the flow under handle for at most ttl.
func (s *MemoryStore) Save(_ context.Context, handle string, flow Flow, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.flows[handle] = memoryEntry{flow: flow, expiresAt: time.Now().Add(ttl)}
	return nil
}

// Take returns and removes the flow for handle.
func (s *MemoryStore) Take(_ context.Context, handle string) (Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.flows[handle]
	if !ok {
		return Flow{}, ErrNotFound
	}
	delete(s.flows, handle)

	if time.Now().After(entry.expiresAt) {
		return Flow{}, ErrNotFound
	}
	return entry.flow, nil
}

// Sweep removes expired flows abandoned mid-login and reports how many.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	removed := 0
	for handle, entry := range s.flows {
		if now.After(entry.expiresAt) {
			delete(s.flows, handle)
			removed++
		}
	}
	return removed
}

// StartSweeper sweeps at the given interval until ctx ends.
func (s *MemoryStore) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep()
			}
		}
	}()
}
