package auth

import (
	"context"
	"sync"
	"time"
)

// Revoker answers whether a token ID has been revoked. It is created at
// startup and consulted on every authenticated request.
type Revoker interface {
	Revoke(tokenID string, until time.Time)
	IsRevoked(tokenID string) bool
}

// MemoryRevoker keeps revoked token IDs in process memory.
type MemoryRevoker struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
	now     func() time.Time
}

func NewMemoryRevoker() *MemoryRevoker {
	return &MemoryRevoker{
		revoked: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Revoke blocks tokenID until the token would have expired anyway.
func (r *MemoryRevoker) Revoke(tokenID string, until time.Time) {
	if tokenID == "" {
		return
	}
	r.mu.Lock()
	r.revoked[tokenID] = until
	r.mu.Unlock()
}

func (r *MemoryRevoker) IsRevoked(tokenID string) bool {
	r.mu.RLock()
	until, ok := r.revoked[tokenID]
	r.mu.RUnlock()
	return ok && r.now().Before(until)
}

// Sweep drops entries whose tokens have expired.
func (r *MemoryRevoker) Sweep() int {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, until := range r.revoked {
		if !now.Before(until) {
			delete(r.revoked, id)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (r *MemoryRevoker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}
