package notes

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryRepository keeps attempt notes in process memory with a TTL, so
// abandoned attempts expire on their own. Suitable for a single-instance
// deployment; use RedisRepository when attempts may hit different instances.
type MemoryRepository struct {
	mu    sync.Mutex
	cache *gocache.Cache
}

// NewMemoryRepository creates a repository whose attempts expire after ttl.
func NewMemoryRepository(ttl time.Duration) *MemoryRepository {
	return &MemoryRepository{
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (r *MemoryRepository) Get(ctx context.Context, attemptID, name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if values, ok := r.cache.Get(attemptID); ok {
		return values.(map[string]string)[name], nil
	}
	return "", nil
}

func (r *MemoryRepository) Set(ctx context.Context, attemptID, name, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	values := map[string]string{}
	if existing, ok := r.cache.Get(attemptID); ok {
		values = existing.(map[string]string)
	}
	values[name] = value

	// Reset the expiration on every write so a live attempt never expires
	// mid round-trip.
	r.cache.SetDefault(attemptID, values)
	return nil
}

func (r *MemoryRepository) Delete(ctx context.Context, attemptID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Delete(attemptID)
	return nil
}
