// Package cache keeps recent aggregate stats in memory so hot page loads do
// not scan the downloads table on every request.
package cache

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/wavesos/wavesos_web/internal/storage"
)

const statsKey = "download_stats"

// Registry is a storage.Registry that caches GetDownloadStats for a TTL and
// drops the cached value on every write that goes through it.
type Registry struct {
	next  storage.Registry
	stats *gocache.Cache

	// generation guards against a slow stats query storing a value that a
	// concurrent write has already made stale.
	mu         sync.Mutex
	generation uint64
}

// NewRegistry wraps next. The cleanup interval is twice the TTL.
func NewRegistry(next storage.Registry, ttl time.Duration) *Registry {
	return &Registry{
		next:  next,
		stats: gocache.New(ttl, 2*ttl),
	}
}

func (r *Registry) GetDownload(ctx context.Context, filename string) (storage.DownloadRecord, error) {
	return r.next.GetDownload(ctx, filename)
}

func (r *Registry) CreateDownload(ctx context.Context, d storage.NewDownload) (storage.DownloadRecord, error) {
	rec, err := r.next.CreateDownload(ctx, d)
	if err == nil {
		r.invalidate()
	}

	return rec, err
}

func (r *Registry) IncrementDownload(ctx context.Context, filename string, fileType storage.FileType) (storage.DownloadRecord, error) {
	// Invalidate even on error: the write may have landed before the failure surfaced.
	defer r.invalidate()

	return r.next.IncrementDownload(ctx, filename, fileType)
}

func (r *Registry) GetDownloadStats(ctx context.Context) (storage.Stats, error) {
	if cached, ok := r.stats.Get(statsKey); ok {
		return cached.(storage.Stats), nil
	}

	r.mu.Lock()
	generation := r.generation
	r.mu.Unlock()

	stats, err := r.next.GetDownloadStats(ctx)
	if err != nil {
		return storage.Stats{}, err
	}

	r.mu.Lock()
	if r.generation == generation {
		r.stats.SetDefault(statsKey, stats)
	}
	r.mu.Unlock()

	return stats, nil
}

func (r *Registry) invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.generation++
	r.stats.Delete(statsKey)
}
