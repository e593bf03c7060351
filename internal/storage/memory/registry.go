package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/wavesos/wavesos_web/internal/storage"
)

// Registry is the volatile storage.Registry. State is lost on restart.
type Registry struct {
	mu        sync.RWMutex
	downloads map[string]*storage.DownloadRecord
}

// NewRegistry returns a registry holding one zero-count record per seed.
func NewRegistry(seeds ...storage.NewDownload) *Registry {
	r := &Registry{downloads: make(map[string]*storage.DownloadRecord, len(seeds))}

	for _, s := range seeds {
		if _, ok := r.downloads[s.Filename]; ok {
			continue
		}

		r.downloads[s.Filename] = newRecord(s)
	}

	return r
}

func newRecord(d storage.NewDownload) *storage.DownloadRecord {
	return &storage.DownloadRecord{
		ID:       uuid.NewString(),
		Filename: d.Filename,
		FileType: d.FileType,
	}
}

func (r *Registry) GetDownload(_ context.Context, filename string) (storage.DownloadRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.downloads[filename]
	if !ok {
		return storage.DownloadRecord{}, storage.ErrNotFound
	}

	return *rec, nil
}

func (r *Registry) CreateDownload(_ context.Context, d storage.NewDownload) (storage.DownloadRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.downloads[d.Filename]; ok {
		return storage.DownloadRecord{}, storage.ErrAlreadyExists
	}

	rec := newRecord(d)
	r.downloads[d.Filename] = rec

	return *rec, nil
}

// IncrementDownload runs get-or-create and the bump under one write lock.
func (r *Registry) IncrementDownload(_ context.Context, filename string, fileType storage.FileType) (storage.DownloadRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.downloads[filename]
	if !ok {
		rec = newRecord(storage.NewDownload{Filename: filename, FileType: fileType})
		r.downloads[filename] = rec
	}

	rec.DownloadCount++

	return *rec, nil
}

func (r *Registry) GetDownloadStats(_ context.Context) (storage.Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var stats storage.Stats
	for _, rec := range r.downloads {
		stats.Add(rec.FileType, rec.DownloadCount)
	}

	return stats, nil
}
