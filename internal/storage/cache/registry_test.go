package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wavesos/wavesos_web/internal/storage"
	"github.com/wavesos/wavesos_web/internal/storage/memory"
	"github.com/wavesos/wavesos_web/internal/storage/storagetest"
)

// countingRegistry counts stats queries reaching the wrapped registry.
type countingRegistry struct {
	storage.Registry

	statsCalls int
	statsErr   error
}

func (c *countingRegistry) GetDownloadStats(ctx context.Context) (storage.Stats, error) {
	c.statsCalls++

	if c.statsErr != nil {
		return storage.Stats{}, c.statsErr
	}

	return c.Registry.GetDownloadStats(ctx)
}

func TestRegistry(t *testing.T) {
	storagetest.Run(t, func(t *testing.T, seeds ...storage.NewDownload) storage.Registry {
		return NewRegistry(memory.NewRegistry(seeds...), time.Minute)
	})
}

func TestRegistry_CachesStats(t *testing.T) {
	ctx := context.Background()
	inner := &countingRegistry{Registry: memory.NewRegistry(storagetest.Seeds...)}
	r := NewRegistry(inner, time.Minute)

	for range 3 {
		_, err := r.GetDownloadStats(ctx)
		require.NoError(t, err)
	}

	assert.Equal(t, 1, inner.statsCalls)
}

func TestRegistry_WritesInvalidate(t *testing.T) {
	ctx := context.Background()
	inner := &countingRegistry{Registry: memory.NewRegistry(storagetest.Seeds...)}
	r := NewRegistry(inner, time.Minute)

	_, err := r.GetDownloadStats(ctx)
	require.NoError(t, err)

	_, err = r.IncrementDownload(ctx, storagetest.ISOFilename, storage.FileTypeISO)
	require.NoError(t, err)

	stats, err := r.GetDownloadStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, storage.Stats{ISO: 1, Total: 1}, stats)

	_, err = r.CreateDownload(ctx, storage.NewDownload{Filename: "extra.zip", FileType: storage.FileTypeWrapper})
	require.NoError(t, err)

	_, err = r.GetDownloadStats(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, inner.statsCalls)
}

func TestRegistry_ErrorsAreNotCached(t *testing.T) {
	ctx := context.Background()
	inner := &countingRegistry{Registry: memory.NewRegistry(), statsErr: errors.New("database is closed")}
	r := NewRegistry(inner, time.Minute)

	_, err := r.GetDownloadStats(ctx)
	require.Error(t, err)

	inner.statsErr = nil

	stats, err := r.GetDownloadStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, storage.Stats{}, stats)
	assert.Equal(t, 2, inner.statsCalls)
}

func TestRegistry_Expires(t *testing.T) {
	ctx := context.Background()
	inner := &countingRegistry{Registry: memory.NewRegistry()}
	r := NewRegistry(inner, 10*time.Millisecond)

	_, err := r.GetDownloadStats(ctx)
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)

	_, err = r.GetDownloadStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.statsCalls)
}
