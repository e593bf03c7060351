// Package storagetest holds behavior tests every storage.Registry must pass.
package storagetest

import (
	"context"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wavesos/wavesos_web/internal/storage"
)

const (
	ISOFilename     = "wavesinstaller_ultra.iso"
	WrapperFilename = "waves_wrapper.zip"
)

// Seeds are the two artifact records a fresh site starts with.
var Seeds = []storage.NewDownload{
	{Filename: ISOFilename, FileType: storage.FileTypeISO},
	{Filename: WrapperFilename, FileType: storage.FileTypeWrapper},
}

// Factory builds an empty-or-seeded registry for one subtest.
type Factory func(t *testing.T, seeds ...storage.NewDownload) storage.Registry

// Run exercises the storage.Registry contract against the factory's registry.
func Run(t *testing.T, newRegistry Factory) {
	t.Run("fresh seeded registry has zero stats", func(t *testing.T) {
		r := newRegistry(t, Seeds...)

		stats, err := r.GetDownloadStats(context.Background())
		require.NoError(t, err)

		if diff := cmp.Diff(storage.Stats{}, stats); diff != "" {
			t.Errorf("stats mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("empty registry has zero stats", func(t *testing.T) {
		r := newRegistry(t)

		stats, err := r.GetDownloadStats(context.Background())
		require.NoError(t, err)
		assert.Equal(t, storage.Stats{}, stats)
	})

	t.Run("stats partition by file type", func(t *testing.T) {
		ctx := context.Background()
		r := newRegistry(t, Seeds...)

		for range 3 {
			_, err := r.IncrementDownload(ctx, ISOFilename, storage.FileTypeISO)
			require.NoError(t, err)
		}

		for range 2 {
			_, err := r.IncrementDownload(ctx, WrapperFilename, storage.FileTypeWrapper)
			require.NoError(t, err)
		}

		stats, err := r.GetDownloadStats(ctx)
		require.NoError(t, err)

		if diff := cmp.Diff(storage.Stats{ISO: 3, Wrapper: 2, Total: 5}, stats); diff != "" {
			t.Errorf("stats mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("unknown file types are left out of stats", func(t *testing.T) {
		ctx := context.Background()
		r := newRegistry(t)

		_, err := r.IncrementDownload(ctx, "checksums.txt", storage.FileType("checksum"))
		require.NoError(t, err)
		_, err = r.IncrementDownload(ctx, ISOFilename, storage.FileTypeISO)
		require.NoError(t, err)

		stats, err := r.GetDownloadStats(ctx)
		require.NoError(t, err)
		assert.Equal(t, storage.Stats{ISO: 1, Total: 1}, stats)
	})

	t.Run("get on unseen filename is not found", func(t *testing.T) {
		r := newRegistry(t, Seeds...)

		_, err := r.GetDownload(context.Background(), "never-seen.iso")
		require.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("get returns seeded record", func(t *testing.T) {
		r := newRegistry(t, Seeds...)

		rec, err := r.GetDownload(context.Background(), ISOFilename)
		require.NoError(t, err)
		assert.NotEmpty(t, rec.ID)
		assert.Equal(t, ISOFilename, rec.Filename)
		assert.Equal(t, storage.FileTypeISO, rec.FileType)
		assert.Zero(t, rec.DownloadCount)
	})

	t.Run("create assigns id and zero count", func(t *testing.T) {
		ctx := context.Background()
		r := newRegistry(t)

		a, err := r.CreateDownload(ctx, storage.NewDownload{Filename: "a.iso", FileType: storage.FileTypeISO})
		require.NoError(t, err)
		b, err := r.CreateDownload(ctx, storage.NewDownload{Filename: "b.zip", FileType: storage.FileTypeWrapper})
		require.NoError(t, err)

		assert.NotEmpty(t, a.ID)
		assert.NotEqual(t, a.ID, b.ID)
		assert.Zero(t, a.DownloadCount)

		got, err := r.GetDownload(ctx, "a.iso")
		require.NoError(t, err)
		assert.Equal(t, a, got)
	})

	t.Run("create refuses an existing filename", func(t *testing.T) {
		ctx := context.Background()
		r := newRegistry(t, Seeds...)

		before, err := r.IncrementDownload(ctx, ISOFilename, storage.FileTypeISO)
		require.NoError(t, err)

		_, err = r.CreateDownload(ctx, storage.NewDownload{Filename: ISOFilename, FileType: storage.FileTypeISO})
		require.ErrorIs(t, err, storage.ErrAlreadyExists)

		after, err := r.GetDownload(ctx, ISOFilename)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("increment creates unseen record with count one", func(t *testing.T) {
		ctx := context.Background()
		r := newRegistry(t, Seeds...)

		rec, err := r.IncrementDownload(ctx, "waves_2026.iso", storage.FileTypeISO)
		require.NoError(t, err)
		assert.Equal(t, int64(1), rec.DownloadCount)
		assert.Equal(t, storage.FileTypeISO, rec.FileType)
		assert.NotEmpty(t, rec.ID)

		got, err := r.GetDownload(ctx, "waves_2026.iso")
		require.NoError(t, err)
		assert.Equal(t, rec, got)
	})

	t.Run("increment keeps id stable", func(t *testing.T) {
		ctx := context.Background()
		r := newRegistry(t, Seeds...)

		seeded, err := r.GetDownload(ctx, WrapperFilename)
		require.NoError(t, err)

		rec, err := r.IncrementDownload(ctx, WrapperFilename, storage.FileTypeWrapper)
		require.NoError(t, err)
		assert.Equal(t, seeded.ID, rec.ID)
		assert.Equal(t, int64(1), rec.DownloadCount)
	})

	t.Run("increment keeps the first file type", func(t *testing.T) {
		ctx := context.Background()
		r := newRegistry(t)

		_, err := r.IncrementDownload(ctx, "release.iso", storage.FileTypeISO)
		require.NoError(t, err)

		rec, err := r.IncrementDownload(ctx, "release.iso", storage.FileTypeWrapper)
		require.NoError(t, err)
		assert.Equal(t, storage.FileTypeISO, rec.FileType)
		assert.Equal(t, int64(2), rec.DownloadCount)
	})

	t.Run("concurrent increments are not lost", func(t *testing.T) {
		ctx := context.Background()
		r := newRegistry(t)

		const workers = 50

		var wg sync.WaitGroup

		errs := make(chan error, workers)

		for range workers {
			wg.Add(1)

			go func() {
				defer wg.Done()

				if _, err := r.IncrementDownload(ctx, ISOFilename, storage.FileTypeISO); err != nil {
					errs <- err
				}
			}()
		}

		wg.Wait()
		close(errs)

		for err := range errs {
			require.NoError(t, err)
		}

		rec, err := r.GetDownload(ctx, ISOFilename)
		require.NoError(t, err)
		assert.Equal(t, int64(workers), rec.DownloadCount)
	})
}
