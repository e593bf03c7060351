package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wavesos/wavesos_web/internal/storage"
	"github.com/wavesos/wavesos_web/internal/storage/storagetest"
)

func TestRegistry(t *testing.T) {
	storagetest.Run(t, func(t *testing.T, seeds ...storage.NewDownload) storage.Registry {
		return NewRegistry(seeds...)
	})
}

func TestRegistry_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(storagetest.Seeds...)

	rec, err := r.GetDownload(ctx, storagetest.ISOFilename)
	require.NoError(t, err)

	rec.DownloadCount = 42

	again, err := r.GetDownload(ctx, storagetest.ISOFilename)
	require.NoError(t, err)
	assert.Zero(t, again.DownloadCount)
}

func TestNewRegistry_DuplicateSeedsKeepFirst(t *testing.T) {
	r := NewRegistry(
		storage.NewDownload{Filename: "a.iso", FileType: storage.FileTypeISO},
		storage.NewDownload{Filename: "a.iso", FileType: storage.FileTypeWrapper},
	)

	rec, err := r.GetDownload(context.Background(), "a.iso")
	require.NoError(t, err)
	assert.Equal(t, storage.FileTypeISO, rec.FileType)
}
