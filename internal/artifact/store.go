package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/juju/ratelimit"
	"github.com/wavesos/wavesos_web/internal/artifact/progress"
	"github.com/wavesos/wavesos_web/internal/logctx"
)

// progressInterval is how often, in bytes, a stream logs its progress at debug level.
const progressInterval = 256 * 1024 * 1024

// Store reads artifact files from a directory.
type Store struct {
	dir            string
	bytesPerSecond int64
}

// NewStore serves files from dir. A positive bytesPerSecond caps each stream.
func NewStore(dir string, bytesPerSecond int64) *Store {
	return &Store{dir: dir, bytesPerSecond: bytesPerSecond}
}

// File is an opened artifact ready to be streamed.
type File struct {
	*os.File

	Artifact Artifact
	Size     int64
	ModTime  time.Time
}

// Open opens the artifact's file. A missing file, or a directory in its
// place, is reported as *NotFoundError.
func (s *Store) Open(a Artifact) (*File, error) {
	path := filepath.Join(s.dir, filepath.Base(a.Filename))

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &NotFoundError{Route: a.Route, Filename: a.Filename, Err: err}
		}

		return nil, fmt.Errorf("failed to open artifact %s: %w", a.Route, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()

		return nil, fmt.Errorf("failed to stat artifact %s: %w", a.Route, err)
	}

	if info.IsDir() {
		f.Close()

		return nil, &NotFoundError{Route: a.Route, Filename: a.Filename}
	}

	return &File{File: f, Artifact: a, Size: info.Size(), ModTime: info.ModTime()}, nil
}

// Copy streams f to w and returns the bytes written. It stops when ctx is
// done, which is how a client abort surfaces.
func (s *Store) Copy(ctx context.Context, w io.Writer, f *File) (int64, error) {
	logger := logctx.LoggerFromContext(ctx)

	logger.InfoContext(ctx, "streaming artifact", "file_size", humanize.Bytes(uint64(f.Size)))

	var r io.Reader = f.File
	if s.bytesPerSecond > 0 {
		bucket := ratelimit.NewBucketWithRate(float64(s.bytesPerSecond), s.bytesPerSecond)
		r = ratelimit.Reader(r, bucket)
	}

	pr := progress.NewReader(&contextReader{ctx: ctx, r: r}, f.Size, progressInterval, func(read, total int64) {
		logger.DebugContext(ctx, "artifact stream progress",
			"sent", humanize.Bytes(uint64(read)),
			"total", humanize.Bytes(uint64(total)),
		)
	})

	written, err := io.Copy(w, pr)
	if err != nil {
		return written, fmt.Errorf("failed to stream artifact %s after %s: %w", f.Artifact.Route, humanize.Bytes(uint64(written)), err)
	}

	logger.InfoContext(ctx, "artifact streamed", "sent", humanize.Bytes(uint64(written)))

	return written, nil
}

// contextReader fails reads once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *contextReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}

	return cr.r.Read(p)
}
