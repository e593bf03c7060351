package storage

import (
	"context"
	"errors"

	"github.com/wavesos/wavesos_web/internal/telemetry"
)

// InstrumentedRegistry wraps a Registry with telemetry.
type InstrumentedRegistry struct {
	next      Registry
	telemetry *telemetry.Telemetry
}

// NewInstrumentedRegistry creates a new instrumented registry.
func NewInstrumentedRegistry(next Registry, tel *telemetry.Telemetry) *InstrumentedRegistry {
	return &InstrumentedRegistry{
		next:      next,
		telemetry: tel,
	}
}

// GetDownload retrieves one record with telemetry. An absent record is not
// counted as a failed operation.
func (r *InstrumentedRegistry) GetDownload(ctx context.Context, filename string) (DownloadRecord, error) {
	var (
		result DownloadRecord
		err    error
	)

	instrumentedErr := r.telemetry.InstrumentStoreOperation(ctx, "get_download", func(ctx context.Context) error {
		result, err = r.next.GetDownload(ctx, filename)
		if errors.Is(err, ErrNotFound) {
			return nil
		}

		return err
	})
	if instrumentedErr != nil {
		return DownloadRecord{}, instrumentedErr
	}

	return result, err
}

// CreateDownload creates a record with telemetry.
func (r *InstrumentedRegistry) CreateDownload(ctx context.Context, d NewDownload) (DownloadRecord, error) {
	var result DownloadRecord

	err := r.telemetry.InstrumentStoreOperation(ctx, "create_download", func(ctx context.Context) error {
		var err error

		result, err = r.next.CreateDownload(ctx, d)

		return err
	})

	return result, err
}

// IncrementDownload bumps a counter with telemetry.
func (r *InstrumentedRegistry) IncrementDownload(ctx context.Context, filename string, fileType FileType) (DownloadRecord, error) {
	var result DownloadRecord

	err := r.telemetry.InstrumentStoreOperation(ctx, "increment_download", func(ctx context.Context) error {
		var err error

		result, err = r.next.IncrementDownload(ctx, filename, fileType)

		return err
	})

	return result, err
}

// GetDownloadStats aggregates counts with telemetry.
func (r *InstrumentedRegistry) GetDownloadStats(ctx context.Context) (Stats, error) {
	var result Stats

	err := r.telemetry.InstrumentStoreOperation(ctx, "get_download_stats", func(ctx context.Context) error {
		var err error

		result, err = r.next.GetDownloadStats(ctx)

		return err
	})

	return result, err
}
