package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Span attributes feed metrics, so keep them bounded: operation names,
// file types and statuses are fine; filenames, emails and request ids
// belong in logs.

// InstrumentedFunc represents a function that can be instrumented.
type InstrumentedFunc func(ctx context.Context) error

// InstrumentOperation instruments a generic operation with telemetry.
func (t *Telemetry) InstrumentOperation(ctx context.Context, operationName, component string, fn InstrumentedFunc) error {
	if t == nil || t.tracer == nil {
		return fn(ctx)
	}

	start := time.Now()
	ctx, span := t.tracer.Start(ctx, operationName)

	defer span.End()

	span.SetAttributes(
		attribute.String("component", component),
		attribute.String("operation", operationName),
	)

	err := fn(ctx)
	duration := time.Since(start)

	status := "success"
	if err != nil {
		status = "error"

		span.SetAttributes(attribute.Bool("error", true))
		span.SetStatus(codes.Error, err.Error())
	}

	span.SetAttributes(
		attribute.String("status", status),
		attribute.Float64("duration_seconds", duration.Seconds()),
	)

	return err
}

// InstrumentStoreOperation instruments download registry operations.
func (t *Telemetry) InstrumentStoreOperation(ctx context.Context, operation string, fn InstrumentedFunc) error {
	if t == nil {
		return fn(ctx)
	}

	start := time.Now()
	err := t.InstrumentOperation(ctx, "store_"+operation, "registry", fn)
	duration := time.Since(start)

	status := "success"
	if err != nil {
		status = "error"
	}

	t.RecordStoreOperation(operation, status, duration)

	return err
}

// InstrumentDownload instruments one artifact stream. fn reports the bytes
// it wrote so partial streams are accounted for too.
func (t *Telemetry) InstrumentDownload(ctx context.Context, fileType string, fn func(ctx context.Context) (int64, error)) error {
	if t == nil {
		_, err := fn(ctx)

		return err
	}

	t.IncrementActiveDownloads()
	defer t.DecrementActiveDownloads()

	var written int64

	err := t.InstrumentOperation(ctx, "artifact_download", "artifact", func(ctx context.Context) error {
		var err error

		written, err = fn(ctx)

		return err
	})

	status := "success"
	if err != nil {
		status = "error"
	}

	t.RecordArtifactDownload(fileType, status, written)

	return err
}
