package storage

import (
	"context"
	"errors"
)

var (
	// ErrNotFound means no record exists for the requested filename.
	ErrNotFound = errors.New("download record not found")
	// ErrAlreadyExists is returned by CreateDownload when the filename is taken.
	ErrAlreadyExists = errors.New("download record already exists")
)

// FileType categorizes an artifact.
type FileType string

const (
	FileTypeISO     FileType = "iso"
	FileTypeWrapper FileType = "wrapper"
)

// DownloadRecord is the counter entity for one artifact.
type DownloadRecord struct {
	ID            string   `json:"id"`
	Filename      string   `json:"filename"`
	FileType      FileType `json:"fileType"`
	DownloadCount int64    `json:"downloadCount"`
}

// NewDownload holds the caller-supplied fields of a record.
type NewDownload struct {
	Filename string
	FileType FileType
}

// Stats is the aggregate of download counts per known file type.
// Records of any other type are left out, including from Total.
type Stats struct {
	ISO     int64 `json:"iso"`
	Wrapper int64 `json:"wrapper"`
	Total   int64 `json:"total"`
}

// Add folds one record's count into the aggregate.
func (s *Stats) Add(fileType FileType, count int64) {
	switch fileType {
	case FileTypeISO:
		s.ISO += count
	case FileTypeWrapper:
		s.Wrapper += count
	default:
		return
	}

	s.Total += count
}

// Registry keeps per-artifact download counts.
type Registry interface {
	// GetDownload returns ErrNotFound when no record exists for filename.
	GetDownload(ctx context.Context, filename string) (DownloadRecord, error)
	// CreateDownload stores a record with a fresh id and a zero count.
	// It returns ErrAlreadyExists instead of replacing an existing record.
	CreateDownload(ctx context.Context, d NewDownload) (DownloadRecord, error)
	// IncrementDownload creates the record on first use and bumps its count
	// by exactly one. Concurrent calls never lose an increment.
	IncrementDownload(ctx context.Context, filename string, fileType FileType) (DownloadRecord, error)
	GetDownloadStats(ctx context.Context) (Stats, error)
}
