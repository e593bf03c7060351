package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/mattn/go-sqlite3"
	"github.com/wavesos/wavesos_web/internal/storage"
)

// DownloadRepository implements storage.Registry
// and stores download records in SQLite.
type DownloadRepository struct {
	db *sql.DB
}

func NewDownloadRepository(dbConn *sql.DB) *DownloadRepository {
	return &DownloadRepository{db: dbConn}
}

func (r *DownloadRepository) GetDownload(ctx context.Context, filename string) (storage.DownloadRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, filename, file_type, download_count FROM downloads WHERE filename = ?`,
		filename,
	)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.DownloadRecord{}, storage.ErrNotFound
	}

	return rec, err
}

func (r *DownloadRepository) CreateDownload(ctx context.Context, d storage.NewDownload) (storage.DownloadRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO downloads (filename, file_type, download_count)
		VALUES (?, ?, 0)
		RETURNING id, filename, file_type, download_count`,
		d.Filename, string(d.FileType),
	)

	rec, err := scanRecord(row)
	if isUniqueViolation(err) {
		return storage.DownloadRecord{}, storage.ErrAlreadyExists
	}

	return rec, err
}

// IncrementDownload inserts the record with a count of one or bumps the
// existing row, in a single statement.
func (r *DownloadRepository) IncrementDownload(ctx context.Context, filename string, fileType storage.FileType) (storage.DownloadRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO downloads (filename, file_type, download_count)
		VALUES (?, ?, 1)
		ON CONFLICT(filename) DO UPDATE SET
			download_count = downloads.download_count + 1
		RETURNING id, filename, file_type, download_count`,
		filename, string(fileType),
	)

	return scanRecord(row)
}

// GetDownloadStats scans every row and reduces in Go. A table that has not
// been created yet counts as an empty dataset; other faults are returned.
func (r *DownloadRepository) GetDownloadStats(ctx context.Context) (storage.Stats, error) {
	var stats storage.Stats

	rows, err := r.db.QueryContext(ctx, `SELECT file_type, download_count FROM downloads`)
	if err != nil {
		if isMissingTable(err) {
			return stats, nil
		}

		return stats, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			fileType string
			count    int64
		)

		if err := rows.Scan(&fileType, &count); err != nil {
			return storage.Stats{}, err
		}

		stats.Add(storage.FileType(fileType), count)
	}

	if err := rows.Err(); err != nil {
		return storage.Stats{}, err
	}

	return stats, nil
}

func scanRecord(row *sql.Row) (storage.DownloadRecord, error) {
	var (
		rec      storage.DownloadRecord
		fileType string
	)

	if err := row.Scan(&rec.ID, &rec.Filename, &fileType, &rec.DownloadCount); err != nil {
		return storage.DownloadRecord{}, err
	}

	rec.FileType = storage.FileType(fileType)

	return rec, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error

	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

func isMissingTable(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}

	return sqliteErr.Code == sqlite3.ErrError && strings.Contains(sqliteErr.Error(), "no such table")
}
