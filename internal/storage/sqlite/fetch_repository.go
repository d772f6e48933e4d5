package sqlite

import (
	"database/sql"
	"time"

	"github.com/coecms/cmorph-mirror/internal/storage"
)

// FetchRepository stores fetch history rows in SQLite.
type FetchRepository struct {
	db *sql.DB
}

func NewFetchRepository(dbConn *sql.DB) *FetchRepository {
	return &FetchRepository{db: dbConn}
}

// TrackFetch appends one history row for a resolved target.
func (r *FetchRepository) TrackFetch(runID, filePath, status string, sizeBytes int64) error {
	_, err := r.db.Exec(
		`INSERT INTO fetch_history (run_id, file_path, status, size_bytes, fetched_at) VALUES (?, ?, ?, ?, ?)`,
		runID, filePath, status, sizeBytes, time.Now().Format(time.RFC3339),
	)

	return err
}

// GetRunHistory returns every row recorded under a run id, oldest first.
func (r *FetchRepository) GetRunHistory(runID string) ([]storage.FetchRecord, error) {
	rows, err := r.db.Query(
		`SELECT run_id, file_path, status, size_bytes, fetched_at FROM fetch_history WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []storage.FetchRecord

	for rows.Next() {
		var record storage.FetchRecord
		if err := rows.Scan(&record.RunID, &record.FilePath, &record.Status, &record.SizeBytes, &record.FetchedAt); err != nil {
			return nil, err
		}

		records = append(records, record)
	}

	return records, rows.Err()
}

// LastFetch returns the most recent row for a dataset file, or nil if the
// file has never been tracked.
func (r *FetchRepository) LastFetch(filePath string) (*storage.FetchRecord, error) {
	var record storage.FetchRecord

	err := r.db.QueryRow(
		`SELECT run_id, file_path, status, size_bytes, fetched_at FROM fetch_history WHERE file_path = ? ORDER BY id DESC LIMIT 1`,
		filePath,
	).Scan(&record.RunID, &record.FilePath, &record.Status, &record.SizeBytes, &record.FetchedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return &record, nil
}
