package sqlite

import (
	"database/sql"

	// Import the SQLite driver.
	_ "github.com/mattn/go-sqlite3"
)

// InitDB opens the history database and creates the fetch_history table if
// it doesn't exist.
func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS fetch_history (
		id INTEGER PRIMARY KEY,
		run_id TEXT,
		file_path TEXT,
		status TEXT,
		size_bytes INTEGER,
		fetched_at DATETIME
	)`)

	if err != nil {
		return nil, err
	}

	return db, nil
}
