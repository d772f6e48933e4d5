package storage

// FetchRecord is one row of provenance history: what happened to one dataset
// file during one run.
type FetchRecord struct {
	RunID     string
	FilePath  string
	Status    string
	SizeBytes int64
	FetchedAt string
}

type FetchReadRepository interface {
	GetRunHistory(runID string) ([]FetchRecord, error)
	LastFetch(filePath string) (*FetchRecord, error)
}

type FetchWriteRepository interface {
	TrackFetch(runID, filePath, status string, sizeBytes int64) error
}
