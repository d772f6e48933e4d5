// Package mirror implements the fetch-and-verify loop of the dataset mirror.
//
// Completeness of a transfer is proven by byte-size equality against the
// server-declared content length. There is no checksum and no retry: a
// server declaring a wrong length is misclassified. This matches the upstream
// update procedure for the dataset and is kept on purpose.
package mirror

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/coecms/cmorph-mirror/internal/logctx"
	"github.com/coecms/cmorph-mirror/internal/mirror/progress"
	"github.com/coecms/cmorph-mirror/internal/plan"
	"github.com/coecms/cmorph-mirror/internal/report"
	"github.com/coecms/cmorph-mirror/internal/storage"
	"github.com/coecms/cmorph-mirror/internal/telemetry"
	"github.com/dustin/go-humanize"
)

// ChunkSize is the fixed transfer chunk, also the progress report interval.
const ChunkSize = 1 << 20 // 1 MiB

// Status is the terminal state of one target.
type Status string

const (
	StatusSkipped    Status = "skip"
	StatusComplete   Status = "complete"
	StatusIncomplete Status = "incomplete"
)

// Fetcher opens an authenticated streaming GET. Satisfied by rda.Client.
type Fetcher interface {
	FetchFile(ctx context.Context, fileURL string) (*http.Response, error)
}

// Result describes how one target was resolved.
type Result struct {
	Status Status
	Update bool  // a local copy existed before the run
	Bytes  int64 // final on-disk size, 0 for skips
}

type Mirror struct {
	fetcher   Fetcher
	repo      storage.FetchWriteRepository // optional
	tel       *telemetry.Telemetry        // nil-safe
	runID     string
	chunkSize int64
}

func New(fetcher Fetcher, repo storage.FetchWriteRepository, tel *telemetry.Telemetry) *Mirror {
	return &Mirror{
		fetcher:   fetcher,
		repo:      repo,
		tel:       tel,
		runID:     storage.GenerateRunID(),
		chunkSize: ChunkSize,
	}
}

// RunID identifies this run in the provenance store.
func (m *Mirror) RunID() string {
	return m.runID
}

// Sync resolves every target strictly in order, one at a time. An incomplete
// transfer is soft: the target lands in the error bucket and the loop goes
// on. A transport failure aborts the run; targets after the failing one stay
// unclassified.
func (m *Mirror) Sync(ctx context.Context, targets []*plan.Target) (*report.OutcomeSet, error) {
	outcomes := &report.OutcomeSet{}

	for _, t := range targets {
		start := time.Now()

		res, err := m.SyncTarget(ctx, t)
		if err != nil {
			return outcomes, fmt.Errorf("sync aborted at %s: %w", t.Key, err)
		}

		m.record(ctx, t, res, time.Since(start))

		switch {
		case res.Status == StatusSkipped:
			// up to date, not reported in any bucket
		case res.Status == StatusComplete && res.Update:
			outcomes.Updated = append(outcomes.Updated, t.Key)
		case res.Status == StatusComplete:
			outcomes.New = append(outcomes.New, t.Key)
		default:
			outcomes.Errored = append(outcomes.Errored, t.Key)
		}
	}

	return outcomes, nil
}

// SyncTarget resolves a single target: planned -> (skip | fetching ->
// {complete, incomplete}). Update mode applies only when a local file already
// exists at the target path.
func (m *Mirror) SyncTarget(ctx context.Context, t *plan.Target) (Result, error) {
	logger := logctx.LoggerFromContext(ctx).With("file", t.Key)

	info, statErr := os.Stat(t.LocalPath)
	update := statErr == nil

	resp, err := m.fetcher.FetchFile(ctx, t.RemoteURL)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	if resp.ContentLength < 0 {
		return Result{}, fmt.Errorf("no content length declared for %s", t.RemoteURL)
	}

	declared := resp.ContentLength

	// The staleness probe reuses the response already opened for the GET; a
	// skip costs one request but transfers no body.
	if update && !remoteNewer(resp, info.ModTime()) {
		logger.Debug("local copy is up to date, skipping", "local", t.LocalPath)

		return Result{Status: StatusSkipped, Update: true}, nil
	}

	out, err := os.Create(t.LocalPath)
	if err != nil {
		return Result{}, fmt.Errorf("failed to create target file: %w", err)
	}
	defer out.Close()

	if err := m.writeFile(ctx, out, resp.Body, t.Key, declared); err != nil {
		return Result{}, err
	}

	onDisk, err := os.Stat(t.LocalPath)
	if err != nil {
		return Result{}, fmt.Errorf("failed to stat downloaded file: %w", err)
	}

	res := Result{Status: StatusIncomplete, Update: update, Bytes: onDisk.Size()}
	if onDisk.Size() == declared {
		res.Status = StatusComplete
	}

	percent := 100.0
	if declared > 0 {
		percent = float64(onDisk.Size()) * 100 / float64(declared)
	}

	logger.Info("download finished",
		"status", string(res.Status),
		"size", humanize.Bytes(uint64(onDisk.Size())),
		"percent", humanize.FtoaWithDigits(percent, 3),
	)

	return res, nil
}

// remoteNewer compares the response's Last-Modified with the local mtime. A
// missing or unparseable header counts as newer, so the file is refetched
// rather than silently left stale.
func remoteNewer(resp *http.Response, localMtime time.Time) bool {
	lm := resp.Header.Get("Last-Modified")
	if lm == "" {
		return true
	}

	remote, err := http.ParseTime(lm)
	if err != nil {
		return true
	}

	return remote.After(localMtime)
}

// onlyWriter hides os.File's ReaderFrom so io.CopyBuffer actually uses the
// fixed-size buffer.
type onlyWriter struct {
	io.Writer
}

func (m *Mirror) writeFile(ctx context.Context, out *os.File, body io.Reader, key string, total int64) error {
	logger := logctx.LoggerFromContext(ctx)

	logger.Info("downloading file", "file", key, "file_size", humanize.Bytes(uint64(total)))

	var src io.Reader = body
	if total > m.chunkSize {
		src = progress.NewReader(body, total, m.chunkSize, func(written int64, total int64) {
			logger.Debug("download progress",
				"file", key,
				"downloaded", humanize.Bytes(uint64(written)),
				"total", humanize.Bytes(uint64(total)),
				"percent", humanize.FtoaWithDigits(float64(written)*100/float64(total), 3))
		})
	}

	buf := make([]byte, m.chunkSize)
	if _, err := io.CopyBuffer(onlyWriter{out}, src, buf); err != nil {
		return fmt.Errorf("failed to copy file: %w", err)
	}

	return nil
}

func (m *Mirror) record(ctx context.Context, t *plan.Target, res Result, dur time.Duration) {
	logger := logctx.LoggerFromContext(ctx)

	m.tel.RecordFetch(ctx, string(res.Status), res.Bytes, dur)

	if m.repo == nil {
		return
	}

	if err := m.repo.TrackFetch(m.runID, t.Key, string(res.Status), res.Bytes); err != nil {
		// provenance history is secondary to the update log, never fatal
		logger.Error("failed to record fetch history", "file", t.Key, "err", err)
	}
}
