package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/coecms/cmorph-mirror/internal/logctx"
)

// OutcomeSet partitions the processed targets. The three buckets are
// disjoint; a skipped target appears in none of them.
type OutcomeSet struct {
	Updated []string
	New     []string
	Errored []string
}

// Total is the number of targets that ended in any bucket.
func (s *OutcomeSet) Total() int {
	return len(s.Updated) + len(s.New) + len(s.Errored)
}

// Summary renders the human-readable block that goes to stdout and, through
// the default logger fanout, into the update log.
func (s *OutcomeSet) Summary() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Sync summary: %d updated, %d new, %d error\n",
		len(s.Updated), len(s.New), len(s.Errored))

	writeBucket(&b, "Updated files", s.Updated)
	writeBucket(&b, "New files", s.New)
	writeBucket(&b, "Error files", s.Errored)

	return b.String()
}

// Log emits one structured record with the counts and the per-bucket
// identifiers, the durable trace of the run.
func (s *OutcomeSet) Log(ctx context.Context) {
	logger := logctx.LoggerFromContext(ctx)

	logger.Info("sync summary",
		"updated", len(s.Updated),
		"new", len(s.New),
		"error", len(s.Errored),
		"updated_files", s.Updated,
		"new_files", s.New,
		"error_files", s.Errored,
	)
}

func writeBucket(b *strings.Builder, title string, files []string) {
	fmt.Fprintf(b, "%s: %d\n", title, len(files))

	for _, f := range files {
		fmt.Fprintf(b, "  %s\n", f)
	}
}
