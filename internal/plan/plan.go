package plan

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const dirPerm = 0755

// Target is one (remote file, local file) pair for a single calendar day.
// Immutable once built.
type Target struct {
	RemoteURL string
	LocalPath string
	Key       string // dataset-relative path, used as the target identifier in summaries
	Year      string
	Month     string
	Day       string
}

// Build enumerates one Target per calendar day of each requested month and
// makes sure the local (year, month) directory exists before any of its
// targets is returned.
//
// The remote layout prefixes the dataset tree with "cmorph_"; locally that
// segment is dropped because "cmorph" is already part of the DRS above
// dataDir.
func Build(baseURL, dataDir, year string, months []string) ([]*Target, error) {
	var targets []*Target

	for _, month := range months {
		last, err := daysIn(year, month)
		if err != nil {
			return nil, err
		}

		dir := filepath.Join(dataDir, "v1.0", "30min", "8km", year, month)
		if err := os.MkdirAll(dir, dirPerm); err != nil {
			return nil, fmt.Errorf("failed to create data directory %s: %w", dir, err)
		}

		for day := 1; day <= last; day++ {
			dd := fmt.Sprintf("%02d", day)
			key := fmt.Sprintf("v1.0/30min/8km/%s/%s/CMORPH_V1.0_ADJ_8km-30min_%s%s%s00.nc",
				year, month, year, month, dd)

			targets = append(targets, &Target{
				RemoteURL: baseURL + "cmorph_" + key,
				LocalPath: filepath.Join(dataDir, filepath.FromSlash(key)),
				Key:       key,
				Year:      year,
				Month:     month,
				Day:       dd,
			})
		}
	}

	return targets, nil
}

// AllMonths returns "01" through "12", the default when no months are given.
func AllMonths() []string {
	months := make([]string, 0, 12)
	for m := 1; m <= 12; m++ {
		months = append(months, fmt.Sprintf("%02d", m))
	}

	return months
}

// daysIn resolves the number of days in (year, month), leap years included.
func daysIn(year, month string) (int, error) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return 0, fmt.Errorf("invalid year %q: %w", year, err)
	}

	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return 0, fmt.Errorf("invalid month %q", month)
	}

	// Day zero of the next month is the last day of this one.
	return time.Date(y, time.Month(m)+1, 0, 0, 0, 0, 0, time.UTC).Day(), nil
}
