package pagerange

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Validation errors returned by Parse and Normalize. Handlers map these to 400s.
var (
	ErrInvalidFormat = errors.New("page ranges must be integers")
	ErrInvalidBounds = errors.New("each range must have start >= 1 and end >= start")
	ErrNoRanges      = errors.New("at least one valid page range is required")
	ErrOutOfBounds   = errors.New("all ranges fall outside the document's page count")
)

// PageRange is a 1-based inclusive page interval. Immutable once validated.
type PageRange struct {
	Start int
	End   int
}

func (r PageRange) String() string { return fmt.Sprintf("%d-%d", r.Start, r.End) }

// Pages returns the number of pages covered by the range.
func (r PageRange) Pages() int { return r.End - r.Start + 1 }

// ArtifactName builds the deterministic output name for this range:
// <stem>_part<idx>_<start>-<end>.<ext>. idx is the 1-based position in the plan.
func (r PageRange) ArtifactName(stem string, idx int, ext string) string {
	return fmt.Sprintf("%s_part%d_%d-%d.%s", stem, idx, r.Start, r.End, strings.TrimPrefix(ext, "."))
}

// Parse pairs starts and ends positionally and validates each pair.
// Pairs where either side is empty are skipped. The result is sorted
// ascending by (start, end); overlapping ranges are kept as-is because each
// range names a separate output artifact, not a set union.
func Parse(starts, ends []string) ([]PageRange, error) {
	n := len(starts)
	if len(ends) < n {
		n = len(ends)
	}
	ranges := make([]PageRange, 0, n)
	for i := 0; i < n; i++ {
		s := strings.TrimSpace(starts[i])
		e := strings.TrimSpace(ends[i])
		if s == "" || e == "" {
			continue
		}
		si, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
		}
		ei, err := strconv.Atoi(e)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, e)
		}
		if si < 1 || ei < 1 || ei < si {
			return nil, fmt.Errorf("%w: got %d-%d", ErrInvalidBounds, si, ei)
		}
		ranges = append(ranges, PageRange{Start: si, End: ei})
	}
	if len(ranges) == 0 {
		return nil, ErrNoRanges
	}
	sort.Slice(ranges, func(i, j int) bool {
		if ranges[i].Start != ranges[j].Start {
			return ranges[i].Start < ranges[j].Start
		}
		return ranges[i].End < ranges[j].End
	})
	return ranges, nil
}

// Normalize clips parsed ranges against totalPages and appends the trailing
// remainder so every page past the last explicit range still ends up in one
// final artifact. Gaps before or between explicit ranges are left alone; only
// the tail is filled. That asymmetry is intentional, long-shipped behavior.
func Normalize(ranges []PageRange, totalPages int) ([]PageRange, error) {
	if totalPages < 1 {
		return nil, ErrOutOfBounds
	}
	clipped := make([]PageRange, 0, len(ranges))
	for _, r := range ranges {
		if r.Start > totalPages {
			continue
		}
		if r.End > totalPages {
			r.End = totalPages
		}
		if r.End >= r.Start {
			clipped = append(clipped, r)
		}
	}
	if len(clipped) == 0 {
		return nil, fmt.Errorf("%w: document has %d page(s)", ErrOutOfBounds, totalPages)
	}

	lastEnd := 0
	for _, r := range clipped {
		if r.End > lastEnd {
			lastEnd = r.End
		}
	}
	if lastEnd < totalPages {
		clipped = append(clipped, PageRange{Start: lastEnd + 1, End: totalPages})
	}
	return clipped, nil
}

// Plan parses and normalizes in one step. Pure; identical input yields an
// identical plan.
func Plan(starts, ends []string, totalPages int) ([]PageRange, error) {
	ranges, err := Parse(starts, ends)
	if err != nil {
		return nil, err
	}
	return Normalize(ranges, totalPages)
}
