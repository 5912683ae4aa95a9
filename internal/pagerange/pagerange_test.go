package pagerange

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSortsAndSkipsEmptyPairs(t *testing.T) {
	ranges, err := Parse([]string{"5", "", "1"}, []string{"6", "9", "3"})
	require.NoError(t, err)
	assert.Equal(t, []PageRange{{1, 3}, {5, 6}}, ranges)
}

func TestParseTieBreaksBySmallerEnd(t *testing.T) {
	ranges, err := Parse([]string{"2", "2"}, []string{"9", "4"})
	require.NoError(t, err)
	assert.Equal(t, []PageRange{{2, 4}, {2, 9}}, ranges)
}

func TestParseNonInteger(t *testing.T) {
	_, err := Parse([]string{"a"}, []string{"3"})
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestParseBoundsViolation(t *testing.T) {
	_, err := Parse([]string{"5"}, []string{"2"})
	assert.ErrorIs(t, err, ErrInvalidBounds)

	_, err = Parse([]string{"0"}, []string{"2"})
	assert.ErrorIs(t, err, ErrInvalidBounds)
}

func TestParseNoUsablePairs(t *testing.T) {
	_, err := Parse([]string{"", ""}, []string{"", "4"})
	assert.ErrorIs(t, err, ErrNoRanges)
}

func TestNormalizeAppendsTrailingRemainder(t *testing.T) {
	plan, err := Normalize([]PageRange{{1, 3}, {5, 6}}, 10)
	require.NoError(t, err)
	assert.Equal(t, []PageRange{{1, 3}, {5, 6}, {7, 10}}, plan)
}

func TestNormalizeLeavesInteriorGaps(t *testing.T) {
	// Only the tail gets filled; the hole between 3 and 5 stays.
	plan, err := Normalize([]PageRange{{1, 3}, {5, 10}}, 10)
	require.NoError(t, err)
	assert.Equal(t, []PageRange{{1, 3}, {5, 10}}, plan)
}

func TestNormalizeClampsEnd(t *testing.T) {
	plan, err := Normalize([]PageRange{{3, 10}}, 5)
	require.NoError(t, err)
	assert.Equal(t, []PageRange{{3, 5}}, plan)
}

func TestNormalizeAllOutOfBounds(t *testing.T) {
	_, err := Normalize([]PageRange{{9, 12}}, 5)
	assert.ErrorIs(t, err, ErrOutOfBounds)
}

func TestNormalizeKeepsOverlaps(t *testing.T) {
	plan, err := Normalize([]PageRange{{1, 4}, {2, 6}}, 6)
	require.NoError(t, err)
	assert.Equal(t, []PageRange{{1, 4}, {2, 6}}, plan)
}

func TestPlanIsIdempotent(t *testing.T) {
	starts := []string{"1", "5"}
	ends := []string{"3", "6"}
	first, err := Plan(starts, ends, 10)
	require.NoError(t, err)
	second, err := Plan(starts, ends, 10)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestArtifactName(t *testing.T) {
	r := PageRange{Start: 7, End: 10}
	assert.Equal(t, "report_part3_7-10.pdf", r.ArtifactName("report", 3, "pdf"))
	assert.Equal(t, "report_part3_7-10.docx", r.ArtifactName("report", 3, ".docx"))
}
