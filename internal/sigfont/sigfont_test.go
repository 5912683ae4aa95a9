package sigfont

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/sfnt"
)

func TestResolvePicksFirstExisting(t *testing.T) {
	dir := t.TempDir()
	second := filepath.Join(dir, "second.ttf")
	third := filepath.Join(dir, "third.ttf")
	require.NoError(t, os.WriteFile(second, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(third, []byte("x"), 0o644))

	got, err := Resolve([]string{filepath.Join(dir, "missing.ttf"), second, third})
	require.NoError(t, err)
	assert.Equal(t, second, got)
}

func TestResolveSkipsDirectoriesAndEmpties(t *testing.T) {
	dir := t.TempDir()
	real := filepath.Join(dir, "font.ttf")
	require.NoError(t, os.WriteFile(real, []byte("x"), 0o644))

	got, err := Resolve([]string{"", dir, real})
	require.NoError(t, err)
	assert.Equal(t, real, got)
}

func TestResolveAllMissing(t *testing.T) {
	_, err := Resolve([]string{"/nonexistent/a.ttf", "/nonexistent/b.ttf"})
	assert.ErrorIs(t, err, ErrFontMissing)
}

func TestLoadCachesPerPath(t *testing.T) {
	calls := 0
	fake := &sfnt.Font{}
	setParser(func(path string) (*sfnt.Font, error) {
		calls++
		return fake, nil
	})
	defer setParser(parseFile)

	f1, err := Load("cache-test.ttf")
	require.NoError(t, err)
	f2, err := Load("cache-test.ttf")
	require.NoError(t, err)

	assert.Same(t, f1, f2)
	assert.Equal(t, 1, calls)
}

func TestDefaultCandidatesEnvOverrideFirst(t *testing.T) {
	t.Setenv("SIGNATURE_FONT_PATH", "/custom/sig.ttf")
	cands := DefaultCandidates()
	require.NotEmpty(t, cands)
	assert.Equal(t, "/custom/sig.ttf", cands[0])
}
