package filetype

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsPDFByMagicBytes(t *testing.T) {
	dir := t.TempDir()
	d := New()

	pdf := filepath.Join(dir, "real.bin") // extension must not matter
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF-1.7\n%âãÏÓ\n"), 0o644))
	ok, err := d.IsPDF(pdf)
	require.NoError(t, err)
	assert.True(t, ok)

	text := filepath.Join(dir, "fake.pdf")
	require.NoError(t, os.WriteFile(text, []byte("just text pretending"), 0o644))
	ok, err = d.IsPDF(text)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIsPDFMissingFile(t *testing.T) {
	_, err := New().IsPDF("/nonexistent/file.pdf")
	assert.Error(t, err)
}
