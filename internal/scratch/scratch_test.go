package scratch

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCreatesPrefixedDir(t *testing.T) {
	root := t.TempDir()
	d, err := New(root, "split")
	require.NoError(t, err)
	defer d.Remove()

	assert.True(t, strings.HasPrefix(filepath.Base(d.Path), "split_"))
	info, err := os.Stat(d.Path)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestJoinAndRemove(t *testing.T) {
	d, err := New(t.TempDir(), "sign")
	require.NoError(t, err)

	p := d.Join("upload.pdf")
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))

	d.Remove()
	_, err = os.Stat(d.Path)
	assert.True(t, os.IsNotExist(err))

	d.Remove() // second call is a no-op
}

func TestSweepRemovesOnlyStaleToolDirs(t *testing.T) {
	root := t.TempDir()

	stale := filepath.Join(root, "merge_old")
	require.NoError(t, os.Mkdir(stale, 0o755))
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	fresh := filepath.Join(root, "split_fresh")
	require.NoError(t, os.Mkdir(fresh, 0o755))

	unrelated := filepath.Join(root, "keepme")
	require.NoError(t, os.Mkdir(unrelated, 0o755))
	require.NoError(t, os.Chtimes(unrelated, old, old))

	Sweep(root, time.Hour)

	_, err := os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(fresh)
	assert.NoError(t, err)
	_, err = os.Stat(unrelated)
	assert.NoError(t, err)
}
