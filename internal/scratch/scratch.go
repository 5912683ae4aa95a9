// Package scratch manages per-request working directories. Every tool
// request gets its own dir under the scratch root; it is removed when the
// response has been written, and a background sweeper catches leftovers from
// crashed requests.
package scratch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Dir is one request-scoped working directory.
type Dir struct {
	Path string
}

// New creates a workdir under root named <prefix>_<uuid>. An empty root
// falls back to the OS temp dir.
func New(root, prefix string) (*Dir, error) {
	if root == "" {
		root = os.TempDir()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create scratch root: %w", err)
	}
	p := filepath.Join(root, fmt.Sprintf("%s_%s", prefix, uuid.NewString()))
	if err := os.Mkdir(p, 0o755); err != nil {
		return nil, fmt.Errorf("create workdir: %w", err)
	}
	return &Dir{Path: p}, nil
}

// Join returns a path inside the workdir.
func (d *Dir) Join(name string) string { return filepath.Join(d.Path, name) }

// Remove deletes the workdir and everything in it. Safe to call multiple times.
func (d *Dir) Remove() {
	if d == nil || d.Path == "" {
		return
	}
	if err := os.RemoveAll(d.Path); err != nil {
		log.Warn().Err(err).Str("dir", d.Path).Msg("failed to remove workdir")
	}
}

// toolPrefixes are the workdir name prefixes the sweeper recognizes.
var toolPrefixes = []string{"convert_", "merge_", "split_", "sign_", "urls_", "fetch_"}

// Sweep removes recognized workdirs under root older than maxAge.
func Sweep(root string, maxAge time.Duration) {
	if root == "" {
		root = os.TempDir()
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return
	}
	now := time.Now()
	for _, e := range entries {
		if !e.IsDir() || !hasToolPrefix(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) >= maxAge {
			p := filepath.Join(root, e.Name())
			if err := os.RemoveAll(p); err == nil {
				log.Debug().Str("dir", p).Msg("swept stale workdir")
			}
		}
	}
}

// StartSweeper runs Sweep periodically until stop is closed.
func StartSweeper(root string, maxAge, interval time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				Sweep(root, maxAge)
			}
		}
	}()
}

func hasToolPrefix(name string) bool {
	for _, p := range toolPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}
