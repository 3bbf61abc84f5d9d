// Package snapshot takes timestamped inventories of markdown spec files
// so the engine can tell which specs an interactive assistant session
// created or modified. Only files directly inside the inspected
// directories count; subdirectories are not walked.
package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Snapshot is a capture-time inventory: the wall-clock capture instant
// plus each markdown file's canonical path and modification time.
type Snapshot struct {
	TakenAt time.Time
	Dirs    []string
	Files   map[string]time.Time
}

// Capture inventories every .md file directly inside dirs. Symlinks
// resolve to their targets so the same file under two paths appears
// once. Missing directories are skipped.
func Capture(dirs ...string) (*Snapshot, error) {
	files, err := scan(dirs)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		TakenAt: time.Now(),
		Dirs:    dirs,
		Files:   files,
	}, nil
}

// Detect re-scans the captured directories and returns the paths that
// are new since capture, sorted lexicographically. A path qualifies if
// it was absent at capture, or its mtime is both strictly after the
// capture instant and different from the captured mtime.
func (s *Snapshot) Detect() ([]string, error) {
	current, err := scan(s.Dirs)
	if err != nil {
		return nil, err
	}

	var changed []string
	for path, mtime := range current {
		prev, existed := s.Files[path]
		if !existed {
			changed = append(changed, path)
			continue
		}
		if mtime.After(s.TakenAt) && !mtime.Equal(prev) {
			changed = append(changed, path)
		}
	}
	sort.Strings(changed)
	return changed, nil
}

// scan builds the canonical-path → mtime mapping for dirs.
func scan(dirs []string) (map[string]time.Time, error) {
	files := make(map[string]time.Time)
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", dir, err)
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".md") {
				continue
			}
			path := filepath.Join(dir, e.Name())
			canonical, err := filepath.EvalSymlinks(path)
			if err != nil {
				// Dangling symlink; skip.
				continue
			}
			info, err := os.Stat(canonical)
			if err != nil || info.IsDir() {
				continue
			}
			files[canonical] = info.ModTime()
		}
	}
	return files, nil
}
