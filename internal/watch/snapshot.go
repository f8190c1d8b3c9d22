package watch

import (
	"io/fs"
	"log"
	"maps"
	"path/filepath"
	"strings"
	"time"
)

// DefaultIgnore holds the suffixes skipped when no ignore list is configured.
var DefaultIgnore = []string{".pyc"}

// Snapshot maps a file path to its last modification time.
type Snapshot map[string]time.Time

// Take walks every root recursively and records the modification time of each
// file whose name does not end with one of the ignored suffixes.
// Roots that are missing or unreadable contribute nothing; the walk of the
// remaining roots continues.
func Take(roots []string, ignore []string) Snapshot {
	out := make(Snapshot)
	for _, root := range roots {
		walkRoot(out, root, ignore)
	}
	return out
}

// TakeEach returns one snapshot per root, in root order.
func TakeEach(roots []string, ignore []string) []Snapshot {
	out := make([]Snapshot, len(roots))
	for i, root := range roots {
		out[i] = make(Snapshot)
		walkRoot(out[i], root, ignore)
	}
	return out
}

func walkRoot(out Snapshot, root string, ignore []string) {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries are skipped, not fatal
			if d != nil && d.IsDir() && path != root {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || Ignored(d.Name(), ignore) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			// File vanished between readdir and stat
			return nil
		}
		out[path] = info.ModTime()
		return nil
	})
	if err != nil {
		log.Printf("DEBUG: walking %s: %v", root, err)
	}
}

// Ignored reports whether name ends with any of the given suffixes.
func Ignored(name string, suffixes []string) bool {
	for _, s := range suffixes {
		if s != "" && strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}

// Changed reports whether two snapshots differ in keys or timestamps.
func Changed(a, b Snapshot) bool {
	return !maps.EqualFunc(a, b, time.Time.Equal)
}

// AnyChanged compares snapshots element-wise and reports whether any root
// differs. Slices of different length always count as a change.
func AnyChanged(prev, next []Snapshot) bool {
	if len(prev) != len(next) {
		return true
	}
	for i := range prev {
		if Changed(prev[i], next[i]) {
			return true
		}
	}
	return false
}
