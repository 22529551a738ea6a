package git

import (
	"context"
	"fmt"
	"strings"
)

// HasChanges reports modified, staged or untracked files in dir, ignoring
// paths under any entry of exclude.
func (r *Repository) HasChanges(ctx context.Context, dir string, exclude []string) (bool, error) {
	out, err := r.git.RunRaw(ctx, dir, "status", "--porcelain=v1", "-z", "--untracked-files=all")
	if err != nil {
		return false, fmt.Errorf("checking status of %s: %w", dir, err)
	}
	return len(filterStatus(parseStatus(out), exclude)) > 0, nil
}

// parseStatus extracts paths from `git status --porcelain=v1 -z` output.
// Entries are NUL terminated and unquoted; a rename or copy is followed by
// its source path, which is skipped.
func parseStatus(out string) []string {
	var paths []string
	entries := strings.Split(out, "\x00")
	for i := 0; i < len(entries); i++ {
		entry := entries[i]
		if len(entry) < 4 {
			continue
		}
		paths = append(paths, entry[3:])
		if entry[0] == 'R' || entry[0] == 'C' {
			i++
		}
	}
	return paths
}

// filterStatus drops paths equal to or below any excluded path.
func filterStatus(paths, exclude []string) []string {
	var kept []string
	for _, p := range paths {
		if !isExcluded(p, exclude) {
			kept = append(kept, p)
		}
	}
	return kept
}

func isExcluded(path string, exclude []string) bool {
	path = strings.TrimSuffix(path, "/")
	for _, ex := range exclude {
		ex = strings.Trim(ex, "/")
		if ex == "" {
			continue
		}
		if path == ex || strings.HasPrefix(path, ex+"/") {
			return true
		}
	}
	return false
}
