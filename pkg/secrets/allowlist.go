package secrets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/BurntSushi/toml"
)

// ProjectAllowlistFile is the allowlist read from the repository root.
const ProjectAllowlistFile = ".gitleaks.toml"

// Allowlist holds patterns excluded from the secret gate.
type Allowlist struct {
	Paths   []string // Regexes matched against file paths in the patch
	Regexes []string // Regexes matched against secret content
}

// Empty reports whether the allowlist has no patterns.
func (a *Allowlist) Empty() bool {
	return a == nil || (len(a.Paths) == 0 && len(a.Regexes) == 0)
}

// LoadAllowlists unions the repository's .gitleaks.toml with the user's
// allowlist file. Either may be empty or missing.
func LoadAllowlists(repoRoot, userFile string) (*Allowlist, error) {
	var files []string
	if repoRoot != "" {
		files = append(files, filepath.Join(repoRoot, ProjectAllowlistFile))
	}
	if userFile != "" {
		files = append(files, userFile)
	}

	merged := &Allowlist{Paths: []string{}, Regexes: []string{}}
	for _, file := range files {
		list, err := loadTOML(file)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		merged.Paths = append(merged.Paths, list.Paths...)
		merged.Regexes = append(merged.Regexes, list.Regexes...)
	}
	return merged, nil
}

func loadTOML(path string) (*Allowlist, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	var doc struct {
		Allowlist Allowlist `toml:"allowlist"`
	}
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidTOML, path, err)
	}

	for kind, patterns := range map[string][]string{"path": doc.Allowlist.Paths, "content": doc.Allowlist.Regexes} {
		for _, pattern := range patterns {
			if _, err := regexp.Compile(pattern); err != nil {
				return nil, fmt.Errorf("%w: %s pattern %q in %s: %v", ErrInvalidRegex, kind, pattern, path, err)
			}
		}
	}
	return &doc.Allowlist, nil
}
