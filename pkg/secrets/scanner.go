package secrets

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	gitleaksConfig "github.com/zricethezav/gitleaks/v8/config"
	"github.com/zricethezav/gitleaks/v8/detect"
	gitleaksRegexp "github.com/zricethezav/gitleaks/v8/regexp"
)

// previewLen is how much of a secret is shown in reports.
const previewLen = 4

// Finding is a secret introduced by a patch. The secret itself is never
// kept, only a short preview.
type Finding struct {
	RuleID   string // Gitleaks rule ID (e.g., "github-pat")
	RuleDesc string // Human-readable description
	File     string // Path in the new tree
	Line     int    // Line number in the new file, 0 if unknown
	Preview  string // First characters of the secret
}

// String formats the finding for reports.
func (f Finding) String() string {
	loc := f.File
	if f.Line > 0 {
		loc = fmt.Sprintf("%s:%d", f.File, f.Line)
	}
	return fmt.Sprintf("%s (%s) at %s: %s...", f.RuleID, f.RuleDesc, loc, f.Preview)
}

// FindingsError is returned when a commit's patch introduces secrets.
type FindingsError struct {
	Findings []Finding
}

// Error implements the error interface.
func (e *FindingsError) Error() string {
	return fmt.Sprintf("%d secret(s) introduced: %s", len(e.Findings), strings.Join(e.RuleIDs(), ", "))
}

// Unwrap returns ErrSecretsFound.
func (e *FindingsError) Unwrap() error {
	return ErrSecretsFound
}

// RuleIDs returns the distinct rule IDs, sorted.
func (e *FindingsError) RuleIDs() []string {
	seen := make(map[string]struct{}, len(e.Findings))
	var ids []string
	for _, f := range e.Findings {
		if _, ok := seen[f.RuleID]; !ok {
			seen[f.RuleID] = struct{}{}
			ids = append(ids, f.RuleID)
		}
	}
	sort.Strings(ids)
	return ids
}

// Scanner detects secrets in added lines of unified diffs. The Gitleaks
// detector is built once and reused for every patch.
type Scanner struct {
	detector *detect.Detector
	paths    []*regexp.Regexp
}

// NewScanner creates a scanner with the default Gitleaks rules plus the
// given allowlist (nil to skip).
func NewScanner(allowlist *Allowlist) (*Scanner, error) {
	detector, err := detect.NewDetectorDefaultConfig()
	if err != nil {
		return nil, fmt.Errorf("creating gitleaks detector: %w", err)
	}

	s := &Scanner{detector: detector}
	if allowlist != nil {
		if len(allowlist.Regexes) > 0 {
			applyAllowlist(&detector.Config, allowlist)
		}
		for _, pattern := range allowlist.Paths {
			re, err := regexp.Compile(pattern)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrInvalidRegex, pattern, err)
			}
			s.paths = append(s.paths, re)
		}
	}
	return s, nil
}

// ScanPatch scans the lines a patch adds. Removed and context lines are
// ignored so pre-existing secrets do not block unrelated commits.
// Returns *FindingsError when anything is found.
func (s *Scanner) ScanPatch(patch string) error {
	var findings []Finding

	for _, file := range parseAddedLines(patch) {
		if s.pathAllowed(file.path) {
			continue
		}

		texts := make([]string, len(file.lines))
		for i, l := range file.lines {
			texts[i] = l.text
		}

		for _, f := range s.detector.DetectString(strings.Join(texts, "\n")) {
			findings = append(findings, Finding{
				RuleID:   f.RuleID,
				RuleDesc: f.Description,
				File:     file.path,
				Line:     file.lineOf(f.Secret),
				Preview:  extractPreview(f.Secret, previewLen),
			})
		}
	}

	if len(findings) > 0 {
		return &FindingsError{Findings: findings}
	}
	return nil
}

func (s *Scanner) pathAllowed(path string) bool {
	for _, re := range s.paths {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

// applyAllowlist merges allowlist patterns into Gitleaks config.
// Patterns are validated when the allowlist is loaded.
func applyAllowlist(cfg *gitleaksConfig.Config, allowlist *Allowlist) {
	globalAllowlist := &gitleaksConfig.Allowlist{
		Description: "safepush user/project allowlist",
	}

	for _, pattern := range allowlist.Regexes {
		re, err := regexp.Compile(pattern)
		if err != nil {
			continue
		}
		globalAllowlist.Regexes = append(globalAllowlist.Regexes, (*gitleaksRegexp.Regexp)(re))
	}

	globalAllowlist.StopWords = append(globalAllowlist.StopWords, allowlist.Regexes...)

	cfg.Allowlists = append(cfg.Allowlists, globalAllowlist)
}

// extractPreview returns the first n characters of s.
func extractPreview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
