package checker

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

const maxListedViolations = 10

// CheckNoForbiddenPaths walks root and fails when any entry is hidden
// (unless listed in allowedHidden) or matches one of the doublestar
// patterns. Matching is case-insensitive and applied to the slash-separated
// path relative to root. Symlinks are reported but never followed.
func CheckNoForbiddenPaths(root string, patterns, allowedHidden []string) CheckResult {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return failed(Internal, "invalid forbidden path pattern '%s'", p)
		}
	}
	hidden := toSet(allowedHidden)

	var violations []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		reason := forbiddenReason(rel, d.Name(), patterns, hidden)
		if reason == "" {
			return nil
		}
		violations = append(violations, fmt.Sprintf("%s (%s)", rel, reason))
		if d.IsDir() {
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return failed(MissingArtifact, "directory not found")
		}
		return failed(Internal, "cannot scan directory: %v", err)
	}

	if len(violations) == 0 {
		return passed()
	}

	sort.Strings(violations)
	listed := violations
	if len(listed) > maxListedViolations {
		listed = listed[:maxListedViolations]
	}
	msg := "forbidden " + plural("path", len(violations)) + ": " + strings.Join(listed, ", ")
	if extra := len(violations) - len(listed); extra > 0 {
		msg += fmt.Sprintf(" and %d more", extra)
	}
	return CheckResult{Status: Fail, Category: ForbiddenPath, Message: msg}
}

func forbiddenReason(rel, name string, patterns []string, allowedHidden map[string]bool) string {
	if strings.HasPrefix(name, ".") && !allowedHidden[name] {
		return "hidden"
	}
	lower := strings.ToLower(rel)
	for _, p := range patterns {
		if ok, _ := doublestar.Match(strings.ToLower(p), lower); ok {
			return "matches " + p
		}
	}
	return ""
}
