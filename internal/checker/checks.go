package checker

import (
	"errors"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/wallacegibbon/plugincheck/internal/frontmatter"
)

// CheckFileExists passes when path exists and is not a directory.
func CheckFileExists(path string) CheckResult {
	info, err := os.Stat(path)
	if err != nil {
		return statFailure(err, "file")
	}
	if info.IsDir() {
		return failed(MissingArtifact, "expected a file, found a directory")
	}
	return passed()
}

// CheckDirExists passes when path exists and is a directory.
func CheckDirExists(path string) CheckResult {
	info, err := os.Stat(path)
	if err != nil {
		return statFailure(err, "directory")
	}
	if !info.IsDir() {
		return failed(MissingArtifact, "expected a directory, found a file")
	}
	return passed()
}

func statFailure(err error, what string) CheckResult {
	if errors.Is(err, fs.ErrNotExist) {
		return failed(MissingArtifact, "%s not found", what)
	}
	return failed(Internal, "cannot stat %s: %v", what, err)
}

// CheckRequiredKeys passes when every key is present. Null or empty values
// count as present.
func CheckRequiredKeys(doc frontmatter.Document, keys []string) CheckResult {
	var missing []string
	for _, k := range keys {
		if !doc.Has(k) {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return failed(MissingRequiredKey, "missing required %s %s", plural("key", len(missing)), quoteList(missing))
	}
	return passed()
}

// CheckFieldAllowedSet passes when field is absent or every token of its
// value, once stripped of a parenthesized qualifier, is in allowed.
func CheckFieldAllowedSet(doc frontmatter.Document, field string, allowed []string) CheckResult {
	v, ok := doc[field]
	if !ok {
		return passed()
	}

	set := toSet(allowed)
	for _, tok := range Tokens(v) {
		if !set[StripQualifier(tok)] {
			return failed(DisallowedValue, "invalid %s value '%s'; allowed: %s", field, tok, strings.Join(allowed, ", "))
		}
	}
	return passed()
}

// CheckFieldOneOf passes when field is absent or null, or when its whole
// value is one of allowed. Lists and comma separated values are not split.
func CheckFieldOneOf(doc frontmatter.Document, field string, allowed []string) CheckResult {
	v := doc[field]
	switch v.(type) {
	case nil:
		return passed()
	case []any, map[string]any:
		return failed(DisallowedValue, "invalid %s value: expected a single value, one of %s", field, strings.Join(allowed, ", "))
	}

	val := frontmatter.Stringify(v)
	if !toSet(allowed)[val] {
		return failed(DisallowedValue, "invalid %s value '%s'; allowed: %s", field, val, strings.Join(allowed, ", "))
	}
	return passed()
}

// CheckNoExtraKeys passes when doc has no key outside allowed.
func CheckNoExtraKeys(doc frontmatter.Document, allowed []string) CheckResult {
	set := toSet(allowed)
	var extra []string
	for k := range doc {
		if !set[k] {
			extra = append(extra, k)
		}
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		return failed(UnexpectedKey, "unexpected %s %s", plural("key", len(extra)), quoteList(extra))
	}
	return passed()
}

// CheckNameMatchesIdentifier passes when doc["name"] equals expected.
func CheckNameMatchesIdentifier(doc frontmatter.Document, expected string) CheckResult {
	name, ok := doc.String("name")
	if !ok {
		return failed(MissingRequiredKey, "missing required key 'name'")
	}
	if name != expected {
		return failed(NameMismatch, "name '%s' does not match '%s'", name, expected)
	}
	return passed()
}

// CheckJSONFieldEquals passes when doc[field] formats to expected.
func CheckJSONFieldEquals(doc frontmatter.Document, field, expected string) CheckResult {
	got, ok := doc.String(field)
	if !ok {
		return failed(MissingRequiredKey, "missing required key '%s'", field)
	}
	if got != expected {
		cat := DisallowedValue
		if field == "name" {
			cat = NameMismatch
		}
		return failed(cat, "expected %s '%s', got '%s'", field, expected, got)
	}
	return passed()
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

func quoteList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = "'" + v + "'"
	}
	return strings.Join(quoted, ", ")
}

func plural(word string, n int) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
