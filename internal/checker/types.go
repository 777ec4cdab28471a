// Package checker evaluates declarative conformance rules against a plugin
// directory and collects the outcome into a Report.
package checker

import (
	"fmt"
	"strings"
)

// Kind selects the assertion a Rule makes about its target.
type Kind string

const (
	KindFileExists            Kind = "file-exists"
	KindDirExists             Kind = "dir-exists"
	KindFrontmatterHasKeys    Kind = "frontmatter-has-keys"
	KindFieldInSet            Kind = "field-in-set"
	KindFieldOneOf            Kind = "field-one-of"
	KindNoExtraKeys           Kind = "no-extra-keys"
	KindNameMatchesIdentifier Kind = "name-matches-identifier"
	KindJSONFieldEquals       Kind = "json-field-equals"
	KindQualifierSyntax       Kind = "qualifier-syntax"
	KindNoForbiddenPaths      Kind = "no-forbidden-paths"
)

// Params holds the kind-specific arguments of a Rule.
type Params struct {
	Keys          []string `json:"keys,omitempty"`
	Field         string   `json:"field,omitempty"`
	Allowed       []string `json:"allowed,omitempty"`
	Expected      string   `json:"expected,omitempty"`
	Patterns      []string `json:"patterns,omitempty"`
	AllowedHidden []string `json:"allowed_hidden,omitempty"`
}

// Rule is a single checkable assertion about one path under the root.
// Group names the report section the rule belongs to ("metadata",
// "skills", ...).
type Rule struct {
	ID     string `json:"id"`
	Group  string `json:"group,omitempty"`
	Kind   Kind   `json:"kind"`
	Target string `json:"target"`
	Params Params `json:"params"`
}

// Status is the outcome of a rule.
type Status int

const (
	Pass Status = iota
	Fail
)

func (s Status) String() string {
	if s == Pass {
		return "pass"
	}
	return "fail"
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "pass":
		*s = Pass
	case "fail":
		*s = Fail
	default:
		return fmt.Errorf("unknown status %q", b)
	}
	return nil
}

// Category classifies why a rule failed.
type Category string

const (
	MissingArtifact      Category = "missing-artifact"
	MissingFrontmatter   Category = "missing-frontmatter"
	MalformedFrontmatter Category = "malformed-frontmatter"
	MalformedMetadata    Category = "malformed-metadata"
	MissingRequiredKey   Category = "missing-required-key"
	DisallowedValue      Category = "disallowed-value"
	UnexpectedKey        Category = "unexpected-key"
	NameMismatch         Category = "name-mismatch"
	ForbiddenPath        Category = "forbidden-path"
	Internal             Category = "internal"
)

// CheckResult is the outcome of evaluating one Rule.
type CheckResult struct {
	RuleID   string   `json:"rule_id"`
	Group    string   `json:"group,omitempty"`
	Kind     Kind     `json:"kind"`
	Target   string   `json:"target"`
	Status   Status   `json:"status"`
	Category Category `json:"category,omitempty"`
	Message  string   `json:"message,omitempty"`
}

// Passed reports whether the result is a Pass.
func (r CheckResult) Passed() bool {
	return r.Status == Pass
}

func passed() CheckResult {
	return CheckResult{Status: Pass}
}

func failed(cat Category, format string, args ...any) CheckResult {
	return CheckResult{
		Status:   Fail,
		Category: cat,
		Message:  fmt.Sprintf(format, args...),
	}
}

// Report holds one result per rule, in rule order.
type Report struct {
	Plugin    string         `json:"plugin,omitempty"`
	Root      string         `json:"root"`
	Results   []CheckResult  `json:"results"`
	Passed    int            `json:"passed"`
	Failed    int            `json:"failed"`
	Inventory map[string]int `json:"inventory,omitempty"`
}

// NewReport builds a Report and its counts from results.
func NewReport(root string, results []CheckResult) *Report {
	r := &Report{Root: root, Results: results}
	for _, res := range results {
		if res.Passed() {
			r.Passed++
		} else {
			r.Failed++
		}
	}
	return r
}

// OK reports whether every rule passed.
func (r *Report) OK() bool {
	return r.Failed == 0
}

// Failures returns the failing results in rule order.
func (r *Report) Failures() []CheckResult {
	var out []CheckResult
	for _, res := range r.Results {
		if !res.Passed() {
			out = append(out, res)
		}
	}
	return out
}

// Result returns the result for a rule ID.
func (r *Report) Result(id string) (CheckResult, bool) {
	for _, res := range r.Results {
		if res.RuleID == id {
			return res, true
		}
	}
	return CheckResult{}, false
}
