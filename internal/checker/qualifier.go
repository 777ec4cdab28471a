package checker

import (
	"strings"

	"mvdan.cc/sh/v3/syntax"

	"github.com/wallacegibbon/plugincheck/internal/frontmatter"
)

// StripQualifier removes a parenthesized qualifier from a tool token:
// "Bash(git *)" becomes "Bash". Everything from the first '(' to the last
// ')' is dropped and the remainder trimmed.
func StripQualifier(token string) string {
	open := strings.Index(token, "(")
	end := strings.LastIndex(token, ")")
	if open < 0 || end < open {
		return strings.TrimSpace(token)
	}
	return strings.TrimSpace(token[:open] + token[end+1:])
}

// Qualifier returns the text between the first '(' and the last ')'.
func Qualifier(token string) (string, bool) {
	open := strings.Index(token, "(")
	end := strings.LastIndex(token, ")")
	if open < 0 || end < open {
		return "", false
	}
	return token[open+1 : end], true
}

// Tokens normalizes a field value into a token list. Lists are used as-is,
// strings are split on commas and trimmed, and any other value becomes a
// single token.
func Tokens(v any) []string {
	switch val := v.(type) {
	case []any:
		out := make([]string, len(val))
		for i, item := range val {
			out[i] = frontmatter.Stringify(item)
		}
		return out
	case []string:
		return append([]string(nil), val...)
	case string:
		parts := strings.Split(val, ",")
		for i, p := range parts {
			parts[i] = strings.TrimSpace(p)
		}
		return parts
	default:
		return []string{frontmatter.Stringify(v)}
	}
}

// CheckQualifierSyntax passes when every qualifier in field parses as a
// POSIX shell command pattern. An absent field passes.
func CheckQualifierSyntax(doc frontmatter.Document, field string) CheckResult {
	v, ok := doc[field]
	if !ok {
		return passed()
	}

	parser := syntax.NewParser(syntax.Variant(syntax.LangPOSIX))
	for _, tok := range Tokens(v) {
		if strings.Count(tok, "(") != strings.Count(tok, ")") {
			return failed(DisallowedValue, "unbalanced parentheses in %s value '%s'", field, tok)
		}
		q, ok := Qualifier(tok)
		if !ok || strings.TrimSpace(q) == "" {
			continue
		}
		if _, err := parser.Parse(strings.NewReader(q), ""); err != nil {
			return failed(DisallowedValue, "invalid qualifier in %s value '%s': %v", field, tok, err)
		}
	}
	return passed()
}
