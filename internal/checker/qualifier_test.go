package checker

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wallacegibbon/plugincheck/internal/frontmatter"
)

func TestStripQualifier(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Bash(git *)", "Bash"},
		{"Bash", "Bash"},
		{"  Read  ", "Read"},
		{"Bash(git *) ", "Bash"},
		{"WebFetch(domain:example.com)", "WebFetch"},
		{"Bash(echo $(date))", "Bash"},
		{"Bash(a) x (b)", "Bash"},
		{"Bash(unclosed", "Bash(unclosed"},
		{"Bash)(", "Bash)("},
		{"", ""},
	}

	for _, tt := range tests {
		if got := StripQualifier(tt.in); got != tt.want {
			t.Errorf("StripQualifier(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTokens(t *testing.T) {
	assert.Equal(t, []string{"Read", "Bash(git *)"}, Tokens("Read,  Bash(git *) "))
	assert.Equal(t, []string{"Read", "3"}, Tokens([]any{"Read", 3}))
	assert.Equal(t, []string{"None"}, Tokens(nil))
	assert.Equal(t, []string{"True"}, Tokens(true))
	assert.Equal(t, []string{"Read", ""}, Tokens("Read,"))
}

func TestCheckQualifierSyntax(t *testing.T) {
	tests := []struct {
		name  string
		value any
		pass  bool
	}{
		{"no qualifiers", "Read, Write", true},
		{"glob command", "Bash(git *), Bash(curl *)", true},
		{"domain qualifier", []any{"WebFetch(domain:example.com)"}, true},
		{"empty qualifier", "Bash()", true},
		{"unterminated quote", `Bash(git commit -m "oops)`, false},
		{"dangling pipe", "Bash(ls |)", false},
		{"unbalanced", "Bash(git *", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := CheckQualifierSyntax(frontmatter.Document{"allowed-tools": tt.value}, "allowed-tools")
			assert.Equal(t, tt.pass, res.Passed(), res.Message)
			if !tt.pass {
				assert.Equal(t, DisallowedValue, res.Category)
			}
		})
	}

	assert.True(t, CheckQualifierSyntax(frontmatter.Document{}, "allowed-tools").Passed())
}
