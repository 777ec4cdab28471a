// Package plugin describes the expected layout of a plugin directory and
// turns that description into checker rules.
package plugin

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

//go:embed profiles/*.yaml
var profileFS embed.FS

const defaultsFile = "defaults"

// DefaultProfile is the profile used when none is selected.
const DefaultProfile = "youtube-strategy"

// Profile is the declarative description of one plugin.
type Profile struct {
	Name     string       `koanf:"name" json:"name"`
	Root     string       `koanf:"root" json:"root"`
	Metadata MetadataSpec `koanf:"metadata" json:"metadata"`
	Skills   ArtifactSpec `koanf:"skills" json:"skills"`
	Commands ArtifactSpec `koanf:"commands" json:"commands"`
	Agents   ArtifactSpec `koanf:"agents" json:"agents"`
	Tools    []string     `koanf:"tools" json:"tools"`
	Models   []string     `koanf:"models" json:"models"`
	Hygiene  HygieneSpec  `koanf:"hygiene" json:"hygiene"`
}

// MetadataSpec describes the JSON metadata file.
type MetadataSpec struct {
	Path     string   `koanf:"path" json:"path"`
	Required []string `koanf:"required" json:"required"`
	Allowed  []string `koanf:"allowed" json:"allowed"`
}

// ArtifactSpec describes one class of Markdown artifacts. When File is set
// every name is a directory holding that file (skills); otherwise every
// name is a file directly under Dir.
type ArtifactSpec struct {
	Dir      string   `koanf:"dir" json:"dir"`
	File     string   `koanf:"file" json:"file,omitempty"`
	Names    []string `koanf:"names" json:"names"`
	Required []string `koanf:"required" json:"required"`
}

// Path returns the document path of the named artifact relative to the
// plugin root.
func (a ArtifactSpec) Path(name string) string {
	if a.File != "" {
		return path.Join(a.Dir, name, a.File)
	}
	return path.Join(a.Dir, name)
}

// HygieneSpec configures the forbidden path scan.
type HygieneSpec struct {
	Enabled       bool     `koanf:"enabled" json:"enabled"`
	Patterns      []string `koanf:"patterns" json:"patterns"`
	AllowedHidden []string `koanf:"allowed_hidden" json:"allowed_hidden"`
}

// Validate reports profile errors that would produce an unusable rule set.
func (p *Profile) Validate() error {
	var problems []string

	if p.Name == "" {
		problems = append(problems, "name is required")
	}
	if p.Metadata.Path == "" {
		problems = append(problems, "metadata.path is required")
	}

	for _, a := range []struct {
		key  string
		spec ArtifactSpec
	}{
		{"skills", p.Skills},
		{"commands", p.Commands},
		{"agents", p.Agents},
	} {
		if len(a.spec.Names) > 0 && a.spec.Dir == "" {
			problems = append(problems, a.key+".dir is required when names are listed")
		}
		if dup := firstDuplicate(a.spec.Names); dup != "" {
			problems = append(problems, fmt.Sprintf("%s.names lists '%s' twice", a.key, dup))
		}
		for _, n := range a.spec.Names {
			if n == "" || strings.ContainsAny(n, `/\`) {
				problems = append(problems, fmt.Sprintf("%s.names has invalid entry '%s'", a.key, n))
			}
		}
	}

	if len(p.Skills.Names) > 0 && len(p.Tools) == 0 {
		problems = append(problems, "tools must not be empty when skills are listed")
	}

	if p.Hygiene.Enabled {
		for _, pat := range p.Hygiene.Patterns {
			if !doublestar.ValidatePattern(pat) {
				problems = append(problems, fmt.Sprintf("hygiene pattern '%s' is invalid", pat))
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid profile %q: %s", p.Name, strings.Join(problems, "; "))
	}
	return nil
}

func firstDuplicate(values []string) string {
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		if seen[v] {
			return v
		}
		seen[v] = true
	}
	return ""
}

// DefaultsYAML returns the packaging format defaults every profile is
// layered on.
func DefaultsYAML() []byte {
	data, err := profileFS.ReadFile("profiles/" + defaultsFile + ".yaml")
	if err != nil {
		panic(err)
	}
	return data
}

// Builtin returns the YAML of a built-in profile.
func Builtin(name string) ([]byte, bool) {
	if name == defaultsFile {
		return nil, false
	}
	data, err := profileFS.ReadFile("profiles/" + name + ".yaml")
	if err != nil {
		return nil, false
	}
	return data, true
}

// BuiltinNames lists the built-in profiles.
func BuiltinNames() []string {
	entries, _ := fs.ReadDir(profileFS, "profiles")
	var names []string
	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), ".yaml")
		if name != defaultsFile {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
