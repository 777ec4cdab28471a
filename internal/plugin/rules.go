package plugin

import (
	"path"
	"strings"

	"github.com/wallacegibbon/plugincheck/internal/checker"
)

// Report sections, in the order rules are built.
const (
	GroupMetadata = "metadata"
	GroupSkills   = "skills"
	GroupCommands = "commands"
	GroupAgents   = "agents"
	GroupHygiene  = "hygiene"
)

const (
	fieldTools = "allowed-tools"
	fieldModel = "model"
)

// BuildRules expands p into the full rule set. Targets are relative to the
// plugin root.
func BuildRules(p *Profile) []checker.Rule {
	var rules []checker.Rule
	add := func(group, id string, kind checker.Kind, target string, params checker.Params) {
		rules = append(rules, checker.Rule{
			ID:     id,
			Group:  group,
			Kind:   kind,
			Target: target,
			Params: params,
		})
	}

	meta := p.Metadata.Path
	add(GroupMetadata, "metadata/exists", checker.KindFileExists, meta, checker.Params{})
	add(GroupMetadata, "metadata/required", checker.KindFrontmatterHasKeys, meta,
		checker.Params{Keys: p.Metadata.Required})
	add(GroupMetadata, "metadata/name", checker.KindJSONFieldEquals, meta,
		checker.Params{Field: "name", Expected: p.Name})
	if len(p.Metadata.Allowed) > 0 {
		add(GroupMetadata, "metadata/extra-keys", checker.KindNoExtraKeys, meta,
			checker.Params{Allowed: p.Metadata.Allowed})
	}

	for _, name := range p.Skills.Names {
		doc := p.Skills.Path(name)
		id := "skills/" + name
		add(GroupSkills, id+"/dir", checker.KindDirExists, path.Join(p.Skills.Dir, name), checker.Params{})
		add(GroupSkills, id+"/keys", checker.KindFrontmatterHasKeys, doc,
			checker.Params{Keys: p.Skills.Required})
		add(GroupSkills, id+"/tools", checker.KindFieldInSet, doc,
			checker.Params{Field: fieldTools, Allowed: p.Tools})
		add(GroupSkills, id+"/qualifiers", checker.KindQualifierSyntax, doc,
			checker.Params{Field: fieldTools})
		add(GroupSkills, id+"/name", checker.KindNameMatchesIdentifier, doc,
			checker.Params{Expected: name})
	}

	if len(p.Commands.Names) > 0 {
		add(GroupCommands, "commands/dir", checker.KindDirExists, p.Commands.Dir, checker.Params{})
	}
	for _, name := range p.Commands.Names {
		doc := p.Commands.Path(name)
		id := "commands/" + strings.TrimSuffix(name, ".md")
		add(GroupCommands, id+"/exists", checker.KindFileExists, doc, checker.Params{})
		add(GroupCommands, id+"/keys", checker.KindFrontmatterHasKeys, doc,
			checker.Params{Keys: p.Commands.Required})
	}

	for _, name := range p.Agents.Names {
		doc := p.Agents.Path(name)
		id := "agents/" + strings.TrimSuffix(name, ".md")
		add(GroupAgents, id+"/exists", checker.KindFileExists, doc, checker.Params{})
		add(GroupAgents, id+"/keys", checker.KindFrontmatterHasKeys, doc,
			checker.Params{Keys: p.Agents.Required})
		if len(p.Models) > 0 {
			add(GroupAgents, id+"/model", checker.KindFieldOneOf, doc,
				checker.Params{Field: fieldModel, Allowed: p.Models})
		}
	}

	if p.Hygiene.Enabled {
		add(GroupHygiene, "hygiene/forbidden-paths", checker.KindNoForbiddenPaths, ".",
			checker.Params{Patterns: p.Hygiene.Patterns, AllowedHidden: p.Hygiene.AllowedHidden})
	}

	return rules
}
