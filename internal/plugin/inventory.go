package plugin

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Inventory counts the artifacts actually present under root, regardless
// of which names the profile expects.
type Inventory struct {
	Skills   int `json:"skills"`
	Commands int `json:"commands"`
	Agents   int `json:"agents"`
}

// Map returns the counts keyed by artifact class.
func (inv Inventory) Map() map[string]int {
	return map[string]int{
		GroupSkills:   inv.Skills,
		GroupCommands: inv.Commands,
		GroupAgents:   inv.Agents,
	}
}

// TakeInventory scans root using the directory layout of p. Missing
// directories count as zero.
func TakeInventory(root string, p *Profile) (Inventory, error) {
	var inv Inventory
	var err error

	if p.Skills.Dir != "" {
		if inv.Skills, err = countSkills(filepath.Join(root, p.Skills.Dir), p.Skills.File); err != nil {
			return inv, err
		}
	}
	if p.Commands.Dir != "" {
		if inv.Commands, err = countMarkdown(filepath.Join(root, p.Commands.Dir)); err != nil {
			return inv, err
		}
	}
	if p.Agents.Dir != "" {
		if inv.Agents, err = countMarkdown(filepath.Join(root, p.Agents.Dir)); err != nil {
			return inv, err
		}
	}
	return inv, nil
}

// countSkills counts subdirectories of dir that hold file.
func countSkills(dir, file string) (int, error) {
	entries, err := readDir(dir)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(dir, entry.Name(), file)); err == nil {
			n++
		}
	}
	return n, nil
}

func countMarkdown(dir string) (int, error) {
	entries, err := readDir(dir)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".md") {
			n++
		}
	}
	return n, nil
}

func readDir(dir string) ([]os.DirEntry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		// A missing directory is reported by the rules, not here.
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return entries, nil
}
