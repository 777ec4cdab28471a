package plugin

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/v2"
)

// LoadDefaults merges the packaging format defaults into k.
func LoadDefaults(k *koanf.Koanf) error {
	if err := loadYAML(k, DefaultsYAML()); err != nil {
		return fmt.Errorf("failed to load profile defaults: %w", err)
	}
	return nil
}

// LoadBuiltinInto merges the named built-in profile into k.
func LoadBuiltinInto(k *koanf.Koanf, name string) error {
	data, ok := Builtin(name)
	if !ok {
		return fmt.Errorf("unknown profile %q (built-in profiles: %s)", name, strings.Join(BuiltinNames(), ", "))
	}
	if err := loadYAML(k, data); err != nil {
		return fmt.Errorf("failed to load profile %q: %w", name, err)
	}
	return nil
}

// Unmarshal decodes and validates the profile held by k.
func Unmarshal(k *koanf.Koanf) (*Profile, error) {
	var p Profile
	if err := k.Unmarshal("", &p); err != nil {
		return nil, fmt.Errorf("unable to decode profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// LoadBuiltin returns a built-in profile layered over the defaults.
func LoadBuiltin(name string) (*Profile, error) {
	k := koanf.New(".")
	if err := LoadDefaults(k); err != nil {
		return nil, err
	}
	if err := LoadBuiltinInto(k, name); err != nil {
		return nil, err
	}
	return Unmarshal(k)
}

func loadYAML(k *koanf.Koanf, data []byte) error {
	m, err := yaml.Parser().Unmarshal(data)
	if err != nil {
		return err
	}
	return k.Load(confmap.Provider(m, ""), nil)
}
