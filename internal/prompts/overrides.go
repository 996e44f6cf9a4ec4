package prompts

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Override replaces the system and/or user text of one stage prompt. Empty
// fields keep the built-in text.
type Override struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

type overrideFile struct {
	Prompts map[string]Override `yaml:"prompts"`
}

// LoadOverrides reads a YAML file of the form
//
//	prompts:
//	  reasoning:
//	    user: |
//	      ...
//
// and re-registers each named prompt with a bumped version. Unknown names are
// rejected so typos do not silently fall back to the defaults.
func LoadOverrides(path string) ([]PromptName, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt overrides: %w", err)
	}
	return ApplyOverrides(raw)
}

func ApplyOverrides(raw []byte) ([]PromptName, error) {
	var f overrideFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse prompt overrides: %w", err)
	}
	applied := make([]PromptName, 0, len(f.Prompts))
	for _, name := range Names() {
		o, ok := f.Prompts[string(name)]
		if !ok {
			continue
		}
		_, s, registered := lookup(name)
		if !registered {
			return nil, fmt.Errorf("prompt %s is not registered", name)
		}
		if strings.TrimSpace(o.System) != "" {
			s.System = o.System
		}
		if strings.TrimSpace(o.User) != "" {
			s.User = o.User
		}
		s.Version++
		if err := Register(s); err != nil {
			return nil, err
		}
		applied = append(applied, name)
	}
	if len(applied) != len(f.Prompts) {
		for k := range f.Prompts {
			if !known(PromptName(k)) {
				return applied, fmt.Errorf("unknown prompt in overrides: %s", k)
			}
		}
	}
	return applied, nil
}

func known(name PromptName) bool {
	for _, n := range Names() {
		if n == name {
			return true
		}
	}
	return false
}
