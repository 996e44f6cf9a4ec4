package prompts

import (
	"fmt"
	"strings"
	"sync"
)

// Prompt is a rendered stage prompt ready for the completion client.
type Prompt struct {
	Name       string
	Version    int
	SchemaName string
	Schema     map[string]any
	System     string
	User       string
}

var (
	mu       sync.RWMutex
	registry = map[PromptName]Template{}
	specs    = map[PromptName]Spec{}
)

// Register compiles s and makes it available to Build, replacing any prompt
// already registered under the same name.
func Register(s Spec) error {
	t, err := MakeTemplate(s)
	if err != nil {
		return err
	}
	mu.Lock()
	defer mu.Unlock()
	registry[s.Name] = t
	specs[s.Name] = s
	return nil
}

func lookup(name PromptName) (Template, Spec, bool) {
	mu.RLock()
	defer mu.RUnlock()
	t, ok := registry[name]
	return t, specs[name], ok
}

// Build renders the named prompt for in.
func Build(name PromptName, in Input) (Prompt, error) {
	t, _, ok := lookup(name)
	if !ok {
		return Prompt{}, fmt.Errorf("unknown prompt: %s", string(name))
	}
	system, err := t.System(in)
	if err != nil {
		return Prompt{}, err
	}
	user, err := t.User(in)
	if err != nil {
		return Prompt{}, err
	}
	p := Prompt{
		Name:       string(t.Name),
		Version:    t.Version,
		SchemaName: strings.TrimSpace(t.SchemaName),
		System:     system,
		User:       user,
	}
	if t.Schema != nil {
		p.Schema = t.Schema()
	}
	return p, nil
}
