// Package plugin is the extension point of the audit engine. A Plugin contributes rules,
// project checks, content processors, lifecycle hooks and fixers; a Registry collects them
// and hands the merged view to the scanner, grader and fixer.
package plugin

import (
	"github.com/ajranjith/uiaudit/internal/rules"
)

// ProcessorFunc transforms file content before rules run. Processors are keyed by file
// extension, including the leading dot.
type ProcessorFunc func(path, content string) (string, error)

// Plugin is the compile-time form of an extension. Declarative manifests loaded at runtime
// are converted into this form by the loader.
type Plugin struct {
	Name        string
	Version     string
	Description string
	Rules       []rules.Rule
	Checks      []rules.Check
	Processors  map[string]ProcessorFunc
	Hooks       map[HookName][]HookFunc
	Fixers      map[string]rules.FixFunc
	// Disabled plugins are registered but contribute nothing until enabled.
	Disabled bool
	// Options come from the project configuration and are passed to Init.
	Options map[string]interface{}
	Init    func(options map[string]interface{}) error
	// Source records where a loaded plugin came from, for listings.
	Source string
}

// Info is the read-only description of a registered plugin.
type Info struct {
	Name       string `json:"name"`
	Version    string `json:"version,omitempty"`
	Enabled    bool   `json:"enabled"`
	Rules      int    `json:"rules"`
	Checks     int    `json:"checks"`
	Processors int    `json:"processors"`
	Hooks      int    `json:"hooks"`
	Fixers     int    `json:"fixers"`
	Source     string `json:"source,omitempty"`
}

func (p *Plugin) info(enabled bool) Info {
	hooks := 0
	for _, hs := range p.Hooks {
		hooks += len(hs)
	}
	return Info{
		Name:       p.Name,
		Version:    p.Version,
		Enabled:    enabled,
		Rules:      len(p.Rules),
		Checks:     len(p.Checks),
		Processors: len(p.Processors),
		Hooks:      hooks,
		Fixers:     len(p.Fixers),
		Source:     p.Source,
	}
}
