package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/ajranjith/uiaudit/internal/auditerr"
	"github.com/ajranjith/uiaudit/internal/logging"
	"github.com/ajranjith/uiaudit/internal/rules"
)

type entry struct {
	plugin  Plugin
	enabled bool
}

// Registry holds registered plugins in registration order. It is safe for concurrent use;
// lookups take a read lock and registration takes the write lock.
type Registry struct {
	mu      sync.RWMutex
	entries []*entry
	log     *slog.Logger
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{log: logging.OrDiscard(log)}
}

// Register validates p, runs its Init and admits it. A plugin with the same name replaces
// the earlier one in place. Rule IDs already provided by another plugin are overwritten with
// a warning.
func (r *Registry) Register(p Plugin) error {
	if err := Validate(p); err != nil {
		return err
	}
	if p.Init != nil {
		opts := p.Options
		if err := auditerr.SafeCall(func() error { return p.Init(opts) }); err != nil {
			return auditerr.Plugin("init", err).With("plugin", p.Name)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	owners := map[string]string{}
	for _, e := range r.entries {
		if e.plugin.Name == p.Name {
			continue
		}
		for _, rule := range e.plugin.Rules {
			owners[rule.ID] = e.plugin.Name
		}
	}
	for _, rule := range p.Rules {
		if owner, ok := owners[rule.ID]; ok {
			r.log.Warn("rule overwritten", "rule", rule.ID, "previous", owner, "plugin", p.Name)
		}
	}
	p.Rules = append([]rules.Rule(nil), p.Rules...)
	p.Checks = append([]rules.Check(nil), p.Checks...)
	for i, rule := range p.Rules {
		if rule.Origin == "" {
			p.Rules[i].Origin = p.Name
		}
	}
	for i, c := range p.Checks {
		if c.Origin == "" {
			p.Checks[i].Origin = p.Name
		}
	}
	ent := &entry{plugin: p, enabled: !p.Disabled}
	for i, e := range r.entries {
		if e.plugin.Name == p.Name {
			r.log.Warn("plugin replaced", "plugin", p.Name)
			r.entries[i] = ent
			return nil
		}
	}
	r.entries = append(r.entries, ent)
	r.log.Debug("plugin registered", "plugin", p.Name, "rules", len(p.Rules), "fixers", len(p.Fixers))
	return nil
}

// Unregister removes a plugin and everything attributed to it.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.entries {
		if e.plugin.Name == name {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return true
		}
	}
	return false
}

// SetEnabled toggles a registered plugin. It reports false for unknown names.
func (r *Registry) SetEnabled(name string, enabled bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.plugin.Name == name {
			e.enabled = enabled
			return true
		}
	}
	return false
}

func (r *Registry) Plugins() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Info, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.plugin.info(e.enabled))
	}
	return out
}

func (r *Registry) active() []*Plugin {
	var out []*Plugin
	for _, e := range r.entries {
		if e.enabled {
			out = append(out, &e.plugin)
		}
	}
	return out
}

// Rules returns the rules of enabled plugins in registration order. A later plugin's rule
// takes the slot of an earlier rule with the same ID.
func (r *Registry) Rules() []rules.Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []rules.Rule
	index := map[string]int{}
	for _, p := range r.active() {
		for _, rule := range p.Rules {
			if i, ok := index[rule.ID]; ok {
				out[i] = rule
				continue
			}
			index[rule.ID] = len(out)
			out = append(out, rule)
		}
	}
	return out
}

// Checks returns project-level checks of enabled plugins, with the same override order
// as Rules.
func (r *Registry) Checks() []rules.Check {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []rules.Check
	index := map[string]int{}
	for _, p := range r.active() {
		for _, c := range p.Checks {
			if i, ok := index[c.ID]; ok {
				out[i] = c
				continue
			}
			index[c.ID] = len(out)
			out = append(out, c)
		}
	}
	return out
}

// Fixers returns the fix table of enabled plugins. Later plugins win on conflicts.
func (r *Registry) Fixers() map[string]rules.FixFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := map[string]rules.FixFunc{}
	for _, p := range r.active() {
		for id, fn := range p.Fixers {
			out[id] = fn
		}
	}
	return out
}

// Processors returns the processor chain for path's extension in registration order.
func (r *Registry) Processors(path string) []ProcessorFunc {
	ext := strings.ToLower(filepath.Ext(path))
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []ProcessorFunc
	for _, p := range r.active() {
		if fn, ok := p.Processors[ext]; ok {
			out = append(out, fn)
		}
	}
	return out
}

// Process runs the processor chain for path. A failing processor is logged and its input
// is passed on unchanged.
func (r *Registry) Process(path, content string) string {
	for _, fn := range r.Processors(path) {
		next, err := auditerr.SafeValue(func() (string, error) { return fn(path, content) })
		if err != nil {
			r.log.Warn("processor failed, using unprocessed content", "file", path, "err", err)
			continue
		}
		content = next
	}
	return content
}

type boundHook struct {
	plugin string
	fn     HookFunc
}

func (r *Registry) hooks(name HookName) []boundHook {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []boundHook
	for _, p := range r.active() {
		for _, fn := range p.Hooks[name] {
			out = append(out, boundHook{plugin: p.Name, fn: fn})
		}
	}
	return out
}

// RunHook runs every handler for name in registration order, threading the arguments
// through the chain. Handler errors and panics are logged and the handler is skipped.
// The registry lock is not held while handlers run, so handlers may call back into it.
func (r *Registry) RunHook(ctx context.Context, name HookName, args HookArgs) HookArgs {
	for _, h := range r.hooks(name) {
		if err := ctx.Err(); err != nil {
			return args
		}
		cur := args
		next, err := auditerr.SafeValue(func() (*HookArgs, error) { return h.fn(ctx, cur) })
		if err != nil {
			r.log.Warn("hook failed", "hook", string(name), "plugin", h.plugin, "err", err)
			continue
		}
		args = merge(name, args, next)
	}
	return args
}

// HasHook reports whether any enabled plugin handles name.
func (r *Registry) HasHook(name HookName) bool {
	return len(r.hooks(name)) > 0
}

// Fingerprint describes what one enabled plugin contributes to evaluation.
type Fingerprint struct {
	Name       string                 `json:"name"`
	Version    string                 `json:"version"`
	Rules      []string               `json:"rules"`
	Processors []string               `json:"processors"`
	Hooks      []string               `json:"hooks"`
	Options    map[string]interface{} `json:"options,omitempty"`
}

// Fingerprint lists the enabled plugins in registration order. Scan results are only
// reusable between registries with equal fingerprints.
func (r *Registry) Fingerprint() []Fingerprint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []Fingerprint{}
	for _, p := range r.active() {
		fp := Fingerprint{Name: p.Name, Version: p.Version, Rules: []string{}, Processors: []string{}, Hooks: []string{}, Options: p.Options}
		for _, rule := range p.Rules {
			sig := rule.ID + ":" + string(rule.Severity)
			if rule.Pattern != nil {
				sig += ":" + rule.Pattern.String()
			}
			fp.Rules = append(fp.Rules, sig)
		}
		for ext := range p.Processors {
			fp.Processors = append(fp.Processors, ext)
		}
		for name, hs := range p.Hooks {
			fp.Hooks = append(fp.Hooks, fmt.Sprintf("%s:%d", name, len(hs)))
		}
		sort.Strings(fp.Processors)
		sort.Strings(fp.Hooks)
		out = append(out, fp)
	}
	return out
}
