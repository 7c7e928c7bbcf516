package plugin

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ajranjith/uiaudit/internal/auditerr"
)

// Validate checks a plugin before admission and reports every problem found.
func Validate(p Plugin) error {
	var problems []string
	add := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}
	if strings.TrimSpace(p.Name) == "" {
		add("name is required")
	}
	if len(p.Rules) == 0 && len(p.Checks) == 0 && len(p.Processors) == 0 && len(p.Hooks) == 0 && len(p.Fixers) == 0 {
		add("plugin contributes no rules, checks, processors, hooks or fixers")
	}
	for i, r := range p.Rules {
		label := r.ID
		if label == "" {
			label = fmt.Sprintf("#%d", i)
		}
		if r.ID == "" {
			add("rule %s: id is required", label)
		}
		if r.Category == "" {
			add("rule %s: category is required", label)
		}
		if !r.Severity.IsRuleLevel() {
			add("rule %s: severity %q must be error, warning or info", label, r.Severity)
		}
		if r.Message == "" {
			add("rule %s: message is required", label)
		}
		if r.Pattern == nil && r.Predicate == nil {
			add("rule %s: pattern or predicate is required", label)
		}
	}
	for i, c := range p.Checks {
		if c.ID == "" || c.Category == "" || c.Message == "" || c.Run == nil {
			add("check #%d: id, category, message and run are required", i)
		}
		if !c.Severity.IsRuleLevel() {
			add("check %s: severity %q must be error, warning or info", c.ID, c.Severity)
		}
	}
	for ext, fn := range p.Processors {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			add("processor key %q must be a file extension such as .tsx", ext)
		} else if ext != strings.ToLower(ext) {
			add("processor key %q must be lower case", ext)
		}
		if fn == nil {
			add("processor for %s is nil", ext)
		}
	}
	for name, hs := range p.Hooks {
		if !knownHooks[name] {
			add("unknown hook %q", name)
		}
		for _, h := range hs {
			if h == nil {
				add("hook %s has a nil handler", name)
			}
		}
	}
	for id, fn := range p.Fixers {
		if fn == nil {
			add("fixer for %s is nil", id)
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return auditerr.Plugin("validate", errors.New(strings.Join(problems, "; "))).With("plugin", p.Name)
}
