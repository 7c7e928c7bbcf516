package plugin

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/ajranjith/uiaudit/internal/auditerr"
	"github.com/ajranjith/uiaudit/internal/model"
	"github.com/ajranjith/uiaudit/internal/rules"
	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// ManifestNames are the file names looked up inside a package directory.
var ManifestNames = []string{"uiaudit-plugin.yml", "uiaudit-plugin.yaml", "uiaudit-plugin.json"}

// Manifest is the declarative plugin format. It can describe pattern rules and literal
// replacement fixers only; no code is evaluated.
type Manifest struct {
	Name        string          `yaml:"name" json:"name"`
	Version     string          `yaml:"version" json:"version"`
	Description string          `yaml:"description" json:"description"`
	Rules       []ManifestRule  `yaml:"rules" json:"rules"`
	Fixers      []ManifestFixer `yaml:"fixers" json:"fixers"`
}

type ManifestRule struct {
	ID         string   `yaml:"id" json:"id"`
	Category   string   `yaml:"category" json:"category"`
	Severity   string   `yaml:"severity" json:"severity"`
	Message    string   `yaml:"message" json:"message"`
	Suggestion string   `yaml:"suggestion" json:"suggestion"`
	Pattern    string   `yaml:"pattern" json:"pattern"`
	Exclude    string   `yaml:"exclude" json:"exclude"`
	Extensions []string `yaml:"extensions" json:"extensions"`
	Paths      []string `yaml:"paths" json:"paths"`
}

type ManifestFixer struct {
	Rule    string            `yaml:"rule" json:"rule"`
	Replace []ManifestReplace `yaml:"replace" json:"replace"`
}

type ManifestReplace struct {
	From string `yaml:"from" json:"from"`
	To   string `yaml:"to" json:"to"`
}

// LoadManifest reads a YAML or JSON manifest and converts it into a Plugin.
func LoadManifest(path string) (Plugin, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Plugin{}, auditerr.Plugin("load", err).With("path", path)
	}
	var m Manifest
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &m)
	} else {
		err = yaml.Unmarshal(data, &m)
	}
	if err != nil {
		return Plugin{}, auditerr.Plugin("parse", err).With("path", path)
	}
	p, err := m.Plugin()
	if err != nil {
		return Plugin{}, auditerr.Plugin("compile", err).With("path", path)
	}
	p.Source = path
	return p, nil
}

// Plugin compiles the manifest. Patterns use RE2 syntax.
func (m Manifest) Plugin() (Plugin, error) {
	p := Plugin{Name: m.Name, Version: m.Version, Description: m.Description}
	for _, mr := range m.Rules {
		r, err := mr.compile()
		if err != nil {
			return Plugin{}, err
		}
		p.Rules = append(p.Rules, r)
	}
	if len(m.Fixers) > 0 {
		p.Fixers = map[string]rules.FixFunc{}
	}
	for _, mf := range m.Fixers {
		if mf.Rule == "" || len(mf.Replace) == 0 {
			return Plugin{}, fmt.Errorf("fixer needs a rule and at least one replacement")
		}
		p.Fixers[mf.Rule] = literalFixer(mf.Replace)
	}
	return p, nil
}

func (mr ManifestRule) compile() (rules.Rule, error) {
	r := rules.Rule{
		ID:         mr.ID,
		Category:   mr.Category,
		Message:    mr.Message,
		Suggestion: mr.Suggestion,
	}
	if mr.Severity != "" {
		sev, err := model.ParseSeverity(mr.Severity)
		if err != nil {
			return r, fmt.Errorf("rule %s: %w", mr.ID, err)
		}
		r.Severity = sev
	}
	if mr.Pattern != "" {
		re, err := regexp.Compile(mr.Pattern)
		if err != nil {
			return r, fmt.Errorf("rule %s: pattern: %w", mr.ID, err)
		}
		r.Pattern = re
	}
	if mr.Exclude != "" {
		re, err := regexp.Compile(mr.Exclude)
		if err != nil {
			return r, fmt.Errorf("rule %s: exclude: %w", mr.ID, err)
		}
		r.Exclude = re
	}
	for _, g := range mr.Paths {
		if !doublestar.ValidatePattern(g) {
			return r, fmt.Errorf("rule %s: invalid path glob %q", mr.ID, g)
		}
	}
	var guards []rules.Applies
	if len(mr.Extensions) > 0 {
		guards = append(guards, rules.Ext(mr.Extensions...))
	}
	if len(mr.Paths) > 0 {
		globs := append([]string(nil), mr.Paths...)
		guards = append(guards, func(path string) bool {
			slash := filepath.ToSlash(path)
			for _, g := range globs {
				if ok, _ := doublestar.Match(g, slash); ok {
					return true
				}
			}
			return false
		})
	}
	if len(guards) > 0 {
		r.Applies = rules.All(guards...)
	}
	return r, nil
}

// literalFixer applies plain string replacements in order. It is idempotent as long as no
// replacement target contains its own source text.
func literalFixer(reps []ManifestReplace) rules.FixFunc {
	reps = append([]ManifestReplace(nil), reps...)
	return func(content string, _ []model.Issue) (string, error) {
		for _, rep := range reps {
			if rep.From == "" || strings.Contains(rep.To, rep.From) {
				continue
			}
			content = strings.ReplaceAll(content, rep.From, rep.To)
		}
		return content, nil
	}
}

// LoadDir loads every manifest file in dir, sorted by file name. A manifest that fails to
// load is skipped; the plugins that did load are returned with the joined errors.
func LoadDir(dir string) ([]Plugin, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, auditerr.Plugin("load", err).With("path", dir)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yml", ".yaml", ".json":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	var out []Plugin
	var errs []error
	for _, name := range names {
		p, err := LoadManifest(filepath.Join(dir, name))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, p)
	}
	return out, errors.Join(errs...)
}

// Resolve turns a plugin reference from configuration into a manifest file or directory.
// A reference is a path relative to root, or a package name found under node_modules.
func Resolve(root, ref string) (string, error) {
	candidates := []string{ref}
	if !filepath.IsAbs(ref) {
		candidates = []string{filepath.Join(root, ref)}
	}
	if !strings.HasPrefix(ref, ".") && !filepath.IsAbs(ref) {
		pkg := filepath.Join(root, "node_modules", filepath.FromSlash(ref))
		for _, name := range ManifestNames {
			candidates = append(candidates, filepath.Join(pkg, name))
		}
	}
	for _, c := range candidates {
		info, err := os.Stat(c)
		if err != nil {
			continue
		}
		if info.IsDir() {
			for _, name := range ManifestNames {
				if _, err := os.Stat(filepath.Join(c, name)); err == nil {
					return filepath.Join(c, name), nil
				}
			}
		}
		return c, nil
	}
	return "", auditerr.Plugin("resolve", fmt.Errorf("plugin %q not found", ref)).With("root", root)
}

// Load resolves ref and loads the manifest or directory it points to.
func Load(root, ref string) ([]Plugin, error) {
	path, err := Resolve(root, ref)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, auditerr.Plugin("load", err).With("path", path)
	}
	if info.IsDir() {
		return LoadDir(path)
	}
	p, err := LoadManifest(path)
	if err != nil {
		return nil, err
	}
	return []Plugin{p}, nil
}
