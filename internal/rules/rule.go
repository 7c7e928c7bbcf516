// Package rules holds the built-in audit catalogue and the engine that evaluates rules
// against file content.
//
// Rules match raw text. A pattern rule is a regular expression applied to the whole file; a
// predicate rule is a small function over the content and its lines. Neither is syntax aware:
// a match inside a comment or a string literal is reported like any other, and a construct
// split in an unusual way may be missed. This keeps evaluation fast and deterministic at the
// cost of occasional false positives.
package rules

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/ajranjith/uiaudit/internal/auditerr"
	"github.com/ajranjith/uiaudit/internal/model"
)

// OriginBuiltin marks rules, checks and fixers shipped with the engine.
const OriginBuiltin = "builtin"

const maxSourceExcerpt = 160

// Input is what a predicate sees for one file.
type Input struct {
	Path    string
	Content string
	Lines   []string
	Options map[string]interface{}
}

// Predicate returns the issues it finds. Empty fields are filled from the owning rule.
type Predicate func(in Input) []model.Issue

// Applies reports whether a rule should run for path at all.
type Applies func(path string) bool

type Rule struct {
	ID         string
	Category   string
	Severity   model.Severity
	Message    string
	Suggestion string
	// Pattern is matched globally over the content. Exclude, when set, drops matches whose
	// matched text it also matches.
	Pattern   *regexp.Regexp
	Exclude   *regexp.Regexp
	Predicate Predicate
	Applies   Applies
	Options   map[string]interface{}
	Origin    string
}

// Override is a per-rule setting from configuration.
type Override struct {
	Severity model.Severity
	Options  map[string]interface{}
}

// Effective resolves the severity and options of a rule: a configured override wins over the
// rule's default. Override options are layered on top of the rule's default options.
func Effective(ruleID string, def model.Severity, defOpts map[string]interface{}, overrides map[string]Override) (model.Severity, map[string]interface{}) {
	sev := def
	opts := defOpts
	if ov, ok := overrides[ruleID]; ok {
		if ov.Severity != "" {
			sev = ov.Severity
		}
		if len(ov.Options) > 0 {
			merged := make(map[string]interface{}, len(defOpts)+len(ov.Options))
			for k, v := range defOpts {
				merged[k] = v
			}
			for k, v := range ov.Options {
				merged[k] = v
			}
			opts = merged
		}
	}
	return sev, opts
}

// Evaluate runs one rule against content. A panicking predicate is reported as an error.
func Evaluate(r Rule, path, content string, lines []string, overrides map[string]Override) ([]model.Issue, error) {
	if r.Applies != nil && !r.Applies(path) {
		return nil, nil
	}
	sev, opts := Effective(r.ID, r.Severity, r.Options, overrides)
	if sev == model.SeverityOff {
		return nil, nil
	}
	if r.Pattern != nil {
		return matchPattern(r, sev, opts, path, content, lines), nil
	}
	if r.Predicate == nil {
		return nil, nil
	}
	found, err := auditerr.SafeValue(func() ([]model.Issue, error) {
		return r.Predicate(Input{Path: path, Content: content, Lines: lines, Options: opts}), nil
	})
	if err != nil {
		return nil, fmt.Errorf("rule %s: %w", r.ID, err)
	}
	out := make([]model.Issue, 0, len(found))
	for _, is := range found {
		out = append(out, stamp(r, sev, opts, path, lines, is))
	}
	return out, nil
}

// EvaluateAll runs every rule in order. Rules that fail are skipped and their errors returned
// alongside the issues of the rules that succeeded.
func EvaluateAll(rs []Rule, path, content string, overrides map[string]Override) ([]model.Issue, []error) {
	lines := SplitLines(content)
	issues := []model.Issue{}
	var errs []error
	for _, r := range rs {
		found, err := Evaluate(r, path, content, lines, overrides)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		issues = append(issues, found...)
	}
	return issues, errs
}

func matchPattern(r Rule, sev model.Severity, opts map[string]interface{}, path, content string, lines []string) []model.Issue {
	var out []model.Issue
	for _, loc := range r.Pattern.FindAllStringIndex(content, -1) {
		if r.Exclude != nil && r.Exclude.MatchString(content[loc[0]:loc[1]]) {
			continue
		}
		line, col := Position(content, loc[0])
		out = append(out, model.Issue{
			RuleID:     r.ID,
			Category:   r.Category,
			Severity:   sev,
			Message:    r.Message,
			Line:       line,
			Column:     col,
			Source:     excerpt(lines, line),
			Suggestion: r.Suggestion,
			File:       path,
			Options:    opts,
		})
	}
	return out
}

// stamp fills what a predicate left empty from the rule and its effective settings.
func stamp(r Rule, sev model.Severity, opts map[string]interface{}, path string, lines []string, is model.Issue) model.Issue {
	if is.RuleID == "" {
		is.RuleID = r.ID
	}
	if is.Category == "" {
		is.Category = r.Category
	}
	if !is.Severity.IsRuleLevel() {
		is.Severity = sev
	}
	if is.Message == "" {
		is.Message = r.Message
	}
	if is.Suggestion == "" {
		is.Suggestion = r.Suggestion
	}
	if is.File == "" {
		is.File = path
	}
	if is.Options == nil && len(opts) > 0 {
		is.Options = opts
	}
	if is.Line < 1 {
		is.Line = 1
	}
	if is.Column < 1 {
		is.Column = 1
	}
	if is.Source == "" {
		is.Source = excerpt(lines, is.Line)
	}
	return is
}

// Position converts a byte offset into a 1-based line and column.
func Position(content string, offset int) (int, int) {
	if offset > len(content) {
		offset = len(content)
	}
	before := content[:offset]
	line := strings.Count(before, "\n") + 1
	col := offset - strings.LastIndex(before, "\n")
	return line, col
}

func SplitLines(content string) []string {
	return strings.Split(content, "\n")
}

func excerpt(lines []string, line int) string {
	if line < 1 || line > len(lines) {
		return ""
	}
	s := strings.TrimSpace(strings.TrimSuffix(lines[line-1], "\r"))
	if len(s) > maxSourceExcerpt {
		s = s[:maxSourceExcerpt] + "..."
	}
	return s
}

// IntOption reads a numeric option, accepting the shapes YAML and JSON decoding produce.
func IntOption(opts map[string]interface{}, key string, def int) int {
	v, ok := opts[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return i
		}
	}
	return def
}

// Ext returns an Applies guard matching any of the given extensions.
func Ext(exts ...string) Applies {
	set := map[string]bool{}
	for _, e := range exts {
		set[strings.ToLower(e)] = true
	}
	return func(path string) bool {
		return set[strings.ToLower(filepath.Ext(path))]
	}
}

// All combines guards; every guard must accept the path.
func All(guards ...Applies) Applies {
	return func(path string) bool {
		for _, g := range guards {
			if !g(path) {
				return false
			}
		}
		return true
	}
}

func Not(g Applies) Applies {
	return func(path string) bool { return !g(path) }
}

var (
	scriptExts = []string{".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs"}

	isScript = Ext(scriptExts...)
	isMarkup = Ext(".jsx", ".tsx", ".js", ".html", ".htm")
	isJSX    = Ext(".jsx", ".tsx", ".js")
	isTS     = Ext(".ts", ".tsx")
	isStyle  = Ext(".css", ".scss", ".jsx", ".tsx")
	isHTML   = Ext(".html", ".htm")
)

// InAppRouter reports whether path lives under a Next.js app/ directory.
func InAppRouter(path string) bool {
	p := "/" + filepath.ToSlash(path)
	return strings.Contains(p, "/app/")
}

func inUIDir(path string) bool {
	p := "/" + filepath.ToSlash(path)
	return strings.Contains(p, "/components/ui/")
}

func baseIs(names ...string) Applies {
	return func(path string) bool {
		b := filepath.Base(path)
		for _, n := range names {
			if b == n {
				return true
			}
		}
		return false
	}
}
