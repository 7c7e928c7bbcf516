package rules

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ajranjith/uiaudit/internal/auditerr"
	"github.com/ajranjith/uiaudit/internal/model"
)

// ComponentsConfigFile is the shadcn/ui project descriptor checked at the project root.
const ComponentsConfigFile = "components.json"

// Check is a project-level rule evaluated once per scan against the project root rather than
// per file.
type Check struct {
	ID         string
	Category   string
	Severity   model.Severity
	Message    string
	Suggestion string
	Run        func(root string) []model.Issue
	Origin     string
}

func StructureChecks() []Check {
	return []Check{
		{
			ID:         "structure-public-dir",
			Category:   "structure",
			Severity:   model.SeverityInfo,
			Message:    "No public/ directory for static assets",
			Suggestion: "Serve static files from public/",
			Run:        requireAny("public", "public"),
		},
		{
			ID:         "structure-ui-dir",
			Category:   "structure",
			Severity:   model.SeverityWarning,
			Message:    "No components/ui directory for UI primitives",
			Suggestion: "Generate primitives with the shadcn CLI into components/ui",
			Run:        requireAny("components/ui", "components/ui", "src/components/ui"),
		},
		{
			ID:         "structure-utils",
			Category:   "structure",
			Severity:   model.SeverityWarning,
			Message:    "No lib/utils module providing cn()",
			Suggestion: "Create lib/utils.ts exporting cn() built on clsx and tailwind-merge",
			Run: requireAny("lib/utils.ts",
				"lib/utils.ts", "lib/utils.js", "src/lib/utils.ts", "src/lib/utils.js"),
		},
		{
			ID:         "structure-components-json",
			Category:   "structure",
			Severity:   model.SeverityError,
			Message:    "components.json is invalid",
			Suggestion: "Regenerate it with the shadcn CLI init command",
			Run:        componentsConfig,
		},
	}
}

// RunChecks evaluates checks against root with the same severity resolution as file rules.
func RunChecks(root string, checks []Check, overrides map[string]Override) ([]model.Issue, []error) {
	issues := []model.Issue{}
	var errs []error
	for _, c := range checks {
		sev, _ := Effective(c.ID, c.Severity, nil, overrides)
		if sev == model.SeverityOff || c.Run == nil {
			continue
		}
		found, err := auditerr.SafeValue(func() ([]model.Issue, error) { return c.Run(root), nil })
		if err != nil {
			errs = append(errs, fmt.Errorf("check %s: %w", c.ID, err))
			continue
		}
		for _, is := range found {
			is.RuleID = c.ID
			is.Category = c.Category
			if !is.Severity.IsRuleLevel() || sev != c.Severity {
				is.Severity = sev
			}
			if is.Message == "" {
				is.Message = c.Message
			}
			if is.Suggestion == "" {
				is.Suggestion = c.Suggestion
			}
			if is.Line < 1 {
				is.Line = 1
			}
			if is.Column < 1 {
				is.Column = 1
			}
			issues = append(issues, is)
		}
	}
	return issues, errs
}

func requireAny(report string, candidates ...string) func(string) []model.Issue {
	return func(root string) []model.Issue {
		for _, c := range candidates {
			if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(c))); err == nil {
				return nil
			}
		}
		return []model.Issue{{File: report}}
	}
}

var componentsRequired = []string{"style", "tailwind.config", "tailwind.css", "aliases.components", "aliases.utils"}

func componentsConfig(root string) []model.Issue {
	data, err := os.ReadFile(filepath.Join(root, ComponentsConfigFile))
	if err != nil {
		return []model.Issue{{
			File:     ComponentsConfigFile,
			Severity: model.SeverityWarning,
			Message:  "components.json not found",
		}}
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return []model.Issue{{
			File:    ComponentsConfigFile,
			Message: "components.json is not valid JSON: " + err.Error(),
		}}
	}
	var out []model.Issue
	for _, field := range componentsRequired {
		v, ok := lookup(doc, field)
		if !ok {
			out = append(out, model.Issue{File: ComponentsConfigFile, Message: "components.json is missing " + field})
			continue
		}
		if _, isString := v.(string); !isString {
			out = append(out, model.Issue{File: ComponentsConfigFile, Message: "components.json field " + field + " must be a string"})
		}
	}
	for _, field := range []string{"rsc", "tsx"} {
		v, ok := doc[field]
		if !ok {
			continue
		}
		if _, isBool := v.(bool); !isBool {
			out = append(out, model.Issue{
				File:     ComponentsConfigFile,
				Severity: model.SeverityWarning,
				Message:  "components.json field " + field + " must be a boolean",
			})
		}
	}
	return out
}

func lookup(doc map[string]interface{}, dotted string) (interface{}, bool) {
	var cur interface{} = doc
	for _, part := range strings.Split(dotted, ".") {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		if cur, ok = m[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}
