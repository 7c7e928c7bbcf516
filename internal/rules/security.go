package rules

import (
	"strings"

	"github.com/ajranjith/uiaudit/internal/model"
)

var processEnvRef = re(`\bprocess\.env\.([A-Za-z_][A-Za-z0-9_]*)`)

func securityRules() []Rule {
	return []Rule{
		{
			ID:         "security-dangerous-html",
			Category:   "security",
			Severity:   model.SeverityWarning,
			Message:    "dangerouslySetInnerHTML can introduce XSS",
			Suggestion: "Render text content or sanitise the HTML first",
			Pattern:    re(`\bdangerouslySetInnerHTML\b`),
			Applies:    isJSX,
		},
		{
			ID:         "security-no-eval",
			Category:   "security",
			Severity:   model.SeverityError,
			Message:    "Dynamic code evaluation",
			Suggestion: "Remove eval/new Function and parse data explicitly",
			Pattern:    re(`(?:\beval\s*\(|\bnew\s+Function\s*\()`),
			Applies:    isScript,
		},
		{
			ID:         "security-hardcoded-secret",
			Category:   "security",
			Severity:   model.SeverityError,
			Message:    "Possible hard-coded secret",
			Suggestion: "Load secrets from the environment on the server",
			Pattern:    re(`(?i)\b(?:api[_-]?key|secret|password|passwd|auth[_-]?token|access[_-]?token|private[_-]?key)["']?\s*[:=]\s*["'][^"'\s]{8,}["']`),
			Applies:    isScript,
		},
		{
			ID:         "security-target-blank",
			Category:   "security",
			Severity:   model.SeverityWarning,
			Message:    `target="_blank" without rel="noopener"`,
			Suggestion: `Add rel="noopener noreferrer"`,
			Pattern:    re(`<a\b[^>]*\btarget\s*=\s*["']_blank["'][^>]*>`),
			Exclude:    re(`\brel\s*=\s*["'][^"']*\bnoopener\b`),
			Applies:    isMarkup,
		},
		{
			ID:         "security-client-env",
			Category:   "security",
			Severity:   model.SeverityError,
			Message:    "Server-only environment variable referenced in a client component",
			Suggestion: "Expose only NEXT_PUBLIC_ variables to client code",
			Predicate:  clientEnv,
			Applies:    isScript,
		},
	}
}

func clientEnv(in Input) []model.Issue {
	if Directive(in.Content) != "use client" {
		return nil
	}
	var out []model.Issue
	for _, m := range processEnvRef.FindAllStringSubmatchIndex(in.Content, -1) {
		name := in.Content[m[2]:m[3]]
		if strings.HasPrefix(name, "NEXT_PUBLIC_") || name == "NODE_ENV" {
			continue
		}
		line, col := Position(in.Content, m[0])
		out = append(out, model.Issue{
			Line:    line,
			Column:  col,
			Message: "Server-only environment variable " + name + " referenced in a client component",
		})
	}
	return out
}
