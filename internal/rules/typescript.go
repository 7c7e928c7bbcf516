package rules

import "github.com/ajranjith/uiaudit/internal/model"

func typescriptRules() []Rule {
	return []Rule{
		{
			ID:         "ts-no-explicit-any",
			Category:   "typescript",
			Severity:   model.SeverityWarning,
			Message:    "Explicit any disables type checking",
			Suggestion: "Use a concrete type, a generic or unknown",
			Pattern:    re(`(?::\s*any\b|\bas\s+any\b|<any>)`),
			Applies:    isTS,
		},
		{
			ID:         "ts-no-ts-ignore",
			Category:   "typescript",
			Severity:   model.SeverityWarning,
			Message:    "@ts-ignore silently hides type errors",
			Suggestion: "Use @ts-expect-error so the suppression fails once the error is gone",
			Pattern:    re(`@ts-ignore\b`),
			Applies:    isScript,
		},
		{
			ID:         "ts-non-null-assertion",
			Category:   "typescript",
			Severity:   model.SeverityInfo,
			Message:    "Non-null assertion bypasses null checks",
			Suggestion: "Narrow the value with a guard or optional chaining",
			Pattern:    re(`[\w)\]]!\.`),
			Applies:    isTS,
		},
	}
}
