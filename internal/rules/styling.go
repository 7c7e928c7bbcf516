package rules

import "github.com/ajranjith/uiaudit/internal/model"

func stylingRules() []Rule {
	return []Rule{
		{
			ID:         "style-no-inline",
			Category:   "styling",
			Severity:   model.SeverityError,
			Message:    "Inline style object bypasses the design system",
			Suggestion: "Replace the style prop with Tailwind utility classes",
			Pattern:    re(`\bstyle=\{\{`),
			Applies:    isJSX,
		},
		{
			ID:         "style-no-important",
			Category:   "styling",
			Severity:   model.SeverityWarning,
			Message:    "!important overrides the cascade",
			Suggestion: "Increase specificity or use a Tailwind variant instead",
			Pattern:    re(`!important\b`),
			Applies:    isStyle,
		},
		{
			ID:         "style-hardcoded-color",
			Category:   "styling",
			Severity:   model.SeverityWarning,
			Message:    "Hard-coded colour in an arbitrary Tailwind value",
			Suggestion: "Use a theme token such as bg-primary or text-muted-foreground",
			Pattern:    re(`\b(?:bg|text|border|fill|stroke|ring|outline|from|via|to)-\[#[0-9a-fA-F]{3,8}\]`),
			Applies:    isStyle,
		},
		{
			ID:         "style-classname-concat",
			Category:   "styling",
			Severity:   model.SeverityWarning,
			Message:    "className built with string concatenation",
			Suggestion: "Compose classes with cn() from @/lib/utils",
			Pattern:    re(`className=\{\s*["'][^"']*["']\s*\+`),
			Applies:    isJSX,
		},
		{
			ID:         "style-classname-template",
			Category:   "styling",
			Severity:   model.SeverityInfo,
			Message:    "className built with a template literal",
			Suggestion: "Compose conditional classes with cn() so tailwind-merge can resolve conflicts",
			Pattern:    re("className=\\{`[^`]*\\$\\{"),
			Applies:    isJSX,
		},
		{
			ID:         "style-arbitrary-px",
			Category:   "styling",
			Severity:   model.SeverityInfo,
			Message:    "Pixel value in an arbitrary Tailwind class",
			Suggestion: "Prefer the spacing scale (for example p-4 instead of p-[16px])",
			Pattern:    re(`\b[a-z]+(?:-[a-z]+)*-\[[0-9]+px\]`),
			Applies:    isStyle,
		},
		{
			ID:         "style-dark-mode",
			Category:   "styling",
			Severity:   model.SeverityInfo,
			Message:    "Light background without a dark: variant",
			Suggestion: "Use bg-background or add a dark: variant",
			Pattern:    re(`className=["'][^"']*\bbg-white\b[^"']*["']`),
			Exclude:    re(`\bdark:`),
			Applies:    isJSX,
		},
	}
}
