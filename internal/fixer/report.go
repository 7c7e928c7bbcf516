package fixer

import (
	"fmt"
	"strings"
)

// Markdown renders a summary as a Markdown report. In dry-run mode it reads as a plan.
func Markdown(sum *Summary) string {
	var b strings.Builder
	if sum.DryRun {
		b.WriteString("# Fix plan (dry run)\n\n")
	} else {
		b.WriteString("# Fix report\n\n")
	}
	fmt.Fprintf(&b, "| Files | Fixed | Skipped | Fixes |\n|---|---|---|---|\n| %d | %d | %d | %d |\n",
		sum.TotalFiles, sum.FixedFiles, sum.SkippedFiles, sum.TotalFixes)

	if patch := Patch(sum); patch != "" {
		b.WriteString("\n## Changes\n\n```\n")
		b.WriteString(patch)
		b.WriteString("```\n")
	}

	var problems []string
	for _, r := range sum.Results {
		if r.Error != "" {
			problems = append(problems, fmt.Sprintf("- `%s`: %s", r.File, r.Error))
		}
		for _, s := range r.Skipped {
			problems = append(problems, fmt.Sprintf("- `%s` %s: %s", r.File, s.RuleID, s.Reason))
		}
	}
	if len(problems) > 0 {
		b.WriteString("\n## Skipped\n\n")
		b.WriteString(strings.Join(problems, "\n"))
		b.WriteString("\n")
	}
	return b.String()
}

// Patch lists one "FIX <file> <rule>" line per applied rule group.
func Patch(sum *Summary) string {
	var b strings.Builder
	for _, r := range sum.Results {
		for _, id := range r.Applied {
			b.WriteString("FIX ")
			b.WriteString(r.File)
			b.WriteString(" ")
			b.WriteString(id)
			b.WriteString("\n")
		}
	}
	return b.String()
}
