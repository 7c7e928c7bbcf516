package rules

import (
	"fmt"
	"strings"

	"github.com/ajranjith/uiaudit/internal/model"
)

const (
	defaultMaxLines      = 300
	defaultMaxComplexity = 10
)

var (
	functionHeader = re(`(?:\bfunction\s*\*?\s*([A-Za-z_$][\w$]*)?\s*\(|\b(?:const|let|var)\s+([A-Za-z_$][\w$]*)\s*=\s*(?:async\s+)?(?:\([^()]*\)|[A-Za-z_$][\w$]*)\s*(?::\s*[^=]+)?=>)`)
	decisionPoint  = re(`(?:\bif\b|\bfor\b|\bwhile\b|\bcase\b|\bcatch\b|&&|\|\||\?\?|\s\?\s)`)
	importFrom     = re(`(?m)^[ \t]*import\s+(type\s+)?[^'";]*?\bfrom\s+["']([^"']+)["']`)
)

func maintainabilityRules() []Rule {
	return []Rule{
		{
			ID:         "maint-todo",
			Category:   "maintainability",
			Severity:   model.SeverityInfo,
			Message:    "Unresolved TODO/FIXME marker",
			Suggestion: "Track the work in an issue and remove the marker",
			Pattern:    re(`\b(?:TODO|FIXME|HACK)\b`),
			Applies:    Ext(append([]string{".css", ".scss"}, scriptExts...)...),
		},
		{
			ID:         "maint-file-length",
			Category:   "maintainability",
			Severity:   model.SeverityWarning,
			Message:    "File is too long",
			Suggestion: "Split the file into smaller components or modules",
			Predicate:  fileLength,
			Applies:    isScript,
			Options:    map[string]interface{}{"maxLines": defaultMaxLines},
		},
		{
			ID:         "maint-complexity",
			Category:   "maintainability",
			Severity:   model.SeverityWarning,
			Message:    "Function is too complex",
			Suggestion: "Extract branches into helper functions or lookup tables",
			Predicate:  complexity,
			Applies:    isScript,
			Options:    map[string]interface{}{"max": defaultMaxComplexity},
		},
		{
			ID:         "maint-duplicate-import",
			Category:   "maintainability",
			Severity:   model.SeverityWarning,
			Message:    "Module imported more than once",
			Suggestion: "Merge the import statements",
			Predicate:  duplicateImports,
			Applies:    isScript,
		},
	}
}

func fileLength(in Input) []model.Issue {
	max := IntOption(in.Options, "maxLines", defaultMaxLines)
	n := len(in.Lines)
	if n > 0 && in.Lines[n-1] == "" {
		n--
	}
	if n <= max {
		return nil
	}
	return []model.Issue{{
		Line:    max + 1,
		Column:  1,
		Message: fmt.Sprintf("File has %d lines (max %d)", n, max),
	}}
}

// complexity approximates cyclomatic complexity per function body: one plus the number of
// branch keywords and short-circuit operators between the body's braces.
func complexity(in Input) []model.Issue {
	max := IntOption(in.Options, "max", defaultMaxComplexity)
	var out []model.Issue
	for _, m := range functionHeader.FindAllStringSubmatchIndex(in.Content, -1) {
		start := m[1]
		if in.Content[start-1] == '(' {
			start = closingParen(in.Content, start-1)
			if start < 0 {
				continue
			}
		}
		body, ok := functionBody(in.Content, start)
		if !ok {
			continue
		}
		score := 1 + len(decisionPoint.FindAllStringIndex(body, -1))
		if score <= max {
			continue
		}
		name := "anonymous function"
		for _, g := range []int{2, 4} {
			if m[g] >= 0 {
				name = in.Content[m[g]:m[g+1]]
			}
		}
		line, col := Position(in.Content, m[0])
		out = append(out, model.Issue{
			Line:    line,
			Column:  col,
			Message: fmt.Sprintf("%s has complexity %d (max %d)", name, score, max),
		})
	}
	return out
}

// functionBody returns the brace-delimited body that starts after from. Expression-bodied
// arrows have no braced body and are skipped.
func functionBody(content string, from int) (string, bool) {
	open := strings.IndexByte(content[from:], '{')
	if open < 0 {
		return "", false
	}
	open += from
	if strings.ContainsAny(content[from:open], ";") {
		return "", false
	}
	depth := 0
	for i := open; i < len(content); i++ {
		switch content[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return content[open : i+1], true
			}
		}
	}
	return "", false
}

// closingParen returns the offset just past the ")" matching the "(" at open, or -1.
func closingParen(content string, open int) int {
	depth := 0
	for i := open; i < len(content); i++ {
		switch content[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return -1
}

func duplicateImports(in Input) []model.Issue {
	seen := map[string]bool{}
	var out []model.Issue
	for _, m := range importFrom.FindAllStringSubmatchIndex(in.Content, -1) {
		key := in.Content[m[4]:m[5]]
		if m[2] >= 0 {
			key = "type:" + key
		}
		if !seen[key] {
			seen[key] = true
			continue
		}
		line, col := Position(in.Content, m[0])
		out = append(out, model.Issue{
			Line:    line,
			Column:  col,
			Message: fmt.Sprintf("%q is imported more than once", in.Content[m[4]:m[5]]),
		})
	}
	return out
}
