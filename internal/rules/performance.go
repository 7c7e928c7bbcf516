package rules

import "github.com/ajranjith/uiaudit/internal/model"

var useEffectCall = re(`\buse(?:Layout)?Effect\s*\(`)

func performanceRules() []Rule {
	return []Rule{
		{
			ID:         "perf-no-console",
			Category:   "performance",
			Severity:   model.SeverityWarning,
			Message:    "Debug console call left in source",
			Suggestion: "Remove the call or use a logger that is stripped in production",
			Pattern:    re(`\bconsole\.(?:log|debug|info)\s*\(`),
			Applies:    isScript,
		},
		{
			ID:         "perf-namespace-import",
			Category:   "performance",
			Severity:   model.SeverityInfo,
			Message:    "Namespace import of a large library defeats tree shaking",
			Suggestion: "Import the members you use by name",
			Pattern:    re(`import\s+\*\s+as\s+\w+\s+from\s+["'](?:lucide-react|react-icons(?:/\w+)?|date-fns|@mui/icons-material|rxjs)["']`),
			Applies:    isScript,
		},
		{
			ID:         "perf-lodash-full",
			Category:   "performance",
			Severity:   model.SeverityWarning,
			Message:    "Full lodash import adds the whole library to the bundle",
			Suggestion: `Import single functions ("lodash/debounce") or use native equivalents`,
			Pattern:    re(`(?:from\s+["']lodash["']|require\(\s*["']lodash["']\s*\))`),
			Applies:    isScript,
		},
		{
			ID:         "perf-moment",
			Category:   "performance",
			Severity:   model.SeverityInfo,
			Message:    "moment is large and in maintenance mode",
			Suggestion: "Use date-fns or Intl.DateTimeFormat",
			Pattern:    re(`(?:from\s+["']moment["']|require\(\s*["']moment["']\s*\))`),
			Applies:    isScript,
		},
		{
			ID:         "perf-effect-deps",
			Category:   "performance",
			Severity:   model.SeverityWarning,
			Message:    "useEffect without a dependency array runs after every render",
			Suggestion: "Pass a dependency array as the second argument",
			Predicate:  effectWithoutDeps,
			Applies:    isJSX,
		},
	}
}

func effectWithoutDeps(in Input) []model.Issue {
	var out []model.Issue
	for _, loc := range useEffectCall.FindAllStringIndex(in.Content, -1) {
		args, ok := callArgs(in.Content, loc[1]-1)
		if !ok || args > 1 {
			continue
		}
		line, col := Position(in.Content, loc[0])
		out = append(out, model.Issue{Line: line, Column: col})
	}
	return out
}

// callArgs counts top-level arguments of the call whose "(" is at open. Brackets inside
// string literals are not tracked.
func callArgs(content string, open int) (int, bool) {
	depth := 0
	args := 0
	sawToken := false
	for i := open; i < len(content); i++ {
		switch c := content[i]; c {
		case '(', '[', '{':
			depth++
			if depth > 1 {
				sawToken = true
			}
		case ')', ']', '}':
			depth--
			if depth == 0 {
				if sawToken {
					args++
				}
				return args, true
			}
		case ',':
			if depth == 1 {
				args++
				sawToken = false
			}
		case ' ', '\t', '\n', '\r':
		default:
			if depth >= 1 {
				sawToken = true
			}
		}
	}
	return 0, false
}
