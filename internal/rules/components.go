package rules

import (
	"regexp"
	"strings"

	"github.com/ajranjith/uiaudit/internal/model"
)

var (
	clientHook     = re(`\buse(?:State|Effect|LayoutEffect|Reducer|Ref|Context|Transition|Optimistic|FormStatus|Router|Pathname|SearchParams)\s*\(`)
	clientHandler  = re(`\bon(?:Click|Change|Submit|Input|KeyDown|KeyUp|Focus|Blur|MouseEnter|MouseLeave|PointerDown)\s*=\s*\{`)
	useClientLine  = re(`(?m)^[ \t]*["']use client["'];?[ \t]*\r?$`)
	forwardRefCall = re(`\b(?:React\.)?forwardRef\s*(?:<[^>]*>)?\s*\(`)
	displayNameSet = re(`\.displayName\s*=`)
)

func componentRules() []Rule {
	return []Rule{
		{
			ID:         "component-ui-import-path",
			Category:   "components",
			Severity:   model.SeverityWarning,
			Message:    "UI primitive imported through a relative path",
			Suggestion: `Import from "@/components/ui/..." so moves do not break imports`,
			Pattern:    re(`from\s+["'](?:\.\./)+(?:src/)?components/ui/`),
			Applies:    isScript,
		},
		{
			ID:         "component-radix-direct",
			Category:   "components",
			Severity:   model.SeverityInfo,
			Message:    "Radix primitive imported directly outside components/ui",
			Suggestion: "Wrap the primitive in a shadcn/ui component and import that instead",
			Pattern:    re(`from\s+["']@radix-ui/react-[a-z-]+["']`),
			Applies:    All(isScript, Not(inUIDir)),
		},
		{
			ID:         "component-use-client-missing",
			Category:   "components",
			Severity:   model.SeverityWarning,
			Message:    `Component uses hooks or event handlers without a "use client" directive`,
			Suggestion: `Add "use client" at the top of the file or move interactivity into a client component`,
			Predicate:  useClientMissing,
			Applies:    All(isJSX, InAppRouter),
		},
		{
			ID:         "component-use-client-placement",
			Category:   "components",
			Severity:   model.SeverityError,
			Message:    `"use client" must be the first statement in the file`,
			Suggestion: "Move the directive above all imports",
			Predicate:  useClientPlacement,
			Applies:    isScript,
		},
		{
			ID:         "component-anonymous-default-export",
			Category:   "components",
			Severity:   model.SeverityInfo,
			Message:    "Anonymous default export hides the component name in dev tools",
			Suggestion: "Name the function: export default function PageName() {...}",
			Pattern:    re(`export\s+default\s+(?:function\s*\(|(?:async\s+)?\([^)]*\)\s*=>)`),
			Applies:    isJSX,
		},
		{
			ID:         "component-index-key",
			Category:   "components",
			Severity:   model.SeverityWarning,
			Message:    "Array index used as a React key",
			Suggestion: "Use a stable identifier from the item",
			Pattern:    re(`\bkey=\{\s*(?:index|idx|i)\s*\}`),
			Applies:    isJSX,
		},
		{
			ID:         "component-forwardref-displayname",
			Category:   "components",
			Severity:   model.SeverityInfo,
			Message:    "forwardRef component has no displayName",
			Suggestion: "Set Component.displayName after the forwardRef call",
			Predicate:  forwardRefDisplayName,
			Applies:    isJSX,
		},
	}
}

// Directive returns the leading directive of a module ("use client", "use server") or "".
func Directive(content string) string {
	inBlock := false
	for _, raw := range SplitLines(content) {
		line := strings.TrimSpace(raw)
		if inBlock {
			if i := strings.Index(line, "*/"); i >= 0 {
				inBlock = false
				line = strings.TrimSpace(line[i+2:])
			} else {
				continue
			}
		}
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		if strings.HasPrefix(line, "/*") {
			if i := strings.Index(line, "*/"); i >= 0 {
				line = strings.TrimSpace(line[i+2:])
				if line == "" {
					continue
				}
			} else {
				inBlock = true
				continue
			}
		}
		line = strings.TrimSuffix(line, ";")
		if len(line) >= 2 && (line[0] == '"' || line[0] == '\'') && line[len(line)-1] == line[0] {
			return line[1 : len(line)-1]
		}
		return ""
	}
	return ""
}

func useClientMissing(in Input) []model.Issue {
	if d := Directive(in.Content); d == "use client" || d == "use server" {
		return nil
	}
	first := -1
	for _, p := range []*regexp.Regexp{clientHook, clientHandler} {
		if loc := p.FindStringIndex(in.Content); loc != nil && (first < 0 || loc[0] < first) {
			first = loc[0]
		}
	}
	if first < 0 {
		return nil
	}
	line, col := Position(in.Content, first)
	return []model.Issue{{Line: line, Column: col}}
}

func useClientPlacement(in Input) []model.Issue {
	leading := Directive(in.Content) == "use client"
	var out []model.Issue
	for i, loc := range useClientLine.FindAllStringIndex(in.Content, -1) {
		if i == 0 && leading {
			continue
		}
		line, col := Position(in.Content, loc[0])
		out = append(out, model.Issue{Line: line, Column: col})
	}
	return out
}

func forwardRefDisplayName(in Input) []model.Issue {
	loc := forwardRefCall.FindStringIndex(in.Content)
	if loc == nil || displayNameSet.MatchString(in.Content) {
		return nil
	}
	line, col := Position(in.Content, loc[0])
	return []model.Issue{{Line: line, Column: col}}
}
