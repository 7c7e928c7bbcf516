package rules

import (
	"strings"

	"github.com/ajranjith/uiaudit/internal/model"
)

// FixFunc rewrites the whole content of a file for one rule. issues are that rule's issues in
// the file, for fixers that need positions; most built-in fixers ignore them. A FixFunc must
// be idempotent: applying it to its own output returns the same content.
type FixFunc func(content string, issues []model.Issue) (string, error)

var (
	inlineStyleAttr = re(`[ \t]*\bstyle=\{\{[^{}]*\}\}`)
	imgTag          = re(`<(?:img|Image)\b[^>]*>`)
	imgTagName      = re(`^<(?:img|Image)\b`)
	altAttr         = re(`\balt\s*=`)
	relativeUIPath  = re(`(from\s+)(["'])(?:\.\./)+(?:src/)?components/ui/`)
	nextRouter      = re(`(from\s+)(["'])next/router(["'])`)
	consoleLine     = re(`(?m)^[ \t]*console\.(?:log|debug|info)\(.*\);?[ \t]*\r?\n`)
	tsIgnore        = re(`@ts-ignore\b`)
	blankTarget     = re(`<a\b[^>]*\btarget\s*=\s*["']_blank["'][^>]*>`)
	targetAttr      = re(`\btarget\s*=\s*["']_blank["']`)
	relAttr         = re(`\brel\s*=`)
)

// BuiltinFixers returns the transformations for the fixable built-in rules.
func BuiltinFixers() map[string]FixFunc {
	return map[string]FixFunc{
		"style-no-inline":              removeInlineStyles,
		"a11y-img-alt":                 addEmptyAlt,
		"component-ui-import-path":     aliasUIImports,
		"component-use-client-missing": addUseClient,
		"next-router-in-app":           useNextNavigation,
		"perf-no-console":              dropConsoleLines,
		"ts-no-ts-ignore":              expectError,
		"security-target-blank":        addNoopener,
	}
}

func removeInlineStyles(content string, _ []model.Issue) (string, error) {
	return inlineStyleAttr.ReplaceAllString(content, ""), nil
}

func addEmptyAlt(content string, _ []model.Issue) (string, error) {
	return imgTag.ReplaceAllStringFunc(content, func(tag string) string {
		if altAttr.MatchString(tag) {
			return tag
		}
		name := imgTagName.FindString(tag)
		return name + ` alt=""` + tag[len(name):]
	}), nil
}

func aliasUIImports(content string, _ []model.Issue) (string, error) {
	return relativeUIPath.ReplaceAllString(content, `${1}${2}@/components/ui/`), nil
}

func addUseClient(content string, _ []model.Issue) (string, error) {
	switch Directive(content) {
	case "use client", "use server":
		return content, nil
	}
	return "\"use client\";\n\n" + content, nil
}

func useNextNavigation(content string, _ []model.Issue) (string, error) {
	return nextRouter.ReplaceAllString(content, `${1}${2}next/navigation${3}`), nil
}

func dropConsoleLines(content string, _ []model.Issue) (string, error) {
	return consoleLine.ReplaceAllString(content, ""), nil
}

func expectError(content string, _ []model.Issue) (string, error) {
	return tsIgnore.ReplaceAllString(content, "@ts-expect-error"), nil
}

func addNoopener(content string, _ []model.Issue) (string, error) {
	return blankTarget.ReplaceAllStringFunc(content, func(tag string) string {
		if relAttr.MatchString(tag) {
			return tag
		}
		loc := targetAttr.FindStringIndex(tag)
		var b strings.Builder
		b.WriteString(tag[:loc[1]])
		b.WriteString(` rel="noopener noreferrer"`)
		b.WriteString(tag[loc[1]:])
		return b.String()
	}), nil
}
