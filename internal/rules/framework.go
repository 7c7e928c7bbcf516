package rules

import (
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/ajranjith/uiaudit/internal/model"
)

var (
	metadataExport = re(`export\s+(?:const\s+metadata\b|(?:async\s+)?function\s+generateMetadata\b)`)
	isRootLayout   = func(path string) bool {
		base := filepath.Base(path)
		if !strings.HasPrefix(base, "layout.") || !isScript(path) {
			return false
		}
		dir := filepath.ToSlash(filepath.Dir(path))
		return dir == "app" || strings.HasSuffix(dir, "/app")
	}
)

func frameworkRules() []Rule {
	return []Rule{
		{
			ID:         "next-no-img-element",
			Category:   "framework",
			Severity:   model.SeverityWarning,
			Message:    "Raw <img> element skips Next.js image optimisation",
			Suggestion: `Use <Image> from "next/image"`,
			Pattern:    re(`<img\b`),
			Applies:    isJSX,
		},
		{
			ID:         "next-no-html-link",
			Category:   "framework",
			Severity:   model.SeverityWarning,
			Message:    "Internal navigation with <a> triggers a full page load",
			Suggestion: `Use <Link> from "next/link" for internal routes`,
			Pattern:    re(`<a\b[^>]*\bhref\s*=\s*["']/(?:[^/"'][^"']*)?["']`),
			Applies:    isJSX,
		},
		{
			ID:         "next-no-head-element",
			Category:   "framework",
			Severity:   model.SeverityWarning,
			Message:    "<head> is managed by the App Router",
			Suggestion: "Export metadata or generateMetadata instead",
			Pattern:    re(`<head\b`),
			Applies:    All(isJSX, InAppRouter),
		},
		{
			ID:         "next-router-in-app",
			Category:   "framework",
			Severity:   model.SeverityError,
			Message:    `"next/router" is not available in the App Router`,
			Suggestion: `Import from "next/navigation"`,
			Pattern:    re(`from\s+["']next/router["']`),
			Applies:    All(isScript, InAppRouter),
		},
		{
			ID:         "next-sync-script",
			Category:   "framework",
			Severity:   model.SeverityWarning,
			Message:    "Synchronous external script blocks rendering",
			Suggestion: `Use <Script> from "next/script" or add async/defer`,
			Pattern:    re(`<script\b[^>]*\bsrc\s*=[^>]*>`),
			Exclude:    re(`\b(?:async|defer)\b`),
			Applies:    isMarkup,
		},
		{
			ID:         "next-layout-metadata",
			Category:   "framework",
			Severity:   model.SeverityInfo,
			Message:    "Root layout does not export metadata",
			Suggestion: "export const metadata: Metadata = { title: ..., description: ... }",
			Predicate: func(in Input) []model.Issue {
				if metadataExport.MatchString(in.Content) {
					return nil
				}
				return []model.Issue{{Line: 1, Column: 1}}
			},
			Applies: isRootLayout,
		},
		{
			ID:         "next-package-json",
			Category:   "framework",
			Severity:   model.SeverityWarning,
			Message:    "package.json is missing Next.js essentials",
			Suggestion: "Declare next, react and react-dom and a build script",
			Predicate:  packageJSON,
			Applies:    baseIs("package.json"),
		},
	}
}

type packageManifest struct {
	Name            string            `json:"name"`
	Scripts         map[string]string `json:"scripts"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

func packageJSON(in Input) []model.Issue {
	var pkg packageManifest
	if err := json.Unmarshal([]byte(in.Content), &pkg); err != nil {
		return []model.Issue{{
			Severity: model.SeverityError,
			Message:  "package.json is not valid JSON: " + err.Error(),
		}}
	}
	var out []model.Issue
	has := func(name string) bool {
		_, dep := pkg.Dependencies[name]
		_, dev := pkg.DevDependencies[name]
		return dep || dev
	}
	for _, dep := range []string{"next", "react", "react-dom"} {
		if !has(dep) {
			out = append(out, model.Issue{Message: "package.json does not declare " + dep})
		}
	}
	if _, ok := pkg.Scripts["build"]; !ok {
		out = append(out, model.Issue{
			Severity: model.SeverityInfo,
			Message:  `package.json has no "build" script`,
		})
	}
	return out
}
