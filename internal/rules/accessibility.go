package rules

import (
	"strings"

	"github.com/ajranjith/uiaudit/internal/model"
	"golang.org/x/net/html"
)

var (
	htmlOpenTag = re(`<html\b[^>]*>`)
	hasLangAttr = re(`\blang\s*=`)
)

func accessibilityRules() []Rule {
	return []Rule{
		{
			ID:         "a11y-img-alt",
			Category:   "accessibility",
			Severity:   model.SeverityError,
			Message:    "Image is missing an alt attribute",
			Suggestion: `Describe the image with alt="..." or use alt="" for decorative images`,
			Pattern:    re(`<(?:img|Image)\b[^>]*>`),
			Exclude:    re(`\balt\s*=`),
			Applies:    isMarkup,
		},
		{
			ID:         "a11y-html-lang",
			Category:   "accessibility",
			Severity:   model.SeverityWarning,
			Message:    "<html> element has no lang attribute",
			Suggestion: `Add lang="en" (or the page language) to the <html> element`,
			Predicate:  htmlLang,
			Applies:    isMarkup,
		},
		{
			ID:         "a11y-anchor-href",
			Category:   "accessibility",
			Severity:   model.SeverityWarning,
			Message:    "Anchor without href is not keyboard accessible",
			Suggestion: "Give the anchor an href or render a <button> instead",
			Pattern:    re(`<a\b[^>]*>`),
			Exclude:    re(`\bhref\s*=`),
			Applies:    isMarkup,
		},
		{
			ID:         "a11y-button-type",
			Category:   "accessibility",
			Severity:   model.SeverityInfo,
			Message:    "<button> without an explicit type defaults to submit",
			Suggestion: `Add type="button" or type="submit"`,
			Pattern:    re(`<button\b[^>]*>`),
			Exclude:    re(`\btype\s*=`),
			Applies:    isMarkup,
		},
		{
			ID:         "a11y-click-non-interactive",
			Category:   "accessibility",
			Severity:   model.SeverityWarning,
			Message:    "Click handler on a non-interactive element",
			Suggestion: "Use a <button> or add role and keyboard handlers",
			Pattern:    re(`<(?:div|span|li|p)\b[^>]*\bonClick\s*=`),
			Exclude:    re(`\brole\s*=`),
			Applies:    isJSX,
		},
		{
			ID:         "a11y-positive-tabindex",
			Category:   "accessibility",
			Severity:   model.SeverityWarning,
			Message:    "Positive tabIndex breaks the natural focus order",
			Suggestion: "Use tabIndex={0} or tabIndex={-1}",
			Pattern:    re(`\btab[Ii]ndex\s*=\s*(?:\{\s*)?["']?[1-9][0-9]*`),
			Applies:    isMarkup,
		},
		{
			ID:         "a11y-icon-button-label",
			Category:   "accessibility",
			Severity:   model.SeverityWarning,
			Message:    "Icon-only button has no accessible name",
			Suggestion: "Add aria-label to the button",
			Pattern:    re(`<Button\b[^>]*\bsize\s*=\s*["']icon["'][^>]*>`),
			Exclude:    re(`\baria-label(?:ledby)?\s*=`),
			Applies:    isJSX,
		},
		{
			ID:         "a11y-autofocus",
			Category:   "accessibility",
			Severity:   model.SeverityInfo,
			Message:    "autoFocus can disorient screen reader users",
			Suggestion: "Move focus programmatically only in response to user action",
			Pattern:    re(`\bautoFocus\b`),
			Applies:    isJSX,
		},
	}
}

// htmlLang uses the HTML tokenizer for real documents and a tag pattern for JSX layouts.
func htmlLang(in Input) []model.Issue {
	if isHTML(in.Path) {
		return htmlDocumentLang(in.Content)
	}
	var out []model.Issue
	for _, loc := range htmlOpenTag.FindAllStringIndex(in.Content, -1) {
		if hasLangAttr.MatchString(in.Content[loc[0]:loc[1]]) {
			continue
		}
		line, col := Position(in.Content, loc[0])
		out = append(out, model.Issue{Line: line, Column: col})
	}
	return out
}

func htmlDocumentLang(content string) []model.Issue {
	z := html.NewTokenizer(strings.NewReader(content))
	offset := 0
	for {
		tt := z.Next()
		start := offset
		offset += len(z.Raw())
		switch tt {
		case html.ErrorToken:
			return nil
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "html" {
				continue
			}
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = z.TagAttr()
				if string(key) == "lang" && strings.TrimSpace(string(val)) != "" {
					return nil
				}
			}
			line, col := Position(content, start)
			return []model.Issue{{Line: line, Column: col}}
		}
	}
}
