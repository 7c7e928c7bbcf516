// Package report renders scan results and grades for terminals, Markdown and CI tools.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/ajranjith/uiaudit/internal/model"
)

// Audit is the combined document written for --format json.
type Audit struct {
	Scan      *model.ScanResult  `json:"scan"`
	Grade     *model.GradeReport `json:"grade"`
	Threshold int                `json:"threshold"`
	Pass      bool               `json:"pass"`
}

func NewAudit(res *model.ScanResult, rep *model.GradeReport, threshold int) Audit {
	return Audit{Scan: res, Grade: rep, Threshold: threshold, Pass: rep.Overall >= threshold}
}

var (
	colorRed    = color.New(color.FgRed, color.Bold)
	colorGreen  = color.New(color.FgGreen, color.Bold)
	colorYellow = color.New(color.FgYellow)
	colorCyan   = color.New(color.FgCyan)
	colorFaint  = color.New(color.Faint)
)

func severityColor(s model.Severity) *color.Color {
	switch s {
	case model.SeverityError:
		return colorRed
	case model.SeverityWarning:
		return colorYellow
	}
	return colorCyan
}

func gradeColor(grade string) *color.Color {
	switch grade {
	case "A", "B":
		return colorGreen
	case "C":
		return colorYellow
	}
	return colorRed
}

// Text writes a human readable listing of issues grouped by file followed by the grade.
// At most limit issues are listed per file; zero lists all.
func Text(w io.Writer, a Audit, limit int) {
	files := a.Scan.IssuesByFile()
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		issues := sortedIssues(files[name])
		fmt.Fprintln(w, color.New(color.Bold).Sprint(name))
		for i, is := range issues {
			if limit > 0 && i == limit {
				colorFaint.Fprintf(w, "  ... %d more\n", len(issues)-limit)
				break
			}
			fmt.Fprintf(w, "  %4d:%-3d %s %s %s\n", is.Line, is.Column,
				severityColor(is.Severity).Sprintf("%-7s", is.Severity), is.Message, colorFaint.Sprint(is.RuleID))
			if is.Suggestion != "" {
				colorFaint.Fprintf(w, "           %s\n", is.Suggestion)
			}
		}
		fmt.Fprintln(w)
	}
	Summary(w, a)
}

// Summary writes the score block.
func Summary(w io.Writer, a Audit) {
	s := a.Scan.Summary
	fmt.Fprintf(w, "Files: %d  Issues: %d (%s, %s, %s)\n", s.TotalFiles, s.TotalIssues,
		colorRed.Sprintf("%d errors", s.BySeverity[model.SeverityError]),
		colorYellow.Sprintf("%d warnings", s.BySeverity[model.SeverityWarning]),
		colorCyan.Sprintf("%d info", s.BySeverity[model.SeverityInfo]))

	cats := make([]string, 0, len(a.Grade.CategoryScores))
	for c := range a.Grade.CategoryScores {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	for _, c := range cats {
		score := a.Grade.CategoryScores[c]
		fmt.Fprintf(w, "  %-16s %s\n", c, scoreColor(score).Sprintf("%3d", score))
	}
	fmt.Fprintf(w, "Score: %s  Grade: %s\n",
		scoreColor(a.Grade.Overall).Sprintf("%d", a.Grade.Overall),
		gradeColor(a.Grade.Grade).Sprint(a.Grade.Grade))
	if a.Pass {
		colorGreen.Fprintf(w, "PASS (threshold %d)\n", a.Threshold)
	} else {
		colorRed.Fprintf(w, "FAIL (threshold %d)\n", a.Threshold)
	}
}

func scoreColor(score int) *color.Color {
	switch {
	case score >= 80:
		return colorGreen
	case score >= 60:
		return colorYellow
	}
	return colorRed
}

// Markdown renders the audit as a Markdown document.
func Markdown(a Audit) string {
	var b strings.Builder
	b.WriteString("# UI audit\n\n")
	status := "PASS"
	if !a.Pass {
		status = "FAIL"
	}
	fmt.Fprintf(&b, "**Score:** %d (%s) | **Status:** %s | **Threshold:** %d\n\n", a.Grade.Overall, a.Grade.Grade, status, a.Threshold)
	fmt.Fprintf(&b, "%d files, %d issues, %d critical\n\n", a.Scan.Summary.TotalFiles, a.Grade.TotalIssues, a.Grade.CriticalIssues)

	b.WriteString("| Category | Score |\n|---|---|\n")
	cats := make([]string, 0, len(a.Grade.CategoryScores))
	for c := range a.Grade.CategoryScores {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	for _, c := range cats {
		fmt.Fprintf(&b, "| %s | %d |\n", c, a.Grade.CategoryScores[c])
	}

	files := a.Scan.IssuesByFile()
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) > 0 {
		b.WriteString("\n## Issues\n")
	}
	for _, name := range names {
		fmt.Fprintf(&b, "\n### `%s`\n\n| Line | Severity | Rule | Message |\n|---|---|---|---|\n", name)
		for _, is := range sortedIssues(files[name]) {
			fmt.Fprintf(&b, "| %d:%d | %s | %s | %s |\n", is.Line, is.Column, is.Severity, is.RuleID, escapeCell(is.Message))
		}
	}
	return b.String()
}

// JSON renders the audit as indented JSON.
func JSON(a Audit) ([]byte, error) {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func sortedIssues(issues []model.Issue) []model.Issue {
	out := append([]model.Issue(nil), issues...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		return out[i].Column < out[j].Column
	})
	return out
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
