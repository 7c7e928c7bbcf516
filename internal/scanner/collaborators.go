package scanner

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ajranjith/uiaudit/internal/model"
)

// Partition names for results produced by external tools.
const (
	PartitionLint    = "lint"
	PartitionRuntime = "runtime"
)

type eslintFile struct {
	FilePath string          `json:"filePath"`
	Messages []eslintMessage `json:"messages"`
}

type eslintMessage struct {
	RuleID   *string `json:"ruleId"`
	Severity int     `json:"severity"`
	Message  string  `json:"message"`
	Line     int     `json:"line"`
	Column   int     `json:"column"`
}

// ParseESLint reads the JSON formatter output of ESLint. Absolute file paths are made
// relative to root so they line up with scanner paths.
func ParseESLint(r io.Reader, root string) (*model.ScanResult, error) {
	var files []eslintFile
	if err := json.NewDecoder(r).Decode(&files); err != nil {
		return nil, fmt.Errorf("parse eslint output: %w", err)
	}
	result := model.NewScanResult(root)
	for _, f := range files {
		rel := relPath(root, f.FilePath)
		issues := []model.Issue{}
		for _, m := range f.Messages {
			id := "eslint"
			if m.RuleID != nil && *m.RuleID != "" {
				id = "eslint/" + *m.RuleID
			}
			sev := model.SeverityWarning
			if m.Severity >= 2 {
				sev = model.SeverityError
			}
			issues = append(issues, model.Issue{
				RuleID:   id,
				Category: PartitionLint,
				Severity: sev,
				Message:  m.Message,
				Line:     max(m.Line, 1),
				Column:   max(m.Column, 1),
				File:     rel,
			})
		}
		result.AddFile(rel, model.FileResult{Issues: issues, Score: model.FileScore(issues)})
	}
	return result, nil
}

type lighthouseReport struct {
	RequestedURL string                     `json:"requestedUrl"`
	FinalURL     string                     `json:"finalUrl"`
	Audits       map[string]lighthouseAudit `json:"audits"`
}

type lighthouseAudit struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Score            *float64 `json:"score"`
	ScoreDisplayMode string   `json:"scoreDisplayMode"`
	DisplayValue     string   `json:"displayValue"`
}

// ParseLighthouse reads a Lighthouse JSON report. Every scored audit below 1 becomes an
// issue against the audited URL: below 0.5 is an error, below 0.9 a warning, else info.
func ParseLighthouse(r io.Reader, root string) (*model.ScanResult, error) {
	var rep lighthouseReport
	if err := json.NewDecoder(r).Decode(&rep); err != nil {
		return nil, fmt.Errorf("parse lighthouse report: %w", err)
	}
	target := rep.FinalURL
	if target == "" {
		target = rep.RequestedURL
	}
	if target == "" {
		target = "lighthouse"
	}
	ids := make([]string, 0, len(rep.Audits))
	for id := range rep.Audits {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	issues := []model.Issue{}
	for _, id := range ids {
		a := rep.Audits[id]
		switch a.ScoreDisplayMode {
		case "notApplicable", "informative", "manual", "error":
			continue
		}
		if a.Score == nil || *a.Score >= 1 {
			continue
		}
		sev := model.SeverityInfo
		switch {
		case *a.Score < 0.5:
			sev = model.SeverityError
		case *a.Score < 0.9:
			sev = model.SeverityWarning
		}
		msg := a.Title
		if a.DisplayValue != "" {
			msg += " (" + a.DisplayValue + ")"
		}
		issues = append(issues, model.Issue{
			RuleID:     "lighthouse/" + id,
			Category:   PartitionRuntime,
			Severity:   sev,
			Message:    msg,
			Line:       1,
			Column:     1,
			Suggestion: firstSentence(a.Description),
			File:       target,
		})
	}
	result := model.NewScanResult(root)
	result.AddFile(target, model.FileResult{Issues: issues, Score: model.FileScore(issues)})
	return result, nil
}

func firstSentence(s string) string {
	if i := strings.Index(s, ". "); i >= 0 {
		return s[:i+1]
	}
	return s
}

// LoadPartition parses an external report file by kind ("eslint" or "lighthouse").
func LoadPartition(kind, path, root string) (string, *model.ScanResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", nil, err
	}
	defer f.Close()
	switch strings.ToLower(kind) {
	case "eslint", PartitionLint:
		res, err := ParseESLint(f, root)
		return PartitionLint, res, err
	case "lighthouse", PartitionRuntime:
		res, err := ParseLighthouse(f, root)
		return PartitionRuntime, res, err
	}
	return "", nil, fmt.Errorf("unknown report kind %q for %s", kind, filepath.Base(path))
}
