// Package grader turns a scan result into per-category scores and a letter grade.
package grader

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/ajranjith/uiaudit/internal/logging"
	"github.com/ajranjith/uiaudit/internal/model"
	"github.com/ajranjith/uiaudit/internal/plugin"
)

type Report = model.GradeReport

// IssuePenalty is subtracted from a file's category score for every issue it has there.
const IssuePenalty = 10

// PartitionWeight is used for categories that only appear in collaborator partitions and
// have no configured weight.
const PartitionWeight = 1.0

// Letter grade lower bounds, highest first.
var bands = []struct {
	min   int
	grade string
}{
	{90, "A"},
	{80, "B"},
	{70, "C"},
	{60, "D"},
}

type Grader struct {
	weights map[string]float64
	reg     *plugin.Registry
	log     *slog.Logger
	now     func() time.Time
}

// New builds a grader for the given category weights. reg may be nil, in which case the
// afterGrading hook is not run.
func New(weights map[string]float64, reg *plugin.Registry, log *slog.Logger) *Grader {
	w := make(map[string]float64, len(weights))
	for k, v := range weights {
		w[k] = v
	}
	return &Grader{weights: w, reg: reg, log: logging.OrDiscard(log), now: time.Now}
}

// Grade scores a single scan result.
func (g *Grader) Grade(ctx context.Context, res *model.ScanResult) *Report {
	return g.grade(ctx, res, g.weights)
}

// GradeCombined merges the scan with its partitions and grades the whole. Categories
// introduced by a partition are weighted with PartitionWeight unless configured.
func (g *Grader) GradeCombined(ctx context.Context, c *model.Combined) *Report {
	weights := make(map[string]float64, len(g.weights))
	for k, v := range g.weights {
		weights[k] = v
	}
	for _, part := range c.Partitions {
		for cat := range part.Summary.ByCategory {
			if _, ok := weights[cat]; !ok {
				weights[cat] = PartitionWeight
			}
		}
	}
	return g.grade(ctx, c.Merged(), weights)
}

func (g *Grader) grade(ctx context.Context, res *model.ScanResult, weights map[string]float64) *Report {
	scores := CategoryScores(res)
	for cat := range weights {
		if _, ok := scores[cat]; !ok {
			scores[cat] = 100
		}
	}
	overall := Overall(scores, weights)
	report := &Report{
		CategoryScores: scores,
		Overall:        overall,
		Grade:          Letter(overall),
		CriticalIssues: res.Summary.BySeverity[model.SeverityError],
		TotalIssues:    res.Summary.TotalIssues,
		GeneratedAt:    g.now().UTC(),
	}
	if g.reg != nil {
		g.reg.RunHook(ctx, plugin.AfterGrading, plugin.HookArgs{Root: res.Root, Result: res, Report: report})
	}
	g.log.Debug("graded", "overall", report.Overall, "grade", report.Grade, "critical", report.CriticalIssues)
	return report
}

// CategoryScores returns, for every category with at least one issue, the mean over the
// affected files of max(0, 100 - 10n) where n is the file's issue count in that category.
func CategoryScores(res *model.ScanResult) map[string]int {
	counts := map[string]map[string]int{}
	for file, issues := range res.IssuesByFile() {
		for _, is := range issues {
			if counts[is.Category] == nil {
				counts[is.Category] = map[string]int{}
			}
			counts[is.Category][file]++
		}
	}
	scores := make(map[string]int, len(counts))
	for cat, files := range counts {
		total := 0
		for _, n := range files {
			total += max(0, 100-n*IssuePenalty)
		}
		scores[cat] = int(math.Round(float64(total) / float64(len(files))))
	}
	return scores
}

// Overall is the weighted mean of the category scores over the weighted categories.
// A category without a score counts as 100; a zero total weight yields 100.
func Overall(scores map[string]int, weights map[string]float64) int {
	cats := make([]string, 0, len(weights))
	for cat := range weights {
		cats = append(cats, cat)
	}
	sort.Strings(cats)

	var sum, total float64
	for _, cat := range cats {
		w := weights[cat]
		if w <= 0 {
			continue
		}
		s, ok := scores[cat]
		if !ok {
			s = 100
		}
		sum += w * float64(s)
		total += w
	}
	if total == 0 {
		return 100
	}
	return int(math.Round(sum / total))
}

// Letter maps an overall score to A..F.
func Letter(score int) string {
	for _, b := range bands {
		if score >= b.min {
			return b.grade
		}
	}
	return "F"
}
