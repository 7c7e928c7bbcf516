// Package fixer applies the registered rule fixers to the files of a scan result.
package fixer

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/ajranjith/uiaudit/internal/auditerr"
	"github.com/ajranjith/uiaudit/internal/logging"
	"github.com/ajranjith/uiaudit/internal/model"
	"github.com/ajranjith/uiaudit/internal/rules"
	"github.com/ajranjith/uiaudit/internal/support"
)

// BackupSuffix is appended to a file name for the copy taken before it is rewritten.
const BackupSuffix = ".backup"

type Options struct {
	DryRun   bool
	Backup   bool
	Parallel bool
}

// Skip records a fixer that failed for a file.
type Skip struct {
	RuleID string `json:"ruleId"`
	Reason string `json:"reason"`
}

// Result is the outcome for one file.
type Result struct {
	File    string   `json:"file"`
	Changed bool     `json:"changed"`
	Applied []string `json:"applied"`
	Skipped []Skip   `json:"skipped,omitempty"`
	Backup  string   `json:"backup,omitempty"`
	Error   string   `json:"error,omitempty"`

	written bool
	failed  bool
}

type Summary struct {
	DryRun       bool     `json:"dryRun"`
	TotalFiles   int      `json:"totalFiles"`
	FixedFiles   int      `json:"fixedFiles"`
	SkippedFiles int      `json:"skippedFiles"`
	TotalFixes   int      `json:"totalFixes"`
	Results      []Result `json:"results"`
}

type Fixer struct {
	fixers map[string]rules.FixFunc
	opts   Options
	log    *slog.Logger
}

func New(fixers map[string]rules.FixFunc, opts Options, log *slog.Logger) *Fixer {
	return &Fixer{fixers: fixers, opts: opts, log: logging.OrDiscard(log)}
}

// Fixable reports whether a fixer is registered for ruleID.
func (f *Fixer) Fixable(ruleID string) bool {
	_, ok := f.fixers[ruleID]
	return ok
}

// Fix rewrites every file of res that has at least one fixable issue. Paths are relative to
// root. Individual failures are recorded on the file's Result; an error is returned only when
// writes were attempted and every one of them failed, or when ctx is cancelled.
func (f *Fixer) Fix(ctx context.Context, root string, res *model.ScanResult) (*Summary, error) {
	byFile := res.IssuesByFile()
	var files []string
	for _, p := range res.Order {
		if f.hasFixable(byFile[p]) {
			files = append(files, p)
		}
	}
	for _, is := range res.Structure {
		if f.Fixable(is.RuleID) && !contains(files, is.File) {
			files = append(files, is.File)
		}
	}

	results := make([]Result, len(files))
	if f.opts.Parallel {
		var wg sync.WaitGroup
		for i, p := range files {
			wg.Add(1)
			go func(i int, p string) {
				defer wg.Done()
				if ctx.Err() != nil {
					results[i] = Result{File: p, Applied: []string{}, Error: ctx.Err().Error()}
					return
				}
				results[i] = f.fixFile(root, p, byFile[p])
			}(i, p)
		}
		wg.Wait()
	} else {
		for i, p := range files {
			if err := ctx.Err(); err != nil {
				return summarize(results[:i], f.opts.DryRun), err
			}
			results[i] = f.fixFile(root, p, byFile[p])
		}
	}
	if err := ctx.Err(); err != nil {
		return summarize(results, f.opts.DryRun), err
	}

	sum := summarize(results, f.opts.DryRun)
	var attempted int
	var errs []error
	for _, r := range results {
		if r.written || r.failed {
			attempted++
		}
		if r.failed {
			errs = append(errs, errors.New(r.File+": "+r.Error))
		}
	}
	if attempted > 0 && len(errs) == attempted {
		return sum, auditerr.Fix("write", errors.Join(errs...)).With("files", attempted)
	}
	return sum, nil
}

func (f *Fixer) hasFixable(issues []model.Issue) bool {
	for _, is := range issues {
		if f.Fixable(is.RuleID) {
			return true
		}
	}
	return false
}

// Apply runs the fixers for issues against content and returns the new content together with
// the rule IDs that changed it and the fixers that failed. Rule groups run in order of first
// appearance, each on the output of the previous one.
func (f *Fixer) Apply(content string, issues []model.Issue) (string, []string, []Skip) {
	var order []string
	groups := map[string][]model.Issue{}
	for _, is := range issues {
		if !f.Fixable(is.RuleID) {
			continue
		}
		if _, ok := groups[is.RuleID]; !ok {
			order = append(order, is.RuleID)
		}
		groups[is.RuleID] = append(groups[is.RuleID], is)
	}

	applied := []string{}
	var skipped []Skip
	for _, id := range order {
		fn := f.fixers[id]
		group := groups[id]
		cur := content
		out, err := auditerr.SafeValue(func() (string, error) { return fn(cur, group) })
		if err != nil {
			skipped = append(skipped, Skip{RuleID: id, Reason: err.Error()})
			continue
		}
		if out != content {
			applied = append(applied, id)
			content = out
		}
	}
	return content, applied, skipped
}

func (f *Fixer) fixFile(root, rel string, issues []model.Issue) Result {
	res := Result{File: rel, Applied: []string{}}
	path := filepath.Join(root, filepath.FromSlash(rel))
	data, err := os.ReadFile(path)
	if err != nil {
		res.Error = err.Error()
		f.log.Warn("fix skipped", "file", rel, "err", err)
		return res
	}

	original := string(data)
	updated, applied, skipped := f.Apply(original, issues)
	res.Applied = applied
	res.Skipped = skipped
	for _, s := range skipped {
		f.log.Warn("fixer failed", "file", rel, "rule", s.RuleID, "reason", s.Reason)
	}
	res.Changed = updated != original
	if !res.Changed || f.opts.DryRun {
		return res
	}

	if f.opts.Backup {
		backup := path + BackupSuffix
		if err := support.CopyFileAtomic(path, backup); err != nil {
			res.failed = true
			res.Error = "backup: " + err.Error()
			f.log.Warn("backup failed", "file", rel, "err", err)
			return res
		}
		res.Backup = rel + BackupSuffix
	}
	if err := support.WriteFileAtomic(path, []byte(updated)); err != nil {
		res.failed = true
		res.Error = err.Error()
		f.log.Warn("write failed", "file", rel, "err", err)
		return res
	}
	res.written = true
	f.log.Debug("fixed", "file", rel, "rules", applied)
	return res
}

func summarize(results []Result, dryRun bool) *Summary {
	sum := &Summary{DryRun: dryRun, TotalFiles: len(results), Results: results}
	for _, r := range results {
		if r.Changed && !r.failed && r.Error == "" {
			sum.FixedFiles++
			sum.TotalFixes += len(r.Applied)
			continue
		}
		sum.SkippedFiles++
	}
	return sum
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
