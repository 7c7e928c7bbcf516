package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ajranjith/uiaudit/internal/auditerr"
	"github.com/ajranjith/uiaudit/internal/cache"
	"github.com/ajranjith/uiaudit/internal/config"
	"github.com/ajranjith/uiaudit/internal/grader"
	"github.com/ajranjith/uiaudit/internal/history"
	"github.com/ajranjith/uiaudit/internal/logging"
	"github.com/ajranjith/uiaudit/internal/model"
	"github.com/ajranjith/uiaudit/internal/plugin"
	"github.com/ajranjith/uiaudit/internal/report"
	"github.com/ajranjith/uiaudit/internal/scanner"
	"github.com/ajranjith/uiaudit/internal/support"
)

// Output file names inside the output directory.
const (
	scanResultFile  = "scan-result.json"
	gradeReportFile = "grade-report.json"
	reportMarkdown  = "report.md"
	sarifFile       = "results.sarif"
	junitFile       = "junit.xml"
	fixPlanFile     = "fix-plan.json"
	fixPatchFile    = "fix.patch"
	fixReportFile   = "fix-report.md"
	fixApplyFile    = "fix-apply.json"
	doctorFile      = "doctor.json"
)

// app holds everything a command needs for one project: resolved configuration, logger,
// plugin registry and cache.
type app struct {
	root    string
	cfg     config.Config
	cfgPath string
	log     *slog.Logger
	reg     *plugin.Registry
	cache   *cache.Cache
	stdout  io.Writer
	stderr  io.Writer
}

func loadApp(opts *rootOptions, stdout, stderr io.Writer) (*app, error) {
	root, err := filepath.Abs(opts.root)
	if err != nil {
		return nil, auditerr.Configuration("root", "invalid root %q: %w", opts.root, err)
	}
	cfg, cfgPath, warnings, err := config.Resolve(config.Flags{ConfigPath: opts.configPath, Root: root, LogLevel: opts.logLevel})
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		warn(stderr, "%s", w)
	}
	for _, patterns := range [][]string{cfg.Include, cfg.Ignore} {
		if bad, ok := scanner.ValidatePatterns(patterns); !ok {
			return nil, auditerr.Configuration("validate", "invalid glob pattern %q", bad)
		}
	}

	log := logging.New(cfg.Logging.Level, cfg.Logging.JSON, stderr)
	if cfgPath != "" {
		log.Debug("config loaded", "path", cfgPath)
	}
	reg, err := newRegistry(root, cfg, log)
	if err != nil {
		return nil, err
	}
	c := cache.New(cache.Options{
		Enabled: cfg.Cache.IsEnabled(),
		Dir:     cfg.CacheDir(root),
		MaxAge:  cfg.Cache.MaxAge.Std(),
		MaxSize: cfg.Cache.MaxSize,
	}, log)

	return &app{
		root:    root,
		cfg:     cfg,
		cfgPath: cfgPath,
		log:     log,
		reg:     reg,
		cache:   c,
		stdout:  stdout,
		stderr:  stderr,
	}, nil
}

// newRegistry registers the core plugin and every configured plugin. A plugin that cannot
// be loaded or admitted is logged and skipped.
func newRegistry(root string, cfg config.Config, log *slog.Logger) (*plugin.Registry, error) {
	reg := plugin.NewRegistry(log)
	if err := reg.Register(plugin.Core(Version)); err != nil {
		return nil, err
	}
	for _, ref := range cfg.Plugins {
		loaded, err := plugin.Load(root, ref.Name)
		if err != nil {
			log.Warn("plugin skipped", "plugin", ref.Name, "err", err)
		}
		for _, p := range loaded {
			p.Options = ref.Options
			p.Disabled = !ref.IsEnabled()
			if err := reg.Register(p); err != nil {
				log.Warn("plugin rejected", "plugin", p.Name, "err", err)
			}
		}
	}
	return reg, nil
}

func (a *app) outputDir() string {
	return a.cfg.OutputDir(a.root)
}

func (a *app) outputPath(name string) string {
	return filepath.Join(a.outputDir(), name)
}

func (a *app) newScanner() *scanner.Scanner {
	return scanner.New(a.reg, a.cache, scanner.OptionsFromConfig(&a.cfg), a.log)
}

// run is one scanned and graded project state.
type run struct {
	combined *model.Combined
	merged   *model.ScanResult
	grade    *model.GradeReport
}

func (r *run) audit(threshold int) report.Audit {
	return report.NewAudit(r.merged, r.grade, threshold)
}

// partitionFlags maps collaborator report kinds to the files holding them.
type partitionFlags struct {
	eslint     string
	lighthouse string
}

func (p partitionFlags) each(fn func(kind, path string)) {
	if p.eslint != "" {
		fn("eslint", p.eslint)
	}
	if p.lighthouse != "" {
		fn("lighthouse", p.lighthouse)
	}
}

// scanAndGrade scans the project, attaches collaborator partitions and grades the whole.
func (a *app) scanAndGrade(ctx context.Context, parts partitionFlags) (*run, error) {
	res, err := a.newScanner().Scan(ctx, a.root)
	if err != nil {
		return nil, err
	}
	combined := model.Combine(res)
	parts.each(func(kind, path string) {
		name, part, err := scanner.LoadPartition(kind, path, a.root)
		if err != nil {
			warn(a.stderr, "%s report %s ignored: %v", kind, path, err)
			return
		}
		combined.With(name, part)
	})
	return a.gradeCombined(ctx, combined), nil
}

func (a *app) gradeCombined(ctx context.Context, combined *model.Combined) *run {
	g := grader.New(a.cfg.Categories, a.reg, a.log)
	rep := g.GradeCombined(ctx, combined)
	merged := combined.Scan
	if len(combined.Partitions) > 0 {
		merged = combined.Merged()
	}
	return &run{combined: combined, merged: merged, grade: rep}
}

// writeOutputs persists the run under the output directory. Failures are warnings.
func (a *app) writeOutputs(r *run) {
	audit := r.audit(a.cfg.Output.Threshold)
	if err := support.WriteJSONAtomic(a.outputPath(scanResultFile), r.combined); err != nil {
		warn(a.stderr, "write %s: %v", scanResultFile, err)
	}
	if err := support.WriteJSONAtomic(a.outputPath(gradeReportFile), r.grade); err != nil {
		warn(a.stderr, "write %s: %v", gradeReportFile, err)
	}
	if err := support.WriteFileAtomic(a.outputPath(reportMarkdown), []byte(report.Markdown(audit))); err != nil {
		warn(a.stderr, "write %s: %v", reportMarkdown, err)
	}
	if data, err := report.SARIF(r.merged, Version); err == nil {
		if err := support.WriteFileAtomic(a.outputPath(sarifFile), data); err != nil {
			warn(a.stderr, "write %s: %v", sarifFile, err)
		}
	}
	if data, err := report.JUnit(audit); err == nil {
		if err := support.WriteFileAtomic(a.outputPath(junitFile), data); err != nil {
			warn(a.stderr, "write %s: %v", junitFile, err)
		}
	}
}

// loadRun reads a previously written scan result and grades it again.
func (a *app) loadRun(ctx context.Context, path string) (*run, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var combined model.Combined
	if err := json.Unmarshal(data, &combined); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if combined.Scan == nil {
		return nil, fmt.Errorf("%s holds no scan result", path)
	}
	if combined.Partitions == nil {
		combined.Partitions = map[string]*model.ScanResult{}
	}
	return a.gradeCombined(ctx, &combined), nil
}

// render prints the run in the requested format.
func (a *app) render(w io.Writer, r *run, format string, limit int) error {
	audit := r.audit(a.cfg.Output.Threshold)
	switch format {
	case "json":
		data, err := report.JSON(audit)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	case "markdown":
		_, err := io.WriteString(w, report.Markdown(audit))
		return err
	}
	report.Text(w, audit, limit)
	return nil
}

func (a *app) record(command string, r *run) {
	result := "PASS"
	if r.grade.Overall < a.cfg.Output.Threshold {
		result = "FAIL"
	}
	entry := support.AuditEntry{
		Command:  command,
		Root:     a.root,
		Files:    r.merged.Summary.TotalFiles,
		Issues:   r.grade.TotalIssues,
		Critical: r.grade.CriticalIssues,
		Score:    r.grade.Overall,
		Grade:    r.grade.Grade,
		Result:   result,
	}
	if err := support.AppendAudit(a.outputDir(), entry); err != nil {
		a.log.Warn("audit log append failed", "err", err)
	}
	if !a.cfg.History.IsEnabled() {
		return
	}
	store, err := a.openHistory()
	if err != nil {
		a.log.Warn("history unavailable", "err", err)
		return
	}
	defer store.Close()
	if _, err := store.Record(history.FromReport(command, a.root, r.merged, r.grade, a.cfg.Output.Threshold)); err != nil {
		a.log.Warn("history record failed", "err", err)
	}
}

func (a *app) openHistory() (*history.Store, error) {
	return history.Open(history.Options{
		Dir:          a.outputDir(),
		MaxSnapshots: a.cfg.History.MaxSnapshots,
		KeepDays:     a.cfg.History.KeepDays,
	}, a.log)
}

// checkThreshold returns errThreshold when strict is set and the score is too low.
func (a *app) checkThreshold(r *run, strict bool) error {
	if strict && r.grade.Overall < a.cfg.Output.Threshold {
		return fmt.Errorf("%w: %d < %d", errThreshold, r.grade.Overall, a.cfg.Output.Threshold)
	}
	return nil
}
