// Package scanner walks a project, evaluates the registered rules against every selected
// file and assembles a ScanResult. Files are processed one at a time in enumeration order.
package scanner

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ajranjith/uiaudit/internal/auditerr"
	"github.com/ajranjith/uiaudit/internal/cache"
	"github.com/ajranjith/uiaudit/internal/config"
	"github.com/ajranjith/uiaudit/internal/logging"
	"github.com/ajranjith/uiaudit/internal/model"
	"github.com/ajranjith/uiaudit/internal/plugin"
	"github.com/ajranjith/uiaudit/internal/rules"
)

var errNotDir = errors.New("not a directory")

type Options struct {
	Include   []string
	Ignore    []string
	Overrides map[string]rules.Override
	// ConfigDigest identifies the rule-relevant configuration in cache keys. The active
	// plugin set is folded in at scan time.
	ConfigDigest string
	// OutputDir is skipped during enumeration, relative to the root.
	OutputDir string
	// IncludeFunc and ExcludeFunc refine the glob selection.
	IncludeFunc func(rel string) bool
	ExcludeFunc func(rel string) bool
	// SkipStructure disables project-level checks, e.g. when rescanning a subset.
	SkipStructure bool
}

// OptionsFromConfig derives scan options from a resolved configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Include:      cfg.Include,
		Ignore:       cfg.Ignore,
		Overrides:    cfg.Overrides(),
		ConfigDigest: cache.ConfigDigest(cfg.RelevantSubset()),
		OutputDir:    cfg.Paths.OutputDir,
	}
}

type Scanner struct {
	reg   *plugin.Registry
	cache *cache.Cache
	opts  Options
	log   *slog.Logger
}

// New builds a scanner. A nil cache disables caching.
func New(reg *plugin.Registry, c *cache.Cache, opts Options, log *slog.Logger) *Scanner {
	if c == nil {
		c = cache.New(cache.Options{}, nil)
	}
	return &Scanner{reg: reg, cache: c, opts: opts, log: logging.OrDiscard(log)}
}

// Scan audits root. Only a failure to enumerate root is returned as an error; files that
// cannot be read or evaluated are logged and skipped. Cancellation is checked between files
// and returns the partial result together with the context error.
func (s *Scanner) Scan(ctx context.Context, root string) (*model.ScanResult, error) {
	files, err := s.Files(root)
	if err != nil {
		return nil, err
	}
	args := s.reg.RunHook(ctx, plugin.BeforeScan, plugin.HookArgs{Root: root, Files: files})
	files = args.Files

	digest := s.cacheDigest()
	result := model.NewScanResult(root)
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		rel := relPath(root, f)
		fr, err := s.scanFile(ctx, root, rel, digest)
		if errors.Is(err, errBinary) {
			s.log.Debug("binary file skipped", "file", rel)
			continue
		}
		if err != nil {
			s.log.Warn("file skipped", "file", rel, "err", err)
			continue
		}
		result.AddFile(rel, fr)
	}

	if !s.opts.SkipStructure {
		issues, errs := rules.RunChecks(root, s.reg.Checks(), s.opts.Overrides)
		for _, e := range errs {
			s.log.Warn("structure check failed", "err", e)
		}
		result.AddStructure(issues...)
	}

	s.reg.RunHook(ctx, plugin.AfterScan, plugin.HookArgs{Root: root, Result: result})
	s.log.Debug("scan complete", "root", root, "files", result.Summary.TotalFiles, "issues", result.Summary.TotalIssues)
	return result, nil
}

// ScanFile audits a single file relative to root, outside a full scan.
func (s *Scanner) ScanFile(ctx context.Context, root, rel string) (model.FileResult, error) {
	return s.scanFile(ctx, root, relPath(root, rel), s.cacheDigest())
}

// cacheDigest combines the configuration digest with the registry fingerprint, so adding,
// disabling or upgrading a plugin invalidates cached results.
func (s *Scanner) cacheDigest() string {
	return cache.ConfigDigest(struct {
		Config  string               `json:"config"`
		Plugins []plugin.Fingerprint `json:"plugins"`
	}{s.opts.ConfigDigest, s.reg.Fingerprint()})
}

var errBinary = errors.New("binary content")

func (s *Scanner) scanFile(ctx context.Context, root, rel, digest string) (model.FileResult, error) {
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return model.FileResult{}, auditerr.Scan("read", err).With("file", rel)
	}
	if IsBinary(data) {
		return model.FileResult{}, auditerr.Scan("read", errBinary).With("file", rel)
	}

	key := cache.Key(rel, data, digest)
	if hit, ok := s.cache.Get(key); ok {
		return model.FileResult{Issues: hit.Issues, Score: hit.Score, Cached: true}, nil
	}

	content := string(data)
	args := s.reg.RunHook(ctx, plugin.BeforeFileProcess, plugin.HookArgs{Root: root, Path: rel, Content: content})
	content = s.reg.Process(rel, args.Content)

	issues, errs := rules.EvaluateAll(s.reg.Rules(), rel, content, s.opts.Overrides)
	for _, e := range errs {
		s.log.Warn("rule failed", "file", rel, "err", e)
	}
	args = s.reg.RunHook(ctx, plugin.AfterFileProcess, plugin.HookArgs{Root: root, Path: rel, Issues: issues})
	issues = args.Issues

	score := model.FileScore(issues)
	s.cache.Set(key, rel, int64(len(data)), cache.Data{Issues: issues, Score: score})
	return model.FileResult{Issues: issues, Score: score}, nil
}
