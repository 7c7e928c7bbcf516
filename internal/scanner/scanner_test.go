package scanner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/ajranjith/uiaudit/internal/auditerr"
	"github.com/ajranjith/uiaudit/internal/cache"
	"github.com/ajranjith/uiaudit/internal/config"
	"github.com/ajranjith/uiaudit/internal/model"
	"github.com/ajranjith/uiaudit/internal/plugin"
	"github.com/ajranjith/uiaudit/internal/rules"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newRegistry(t *testing.T, extra ...plugin.Plugin) *plugin.Registry {
	t.Helper()
	reg := plugin.NewRegistry(nil)
	if err := reg.Register(plugin.Core("test")); err != nil {
		t.Fatal(err)
	}
	for _, p := range extra {
		if err := reg.Register(p); err != nil {
			t.Fatal(err)
		}
	}
	return reg
}

func newScanner(t *testing.T, reg *plugin.Registry, c *cache.Cache) *Scanner {
	t.Helper()
	cfg := config.Default()
	return New(reg, c, OptionsFromConfig(&cfg), nil)
}

func TestFilesHonoursIncludeAndIgnore(t *testing.T) {
	root := t.TempDir()
	for _, rel := range []string{
		"app/page.tsx",
		"app/globals.css",
		"components/ui/button.tsx",
		"lib/utils.ts",
		"types/env.d.ts",
		"node_modules/react/index.js",
		"app/node_modules/x.js",
		".next/server/page.js",
		".uiaudit/cache/ab/x.json",
		"README.md",
		"package.json",
		"public/index.html",
	} {
		writeFile(t, root, rel, "x")
	}
	s := newScanner(t, newRegistry(t), nil)
	files, err := s.Files(root)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"app/globals.css",
		"app/page.tsx",
		"components/ui/button.tsx",
		"lib/utils.ts",
		"package.json",
		"public/index.html",
	}
	if !reflect.DeepEqual(files, want) {
		t.Fatalf("files = %v\nwant %v", files, want)
	}

	s.opts.ExcludeFunc = func(rel string) bool { return strings.HasPrefix(rel, "lib/") }
	s.opts.IncludeFunc = func(rel string) bool { return !strings.HasSuffix(rel, ".css") }
	files, _ = s.Files(root)
	if len(files) != 4 || files[0] != "app/page.tsx" {
		t.Fatalf("predicates not applied: %v", files)
	}
}

func TestScanBadRootIsFatal(t *testing.T) {
	s := newScanner(t, newRegistry(t), nil)
	_, err := s.Scan(context.Background(), filepath.Join(t.TempDir(), "missing"))
	if err == nil || !errors.Is(err, auditerr.ErrScan) {
		t.Fatalf("expected scan error, got %v", err)
	}
}

func TestScanCollectsIssuesAndUsesCache(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "app/page.tsx", "export default function Page() {\n  return <div style={{ color: \"red\" }}>Hi</div>;\n}\n")
	writeFile(t, root, "app/logo.png", "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	writeFile(t, root, "app/logo.tsx", "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

	c := cache.New(cache.Options{Enabled: true, Dir: filepath.Join(root, ".uiaudit", "cache"), MaxAge: time.Hour}, nil)
	s := newScanner(t, newRegistry(t), c)
	s.opts.SkipStructure = true

	first, err := s.Scan(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	if first.Summary.TotalFiles != 1 {
		t.Fatalf("binary file should be skipped: %v", first.Order)
	}
	fr := first.Files["app/page.tsx"]
	if len(fr.Issues) != 1 || fr.Issues[0].RuleID != "style-no-inline" || fr.Issues[0].Line != 2 || fr.Issues[0].Column != 15 {
		t.Fatalf("unexpected issues: %+v", fr.Issues)
	}
	if fr.Score != 85 || fr.Cached {
		t.Fatalf("unexpected file result: %+v", fr)
	}
	if first.Summary.BySeverity[model.SeverityError] != 1 || first.Summary.ByCategory["styling"] != 1 {
		t.Fatalf("unexpected summary: %+v", first.Summary)
	}

	second, err := s.Scan(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	if !second.Files["app/page.tsx"].Cached {
		t.Fatal("second scan should hit the cache")
	}
	if !reflect.DeepEqual(first.Files["app/page.tsx"].Issues, second.Files["app/page.tsx"].Issues) {
		t.Fatal("cached issues differ")
	}
	if st := c.Stats(); st.Hits != 1 || st.Writes != 1 {
		t.Fatalf("unexpected cache stats: %+v", st)
	}

	writeFile(t, root, "app/page.tsx", "export default function Page() {\n  return <div>Hi</div>;\n}\n")
	third, _ := s.Scan(context.Background(), root)
	if third.Files["app/page.tsx"].Cached || len(third.Files["app/page.tsx"].Issues) != 0 {
		t.Fatalf("changed content must miss the cache: %+v", third.Files["app/page.tsx"])
	}
}

func TestCacheMissesWhenPluginsChange(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "lib/flags.ts", "export const flag = \"FORBIDDEN\";\n")
	dir := filepath.Join(root, ".uiaudit", "cache")
	forbidden := plugin.Plugin{
		Name:    "house",
		Version: "1.0.0",
		Rules: []rules.Rule{{
			ID: "house-forbidden", Category: "maintainability", Severity: model.SeverityWarning,
			Message: "Forbidden marker", Pattern: regexp.MustCompile(`FORBIDDEN`),
		}},
	}
	scan := func(reg *plugin.Registry) model.FileResult {
		t.Helper()
		c := cache.New(cache.Options{Enabled: true, Dir: dir, MaxAge: time.Hour}, nil)
		s := newScanner(t, reg, c)
		s.opts.SkipStructure = true
		res, err := s.Scan(context.Background(), root)
		if err != nil {
			t.Fatal(err)
		}
		return res.Files["lib/flags.ts"]
	}
	hasRule := func(fr model.FileResult) bool {
		for _, is := range fr.Issues {
			if is.RuleID == "house-forbidden" {
				return true
			}
		}
		return false
	}

	base := scan(newRegistry(t))
	if base.Cached || hasRule(base) {
		t.Fatalf("core only: %+v", base)
	}
	withPlugin := newRegistry(t, forbidden)
	fr := scan(withPlugin)
	if fr.Cached || !hasRule(fr) || len(fr.Issues) != len(base.Issues)+1 {
		t.Fatalf("adding a plugin must miss the cache: %+v", fr)
	}
	if fr := scan(withPlugin); !fr.Cached || !hasRule(fr) {
		t.Fatalf("unchanged registry should hit the cache: %+v", fr)
	}

	forbidden.Version = "1.1.0"
	if fr := scan(newRegistry(t, forbidden)); fr.Cached {
		t.Fatal("a plugin version bump must miss the cache")
	}
	disabled := newRegistry(t, forbidden)
	disabled.SetEnabled("house", false)
	if fr := scan(disabled); !fr.Cached || hasRule(fr) {
		t.Fatalf("a disabled plugin should reuse the core-only entry: %+v", fr)
	}
}

func TestScanIsDeterministic(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "app/a.tsx", "\"use client\";\nconsole.log(1);\nexport default () => <img src=\"/x.png\" />;\n")
	writeFile(t, root, "app/b.tsx", "import _ from \"lodash\";\n// TODO: remove\n")
	s := newScanner(t, newRegistry(t), nil)
	first, _ := s.Scan(context.Background(), root)
	second, _ := s.Scan(context.Background(), root)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("scan results differ between runs")
	}
	if len(first.Structure) == 0 {
		t.Fatal("expected structure issues for a bare project")
	}
}

func TestScanHooks(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "app/a.tsx", "<div style={{ a: 1 }} />\n")
	writeFile(t, root, "app/b.tsx", "<div style={{ a: 1 }} />\n")

	var observed *model.ScanResult
	hooks := plugin.Plugin{
		Name: "hooks",
		Hooks: map[plugin.HookName][]plugin.HookFunc{
			plugin.BeforeScan: {func(_ context.Context, a plugin.HookArgs) (*plugin.HookArgs, error) {
				a.Files = []string{"app/b.tsx"}
				return &a, nil
			}},
			plugin.BeforeFileProcess: {
				func(context.Context, plugin.HookArgs) (*plugin.HookArgs, error) { panic("broken") },
				func(_ context.Context, a plugin.HookArgs) (*plugin.HookArgs, error) {
					a.Content = a.Content + "console.log(1);\n"
					return &a, nil
				},
			},
			plugin.AfterFileProcess: {func(_ context.Context, a plugin.HookArgs) (*plugin.HookArgs, error) {
				var kept []model.Issue
				for _, is := range a.Issues {
					if is.RuleID != "style-no-inline" {
						kept = append(kept, is)
					}
				}
				a.Issues = append([]model.Issue{}, kept...)
				return &a, nil
			}},
			plugin.AfterScan: {func(_ context.Context, a plugin.HookArgs) (*plugin.HookArgs, error) {
				observed = a.Result
				return nil, errors.New("observer failed")
			}},
		},
	}
	s := newScanner(t, newRegistry(t, hooks), nil)
	s.opts.SkipStructure = true
	res, err := s.Scan(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Order) != 1 || res.Order[0] != "app/b.tsx" {
		t.Fatalf("beforeScan replacement ignored: %v", res.Order)
	}
	issues := res.Files["app/b.tsx"].Issues
	if len(issues) != 1 || issues[0].RuleID != "perf-no-console" {
		t.Fatalf("file hooks not applied: %+v", issues)
	}
	if observed != res {
		t.Fatal("afterScan did not observe the result")
	}
}

func TestScanCancellation(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.ts", "x")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := newScanner(t, newRegistry(t), nil)
	res, err := s.Scan(ctx, root)
	if !errors.Is(err, context.Canceled) || res == nil || res.Summary.TotalFiles != 0 {
		t.Fatalf("expected cancelled partial result, got %v %+v", err, res)
	}
}

func TestIsBinary(t *testing.T) {
	if !IsBinary([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")) {
		t.Fatal("png not detected")
	}
	if !IsBinary([]byte("abc\x00def")) {
		t.Fatal("nul byte not detected")
	}
	if IsBinary([]byte("export const a = 1;\n")) || IsBinary(nil) {
		t.Fatal("text flagged as binary")
	}
}
