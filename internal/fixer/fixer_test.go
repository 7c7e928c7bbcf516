package fixer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"sort"
	"strings"
	"testing"

	"github.com/ajranjith/uiaudit/internal/auditerr"
	"github.com/ajranjith/uiaudit/internal/model"
	"github.com/ajranjith/uiaudit/internal/rules"
)

const pageSource = "export default function Page() {\n  console.log(\"render\");\n  return <div style={{ padding: 4 }}><img src=\"/a.png\" /></div>;\n}\n"

const pageFixed = "export default function Page() {\n  return <div><img alt=\"\" src=\"/a.png\" /></div>;\n}\n"

func issue(file, rule string) model.Issue {
	return model.Issue{RuleID: rule, Category: "test", Severity: model.SeverityWarning, File: file, Line: 1, Column: 1}
}

func setup(t *testing.T, files map[string]string) (string, *model.ScanResult) {
	t.Helper()
	root := t.TempDir()
	res := model.NewScanResult(root)
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(files[name]), 0o644); err != nil {
			t.Fatal(err)
		}
		issues := []model.Issue{
			issue(name, "perf-no-console"),
			issue(name, "maint-todo"),
			issue(name, "style-no-inline"),
			issue(name, "a11y-img-alt"),
			issue(name, "perf-no-console"),
		}
		res.AddFile(name, model.FileResult{Issues: issues, Score: model.FileScore(issues)})
	}
	return root, res
}

func read(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestFixAppliesRuleGroupsAndIsIdempotent(t *testing.T) {
	root, res := setup(t, map[string]string{"app/page.tsx": pageSource})
	f := New(rules.BuiltinFixers(), Options{}, nil)

	sum, err := f.Fix(context.Background(), root, res)
	if err != nil {
		t.Fatal(err)
	}
	if got := read(t, root, "app/page.tsx"); got != pageFixed {
		t.Fatalf("unexpected content:\n%s", got)
	}
	want := []string{"perf-no-console", "style-no-inline", "a11y-img-alt"}
	if !reflect.DeepEqual(sum.Results[0].Applied, want) {
		t.Fatalf("applied = %v, want %v", sum.Results[0].Applied, want)
	}
	if sum.TotalFiles != 1 || sum.FixedFiles != 1 || sum.TotalFixes != 3 || sum.SkippedFiles != 0 {
		t.Fatalf("unexpected summary: %+v", sum)
	}

	again, err := f.Fix(context.Background(), root, res)
	if err != nil {
		t.Fatal(err)
	}
	if again.FixedFiles != 0 || again.TotalFixes != 0 || again.Results[0].Changed {
		t.Fatalf("second run changed something: %+v", again)
	}
	if got := read(t, root, "app/page.tsx"); got != pageFixed {
		t.Fatal("second run altered the file")
	}
}

func TestFixDryRunLeavesFiles(t *testing.T) {
	root, res := setup(t, map[string]string{"app/page.tsx": pageSource})
	sum, err := New(rules.BuiltinFixers(), Options{DryRun: true, Backup: true}, nil).Fix(context.Background(), root, res)
	if err != nil {
		t.Fatal(err)
	}
	if !sum.DryRun || !sum.Results[0].Changed || sum.TotalFixes != 3 {
		t.Fatalf("dry run should report the plan: %+v", sum)
	}
	if read(t, root, "app/page.tsx") != pageSource {
		t.Fatal("dry run wrote the file")
	}
	if _, err := os.Stat(filepath.Join(root, "app", "page.tsx"+BackupSuffix)); !os.IsNotExist(err) {
		t.Fatal("dry run wrote a backup")
	}
	md := Markdown(sum)
	if !strings.Contains(md, "Fix plan (dry run)") || !strings.Contains(md, "FIX app/page.tsx style-no-inline") {
		t.Fatalf("unexpected report:\n%s", md)
	}
}

func TestFixBackup(t *testing.T) {
	root, res := setup(t, map[string]string{"app/page.tsx": pageSource})
	sum, err := New(rules.BuiltinFixers(), Options{Backup: true}, nil).Fix(context.Background(), root, res)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Results[0].Backup != "app/page.tsx.backup" {
		t.Fatalf("backup = %q", sum.Results[0].Backup)
	}
	if read(t, root, "app/page.tsx.backup") != pageSource {
		t.Fatal("backup does not hold the original content")
	}
}

func TestParallelMatchesSequential(t *testing.T) {
	files := map[string]string{}
	for _, name := range []string{"a.tsx", "b.tsx", "c/d.tsx", "e.tsx", "f.tsx"} {
		files[name] = pageSource
	}
	files["clean.tsx"] = "export const x = 1;\n"

	rootSeq, resSeq := setup(t, files)
	rootPar, resPar := setup(t, files)
	seq, err := New(rules.BuiltinFixers(), Options{}, nil).Fix(context.Background(), rootSeq, resSeq)
	if err != nil {
		t.Fatal(err)
	}
	par, err := New(rules.BuiltinFixers(), Options{Parallel: true}, nil).Fix(context.Background(), rootPar, resPar)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(seq, par) {
		t.Fatalf("parallel differs from sequential:\n%+v\n%+v", seq, par)
	}
	if seq.TotalFiles != 6 || seq.FixedFiles != 5 || seq.SkippedFiles != 1 {
		t.Fatalf("unexpected summary: %+v", seq)
	}
	for name := range files {
		if read(t, rootSeq, name) != read(t, rootPar, name) {
			t.Fatalf("%s differs between modes", name)
		}
	}
}

func TestFixerFailuresAreSkipped(t *testing.T) {
	root, res := setup(t, map[string]string{"app/page.tsx": pageSource})
	fixers := rules.BuiltinFixers()
	fixers["style-no-inline"] = func(string, []model.Issue) (string, error) { panic("bad fixer") }
	fixers["a11y-img-alt"] = func(string, []model.Issue) (string, error) { return "", errors.New("cannot fix") }

	sum, err := New(fixers, Options{}, nil).Fix(context.Background(), root, res)
	if err != nil {
		t.Fatal(err)
	}
	r := sum.Results[0]
	if !reflect.DeepEqual(r.Applied, []string{"perf-no-console"}) || len(r.Skipped) != 2 {
		t.Fatalf("unexpected result: %+v", r)
	}
	if !strings.Contains(r.Skipped[0].Reason, "bad fixer") || r.Skipped[1].RuleID != "a11y-img-alt" {
		t.Fatalf("unexpected skips: %+v", r.Skipped)
	}
}

func TestFixFailsWhenEveryWriteFails(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("directory permissions are not enforced")
	}
	root, res := setup(t, map[string]string{"app/a.tsx": pageSource, "app/b.tsx": pageSource})
	dir := filepath.Join(root, "app")
	if err := os.Chmod(dir, 0o555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })

	sum, err := New(rules.BuiltinFixers(), Options{}, nil).Fix(context.Background(), root, res)
	if !errors.Is(err, auditerr.ErrFix) {
		t.Fatalf("expected fix error, got %v", err)
	}
	if sum == nil || sum.SkippedFiles != 2 || sum.Results[0].Error == "" {
		t.Fatalf("unexpected summary: %+v", sum)
	}
}

func TestFixCancelled(t *testing.T) {
	root, res := setup(t, map[string]string{"a.tsx": pageSource})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(rules.BuiltinFixers(), Options{}, nil).Fix(ctx, root, res)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if read(t, root, "a.tsx") != pageSource {
		t.Fatal("cancelled run wrote a file")
	}
}

func TestRollbackRestoresBackups(t *testing.T) {
	root, res := setup(t, map[string]string{"app/page.tsx": pageSource, "app/other.tsx": pageSource})
	sum, err := New(rules.BuiltinFixers(), Options{Backup: true}, nil).Fix(context.Background(), root, res)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(root, "app", "other.tsx.backup")); err != nil {
		t.Fatal(err)
	}

	restored, err := Rollback(root, sum)
	if !errors.Is(err, auditerr.ErrFix) {
		t.Fatalf("expected a rollback error for the missing backup, got %v", err)
	}
	if !reflect.DeepEqual(restored, []string{"app/page.tsx"}) {
		t.Fatalf("restored = %v", restored)
	}
	if read(t, root, "app/page.tsx") != pageSource {
		t.Fatal("content not restored")
	}
	if _, err := os.Stat(filepath.Join(root, "app", "page.tsx.backup")); !os.IsNotExist(err) {
		t.Fatal("backup not removed")
	}
}
