package main

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/ajranjith/uiaudit/internal/config"
	"github.com/ajranjith/uiaudit/internal/fixer"
	"github.com/ajranjith/uiaudit/internal/mcpio"
	"github.com/ajranjith/uiaudit/internal/plugin"
)

func init() {
	color.NoColor = true
}

type auditDoc struct {
	Grade struct {
		CategoryScores map[string]int `json:"categoryScores"`
		Overall        int            `json:"overall"`
		Grade          string         `json:"grade"`
		CriticalIssues int            `json:"criticalIssues"`
		TotalIssues    int            `json:"totalIssues"`
	} `json:"grade"`
	Threshold int  `json:"threshold"`
	Pass      bool `json:"pass"`
}

func fixture(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	if err := copyDir(filepath.Join("testdata", "e2e"), tmp); err != nil {
		t.Fatalf("copy fixture: %v", err)
	}
	return tmp
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func scanJSON(t *testing.T, root string) auditDoc {
	t.Helper()
	out, stderr, err := runCLI(t, "scan", "--root", root, "--format", "json")
	if err != nil {
		t.Fatalf("scan: %v\n%s", err, stderr)
	}
	var doc auditDoc
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("parse scan output: %v\n%s", err, out)
	}
	return doc
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestEndToEndScanFixRescan(t *testing.T) {
	tmp := fixture(t)

	before := scanJSON(t, tmp)
	if before.Grade.TotalIssues != 2 || before.Grade.CriticalIssues != 2 {
		t.Fatalf("expected 2 critical issues, got %+v", before.Grade)
	}
	if before.Grade.Overall >= 100 {
		t.Fatalf("expected score below 100, got %d", before.Grade.Overall)
	}
	if before.Grade.CategoryScores["styling"] != 90 || before.Grade.CategoryScores["accessibility"] != 90 {
		t.Fatalf("unexpected category scores: %v", before.Grade.CategoryScores)
	}
	for _, name := range []string{scanResultFile, gradeReportFile, reportMarkdown, sarifFile, junitFile} {
		if _, err := os.Stat(filepath.Join(tmp, ".uiaudit", name)); err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
	}

	out, stderr, err := runCLI(t, "fix", "--root", tmp, "--format", "text")
	if err != nil {
		t.Fatalf("fix: %v\n%s", err, stderr)
	}
	if !strings.Contains(out, "Fixed 2 of 2 files (2 fixes, 0 skipped)") {
		t.Fatalf("unexpected fix output:\n%s", out)
	}
	if got := readFile(t, filepath.Join(tmp, "components", "banner.tsx")); strings.Contains(got, "style=") {
		t.Fatalf("inline style not removed:\n%s", got)
	}
	if got := readFile(t, filepath.Join(tmp, "components", "logo.tsx")); !strings.Contains(got, `<Image alt="" src="/logo.png"`) {
		t.Fatalf("alt not added:\n%s", got)
	}

	after := scanJSON(t, tmp)
	if after.Grade.TotalIssues != 0 || after.Grade.Overall != 100 || after.Grade.Grade != "A" {
		t.Fatalf("expected a clean A after fixing, got %+v", after.Grade)
	}

	log := readFile(t, filepath.Join(tmp, ".uiaudit", "audit.log"))
	if strings.Count(log, "\n") != 4 {
		t.Fatalf("expected 4 audit entries (scan, fix, fix rescan, scan), got:\n%s", log)
	}
}

func TestScanStrictThreshold(t *testing.T) {
	tmp := fixture(t)
	_, _, err := runCLI(t, "scan", "--root", tmp, "--strict", "--threshold", "99")
	if !errors.Is(err, errThreshold) {
		t.Fatalf("expected threshold failure, got %v", err)
	}
	var buf bytes.Buffer
	if code := exitCode(err, &buf); code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
	if _, _, err := runCLI(t, "scan", "--root", tmp, "--strict", "--threshold", "50"); err != nil {
		t.Fatalf("expected pass at threshold 50, got %v", err)
	}
}

func TestInvalidFlagsAreConfigurationErrors(t *testing.T) {
	tmp := fixture(t)
	for _, args := range [][]string{
		{"scan", "--root", tmp, "--format", "xml"},
		{"scan", "--root", tmp, "--threshold", "101"},
		{"fix", "--root", tmp, "--rule", "no-such-rule"},
	} {
		_, _, err := runCLI(t, args...)
		if err == nil {
			t.Fatalf("%v: expected an error", args)
		}
		var buf bytes.Buffer
		if code := exitCode(err, &buf); code != 2 {
			t.Fatalf("%v: expected exit code 2, got %d (%v)", args, code, err)
		}
	}
}

func TestGradeReusesLastScan(t *testing.T) {
	tmp := fixture(t)
	first := scanJSON(t, tmp)

	out, stderr, err := runCLI(t, "grade", "--root", tmp, "--format", "json")
	if err != nil {
		t.Fatalf("grade: %v\n%s", err, stderr)
	}
	var doc auditDoc
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("parse grade output: %v", err)
	}
	if doc.Grade.Overall != first.Grade.Overall || doc.Grade.TotalIssues != first.Grade.TotalIssues {
		t.Fatalf("grade differs from scan: %+v vs %+v", doc.Grade, first.Grade)
	}
}

func TestGradeScansWhenNoResult(t *testing.T) {
	tmp := fixture(t)
	out, stderr, err := runCLI(t, "grade", "--root", tmp, "--format", "markdown")
	if err != nil {
		t.Fatalf("grade: %v\n%s", err, stderr)
	}
	if !strings.Contains(out, "**Score:**") {
		t.Fatalf("expected markdown report, got:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(tmp, ".uiaudit", scanResultFile)); err != nil {
		t.Fatalf("expected scan result written: %v", err)
	}
}

func TestFixDryRunLeavesFiles(t *testing.T) {
	tmp := fixture(t)
	banner := filepath.Join(tmp, "components", "banner.tsx")
	original := readFile(t, banner)

	out, stderr, err := runCLI(t, "fix", "--root", tmp, "--dry-run")
	if err != nil {
		t.Fatalf("fix: %v\n%s", err, stderr)
	}
	if !strings.Contains(out, "Would fix 2 of 2 files") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if readFile(t, banner) != original {
		t.Fatal("dry run modified a file")
	}
	if _, err := os.Stat(filepath.Join(tmp, ".uiaudit", fixApplyFile)); !os.IsNotExist(err) {
		t.Fatalf("dry run wrote %s", fixApplyFile)
	}
	plan := readFile(t, filepath.Join(tmp, ".uiaudit", fixReportFile))
	if !strings.Contains(plan, "# Fix plan (dry run)") {
		t.Fatalf("unexpected fix report:\n%s", plan)
	}
	patch := readFile(t, filepath.Join(tmp, ".uiaudit", fixPatchFile))
	if !strings.Contains(patch, "FIX components/banner.tsx style-no-inline") {
		t.Fatalf("unexpected patch:\n%s", patch)
	}
}

func TestFixRuleFilter(t *testing.T) {
	tmp := fixture(t)
	if _, stderr, err := runCLI(t, "fix", "--root", tmp, "--rule", "a11y-img-alt"); err != nil {
		t.Fatalf("fix: %v\n%s", err, stderr)
	}
	if !strings.Contains(readFile(t, filepath.Join(tmp, "components", "banner.tsx")), "style=") {
		t.Fatal("filtered fix touched the inline style")
	}
	if !strings.Contains(readFile(t, filepath.Join(tmp, "components", "logo.tsx")), `alt=""`) {
		t.Fatal("alt fixer did not run")
	}
}

func TestFixBackupAndRollback(t *testing.T) {
	tmp := fixture(t)
	banner := filepath.Join(tmp, "components", "banner.tsx")
	original := readFile(t, banner)

	if _, stderr, err := runCLI(t, "fix", "--root", tmp, "--backup"); err != nil {
		t.Fatalf("fix: %v\n%s", err, stderr)
	}
	if _, err := os.Stat(banner + fixer.BackupSuffix); err != nil {
		t.Fatalf("missing backup: %v", err)
	}
	if readFile(t, banner) == original {
		t.Fatal("fix did not change the file")
	}

	out, stderr, err := runCLI(t, "rollback", "--root", tmp)
	if err != nil {
		t.Fatalf("rollback: %v\n%s", err, stderr)
	}
	if !strings.Contains(out, "Rolled back 2 files") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if readFile(t, banner) != original {
		t.Fatal("rollback did not restore the file")
	}
	if _, err := os.Stat(banner + fixer.BackupSuffix); !os.IsNotExist(err) {
		t.Fatal("backup not removed")
	}
	if _, err := os.Stat(filepath.Join(tmp, ".uiaudit", fixApplyFile)); !os.IsNotExist(err) {
		t.Fatalf("%s not retired", fixApplyFile)
	}

	if _, _, err := runCLI(t, "rollback", "--root", tmp); err == nil {
		t.Fatal("expected an error with nothing to roll back")
	}
}

func TestInitWritesLoadableConfig(t *testing.T) {
	tmp := t.TempDir()
	out, _, err := runCLI(t, "init", "--root", tmp)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	path := filepath.Join(tmp, config.DiscoveryNames[0])
	if !strings.Contains(out, path) {
		t.Fatalf("unexpected output: %s", out)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load written config: %v", err)
	}
	if cfg.Output.Threshold != 70 || !cfg.Cache.IsEnabled() || cfg.Cache.MaxAge != config.Duration(config.DefaultCacheMaxAge) {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	_, _, err = runCLI(t, "init", "--root", tmp)
	var buf bytes.Buffer
	if err == nil || exitCode(err, &buf) != 2 {
		t.Fatalf("expected a configuration error on the second init, got %v", err)
	}
	if _, _, err := runCLI(t, "init", "--root", tmp, "--force"); err != nil {
		t.Fatalf("init --force: %v", err)
	}
}

func TestRulesListing(t *testing.T) {
	tmp := fixture(t)
	out, _, err := runCLI(t, "rules", "--root", tmp, "--json", "--category", "styling")
	if err != nil {
		t.Fatalf("rules: %v", err)
	}
	var rows []ruleRow
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rows) == 0 {
		t.Fatal("no styling rules listed")
	}
	found := false
	for _, r := range rows {
		if r.Category != "styling" {
			t.Fatalf("category filter leaked %s", r.ID)
		}
		if r.ID == "style-no-inline" {
			found = true
			if !r.Fixable || r.Severity != "error" || r.Origin != "builtin" {
				t.Fatalf("unexpected row: %+v", r)
			}
		}
	}
	if !found {
		t.Fatal("style-no-inline not listed")
	}
}

func TestRulesListingHonoursOverrides(t *testing.T) {
	tmp := fixture(t)
	cfg := "include:\n  - \"components/*.tsx\"\nrules:\n  style-no-inline: warning\n"
	if err := os.WriteFile(filepath.Join(tmp, config.DiscoveryNames[0]), []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	out, _, err := runCLI(t, "rules", "--root", tmp, "--category", "styling")
	if err != nil {
		t.Fatalf("rules: %v", err)
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "style-no-inline ") && !strings.Contains(line, "warning") {
			t.Fatalf("override not applied: %s", line)
		}
	}
}

func TestDoctorOnFixture(t *testing.T) {
	tmp := fixture(t)
	if _, stderr, err := runCLI(t, "doctor", "--root", tmp); err != nil {
		t.Fatalf("doctor: %v\n%s", err, stderr)
	}
	var rep doctorReport
	if err := json.Unmarshal([]byte(readFile(t, filepath.Join(tmp, ".uiaudit", doctorFile))), &rep); err != nil {
		t.Fatalf("parse doctor.json: %v", err)
	}
	if rep.Status != "OK" {
		t.Fatalf("expected OK, got %s (%v)", rep.Status, rep.Reasons)
	}

	if err := os.Remove(filepath.Join(tmp, "components.json")); err != nil {
		t.Fatal(err)
	}
	out, _, err := runCLI(t, "doctor", "--root", tmp, "--json")
	if err != nil {
		t.Fatalf("doctor: %v", err)
	}
	rep = doctorReport{}
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if rep.Status != "DEGRADED" {
		t.Fatalf("expected DEGRADED without components.json, got %s", rep.Status)
	}
}

func TestBundleCollectsOutputs(t *testing.T) {
	tmp := fixture(t)
	scanJSON(t, tmp)
	out, stderr, err := runCLI(t, "bundle", "--root", tmp)
	if err != nil {
		t.Fatalf("bundle: %v\n%s", err, stderr)
	}
	matches, _ := filepath.Glob(filepath.Join(tmp, ".uiaudit", "support-bundle_*.zip"))
	if len(matches) != 1 {
		t.Fatalf("expected one bundle, got %v (%s)", matches, out)
	}
	zr, err := zip.OpenReader(matches[0])
	if err != nil {
		t.Fatalf("open bundle: %v", err)
	}
	defer zr.Close()
	names := map[string]bool{}
	for _, f := range zr.File {
		names[f.Name] = true
	}
	for _, want := range []string{scanResultFile, gradeReportFile, "audit.log", "config/uiaudit.config.yml"} {
		if !names[want] {
			t.Fatalf("bundle missing %s: %v", want, names)
		}
	}
}

func TestCacheCommands(t *testing.T) {
	tmp := fixture(t)
	scanJSON(t, tmp)
	out, _, err := runCLI(t, "cache", "stats", "--root", tmp, "--json")
	if err != nil {
		t.Fatalf("cache stats: %v", err)
	}
	var rep cacheReport
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !rep.Enabled || rep.Cleanup.Entries != 3 {
		t.Fatalf("expected 3 cached entries, got %+v", rep)
	}
	if _, _, err := runCLI(t, "cache", "clean", "--root", tmp); err != nil {
		t.Fatalf("cache clean: %v", err)
	}
	out, _, _ = runCLI(t, "cache", "stats", "--root", tmp, "--json")
	rep = cacheReport{}
	_ = json.Unmarshal([]byte(out), &rep)
	if rep.Cleanup.Entries != 0 {
		t.Fatalf("expected an empty cache, got %+v", rep)
	}
}

func TestMCPTools(t *testing.T) {
	tmp := fixture(t)
	srv := newMCPServer(&rootOptions{root: "."}, io.Discard)

	names := []string{}
	for _, tool := range srv.Tools() {
		names = append(names, tool.Name)
	}
	if strings.Join(names, ",") != "audit_fix,audit_grade,audit_rules,audit_scan,cache_stats" {
		t.Fatalf("unexpected tools: %v", names)
	}

	call := func(name string, args map[string]interface{}) map[string]interface{} {
		params, _ := json.Marshal(map[string]interface{}{"name": name, "arguments": args})
		resp, ok := srv.Handle(context.Background(), &mcpio.Request{JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: params})
		if !ok || resp.Error != nil {
			t.Fatalf("%s: unexpected response %+v", name, resp)
		}
		return resp.Result.(map[string]interface{})
	}
	text := func(res map[string]interface{}) string {
		return res["content"].([]map[string]interface{})[0]["text"].(string)
	}

	res := call("audit_grade", map[string]interface{}{"root": tmp})
	if res["isError"] != nil {
		t.Fatalf("audit_grade failed: %s", text(res))
	}
	var grade struct {
		TotalIssues int `json:"totalIssues"`
	}
	if err := json.Unmarshal([]byte(text(res)), &grade); err != nil || grade.TotalIssues != 2 {
		t.Fatalf("unexpected grade %s (%v)", text(res), err)
	}

	res = call("audit_fix", map[string]interface{}{"root": tmp, "dryRun": true})
	var sum fixer.Summary
	if err := json.Unmarshal([]byte(text(res)), &sum); err != nil || !sum.DryRun || sum.FixedFiles != 2 {
		t.Fatalf("unexpected fix summary %s (%v)", text(res), err)
	}

	res = call("audit_scan", map[string]interface{}{"root": filepath.Join(tmp, "missing")})
	if res["isError"] != true {
		t.Fatalf("expected a tool error for a missing root, got %v", res)
	}
}

func copyDir(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, info.Mode())
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, info.Mode())
	})
}

func TestRegistryKeepsPluginsBesideBrokenManifest(t *testing.T) {
	root := t.TempDir()
	manifests := map[string]string{
		"a.yml": "name: a\nrules:\n  - {id: a-rule, category: styling, severity: info, message: m, pattern: a}\n",
		"b.yml": "name: b\nrules:\n  - {id: b-rule, category: styling, severity: info, message: m, pattern: \"(\"}\n",
		"c.yml": "name: c\nrules:\n  - {id: c-rule, category: styling, severity: info, message: m, pattern: c}\n",
	}
	if err := os.MkdirAll(filepath.Join(root, "plugins"), 0o755); err != nil {
		t.Fatal(err)
	}
	for name, body := range manifests {
		if err := os.WriteFile(filepath.Join(root, "plugins", name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	cfg := config.Default()
	cfg.Plugins = []config.PluginRef{{Name: "./plugins"}}

	reg, err := newRegistry(root, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	var names []string
	for _, p := range reg.Plugins() {
		names = append(names, p.Name)
	}
	if got, want := strings.Join(names, ","), plugin.CoreName+",a,c"; got != want {
		t.Fatalf("registered plugins = %s, want %s", got, want)
	}
	ids := map[string]bool{}
	for _, r := range reg.Rules() {
		ids[r.ID] = true
	}
	if !ids["a-rule"] || !ids["c-rule"] || ids["b-rule"] {
		t.Fatalf("unexpected rule set: %v", ids)
	}
}
