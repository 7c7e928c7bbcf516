package report

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/ajranjith/uiaudit/internal/model"
)

func sample() Audit {
	res := model.NewScanResult("/p")
	a := []model.Issue{
		{RuleID: "style-no-inline", Category: "styling", Severity: model.SeverityError, Message: "Inline | style", Line: 3, Column: 5, File: "app/a.tsx", Suggestion: "Use classes"},
		{RuleID: "maint-todo", Category: "maintainability", Severity: model.SeverityInfo, Message: "TODO", Line: 1, Column: 4, File: "app/a.tsx"},
	}
	res.AddFile("app/a.tsx", model.FileResult{Issues: a, Score: model.FileScore(a)})
	res.AddFile("app/b.tsx", model.FileResult{Score: 100})
	res.AddStructure(model.Issue{RuleID: "structure-ui-dir", Category: "structure", Severity: model.SeverityWarning, Message: "missing", Line: 1, Column: 1, File: "components/ui"})
	rep := &model.GradeReport{
		CategoryScores: map[string]int{"styling": 80, "maintainability": 90, "structure": 90},
		Overall:        65,
		Grade:          "D",
		CriticalIssues: 1,
		TotalIssues:    3,
	}
	return NewAudit(res, rep, 70)
}

func TestTextAndSummary(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	Text(&buf, sample(), 1)
	out := buf.String()
	for _, want := range []string{
		"app/a.tsx",
		"1:4   info    TODO maint-todo",
		"... 1 more",
		"components/ui",
		"Score: 65  Grade: D",
		"FAIL (threshold 70)",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestMarkdown(t *testing.T) {
	md := Markdown(sample())
	if !strings.Contains(md, "**Score:** 65 (D) | **Status:** FAIL") {
		t.Fatalf("missing header:\n%s", md)
	}
	if !strings.Contains(md, `| 3:5 | error | style-no-inline | Inline \| style |`) {
		t.Fatalf("missing escaped row:\n%s", md)
	}
	if strings.Index(md, "1:4") > strings.Index(md, "3:5") {
		t.Fatal("issues not sorted by position")
	}
}

func TestSARIF(t *testing.T) {
	data, err := SARIF(sample().Scan, "1.2.3")
	if err != nil {
		t.Fatal(err)
	}
	var doc sarifDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	run := doc.Runs[0]
	if run.Tool.Driver.Version != "1.2.3" || len(run.Results) != 3 || len(run.Tool.Driver.Rules) != 3 {
		t.Fatalf("unexpected sarif: %+v", run)
	}
	first := run.Results[0]
	if first.Level != "error" || first.Locs[0].PhysicalLocation.Region.StartColumn != 5 {
		t.Fatalf("unexpected first result: %+v", first)
	}
	if run.Results[1].Level != "note" || run.Results[2].Level != "warning" {
		t.Fatalf("unexpected levels: %+v", run.Results)
	}
}

func TestJUnit(t *testing.T) {
	data, err := JUnit(sample())
	if err != nil {
		t.Fatal(err)
	}
	var doc junitTestsuites
	if err := xml.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	suite := doc.Testsuites[0]
	if suite.Tests != 4 || suite.Failures != 2 {
		t.Fatalf("unexpected suite counts: %+v", suite)
	}
	if suite.Cases[0].Name != "app/a.tsx" || suite.Cases[0].Failure == nil || suite.Cases[1].Failure != nil {
		t.Fatalf("unexpected cases: %+v", suite.Cases)
	}
	if suite.Cases[2].Name != "components/ui" || suite.Cases[3].Failure == nil {
		t.Fatalf("unexpected tail cases: %+v", suite.Cases)
	}
}
