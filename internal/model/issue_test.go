package model

import "testing"

func issuesOf(sevs ...Severity) []Issue {
	out := make([]Issue, 0, len(sevs))
	for _, s := range sevs {
		out = append(out, Issue{RuleID: "r", Category: "styling", Severity: s})
	}
	return out
}

func repeat(s Severity, n int) []Severity {
	out := make([]Severity, n)
	for i := range out {
		out[i] = s
	}
	return out
}

func TestFileScore(t *testing.T) {
	cases := []struct {
		name   string
		issues []Issue
		want   int
	}{
		{"no issues", nil, 100},
		{"one of each", issuesOf(SeverityError, SeverityWarning, SeverityInfo), 100 - PenaltyError - PenaltyWarning - PenaltyInfo},
		{"six errors", issuesOf(repeat(SeverityError, 6)...), 10},
		{"seven errors clamp to zero", issuesOf(repeat(SeverityError, 7)...), 0},
		{"far below zero", issuesOf(repeat(SeverityError, 40)...), 0},
		{"off costs nothing", issuesOf(SeverityOff, SeverityOff), 100},
	}
	for _, c := range cases {
		if got := FileScore(c.issues); got != c.want {
			t.Fatalf("%s: FileScore = %d, want %d", c.name, got, c.want)
		}
	}
}

func TestParseSeverity(t *testing.T) {
	for in, want := range map[string]Severity{"error": SeverityError, " WARN ": SeverityWarning, "Warning": SeverityWarning, "info": SeverityInfo, "off": SeverityOff} {
		got, err := ParseSeverity(in)
		if err != nil || got != want {
			t.Fatalf("ParseSeverity(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseSeverity("fatal"); err == nil {
		t.Fatal("expected an error for an unknown level")
	}
}

func TestAddFileReplacesAndRefolds(t *testing.T) {
	r := NewScanResult("/repo")
	r.AddFile("a.tsx", FileResult{Issues: issuesOf(SeverityError, SeverityWarning)})
	r.AddFile("b.tsx", FileResult{})
	r.AddFile("a.tsx", FileResult{Issues: issuesOf(SeverityInfo)})

	if r.Summary.TotalFiles != 2 || len(r.Order) != 2 || r.Order[0] != "a.tsx" {
		t.Fatalf("unexpected files: %+v %v", r.Summary, r.Order)
	}
	if r.Summary.TotalIssues != 1 || r.Summary.BySeverity[SeverityError] != 0 || r.Summary.BySeverity[SeverityInfo] != 1 {
		t.Fatalf("summary not refolded: %+v", r.Summary)
	}
	if r.Files["b.tsx"].Issues == nil {
		t.Fatal("issues should never be nil")
	}
}
