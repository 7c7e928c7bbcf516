package model

import "sort"

// FileResult holds the issues and score for a single scanned file.
type FileResult struct {
	Issues []Issue `json:"issues"`
	Score  int     `json:"score"`
	Cached bool    `json:"cached,omitempty"`
}

type Summary struct {
	TotalFiles  int              `json:"totalFiles"`
	TotalIssues int              `json:"totalIssues"`
	BySeverity  map[Severity]int `json:"bySeverity"`
	ByCategory  map[string]int   `json:"byCategory"`
}

// ScanResult is built once per scan and treated as read-only afterwards.
type ScanResult struct {
	Root      string                `json:"root"`
	Files     map[string]FileResult `json:"files"`
	Order     []string              `json:"order"`
	Structure []Issue               `json:"structure,omitempty"`
	Summary   Summary               `json:"summary"`
}

func NewScanResult(root string) *ScanResult {
	return &ScanResult{
		Root:  root,
		Files: map[string]FileResult{},
		Order: []string{},
		Summary: Summary{
			BySeverity: map[Severity]int{},
			ByCategory: map[string]int{},
		},
	}
}

// AddFile records a file result and folds its issues into the summary.
// A path already present is replaced.
func (r *ScanResult) AddFile(path string, fr FileResult) {
	if old, ok := r.Files[path]; ok {
		r.unfold(old.Issues)
	} else {
		r.Order = append(r.Order, path)
		r.Summary.TotalFiles++
	}
	if fr.Issues == nil {
		fr.Issues = []Issue{}
	}
	r.Files[path] = fr
	r.fold(fr.Issues)
}

// AddStructure records issues that do not belong to the per-file loop.
func (r *ScanResult) AddStructure(issues ...Issue) {
	r.Structure = append(r.Structure, issues...)
	r.fold(issues)
}

func (r *ScanResult) fold(issues []Issue) {
	for _, is := range issues {
		r.Summary.TotalIssues++
		r.Summary.BySeverity[is.Severity]++
		r.Summary.ByCategory[is.Category]++
	}
}

func (r *ScanResult) unfold(issues []Issue) {
	for _, is := range issues {
		r.Summary.TotalIssues--
		r.Summary.BySeverity[is.Severity]--
		r.Summary.ByCategory[is.Category]--
	}
}

// AllIssues returns file issues in enumeration order followed by structural issues.
func (r *ScanResult) AllIssues() []Issue {
	out := []Issue{}
	for _, p := range r.Order {
		out = append(out, r.Files[p].Issues...)
	}
	return append(out, r.Structure...)
}

// IssuesByFile groups every issue, structural ones included, by file path.
func (r *ScanResult) IssuesByFile() map[string][]Issue {
	out := map[string][]Issue{}
	for _, p := range r.Order {
		if issues := r.Files[p].Issues; len(issues) > 0 {
			out[p] = append(out[p], issues...)
		}
	}
	for _, is := range r.Structure {
		out[is.File] = append(out[is.File], is)
	}
	return out
}

// Combined is a scan result plus named partitions produced by external collaborators
// (a linter run, a runtime audit). Partitions are graded together with the scan.
type Combined struct {
	Scan       *ScanResult            `json:"scan"`
	Partitions map[string]*ScanResult `json:"partitions,omitempty"`
}

func Combine(scan *ScanResult) *Combined {
	return &Combined{Scan: scan, Partitions: map[string]*ScanResult{}}
}

func (c *Combined) With(name string, part *ScanResult) *Combined {
	if part != nil {
		c.Partitions[name] = part
	}
	return c
}

// Merged flattens the scan and all partitions into one result. Files appearing in more
// than one partition have their issues concatenated and their score recomputed.
func (c *Combined) Merged() *ScanResult {
	out := NewScanResult(c.Scan.Root)
	parts := []*ScanResult{c.Scan}
	for _, name := range sortedKeys(c.Partitions) {
		parts = append(parts, c.Partitions[name])
	}
	for _, part := range parts {
		for _, p := range part.Order {
			fr := part.Files[p]
			if prev, ok := out.Files[p]; ok {
				issues := append(append([]Issue{}, prev.Issues...), fr.Issues...)
				out.AddFile(p, FileResult{Issues: issues, Score: FileScore(issues)})
				continue
			}
			out.AddFile(p, FileResult{Issues: append([]Issue{}, fr.Issues...), Score: fr.Score, Cached: fr.Cached})
		}
		out.AddStructure(part.Structure...)
	}
	return out
}

func sortedKeys(m map[string]*ScanResult) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
