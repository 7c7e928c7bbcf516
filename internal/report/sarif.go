package report

import (
	"encoding/json"
	"sort"

	"github.com/ajranjith/uiaudit/internal/model"
)

const sarifSchema = "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/master/Schemata/sarif-schema-2.1.0.json"

type sarifDocument struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Rules   []sarifRule `json:"rules,omitempty"`
}

type sarifRule struct {
	ID   string       `json:"id"`
	Help sarifMessage `json:"help"`
}

type sarifResult struct {
	RuleID  string          `json:"ruleId"`
	Level   string          `json:"level"`
	Message sarifMessage    `json:"message"`
	Locs    []sarifLocation `json:"locations,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysical `json:"physicalLocation"`
}

type sarifPhysical struct {
	ArtifactLocation sarifArtifact `json:"artifactLocation"`
	Region           *sarifRegion  `json:"region,omitempty"`
}

type sarifArtifact struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine   int `json:"startLine"`
	StartColumn int `json:"startColumn,omitempty"`
}

func sarifLevel(s model.Severity) string {
	switch s {
	case model.SeverityError:
		return "error"
	case model.SeverityWarning:
		return "warning"
	}
	return "note"
}

// SARIF renders every issue of res as a SARIF 2.1.0 log.
func SARIF(res *model.ScanResult, toolVersion string) ([]byte, error) {
	results := []sarifResult{}
	help := map[string]string{}
	for _, is := range res.AllIssues() {
		r := sarifResult{
			RuleID:  is.RuleID,
			Level:   sarifLevel(is.Severity),
			Message: sarifMessage{Text: is.Message},
		}
		if is.File != "" {
			loc := sarifLocation{PhysicalLocation: sarifPhysical{ArtifactLocation: sarifArtifact{URI: is.File}}}
			if is.Line > 0 {
				loc.PhysicalLocation.Region = &sarifRegion{StartLine: is.Line, StartColumn: is.Column}
			}
			r.Locs = append(r.Locs, loc)
		}
		results = append(results, r)
		if help[is.RuleID] == "" {
			help[is.RuleID] = is.Suggestion
		}
	}

	ids := make([]string, 0, len(help))
	for id := range help {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var rules []sarifRule
	for _, id := range ids {
		rules = append(rules, sarifRule{ID: id, Help: sarifMessage{Text: help[id]}})
	}

	doc := sarifDocument{
		Schema:  sarifSchema,
		Version: "2.1.0",
		Runs: []sarifRun{{
			Tool:    sarifTool{Driver: sarifDriver{Name: "uiaudit", Version: toolVersion, Rules: rules}},
			Results: results,
		}},
	}
	return json.MarshalIndent(doc, "", "  ")
}
