package model

import "fmt"

// Issue is one rule violation at a location in a file.
type Issue struct {
	RuleID     string                 `json:"ruleId"`
	Category   string                 `json:"category"`
	Severity   Severity               `json:"severity"`
	Message    string                 `json:"message"`
	Line       int                    `json:"line"`
	Column     int                    `json:"column"`
	Source     string                 `json:"source,omitempty"`
	Suggestion string                 `json:"suggestion,omitempty"`
	File       string                 `json:"file"`
	Options    map[string]interface{} `json:"options,omitempty"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s:%d:%d [%s] %s (%s)", i.File, i.Line, i.Column, i.Severity, i.Message, i.RuleID)
}

// FileScore starts at 100 and subtracts the severity penalty of every issue, floored at 0.
func FileScore(issues []Issue) int {
	score := 100
	for _, is := range issues {
		score -= is.Severity.Penalty()
	}
	if score < 0 {
		return 0
	}
	return score
}
