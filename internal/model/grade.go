package model

import "time"

// GradeReport summarises a scan as per-category scores and an overall letter grade.
type GradeReport struct {
	CategoryScores map[string]int `json:"categoryScores"`
	Overall        int            `json:"overall"`
	Grade          string         `json:"grade"`
	CriticalIssues int            `json:"criticalIssues"`
	TotalIssues    int            `json:"totalIssues"`
	GeneratedAt    time.Time      `json:"generatedAt"`
}
