package model

import (
	"fmt"
	"strings"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
	SeverityOff     Severity = "off"
)

// Penalties subtracted from a file score per issue.
const (
	PenaltyError   = 15
	PenaltyWarning = 8
	PenaltyInfo    = 3
)

// ParseSeverity accepts the three rule levels plus "off". Matching is case-insensitive.
func ParseSeverity(s string) (Severity, error) {
	switch Severity(strings.ToLower(strings.TrimSpace(s))) {
	case SeverityError:
		return SeverityError, nil
	case SeverityWarning, "warn":
		return SeverityWarning, nil
	case SeverityInfo:
		return SeverityInfo, nil
	case SeverityOff:
		return SeverityOff, nil
	}
	return "", fmt.Errorf("invalid severity %q (expected error, warning, info or off)", s)
}

// IsRuleLevel reports whether s may be declared as a rule's default severity.
func (s Severity) IsRuleLevel() bool {
	return s == SeverityError || s == SeverityWarning || s == SeverityInfo
}

func (s Severity) Penalty() int {
	switch s {
	case SeverityError:
		return PenaltyError
	case SeverityWarning:
		return PenaltyWarning
	case SeverityInfo:
		return PenaltyInfo
	}
	return 0
}

// Rank orders severities for sorting, most severe first.
func (s Severity) Rank() int {
	switch s {
	case SeverityError:
		return 0
	case SeverityWarning:
		return 1
	case SeverityInfo:
		return 2
	}
	return 3
}
