package config

import (
	"encoding/json"
	"fmt"

	"github.com/ajranjith/uiaudit/internal/model"
	"github.com/ajranjith/uiaudit/internal/rules"
	"gopkg.in/yaml.v3"
)

type RuleKind int

const (
	// RuleOff disables the rule.
	RuleOff RuleKind = iota + 1
	// RuleLevel sets the severity only.
	RuleLevel
	// RuleLevelWithOptions sets the severity and rule options.
	RuleLevelWithOptions
)

// RuleConfig is one entry of the rules table. In files it is written as a severity string
// ("off", "warning"), as {severity, options}, or as [severity, options].
type RuleConfig struct {
	Kind     RuleKind
	Severity model.Severity
	Options  map[string]interface{}
}

func Off() RuleConfig { return RuleConfig{Kind: RuleOff, Severity: model.SeverityOff} }

func Level(sev model.Severity) RuleConfig {
	if sev == model.SeverityOff {
		return Off()
	}
	return RuleConfig{Kind: RuleLevel, Severity: sev}
}

func LevelWithOptions(sev model.Severity, opts map[string]interface{}) RuleConfig {
	if len(opts) == 0 || sev == model.SeverityOff {
		return Level(sev)
	}
	return RuleConfig{Kind: RuleLevelWithOptions, Severity: sev, Options: opts}
}

func (rc RuleConfig) Override() rules.Override {
	return rules.Override{Severity: rc.Severity, Options: rc.Options}
}

func (rc RuleConfig) validate() error {
	switch rc.Kind {
	case RuleOff:
		return nil
	case RuleLevel, RuleLevelWithOptions:
		if !rc.Severity.IsRuleLevel() {
			return fmt.Errorf("invalid severity %q", rc.Severity)
		}
		return nil
	}
	return fmt.Errorf("empty rule setting")
}

type ruleObject struct {
	Severity string                 `yaml:"severity" json:"severity"`
	Options  map[string]interface{} `yaml:"options" json:"options"`
}

func fromParts(severity string, opts map[string]interface{}) (RuleConfig, error) {
	sev, err := model.ParseSeverity(severity)
	if err != nil {
		return RuleConfig{}, err
	}
	return LevelWithOptions(sev, opts), nil
}

func (rc *RuleConfig) UnmarshalYAML(node *yaml.Node) error {
	var (
		parsed RuleConfig
		err    error
	)
	switch node.Kind {
	case yaml.ScalarNode:
		parsed, err = fromParts(node.Value, nil)
	case yaml.MappingNode:
		var obj ruleObject
		if err := node.Decode(&obj); err != nil {
			return err
		}
		parsed, err = fromParts(obj.Severity, obj.Options)
	case yaml.SequenceNode:
		if len(node.Content) == 0 || len(node.Content) > 2 {
			return fmt.Errorf("line %d: rule setting list must be [severity] or [severity, options]", node.Line)
		}
		var opts map[string]interface{}
		if len(node.Content) == 2 {
			if err := node.Content[1].Decode(&opts); err != nil {
				return err
			}
		}
		parsed, err = fromParts(node.Content[0].Value, opts)
	default:
		return fmt.Errorf("line %d: unsupported rule setting", node.Line)
	}
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*rc = parsed
	return nil
}

func (rc *RuleConfig) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := fromParts(s, nil)
		if err != nil {
			return err
		}
		*rc = parsed
		return nil
	}
	var list []json.RawMessage
	if err := json.Unmarshal(data, &list); err == nil {
		if len(list) == 0 || len(list) > 2 {
			return fmt.Errorf("rule setting list must be [severity] or [severity, options]")
		}
		if err := json.Unmarshal(list[0], &s); err != nil {
			return err
		}
		var opts map[string]interface{}
		if len(list) == 2 {
			if err := json.Unmarshal(list[1], &opts); err != nil {
				return err
			}
		}
		parsed, err := fromParts(s, opts)
		if err != nil {
			return err
		}
		*rc = parsed
		return nil
	}
	var obj ruleObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("rule setting must be a severity string or {severity, options}: %w", err)
	}
	parsed, err := fromParts(obj.Severity, obj.Options)
	if err != nil {
		return err
	}
	*rc = parsed
	return nil
}

// MarshalJSON writes the canonical object form used for cache keys.
func (rc RuleConfig) MarshalJSON() ([]byte, error) {
	return json.Marshal(ruleObject{Severity: string(rc.Severity), Options: rc.Options})
}

func (rc RuleConfig) MarshalYAML() (interface{}, error) {
	if rc.Kind != RuleLevelWithOptions {
		return string(rc.Severity), nil
	}
	return ruleObject{Severity: string(rc.Severity), Options: rc.Options}, nil
}
