package config

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// PluginRef names a plugin to load: a manifest path, a directory of manifests or a package
// under node_modules. It is written as a plain string or as {name, enabled, options}.
type PluginRef struct {
	Name    string                 `yaml:"name" json:"name"`
	Enabled *bool                  `yaml:"enabled" json:"enabled"`
	Options map[string]interface{} `yaml:"options" json:"options"`
}

func (p PluginRef) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

type pluginRefObject PluginRef

func (p *PluginRef) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*p = PluginRef{Name: node.Value}
		return nil
	case yaml.MappingNode:
		var obj pluginRefObject
		if err := node.Decode(&obj); err != nil {
			return err
		}
		*p = PluginRef(obj)
		return nil
	}
	return fmt.Errorf("line %d: plugin entry must be a string or a mapping", node.Line)
}

func (p *PluginRef) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*p = PluginRef{Name: s}
		return nil
	}
	var obj pluginRefObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("plugin entry must be a string or an object: %w", err)
	}
	*p = PluginRef(obj)
	return nil
}
