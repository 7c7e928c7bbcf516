package config

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/ajranjith/uiaudit/internal/auditerr"
	"github.com/ajranjith/uiaudit/internal/rules"
	"gopkg.in/yaml.v3"
)

// DiscoveryNames are the config files looked up in the project root, in order.
var DiscoveryNames = []string{
	"uiaudit.config.yml",
	"uiaudit.config.yaml",
	"uiaudit.config.json",
	filepath.Join(".uiaudit", "config.yml"),
}

// Config is the compiled-in configuration with optional overrides.
type Config struct {
	SchemaVersion string                `yaml:"schemaVersion" json:"schemaVersion"`
	Rules         map[string]RuleConfig `yaml:"rules" json:"rules"`
	Categories    map[string]float64    `yaml:"categories" json:"categories"`
	Include       []string              `yaml:"include" json:"include"`
	Ignore        []string              `yaml:"ignore" json:"ignore"`
	Plugins       []PluginRef           `yaml:"plugins" json:"plugins"`
	Paths         PathsConfig           `yaml:"paths" json:"paths"`
	Cache         CacheConfig           `yaml:"cache" json:"cache"`
	Output        OutputConfig          `yaml:"output" json:"output"`
	Fix           FixConfig             `yaml:"fix" json:"fix"`
	History       HistoryConfig         `yaml:"history" json:"history"`
	Logging       LoggingConfig         `yaml:"logging" json:"logging"`
}

type PathsConfig struct {
	OutputDir string `yaml:"outputDir" json:"outputDir"`
}

type CacheConfig struct {
	Enabled *bool    `yaml:"enabled" json:"enabled"`
	Dir     string   `yaml:"dir" json:"dir"`
	MaxAge  Duration `yaml:"maxAge" json:"maxAge"`
	MaxSize int64    `yaml:"maxSize" json:"maxSize"`
}

// IsEnabled reports the effective enabled flag; unset means enabled.
func (c CacheConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

type OutputConfig struct {
	// Format is json, markdown or text.
	Format string `yaml:"format" json:"format"`
	// Threshold is the minimum overall score for a passing run (0..100).
	Threshold int `yaml:"threshold" json:"threshold"`
}

type FixConfig struct {
	Backup   bool `yaml:"backup" json:"backup"`
	Parallel bool `yaml:"parallel" json:"parallel"`
}

type HistoryConfig struct {
	Enabled      *bool `yaml:"enabled" json:"enabled"`
	MaxSnapshots int   `yaml:"maxSnapshots" json:"maxSnapshots"`
	KeepDays     int   `yaml:"keepDays" json:"keepDays"`
}

func (h HistoryConfig) IsEnabled() bool {
	return h.Enabled == nil || *h.Enabled
}

type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	JSON  bool   `yaml:"json" json:"json"`
}

type Flags struct {
	ConfigPath string
	Root       string
	LogLevel   string
}

// Default returns the compiled-in defaults.
func Default() Config {
	return Config{
		SchemaVersion: "1.0",
		Rules:         map[string]RuleConfig{},
		Categories: map[string]float64{
			"accessibility":   1.5,
			"styling":         1.0,
			"components":      1.0,
			"framework":       1.0,
			"performance":     1.0,
			"typescript":      0.8,
			"security":        1.5,
			"maintainability": 0.7,
			"structure":       0.5,
		},
		Include: []string{
			"**/*.{js,jsx,ts,tsx,mjs,cjs}",
			"**/*.{css,scss}",
			"**/*.{html,htm}",
			"package.json",
		},
		Ignore: []string{
			"**/node_modules/**",
			"**/.next/**",
			"**/out/**",
			"**/dist/**",
			"**/build/**",
			"**/coverage/**",
			"**/.git/**",
			"**/*.d.ts",
			"**/*.min.js",
			".uiaudit/**",
		},
		Paths: PathsConfig{
			OutputDir: ".uiaudit",
		},
		Cache: CacheConfig{
			Dir:     filepath.Join(".uiaudit", "cache"),
			MaxAge:  Duration(DefaultCacheMaxAge),
			MaxSize: DefaultCacheMaxSize,
		},
		Output: OutputConfig{
			Format:    "text",
			Threshold: 70,
		},
		History: HistoryConfig{
			MaxSnapshots: 50,
			KeepDays:     14,
		},
		Logging: LoggingConfig{
			Level: "info",
			JSON:  false,
		},
	}
}

// Discover returns the first config file present in root, or "" when there is none.
func Discover(root string) string {
	for _, name := range DiscoveryNames {
		path := filepath.Join(root, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// Load reads a YAML or JSON config from disk. JSON is chosen by the .json extension.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, auditerr.New(auditerr.KindConfiguration, "load", err).With("path", path)
	}
	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return Config{}, auditerr.Configuration("parse", "failed to parse config %s: %w", path, err).With("path", path)
	}
	return cfg, nil
}

// Resolve applies defaults, the discovered or given config file, environment overrides
// and flags, then validates.
func Resolve(flags Flags) (Config, string, []string, error) {
	cfg := Default()
	var cfgPath string
	var warnings []string

	root := flags.Root
	if root == "" {
		root = "."
	}
	cfgPath = flags.ConfigPath
	if cfgPath == "" {
		cfgPath = Discover(root)
	}
	if cfgPath != "" {
		loaded, err := Load(cfgPath)
		if err != nil {
			return Config{}, "", nil, err
		}
		mergeConfigDefaults(&loaded, &cfg)
		cfg = loaded
	}

	if cfg.SchemaVersion == "" {
		cfg.SchemaVersion = "1.0"
	}
	envWarnings, err := applyEnv(&cfg, root)
	if err != nil {
		return Config{}, "", nil, err
	}
	warnings = append(warnings, envWarnings...)
	if flags.LogLevel != "" {
		cfg.Logging.Level = flags.LogLevel
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, "", nil, err
	}
	return cfg, cfgPath, warnings, nil
}

var validFormats = map[string]bool{"json": true, "markdown": true, "text": true}

// Validate checks the resolved configuration for consistency.
func (c *Config) Validate() error {
	if c.SchemaVersion != "1.0" {
		return auditerr.Configuration("validate", "unsupported schemaVersion: %s (expected 1.0)", c.SchemaVersion)
	}
	for name, w := range c.Categories {
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return auditerr.Configuration("validate", "invalid weight %v for category %q", w, name).With("category", name)
		}
	}
	if !validFormats[c.Output.Format] {
		return auditerr.Configuration("validate", "invalid output format %q (expected json, markdown or text)", c.Output.Format)
	}
	if c.Output.Threshold < 0 || c.Output.Threshold > 100 {
		return auditerr.Configuration("validate", "threshold %d is outside 0..100", c.Output.Threshold)
	}
	for id, rc := range c.Rules {
		if err := rc.validate(); err != nil {
			return auditerr.Configuration("validate", "rule %s: %w", id, err).With("rule", id)
		}
	}
	if c.Cache.MaxAge < 0 || c.Cache.MaxSize < 0 {
		return auditerr.Configuration("validate", "cache limits must not be negative")
	}
	for _, ref := range c.Plugins {
		if strings.TrimSpace(ref.Name) == "" {
			return auditerr.Configuration("validate", "plugin entry without a name")
		}
	}
	return nil
}

// Relevant is the part of the configuration that changes rule output. It feeds the cache
// key, so output, cache and logging settings are deliberately absent.
type Relevant struct {
	Rules      map[string]RuleConfig `json:"rules"`
	Categories map[string]float64    `json:"categories"`
}

func (c *Config) RelevantSubset() Relevant {
	return Relevant{Rules: c.Rules, Categories: c.Categories}
}

// Overrides converts the rule table into evaluation overrides.
func (c *Config) Overrides() map[string]rules.Override {
	out := make(map[string]rules.Override, len(c.Rules))
	for id, rc := range c.Rules {
		out[id] = rc.Override()
	}
	return out
}

// OutputDir resolves the output directory against root.
func (c *Config) OutputDir(root string) string {
	return resolvePath(root, c.Paths.OutputDir)
}

func (c *Config) CacheDir(root string) string {
	return resolvePath(root, c.Cache.Dir)
}

func resolvePath(root, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

func mergeConfigDefaults(cfg *Config, defaults *Config) {
	if cfg.Rules == nil {
		cfg.Rules = map[string]RuleConfig{}
	}
	if len(cfg.Categories) == 0 {
		cfg.Categories = defaults.Categories
	}
	if len(cfg.Include) == 0 {
		cfg.Include = defaults.Include
	}
	if cfg.Ignore == nil {
		cfg.Ignore = defaults.Ignore
	}
	if cfg.Paths.OutputDir == "" {
		cfg.Paths.OutputDir = defaults.Paths.OutputDir
	}
	if cfg.Cache.Dir == "" {
		cfg.Cache.Dir = defaults.Cache.Dir
	}
	if cfg.Cache.MaxAge == 0 {
		cfg.Cache.MaxAge = defaults.Cache.MaxAge
	}
	if cfg.Cache.MaxSize == 0 {
		cfg.Cache.MaxSize = defaults.Cache.MaxSize
	}
	if cfg.Output.Format == "" {
		cfg.Output.Format = defaults.Output.Format
	}
	if cfg.Output.Threshold == 0 {
		cfg.Output.Threshold = defaults.Output.Threshold
	}
	if cfg.History.MaxSnapshots == 0 {
		cfg.History.MaxSnapshots = defaults.History.MaxSnapshots
	}
	if cfg.History.KeepDays == 0 {
		cfg.History.KeepDays = defaults.History.KeepDays
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaults.Logging.Level
	}
}
