package config

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/ajranjith/uiaudit/internal/auditerr"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. UIAUDIT_CACHE_DIR.
const EnvPrefix = "UIAUDIT"

// EnvFileName is an optional dotenv file in the project root holding UIAUDIT_* settings.
// Other keys in it are ignored and nothing is exported to the process environment.
const EnvFileName = ".uiaudit.env"

var envKeys = []string{"cache.dir", "cache.max_age", "cache.max_size", "cache.enabled", "log.level", "log.json"}

// envName maps a viper key to its variable name, cache.max_age to UIAUDIT_CACHE_MAX_AGE.
func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// readEnvFile returns the UIAUDIT_* entries of root's dotenv file, or nil when there is none.
func readEnvFile(root string) (map[string]string, error) {
	path := filepath.Join(root, EnvFileName)
	values, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, auditerr.Configuration("env", "%s: %w", path, err)
	}
	return values, nil
}

// applyEnv overlays the project dotenv file and then the process environment on cfg. The
// current values act as viper defaults, so unset variables leave the config untouched.
func applyEnv(cfg *Config, root string) ([]string, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("cache.dir", cfg.Cache.Dir)
	v.SetDefault("cache.max_age", cfg.Cache.MaxAge.String())
	v.SetDefault("cache.max_size", cfg.Cache.MaxSize)
	v.SetDefault("cache.enabled", cfg.Cache.IsEnabled())
	v.SetDefault("log.level", cfg.Logging.Level)
	v.SetDefault("log.json", cfg.Logging.JSON)

	fileValues, err := readEnvFile(root)
	if err != nil {
		return nil, err
	}
	for _, key := range envKeys {
		if val, ok := fileValues[envName(key)]; ok {
			v.SetDefault(key, val)
		}
	}

	var warnings []string
	cfg.Cache.Dir = v.GetString("cache.dir")
	maxAge, err := ParseDuration(v.GetString("cache.max_age"))
	if err != nil {
		return nil, auditerr.Configuration("env", "%s_CACHE_MAX_AGE: %w", EnvPrefix, err)
	}
	cfg.Cache.MaxAge = maxAge
	cfg.Cache.MaxSize = v.GetInt64("cache.max_size")
	enabled := v.GetBool("cache.enabled")
	cfg.Cache.Enabled = &enabled
	cfg.Logging.Level = v.GetString("log.level")
	cfg.Logging.JSON = v.GetBool("log.json")
	if cfg.Cache.MaxSize <= 0 {
		warnings = append(warnings, "cache max size must be positive; using default")
		cfg.Cache.MaxSize = DefaultCacheMaxSize
	}
	return warnings, nil
}
