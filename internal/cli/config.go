// Config loading for the daybook CLI.
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/mesh-intelligence/daybook/internal/paths"
	"github.com/mesh-intelligence/daybook/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"

	cfgKeyBackend  = "backend"
	cfgKeyDataDir  = "data_dir"
	cfgKeyCacheDir = "cache_dir"
	cfgKeyCacheTTL = "cache_ttl"
	cfgKeyTimezone = "timezone"
)

// defaultConfigYAML is written to config.yaml on first run.
const defaultConfigYAML = `# Daybook CLI configuration.

# Backend selection. Required.
backend: sqlite

# Data directory (optional; overridable by --data-dir).
# data_dir:

# Session cache directory (optional).
# cache_dir:

# Snapshot cache time-to-live (optional, default 1h).
# cache_ttl: 1h

# Timezone for period bucketing (optional, default local).
# timezone: Europe/Bucharest
`

// loadConfig reads config.yaml from the resolved config directory and
// resolves the data and cache directories. Missing or invalid required
// keys abort startup with an error naming the key: a broken deployment
// is not a runtime condition to recover from.
func loadConfig(configDirFlag, dataDirFlag string) (types.Config, error) {
	configDir, err := paths.ResolveConfigDir(configDirFlag)
	if err != nil {
		return types.Config{}, fmt.Errorf("resolve config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return types.Config{}, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	v.SetEnvPrefix("DAYBOOK")
	v.AutomaticEnv()
	v.SetDefault(cfgKeyCacheTTL, "1h")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return types.Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	backend := v.GetString(cfgKeyBackend)
	if backend == "" {
		return types.Config{}, fmt.Errorf("missing required configuration key: %s", cfgKeyBackend)
	}

	ttl, err := time.ParseDuration(v.GetString(cfgKeyCacheTTL))
	if err != nil {
		return types.Config{}, fmt.Errorf("invalid configuration key %s: %w", cfgKeyCacheTTL, err)
	}

	dataDir, err := paths.ResolveDataDir(dataDirFlag, v.GetString(cfgKeyDataDir))
	if err != nil {
		return types.Config{}, fmt.Errorf("resolve data dir: %w", err)
	}
	cacheDir, err := paths.ResolveCacheDir(v.GetString(cfgKeyCacheDir))
	if err != nil {
		return types.Config{}, fmt.Errorf("resolve cache dir: %w", err)
	}

	cfg := types.Config{
		Backend:  backend,
		DataDir:  dataDir,
		CacheDir: cacheDir,
		CacheTTL: ttl,
		Timezone: v.GetString(cfgKeyTimezone),
	}
	if err := cfg.Validate(); err != nil {
		return types.Config{}, fmt.Errorf("invalid configuration key %s: %w", cfgKeyBackend, err)
	}
	return cfg, nil
}

// resolveLocation maps the timezone config key to a time.Location. An
// empty key means the process-local zone; an unknown zone name aborts
// startup like any other invalid configuration.
func resolveLocation(timezone string) (*time.Location, error) {
	if timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration key %s: %w", cfgKeyTimezone, err)
	}
	return loc, nil
}

// ensureDefaultConfigFile creates the config directory and a default
// config.yaml when the file does not exist yet.
func ensureDefaultConfigFile(configDir string) error {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(configDir, configFileName+"."+configFileType)
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}
