package am

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/teranos/kbmem/errors"
)

// EnvPrefix prefixes every environment variable kbmem reads
const EnvPrefix = "KBMEM"

// ProjectConfigName is the file searched for from the working directory upward
const ProjectConfigName = "am.toml"

var globalConfig *Config
var viperInstance *viper.Viper

// ConfigSources records which file set each dotted key during the last load
var ConfigSources = make(map[string]SourceInfo)

// Load reads the kbmem configuration using Viper
func Load() (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	config, err := LoadWithViper(initViper())
	if err != nil {
		return nil, err
	}

	globalConfig = config
	return globalConfig, nil
}

// GetViper returns the Viper instance for advanced configuration access
func GetViper() *viper.Viper {
	return initViper()
}

// LoadWithViper loads configuration using a provided Viper instance
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	return &config, nil
}

// LoadFromFile loads configuration from a specific file path on top of the
// defaults. Environment variables are not consulted.
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", configPath)
	}

	config, err := LoadWithViper(v)
	if err != nil {
		return nil, errors.Wrapf(err, "config file %s", configPath)
	}
	return config, nil
}

// Reset clears the cached configuration (useful for testing)
func Reset() {
	globalConfig = nil
	viperInstance = nil
	ConfigSources = make(map[string]SourceInfo)
}

// initViper initializes Viper with configuration sources and defaults
func initViper() *viper.Viper {
	if viperInstance != nil {
		return viperInstance
	}

	v := viper.New()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	BindSensitiveEnvVars(v)
	SetDefaults(v)

	// system -> user -> project -> env vars
	mergeConfigFiles(v, configPaths())

	viperInstance = v
	return v
}

// UserConfigPath returns ~/.kbmem/am.toml, or "" without a home directory
func UserConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".kbmem", ProjectConfigName)
}

type configPath struct {
	path   string
	source ConfigSource
}

func configPaths() []configPath {
	paths := []configPath{{"/etc/kbmem/am.toml", SourceSystem}}
	if user := UserConfigPath(); user != "" {
		paths = append(paths, configPath{user, SourceUser})
	}
	if wd, err := os.Getwd(); err == nil {
		if project := findProjectConfig(wd); project != "" {
			paths = append(paths, configPath{project, SourceProject})
		}
	}
	return paths
}

// findProjectConfig walks up from dir looking for am.toml. It returns ""
// when the filesystem root is reached without a match.
func findProjectConfig(dir string) string {
	for {
		candidate := filepath.Join(dir, ProjectConfigName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// mergeConfigFiles merges each existing file into v in order, so later files
// win, and records the file that set each key
func mergeConfigFiles(v *viper.Viper, paths []configPath) {
	for _, p := range paths {
		if _, err := os.Stat(p.path); err != nil {
			continue
		}

		tempViper := viper.New()
		tempViper.SetConfigFile(p.path)
		tempViper.SetConfigType("toml")
		if err := tempViper.ReadInConfig(); err != nil {
			continue
		}

		settings := tempViper.AllSettings()
		if err := v.MergeConfigMap(settings); err != nil {
			continue
		}
		markSettingsFromSource(settings, "", p.source, p.path, ConfigSources)
	}
}

// markSettingsFromSource records source for every leaf key of settings
func markSettingsFromSource(settings map[string]interface{}, prefix string, source ConfigSource, path string, sourceMap map[string]SourceInfo) {
	for key, value := range settings {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}
		if nested, ok := value.(map[string]interface{}); ok {
			markSettingsFromSource(nested, fullKey, source, path, sourceMap)
			continue
		}
		sourceMap[fullKey] = SourceInfo{Source: source, Path: path}
	}
}
