package am

import (
	"os"
	"sort"
	"strings"

	"github.com/teranos/kbmem/errors"
)

// ConfigSource represents where a configuration value came from
type ConfigSource string

const (
	SourceDefault     ConfigSource = "default"
	SourceSystem      ConfigSource = "system"      // /etc/kbmem/am.toml
	SourceUser        ConfigSource = "user"        // ~/.kbmem/am.toml
	SourceProject     ConfigSource = "project"     // project am.toml
	SourceEnvironment ConfigSource = "environment" // KBMEM_* env vars
)

// SettingInfo contains metadata about a configuration setting
type SettingInfo struct {
	Key        string       `json:"key" yaml:"key"`
	Value      interface{}  `json:"value" yaml:"value"`
	Source     ConfigSource `json:"source" yaml:"source"`
	SourcePath string       `json:"source_path,omitempty" yaml:"source_path,omitempty"`
}

// SourceInfo tracks where a configuration value originated
type SourceInfo struct {
	Source ConfigSource
	Path   string // File path or environment variable name
}

// Introspect lists every effective setting with the source that set it,
// sorted by key. Secrets are masked.
func Introspect() ([]SettingInfo, error) {
	if _, err := Load(); err != nil {
		return nil, errors.Wrap(err, "failed to load config for introspection")
	}
	return flattenSettingsWithSources(GetViper().AllSettings(), "", ConfigSources, os.Getenv), nil
}

// flattenSettingsWithSources flattens settings into dotted keys, taking each
// source from sourceMap unless a KBMEM_ variable overrides it
func flattenSettingsWithSources(settings map[string]interface{}, prefix string, sourceMap map[string]SourceInfo, getenv func(string) string) []SettingInfo {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []SettingInfo
	for _, key := range keys {
		value := settings[key]
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}

		if nested, ok := value.(map[string]interface{}); ok {
			out = append(out, flattenSettingsWithSources(nested, fullKey, sourceMap, getenv)...)
			continue
		}

		info := SourceInfo{Source: SourceDefault, Path: "built-in default"}
		if si, ok := sourceMap[fullKey]; ok {
			info = si
		}

		envKey := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(fullKey, ".", "_"))
		if getenv(envKey) != "" {
			info = SourceInfo{Source: SourceEnvironment, Path: envKey}
		}

		if isSecret(fullKey) && value != "" {
			value = "********"
		}

		out = append(out, SettingInfo{
			Key:        fullKey,
			Value:      value,
			Source:     info.Source,
			SourcePath: info.Path,
		})
	}
	return out
}

func isSecret(key string) bool {
	return key == "database.dsn"
}
