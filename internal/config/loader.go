// Package config loads ScanConfig and SafeDeleteOptions from the layered
// sources spec.md §7 names: CLI flags, DUPESWEEP_-prefixed environment
// variables, a project-local .dupesweep.yaml, a user-global
// ~/.dupesweep.yaml, and finally the struct defaults, in that precedence
// order (highest to lowest). Environment variables outrank both files
// because viper's AutomaticEnv lookup is consulted before merged config.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/user/dupesweep/internal/types"
)

const (
	projectConfigFile = ".dupesweep.yaml"
	userConfigFile    = ".dupesweep.yaml"
	envPrefix         = "DUPESWEEP"
)

// Loader accumulates configuration from every source named above, applied
// in precedence order as each Load* method is called.
type Loader struct {
	v *viper.Viper
}

// NewLoader builds a Loader, first loading a .env file into the process
// environment if one is present (a no-op, not an error, when absent).
func NewLoader() *Loader {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return &Loader{v: v}
}

// LoadScanConfig resolves a types.ScanConfig starting from
// types.DefaultScanConfig, layering the user file, the project file, the
// environment, and finally cliOverrides (a dotted-key map straight from
// cobra flag bindings; nil values are ignored so unset flags never clobber
// a lower-precedence source).
func (l *Loader) LoadScanConfig(repoPath string, cliOverrides map[string]interface{}) (types.ScanConfig, error) {
	setDefaults(l.v, "", types.DefaultScanConfig())

	if err := l.mergeUserConfig(); err != nil {
		return types.ScanConfig{}, err
	}
	if err := l.mergeProjectConfig(repoPath); err != nil {
		return types.ScanConfig{}, err
	}
	applyOverrides(l.v, cliOverrides)

	var cfg types.ScanConfig
	if err := decode(l.v.AllSettings(), &cfg); err != nil {
		return types.ScanConfig{}, fmt.Errorf("config: decode scan config: %w", err)
	}
	return cfg, nil
}

// LoadSafeDeleteOptions resolves a types.SafeDeleteOptions the same way,
// under the "safe_delete" section so it can share a config file with the
// scan settings.
func (l *Loader) LoadSafeDeleteOptions(repoPath string, cliOverrides map[string]interface{}) (types.SafeDeleteOptions, error) {
	setDefaults(l.v, "safe_delete", types.DefaultSafeDeleteOptions())

	if err := l.mergeUserConfig(); err != nil {
		return types.SafeDeleteOptions{}, err
	}
	if err := l.mergeProjectConfig(repoPath); err != nil {
		return types.SafeDeleteOptions{}, err
	}
	applyOverrides(l.v, cliOverrides)

	var opts types.SafeDeleteOptions
	if err := decode(l.v.GetStringMap("safe_delete"), &opts); err != nil {
		return types.SafeDeleteOptions{}, fmt.Errorf("config: decode safe-delete options: %w", err)
	}
	return opts, nil
}

func (l *Loader) mergeUserConfig() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil // no home directory is not fatal; skip the user layer
	}
	path := filepath.Join(home, userConfigFile)
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	l.v.SetConfigFile(path)
	if err := l.v.MergeInConfig(); err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	return nil
}

func (l *Loader) mergeProjectConfig(repoPath string) error {
	if repoPath == "" {
		repoPath = "."
	}
	path := filepath.Join(repoPath, projectConfigFile)
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	l.v.SetConfigFile(path)
	if err := l.v.MergeInConfig(); err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	return nil
}

// setDefaults flattens defaults (a struct with mapstructure tags) into v
// under the given section prefix ("" for the top level).
func setDefaults(v *viper.Viper, section string, defaults interface{}) {
	var asMap map[string]interface{}
	_ = mapstructure.Decode(defaults, &asMap)
	for key, val := range asMap {
		fullKey := key
		if section != "" {
			fullKey = section + "." + key
		}
		v.SetDefault(fullKey, val)
	}
}

// applyOverrides sets each non-nil dotted-key override directly, giving CLI
// flags top precedence over every file/env source.
func applyOverrides(v *viper.Viper, overrides map[string]interface{}) {
	for key, val := range overrides {
		if val != nil {
			v.Set(key, val)
		}
	}
}

func decode(input interface{}, out interface{}) error {
	decoderConfig := &mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
		TagName:          "mapstructure",
	}
	decoder, err := mapstructure.NewDecoder(decoderConfig)
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}
