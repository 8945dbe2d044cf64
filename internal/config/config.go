package config

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Load reads the config file into target, which must be a pointer to a
// struct. Values already set on target act as defaults; the file overrides
// them, and environment variables (key dots replaced with underscores,
// uppercased) override both.
func Load(file string, target any) error {
	v := viper.New()

	defaults := make(map[string]any)
	if err := mapstructure.Decode(target, &defaults); err != nil {
		return fmt.Errorf("decode defaults: %w", err)
	}
	if err := v.MergeConfigMap(defaults); err != nil {
		return fmt.Errorf("merge defaults: %w", err)
	}

	v.SetConfigFile(file)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config file %s: %w", file, err)
	}
	if err := v.Unmarshal(target); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}

	return nil
}
