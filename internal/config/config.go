// Package config provides configuration loading and management for playlint.
package config

import "fmt"

// DefaultPath is the configuration file read when --config is not set.
const DefaultPath = ".playlint.yml"

// Config is the root configuration.
type Config struct {
	SkipList     []string       `json:"skip_list,omitempty"     mapstructure:"skip_list"`
	Tags         []string       `json:"tags,omitempty"          mapstructure:"tags"`
	ExcludePaths []string       `json:"exclude_paths,omitempty" mapstructure:"exclude_paths"`
	Format       string         `json:"format,omitempty"        mapstructure:"format"`
	Parallelism  int            `json:"parallelism,omitempty"   mapstructure:"parallelism"`
	ExtraVars    map[string]any `json:"extra_vars,omitempty"    mapstructure:"extra_vars"`
	History      History        `json:"history"                 mapstructure:"history"`
}

// History configures the lint history database.
type History struct {
	Path     string `json:"path,omitempty"      mapstructure:"path"`
	KeepLast int    `json:"keep_last,omitempty" mapstructure:"keep_last"`
	KeepDays int    `json:"keep_days,omitempty" mapstructure:"keep_days"`
}

// Defaults returns the settings used when the config file omits them.
func Defaults() map[string]any {
	return map[string]any{
		"format":            "default",
		"parallelism":       0,
		"history.path":      ".playlint/history.db",
		"history.keep_last": 50,
	}
}

// Validate checks values the schema cannot express.
func (c Config) Validate() error {
	if c.Parallelism < 0 {
		return fmt.Errorf("parallelism must be >= 0")
	}
	for _, id := range c.SkipList {
		for _, tag := range c.Tags {
			if id == tag {
				return fmt.Errorf("%q appears in both tags and skip_list", id)
			}
		}
	}
	return nil
}
