package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/metalagman/playlint/internal/config"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

func resolveConfigPath(repoRoot, path string) string {
	if path == "" {
		path = config.DefaultPath
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(repoRoot, path)
	}
	return path
}

// loadConfig reads the config file if it exists. A missing file at the
// default location yields the defaults.
func loadConfig(repoRoot string) (config.Config, error) {
	requested := viper.GetString("config")
	path := resolveConfigPath(repoRoot, requested)
	for k, v := range config.Defaults() {
		viper.SetDefault(k, v)
	}

	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		missing := errors.As(err, &pathErr) && errors.Is(pathErr.Err, os.ErrNotExist)
		if !missing || (requested != "" && requested != config.DefaultPath) {
			return config.Config{}, fmt.Errorf("read config: %w", err)
		}
		log.Debug().Str("path", path).Msg("no config file, using defaults")
	}

	if err := config.ValidateSettings(viper.AllSettings()); err != nil {
		return config.Config{}, err
	}
	var cfg config.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return config.Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	if cfg.History.Path != "" && !filepath.IsAbs(cfg.History.Path) {
		cfg.History.Path = filepath.Join(repoRoot, cfg.History.Path)
	}
	return cfg, nil
}
