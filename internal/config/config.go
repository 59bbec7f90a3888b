// Package config loads editor settings from a config file, environment
// variables, and flags via viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds everything the editor needs to reach its backend and its
// local state.
type Config struct {
	ServerURL string `mapstructure:"server_url"`
	AuthToken string `mapstructure:"auth_token"`
	ProjectID int    `mapstructure:"project_id"`
	DataID    int    `mapstructure:"data_id"`
	LogFile   string `mapstructure:"log_file"`
	DraftDB   string `mapstructure:"draft_db"`
}

// Dir returns the editor's config/state directory.
func Dir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".audino")
}

// Load reads config.yaml from ~/.audino or the working directory, with
// AUDINO_* environment variables overriding file values.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(Dir())
	v.AddConfigPath(".")
	v.SetEnvPrefix("audino")
	v.AutomaticEnv()

	v.SetDefault("server_url", "http://localhost:5000")
	v.SetDefault("project_id", 1)
	v.SetDefault("data_id", 1)
	v.SetDefault("log_file", filepath.Join(Dir(), "audino.log"))
	v.SetDefault("draft_db", filepath.Join(Dir(), "drafts.sqlite"))

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine; defaults and env carry the config.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.ServerURL == "" {
		return nil, fmt.Errorf("server_url must not be empty")
	}
	return &cfg, nil
}
