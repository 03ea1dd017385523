// Package config loads serpmine configuration from file, environment and
// flags via viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the resolved application configuration.
type Config struct {
	APIBaseURL     string `mapstructure:"api_base_url"`
	AuthRefreshURL string `mapstructure:"auth_refresh_url"`
	DBPath         string `mapstructure:"db_path"`
	TargetLanguage string `mapstructure:"target_language"`
	Debug          bool   `mapstructure:"debug"`
	LogPath        string `mapstructure:"log_path"`

	MaxRounds          int `mapstructure:"max_rounds"`
	CandidatesPerRound int `mapstructure:"candidates_per_round"`

	MiningUnitCost  int `mapstructure:"mining_unit_cost"`
	BatchUnitCost   int `mapstructure:"batch_unit_cost"`
	DeepDiveCost    int `mapstructure:"deep_dive_cost"`
	ArticleUnitCost int `mapstructure:"article_unit_cost"`
}

// Load reads config.yaml from the config directory, layered under
// SERPMINE_* environment variables. A missing file is fine; defaults
// apply.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	configDir, err := Dir()
	if err != nil {
		return nil, err
	}
	v.AddConfigPath(configDir)

	v.SetEnvPrefix("serpmine")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("api_base_url", "https://api.serpmine.dev")
	v.SetDefault("auth_refresh_url", "https://api.serpmine.dev/v1/auth/refresh")
	v.SetDefault("db_path", filepath.Join(configDir, "serpmine.db"))
	v.SetDefault("target_language", "en")
	v.SetDefault("debug", false)
	v.SetDefault("log_path", filepath.Join(configDir, "debug.log"))
	v.SetDefault("max_rounds", 8)
	v.SetDefault("candidates_per_round", 10)
	v.SetDefault("mining_unit_cost", 1)
	v.SetDefault("batch_unit_cost", 1)
	v.SetDefault("deep_dive_cost", 5)
	v.SetDefault("article_unit_cost", 3)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Dir returns the serpmine config directory, creating it if needed.
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	dir := filepath.Join(homeDir, ".config", "serpmine")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}
	return dir, nil
}
