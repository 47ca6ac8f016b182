package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	} `yaml:"log"`
	Bank struct {
		// Backend selects where questions live; empty defaults to the
		// built-in sample bank.
		Backend string `yaml:"backend" validate:"omitempty,oneof=file postgres memory"`
		Path    string `yaml:"path"`
	} `yaml:"bank"`
	SQLite struct {
		Path string `yaml:"path"`
	} `yaml:"sqlite"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Leaderboard struct {
		TTL  string `yaml:"ttl"`
		Size int    `yaml:"size" validate:"omitempty,min=1"`
	} `yaml:"leaderboard"`
	Quiz struct {
		QuestionTime string `yaml:"questionTime"`
		Points       int    `yaml:"points" validate:"omitempty,min=1"`
	} `yaml:"quiz"`
	Admin struct {
		Token string `yaml:"token"`
	} `yaml:"admin"`
}

// Load reads YAML config from path and validates it.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if err := validator.New().Struct(cfg); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Bank.Backend == "file" && cfg.Bank.Path == "" {
		return cfg, fmt.Errorf("invalid config: bank.path required for file backend")
	}
	if cfg.Bank.Backend == "postgres" && cfg.Postgres.URL == "" {
		return cfg, fmt.Errorf("invalid config: postgres.url required for postgres bank")
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty
// or unparseable.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
