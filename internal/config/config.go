package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
		// IdleNoticeOnConnect sends an explicit idle status to clients that
		// connect while no round is active; off by default.
		IdleNoticeOnConnect bool `yaml:"idleNoticeOnConnect"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"` // empty starts an embedded in-process store
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Game struct {
		RoundTTL           string `yaml:"roundTtl"`
		MaxRoundDurationMs int64  `yaml:"maxRoundDurationMs"`
		CatalogTTL         string `yaml:"catalogTtl"`
	} `yaml:"game"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
