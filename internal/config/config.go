// Package config loads pipeline configuration: compiled defaults, an
// optional YAML file overlaid on top, then environment overrides. CLI
// flags are applied last by the caller.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Topic      string           `yaml:"topic"`
	Model      string           `yaml:"model"`
	NumSources int              `yaml:"num_sources"`
	RunsDir    string           `yaml:"runs_dir"`
	HistoryDB  string           `yaml:"history_db"`
	Logging    LoggingConfig    `yaml:"logging"`
	Browser    BrowserConfig    `yaml:"browser"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Providers  ProvidersConfig  `yaml:"providers"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type BrowserConfig struct {
	Backend  string `yaml:"backend"` // "chrome" or "static"
	Headless bool   `yaml:"headless"`
}

type ExtractionConfig struct {
	Mode            string `yaml:"mode"` // "sequential" or "batch"
	BatchSize       int    `yaml:"batch_size"`
	CooldownSeconds int    `yaml:"cooldown_seconds"`
}

type ProvidersConfig struct {
	DeepSeekAPIKey  string `yaml:"-"` // env only, never from file
	DeepSeekBaseURL string `yaml:"deepseek_base_url"`
	OllamaURL       string `yaml:"ollama_url"`
}

func DefaultConfig() Config {
	return Config{
		Model:      "deepseek-chat",
		NumSources: 10,
		RunsDir:    "runs",
		HistoryDB:  "medialens.db",
		Logging: LoggingConfig{
			Level: "info",
		},
		Browser: BrowserConfig{
			Backend:  "chrome",
			Headless: true,
		},
		Extraction: ExtractionConfig{
			Mode:            "sequential",
			BatchSize:       3,
			CooldownSeconds: 2,
		},
	}
}

// Load reads a YAML config file and merges it over defaults, then applies
// environment overrides. If the file does not exist, defaults are used
// without error.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Debug("No config file found, using defaults", "path", path)
			applyEnv(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("NEWS_TOPIC"); v != "" {
		cfg.Topic = v
	}
	if v := os.Getenv("NEWS_NUM_SOURCES"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			cfg.NumSources = n
		} else {
			slog.Warn("Ignoring invalid NEWS_NUM_SOURCES", "value", v)
		}
	}
	if v := os.Getenv("NEWS_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("DEEPSEEK_API_KEY"); v != "" {
		cfg.Providers.DeepSeekAPIKey = v
	}
	if v := os.Getenv("OLLAMA_URL"); v != "" {
		cfg.Providers.OllamaURL = v
	}
}
