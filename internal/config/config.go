package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the static process configuration. Runtime-tunable
// settings live in Options instead.
type Config struct {
	Chat        ChatConfig  `yaml:"chat"`
	Store       StoreConfig `yaml:"store"`
	Bus         BusConfig   `yaml:"bus"`
	OptionsPath string      `yaml:"options_path"`
}

// ChatConfig holds the chat platform endpoint and credentials.
type ChatConfig struct {
	APIURL   string `yaml:"api_url"`
	BotToken string `yaml:"bot_token"`
	AppToken string `yaml:"app_token"`
}

// StoreConfig selects and configures the document store backend.
type StoreConfig struct {
	Backend            string `yaml:"backend"` // "sqlite" or "opensearch"
	Path               string `yaml:"path"`
	URL                string `yaml:"url"`
	Username           string `yaml:"username"`
	Password           string `yaml:"password"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
}

// BusConfig holds the embedded command bus settings.
type BusConfig struct {
	Port    int `yaml:"port"`
	Workers int `yaml:"workers"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Set defaults
	if cfg.Chat.APIURL == "" {
		cfg.Chat.APIURL = "https://slack.com/api"
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "sqlite"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "/var/lib/ctfbot/ctfbot.db"
	}
	if cfg.Bus.Port == 0 {
		cfg.Bus.Port = 4333
	}
	if cfg.Bus.Workers == 0 {
		cfg.Bus.Workers = 4
	}
	if cfg.OptionsPath == "" {
		cfg.OptionsPath = "/var/lib/ctfbot/options.yml"
	}

	return &cfg, nil
}

// Save writes the configuration back to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
