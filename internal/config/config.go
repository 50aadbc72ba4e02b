package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Prompts struct {
		TTL string `yaml:"ttl"`
	} `yaml:"prompts"`
	API struct {
		BaseURL string `yaml:"base_url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"api"`
	Rabbit struct {
		URL   string `yaml:"url"`
		Queue string `yaml:"queue"`
	} `yaml:"rabbit"`
	Game struct {
		AdvanceDelay string `yaml:"advance_delay"`
		IdleTimeout  string `yaml:"idle_timeout"`
		Choices      bool   `yaml:"choices"`
	} `yaml:"game"`
	Routing struct {
		ScheduleKeywords []string `yaml:"schedule_keywords"`
		MedicineKeywords []string `yaml:"medicine_keywords"`
	} `yaml:"routing"`
}

// Load reads YAML config from path. Values of the form ${VAR} are expanded
// from the environment.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
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
