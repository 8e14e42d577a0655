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
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`
	Cache struct {
		// SchemaVersion is the cache layout this build expects; bumping it
		// re-runs the content migration on next open.
		SchemaVersion int    `yaml:"schema_version"`
		ContentPath   string `yaml:"content_path"`
		// ContentFromRemote reads definitions from the remote questions
		// table instead of a content file.
		ContentFromRemote bool `yaml:"content_from_remote"`
	} `yaml:"cache"`
	Connectivity struct {
		ProbeInterval string `yaml:"probe_interval"`
	} `yaml:"connectivity"`
	Analytics struct {
		Timezone string `yaml:"timezone"`
	} `yaml:"analytics"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
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

// Location resolves the analytics timezone, defaulting to the local zone.
func (c Config) Location() (*time.Location, error) {
	if c.Analytics.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Analytics.Timezone)
}
