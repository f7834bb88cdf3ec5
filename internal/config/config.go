package config

import (
	"fmt"
	"os"
	"time"

	"completion-service/internal/domain"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port           string   `yaml:"port"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`
	Redis struct {
		Addr         string `yaml:"addr"`
		Password     string `yaml:"password"`
		DB           int    `yaml:"db"`
		TTL          string `yaml:"ttl"`
		Stream       string `yaml:"stream"`
		StreamMaxLen int64  `yaml:"stream_max_len"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	SQLite struct {
		Path string `yaml:"path"`
	} `yaml:"sqlite"`
	Settings struct {
		TTL string `yaml:"ttl"`
	} `yaml:"settings"`
	Grading struct {
		AllowRescore *bool `yaml:"allow_rescore"`
	} `yaml:"grading"`
	Assets struct {
		UncheckedURL string `yaml:"unchecked_url"`
		CheckedURL   string `yaml:"checked_url"`
	} `yaml:"assets"`
	Blocks []Block `yaml:"blocks"`
}

// Block is a statically configured block (workbench scenarios, demos).
type Block struct {
	ID          string   `yaml:"id"`
	DisplayName string   `yaml:"display_name"`
	Align       string   `yaml:"align"`
	Weight      *float64 `yaml:"weight"`
	Start       string   `yaml:"start"`
	Due         string   `yaml:"due"`
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

// AllowRescore defaults to true when unset.
func (c Config) AllowRescore() bool {
	if c.Grading.AllowRescore == nil {
		return true
	}
	return *c.Grading.AllowRescore
}

// BlockSettings converts the static block list into validated settings. With no
// blocks configured it falls back to the three workbench demo blocks.
func (c Config) BlockSettings() (map[string]domain.Settings, error) {
	blocks := c.Blocks
	if len(blocks) == 0 {
		blocks = WorkbenchBlocks()
	}
	out := make(map[string]domain.Settings, len(blocks))
	for _, b := range blocks {
		if b.ID == "" {
			return nil, fmt.Errorf("%w: block without id", domain.ErrInvalidSettings)
		}
		start, err := domain.Timestamp(b.Start)
		if err != nil {
			return nil, fmt.Errorf("block %s start: %w", b.ID, err)
		}
		due, err := domain.Timestamp(b.Due)
		if err != nil {
			return nil, fmt.Errorf("block %s due: %w", b.ID, err)
		}
		settings, err := domain.Settings{
			BlockID:     b.ID,
			DisplayName: b.DisplayName,
			Align:       domain.Align(b.Align),
			Weight:      b.Weight,
			Start:       start,
			Due:         due,
		}.Normalize()
		if err != nil {
			return nil, fmt.Errorf("block %s: %w", b.ID, err)
		}
		out[b.ID] = settings
	}
	return out, nil
}

// WorkbenchBlocks is the canned left/right/center scenario.
func WorkbenchBlocks() []Block {
	return []Block{
		{ID: "done-left", Align: "left"},
		{ID: "done-right", Align: "right"},
		{ID: "done-center", Align: "center"},
	}
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
