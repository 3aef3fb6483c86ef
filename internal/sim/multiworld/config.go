package multiworld

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	DefaultWorldID string      `yaml:"default_world_id"`
	Worlds         []WorldSpec `yaml:"worlds"`
}

type WorldSpec struct {
	ID         string `yaml:"id"`
	SeedOffset int64  `yaml:"seed_offset"`
	Height     int    `yaml:"height"`
	Sky        *bool  `yaml:"sky"`
	Biome      string `yaml:"biome"`
}

func (s WorldSpec) HasSky() bool {
	if s.Sky == nil {
		return true
	}
	return *s.Sky
}

func Load(path string) (Config, error) {
	cfg := defaults()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("worlds.yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("worlds.yaml: %w", err)
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		DefaultWorldID: "OVERWORLD",
		Worlds: []WorldSpec{
			{ID: "OVERWORLD", Height: 64},
		},
	}
}

func (c *Config) Validate() error {
	if len(c.Worlds) == 0 {
		return fmt.Errorf("no worlds declared")
	}
	seen := map[string]struct{}{}
	for _, w := range c.Worlds {
		if strings.TrimSpace(w.ID) == "" {
			return fmt.Errorf("world with empty id")
		}
		if _, dup := seen[w.ID]; dup {
			return fmt.Errorf("duplicate world id %q", w.ID)
		}
		seen[w.ID] = struct{}{}
	}
	if c.DefaultWorldID == "" {
		c.DefaultWorldID = c.Worlds[0].ID
	}
	if _, ok := seen[c.DefaultWorldID]; !ok {
		return fmt.Errorf("default world %q not declared", c.DefaultWorldID)
	}
	return nil
}
