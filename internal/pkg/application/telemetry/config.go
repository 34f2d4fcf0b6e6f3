package telemetry

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v2"
)

const defaultCooldownMinutes = 5

type Config struct {
	CooldownMinutes       int     `yaml:"cooldownMinutes"`
	DefaultMaxTemperature float64 `yaml:"defaultMaxTemperature"`
}

func NewConfig(r io.Reader) (*Config, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	err = yaml.Unmarshal(b, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse alert policy config: %w", err)
	}

	if cfg.CooldownMinutes <= 0 {
		cfg.CooldownMinutes = defaultCooldownMinutes
	}

	return cfg, nil
}

func (c Config) Cooldown() time.Duration {
	return time.Duration(c.CooldownMinutes) * time.Minute
}
