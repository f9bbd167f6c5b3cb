package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// envOverrides are the settings an operator can change without a config file.
// Unset variables leave the file/default value in place.
type envOverrides struct {
	Seed                  *int64   `env:"VINTNER_SEED"`
	SecondsPerDay         *float64 `env:"VINTNER_SECONDS_PER_DAY"`
	DaysPerYear           *int     `env:"VINTNER_DAYS_PER_YEAR"`
	OfflineCatchupCapDays *int     `env:"VINTNER_OFFLINE_CATCHUP_CAP_DAYS"`
	StartingCash          *int64   `env:"VINTNER_STARTING_CASH"`
	BarrelVolumeL         *int     `env:"VINTNER_BARREL_VOLUME_L"`
	ResetOnPlay           *bool    `env:"VINTNER_RESET_ON_PLAY"`
}

// Load builds a Config from defaults, then the YAML file at path (skipped when
// path is empty or the file does not exist), then environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// Defaults only.
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if o.Seed != nil {
		cfg.Seed = *o.Seed
	}
	if o.SecondsPerDay != nil {
		cfg.Time.SecondsPerDay = *o.SecondsPerDay
	}
	if o.DaysPerYear != nil {
		cfg.Time.DaysPerYear = *o.DaysPerYear
	}
	if o.OfflineCatchupCapDays != nil {
		cfg.Time.OfflineCatchupCapDays = *o.OfflineCatchupCapDays
	}
	if o.StartingCash != nil {
		cfg.Economy.StartingCash = *o.StartingCash
	}
	if o.BarrelVolumeL != nil {
		cfg.Aging.BarrelVolumeL = *o.BarrelVolumeL
	}
	if o.ResetOnPlay != nil {
		cfg.ResetOnPlay = *o.ResetOnPlay
	}
	return nil
}
