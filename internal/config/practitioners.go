package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// WorkingHoursEntry is one weekday rule in practitioners.yaml.
type WorkingHoursEntry struct {
	DayOfWeek   int    `yaml:"day_of_week"` // 0-6, Sunday-based
	StartTime   string `yaml:"start_time"`  // "09:00"
	EndTime     string `yaml:"end_time"`    // "18:00"
	IsAvailable bool   `yaml:"is_available"`
}

// PractitionerConfig represents a single practitioner entry.
// A practitioner with no working_hours entries falls back to the generic
// Mon-Fri 09:00-18:00 schedule at query time.
type PractitionerConfig struct {
	ID           int64               `yaml:"id"`
	FullName     string              `yaml:"full_name"`
	Specialty    string              `yaml:"specialty"`
	WorkingHours []WorkingHoursEntry `yaml:"working_hours,omitempty"`
}

// PractitionersConfig is the root configuration for practitioners.yaml.
type PractitionersConfig struct {
	Practitioners []PractitionerConfig `yaml:"practitioners"`
}

// LoadPractitionersConfig loads and validates the roster configuration.
func LoadPractitionersConfig(path string) (*PractitionersConfig, error) {
	if path == "" {
		path = "configs/practitioners.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read practitioners config: %w", err)
	}

	var cfg PractitionersConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse practitioners config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate practitioners config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for errors.
func (c *PractitionersConfig) Validate() error {
	if len(c.Practitioners) == 0 {
		return fmt.Errorf("no practitioners defined")
	}

	ids := make(map[int64]bool)
	names := make(map[string]bool)

	for i, p := range c.Practitioners {
		if p.ID <= 0 {
			return fmt.Errorf("practitioner[%d]: id must be positive, got %d", i, p.ID)
		}
		if ids[p.ID] {
			return fmt.Errorf("practitioner[%d]: duplicate id %d", i, p.ID)
		}
		ids[p.ID] = true

		if p.FullName == "" {
			return fmt.Errorf("practitioner[%d]: full_name is required", i)
		}
		if names[p.FullName] {
			return fmt.Errorf("practitioner[%d]: duplicate name '%s'", i, p.FullName)
		}
		names[p.FullName] = true

		days := make(map[int]bool)
		for j, wh := range p.WorkingHours {
			if wh.DayOfWeek < 0 || wh.DayOfWeek > 6 {
				return fmt.Errorf("practitioner[%d].working_hours[%d]: day_of_week must be 0-6, got %d", i, j, wh.DayOfWeek)
			}
			if days[wh.DayOfWeek] {
				return fmt.Errorf("practitioner[%d].working_hours[%d]: duplicate day %d", i, j, wh.DayOfWeek)
			}
			days[wh.DayOfWeek] = true

			if wh.StartTime == "" || wh.EndTime == "" {
				return fmt.Errorf("practitioner[%d].working_hours[%d]: start_time and end_time are required", i, j)
			}
		}
	}
	return nil
}
