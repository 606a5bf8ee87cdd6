package roadsplit

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultSegmentLengthKM is the target segment length used when the
// configuration does not set one.
const DefaultSegmentLengthKM = 2.0

// Config carries the run configuration explicitly; there is no ambient
// workspace or overwrite state.
type Config struct {
	// Workspace is the directory holding the feature collections.
	Workspace string `yaml:"workspace"`

	// Overwrite allows replacing an existing output collection.
	Overwrite bool `yaml:"overwrite"`

	// SegmentLengthKM is the default target segment length in
	// kilometers, used by Split when no length is given.
	SegmentLengthKM float64 `yaml:"segment_length_km"`
}

// DefaultConfig returns the configuration used by the simple entry
// points: current directory, overwrite enabled, 2 km segments.
func DefaultConfig() Config {
	return Config{
		Workspace:       ".",
		Overwrite:       true,
		SegmentLengthKM: DefaultSegmentLengthKM,
	}
}

// LoadConfig reads a YAML configuration file over the defaults, so a
// partial file only overrides what it names.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("roadsplit: config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("roadsplit: config %s: %w", path, err)
	}
	if cfg.SegmentLengthKM <= 0 {
		return cfg, fmt.Errorf("roadsplit: config %s: %w", path, ErrBadSegmentLength)
	}
	return cfg, nil
}
