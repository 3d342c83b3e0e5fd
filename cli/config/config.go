// Package config handles YAML config file loading for vademecum build.
package config

import (
	"fmt"
	"time"
)

// Config represents a vademecum.yaml configuration file.
// All values are optional and act as defaults for vademecum build flags.
// CLI flags always override config values.
type Config struct {
	Mode        string            `yaml:"mode"`
	Version     string            `yaml:"version"`
	OutDir      string            `yaml:"out_dir"`
	StatePath   string            `yaml:"state_path"`
	CimaBaseURL string            `yaml:"cima_base_url"`
	HTTP        HTTPConfig        `yaml:"http"`
	Nomenclator NomenclatorConfig `yaml:"nomenclator"`
	Publish     PublishConfig     `yaml:"publish"`
	// MaxFailedIDs caps the failed-registration list persisted in state.
	MaxFailedIDs int `yaml:"max_failed_ids"`
}

// HTTPConfig holds fetch client defaults from the config file.
type HTTPConfig struct {
	Timeout Duration `yaml:"timeout"`
	Retries *int     `yaml:"retries,omitempty"`
}

// NomenclatorConfig holds reference table source defaults.
type NomenclatorConfig struct {
	URL  string `yaml:"url"`
	Path string `yaml:"path"`
}

// PublishConfig holds S3 publication defaults from the config file.
// Publication is enabled when a bucket is set.
type PublishConfig struct {
	Bucket      string `yaml:"bucket"`
	Prefix      string `yaml:"prefix"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}
