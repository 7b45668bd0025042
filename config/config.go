// Package config holds the run configuration of the censusml command.
//
// Values are layered: Default, then an optional YAML file, then CENSUSML_*
// environment variables. Command-line flags are applied on top by the caller,
// which should call Validate once everything is merged.
package config

import (
	"bytes"
	"io"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/sasmita-sabat/censusml/pkg/errors"
	"github.com/sasmita-sabat/censusml/pkg/log"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "CENSUSML_"

// Log output formats.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Config is the merged run configuration.
type Config struct {
	TrainPath  string `yaml:"train" env:"TRAIN"`
	TestPath   string `yaml:"test" env:"TEST"`
	Classifier string `yaml:"classifier" env:"CLF"`
	Folds      int    `yaml:"cv" env:"CV"`
	Jobs       int    `yaml:"jobs" env:"JOBS"`
	Pause      bool   `yaml:"pause" env:"PAUSE"`
	PlotPath   string `yaml:"plot" env:"PLOT"`
	LogLevel   string `yaml:"log_level" env:"LOG_LEVEL"`
	LogFormat  string `yaml:"log_format" env:"LOG_FORMAT"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		TrainPath: "data/train_data.txt",
		TestPath:  "data/test_data.txt",
		Folds:     3,
		Jobs:      1,
		Pause:     true,
		LogLevel:  "warn",
		LogFormat: FormatConsole,
	}
}

// Load returns Default overlaid with the YAML file at path (skipped when
// path is empty) and then with CENSUSML_* environment variables.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return cfg, errors.Wrapf(err, "open config %s", path)
		}
		defer f.Close()
		if err := cfg.decodeYAML(f); err != nil {
			return cfg, errors.Wrapf(err, "parse config %s", path)
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, errors.Wrap(err, "parse environment")
	}
	return cfg, nil
}

// decodeYAML overlays r onto cfg. Unknown keys are rejected.
func (c *Config) decodeYAML(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(c)
}

// Validate checks the merged configuration.
func (c Config) Validate() error {
	if c.TrainPath == "" {
		return errors.NewValidationError("train", "must not be empty", c.TrainPath)
	}
	if c.TestPath == "" {
		return errors.NewValidationError("test", "must not be empty", c.TestPath)
	}
	if c.Folds < 2 {
		return errors.NewValidationError("cv", "must be at least 2", c.Folds)
	}
	if c.Jobs == 0 || c.Jobs < -1 {
		return errors.NewValidationError("jobs", "must be positive or -1", c.Jobs)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.LogFormat != FormatJSON && c.LogFormat != FormatConsole {
		return errors.NewValidationError("log_format", "must be json or console", c.LogFormat)
	}
	return nil
}
