// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads .seriescheck.yaml.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bartekus/seriescheck/internal/fuzzydiff"
	"github.com/bartekus/seriescheck/internal/runner"
)

// FileName is looked up at the repository root.
const FileName = ".seriescheck.yaml"

// Config is the file format. Zero values of optional fields mean "pick a
// default at runtime".
type Config struct {
	// Base is the revision the series starts after. Empty means the
	// merge-base with the upstream branch.
	Base string `yaml:"base"`

	Arch         string `yaml:"arch"`
	CrossCompile string `yaml:"cross_compile"`
	Jobs         int    `yaml:"jobs"`

	Fuzziness    float64 `yaml:"fuzziness"`
	FuzzyWorkers int     `yaml:"fuzzy_workers"`

	CommandTimeout time.Duration `yaml:"command_timeout"`

	// OutDir holds build output and run state, relative to the repo root.
	OutDir string `yaml:"out_dir"`

	Checks map[string]map[string]any `yaml:"checks"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Arch:         "arm64",
		CrossCompile: "aarch64-linux-gnu-",
		Fuzziness:    fuzzydiff.DefaultThreshold,
		OutDir:       ".seriescheck-out",
	}
}

// Parse decodes data over the defaults. Unknown keys are errors.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile reads and parses the config at path.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Discover loads FileName from root if it exists and returns the defaults
// otherwise. The returned path is empty when no file was found.
func Discover(root string) (Config, string, error) {
	path := filepath.Join(root, FileName)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Default(), "", nil
	}
	cfg, err := LoadFile(path)
	return cfg, path, err
}

func (c Config) Validate() error {
	var errs []error
	if c.Arch == "" {
		errs = append(errs, errors.New("arch must not be empty"))
	}
	if c.OutDir == "" {
		errs = append(errs, errors.New("out_dir must not be empty"))
	}
	if c.Jobs < 0 {
		errs = append(errs, fmt.Errorf("jobs must be >= 0, got %d", c.Jobs))
	}
	if c.Fuzziness <= 0 || c.Fuzziness > 1 {
		errs = append(errs, fmt.Errorf("fuzziness must be in (0, 1], got %g", c.Fuzziness))
	}
	if c.FuzzyWorkers < 0 {
		errs = append(errs, fmt.Errorf("fuzzy_workers must be >= 0, got %d", c.FuzzyWorkers))
	}
	if c.CommandTimeout < 0 {
		errs = append(errs, fmt.Errorf("command_timeout must be >= 0, got %s", c.CommandTimeout))
	}
	for check, opts := range c.Checks {
		for opt, v := range opts {
			switch v.(type) {
			case nil, bool, string, int, float64:
			default:
				errs = append(errs, fmt.Errorf("checks.%s.%s: expected a scalar, got %T", check, opt, v))
			}
		}
	}
	return errors.Join(errs...)
}

// CheckValues returns the per-check options as raw strings, ready to be
// layered under command line flags.
func (c Config) CheckValues() runner.Values {
	out := make(runner.Values, len(c.Checks))
	for check, opts := range c.Checks {
		out[check] = make(map[string]string, len(opts))
		for opt, v := range opts {
			if v == nil {
				out[check][opt] = ""
				continue
			}
			out[check][opt] = fmt.Sprint(v)
		}
	}
	return out
}

// OutPath resolves OutDir against the repository root.
func (c Config) OutPath(root string) string {
	if filepath.IsAbs(c.OutDir) {
		return c.OutDir
	}
	return filepath.Join(root, c.OutDir)
}

// Diff returns the fuzzy matcher configured by the file.
func (c Config) Diff() fuzzydiff.Matcher {
	return fuzzydiff.Matcher{Threshold: c.Fuzziness, Workers: c.FuzzyWorkers}
}
