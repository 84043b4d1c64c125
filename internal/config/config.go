// Package config loads and validates the declarative pipeline configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/assetpipe/internal/errors"
)

// Load reads a configuration file, applies environment overrides and
// defaults, and validates the result.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to read configuration file").
			WithContext("path", path)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to parse configuration").
			WithContext("path", path)
	}

	applyEnvOverrides(&cfg)
	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the configuration for structural problems that would
// fail the build anyway; validating here keeps failures cheap and early.
func Validate(cfg *Config) error {
	if len(cfg.Entries) == 0 {
		return errors.New(errors.CategoryValidation, errors.SeverityFatal, "at least one entry point is required")
	}

	seen := make(map[string]bool, len(cfg.Entries))
	for _, e := range cfg.Entries {
		if e.Name == "" || e.Path == "" {
			return errors.New(errors.CategoryValidation, errors.SeverityFatal, "entry requires both name and path").
				WithContext("name", e.Name).
				WithContext("path", e.Path)
		}
		if seen[e.Name] {
			return errors.New(errors.CategoryValidation, errors.SeverityFatal, "duplicate entry name").
				WithContext("name", e.Name)
		}
		seen[e.Name] = true
	}

	if cfg.Output.Dir == "" {
		return errors.New(errors.CategoryValidation, errors.SeverityFatal, "output.dir is required")
	}
	if cfg.Output.HashLength < 8 || cfg.Output.HashLength > 16 {
		return errors.New(errors.CategoryValidation, errors.SeverityFatal, "output.hash_length must be between 8 and 16").
			WithContext("hash_length", cfg.Output.HashLength)
	}

	for i, r := range cfg.Rules {
		if len(r.Stages) == 0 {
			return errors.New(errors.CategoryValidation, errors.SeverityFatal, "rule has no stages").
				WithContext("rule_index", i)
		}
		if r.Exclusive && r.Group == "" {
			return errors.New(errors.CategoryValidation, errors.SeverityFatal, "exclusive rule requires a group name").
				WithContext("rule_index", i)
		}
		for _, ext := range r.Extensions {
			if !strings.HasPrefix(ext, ".") {
				return errors.New(errors.CategoryValidation, errors.SeverityFatal, "rule extension must start with a dot").
					WithContext("rule_index", i).
					WithContext("extension", ext)
			}
		}
	}

	if cfg.Notify.Enabled && cfg.Notify.NATSURL == "" {
		return errors.New(errors.CategoryValidation, errors.SeverityFatal, "notify.nats_url is required when notify is enabled")
	}

	return nil
}

// TemplateFor returns the naming template for an asset kind.
func (c *Config) TemplateFor(kind AssetKind) string {
	if t, ok := c.Output.Templates[kind]; ok && t != "" {
		return t
	}
	return c.Output.Template
}

// Init writes a starter configuration file.
func Init(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("configuration file %s already exists (use --force to overwrite)", path)
		}
	}
	// #nosec G306 -- configuration scaffold is not sensitive
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}

const defaultConfigYAML = `# assetpipe configuration
source_root: ./src

entries:
  - name: app
    path: app.js

output:
  dir: ./dist
  template: "[name].[contenthash][ext]"
  hash_length: 8

options:
  minify: true
  source_maps: false
  split_chunks: false
  runtime_chunk: false

build:
  concurrency: 4

# rules:
#   - extensions: [".css"]
#     stages: [autoprefix, cssmin]
#   - extensions: [".png"]
#     query: {format: webp}
#     stages: [webp]
#     exclusive: true
#     group: image-encode
#     priority: 10
`
