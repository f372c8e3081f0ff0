// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrConfigExists is returned by Init when the file is already present.
var ErrConfigExists = errors.New("config file already exists")

// SearchPaths returns the implicit config locations in lookup order.
func SearchPaths() []string {
	paths := []string{DefaultFileName}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".stampsweep", DefaultFileName))
	}
	return paths
}

// Load reads the sweep configuration.
//
// # Description
//
// An explicit path must exist. Otherwise the SearchPaths are tried in order
// and the first existing file wins; with none found DefaultConfig is used.
// Values missing from a file keep their defaults. The result is not
// validated, because command-line flags are applied on top first.
//
// # Outputs
//
//   - SweepConfig: The loaded configuration
//   - string: The file it came from, or "" for defaults
//   - error: Read or parse failure
func Load(explicitPath string) (SweepConfig, string, error) {
	if explicitPath != "" {
		cfg, err := loadFile(explicitPath)
		return cfg, explicitPath, err
	}
	for _, p := range SearchPaths() {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		cfg, err := loadFile(p)
		return cfg, p, err
	}
	return DefaultConfig(), "", nil
}

func loadFile(path string) (SweepConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SweepConfig{}, fmt.Errorf("failed to read the config file %s: %w", path, err)
	}
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return SweepConfig{}, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
	}
	return cfg, nil
}

// Init writes the default configuration to path.
func Init(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrConfigExists, path)
		}
	}
	return createDefault(path)
}

func createDefault(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create the config directory %w", err)
	}
	defaultCfg := DefaultConfig()
	data, err := yaml.Marshal(defaultCfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
