// Copyright 2025 The gitdeck Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config resolves host startup settings: the optional config file,
// environment overrides, and the repository path fallback chain.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// RepoEnv is the environment variable that overrides the repository path.
const RepoEnv = "GITDECK_REPO"

// Config carries host startup settings. Precedence: command-line flags,
// then environment, then the config file, then built-in defaults.
type Config struct {
	// Port pins the sidecar port instead of letting the OS pick one.
	Port int

	// RepoPath overrides the repository path fallback chain.
	RepoPath string

	// ServerBin overrides the sidecar executable path.
	ServerBin string

	// ReadyTimeout is the total budget for the sidecar to become reachable.
	ReadyTimeout time.Duration

	// LogLevel and LogFormat configure the host logger.
	LogLevel  string
	LogFormat string
}

// fileConfig is the on-disk YAML shape. Durations are strings so users can
// write "15s" rather than nanosecond counts.
type fileConfig struct {
	Port         int    `yaml:"port"`
	RepoPath     string `yaml:"repo_path"`
	ServerBin    string `yaml:"server_bin"`
	ReadyTimeout string `yaml:"ready_timeout"`
	LogLevel     string `yaml:"log_level"`
	LogFormat    string `yaml:"log_format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load reads the config file at path over the built-in defaults. An empty
// path means the default XDG location, which is optional; an explicitly
// given path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := ConfigPath()
		if err != nil {
			// No resolvable home directory; defaults still work.
			return cfg, nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if explicit {
				return nil, fmt.Errorf("config file not found: %s", path)
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if fc.Port != 0 {
		cfg.Port = fc.Port
	}
	if fc.RepoPath != "" {
		cfg.RepoPath = fc.RepoPath
	}
	if fc.ServerBin != "" {
		cfg.ServerBin = fc.ServerBin
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
	if fc.LogFormat != "" {
		cfg.LogFormat = fc.LogFormat
	}
	if fc.ReadyTimeout != "" {
		d, err := time.ParseDuration(fc.ReadyTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid ready_timeout in %s: %w", path, err)
		}
		cfg.ReadyTimeout = d
	}

	return cfg, nil
}
