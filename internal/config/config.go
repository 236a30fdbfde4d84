// Package config loads and merges transpiler options from cnext.config.json
// (or the TOML equivalent) and from CLI flags, and implements the
// project-root search spec §6 defines for cache placement.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Config mirrors the `options` object of the transpile entry point (spec
// §6 "Options"). Every field is optional; zero values mean "not set" so
// Merge can tell a deliberate false/empty apart from an unconfigured flag.
type Config struct {
	IncludeDirs  []string `json:"includeDirs,omitempty" toml:"includeDirs,omitempty"`
	OutDir       string   `json:"outDir,omitempty" toml:"outDir,omitempty"`
	HeaderOutDir string   `json:"headerOutDir,omitempty" toml:"headerOutDir,omitempty"`
	BasePath     string   `json:"basePath,omitempty" toml:"basePath,omitempty"`
	CppRequired  bool     `json:"cppRequired,omitempty" toml:"cppRequired,omitempty"`
	ParseOnly    bool     `json:"parseOnly,omitempty" toml:"parseOnly,omitempty"`
	NoCache      bool     `json:"noCache,omitempty" toml:"noCache,omitempty"`
	DebugMode    bool     `json:"debugMode,omitempty" toml:"debugMode,omitempty"`
	Target       string   `json:"target,omitempty" toml:"target,omitempty"`
	Preprocess   *bool    `json:"preprocess,omitempty" toml:"preprocess,omitempty"`
}

// ProjectRootMarkers lists the marker files/directories spec §6 checks,
// in priority order, when locating the project root for cache placement.
var ProjectRootMarkers = []string{"cnext.config.json", ".cnx", ".git", "package.json", "platformio.ini"}

// Default returns the zero-value options the driver falls back to when no
// config file and no CLI flags set a given field.
func Default() *Config {
	preprocess := true
	return &Config{
		Target:     "generic",
		Preprocess: &preprocess,
	}
}

// PreprocessEnabled reports the effective preprocess setting, defaulting
// to true when unset.
func (c *Config) PreprocessEnabled() bool {
	if c.Preprocess == nil {
		return true
	}
	return *c.Preprocess
}

// LoadFromDir looks for cnext.config.json then cnext.config.toml in dir,
// returning Default() unchanged if neither exists.
func LoadFromDir(dir string) (*Config, error) {
	jsonPath := filepath.Join(dir, "cnext.config.json")
	if data, err := os.ReadFile(jsonPath); err == nil {
		if err := ValidateJSON(data); err != nil {
			return nil, fmt.Errorf("%s: %w", jsonPath, err)
		}
		cfg := Default()
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", jsonPath, err)
		}
		return cfg, nil
	}

	tomlPath := filepath.Join(dir, "cnext.config.toml")
	if data, err := os.ReadFile(tomlPath); err == nil {
		cfg := Default()
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", tomlPath, err)
		}
		return cfg, nil
	}

	return Default(), nil
}

// FindProjectRoot walks up from startDir looking for any of
// ProjectRootMarkers, checking markers in priority order at each level
// before ascending. It returns ok=false when no marker is found before
// reaching the filesystem root, in which case spec §6 disables caching.
func FindProjectRoot(startDir string) (root string, ok bool) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false
	}
	for {
		for _, marker := range ProjectRootMarkers {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir, true
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// Merge layers override on top of base: any field override sets
// non-zero-ish wins. Slices and strings win when non-empty; bools only
// layer from override when explicitly requested via the had* flags,
// since a bare `false` CLI flag is indistinguishable from "not passed".
func Merge(base *Config, override *Config, set OverrideSet) *Config {
	merged := *base
	if len(override.IncludeDirs) > 0 {
		merged.IncludeDirs = append(append([]string{}, base.IncludeDirs...), override.IncludeDirs...)
	}
	if override.OutDir != "" {
		merged.OutDir = override.OutDir
	}
	if override.HeaderOutDir != "" {
		merged.HeaderOutDir = override.HeaderOutDir
	}
	if override.BasePath != "" {
		merged.BasePath = override.BasePath
	}
	if override.Target != "" {
		merged.Target = override.Target
	}
	if set.CppRequired {
		merged.CppRequired = override.CppRequired
	}
	if set.ParseOnly {
		merged.ParseOnly = override.ParseOnly
	}
	if set.NoCache {
		merged.NoCache = override.NoCache
	}
	if set.DebugMode {
		merged.DebugMode = override.DebugMode
	}
	if set.Preprocess {
		merged.Preprocess = override.Preprocess
	}
	return &merged
}

// OverrideSet marks which boolean fields of an override Config were
// explicitly provided (e.g. by a CLI flag), so Merge can distinguish
// "explicitly false" from "unset".
type OverrideSet struct {
	CppRequired bool
	ParseOnly   bool
	NoCache     bool
	DebugMode   bool
	Preprocess  bool
}
