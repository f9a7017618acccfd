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

// Config holds run defaults. Flags override config values, which
// override the built-in defaults.
type Config struct {
	// Analysis controls input handling and output placement.
	Analysis AnalysisConfig `yaml:"analysis"`

	// Logging controls log verbosity and destination.
	Logging LoggingConfig `yaml:"logging"`
}

type AnalysisConfig struct {
	OutputDir   string `yaml:"output_dir"`   // e.g. lineage_analysis
	VesselsFile string `yaml:"vessels_file"` // optional vessel snapshot path
	Winery      string `yaml:"winery"`       // keep only this winery's rows when set
	CacheSize   int    `yaml:"cache_size"`   // ancestry tree cache capacity
}

type LoggingConfig struct {
	Level  string `yaml:"level"`   // debug, info, warn, error
	LogDir string `yaml:"log_dir"` // empty disables file logging
	JSON   bool   `yaml:"json"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Analysis: AnalysisConfig{
			OutputDir: "lineage_analysis",
			CacheSize: 256,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
