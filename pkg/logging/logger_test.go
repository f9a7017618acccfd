// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLogger_TextOutput verifies text-format output reaches the writer.
func TestLogger_TextOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelInfo, Output: &buf})

	logger.Info("batch resolved", "batch", "24PNOIR001")

	out := buf.String()
	assert.Contains(t, out, "batch resolved")
	assert.Contains(t, out, "24PNOIR001")
}

// TestLogger_LevelFiltering verifies messages below the minimum level
// are discarded.
func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelWarn, Output: &buf})

	logger.Debug("low level detail")
	logger.Info("routine event")
	logger.Warn("row skipped")

	out := buf.String()
	assert.NotContains(t, out, "low level detail")
	assert.NotContains(t, out, "routine event")
	assert.Contains(t, out, "row skipped")
}

// TestLogger_JSONOutput verifies JSON format produces parseable entries
// carrying the service attribute.
func TestLogger_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelInfo, JSON: true, Service: "cli", Output: &buf})

	logger.Info("export complete", "rows", 42)

	line := strings.TrimSpace(buf.String())
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry))

	assert.Equal(t, "export complete", entry["msg"])
	assert.Equal(t, "cli", entry["service"])
	assert.Equal(t, float64(42), entry["rows"])
}

// TestLogger_With verifies child loggers carry inherited attributes.
func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelInfo, Output: &buf})

	runLogger := logger.With("run_id", "abc123")
	runLogger.Info("graph frozen")

	assert.Contains(t, buf.String(), "abc123")
}

// TestLogger_Quiet verifies quiet mode suppresses writer output.
func TestLogger_Quiet(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelInfo, Quiet: true, Output: &buf})

	logger.Info("should be discarded")

	assert.Empty(t, buf.String())
}

// TestLogger_FileLogging verifies file logging writes JSON entries.
func TestLogger_FileLogging(t *testing.T) {
	dir := t.TempDir()
	logger := New(Config{Level: LevelInfo, Quiet: true, LogDir: dir, Service: "test"})

	logger.Info("persisted entry")
	require.NoError(t, logger.Close())

	entries, err := filepath.Glob(filepath.Join(dir, "test_*.log"))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, err := os.ReadFile(entries[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "persisted entry")
}

// TestLevel_String verifies level names.
func TestLevel_String(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "INFO", LevelInfo.String())
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "UNKNOWN", Level(99).String())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, LevelWarn, ParseLevel("warning"))
	assert.Equal(t, LevelError, ParseLevel("error"))
	assert.Equal(t, LevelInfo, ParseLevel(""))
	assert.Equal(t, LevelInfo, ParseLevel("bogus"))
}
