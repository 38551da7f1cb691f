// Package config loads patchkit configuration from TOML files.
package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/patchkit/internal/vfs"
)

// Config holds all tunable settings. Zero values are filled from
// Default, so a partial TOML file only overrides what it names.
type Config struct {
	// Backup controls backup file naming.
	Backup BackupConfig `toml:"backup"`

	// Limits bounds what the engine will load.
	Limits LimitsConfig `toml:"limits"`

	// Context controls diagnostic context extraction.
	Context ContextConfig `toml:"context"`

	// Log controls structured logging.
	Log LogConfig `toml:"log"`
}

// BackupConfig controls backup file naming.
type BackupConfig struct {
	// Suffix is appended to the original path. One generation only.
	Suffix string `toml:"suffix"`
}

// LimitsConfig bounds what the engine will load.
type LimitsConfig struct {
	// MaxFileSize is the largest file the engine will edit, in bytes.
	// 0 means unlimited.
	MaxFileSize int64 `toml:"max_file_size"`
}

// ContextConfig controls diagnostic context extraction.
type ContextConfig struct {
	// NoMatchWindow is the line count before and after a partial match.
	NoMatchWindow int `toml:"no_match_window"`

	// AmbiguousWindow is the line count before and after each
	// ambiguous occurrence.
	AmbiguousWindow int `toml:"ambiguous_window"`

	// MaxLocations caps reported ambiguous occurrences.
	MaxLocations int `toml:"max_locations"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	// Level is one of DEBUG, INFO, WARN, ERROR.
	Level string `toml:"level"`

	// Path is the log file; empty logs to stderr.
	Path string `toml:"path"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Backup: BackupConfig{
			Suffix: ".bak",
		},
		Limits: LimitsConfig{
			MaxFileSize: 10 * 1024 * 1024,
		},
		Context: ContextConfig{
			NoMatchWindow:   7,
			AmbiguousWindow: 3,
			MaxLocations:    5,
		},
		Log: LogConfig{
			Level: "INFO",
		},
	}
}

// ParseError represents an error while parsing a configuration file.
type ParseError struct {
	Path    string
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error in %s: %s", e.Path, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Loader reads configuration through a VFS, so tests can load from an
// in-memory file system.
type Loader struct {
	fs   vfs.VFS
	path string
}

// NewLoader creates a loader for the given path.
func NewLoader(path string) *Loader {
	return &Loader{fs: vfs.NewOSFS(), path: path}
}

// NewLoaderWithFS creates a loader with a custom file system.
func NewLoaderWithFS(fsys vfs.VFS, path string) *Loader {
	return &Loader{fs: fsys, path: path}
}

// Load reads the configured path, layering it over Default. A missing
// file is not an error: defaults are returned unchanged.
func (l *Loader) Load() (Config, error) {
	cfg := Default()

	data, err := l.fs.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config file %s: %w", l.path, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Default(), &ParseError{
			Path:    l.path,
			Message: err.Error(),
			Err:     err,
		}
	}

	return cfg, nil
}
