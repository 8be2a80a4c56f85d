// config.go: bridge configuration with validation and file loading
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package rdpipe

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/agilira/argus"
	"gopkg.in/yaml.v3"
)

// DefaultChannelName is registered when no channels are configured.
const DefaultChannelName = "TestChannel"

// DefaultReadBufferSize sizes pipe reads for typical small-message traffic.
const DefaultReadBufferSize = 4096

// maxConfigFileSize caps config files to keep a corrupted or hostile file
// from exhausting memory on reload.
const maxConfigFileSize = 10 * 1024 * 1024

// Config holds the plugin-wide bridge settings.
//
// Channels and PipePrefix are fixed at Initialize: listeners are registered
// once and a bridge's pipe address never changes. ReadBufferSize is
// hot-applicable; a changed value takes effect on the next local pipe
// connection of every bridge.
type Config struct {
	// Channels lists the virtual-channel names to register with the host.
	Channels []string `json:"channels" yaml:"channels"`

	// PipePrefix is the fixed leading component of every pipe address.
	PipePrefix string `json:"pipe_prefix" yaml:"pipe_prefix"`

	// ReadBufferSize is the pipe read buffer size in bytes.
	ReadBufferSize int `json:"read_buffer_size" yaml:"read_buffer_size"`
}

// DefaultConfig provides reasonable defaults.
var DefaultConfig = Config{
	Channels:       []string{DefaultChannelName},
	PipePrefix:     DefaultPipePrefix,
	ReadBufferSize: DefaultReadBufferSize,
}

// Normalize fills zero values from DefaultConfig.
func (c *Config) Normalize() {
	if len(c.Channels) == 0 {
		c.Channels = []string{DefaultChannelName}
	}
	if c.PipePrefix == "" {
		c.PipePrefix = DefaultPipePrefix
	}
	if c.ReadBufferSize == 0 {
		c.ReadBufferSize = DefaultReadBufferSize
	}
}

// Validate checks the configuration for structural problems.
func (c *Config) Validate() error {
	if c.ReadBufferSize < 0 {
		return NewConfigValidationError("read_buffer_size cannot be negative", nil)
	}
	seen := make(map[string]struct{}, len(c.Channels))
	for _, name := range c.Channels {
		if name == "" {
			return NewConfigValidationError("channel name cannot be empty", nil)
		}
		if _, dup := seen[name]; dup {
			return NewConfigValidationError("duplicate channel name: "+name, nil)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// LoadConfig reads, parses, normalizes and validates a configuration file.
// JSON and YAML are supported; the format is detected from the file name.
func LoadConfig(path string) (Config, error) {
	var config Config

	cleanPath := filepath.Clean(path)
	info, err := os.Stat(cleanPath)
	if err != nil {
		return config, NewConfigFileError(path, "config file not accessible", err)
	}
	if !info.Mode().IsRegular() || info.Size() > maxConfigFileSize {
		return config, NewConfigFileError(path, "config file invalid or too large", nil)
	}

	configBytes, err := os.ReadFile(cleanPath) // #nosec G304 -- Path validated above
	if err != nil {
		return config, NewConfigFileError(path, "failed to read config file", err)
	}

	format := argus.DetectFormat(cleanPath)
	switch format {
	case argus.FormatJSON:
		err = json.Unmarshal(configBytes, &config)
	case argus.FormatYAML:
		err = yaml.Unmarshal(configBytes, &config)
	default:
		return config, NewConfigParseError(path, NewConfigValidationError("unsupported config format: "+format.String(), nil))
	}
	if err != nil {
		return config, NewConfigParseError(path, err)
	}

	config.Normalize()
	if err := config.Validate(); err != nil {
		return config, err
	}
	return config, nil
}
