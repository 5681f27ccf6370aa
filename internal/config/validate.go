package config

import (
	"fmt"
	"strings"
)

// Supported source types
const (
	SourceAuto   = "auto"
	SourceDir    = "dir"
	SourceZip    = "zip"
	SourceBundle = "bundle"
)

var validSourceTypes = map[string]bool{
	SourceAuto:   true,
	SourceDir:    true,
	SourceZip:    true,
	SourceBundle: true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"text": true,
	"json": true,
}

// Validate checks every setting and normalizes the case of enumerated ones
func (c *Config) Validate() error {
	c.SourceType = strings.ToLower(c.SourceType)
	if !validSourceTypes[c.SourceType] {
		return fmt.Errorf("unsupported source type '%s', expected one of auto, dir, zip, bundle", c.SourceType)
	}

	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}

	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("jpeg quality must be between 1 and 100, got %d", c.JPEGQuality)
	}

	c.LogLevel = strings.ToLower(c.LogLevel)
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("unsupported log level '%s'", c.LogLevel)
	}

	c.LogFormat = strings.ToLower(c.LogFormat)
	if !validLogFormats[c.LogFormat] {
		return fmt.Errorf("unsupported log format '%s'", c.LogFormat)
	}

	if c.Output == "" {
		return fmt.Errorf("output directory cannot be empty")
	}

	return nil
}
