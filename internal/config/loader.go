// Package config loads galaxystats settings from defaults and an optional
// YAML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values.
const (
	DefaultBaseURL     = "https://swapi.dev/api"
	DefaultTimeout     = 5000 * time.Millisecond
	DefaultPort        = 3000
	DefaultCharacterID = 1
	DefaultLogLevel    = "info"
)

// Settings is the resolved configuration of a galaxystats process.
type Settings struct {
	BaseURL            string
	Timeout            time.Duration
	Debug              bool
	Port               int
	CharacterID        int
	Coalesce           bool
	InsecureSkipVerify bool
	HistoryDSN         string // empty disables the history store
	LogLevel           string
}

// Defaults returns the built-in settings.
func Defaults() Settings {
	return Settings{
		BaseURL:     DefaultBaseURL,
		Timeout:     DefaultTimeout,
		Debug:       true,
		Port:        DefaultPort,
		CharacterID: DefaultCharacterID,
		LogLevel:    DefaultLogLevel,
	}
}

// FileConfig represents the galaxystats.yaml structure. Absent keys leave
// the corresponding setting untouched.
type FileConfig struct {
	BaseURL            string `yaml:"base_url"`
	TimeoutMs          *int   `yaml:"timeout_ms"`
	Debug              *bool  `yaml:"debug"`
	Port               *int   `yaml:"port"`
	CharacterID        *int   `yaml:"character_id"`
	Coalesce           *bool  `yaml:"coalesce"`
	InsecureSkipVerify *bool  `yaml:"insecure_skip_verify"`
	HistoryDSN         string `yaml:"history_dsn"`
	LogLevel           string `yaml:"log_level"`
}

// LoadFile reads, parses, and validates a YAML config file.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses and validates YAML config data. Unknown keys are rejected.
func Parse(data []byte) (*FileConfig, error) {
	var cfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if err := validateFile(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Apply overlays the keys present in the file onto s.
func (fc *FileConfig) Apply(s *Settings) {
	if fc.BaseURL != "" {
		s.BaseURL = fc.BaseURL
	}
	if fc.TimeoutMs != nil {
		s.Timeout = time.Duration(*fc.TimeoutMs) * time.Millisecond
	}
	if fc.Debug != nil {
		s.Debug = *fc.Debug
	}
	if fc.Port != nil {
		s.Port = *fc.Port
	}
	if fc.CharacterID != nil {
		s.CharacterID = *fc.CharacterID
	}
	if fc.Coalesce != nil {
		s.Coalesce = *fc.Coalesce
	}
	if fc.InsecureSkipVerify != nil {
		s.InsecureSkipVerify = *fc.InsecureSkipVerify
	}
	if fc.HistoryDSN != "" {
		s.HistoryDSN = fc.HistoryDSN
	}
	if fc.LogLevel != "" {
		s.LogLevel = fc.LogLevel
	}
}
