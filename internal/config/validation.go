package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError holds all validation failures for a configuration.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: %s", strings.Join(e.Errors, "; "))
}

// Validate checks resolved settings for correctness.
func (s Settings) Validate() error {
	var errs []string
	if s.Timeout <= 0 {
		errs = append(errs, fmt.Sprintf("timeout must be positive, got %s", s.Timeout))
	}
	if err := validatePort(s.Port); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateBaseURL(s.BaseURL); err != nil {
		errs = append(errs, err.Error())
	}
	if s.CharacterID < 1 {
		errs = append(errs, fmt.Sprintf("character_id must be at least 1, got %d", s.CharacterID))
	}
	if err := validateLogLevel(s.LogLevel); err != nil {
		errs = append(errs, err.Error())
	}
	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// validateFile checks the keys present in a parsed file.
func validateFile(cfg *FileConfig) error {
	var errs []string
	if cfg.TimeoutMs != nil && *cfg.TimeoutMs <= 0 {
		errs = append(errs, fmt.Sprintf("timeout_ms must be positive, got %d", *cfg.TimeoutMs))
	}
	if cfg.Port != nil {
		if err := validatePort(*cfg.Port); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if cfg.BaseURL != "" {
		if err := validateBaseURL(cfg.BaseURL); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if cfg.CharacterID != nil && *cfg.CharacterID < 1 {
		errs = append(errs, fmt.Sprintf("character_id must be at least 1, got %d", *cfg.CharacterID))
	}
	if cfg.LogLevel != "" {
		if err := validateLogLevel(cfg.LogLevel); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

func validatePort(p int) error {
	if p < 1 || p > 65535 {
		return fmt.Errorf("port %d out of range (must be 1-65535)", p)
	}
	return nil
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid base_url %q: %w", raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid base_url %q (must be an absolute http or https URL)", raw)
	}
	return nil
}

func validateLogLevel(l string) error {
	switch l {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("invalid log_level %q (must be debug, info, warn, or error)", l)
	}
}
