package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	spidex "github.com/wesleyorama2/spidex/http"
	"github.com/wesleyorama2/spidex/internal/logger"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Static error definitions for better error handling.
var (
	// ErrInvalidDuration indicates a timeout that is not a non-negative duration.
	ErrInvalidDuration = errors.New("invalid duration")
	// ErrUnknownLogLevel indicates that the log level is not recognized.
	ErrUnknownLogLevel = errors.New("unknown log level")
	// ErrInvalidLogLength indicates a max_log_length that is not a byte size.
	ErrInvalidLogLength = errors.New("invalid max_log_length")
	// ErrUnknownCharset indicates a charset without a decoder.
	ErrUnknownCharset = errors.New("unknown charset")
	// ErrUnknownOutput indicates an unsupported output format.
	ErrUnknownOutput = errors.New("unknown output format")
	// ErrInvalidEnvironment indicates an environment without a usable base URL.
	ErrInvalidEnvironment = errors.New("invalid environment")
	// ErrEnvironmentNotFound indicates a --env name missing from the configuration.
	ErrEnvironmentNotFound = errors.New("environment not found")
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Path    string
	Message string
	Err     error
}

// Error returns the error message
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Unwrap returns the sentinel describing the failure.
func (e ValidationError) Unwrap() error {
	return e.Err
}

// ValidateConfig checks the configuration for validity and sets derived fields.
// All problems are reported at once, joined into a single error.
func ValidateConfig(cfg *Config) error {
	var errs []error

	invalid := func(path string, sentinel error, format string, args ...any) {
		errs = append(errs, ValidationError{
			Path:    path,
			Message: fmt.Sprintf(format, args...),
			Err:     sentinel,
		})
	}

	durations := []struct {
		path  string
		value string
		dst   *time.Duration
	}{
		{"timeout", cfg.Timeout, &cfg.ParsedTimeout},
		{"request_timeout", cfg.RequestTimeout, &cfg.ParsedRequestTimeout},
		{"response_timeout", cfg.ResponseTimeout, &cfg.ParsedResponseTimeout},
	}

	for _, d := range durations {
		parsed, err := parseDuration(d.value)
		if err != nil {
			invalid(d.path, ErrInvalidDuration, "%v", err)
			continue
		}

		*d.dst = parsed
	}

	logLevel, ok := logger.ParseLogLevel(cfg.LogLevel)
	if !ok {
		invalid("log_level", ErrUnknownLogLevel, "unknown log level '%s'", cfg.LogLevel)
	}

	cfg.ParsedLogLevel = logLevel

	if length := strings.TrimSpace(cfg.MaxLogLength); length != "" {
		parsed, err := humanize.ParseBytes(length)
		if err != nil {
			invalid("max_log_length", ErrInvalidLogLength, "%v", err)
		} else {
			cfg.ParsedMaxLogLength = int(min(parsed, uint64(1<<31-1)))
		}
	}

	if _, err := spidex.LookupCharset(cfg.Charset); err != nil {
		invalid("charset", ErrUnknownCharset, "unknown charset '%s'", cfg.Charset)
	}

	switch strings.ToLower(cfg.Output) {
	case "", FormatText, FormatJSON, FormatYAML:
	default:
		invalid("output", ErrUnknownOutput, "output must be one of text, json, yaml; got '%s'", cfg.Output)
	}

	for name, env := range cfg.Environments {
		if env.BaseURL == "" {
			invalid(fmt.Sprintf("environments.%s.base_url", name), ErrInvalidEnvironment, "base_url is required")
			continue
		}

		if !isAbsoluteURL(env.BaseURL) {
			invalid(fmt.Sprintf("environments.%s.base_url", name), ErrInvalidEnvironment,
				"base_url must be absolute, got '%s'", env.BaseURL)
		}
	}

	return errors.Join(errs...)
}

// ValidateEnvironment validates that an environment exists
func ValidateEnvironment(cfg *Config, envName string) error {
	if _, ok := cfg.Environments[envName]; !ok {
		return fmt.Errorf("%w: %s", ErrEnvironmentNotFound, envName)
	}

	return nil
}

func parseDuration(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" || value == "0" {
		return 0, nil
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, err
	}

	if parsed < 0 {
		return 0, fmt.Errorf("duration must not be negative: %s", value)
	}

	return parsed, nil
}
