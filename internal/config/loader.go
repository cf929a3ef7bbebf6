package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// Config represents the settings of the spidex CLI.
type Config struct {
	// UserAgent replaces the process-wide default user agent when set.
	UserAgent string `mapstructure:"user_agent"`
	// Charset is the default response charset ("utf8", "binary", "gbk", ...).
	Charset string `mapstructure:"charset"`
	// Timeout bounds the whole round trip (e.g. "30s"). Empty disables it.
	Timeout string `mapstructure:"timeout"`
	// RequestTimeout bounds the time until response headers arrive.
	RequestTimeout string `mapstructure:"request_timeout"`
	// ResponseTimeout bounds the time from response headers to the end of the body.
	ResponseTimeout string `mapstructure:"response_timeout"`
	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool `mapstructure:"insecure_skip_verify"`
	// LogLevel specifies the logging verbosity level.
	LogLevel string `mapstructure:"log_level"`
	// MaxLogLength caps debug dumps of requests and responses (e.g. "64KB").
	MaxLogLength string `mapstructure:"max_log_length"`
	// Headers are sent with every request; flags take precedence.
	Headers map[string]string `mapstructure:"headers"`
	// Output is the default output format: text, json or yaml.
	Output string `mapstructure:"output"`
	// NoColor disables colored text output.
	NoColor bool `mapstructure:"no_color"`
	// Environments are named targets selected with --env.
	Environments map[string]Environment `mapstructure:"environments"`

	// ParsedTimeout is the parsed total timeout.
	ParsedTimeout time.Duration
	// ParsedRequestTimeout is the parsed request phase timeout.
	ParsedRequestTimeout time.Duration
	// ParsedResponseTimeout is the parsed response phase timeout.
	ParsedResponseTimeout time.Duration
	// ParsedLogLevel is the parsed zap log level.
	ParsedLogLevel zapcore.Level
	// ParsedMaxLogLength is the parsed dump limit in bytes.
	ParsedMaxLogLength int
}

// Environment represents an environment configuration
type Environment struct {
	BaseURL   string            `mapstructure:"base_url"`
	Headers   map[string]string `mapstructure:"headers"`
	Variables map[string]string `mapstructure:"variables"`
}

const (
	// DefaultConfigFilename is the default name of the configuration file.
	DefaultConfigFilename = ".spidex.yaml"

	// DefaultTimeout is the total timeout applied when nothing else is configured.
	DefaultTimeout = "30s"

	// DefaultMaxLogLength is the default limit of debug dumps.
	DefaultMaxLogLength = "64KB"
)

// LoadConfig loads configuration settings from a YAML file.
//
// An empty path looks for DefaultConfigFilename in the working directory and
// then in the home directory; finding neither is not an error and yields the
// defaults. An explicit path must exist.
func LoadConfig(configFilename string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	explicit := configFilename != ""
	if !explicit {
		configFilename = findDefaultConfig()
	}

	if configFilename != "" {
		v.SetConfigFile(configFilename)

		if err := v.ReadInConfig(); err != nil {
			if explicit || !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config from file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("charset", "utf8")
	v.SetDefault("timeout", DefaultTimeout)
	v.SetDefault("log_level", "info")
	v.SetDefault("max_log_length", DefaultMaxLogLength)
	v.SetDefault("output", FormatText)
}

func findDefaultConfig() string {
	candidates := []string{DefaultConfigFilename}

	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFilename))
	}

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return ""
}

// ProcessEnvironment replaces {{name}} placeholders in input with values from env.
func ProcessEnvironment(input string, env map[string]string) string {
	result := input

	for key, value := range env {
		result = strings.ReplaceAll(result, "{{"+key+"}}", value)
	}

	return result
}

// ProcessEnvironmentInMap applies ProcessEnvironment to every value of input.
func ProcessEnvironmentInMap(input map[string]string, env map[string]string) map[string]string {
	result := make(map[string]string, len(input))

	for key, value := range input {
		result[key] = ProcessEnvironment(value, env)
	}

	return result
}

// MergeHeaders merges header maps left to right; later maps take precedence
// regardless of key casing.
func MergeHeaders(layers ...map[string]string) map[string]string {
	result := make(map[string]string)

	for _, layer := range layers {
		for key, value := range layer {
			result[strings.ToLower(key)] = value
		}
	}

	return result
}

// ResolveURL expands placeholders in target and joins it with the environment
// base URL unless it is already absolute.
func (e Environment) ResolveURL(target string) string {
	target = ProcessEnvironment(target, e.Variables)
	if e.BaseURL == "" || isAbsoluteURL(target) {
		return target
	}

	base := strings.TrimRight(ProcessEnvironment(e.BaseURL, e.Variables), "/")
	if target == "" {
		return base
	}

	return base + "/" + strings.TrimLeft(target, "/")
}

func isAbsoluteURL(target string) bool {
	return strings.Contains(target, "://")
}
