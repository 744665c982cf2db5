package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopairs/domain/screen"
	"gopairs/internal/errors"
	"gopairs/internal/logging"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the complete application configuration
type Config struct {
	Screening ScreeningConfig `yaml:"screening"`
	Logging   logging.Config  `yaml:"logging"`
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Profiling ProfilingConfig `yaml:"profiling"`
}

// ScreeningConfig holds the defaults applied to every screening call
type ScreeningConfig struct {
	Intercept bool    `yaml:"intercept"`
	SigLevel  float64 `yaml:"sig_level" validate:"gt=0,lt=1"`
	TopN      int     `yaml:"top_n" validate:"gt=0"`
	Workers   int     `yaml:"workers" validate:"gte=0"` // 0 means one per CPU
	Policy    string  `yaml:"policy" validate:"oneof=skip abort"`
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port string `yaml:"port" validate:"required,numeric"`
}

// DatabaseConfig holds the result store connection. An empty URL disables persistence.
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns" validate:"gte=0"`
}

// ProfilingConfig holds performance profiling settings
type ProfilingConfig struct {
	Port    string `yaml:"port" validate:"omitempty,numeric"`
	Enabled bool   `yaml:"enabled"`
}

// Enabled reports whether a result store is configured
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// CointegrationOptions returns the screening defaults as cointegration options
func (s ScreeningConfig) CointegrationOptions() screen.CointegrationOptions {
	return screen.CointegrationOptions{Intercept: s.Intercept, SigLevel: s.SigLevel}
}

// DistanceOptions returns the screening defaults as distance options
func (s ScreeningConfig) DistanceOptions() screen.DistanceOptions {
	return screen.DistanceOptions{N: s.TopN}
}

// SkipPolicy parses the configured policy
func (s ScreeningConfig) SkipPolicy() screen.SkipPolicy {
	policy, err := screen.ParseSkipPolicy(s.Policy)
	if err != nil {
		return screen.PolicySkip
	}
	return policy
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Screening: ScreeningConfig{
			Intercept: true,
			SigLevel:  screen.DefaultSigLevel,
			TopN:      screen.DefaultTopN,
			Policy:    string(screen.PolicySkip),
		},
		Logging: logging.DefaultConfig(),
		Server:  ServerConfig{Port: "8080"},
		Database: DatabaseConfig{
			MaxOpenConns: 10,
		},
		Profiling: ProfilingConfig{Port: "6060"},
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// GOPAIRS_CONFIG if set, then environment variables, and validates the result
func Load() (*Config, error) {
	config := Default()

	if path := os.Getenv("GOPAIRS_CONFIG"); path != "" {
		if err := loadFile(path, config); err != nil {
			return nil, err
		}
	}

	loadScreeningConfig(&config.Screening)
	loadLoggingConfig(&config.Logging)
	config.Server.Port = getEnvOrDefault("PORT", config.Server.Port)
	config.Database.URL = getEnvOrDefault("DATABASE_URL", config.Database.URL)
	config.Database.MaxOpenConns = getEnvIntOrDefault("DB_MAX_OPEN_CONNS", config.Database.MaxOpenConns)
	config.Profiling.Port = getEnvOrDefault("PPROF_PORT", config.Profiling.Port)
	config.Profiling.Enabled = getEnvBoolOrDefault("PPROF_ENABLED", config.Profiling.Enabled)

	if err := Validate(config); err != nil {
		return nil, err
	}
	return config, nil
}

func loadFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &errors.AppError{Code: errors.CodeConfigInvalid, Message: "failed to read config file", Cause: err}
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, fmt.Errorf("failed to parse %s: %w", path, err))
	}
	return nil
}

func loadScreeningConfig(s *ScreeningConfig) {
	s.Intercept = getEnvBoolOrDefault("SCREEN_INTERCEPT", s.Intercept)
	s.SigLevel = getEnvFloatOrDefault("SCREEN_SIG_LEVEL", s.SigLevel)
	s.TopN = getEnvIntOrDefault("SCREEN_TOP_N", s.TopN)
	s.Workers = getEnvIntOrDefault("SCREEN_WORKERS", s.Workers)
	s.Policy = strings.ToLower(getEnvOrDefault("SCREEN_POLICY", s.Policy))
}

func loadLoggingConfig(l *logging.Config) {
	l.Level = strings.ToLower(getEnvOrDefault("LOG_LEVEL", l.Level))
	l.Format = strings.ToLower(getEnvOrDefault("LOG_FORMAT", l.Format))
	l.Output = strings.ToLower(getEnvOrDefault("LOG_OUTPUT", l.Output))
	l.Dir = getEnvOrDefault("LOG_DIR", l.Dir)
}

var validate = validator.New()

// Validate checks every field tag and reports the first failures by name
func Validate(config *Config) error {
	err := validate.Struct(config)
	if err == nil {
		return nil
	}
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return errors.ConfigInvalid(strings.Join(msgs, "; "))
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
