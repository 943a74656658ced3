// Package config provides configuration loading and validation for the
// governance gateway. It uses koanf to merge environment variables with
// optional file overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration values for the governance gateway.
type Config struct {
	// Server settings
	Port        int    `koanf:"port"`
	Env         string `koanf:"env"`
	ServiceName string `koanf:"service_name"`

	// Identity realms
	InternalIssuerURL  string `koanf:"internal_issuer_url"`
	CustomerIssuerURL  string `koanf:"customer_issuer_url"`
	InternalJWKSURL    string `koanf:"internal_jwks_url"`
	CustomerJWKSURL    string `koanf:"customer_jwks_url"`
	KeyCacheTTLMinutes int    `koanf:"key_cache_ttl_minutes"`

	// Confirmation store
	RedisAddr              string `koanf:"redis_addr"`
	RedisPassword          string `koanf:"redis_password"`
	ConfirmationTTLSeconds int    `koanf:"confirmation_ttl_seconds"`

	// Audit pipeline
	AuditEnabled     bool   `koanf:"audit_enabled"`
	AuditMinSeverity string `koanf:"audit_min_severity"`
	AuditDatabaseURL string `koanf:"audit_database_url"`
	LogSinkURL       string `koanf:"log_sink_url"`
	LogSinkToken     string `koanf:"log_sink_token"`
	SIEMWebhookURL   string `koanf:"siem_webhook_url"`

	// Guard limits
	MaxPromptLength int `koanf:"max_prompt_length"`
	MaxOutputLength int `koanf:"max_output_length"`
	MaxQueryResults int `koanf:"max_query_results"`

	// Masking
	SalaryBandIncrement int `koanf:"salary_band_increment"`
}

// Configuration validation errors.
var (
	ErrMissingInternalIssuerURL = errors.New("INTERNAL_ISSUER_URL is required")
	ErrMissingCustomerIssuerURL = errors.New("CUSTOMER_ISSUER_URL is required")
	ErrMissingInternalJWKSURL   = errors.New("INTERNAL_JWKS_URL is required")
	ErrMissingCustomerJWKSURL   = errors.New("CUSTOMER_JWKS_URL is required")
	ErrMissingRedisAddr         = errors.New("REDIS_ADDR is required")
	ErrInvalidMinSeverity       = errors.New("AUDIT_MIN_SEVERITY must be one of: emergency, alert, critical, error, warning, notice, info, debug")
	ErrInvalidPort              = errors.New("PORT must be a valid integer")
)

// Default values for non-secret configuration.
const (
	DefaultPort                   = 8080
	DefaultEnv                    = "development"
	DefaultServiceName            = "govern-gateway"
	DefaultKeyCacheTTLMinutes     = 10
	DefaultConfirmationTTLSeconds = 300
	DefaultAuditEnabled           = true
	DefaultAuditMinSeverity       = "info"
	DefaultMaxPromptLength        = 4000
	DefaultMaxOutputLength        = 10000
	DefaultMaxQueryResults        = 50
	DefaultSalaryBandIncrement    = 10000
)

// validSeverities mirrors the severity names accepted by the audit pipeline.
var validSeverities = map[string]bool{
	"emergency": true,
	"alert":     true,
	"critical":  true,
	"error":     true,
	"warning":   true,
	"notice":    true,
	"info":      true,
	"debug":     true,
}

// Load reads configuration from environment variables and an optional config file.
// Environment variables take precedence over file values.
// Returns the loaded config and a slice of validation errors (empty if valid).
// If a config file path is provided and the file cannot be loaded, an error is returned.
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	var loadErrs []error

	// Load from YAML file first if provided (lower precedence)
	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	port, portErr := getEnvIntOrDefault("PORT", k.Int("port"), DefaultPort)
	if portErr != nil {
		loadErrs = append(loadErrs, portErr)
	}

	keyCacheTTL, ttlErr := getEnvIntOrDefault("KEY_CACHE_TTL_MINUTES", k.Int("key_cache_ttl_minutes"), DefaultKeyCacheTTLMinutes)
	if ttlErr != nil {
		loadErrs = append(loadErrs, ttlErr)
	}

	confirmTTL, confirmErr := getEnvIntOrDefault("CONFIRMATION_TTL_SECONDS", k.Int("confirmation_ttl_seconds"), DefaultConfirmationTTLSeconds)
	if confirmErr != nil {
		loadErrs = append(loadErrs, confirmErr)
	}

	maxPrompt, promptErr := getEnvIntOrDefault("MAX_PROMPT_LENGTH", k.Int("max_prompt_length"), DefaultMaxPromptLength)
	if promptErr != nil {
		loadErrs = append(loadErrs, promptErr)
	}

	maxOutput, outputErr := getEnvIntOrDefault("MAX_OUTPUT_LENGTH", k.Int("max_output_length"), DefaultMaxOutputLength)
	if outputErr != nil {
		loadErrs = append(loadErrs, outputErr)
	}

	maxResults, resultsErr := getEnvIntOrDefault("MAX_QUERY_RESULTS", k.Int("max_query_results"), DefaultMaxQueryResults)
	if resultsErr != nil {
		loadErrs = append(loadErrs, resultsErr)
	}

	salaryIncrement, salaryErr := getEnvIntOrDefault("SALARY_BAND_INCREMENT", k.Int("salary_band_increment"), DefaultSalaryBandIncrement)
	if salaryErr != nil {
		loadErrs = append(loadErrs, salaryErr)
	}

	auditEnabled := DefaultAuditEnabled
	if k.Exists("audit_enabled") {
		auditEnabled = k.Bool("audit_enabled")
	}
	if val := os.Getenv("AUDIT_ENABLED"); val != "" {
		// Env var takes precedence over file config
		switch strings.ToLower(val) {
		case "true", "1", "yes", "on":
			auditEnabled = true
		case "false", "0", "no", "off":
			auditEnabled = false
		}
	}

	// Build config struct, with env vars taking precedence over file values
	cfg := &Config{
		Port:                   port,
		Env:                    getEnvOrDefault("GOVERN_ENV", k.String("env"), DefaultEnv),
		ServiceName:            getEnvOrDefault("SERVICE_NAME", k.String("service_name"), DefaultServiceName),
		InternalIssuerURL:      getEnvOrKoanf("INTERNAL_ISSUER_URL", k, "internal_issuer_url"),
		CustomerIssuerURL:      getEnvOrKoanf("CUSTOMER_ISSUER_URL", k, "customer_issuer_url"),
		InternalJWKSURL:        getEnvOrKoanf("INTERNAL_JWKS_URL", k, "internal_jwks_url"),
		CustomerJWKSURL:        getEnvOrKoanf("CUSTOMER_JWKS_URL", k, "customer_jwks_url"),
		KeyCacheTTLMinutes:     keyCacheTTL,
		RedisAddr:              getEnvOrKoanf("REDIS_ADDR", k, "redis_addr"),
		RedisPassword:          getEnvOrKoanf("REDIS_PASSWORD", k, "redis_password"),
		ConfirmationTTLSeconds: confirmTTL,
		AuditEnabled:           auditEnabled,
		AuditMinSeverity:       getEnvOrDefault("AUDIT_MIN_SEVERITY", k.String("audit_min_severity"), DefaultAuditMinSeverity),
		AuditDatabaseURL:       getEnvOrKoanf("AUDIT_DATABASE_URL", k, "audit_database_url"),
		LogSinkURL:             getEnvOrKoanf("LOG_SINK_URL", k, "log_sink_url"),
		LogSinkToken:           getEnvOrKoanf("LOG_SINK_TOKEN", k, "log_sink_token"),
		SIEMWebhookURL:         getEnvOrKoanf("SIEM_WEBHOOK_URL", k, "siem_webhook_url"),
		MaxPromptLength:        maxPrompt,
		MaxOutputLength:        maxOutput,
		MaxQueryResults:        maxResults,
		SalaryBandIncrement:    salaryIncrement,
	}

	// Validate and collect errors
	errs := cfg.Validate()
	errs = append(loadErrs, errs...)

	return cfg, errs
}

// getEnvOrKoanf returns the environment variable value if set, otherwise the koanf value.
func getEnvOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	return k.String(koanfKey)
}

// getEnvOrDefault returns the environment variable value if set, otherwise the koanf value, or default.
func getEnvOrDefault(envKey string, koanfVal string, defaultVal string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvIntOrDefault returns the environment variable as int if set, otherwise the koanf value, or default.
// Returns an error if the environment variable is set but cannot be parsed as an integer.
func getEnvIntOrDefault(envKey string, koanfVal int, defaultVal int) (int, error) {
	if val := os.Getenv(envKey); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid integer: %w", envKey, ErrInvalidPort)
		}
		return i, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// Validate checks that all required configuration values are present.
// Returns a slice of validation errors (empty if valid).
func (c *Config) Validate() []error {
	var errs []error

	if c.InternalIssuerURL == "" {
		errs = append(errs, ErrMissingInternalIssuerURL)
	}
	if c.CustomerIssuerURL == "" {
		errs = append(errs, ErrMissingCustomerIssuerURL)
	}
	if c.InternalJWKSURL == "" {
		errs = append(errs, ErrMissingInternalJWKSURL)
	}
	if c.CustomerJWKSURL == "" {
		errs = append(errs, ErrMissingCustomerJWKSURL)
	}
	if c.RedisAddr == "" {
		errs = append(errs, ErrMissingRedisAddr)
	}
	if !validSeverities[strings.ToLower(c.AuditMinSeverity)] {
		errs = append(errs, ErrInvalidMinSeverity)
	}

	return errs
}

// LogSummary returns a summary of the configuration suitable for logging.
// All secrets are masked to prevent accidental exposure.
func (c *Config) LogSummary() map[string]string {
	return map[string]string{
		"port":                     fmt.Sprintf("%d", c.Port),
		"env":                      c.Env,
		"service_name":             c.ServiceName,
		"internal_issuer_url":      c.InternalIssuerURL,
		"customer_issuer_url":      c.CustomerIssuerURL,
		"internal_jwks_url":        c.InternalJWKSURL,
		"customer_jwks_url":        c.CustomerJWKSURL,
		"key_cache_ttl_minutes":    fmt.Sprintf("%d", c.KeyCacheTTLMinutes),
		"redis_addr":               c.RedisAddr,
		"redis_password":           maskSecret(c.RedisPassword),
		"confirmation_ttl_seconds": fmt.Sprintf("%d", c.ConfirmationTTLSeconds),
		"audit_enabled":            fmt.Sprintf("%t", c.AuditEnabled),
		"audit_min_severity":       c.AuditMinSeverity,
		"audit_database_url":       maskDatabaseURL(c.AuditDatabaseURL),
		"log_sink_url":             c.LogSinkURL,
		"log_sink_token":           maskSecret(c.LogSinkToken),
		"siem_webhook_url":         c.SIEMWebhookURL,
		"max_prompt_length":        fmt.Sprintf("%d", c.MaxPromptLength),
		"max_output_length":        fmt.Sprintf("%d", c.MaxOutputLength),
		"max_query_results":        fmt.Sprintf("%d", c.MaxQueryResults),
		"salary_band_increment":    fmt.Sprintf("%d", c.SalaryBandIncrement),
	}
}

// maskSecret masks a secret value, showing only the first 4 characters followed by ****
// If the secret is shorter than 8 characters, it's fully masked.
func maskSecret(s string) string {
	if s == "" {
		return "<not set>"
	}
	if len(s) < 8 {
		return "****"
	}
	return s[:4] + "****"
}

// maskDatabaseURL masks the password in a database URL.
// Supports both postgres:// and postgresql:// schemes.
func maskDatabaseURL(s string) string {
	if s == "" {
		return "<not set>"
	}

	schemeEnd := strings.Index(s, "://")
	if schemeEnd == -1 {
		return maskSecret(s)
	}

	rest := s[schemeEnd+3:]
	atIndex := strings.Index(rest, "@")
	if atIndex == -1 {
		return s // No credentials in URL
	}

	colonIndex := strings.Index(rest[:atIndex], ":")
	if colonIndex == -1 {
		return s // No password (only username)
	}

	scheme := s[:schemeEnd+3]
	user := rest[:colonIndex]
	hostAndPath := rest[atIndex:]

	return scheme + user + ":****" + hostAndPath
}
