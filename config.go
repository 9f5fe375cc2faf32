package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// LogLevel is the seven-level logging enum this service accepts, wider
// than log/slog's four standard levels.
type LogLevel string

const (
	LogLevelTrace    LogLevel = "trace"
	LogLevelDebug    LogLevel = "debug"
	LogLevelInfo     LogLevel = "info"
	LogLevelWarn     LogLevel = "warn"
	LogLevelError    LogLevel = "error"
	LogLevelCritical LogLevel = "critical"
	LogLevelNone     LogLevel = "none"
)

func (l LogLevel) valid() bool {
	switch l {
	case LogLevelTrace, LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError, LogLevelCritical, LogLevelNone:
		return true
	default:
		return false
	}
}

// Config is the set of values the process needs at startup.
type Config struct {
	QUICPort         uint16   `json:"quic_port"`
	HTTPPort         uint16   `json:"http_port"`
	AuthorizationURI string   `json:"authorization_uri"`
	LogLevel         LogLevel `json:"log_level"`
}

// envPrefix is shared by every RTC_SERVER_* environment variable.
const envPrefix = "RTC_SERVER_"

// LoadConfig loads a Config from the JSON file at path if it exists,
// otherwise from RTC_SERVER_* environment variables. Any missing or
// invalid field is a fatal load error.
func LoadConfig(path string) (Config, error) {
	if path != "" {
		if data, err := os.ReadFile(path); err == nil {
			var cfg Config
			if err := json.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
			}
			if err := cfg.validate(); err != nil {
				return Config{}, fmt.Errorf("config: %s: %w", path, err)
			}
			return cfg, nil
		}
	}
	return loadConfigFromEnv()
}

func loadConfigFromEnv() (Config, error) {
	quicPort, err := envPort(envPrefix + "QUIC_PORT")
	if err != nil {
		return Config{}, err
	}
	httpPort, err := envPort(envPrefix + "HTTP_PORT")
	if err != nil {
		return Config{}, err
	}

	authURI := os.Getenv(envPrefix + "AUTH_URI")
	if authURI == "" {
		return Config{}, fmt.Errorf("config: %sAUTH_URI is required", envPrefix)
	}

	cfg := Config{
		QUICPort:         quicPort,
		HTTPPort:         httpPort,
		AuthorizationURI: authURI,
		LogLevel:         LogLevel(os.Getenv(envPrefix + "LOG_LEVEL")),
	}
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func envPort(name string) (uint16, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return 0, fmt.Errorf("config: %s is required", name)
	}
	port, err := strconv.ParseUint(raw, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", name, err)
	}
	return uint16(port), nil
}

func (c Config) validate() error {
	if c.QUICPort == 0 {
		return fmt.Errorf("quic_port is required")
	}
	if c.HTTPPort == 0 {
		return fmt.Errorf("http_port is required")
	}
	if c.AuthorizationURI == "" {
		return fmt.Errorf("authorization_uri is required")
	}
	if !c.LogLevel.valid() {
		return fmt.Errorf("log_level %q is not one of trace/debug/info/warn/error/critical/none", c.LogLevel)
	}
	return nil
}
