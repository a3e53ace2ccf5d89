package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the analysis agent.
type Config struct {
	// HTTP binding
	BindAddr         string
	PortCandidates   []string
	PortAutoFallback bool

	// Browser settings
	CDPURL    string // attach to a running browser instead of launching one
	Headless  bool
	UserAgent string

	// Analysis limits
	NavTimeoutMS  int
	IdleTimeoutMS int
	MaxBodyChars  int

	// Security signatures
	SignaturesFile string

	// Logging
	LogLevel string
	LogFile  string
}

// Load reads configuration from environment variables and optional .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	cfg := &Config{
		BindAddr:         getEnvOrDefault("WEBSCOPE_BIND_ADDR", "127.0.0.1:8170"),
		PortCandidates:   getEnvListOrDefault("WEBSCOPE_PORT_CANDIDATES", []string{"127.0.0.1:8171", "127.0.0.1:8172", "127.0.0.1:8173"}),
		PortAutoFallback: getEnvBoolOrDefault("WEBSCOPE_PORT_AUTO_FALLBACK", true),
		CDPURL:           getEnvOrDefault("WEBSCOPE_CDP_URL", ""),
		Headless:         getEnvBoolOrDefault("WEBSCOPE_HEADLESS", true),
		UserAgent:        getEnvOrDefault("WEBSCOPE_USER_AGENT", ""),
		NavTimeoutMS:     getEnvIntOrDefault("WEBSCOPE_NAV_TIMEOUT_MS", 30000),
		IdleTimeoutMS:    getEnvIntOrDefault("WEBSCOPE_IDLE_TIMEOUT_MS", 10000),
		MaxBodyChars:     getEnvIntOrDefault("WEBSCOPE_MAX_BODY_CHARS", 50000),
		SignaturesFile:   getEnvOrDefault("WEBSCOPE_SIGNATURES_FILE", ""),
		LogLevel:         getEnvOrDefault("WEBSCOPE_LOG_LEVEL", "info"),
		LogFile:          getEnvOrDefault("WEBSCOPE_LOG_FILE", "logs/webscope.log"),
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvListOrDefault(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
