// Package config provides application configuration loaded from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/workflow-lens/lens-go/internal/query"
)

// Backend selects how the server talks to Temporal.
type Backend string

const (
	// BackendCLI shells out to the Temporal CLI binary.
	BackendCLI Backend = "cli"
	// BackendSDK dials the server over gRPC with the Go SDK.
	BackendSDK Backend = "sdk"
)

// Config holds all application configuration.
type Config struct {
	Backend Backend

	// CLI backend settings.
	CLIPath        string
	CLIEnv         string
	CLIRate        float64
	CommandTimeout time.Duration

	// SDK backend settings.
	Address string

	Namespace string

	// Tool behavior.
	MaxListLimit   int
	PayloadMaxLen  int
	FailureContext int
	CustomFields   map[string]query.FieldType

	LogLevel      string
	EnableTracing bool
}

// LoadFromEnv reads configuration from environment variables with sensible defaults.
func LoadFromEnv() (Config, error) {
	cfg := Config{
		Backend:       Backend(envOr("LENS_BACKEND", "cli")),
		CLIPath:       envOr("LENS_CLI_PATH", "temporal"),
		CLIEnv:        os.Getenv("LENS_CLI_ENV"),
		Address:       os.Getenv("LENS_TEMPORAL_ADDRESS"),
		Namespace:     os.Getenv("LENS_NAMESPACE"),
		LogLevel:      envOr("LENS_LOG_LEVEL", "info"),
		EnableTracing: os.Getenv("LENS_ENABLE_TRACING") == "true",
	}

	if cfg.Backend != BackendCLI && cfg.Backend != BackendSDK {
		return Config{}, fmt.Errorf("config: invalid LENS_BACKEND %q (must be cli or sdk)", cfg.Backend)
	}

	var err error
	if cfg.CLIRate, err = envFloat("LENS_CLI_RATE", 0); err != nil {
		return Config{}, err
	}
	if cfg.CommandTimeout, err = envDuration("LENS_COMMAND_TIMEOUT", 60*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.MaxListLimit, err = envInt("LENS_MAX_LIST_LIMIT", 50); err != nil {
		return Config{}, err
	}
	if cfg.PayloadMaxLen, err = envInt("LENS_PAYLOAD_MAX_LEN", 4000); err != nil {
		return Config{}, err
	}
	if cfg.FailureContext, err = envInt("LENS_FAILURE_CONTEXT", 10); err != nil {
		return Config{}, err
	}
	if cfg.CustomFields, err = parseCustomFields(os.Getenv("LENS_CUSTOM_FIELDS")); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// parseCustomFields parses "Tier:Keyword,Attempt:Int" declarations.
func parseCustomFields(raw string) (map[string]query.FieldType, error) {
	if raw == "" {
		return nil, nil
	}
	fields := make(map[string]query.FieldType)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, typeName, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, fmt.Errorf("config: LENS_CUSTOM_FIELDS entry %q must be Name:Type", pair)
		}
		t := query.FieldType(strings.TrimSpace(typeName))
		if !t.Valid() {
			return nil, fmt.Errorf("config: LENS_CUSTOM_FIELDS entry %q has unknown type %q", pair, typeName)
		}
		fields[strings.TrimSpace(name)] = t
	}
	return fields, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be an integer, got %q", key, v)
	}
	return n, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be a number, got %q", key, v)
	}
	return f, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be a duration like 30s, got %q", key, v)
	}
	return d, nil
}
