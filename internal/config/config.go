// Package config loads environment configuration for mousetap.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

const (
	defaultListenAddr    = "127.0.0.1:8790"
	defaultDataDir       = "./data"
	defaultRulesFile     = "rules.yaml"
	defaultLogLevel      = "info"
	defaultLogFormat     = "console"
	defaultFeedQueue     = 64
	defaultStopOnHandled = true
)

// Config holds runtime configuration values.
type Config struct {
	ListenAddr       string
	DataDir          string
	RulesPath        string
	FeedToken        string
	DispatchParallel bool
	StopOnHandled    bool
	LogLevel         string
	LogFormat        string
	FeedQueue        int
}

// Load reads configuration from a .env file and environment variables, the
// latter taking precedence. An empty envPath means <DATA_DIR>/.env.
func Load(envPath string) (Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	dataDir := envString(v, "DATA_DIR", defaultDataDir)
	if envPath == "" {
		envPath = filepath.Join(dataDir, ".env")
	}
	if err := readEnvFile(v, envPath); err != nil {
		return Config{}, err
	}

	cfg := Config{
		ListenAddr: envString(v, "LISTEN_ADDR", defaultListenAddr),
		DataDir:    envString(v, "DATA_DIR", defaultDataDir),
		FeedToken:  strings.TrimSpace(v.GetString("FEED_TOKEN")),
		LogLevel:   strings.ToLower(envString(v, "LOG_LEVEL", defaultLogLevel)),
		LogFormat:  normalizeLogFormat(envString(v, "LOG_FORMAT", defaultLogFormat)),
	}
	cfg.RulesPath = envString(v, "RULES_PATH", filepath.Join(cfg.DataDir, defaultRulesFile))
	cfg.DispatchParallel = envBool(v, "DISPATCH_PARALLEL", false)
	cfg.StopOnHandled = envBool(v, "STOP_ON_HANDLED", defaultStopOnHandled)

	queue, err := envInt(v, "FEED_QUEUE", defaultFeedQueue)
	if err != nil {
		return Config{}, err
	}
	if queue <= 0 {
		return Config{}, fmt.Errorf("FEED_QUEUE must be > 0")
	}
	cfg.FeedQueue = queue

	if cfg.DispatchParallel && cfg.StopOnHandled {
		// Parallel consumers all run; there is nothing to stop.
		cfg.StopOnHandled = false
	}
	return cfg, nil
}

// readEnvFile merges KEY=VALUE pairs from path; a missing file is not an error.
func readEnvFile(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}

// normalizeLogFormat ensures a supported log format value.
func normalizeLogFormat(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "json":
		return "json"
	default:
		return "console"
	}
}

// envString returns an override when present, otherwise a default.
func envString(v *viper.Viper, key, def string) string {
	if s := strings.TrimSpace(v.GetString(key)); s != "" {
		return s
	}
	return def
}

// envInt returns an int override when present, otherwise a default.
func envInt(v *viper.Viper, key string, def int) (int, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return def, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return value, nil
}

// envBool returns a bool override when present, otherwise a default.
func envBool(v *viper.Viper, key string, def bool) bool {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return def
	}
	switch strings.ToLower(raw) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}
