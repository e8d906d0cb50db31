// Copyright (C) 2026 PeakWatt AI (dev@peakwatt.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command copilot runs the PeakWatt decision co-pilot service.
//
// Configuration is read from an optional YAML file (COPILOT_CONFIG) with
// environment variables taking precedence. With no configuration at all
// the service starts on port 12310 against a local Ollama backend.
package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/PeakWattAI/PeakWattFOSS/pkg/logging"
	"github.com/PeakWattAI/PeakWattFOSS/services/copilot"
)

// fileConfig mirrors copilot.Config for YAML deserialization.
type fileConfig struct {
	Port                    int     `yaml:"port"`
	LLMBackend              string  `yaml:"llm_backend"`
	OTelEndpoint            string  `yaml:"otel_endpoint"`
	GinMode                 string  `yaml:"gin_mode"`
	AuthToken               string  `yaml:"auth_token"`
	MaxConcurrentSessions   int     `yaml:"max_concurrent_sessions"`
	GateMode                string  `yaml:"gate_mode"`
	MaxIterations           int     `yaml:"max_iterations"`
	SessionTimeoutSeconds   int     `yaml:"session_timeout_seconds"`
	ConfidenceTarget        float64 `yaml:"confidence_target"`
	CreateSessionsPerSecond float64 `yaml:"create_sessions_per_second"`
	LogDir                  string  `yaml:"log_dir"`
	LogLevel                string  `yaml:"log_level"`
}

// loadConfigFile reads the YAML config at path. A missing file is not an
// error; a malformed one is.
func loadConfigFile(path string) (fileConfig, error) {
	var cfg fileConfig
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Warn("Config file not found, using defaults", "path", path)
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

func getEnvString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("Invalid integer in environment, using fallback",
			"key", key, "value", v, "fallback", fallback)
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("Invalid float in environment, using fallback",
			"key", key, "value", v, "fallback", fallback)
		return fallback
	}
	return f
}

func parseLogLevel(s string) logging.Level {
	switch s {
	case "debug":
		return logging.LevelDebug
	case "warn":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func main() {
	fileCfg, err := loadConfigFile(os.Getenv("COPILOT_CONFIG"))
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := logging.New(logging.Config{
		Level:   parseLogLevel(getEnvString("COPILOT_LOG_LEVEL", fileCfg.LogLevel)),
		LogDir:  getEnvString("COPILOT_LOG_DIR", fileCfg.LogDir),
		Service: "copilot",
		JSON:    true,
	})
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	cfg := copilot.Config{
		Port:                  getEnvInt("COPILOT_PORT", fileCfg.Port),
		LLMBackend:            getEnvString("LLM_BACKEND", fileCfg.LLMBackend),
		OTelEndpoint:          getEnvString("OTEL_EXPORTER_OTLP_ENDPOINT", fileCfg.OTelEndpoint),
		GinMode:               getEnvString("GIN_MODE", fileCfg.GinMode),
		AuthToken:             getEnvString("COPILOT_API_TOKEN", fileCfg.AuthToken),
		MaxConcurrentSessions: getEnvInt("COPILOT_MAX_SESSIONS", fileCfg.MaxConcurrentSessions),
		GateMode:              getEnvString("COPILOT_GATE_MODE", fileCfg.GateMode),
		MaxIterations:         getEnvInt("COPILOT_MAX_ITERATIONS", fileCfg.MaxIterations),
		ConfidenceTarget:      getEnvFloat("COPILOT_CONFIDENCE_TARGET", fileCfg.ConfidenceTarget),
		CreateSessionsPerSecond: getEnvFloat("COPILOT_CREATE_RPS",
			fileCfg.CreateSessionsPerSecond),
	}
	if secs := getEnvInt("COPILOT_SESSION_TIMEOUT_SECONDS", fileCfg.SessionTimeoutSeconds); secs > 0 {
		cfg.SessionTimeout = time.Duration(secs) * time.Second
	}

	svc, err := copilot.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize co-pilot service: %v", err)
	}

	if err := svc.Run(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
