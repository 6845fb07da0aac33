// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variable names.
const (
	EnvDataDir           = "ISIC_DATA_DIR"
	EnvListenAddr        = "ISIC_LISTEN"
	EnvLogLevel          = "ISIC_LOG_LEVEL"
	EnvLogService        = "ISIC_LOG_SERVICE"
	EnvWorkers           = "ISIC_WORKERS"
	EnvImageWorkers      = "ISIC_IMAGE_WORKERS"
	EnvMaxUploadBytes    = "ISIC_MAX_UPLOAD_BYTES"
	EnvDedupe            = "ISIC_DEDUPE"
	EnvRequireManuscript = "ISIC_REQUIRE_MANUSCRIPT"
	EnvTruthTask1        = "ISIC_TRUTH_TASK1"
	EnvTruthTask2        = "ISIC_TRUTH_TASK2"
	EnvTruthTask3        = "ISIC_TRUTH_TASK3"
	EnvInboxEnabled      = "ISIC_INBOX_ENABLED"
	EnvInboxPath         = "ISIC_INBOX_PATH"
	EnvRateLimitEnabled  = "ISIC_RATE_LIMIT_ENABLED"
	EnvRateLimitRPM      = "ISIC_RATE_LIMIT_RPM"
	EnvRateLimitSyncRPM  = "ISIC_RATE_LIMIT_SYNC_RPM"
	EnvRateLimitBurst    = "ISIC_RATE_LIMIT_SYNC_BURST"
	EnvDatabasePath      = "ISIC_DB_PATH"
	EnvDatabaseBusy      = "ISIC_DB_BUSY_TIMEOUT"
	EnvTracingEnabled    = "ISIC_TRACING_ENABLED"
	EnvTracingExporter   = "ISIC_TRACING_EXPORTER"
	EnvTracingEndpoint   = "ISIC_TRACING_ENDPOINT"
	EnvTracingSampling   = "ISIC_TRACING_SAMPLING_RATE"
)

// Defaults.
const (
	DefaultDataDir        = "/var/lib/isic-scoring"
	DefaultListenAddr     = ":8090"
	DefaultLogLevel       = "info"
	DefaultLogService     = "isic-scoring"
	DefaultWorkers        = 2
	DefaultImageWorkers   = 4
	DefaultMaxUploadBytes = 2 << 30
	DefaultRateLimitRPM   = 120
	DefaultSyncScoresRPM  = 30
	DefaultSyncBurst      = 4
	DefaultBusyTimeout    = 5 * time.Second
	DefaultDatabaseFile   = "submissions.db"
	DefaultInboxDir       = "inbox"
	DefaultTraceExporter  = "grpc"
	DefaultTraceEndpoint  = "localhost:4317"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a new configuration loader
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envInt64(key string, defaultVal int64) int64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt64(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

// Load loads configuration with precedence: ENV > File > Defaults.
// Order: Defaults -> Parse File (strict) -> Apply Env -> Resolve paths -> Validate.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		if err := mergeFileConfig(&cfg, fileCfg); err != nil {
			return cfg, fmt.Errorf("merge file config: %w", err)
		}
	}

	l.mergeEnvConfig(&cfg)
	l.warnUnknownEnv()

	cfg.Version = l.version
	resolvePaths(&cfg)

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		DataDir:        DefaultDataDir,
		ListenAddr:     DefaultListenAddr,
		LogLevel:       DefaultLogLevel,
		LogService:     DefaultLogService,
		Workers:        DefaultWorkers,
		ImageWorkers:   DefaultImageWorkers,
		MaxUploadBytes: DefaultMaxUploadBytes,
		Dedupe:         true,
		RateLimit: RateLimitConfig{
			Enabled:             true,
			RequestsPerMinute:   DefaultRateLimitRPM,
			SyncScoresPerMinute: DefaultSyncScoresRPM,
			SyncBurst:           DefaultSyncBurst,
		},
		Database: DatabaseConfig{
			BusyTimeout: DefaultBusyTimeout,
		},
		Tracing: TracingConfig{
			Exporter:     DefaultTraceExporter,
			Endpoint:     DefaultTraceEndpoint,
			SamplingRate: 1.0,
		},
	}
}

// loadFile loads configuration from a YAML file with STRICT parsing.
// Unknown fields cause a fatal error to prevent misconfiguration.
func (l *Loader) loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return ParseFile(data)
}

// ParseFile strictly decodes a single YAML document.
func ParseFile(data []byte) (*FileConfig, error) {
	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, ErrMultipleDocuments
	}
	return &fileCfg, nil
}

func mergeFileConfig(cfg *AppConfig, src *FileConfig) error {
	if src.DataDir != "" {
		cfg.DataDir = src.DataDir
	}
	if src.ListenAddr != "" {
		cfg.ListenAddr = src.ListenAddr
	}
	if src.LogLevel != "" {
		cfg.LogLevel = src.LogLevel
	}
	if src.LogService != "" {
		cfg.LogService = src.LogService
	}
	if src.Workers != nil {
		cfg.Workers = *src.Workers
	}
	if src.ImageWorkers != nil {
		cfg.ImageWorkers = *src.ImageWorkers
	}
	if src.MaxUploadBytes != nil {
		cfg.MaxUploadBytes = *src.MaxUploadBytes
	}
	if src.Dedupe != nil {
		cfg.Dedupe = *src.Dedupe
	}
	if src.RequireManuscript != nil {
		cfg.RequireManuscript = *src.RequireManuscript
	}
	if t := src.Truth; t != nil {
		if t.Task1 != "" {
			cfg.Truth.Task1 = t.Task1
		}
		if t.Task2 != "" {
			cfg.Truth.Task2 = t.Task2
		}
		if t.Task3 != "" {
			cfg.Truth.Task3 = t.Task3
		}
	}
	if in := src.Inbox; in != nil {
		if in.Enabled != nil {
			cfg.Inbox.Enabled = *in.Enabled
		}
		if in.Path != "" {
			cfg.Inbox.Path = in.Path
		}
	}
	if rl := src.RateLimit; rl != nil {
		if rl.Enabled != nil {
			cfg.RateLimit.Enabled = *rl.Enabled
		}
		if rl.RequestsPerMinute != nil {
			cfg.RateLimit.RequestsPerMinute = *rl.RequestsPerMinute
		}
		if rl.SyncScoresPerMinute != nil {
			cfg.RateLimit.SyncScoresPerMinute = *rl.SyncScoresPerMinute
		}
		if rl.SyncBurst != nil {
			cfg.RateLimit.SyncBurst = *rl.SyncBurst
		}
	}
	if db := src.Database; db != nil {
		if db.Path != "" {
			cfg.Database.Path = db.Path
		}
		if db.BusyTimeout != "" {
			d, err := time.ParseDuration(db.BusyTimeout)
			if err != nil {
				return fmt.Errorf("database.busyTimeout: %w", err)
			}
			cfg.Database.BusyTimeout = d
		}
	}
	if tr := src.Tracing; tr != nil {
		if tr.Enabled != nil {
			cfg.Tracing.Enabled = *tr.Enabled
		}
		if tr.Exporter != "" {
			cfg.Tracing.Exporter = tr.Exporter
		}
		if tr.Endpoint != "" {
			cfg.Tracing.Endpoint = tr.Endpoint
		}
		if tr.SamplingRate != nil {
			cfg.Tracing.SamplingRate = *tr.SamplingRate
		}
	}
	return nil
}

func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.DataDir = l.envString(EnvDataDir, cfg.DataDir)
	cfg.ListenAddr = l.envString(EnvListenAddr, cfg.ListenAddr)
	cfg.LogLevel = l.envString(EnvLogLevel, cfg.LogLevel)
	cfg.LogService = l.envString(EnvLogService, cfg.LogService)
	cfg.Workers = l.envInt(EnvWorkers, cfg.Workers)
	cfg.ImageWorkers = l.envInt(EnvImageWorkers, cfg.ImageWorkers)
	cfg.MaxUploadBytes = l.envInt64(EnvMaxUploadBytes, cfg.MaxUploadBytes)
	cfg.Dedupe = l.envBool(EnvDedupe, cfg.Dedupe)
	cfg.RequireManuscript = l.envBool(EnvRequireManuscript, cfg.RequireManuscript)

	cfg.Truth.Task1 = l.envString(EnvTruthTask1, cfg.Truth.Task1)
	cfg.Truth.Task2 = l.envString(EnvTruthTask2, cfg.Truth.Task2)
	cfg.Truth.Task3 = l.envString(EnvTruthTask3, cfg.Truth.Task3)

	cfg.Inbox.Enabled = l.envBool(EnvInboxEnabled, cfg.Inbox.Enabled)
	cfg.Inbox.Path = l.envString(EnvInboxPath, cfg.Inbox.Path)

	cfg.RateLimit.Enabled = l.envBool(EnvRateLimitEnabled, cfg.RateLimit.Enabled)
	cfg.RateLimit.RequestsPerMinute = l.envInt(EnvRateLimitRPM, cfg.RateLimit.RequestsPerMinute)
	cfg.RateLimit.SyncScoresPerMinute = l.envInt(EnvRateLimitSyncRPM, cfg.RateLimit.SyncScoresPerMinute)
	cfg.RateLimit.SyncBurst = l.envInt(EnvRateLimitBurst, cfg.RateLimit.SyncBurst)

	cfg.Database.Path = l.envString(EnvDatabasePath, cfg.Database.Path)
	cfg.Database.BusyTimeout = l.envDuration(EnvDatabaseBusy, cfg.Database.BusyTimeout)

	cfg.Tracing.Enabled = l.envBool(EnvTracingEnabled, cfg.Tracing.Enabled)
	cfg.Tracing.Exporter = l.envString(EnvTracingExporter, cfg.Tracing.Exporter)
	cfg.Tracing.Endpoint = l.envString(EnvTracingEndpoint, cfg.Tracing.Endpoint)
	cfg.Tracing.SamplingRate = l.envFloat(EnvTracingSampling, cfg.Tracing.SamplingRate)
}

// resolvePaths makes DataDir absolute and derives the paths that default into it.
func resolvePaths(cfg *AppConfig) {
	if abs, err := filepath.Abs(cfg.DataDir); err == nil {
		cfg.DataDir = abs
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = filepath.Join(cfg.DataDir, DefaultDatabaseFile)
	}
	if cfg.Inbox.Enabled && cfg.Inbox.Path == "" {
		cfg.Inbox.Path = filepath.Join(cfg.DataDir, DefaultInboxDir)
	}
}
