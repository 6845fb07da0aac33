// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"time"

	"github.com/ManuGH/isic-scoring/internal/score"
)

// AppConfig is the resolved runtime configuration.
type AppConfig struct {
	Version string

	DataDir    string
	ListenAddr string
	LogLevel   string
	LogService string

	// Workers bounds concurrently scored submissions; ImageWorkers bounds
	// concurrently decoded masks within one segmentation run.
	Workers        int
	ImageWorkers   int
	MaxUploadBytes int64

	// Dedupe reuses stored scores for a byte-identical resubmission.
	Dedupe            bool
	RequireManuscript bool

	Truth     TruthConfig
	Inbox     InboxConfig
	RateLimit RateLimitConfig
	Database  DatabaseConfig
	Tracing   TracingConfig
}

// TruthConfig points at the ground-truth input directory of each task.
// An empty path disables the task in the daemon.
type TruthConfig struct {
	Task1 string
	Task2 string
	Task3 string
}

// InboxConfig configures the drop-folder intake.
type InboxConfig struct {
	Enabled bool
	Path    string
}

// RateLimitConfig configures per-client request limiting on the API.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	// SyncScoresPerMinute is a server-wide budget for synchronous scoring
	// (0 = unlimited). SyncBurst tokens may be spent at once.
	SyncScoresPerMinute int
	SyncBurst           int
}

// DatabaseConfig configures the submission store.
type DatabaseConfig struct {
	Path        string
	BusyTimeout time.Duration
}

// TracingConfig configures OpenTelemetry span export.
type TracingConfig struct {
	Enabled      bool
	Exporter     string // grpc or http
	Endpoint     string
	SamplingRate float64
}

// TruthDir returns the configured ground-truth directory for task.
func (c AppConfig) TruthDir(task score.Task) string {
	switch task {
	case score.TaskLesionSegmentation:
		return c.Truth.Task1
	case score.TaskAttributeDetection:
		return c.Truth.Task2
	case score.TaskClassification:
		return c.Truth.Task3
	default:
		return ""
	}
}

// EnabledTasks lists the tasks with a configured ground truth.
func (c AppConfig) EnabledTasks() []score.Task {
	var out []score.Task
	for _, t := range score.Tasks {
		if c.TruthDir(t) != "" {
			out = append(out, t)
		}
	}
	return out
}

// FileConfig mirrors the YAML file. Pointers distinguish "unset" from zero values.
type FileConfig struct {
	DataDir           string               `yaml:"dataDir,omitempty"`
	ListenAddr        string               `yaml:"listenAddr,omitempty"`
	LogLevel          string               `yaml:"logLevel,omitempty"`
	LogService        string               `yaml:"logService,omitempty"`
	Workers           *int                 `yaml:"workers,omitempty"`
	ImageWorkers      *int                 `yaml:"imageWorkers,omitempty"`
	MaxUploadBytes    *int64               `yaml:"maxUploadBytes,omitempty"`
	Dedupe            *bool                `yaml:"dedupe,omitempty"`
	RequireManuscript *bool                `yaml:"requireManuscript,omitempty"`
	Truth             *TruthFileConfig     `yaml:"truth,omitempty"`
	Inbox             *InboxFileConfig     `yaml:"inbox,omitempty"`
	RateLimit         *RateLimitFileConfig `yaml:"rateLimit,omitempty"`
	Database          *DatabaseFileConfig  `yaml:"database,omitempty"`
	Tracing           *TracingFileConfig   `yaml:"tracing,omitempty"`
}

// TruthFileConfig is the YAML form of TruthConfig.
type TruthFileConfig struct {
	Task1 string `yaml:"task1,omitempty"`
	Task2 string `yaml:"task2,omitempty"`
	Task3 string `yaml:"task3,omitempty"`
}

// InboxFileConfig is the YAML form of InboxConfig.
type InboxFileConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Path    string `yaml:"path,omitempty"`
}

// RateLimitFileConfig is the YAML form of RateLimitConfig.
type RateLimitFileConfig struct {
	Enabled             *bool `yaml:"enabled,omitempty"`
	RequestsPerMinute   *int  `yaml:"requestsPerMinute,omitempty"`
	SyncScoresPerMinute *int  `yaml:"syncScoresPerMinute,omitempty"`
	SyncBurst           *int  `yaml:"syncBurst,omitempty"`
}

// DatabaseFileConfig is the YAML form of DatabaseConfig.
type DatabaseFileConfig struct {
	Path        string `yaml:"path,omitempty"`
	BusyTimeout string `yaml:"busyTimeout,omitempty"`
}

// TracingFileConfig is the YAML form of TracingConfig.
type TracingFileConfig struct {
	Enabled      *bool    `yaml:"enabled,omitempty"`
	Exporter     string   `yaml:"exporter,omitempty"`
	Endpoint     string   `yaml:"endpoint,omitempty"`
	SamplingRate *float64 `yaml:"samplingRate,omitempty"`
}
