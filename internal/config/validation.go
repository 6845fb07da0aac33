// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"github.com/ManuGH/isic-scoring/internal/score"
	"github.com/ManuGH/isic-scoring/internal/validate"
)

// Validate reports every invalid field of cfg in one error.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.Directory("DataDir", cfg.DataDir, true)
	v.ListenAddr("ListenAddr", cfg.ListenAddr)

	v.LogLevel("LogLevel", cfg.LogLevel)

	v.Range("Workers", cfg.Workers, 1, 64)
	v.Range("ImageWorkers", cfg.ImageWorkers, 1, 256)
	v.Positive("MaxUploadBytes", cfg.MaxUploadBytes)

	for _, task := range score.Tasks {
		if dir := cfg.TruthDir(task); dir != "" {
			v.SingleFileDirectory("Truth.Task"+task.Label(), dir)
		}
	}

	if cfg.Inbox.Enabled {
		v.Directory("Inbox.Path", cfg.Inbox.Path, true)
	}

	if cfg.RateLimit.Enabled {
		v.Range("RateLimit.RequestsPerMinute", cfg.RateLimit.RequestsPerMinute, 1, 100000)
		v.Range("RateLimit.SyncScoresPerMinute", cfg.RateLimit.SyncScoresPerMinute, 0, 100000)
		if cfg.RateLimit.SyncScoresPerMinute > 0 {
			v.Range("RateLimit.SyncBurst", cfg.RateLimit.SyncBurst, 1, 1000)
		}
	}

	v.NotEmpty("Database.Path", cfg.Database.Path)
	if cfg.Database.BusyTimeout < 0 {
		v.AddError("Database.BusyTimeout", "value cannot be negative", cfg.Database.BusyTimeout)
	}

	if cfg.Tracing.Enabled {
		v.OneOf("Tracing.Exporter", cfg.Tracing.Exporter, "grpc", "http")
		v.NotEmpty("Tracing.Endpoint", cfg.Tracing.Endpoint)
		v.Fraction("Tracing.SamplingRate", cfg.Tracing.SamplingRate)
	}

	return v.Err()
}
