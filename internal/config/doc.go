// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config provides configuration management for the scoring daemon.
//
// Precedence is ENV > File > Defaults. The YAML file is parsed strictly:
// unknown keys and multiple documents are rejected. Every environment read is
// logged at debug level together with its source.
package config
