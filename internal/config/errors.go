// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "errors"

var (
	// ErrUnsupportedFormat is returned for config files that are not YAML.
	ErrUnsupportedFormat = errors.New("unsupported config format (only YAML supported)")
	// ErrMultipleDocuments is returned when the YAML file holds more than one document.
	ErrMultipleDocuments = errors.New("config file contains multiple documents or trailing content")
)
