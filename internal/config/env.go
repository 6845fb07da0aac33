// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/isic-scoring/internal/log"
)

// lookupEnv resolves key with parse, returning def when the variable is
// unset, empty or unparsable. Every outcome is logged so a misspelt value
// is visible at startup.
func lookupEnv[T any](key string, def T, kind string, parse func(string) (T, error)) T {
	logger := log.WithComponent("config")
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		logger.Debug().Str("key", key).Str("default", fmt.Sprint(def)).Str("source", "default").Msg("using default value")
		return def
	}
	v, err := parse(strings.TrimSpace(raw))
	if err != nil {
		logger.Warn().
			Str("key", key).
			Str("value", raw).
			Str("default", fmt.Sprint(def)).
			Msgf("invalid %s in environment variable, using default", kind)
		return def
	}
	logger.Debug().Str("key", key).Str("value", fmt.Sprint(v)).Str("source", "environment").Msg("using environment variable")
	return v
}

// ParseString reads key with surrounding whitespace removed.
func ParseString(key, defaultValue string) string {
	return lookupEnv(key, defaultValue, "string", func(s string) (string, error) { return s, nil })
}

// ParseInt reads a decimal integer.
func ParseInt(key string, defaultValue int) int {
	return lookupEnv(key, defaultValue, "integer", strconv.Atoi)
}

// ParseInt64 reads a 64-bit decimal integer such as a byte size.
func ParseInt64(key string, defaultValue int64) int64 {
	return lookupEnv(key, defaultValue, "integer", func(s string) (int64, error) {
		return strconv.ParseInt(s, 10, 64)
	})
}

// ParseFloat reads a decimal float.
func ParseFloat(key string, defaultValue float64) float64 {
	return lookupEnv(key, defaultValue, "float", func(s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	})
}

// ParseDuration reads a Go duration such as "5s".
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	return lookupEnv(key, defaultValue, "duration", time.ParseDuration)
}

// ParseBool accepts true/false, 1/0 and yes/no in any case.
func ParseBool(key string, defaultValue bool) bool {
	return lookupEnv(key, defaultValue, "boolean", func(s string) (bool, error) {
		switch strings.ToLower(s) {
		case "true", "1", "yes":
			return true, nil
		case "false", "0", "no":
			return false, nil
		}
		return false, fmt.Errorf("not a boolean: %q", s)
	})
}
