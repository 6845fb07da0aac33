// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"sort"
	"strings"

	"github.com/ManuGH/isic-scoring/internal/log"
)

const envPrefix = "ISIC_"

// UnknownEnvKeys lists the ISIC_* variables in the environment that Load did
// not read (dead flags or typos). It is only meaningful after Load.
func (l *Loader) UnknownEnvKeys() []string {
	var unknown []string
	for _, pair := range os.Environ() {
		key, _, _ := strings.Cut(pair, "=")
		if !strings.HasPrefix(key, envPrefix) {
			continue
		}
		if _, consumed := l.ConsumedEnvKeys[key]; consumed {
			continue
		}
		unknown = append(unknown, key)
	}
	sort.Strings(unknown)
	return unknown
}

func (l *Loader) warnUnknownEnv() {
	unknown := l.UnknownEnvKeys()
	if len(unknown) == 0 {
		return
	}
	logger := log.WithComponent("config")
	for _, key := range unknown {
		logger.Warn().
			Str("key", key).
			Msg("unknown ISIC env key detected (dead flag or typo)")
	}
}
