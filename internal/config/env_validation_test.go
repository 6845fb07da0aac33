// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/isic-scoring/internal/log"
)

func TestLoadWarnsOnUnknownEnvKeys(t *testing.T) {
	var buf bytes.Buffer
	log.Configure(log.Config{Output: &buf})
	t.Cleanup(func() { log.Configure(log.Config{}) })

	t.Setenv(EnvDataDir, t.TempDir())
	t.Setenv(EnvWorkers, "3")
	t.Setenv("ISIC_WORKRES", "3")

	loader := NewLoader("", "v-test")
	_, err := loader.Load()
	require.NoError(t, err)

	unknown := loader.UnknownEnvKeys()
	assert.Contains(t, unknown, "ISIC_WORKRES")
	assert.NotContains(t, unknown, EnvWorkers)
	assert.NotContains(t, unknown, EnvDataDir)

	var warned []string
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(line, &entry))
		if entry["level"] == "warn" && entry[log.FieldComponent] == "config" {
			warned = append(warned, entry["key"].(string))
		}
	}
	assert.Contains(t, warned, "ISIC_WORKRES")
	assert.NotContains(t, warned, EnvWorkers)
}
