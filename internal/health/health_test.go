// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockChecker struct {
	name   string
	status Status
}

func (m *mockChecker) Name() string { return m.name }

func (m *mockChecker) Check(context.Context) CheckResult { return CheckResult{Status: m.status} }

func TestManager_Health_WithCheckers(t *testing.T) {
	m := NewManager("v1.0.0")
	m.RegisterChecker(&mockChecker{name: "healthy", status: StatusHealthy})
	m.RegisterChecker(&mockChecker{name: "degraded", status: StatusDegraded})

	resp := m.Health(context.Background(), false)
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Nil(t, resp.Checks)
	assert.Equal(t, "v1.0.0", resp.Version)

	resp = m.Health(context.Background(), true)
	assert.Equal(t, StatusDegraded, resp.Status)
	assert.Len(t, resp.Checks, 2)
}

func TestManager_Ready(t *testing.T) {
	m := NewManager("v1.0.0")
	resp := m.Ready(context.Background())
	require.NotNil(t, resp.Ready)
	assert.True(t, *resp.Ready, "no checkers means ready")

	m.RegisterChecker(&mockChecker{name: "degraded", status: StatusDegraded})
	resp = m.Ready(context.Background())
	assert.True(t, *resp.Ready)
	assert.Equal(t, StatusDegraded, resp.Status)

	m.RegisterChecker(&mockChecker{name: "down", status: StatusUnhealthy})
	m.RegisterChecker(&mockChecker{name: "degraded-again", status: StatusDegraded})
	resp = m.Ready(context.Background())
	assert.False(t, *resp.Ready)
	assert.Equal(t, StatusUnhealthy, resp.Status, "degraded never masks unhealthy")
}

func TestServeReady(t *testing.T) {
	m := NewManager("v1.0.0")
	m.RegisterChecker(NewPingChecker("database", func(context.Context) error { return errors.New("locked") }))

	rec := httptest.NewRecorder()
	m.ServeReady(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "locked", body.Checks["database"].Error)

	rec = httptest.NewRecorder()
	m.ServeHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code, "liveness ignores checkers")
}

func TestTruthChecker(t *testing.T) {
	assert.Equal(t, StatusHealthy, NewTruthChecker("truth_task1", "").Check(context.Background()).Status)

	dir := t.TempDir()
	c := NewTruthChecker("truth_task3", dir)
	assert.Equal(t, StatusUnhealthy, c.Check(context.Background()).Status)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "truth.zip"), []byte("x"), 0o600))
	res := c.Check(context.Background())
	assert.Equal(t, StatusHealthy, res.Status)
	assert.Equal(t, "truth.zip", res.Message)

	assert.Equal(t, StatusUnhealthy, NewTruthChecker("missing", filepath.Join(dir, "nope")).Check(context.Background()).Status)
}

func TestBacklogChecker(t *testing.T) {
	waiting := 3
	c := NewBacklogChecker(func() int { return waiting }, 5)
	assert.Equal(t, StatusHealthy, c.Check(context.Background()).Status)
	waiting = 6
	assert.Equal(t, StatusDegraded, c.Check(context.Background()).Status)
}
