// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"fmt"

	"github.com/ManuGH/isic-scoring/internal/fsutil"
)

// TruthChecker requires a ground truth directory holding exactly one file.
type TruthChecker struct {
	name string
	dir  string
}

// NewTruthChecker creates a checker for the truth directory of one task.
func NewTruthChecker(name, dir string) *TruthChecker {
	return &TruthChecker{name: name, dir: dir}
}

func (c *TruthChecker) Name() string { return c.name }

func (c *TruthChecker) Check(_ context.Context) CheckResult {
	if c.dir == "" {
		return CheckResult{Status: StatusHealthy, Message: "not configured (task disabled)"}
	}
	files, _, err := fsutil.Entries(c.dir)
	if err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error(), Message: c.dir}
	}
	if len(files) != 1 {
		return CheckResult{
			Status:  StatusUnhealthy,
			Error:   fmt.Sprintf("expected exactly one ground truth file, found %d", len(files)),
			Message: c.dir,
		}
	}
	return CheckResult{Status: StatusHealthy, Message: files[0]}
}

// PingChecker reports a dependency reachable when ping succeeds.
type PingChecker struct {
	name string
	ping func(ctx context.Context) error
}

// NewPingChecker wraps ping (for example a database ping) as a checker.
func NewPingChecker(name string, ping func(ctx context.Context) error) *PingChecker {
	return &PingChecker{name: name, ping: ping}
}

func (c *PingChecker) Name() string { return c.name }

func (c *PingChecker) Check(ctx context.Context) CheckResult {
	if err := c.ping(ctx); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy}
}

// BacklogChecker degrades readiness when too many submissions wait for a worker.
type BacklogChecker struct {
	waiting func() int
	limit   int
}

// NewBacklogChecker creates a checker that is degraded above limit waiting jobs.
func NewBacklogChecker(waiting func() int, limit int) *BacklogChecker {
	return &BacklogChecker{waiting: waiting, limit: limit}
}

func (c *BacklogChecker) Name() string { return "queue" }

func (c *BacklogChecker) Check(_ context.Context) CheckResult {
	n := c.waiting()
	if c.limit > 0 && n > c.limit {
		return CheckResult{Status: StatusDegraded, Message: fmt.Sprintf("%d submissions waiting", n)}
	}
	return CheckResult{Status: StatusHealthy, Message: fmt.Sprintf("%d submissions waiting", n)}
}
