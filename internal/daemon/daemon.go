// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package daemon wires the scoring service together and runs it until
// shutdown.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/isic-scoring/internal/api"
	"github.com/ManuGH/isic-scoring/internal/config"
	"github.com/ManuGH/isic-scoring/internal/health"
	"github.com/ManuGH/isic-scoring/internal/inbox"
	"github.com/ManuGH/isic-scoring/internal/jobs"
	"github.com/ManuGH/isic-scoring/internal/log"
	"github.com/ManuGH/isic-scoring/internal/persistence/sqlite"
	"github.com/ManuGH/isic-scoring/internal/score"
	"github.com/ManuGH/isic-scoring/internal/scorer"
	"github.com/ManuGH/isic-scoring/internal/store"
	"github.com/ManuGH/isic-scoring/internal/telemetry"
)

// Directories created under DataDir.
const (
	ResultsDir = "results"
	ScratchDir = "scratch"
)

// Server timeouts. Uploads can be large, so reads get a generous budget.
const (
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 10 * time.Minute
	writeTimeout      = 10 * time.Minute
	idleTimeout       = 2 * time.Minute
	shutdownTimeout   = 30 * time.Second

	// backlogPerWorker is how many waiting submissions per worker still count as healthy.
	backlogPerWorker = 50
)

// ErrCorruptDatabase is returned when the integrity check of an existing store fails.
var ErrCorruptDatabase = errors.New("daemon: submission database failed integrity check")

// Daemon is a fully wired scoring service.
type Daemon struct {
	cfg       config.AppConfig
	logger    zerolog.Logger
	store     *store.Store
	queue     *jobs.Queue
	inbox     *inbox.Watcher
	telemetry *telemetry.Provider
	handler   http.Handler
}

// New opens the store and builds the queue, inbox and HTTP handler.
func New(ctx context.Context, cfg config.AppConfig) (*Daemon, error) {
	d := &Daemon{cfg: cfg, logger: log.WithComponent("daemon")}

	for _, dir := range []string{d.resultsDir(), d.scratchDir(), filepath.Dir(cfg.Database.Path)} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Tracing.Enabled,
		ServiceName:    cfg.LogService,
		ServiceVersion: cfg.Version,
		ExporterType:   cfg.Tracing.Exporter,
		Endpoint:       cfg.Tracing.Endpoint,
		SamplingRate:   cfg.Tracing.SamplingRate,
	})
	if err != nil {
		d.logger.Warn().Err(err).Str(log.FieldEvent, "telemetry.init_failed").Msg("telemetry initialization failed, continuing without tracing")
		tp = nil
	}
	d.telemetry = tp

	if err := verifyStore(ctx, cfg.Database.Path); err != nil {
		d.Close()
		return nil, err
	}
	st, err := store.Open(ctx, cfg.Database.Path, sqlite.Config{BusyTimeout: cfg.Database.BusyTimeout})
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("open submission store: %w", err)
	}
	d.store = st

	sc := &scorer.Scorer{Workers: cfg.ImageWorkers, ScratchDir: d.scratchDir()}
	d.queue = jobs.New(jobs.Config{
		Workers:    cfg.Workers,
		ResultsDir: d.resultsDir(),
		Dedupe:     cfg.Dedupe,
		TruthDir:   cfg.TruthDir,
	}, st, sc)

	hm := health.NewManager(cfg.Version)
	hm.RegisterChecker(health.NewPingChecker("database", st.Ping))
	for _, task := range score.Tasks {
		hm.RegisterChecker(health.NewTruthChecker("truth_task"+task.Label(), cfg.TruthDir(task)))
	}
	hm.RegisterChecker(health.NewBacklogChecker(d.queue.Waiting, backlogPerWorker*max(cfg.Workers, 1)))

	tracingService := ""
	if cfg.Tracing.Enabled {
		tracingService = cfg.LogService
	}
	d.handler = api.New(api.Config{
		MaxUploadBytes:      cfg.MaxUploadBytes,
		ScratchDir:          d.scratchDir(),
		RequireManuscript:   cfg.RequireManuscript,
		RateLimitEnabled:    cfg.RateLimit.Enabled,
		RequestsPerMinute:   cfg.RateLimit.RequestsPerMinute,
		SyncScoresPerMinute: cfg.RateLimit.SyncScoresPerMinute,
		SyncBurst:           cfg.RateLimit.SyncBurst,
		TracingService:      tracingService,
		TruthDir:            cfg.TruthDir,
	}, api.Deps{
		Queue:  d.queue,
		Store:  st,
		Scorer: sc,
		Health: hm,
	}).Handler()

	if cfg.Inbox.Enabled {
		d.inbox = inbox.New(inbox.Config{
			Root:              cfg.Inbox.Path,
			ScratchDir:        d.scratchDir(),
			RequireManuscript: cfg.RequireManuscript,
		}, d.queue)
	}

	return d, nil
}

// Handler returns the HTTP handler.
func (d *Daemon) Handler() http.Handler { return d.handler }

// Run listens on the configured address and serves until ctx is done.
func (d *Daemon) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", d.cfg.ListenAddr)
	if err != nil {
		d.Close()
		return fmt.Errorf("listen %s: %w", d.cfg.ListenAddr, err)
	}
	return d.Serve(ctx, ln)
}

// Serve serves HTTP on ln and runs the inbox until ctx is done, then shuts
// down gracefully. It always releases the daemon's resources.
func (d *Daemon) Serve(ctx context.Context, ln net.Listener) error {
	defer d.Close()

	srv := &http.Server{
		Handler:           d.handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d.logger.Info().
			Str(log.FieldEvent, "server.listening").
			Str("addr", ln.Addr().String()).
			Strs("tasks", taskLabels(d.cfg.EnabledTasks())).
			Msg("HTTP server listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		d.logger.Info().Str(log.FieldEvent, "server.shutdown").Msg("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if d.inbox != nil {
		g.Go(func() error {
			if err := d.inbox.Run(gctx); err != nil {
				return fmt.Errorf("inbox: %w", err)
			}
			return nil
		})
	}
	err := g.Wait()
	d.drain(shutdownTimeout)
	return err
}

// drain waits up to timeout for queued and running submissions, then
// cancels whatever is still running. Canceled submissions are recorded as failed.
func (d *Daemon) drain(timeout time.Duration) {
	if d.queue == nil {
		return
	}
	done := make(chan struct{})
	go func() {
		d.queue.Close()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		d.logger.Warn().
			Str(log.FieldEvent, "queue.aborted").
			Dur("timeout", timeout).
			Int("waiting", d.queue.Waiting()).
			Msg("queue did not drain in time, canceling running submissions")
		d.queue.Abort()
		<-done
	}
}

// Close waits for queued submissions, then closes the store and flushes traces.
func (d *Daemon) Close() {
	if d.queue != nil {
		d.queue.Close()
	}
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			d.logger.Error().Err(err).Msg("failed to close submission store")
		}
	}
	if d.telemetry != nil {
		if err := d.telemetry.Shutdown(context.Background()); err != nil {
			d.logger.Error().Err(err).Msg("telemetry shutdown error")
		}
	}
	d.logger.Info().Str(log.FieldEvent, "daemon.stopped").Msg("daemon stopped")
}

func (d *Daemon) resultsDir() string { return filepath.Join(d.cfg.DataDir, ResultsDir) }
func (d *Daemon) scratchDir() string { return filepath.Join(d.cfg.DataDir, ScratchDir) }

// verifyStore runs a quick integrity check on an existing database file.
func verifyStore(ctx context.Context, path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	problems, err := sqlite.VerifyIntegrity(ctx, path, false)
	if err != nil {
		return fmt.Errorf("verify submission store: %w", err)
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrCorruptDatabase, strings.Join(problems, "; "))
	}
	return nil
}

func taskLabels(tasks []score.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.Label()
	}
	return out
}
