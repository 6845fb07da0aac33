// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// isic-score scores one ISIC challenge submission and prints the scores as
// JSON on stdout.
//
// Usage:
//
//	isic-score --truth DIR --prediction DIR --task N [--require-manuscript]
//
// Exit codes:
//   - 0: Scores printed
//   - 1: The submission was rejected or scoring failed
//   - 2: Usage error
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/ManuGH/isic-scoring/internal/log"
	"github.com/ManuGH/isic-scoring/internal/score"
	"github.com/ManuGH/isic-scoring/internal/scorer"
)

var (
	version = "dev"
	commit  = "none"
)

const (
	exitOK       = 0
	exitRejected = 1
	exitUsage    = 2
)

type options struct {
	truth             string
	prediction        string
	task              string
	requireManuscript bool
	workers           int
	scratchDir        string
	logLevel          string
	pretty            bool
	showVersion       bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := pflag.NewFlagSet("isic-score", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&opts.truth, "truth", "t", "", "ground truth input directory")
	fs.StringVarP(&opts.prediction, "prediction", "p", "", "prediction (submission) input directory")
	fs.StringVar(&opts.task, "task", "", "challenge task: 1, 2 or 3")
	fs.BoolVar(&opts.requireManuscript, "require-manuscript", false, "reject submissions without exactly one PDF manuscript")
	fs.IntVar(&opts.workers, "workers", runtime.NumCPU(), "images compared concurrently")
	fs.StringVar(&opts.scratchDir, "scratch-dir", "", "directory for unpacked inputs (default: system temp dir)")
	fs.StringVar(&opts.logLevel, "log-level", "warn", "log level written to stderr")
	fs.BoolVar(&opts.pretty, "pretty", false, "indent the JSON output")
	fs.BoolVar(&opts.showVersion, "version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.showVersion {
		return opts, nil
	}
	if rest := fs.Args(); len(rest) > 0 {
		return opts, fmt.Errorf("unexpected argument: %s", rest[0])
	}
	switch {
	case opts.truth == "":
		return opts, errors.New("--truth is required")
	case opts.prediction == "":
		return opts, errors.New("--prediction is required")
	case opts.task == "":
		return opts, errors.New("--task is required")
	}
	return opts, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	if opts.showVersion {
		_, _ = fmt.Fprintf(stdout, "%s (commit: %s)\n", version, commit)
		return exitOK
	}

	log.Configure(log.Config{
		Level:   opts.logLevel,
		Output:  stderr,
		Service: "isic-score",
		Version: version,
	})

	task, err := score.ParseTask(opts.task)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, score.Message(err))
		return exitRejected
	}

	s := &scorer.Scorer{Workers: opts.workers, ScratchDir: opts.scratchDir}
	res, err := s.Score(ctx, scorer.Request{
		TruthDir:          opts.truth,
		PredictionDir:     opts.prediction,
		Task:              task,
		RequireManuscript: opts.requireManuscript,
	})
	if err != nil {
		if msg := score.Message(err); msg != "" {
			_, _ = fmt.Fprintln(stderr, msg)
		} else {
			_, _ = fmt.Fprintf(stderr, "Internal error: %v\n", err)
		}
		return exitRejected
	}

	enc := json.NewEncoder(stdout)
	if opts.pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(res.Scores); err != nil {
		_, _ = fmt.Fprintf(stderr, "Internal error: %v\n", err)
		return exitRejected
	}
	return exitOK
}
