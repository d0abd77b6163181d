// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package main provides the entry point for the eevdfsim demo application.
//
// It wires a pkg/eevdf run queue to a trace source -- a recorded kernel
// scheduling trace, a Redis list, or an in-process mock -- and replays that
// trace through internal/replay.Harness, reporting any point where the
// queue's own decisions disagree with what the trace says actually
// happened. It also exposes the run queue's Prometheus series over HTTP so
// the replay can be watched live.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"eevdf/internal/metrics"
	"eevdf/internal/replay"
	"eevdf/internal/shardedrq"
	"eevdf/pkg/eevdf"
	"eevdf/pkg/eevdf/fixed"
)

const (
	exitSuccess = 0
	exitError   = 1
	exitParse   = 2
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stderr))
}

type cliOptions struct {
	configPath string
	httpBind   string
}

func parseArgs(args []string) (cliOptions, error) {
	var opts cliOptions
	fs := flag.NewFlagSet("eevdfsim", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&opts.configPath, "config", "", "path to a YAML run configuration file")
	fs.StringVar(&opts.httpBind, "metrics-addr", "", "if set, serve Prometheus metrics on this address (e.g. :9109)")
	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("parse CLI arguments: %w", err)
	}
	return opts, nil
}

func run(ctx context.Context, args []string, stderr io.Writer) int {
	opts, err := parseArgs(args)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return exitParse
	}

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "load config: %v\n", err)
		return exitParse
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(stderr, "configure logger: %v\n", err)
		return exitError
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting eevdfsim",
		zap.String("variant", cfg.Variant.String()),
		zap.Int("shards", cfg.Shards),
		zap.String("source", cfg.SourceKind),
	)

	if opts.httpBind != "" {
		srv := &http.Server{Addr: opts.httpBind, Handler: promhttp.Handler()}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server stopped", zap.Error(err))
			}
		}()
		defer func() { _ = srv.Close() }()
	}

	tolerance := fixed.FromInt64(cfg.DeadlineTolerance)
	registry := shardedrq.New(cfg.Shards, func(label string) *eevdf.RunQueue {
		return eevdf.NewRunQueue(cfg.Variant, eevdf.Options{
			Variant:           cfg.Variant,
			PlaceLag:          cfg.PlaceLag,
			PlaceRelDeadline:  cfg.PlaceRelDeadline,
			DeadlineTolerance: tolerance,
			LagClampFactor:    cfg.LagClampFactor,
			Observer:          metrics.NewObserver(label),
		}, eevdf.NewHeapIndex())
	})

	src, err := replay.BuildSource(cfg.SourceKind, cfg.SourcePath, replay.RedisSourceOptions{
		Addr: cfg.RedisAddr,
		Key:  cfg.RedisKey,
	})
	if err != nil {
		logger.Error("build trace source", zap.Error(err))
		return exitError
	}
	defer func() { _ = src.Close() }()

	var report *replay.Report
	if cfg.ReportPath != "" {
		report = replay.NewReport(cfg.ReportPath)
	}

	_, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// A trace replay is a single ordered stream of events; it is fed to one
	// shard's run queue. Additional shards (cfg.Shards > 1) exist for
	// internal/shardedrq's routing to exercise concurrent, independently
	// addressed run queues under live traffic -- they are not additional
	// destinations for the same replay.
	primary := registry.Shard(0)
	h := replay.NewHarness(primary.RQ, src, report)
	h.Logger = logger.With(zap.String("shard", primary.Label))
	h.Tolerance = tolerance

	discrepancies, runErr := h.Run()
	if runErr != nil {
		logger.Error("replay failed", zap.Error(runErr))
		return exitError
	}

	logger.Info("replay complete", zap.Int("discrepancies", len(discrepancies)))
	if len(discrepancies) > 0 {
		return exitError
	}
	return exitSuccess
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "" {
		level = "info"
	}
	cfg := zap.NewProductionConfig()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build zap logger: %w", err)
	}
	return logger, nil
}
