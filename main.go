/*
[AI GENERATED - GOVERNANCE PROTOCOL]
──────────────────────────────────────────────────────────────
Model:       Claude Opus 4.6
Tier:        L3
Logic:       Entry point: config → logger → store → optional
             Redis → coordinator → router → HTTP server with
             graceful shutdown, plus crawl / rebuild-laws /
             status subcommands for operators.
Root Cause:  Sprint task T201 — Service entry point.
Context:     Startup reconciles any crawl run left `running` by
             a crash, then backfills laws so the brief has data
             before the first request lands.
Suitability: L3 model for graceful shutdown and system wiring.
──────────────────────────────────────────────────────────────
*/

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jnyross/regintel/backfill"
	"github.com/jnyross/regintel/caching"
	"github.com/jnyross/regintel/config"
	"github.com/jnyross/regintel/logger"
	"github.com/jnyross/regintel/observability"
	"github.com/jnyross/regintel/pipeline"
	"github.com/jnyross/regintel/redisclient"
	"github.com/jnyross/regintel/server"
	"github.com/jnyross/regintel/store"
)

func main() {
	root := &cobra.Command{
		Use:          "regintel",
		Short:        "Regulatory-intelligence engine: crawl, analyze, canonicalize, serve",
		SilenceUsage: true,
	}
	serve := serveCmd()
	root.RunE = serve.RunE
	root.AddCommand(serve, crawlCmd(), rebuildLawsCmd(), statusCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	store   *store.Store
	cache   *caching.Engine
	metrics *observability.Metrics
	coord   *pipeline.Coordinator
}

func buildApp() (*app, error) {
	cfg := config.Load()
	log := logger.New(cfg)

	st, err := store.Open(cfg.DatabasePath, log)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	// Redis is optional; the cache degrades to in-memory without it.
	var rc *redisclient.Client
	if cfg.RedisURL != "" {
		rc, err = redisclient.New(cfg)
		if err != nil {
			log.Warn().Err(err).Msg("redis init failed — continuing without Redis")
			rc = nil
		} else if err := rc.Ping(); err != nil {
			log.Warn().Err(err).Msg("redis ping failed — continuing without Redis")
			rc = nil
		} else {
			log.Info().Msg("redis connected")
		}
	}

	cache := caching.New(log, rc, 60*time.Second)
	metrics := observability.New()
	coord := pipeline.New(cfg, log, st, metrics, cache)

	return &app{cfg: cfg, log: log, store: st, cache: cache, metrics: metrics, coord: coord}, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer func() { _ = a.store.Close() }()

			a.log.Info().Str("env", a.cfg.Env).Msg("regintel starting")

			ctx := context.Background()
			if n, err := a.store.ReconcileInterrupted(ctx); err != nil {
				a.log.Warn().Err(err).Msg("startup reconciliation failed")
			} else if n > 0 {
				a.log.Warn().Int64("runs", n).Msg("marked interrupted crawl runs failed")
			}

			// Rebuild the law graph so the brief is consistent with whatever
			// events survived the last shutdown.
			if _, err := backfill.Run(ctx, a.store, a.log); err != nil {
				a.log.Warn().Err(err).Msg("startup law backfill failed")
			}

			r := server.NewRouter(a.cfg, a.log, a.store, a.coord, a.cache, a.metrics)
			srv := &http.Server{
				Addr:         a.cfg.Addr,
				Handler:      r,
				ReadTimeout:  30 * time.Second,
				WriteTimeout: 60 * time.Second,
				IdleTimeout:  120 * time.Second,
			}

			done := make(chan os.Signal, 1)
			signal.Notify(done, os.Interrupt, syscall.SIGTERM)

			go func() {
				a.log.Info().Str("addr", a.cfg.Addr).Msg("regintel listening")
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					a.log.Fatal().Err(err).Msg("server failed")
				}
			}()

			<-done
			a.log.Info().Msg("shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.log.Error().Err(err).Msg("graceful shutdown failed")
				return err
			}
			a.log.Info().Msg("stopped")
			return nil
		},
	}
}

func crawlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Run one crawl pipeline synchronously",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer func() { _ = a.store.Close() }()

			res, err := a.coord.Run(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}
}

func rebuildLawsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild-laws",
		Short: "Rebuild the canonical law tables from all events",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer func() { _ = a.store.Close() }()

			res, err := backfill.Run(cmd.Context(), a.store, a.log)
			if err != nil {
				return err
			}
			a.cache.Invalidate(cmd.Context())
			return printJSON(res)
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the latest crawl run",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer func() { _ = a.store.Close() }()

			run, err := a.store.LatestRun(cmd.Context())
			if err != nil {
				fmt.Println(`{"status":"never_run"}`)
				return nil
			}
			return printJSON(run)
		},
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
