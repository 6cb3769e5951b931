package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blockberries/dge"
	"github.com/blockberries/dge/config"
	dgegrpc "github.com/blockberries/dge/grpc"
	"github.com/blockberries/dge/journal"
	"github.com/blockberries/dge/machine"
	"github.com/blockberries/dge/oracle"
	"github.com/blockberries/dge/scheduler"
	"github.com/blockberries/dge/server"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
)

func serveCmd(load func() (config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the grant engine over gRPC",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			logger := slog.New(cfg.Log.Handler(os.Stderr))
			slog.SetDefault(logger)

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return serve(ctx, cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	schedule, err := cfg.MilestoneSchedule()
	if err != nil {
		return err
	}
	m, err := machine.New(cfg.Params, schedule)
	if err != nil {
		return err
	}

	opts := []server.Option{
		server.WithLogger(logger),
		server.WithVotingPeriod(cfg.Server.VotingPeriod),
	}

	var (
		price  dge.PriceOracle
		supply dge.SupplyOracle
	)
	if cfg.Oracle.URL != "" {
		h := oracle.NewHTTP(cfg.Oracle.URL, cfg.Oracle.Timeout)
		price, supply = h, h
		opts = append(opts, server.WithVoteOracle(h))
	} else {
		s := oracle.Static{PriceUSD: cfg.Oracle.PriceUSD, Supply: cfg.Oracle.Supply}
		price, supply = s, s
	}

	recorder, err := openRecorders(ctx, cfg, logger)
	if err != nil {
		return err
	}
	opts = append(opts, server.WithRecorder(recorder))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	opts = append(opts, server.WithMetrics(server.NewMetrics(reg)))

	srv := server.New(m, price, supply, opts...)
	defer func() {
		if err := srv.Close(); err != nil {
			logger.Error("close journal", "error", err)
		}
	}()

	// Jobs are registered before any listener opens, so a bad cron spec
	// leaves nothing running.
	sched := scheduler.New(ctx, srv, logger)
	if err := sched.Register(cfg.Schedule.PollVotes, cfg.Schedule.ExpireVotes); err != nil {
		return err
	}

	lis, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.Addr, err)
	}
	gs := grpc.NewServer()
	dgegrpc.NewGRPCServer(srv).Register(gs)

	errCh := make(chan error, 2)
	go func() {
		logger.Info("grpc server listening", "addr", lis.Addr().String())
		if err := gs.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc serve: %w", err)
		}
	}()

	var metricsServer *http.Server
	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		metricsServer = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.Info("metrics server listening", "addr", cfg.Metrics.Addr)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics serve: %w", err)
			}
		}()
	}

	sched.Start()

	logger.Info("dged ready", "version", Version, "milestones", schedule.Len())

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case runErr = <-errCh:
		logger.Error("server failed", "error", runErr)
	}

	sched.Stop()
	gs.GracefulStop()
	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics shutdown", "error", err)
		}
	}
	return runErr
}

// openRecorders builds the journal sinks selected by cfg.
func openRecorders(ctx context.Context, cfg config.Config, logger *slog.Logger) (journal.Recorder, error) {
	var recs journal.MultiRecorder
	if cfg.Journal.Driver != "" {
		r, err := journal.OpenSQL(ctx, journal.Dialect(cfg.Journal.Driver), cfg.Journal.DSN)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		logger.Info("journal opened", "driver", cfg.Journal.Driver)
		recs = append(recs, r)
	}
	if cfg.NATS.URL != "" {
		p, err := journal.ConnectNATS(cfg.NATS.URL, cfg.NATS.Subject)
		if err != nil {
			_ = recs.Close()
			return nil, err
		}
		logger.Info("nats publisher connected", "url", cfg.NATS.URL, "subject", cfg.NATS.Subject)
		recs = append(recs, p)
	}
	if len(recs) == 0 {
		return journal.NoopRecorder{}, nil
	}
	return recs, nil
}
