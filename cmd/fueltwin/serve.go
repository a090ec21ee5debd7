package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/turbofuel/fueltwin/internal/config"
	"github.com/turbofuel/fueltwin/internal/dispatcher"
	"github.com/turbofuel/fueltwin/internal/httpapi"
	"github.com/turbofuel/fueltwin/internal/monitor"
	"github.com/turbofuel/fueltwin/internal/runner"
	"github.com/turbofuel/fueltwin/internal/worker"
)

// shutdownTimeout bounds flushing storage and telemetry on exit.
const shutdownTimeout = 30 * time.Second

type serveOptions struct {
	name      string
	tag       string
	address   string
	autostart bool
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the simulation in real time behind the HTTP API",
		Long: `Ticks the simulation on the wall clock, serves the control and
streaming API, and records the session until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts serveOptions
			opts.name, _ = cmd.Flags().GetString("name")
			opts.tag, _ = cmd.Flags().GetString("tag")
			opts.address, _ = cmd.Flags().GetString("address")
			opts.autostart, _ = cmd.Flags().GetBool("autostart")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, opts)
		},
	}

	cmd.Flags().String("name", "bench-session", "Run name used for recordings")
	cmd.Flags().String("tag", "", "Run tag (default from defaultTag)")
	cmd.Flags().String("address", "", "Listen address (default from server.address)")
	cmd.Flags().Bool("autostart", false, "Start the simulation running instead of paused")
	return cmd
}

func serve(ctx context.Context, opts serveOptions) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.close(closeCtx)
	}()

	srvCfg := config.GetServerConfig()
	if opts.address != "" {
		srvCfg.Address = opts.address
	}

	if err := a.manager.StartRun(a.newRun(opts.name, opts.tag)); err != nil {
		return err
	}
	if opts.autostart {
		if _, err := a.dispatcher.Dispatch(dispatcher.Event{Command: worker.CommandToggle}); err != nil {
			return fmt.Errorf("starting simulation: %w", err)
		}
	}

	mon := monitor.NewService(monitor.Dependencies{
		Source:    a.runner,
		Session:   a.session,
		Writer:    a.manager,
		Logger:    a.logger.With("component", "monitor"),
		OutputDir: viper.GetString("logsDir"),
		Interval:  config.GetMonitorConfig().Interval,
	})
	if err := mon.Start(); err != nil {
		a.logger.Warn("Status monitor not started", "error", err)
	}

	server := httpapi.New(httpapi.Dependencies{
		Dispatcher:     a.dispatcher,
		Runner:         a.runner,
		Logger:         a.logger.With("component", "http"),
		StreamInterval: srvCfg.StreamInterval,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.manager.Record(gctx)
	})
	g.Go(func() error {
		return a.runner.Run(gctx, runner.NewTimeTicker(a.runner.Engine().TickInterval()))
	})
	g.Go(func() error {
		return server.ListenAndServe(gctx, srvCfg.Address)
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	mon.Stop()

	if endErr := a.manager.EndRun(); endErr != nil {
		a.logger.Error("Failed to end run", "error", endErr)
		err = errors.Join(err, endErr)
	}

	uploadCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if upErr := a.upload(uploadCtx); upErr != nil {
		a.logger.Error("Upload failed", "error", upErr)
	}

	a.logger.Info("Shutting down", "frames", a.manager.Frames(), "step", a.runner.Snapshot().Step)
	return err
}
