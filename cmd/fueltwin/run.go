package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/turbofuel/fueltwin/internal/scenario"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Play a scenario file as fast as possible and record it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := scenario.Load(args[0])
			if err != nil {
				return err
			}
			name, _ := cmd.Flags().GetString("name")
			if name == "" {
				name = sc.Name
			}
			tag, _ := cmd.Flags().GetString("tag")
			jsonOut, _ := cmd.Flags().GetBool("json")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			res, err := play(ctx, sc, name, tag)
			if err != nil {
				return err
			}
			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			return printResult(cmd.OutOrStdout(), res)
		},
	}

	cmd.Flags().String("name", "", "Run name (default: the scenario name)")
	cmd.Flags().String("tag", "", "Run tag (default from defaultTag)")
	return cmd
}

func play(ctx context.Context, sc *scenario.Scenario, name, tag string) (scenario.Result, error) {
	a, err := newApp()
	if err != nil {
		return scenario.Result{}, err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.close(closeCtx)
	}()

	if err := a.manager.StartRun(a.newRun(name, tag)); err != nil {
		return scenario.Result{}, err
	}
	a.logger.Info("Playing scenario", "scenario", sc.Name, "ticks", sc.Ticks, "steps", len(sc.Steps))

	res, err := scenario.Play(ctx, a.dispatcher, sc, a.manager.Observe)
	if endErr := a.manager.EndRun(); endErr != nil {
		err = errors.Join(err, endErr)
	}
	if err != nil {
		return res, err
	}

	if upErr := a.upload(ctx); upErr != nil {
		a.logger.Error("Upload failed", "error", upErr)
	}
	a.logger.Info("Scenario finished",
		"ticks", res.Ticks,
		"alerts", res.Alerts,
		"overallHealth", res.Final.Health.Overall)
	return res, nil
}

func printResult(w io.Writer, res scenario.Result) error {
	fmt.Fprintf(w, "Scenario:       %s\n", res.Name)
	fmt.Fprintf(w, "Ticks:          %d (t=%.1fs)\n", res.Ticks, res.Final.Time)
	fmt.Fprintf(w, "Overall health: %.1f\n", res.Final.Health.Overall)
	fmt.Fprintf(w, "Alerts:         %d\n", res.Alerts)
	if active := res.Final.Faults.Active(); len(active) > 0 {
		fmt.Fprintf(w, "Active faults:  %v\n", active)
	}
	fmt.Fprintln(w)

	names := make([]string, 0, len(res.Summary.Series))
	for name := range res.Summary.Series {
		names = append(names, name)
	}
	sort.Strings(names)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SERIES\tMEAN\tSTDDEV\tMIN\tMAX")
	for _, name := range names {
		st := res.Summary.Series[name]
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.2f\t%.2f\n", name, st.Mean, st.StdDev, st.Min, st.Max)
	}
	return tw.Flush()
}
