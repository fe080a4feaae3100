package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/awardintel/award-engine/internal/alert"
	"github.com/awardintel/award-engine/internal/ingest"
	"github.com/awardintel/award-engine/internal/observation"
	"github.com/awardintel/award-engine/internal/pkg/logger"
)

// alertCheckTimeout bounds the store read and notifier calls after an insert.
const alertCheckTimeout = 30 * time.Second

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Search for award space once and record the price",
		Long: `Generate one award observation and insert it into the snapshot table.

A failed insert is printed and the command still exits 0, unless --strict
is given.`,
		RunE: runCycle,
	}
	addRunFlags(cmd)
	return cmd
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("strict", false, "exit non-zero when the insert fails")
	cmd.Flags().Uint64("seed", 0, "random seed (0 = random)")
	cmd.Flags().Duration("delay", -1, "simulated search delay (default from config)")
}

func runCycle(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("strict") {
		cfg.Policy.FailOnIngestError, _ = cmd.Flags().GetBool("strict")
	}
	if cmd.Flags().Changed("seed") {
		cfg.Generator.Seed, _ = cmd.Flags().GetUint64("seed")
	}
	if delay, _ := cmd.Flags().GetDuration("delay"); delay >= 0 {
		cfg.Generator.SearchDelay = delay
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.close()

	return a.runOnce(ctx, cmd.OutOrStdout())
}

// runOnce runs one search and insert. With alerts enabled the new price is
// checked before returning, while the bus is still open for alert.sent.
func (a *app) runOnce(ctx context.Context, out io.Writer) error {
	cfg := a.cfg

	var checker *alert.Checker
	if cfg.Alert.Enabled {
		c, err := a.checker()
		if err != nil {
			return err
		}
		checker = c
	}

	gen := observation.NewSeeded(observation.GeneratorConfig{
		Airline:      cfg.Generator.Airline,
		Program:      cfg.Generator.Program,
		MilesChoices: cfg.Generator.MilesChoices,
		TaxMin:       cfg.Generator.TaxMin,
		TaxMax:       cfg.Generator.TaxMax,
	}, cfg.Generator.Seed)

	sink := ingest.NewSink(a.store, a.events, a.history, a.log)

	runner := ingest.NewRunner(ingest.RunnerConfig{
		Route:             cfg.Generator.Route,
		SearchDelay:       cfg.Generator.SearchDelay,
		FailOnIngestError: cfg.Policy.FailOnIngestError,
	}, gen, sink, out, a.log)

	runCtx, cancel := context.WithTimeout(ctx, cfg.Generator.SearchDelay+cfg.Store.Timeout)
	defer cancel()

	outcome, err := runner.Run(runCtx)
	if err != nil || outcome.Err != nil || checker == nil {
		return err
	}

	checkCtx, cancelCheck := context.WithTimeout(logger.ContextWithRunID(ctx, outcome.RunID), alertCheckTimeout)
	defer cancelCheck()

	d, err := checker.Check(checkCtx)
	if err != nil {
		a.log.WithRun(outcome.RunID).WithError(err).Warn("alert check failed")
		return nil
	}
	a.log.WithRun(outcome.RunID).Debug("alert check finished", "status", d.Status)
	return nil
}
