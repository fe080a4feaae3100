package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/awardintel/award-engine/internal/history"
)

func trendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trend",
		Short: "Show the recent price history",
		Long: `Print the award prices seen over the history window and how the
current price compares to the low.

Points come from the redis history when configured, otherwise from the
snapshot store.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			program, _ := cmd.Flags().GetString("program")
			if program == "" {
				program = cfg.Generator.Program
			}
			window := cfg.History.Window
			if w, _ := cmd.Flags().GetDuration("window"); w > 0 {
				window = w
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Store.Timeout)
			defer cancel()

			a, err := newApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.close()

			since := time.Now().Add(-window)
			points, err := a.loadPoints(ctx, program, since)
			if err != nil {
				return err
			}

			printTrend(cmd.OutOrStdout(), program, points)
			return nil
		},
	}
	cmd.Flags().String("program", "", "loyalty program (default from config)")
	cmd.Flags().Duration("window", 0, "history window (default from config)")
	return cmd
}

// loadPoints prefers a persistent history and falls back to the store.
func (a *app) loadPoints(ctx context.Context, program string, since time.Time) ([]history.Point, error) {
	if a.cfg.History.Type == "redis" && a.history != nil {
		return a.history.Load(ctx, program, since)
	}

	rows, err := a.store.Since(ctx, since)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	points := make([]history.Point, 0, len(rows))
	for _, r := range rows {
		if r.Program == program {
			points = append(points, history.PointFrom(r, now))
		}
	}
	return points, nil
}

func printTrend(out io.Writer, program string, points []history.Point) {
	if len(points) == 0 {
		fmt.Fprintf(out, "No %s prices recorded yet.\n", program)
		return
	}

	fmt.Fprintf(out, "%s price history\n", program)
	for _, p := range points {
		fmt.Fprintf(out, "  %s  %7d miles  $%.2f\n", p.CapturedAt.Local().Format("Jan 02 15:04"), p.MilesRequired, p.TaxUSD)
	}

	s := history.Summarize(points)
	fmt.Fprintf(out, "\nLow %d, high %d, latest %d across %d snapshots.\n", s.Low, s.High, s.Latest, s.Count)
	fmt.Fprintf(out, "Current price is within %.1f%% of the historical low.\n", s.PctAboveLow)
}
