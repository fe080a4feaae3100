package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	apperrors "github.com/awardintel/award-engine/internal/pkg/errors"
)

func alertsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Price alert commands",
	}
	cmd.AddCommand(alertsCheckCmd())
	return cmd
}

func alertsCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check the latest snapshot against the alert threshold",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if threshold, _ := cmd.Flags().GetInt("threshold"); threshold > 0 {
				cfg.Alert.Threshold = threshold
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Store.Timeout)
			defer cancel()

			a, err := newApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.close()

			checker, err := a.checker()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			d, err := checker.Check(ctx)
			if err != nil {
				if apperrors.IsNotFound(err) {
					fmt.Fprintln(out, "No flights found")
					return nil
				}
				return err
			}

			fmt.Fprintln(out, d.Status)
			return nil
		},
	}
	cmd.Flags().Int("threshold", 0, "alert when miles are at or below this (default from config)")
	return cmd
}
