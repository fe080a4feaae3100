package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/awardintel/award-engine/internal/bus"
	"github.com/awardintel/award-engine/internal/config"
	apperrors "github.com/awardintel/award-engine/internal/pkg/errors"
)

func eventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List events from the bus journal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfigWith(cmd, config.LoadWithoutStore)
			if err != nil {
				return err
			}
			if cfg.Bus.JournalPath == "" {
				return apperrors.ConfigurationError("no bus journal configured (set AWARD_BUS_JOURNAL)")
			}

			topic, _ := cmd.Flags().GetString("topic")
			window, _ := cmd.Flags().GetDuration("since")
			limit, _ := cmd.Flags().GetInt("limit")

			var since time.Time
			if window > 0 {
				since = time.Now().Add(-window)
			}

			entries, err := bus.ReadJournal(cfg.Bus.JournalPath, topic, since, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, e := range entries {
				fmt.Fprintf(out, "%s  %-26s %s  %s\n",
					e.RecordedAt.Local().Format(time.DateTime), e.Topic, e.Event.ID, e.Event.Payload)
			}
			return nil
		},
	}
	cmd.Flags().String("topic", "", "only show this topic")
	cmd.Flags().Duration("since", 24*time.Hour, "how far back to look (0 = all)")
	cmd.Flags().Int("limit", 0, "maximum number of events (0 = no limit)")
	return cmd
}
