package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/awardintel/award-engine/internal/valuation"
)

func optimizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Plan point transfers for an award",
		Long: `Work out which bank points to transfer for an award, value the
redemption in cents per point and, when short, rank credit cards whose
signup bonus would close the gap.

Without --portfolio the built-in sample portfolio is used.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			portfolio := valuation.SamplePortfolio()
			if path, _ := cmd.Flags().GetString("portfolio"); path != "" {
				p, err := valuation.LoadPortfolio(path)
				if err != nil {
					return err
				}
				portfolio = p
			}

			plan, err := valuation.Optimize(portfolio.Cards, portfolio.Award)
			if err != nil {
				return err
			}

			printPlan(cmd.OutOrStdout(), portfolio.Award, plan)
			return nil
		},
	}
	cmd.Flags().StringP("portfolio", "p", "", "portfolio YAML file")
	return cmd
}

func printPlan(out io.Writer, award valuation.Award, plan valuation.Plan) {
	fmt.Fprintf(out, "%s via %s: %d miles + $%.2f\n", award.Airline, award.Program, award.MilesRequired, award.TaxUSD)
	fmt.Fprintf(out, "Value: %.2f¢ per point. %s\n\n", plan.CPP, plan.Verdict)

	if len(plan.Transfers) > 0 {
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "BANK\tTRANSFER\tREMAINING")
		for _, t := range plan.Transfers {
			fmt.Fprintf(w, "%s\t%d\t%d\n", t.Bank, t.Amount, t.RemainingBalance)
		}
		w.Flush()
		fmt.Fprintln(out)
	}

	if plan.Possible {
		fmt.Fprintln(out, "Fully funded.")
		return
	}

	fmt.Fprintf(out, "Short by %d miles.\n", plan.Shortfall)
	for _, opt := range valuation.EvaluateCardStrategy(plan.Shortfall, award.Program, plan.CPP) {
		viable := "partial"
		if opt.Viable {
			viable = "covers gap"
		}
		fmt.Fprintf(out, "  %s: net gain $%d (%s). %s\n", opt.Name, opt.NetGain, viable, opt.Recommendation)
	}
}
