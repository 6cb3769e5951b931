package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/blockberries/dge/calc"
	"github.com/blockberries/dge/config"
	"github.com/blockberries/dge/eligibility"
	"github.com/blockberries/dge/ledger"

	"github.com/spf13/cobra"
)

func assessCmd(load func() (config.Config, error)) *cobra.Command {
	var (
		reputation int64
		requested  float64
		price      float64
		supply     float64
	)
	cmd := &cobra.Command{
		Use:   "assess",
		Short: "Compute funding cap, bond, quorum and eligibility for a request",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("price") {
				price = cfg.Oracle.PriceUSD
			}
			if !cmd.Flags().Changed("supply") {
				supply = cfg.Oracle.Supply
			}
			return writeAssessment(cmd.OutOrStdout(), cfg, reputation, requested, price, supply)
		},
	}
	cmd.Flags().Int64Var(&reputation, "reputation", 0, "Founder reputation")
	cmd.Flags().Float64Var(&requested, "request", 0, "Requested amount in USD")
	cmd.Flags().Float64Var(&price, "price", 0, "Token price in USD (default from config)")
	cmd.Flags().Float64Var(&supply, "supply", 0, "Circulating token supply (default from config)")
	return cmd
}

func writeAssessment(w io.Writer, cfg config.Config, reputation int64, requested, price, supply float64) error {
	a := eligibility.Assess(cfg.Params, reputation, requested)
	bond, err := calc.Bond(cfg.Params, price)
	if err != nil {
		return err
	}
	quorum, err := calc.Quorum(cfg.Params, supply)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "funding cap:\t%d USD\n", a.Cap)
	fmt.Fprintf(tw, "bond:\t%d tokens\n", bond)
	fmt.Fprintf(tw, "required quorum:\t%.2f%%\n", quorum*100)
	fmt.Fprintf(tw, "eligible:\t%t\n", a.Eligibility.Eligible)
	if !a.Eligibility.Eligible {
		fmt.Fprintf(tw, "reasons:\t%s\n", a.Eligibility.Reasons)
	}
	return tw.Flush()
}

func scheduleCmd(load func() (config.Config, error)) *cobra.Command {
	var requested float64
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Print the milestone schedule and tranche amounts for a request",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return writeSchedule(cmd.OutOrStdout(), cfg, requested)
		},
	}
	cmd.Flags().Float64Var(&requested, "request", 0, "Requested amount in USD")
	return cmd
}

func writeSchedule(w io.Writer, cfg config.Config, requested float64) error {
	s, err := cfg.MilestoneSchedule()
	if err != nil {
		return err
	}
	l, err := ledger.New(s, requested, 0)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tmilestone\tpercent\ttranche")
	for i := uint32(1); i <= s.Len(); i++ {
		ms, _ := s.Milestone(i)
		amount, err := l.Tranche(i)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%d\t%s\t%g%%\t%s\n", i, ms.Name, ms.Percent, amount.StringFixed(2))
	}
	fmt.Fprintf(tw, "\ttotal\t100%%\t%s\n", l.Requested().StringFixed(2))
	return tw.Flush()
}
