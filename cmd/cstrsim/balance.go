package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/cstrsim/internal/balance"
)

func balanceCmd() *cobra.Command {
	in := balance.DefaultInputs()
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "solve the mixer-separator mass balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sol, err := balance.Solve(in)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(sol.Streams)
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "STREAM\tMASS\tX_A\tMASS A")
			for _, s := range sol.Streams {
				fmt.Fprintf(w, "%s\t%.4f\t%.4f\t%.4f\n", s.Name, s.Mass, s.FracA, s.Mass*s.FracA)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "\nmax residual: %.3g\n", sol.Residuals().Max())
			return nil
		},
	}
	cmd.Flags().Float64Var(&in.Feed1.Mass, "m1", in.Feed1.Mass, "feed 1 mass flow")
	cmd.Flags().Float64Var(&in.Feed1.FracA, "xa1", in.Feed1.FracA, "feed 1 mass fraction of A")
	cmd.Flags().Float64Var(&in.Feed2.Mass, "m2", in.Feed2.Mass, "feed 2 mass flow")
	cmd.Flags().Float64Var(&in.Feed2.FracA, "xa2", in.Feed2.FracA, "feed 2 mass fraction of A")
	cmd.Flags().Float64Var(&in.FracA4, "xa4", in.FracA4, "top product mass fraction of A")
	cmd.Flags().Float64Var(&in.FracA5, "xa5", in.FracA5, "bottom product mass fraction of A")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print streams as JSON")
	return cmd
}
