package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/Tender/internal/evaluation"
	"github.com/MikeSquared-Agency/Tender/internal/store"
)

func newWeightsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "weights",
		Short: "Inspect criteria weights",
	}
	cmd.AddCommand(newWeightsCheckCommand())
	cmd.AddCommand(newWeightsDefaultCommand())
	return cmd
}

func newWeightsCheckCommand() *cobra.Command {
	var (
		file      string
		tolerance float64
	)

	cmd := &cobra.Command{
		Use:   "check -f package.yaml",
		Short: "Validate the weight set of a package file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pf, err := loadPackageFile(file)
			if err != nil {
				return err
			}
			w := pf.weights()
			taxonomy := evaluation.DefaultTaxonomy().Extend(pf.ExtraCriteria...)
			if err := evaluation.ValidateWeights(w, taxonomy, tolerance); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "weights ok: %d criteria, sum %.2f\n", len(w), evaluation.SumWeights(w))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Package YAML file")
	cmd.Flags().Float64Var(&tolerance, "weights-tolerance", evaluation.DefaultTolerance, "Allowed deviation of the weight sum from 100")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func newWeightsDefaultCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "default",
		Short: "Print the weights used for packages created without any",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := evaluation.DefaultWeights()
			names := make([]string, 0, len(w))
			for c := range w {
				names = append(names, string(c))
			}
			sort.Strings(names)
			for _, c := range names {
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s %5.1f\n", c, w[store.Criterion(c)])
			}
			return nil
		},
	}
}
