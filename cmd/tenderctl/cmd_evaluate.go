package main

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/Tender/internal/evaluation"
)

func newEvaluateCommand() *cobra.Command {
	var (
		file      string
		tolerance float64
		noPareto  bool
	)

	cmd := &cobra.Command{
		Use:   "evaluate -f package.yaml",
		Short: "Evaluate a bid package file offline",
		Long: `Evaluate scores, ranks and recommends the bids in a package file without
a server and prints the result as JSON.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pf, err := loadPackageFile(file)
			if err != nil {
				return err
			}
			pkg, bids, err := pf.snapshot()
			if err != nil {
				return err
			}

			engine := evaluation.NewEngine(evaluation.Options{
				Taxonomy:      evaluation.DefaultTaxonomy().Extend(pf.ExtraCriteria...),
				Tolerance:     tolerance,
				ParetoEnabled: !noPareto,
			}, slog.Default())

			result, err := engine.Evaluate(evaluation.Snapshot{Package: pkg, Bids: bids})
			if err != nil {
				return fmt.Errorf("evaluate %s: %w", file, err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Package YAML file")
	cmd.Flags().Float64Var(&tolerance, "weights-tolerance", evaluation.DefaultTolerance, "Allowed deviation of the weight sum from 100")
	cmd.Flags().BoolVar(&noPareto, "no-pareto", false, "Skip the price/technical Pareto frontier")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
