package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/axialworks/fanquote/internal/refdata"
)

var seedCmd = &cobra.Command{
	Use:   "seed <fixture.yaml>",
	Short: "Load reference data from a YAML fixture",
	Long:  "Upserts fan configurations, components, parameters, materials, labour rates, settings and motors from a fixture file. Safe to re-run.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		set, err := refdata.Load(args[0])
		if err != nil {
			return err
		}
		if err := refdata.Seed(cmd.Context(), env.Store, set); err != nil {
			return err
		}

		zap.L().Info("reference data seeded",
			zap.String("fixture", args[0]),
			zap.Int("fans", len(set.Fans)),
			zap.Int("components", len(set.Components)),
			zap.Int("materials", len(set.Materials)),
			zap.Int("motors", len(set.Motors)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
