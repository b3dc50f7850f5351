package main

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/axialworks/fanquote/internal/pricelist"
	"github.com/axialworks/fanquote/internal/store"
)

var (
	importSheet     string
	importEffective string
)

var importPricesCmd = &cobra.Command{
	Use:   "import-prices <pricelist.xlsx>",
	Short: "Import a supplier motor price list",
	Long:  "Parses an XLSX price list, upserts the motors it names and appends one effective-dated price row per motor. On Postgres the rows go in via COPY.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		effective, err := time.Parse("2006-01-02", importEffective)
		if err != nil {
			return eris.Wrapf(err, "parse --effective %q", importEffective)
		}

		env, err := initEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		rows, err := pricelist.ParseFile(args[0], pricelist.Options{SheetName: importSheet})
		if err != nil {
			return err
		}

		var stats pricelist.Stats
		if pg, ok := env.Store.(*store.PostgresStore); ok {
			stats, err = pricelist.BulkImport(cmd.Context(), pg.Pool(), rows, effective)
		} else {
			stats, err = pricelist.Import(cmd.Context(), env.Store, rows, effective)
		}
		if err != nil {
			return err
		}

		zap.L().Info("import complete",
			zap.String("file", args[0]),
			zap.Int("motors", stats.Motors),
			zap.Int("prices", stats.Prices))
		return nil
	},
}

func init() {
	importPricesCmd.Flags().StringVar(&importSheet, "sheet", "", "sheet name (default first sheet)")
	importPricesCmd.Flags().StringVar(&importEffective, "effective", time.Now().UTC().Format("2006-01-02"), "date the prices take effect (YYYY-MM-DD)")
	rootCmd.AddCommand(importPricesCmd)
}
