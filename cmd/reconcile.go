package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/axialworks/fanquote/internal/document"
)

var reconcileStrict bool

var reconcileCmd = &cobra.Command{
	Use:   "reconcile <document.json>",
	Short: "Check a saved quote document's totals against its stored leaves",
	Long:  "Upgrades the document to the current schema if needed, re-sums its stored values, and reports every inconsistency found.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrapf(err, "read document %s", args[0])
		}

		migrated, err := document.Migrate(data)
		if err != nil {
			return err
		}

		derived, issues := document.Reconcile(migrated)

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "components: %.2f\n", derived.ComponentsFinalPrice)
		fmt.Fprintf(out, "motor:      %.2f\n", derived.MotorFinalPrice)
		fmt.Fprintf(out, "buy-outs:   %.2f\n", derived.BuyoutTotal)
		fmt.Fprintf(out, "grand:      %.2f\n", derived.GrandTotal)

		if len(issues) == 0 {
			fmt.Fprintln(out, "no issues")
			return nil
		}

		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(issues); err != nil {
			return eris.Wrap(err, "encode issues")
		}
		if reconcileStrict {
			return eris.Errorf("%d issue(s) found", len(issues))
		}
		return nil
	},
}

func init() {
	reconcileCmd.Flags().BoolVar(&reconcileStrict, "strict", false, "exit non-zero when issues are found")
	rootCmd.AddCommand(reconcileCmd)
}
