package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/axialworks/fanquote/internal/model"
)

var quoteOutputJSON bool

var quoteCmd = &cobra.Command{
	Use:   "quote <request.json>",
	Short: "Calculate a quote from a JSON request file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		data, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrapf(err, "read request %s", args[0])
		}
		var req model.QuoteRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return eris.Wrap(err, "parse request")
		}

		res, err := env.Engine.CalculateQuote(cmd.Context(), req)
		if err != nil {
			return err
		}

		if quoteOutputJSON {
			out, err := json.MarshalIndent(res, "", "  ")
			if err != nil {
				return eris.Wrap(err, "marshal result")
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		}

		printQuote(cmd.OutOrStdout(), res, cfg.Pricing.Currency)
		return nil
	},
}

func init() {
	quoteCmd.Flags().BoolVar(&quoteOutputJSON, "json", false, "emit the full result as JSON")
	rootCmd.AddCommand(quoteCmd)
}

func printQuote(out io.Writer, res *model.QuoteResult, currency string) {
	p := message.NewPrinter(language.English)
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	fmt.Fprintf(w, "Fan\t%s\t%d blades\n", res.FanUID, res.BladeQuantity)
	fmt.Fprintln(w, "\t\t")
	fmt.Fprintln(w, "Component\tMass (kg)\tCost")
	for _, c := range res.Components {
		fmt.Fprintf(w, "%s\t%s\t%s\n",
			c.Name,
			p.Sprintf("%.1f", c.RealMassKG),
			p.Sprintf("%s %.2f", currency, c.TotalCostAfterMarkup))
	}
	if res.Motor != nil {
		fmt.Fprintf(w, "Motor (%s %s)\t\t%s\n",
			res.Motor.SupplierName, res.Motor.MountType,
			p.Sprintf("%s %.2f", currency, res.Motor.FinalPrice))
	}
	for _, b := range res.Buyouts {
		fmt.Fprintf(w, "%s\t\t%s\n", b.Description, p.Sprintf("%s %.2f", currency, b.Subtotal))
	}
	fmt.Fprintln(w, "\t\t")
	fmt.Fprintf(w, "Components\t\t%s\n", p.Sprintf("%s %.2f", currency, res.Totals.Components))
	fmt.Fprintf(w, "Motor\t\t%s\n", p.Sprintf("%s %.2f", currency, res.Totals.Motor))
	fmt.Fprintf(w, "Buy-outs\t\t%s\n", p.Sprintf("%s %.2f", currency, res.Totals.Buyouts))
	fmt.Fprintf(w, "Grand total\t\t%s\n", p.Sprintf("%s %.2f", currency, res.Totals.GrandTotal))
	_ = w.Flush()
}
