package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/axialworks/fanquote/internal/model"
	"github.com/axialworks/fanquote/internal/store"
)

var (
	quotesStatus string
	quotesClient string
	quotesLimit  int
)

var quotesCmd = &cobra.Command{
	Use:   "quotes",
	Short: "List saved quote documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		summaries, err := env.Store.ListQuotes(cmd.Context(), store.QuoteFilter{
			Status:     model.QuoteStatus(quotesStatus),
			ClientName: quotesClient,
			Limit:      quotesLimit,
		})
		if err != nil {
			return err
		}

		p := message.NewPrinter(language.English)
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "REF\tREV\tSTATUS\tCLIENT\tPROJECT\tGRAND TOTAL\tCREATED")
		for _, s := range summaries {
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
				s.QuoteRef, s.RevisionNumber, s.Status, s.ClientName, s.ProjectName,
				p.Sprintf("%s %.2f", cfg.Pricing.Currency, s.GrandTotal),
				s.CreatedAt.Format("2006-01-02"))
		}
		return w.Flush()
	},
}

func init() {
	quotesCmd.Flags().StringVar(&quotesStatus, "status", "", "filter by status")
	quotesCmd.Flags().StringVar(&quotesClient, "client", "", "filter by client name")
	quotesCmd.Flags().IntVar(&quotesLimit, "limit", 50, "maximum rows")
	rootCmd.AddCommand(quotesCmd)
}
