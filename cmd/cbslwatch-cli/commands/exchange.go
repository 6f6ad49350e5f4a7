package commands

import (
	"cbslwatch-backend/lib/scrapers/eresearch"
	"cbslwatch-backend/lib/serviceutil"
	"cbslwatch-backend/services/econdata"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(exchangeCmd)
}

var exchangeCmd = &cobra.Command{
	Use:   "exchange [currency]",
	Short: "Shows the latest buying/selling quotes with day over day changes. defaults to every currency on file.",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		service, _, cleanup := newService()
		defer cleanup()

		f, err := service.HistoricalSeries(cmd.Context(), econdata.FamilyExchange, force)
		if err != nil {
			serviceutil.Fatal("failed to load exchange rates", err)
		}

		currencies := eresearch.Currencies(f)
		if len(args) == 1 {
			currencies = args[:1]
		}

		t := newTable()
		t.AppendHeader(table.Row{"Currency", "Date", "Buying", "Selling", "Buying Chg", "Selling Chg"})
		for _, currency := range currencies {
			q, err := service.LatestExchange(cmd.Context(), currency)
			if err != nil {
				serviceutil.Fatal("failed to read quote", err)
			}
			t.AppendRow(table.Row{
				q.Currency,
				q.Date.Format("2006-01-02"),
				q.Buying,
				q.Selling,
				cellString(q.BuyingChange),
				cellString(q.SellingChange),
			})
		}
		t.Render()
	},
}
