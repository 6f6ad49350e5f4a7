package commands

import (
	"time"

	"cbslwatch-backend/lib/retryutil"
	"cbslwatch-backend/lib/scrapers/rates"
	"cbslwatch-backend/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var ratesWait time.Duration

func init() {
	ratesCmd.Flags().DurationVar(&ratesWait, "wait", time.Minute, "interval between attempts while the page is down")
	rootCmd.AddCommand(ratesCmd)
}

var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "Shows the current policy rates, retrying until the page answers.",
	Run: func(cmd *cobra.Command, args []string) {
		service, _, cleanup := newService()
		defer cleanup()

		// live page with no cache behind it, keep knocking at a
		// constant interval until it answers or ctrl-c
		retry := retryutil.Config{Interval: ratesWait}
		var obs []rates.Observation
		err := retry.Do(cmd.Context(), "current rates", func() error {
			var err error
			obs, err = service.CurrentRates(cmd.Context())
			return err
		})
		if err != nil {
			serviceutil.Fatal("failed to scrape current rates", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Rate", "Value (%)", "Observed"})
		for _, o := range obs {
			t.AppendRow(table.Row{o.Label, o.Value, o.ObservedAt.Format("2006-01-02 15:04")})
		}
		t.Render()
	},
}
