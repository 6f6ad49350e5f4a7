package commands

import (
	"fmt"

	"cbslwatch-backend/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(inflationCmd)
}

var inflationCmd = &cobra.Command{
	Use:   "inflation",
	Short: "Prints the ccpi/ncpi window with press release links.",
	Run: func(cmd *cobra.Command, args []string) {
		service, _, cleanup := newService()
		defer cleanup()

		entries, err := service.InflationTable(cmd.Context(), force)
		if err != nil {
			serviceutil.Fatal("failed to load inflation window", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{
			"Month", "CCPI Headline", "CCPI Core", "NCPI Headline", "NCPI Core", "Press Release",
		})
		for _, e := range entries {
			t.AppendRow(table.Row{
				fmt.Sprintf("%s %d", e.Month, e.Year),
				cellString(e.CcpiHeadline),
				cellString(e.CcpiCore),
				cellString(e.NcpiHeadline),
				cellString(e.NcpiCore),
				e.PdfUrl,
			})
		}
		t.Render()
	},
}
