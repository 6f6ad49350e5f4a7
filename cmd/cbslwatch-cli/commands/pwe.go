package commands

import (
	"log/slog"

	"cbslwatch-backend/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(pweCmd)
}

var pweCmd = &cobra.Command{
	Use:   "pwe",
	Short: "Pulls the prices, wages and employment workbooks and lists their sheets.",
	Run: func(cmd *cobra.Command, args []string) {
		service, _, cleanup := newService()
		defer cleanup()

		docs, err := service.PricesWagesEmployment(cmd.Context(), force)
		if err != nil {
			serviceutil.Fatal("failed to load workbooks", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Workbook", "Ext", "Sheet", "Rows", "Date Column"})
		for _, doc := range docs {
			for _, sheet := range doc.Sheets {
				t.AppendRow(table.Row{doc.Name, doc.Ext, sheet.Name, len(sheet.Grid), sheet.DateColumn})
			}
		}
		t.Render()

		slog.Info("extracted artifacts on disk",
			"dir", service.Store().Path("prices_wages_employment"))
	},
}
