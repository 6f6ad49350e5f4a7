package commands

import (
	"log/slog"

	"cbslwatch-backend/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(indicatorsCmd)
}

var indicatorsCmd = &cobra.Command{
	Use:   "indicators",
	Short: "Pulls the monthly economic indicator pdfs and lists what was extracted.",
	Run: func(cmd *cobra.Command, args []string) {
		service, _, cleanup := newService()
		defer cleanup()

		docs, err := service.MonthlyIndicators(cmd.Context(), force)
		if err != nil {
			serviceutil.Fatal("failed to load monthly indicators", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Document", "Monthly", "Size (B)", "Tables", "Source"})
		for _, doc := range docs {
			t.AppendRow(table.Row{doc.Name, doc.Monthly, doc.Size, len(doc.Tables), doc.PdfUrl})
		}
		t.Render()

		slog.Info("extracted artifacts on disk",
			"dir", service.Store().Path("monthly_indicators"))
	},
}
