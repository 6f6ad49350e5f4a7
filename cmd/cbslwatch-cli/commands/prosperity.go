package commands

import (
	"fmt"
	"log/slog"

	"cbslwatch-backend/lib/serviceutil"
	"cbslwatch-backend/services/econdata"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(prosperityCmd)
}

var prosperityCmd = &cobra.Command{
	Use:   "prosperity",
	Short: "Reads the prosperity index out of the annual pdfs.",
	Run: func(cmd *cobra.Command, args []string) {
		service, _, cleanup := newService()
		defer cleanup()

		f, err := service.HistoricalSeries(cmd.Context(), econdata.FamilyProsperity, force)
		if err != nil {
			serviceutil.Fatal("failed to read prosperity index", err)
		}

		// the landing page dressing is nice to have, the numbers
		// matter
		meta, err := service.ProsperityMetadata(cmd.Context())
		if err != nil {
			slog.Warn("failed to read page metadata", "err", err)
		}
		if meta.Title != "" {
			fmt.Println(meta.Title)
		}

		renderFrame(f)

		for _, report := range meta.Reports {
			fmt.Printf("  - %s\n", report)
		}
	},
}
