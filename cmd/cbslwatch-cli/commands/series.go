package commands

import (
	"strings"

	"cbslwatch-backend/lib/serviceutil"
	"cbslwatch-backend/services/econdata"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(seriesCmd)
}

var seriesCmd = &cobra.Command{
	Use:   "series <family>",
	Short: "Prints a historical family as a dated table. families: " + strings.Join(econdata.SeriesFamilies, ", "),
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		service, _, cleanup := newService()
		defer cleanup()

		f, err := service.HistoricalSeries(cmd.Context(), args[0], force)
		if err != nil {
			serviceutil.Fatal("failed to load series", err)
		}
		renderFrame(f)
	},
}
