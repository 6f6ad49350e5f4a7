package commands

import (
	"errors"
	"fmt"
	"strings"

	"cbslwatch-backend/lib/serviceutil"
	"cbslwatch-backend/services/econdata"
	"cbslwatch-backend/services/econdata/db"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(refreshCmd)
}

var refreshCmd = &cobra.Command{
	Use:   "refresh [family...]",
	Short: "Re-scrapes cached families and journals the outcome. no arguments refreshes everything. families: " + strings.Join(econdata.CachedFamilies, ", "),
	Run: func(cmd *cobra.Command, args []string) {
		service, _, cleanup := newService()
		defer cleanup()

		var runs []db.RefreshRun
		var err error
		if len(args) == 0 {
			runs, err = service.RefreshAll(cmd.Context())
		} else {
			var failures []error
			for _, family := range args {
				run, runErr := service.Refresh(cmd.Context(), family)
				if run.ID != "" {
					runs = append(runs, run)
				}
				if runErr != nil {
					failures = append(failures, fmt.Errorf("%s: %w", family, runErr))
				}
			}
			err = errors.Join(failures...)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Run", "Family", "Outcome", "Rows", "Error"})
		for _, run := range runs {
			t.AppendRow(table.Row{run.ID, run.Family, run.Outcome, run.RowCount, run.Error})
		}
		t.Render()

		if err != nil {
			serviceutil.Fatal("some refreshes failed", err)
		}
	},
}
