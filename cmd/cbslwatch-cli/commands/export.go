package commands

import (
	"errors"
	"log/slog"

	"cbslwatch-backend/lib/export"
	"cbslwatch-backend/lib/serviceutil"
	"cbslwatch-backend/services/econdata"

	"github.com/spf13/cobra"
)

var (
	exportCsv string
	exportDsn string
)

// the flat-frame families that export without a browser session. the
// live workbook and pdf families still export when named explicitly.
var defaultExportFamilies = []string{
	econdata.FamilyExchange,
	econdata.FamilyInflation,
	econdata.FamilyMoneySupply,
}

func init() {
	exportCmd.Flags().StringVar(&exportCsv, "csv", "", "write a combined long-form csv to this path")
	exportCmd.Flags().StringVar(&exportDsn, "postgres", "", "postgres dsn to mirror the families into")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export [family...]",
	Short: "Flattens historical families into long rows and writes them to csv and/or postgres.",
	Run: func(cmd *cobra.Command, args []string) {
		if exportCsv == "" && exportDsn == "" {
			serviceutil.Fatal("nothing to export to", errors.New("pass --csv and/or --postgres"))
		}

		families := args
		if len(families) == 0 {
			families = defaultExportFamilies
		}

		service, _, cleanup := newService()
		defer cleanup()

		var writers []export.Writer
		if exportCsv != "" {
			w, err := export.NewCSVWriter(exportCsv)
			if err != nil {
				serviceutil.Fatal("failed to open csv sink", err)
			}
			writers = append(writers, w)
		}
		if exportDsn != "" {
			w, err := export.NewPostgresWriter(exportDsn)
			if err != nil {
				serviceutil.Fatal("failed to open postgres sink", err)
			}
			writers = append(writers, w)
		}

		for _, family := range families {
			f, err := service.HistoricalSeries(cmd.Context(), family, force)
			if err != nil {
				serviceutil.Fatal("failed to load "+family, err)
			}
			rows := export.FromFrame(family, f)
			for _, w := range writers {
				if err := w.Write(rows); err != nil {
					serviceutil.Fatal("failed to export "+family, err)
				}
			}
			slog.Info("exported", "family", family, "rows", len(rows))
		}

		for _, w := range writers {
			if err := w.Close(); err != nil {
				serviceutil.Fatal("failed to close sink", err)
			}
		}
	},
}
