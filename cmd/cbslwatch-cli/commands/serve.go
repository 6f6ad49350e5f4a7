package commands

import (
	"log/slog"

	"cbslwatch-backend/lib/serviceutil"
	"cbslwatch-backend/lib/telemetry"
	"cbslwatch-backend/services/econdata/rest"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Runs the http api server.",
	Run: func(cmd *cobra.Command, args []string) {
		service, config, cleanup := newService()
		defer cleanup()

		telemetry.InstrumentPerfStats(cmd.Context())

		handler := rest.NewHandler(service, rest.Options{
			AccessToken: config.AccessToken,
		})

		slog.Info("serving", "port", config.Port)
		go serviceutil.StartHttpServer(config.Port, handler)

		<-cmd.Context().Done()
	},
}
