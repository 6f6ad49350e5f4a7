package main

import (
	"context"
	"flag"
	"os"

	"cbslwatch-backend/lib/configutil"
	"cbslwatch-backend/lib/serviceutil"
	"cbslwatch-backend/lib/sqliteutil"
	"cbslwatch-backend/lib/telemetry"
	"cbslwatch-backend/services/econdata"
	econdatadb "cbslwatch-backend/services/econdata/db"
	"cbslwatch-backend/services/econdata/rest"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        int                    `json:"port"`
	Database    string                 `json:"database"`
	DataDir     string                 `json:"data_dir"`
	AccessToken string                 `json:"access_token"`
	Alerts      *econdata.AlertOptions `json:"alerts"`
}

func main() {
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	// .env carries machine-local settings like CHROME_BIN
	_ = godotenv.Load()
	telemetry.InitSlog(*verbose)

	ctx := serviceutil.SignalContext()

	config, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	if config.Port == 0 {
		config.Port = 8277
	}
	if config.Database == "" {
		config.Database = "econdata.db"
	}

	err = telemetry.SetupFromEnv(ctx, "cbslwatch-server")
	if err != nil && !os.IsNotExist(err) {
		serviceutil.Fatal("failed to setup telemetry", err)
	}
	defer telemetry.Shutdown(context.Background())
	telemetry.InstrumentPerfStats(ctx)

	database, err := sqliteutil.OpenDB(econdatadb.Schema, config.Database)
	if err != nil {
		serviceutil.Fatal("failed to open database", err)
	}

	service, err := econdata.NewService(database, econdata.Options{
		DataDir: config.DataDir,
		Alerts:  config.Alerts,
	})
	if err != nil {
		serviceutil.Fatal("failed to create service", err)
	}

	handler := rest.NewHandler(service, rest.Options{
		AccessToken: config.AccessToken,
	})
	go serviceutil.StartHttpServer(config.Port, handler)

	<-ctx.Done()
}
