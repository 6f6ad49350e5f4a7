// Package commands wires the cbslwatch command tree. every command
// builds its own service instance, so the cli works against the data
// directory directly without a running server.
package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"cbslwatch-backend/lib/configutil"
	"cbslwatch-backend/lib/frame"
	"cbslwatch-backend/lib/restyutil"
	"cbslwatch-backend/lib/scrapers/cbslweb"
	"cbslwatch-backend/lib/serviceutil"
	"cbslwatch-backend/lib/sqliteutil"
	"cbslwatch-backend/services/econdata"
	econdatadb "cbslwatch-backend/services/econdata/db"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

type Config struct {
	Port        int                    `json:"port"`
	Database    string                 `json:"database"`
	DataDir     string                 `json:"data_dir"`
	AccessToken string                 `json:"access_token"`
	Alerts      *econdata.AlertOptions `json:"alerts"`
}

var rootCmd = &cobra.Command{
	Use:   "cbslwatch",
	Short: "cbslwatch scrapes economic indicators off the central bank of sri lanka's public pages.",
}

var (
	force     bool
	debugHttp bool
)

func init() {
	rootCmd.PersistentFlags().BoolVar(&force, "force", false, "ignore cached artifacts and scrape fresh")
	rootCmd.PersistentFlags().BoolVar(&debugHttp, "debug-http", false, "dump every http exchange under .dev/resty")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if debugHttp {
			cbslweb.SetRestyInstrumentOutput(restyutil.NewFilesystemOutput(".dev/resty"))
		}
	}
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads config.json5 when present. a missing file is fine,
// the defaults work from a bare checkout.
func loadConfig() Config {
	config, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil && !os.IsNotExist(err) {
		serviceutil.Fatal("failed to read config", err)
	}
	if config.Port == 0 {
		config.Port = 8277
	}
	if config.Database == "" {
		config.Database = "econdata.db"
	}
	return config
}

func newService() (econdata.Service, Config, func()) {
	config := loadConfig()

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
	return service, config, func() { database.Close() }
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

// cellString renders an absent reading as an empty cell, never a zero.
func cellString(c frame.Cell) string {
	if !c.Valid {
		return ""
	}
	return strconv.FormatFloat(c.Float, 'f', -1, 64)
}

func renderFrame(f *frame.Frame) {
	t := newTable()
	header := table.Row{"Date"}
	for _, col := range f.Columns() {
		header = append(header, col)
	}
	t.AppendHeader(header)
	for _, date := range f.Dates() {
		row := table.Row{date.Format("2006-01-02")}
		for _, c := range f.Row(date) {
			row = append(row, cellString(c))
		}
		t.AppendRow(row)
	}
	t.Render()
}
