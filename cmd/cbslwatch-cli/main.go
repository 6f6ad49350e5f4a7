package main

import (
	"cbslwatch-backend/cmd/cbslwatch-cli/commands"
	"cbslwatch-backend/lib/serviceutil"
	"cbslwatch-backend/lib/telemetry"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	ctx := serviceutil.SignalContext()
	telemetry.SetupFromEnv(ctx, "cbslwatch-cli")
	telemetry.InitSlog(true)

	commands.ExecuteContext(ctx)
}
