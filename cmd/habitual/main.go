package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/dukerupert/habitual/internal/config"
	"github.com/dukerupert/habitual/internal/logging"
)

var version = "dev"

var cli struct {
	config.Config
	Version kong.VersionFlag `help:"Print version and exit."`

	Serve   serveCmd   `cmd:"" default:"1" help:"Run the HTTP server."`
	Migrate migrateCmd `cmd:"" help:"Apply database migrations and exit."`
	Stats   statsCmd   `cmd:"" help:"Print a user's streak and heatmap."`
	Backup  struct {
		Run     backupRunCmd     `cmd:"" help:"Upload an encrypted snapshot of the database."`
		List    backupListCmd    `cmd:"" help:"List stored snapshots."`
		Prune   backupPruneCmd   `cmd:"" help:"Delete snapshots older than the retention period."`
		Restore backupRestoreCmd `cmd:"" help:"Download and decrypt a snapshot to a new file."`
	} `cmd:"" help:"Manage encrypted S3 backups."`
	VapidKeys vapidKeysCmd `cmd:"" name:"vapid-keys" help:"Generate a VAPID key pair for web push."`
}

// appContext is bound into every command's Run method.
type appContext struct {
	Config *config.Config
	Logger *slog.Logger
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}

	ctx := kong.Parse(&cli,
		kong.Name("habitual"),
		kong.Description("Habit tracker with streak and heatmap analytics."),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)

	if err := cli.Config.Validate(); err != nil {
		ctx.FatalIfErrorf(err)
	}

	logger := logging.Setup(cli.LogLevel, cli.LogFormat)
	err := ctx.Run(&appContext{Config: &cli.Config, Logger: logger})
	if err != nil {
		logger.Error("command failed", "command", ctx.Command(), "error", err)
		os.Exit(1)
	}
}
