package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dukerupert/habitual/internal/backup"
	"github.com/dukerupert/habitual/internal/config"
	"github.com/dukerupert/habitual/internal/database"
)

type backupRunCmd struct {
	config.BackupConfig
}

func (c *backupRunCmd) Run(app *appContext) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(app.Config.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	obj, err := backup.NewManager(c.Backup(), db, app.Logger).Run(ctx, c.BackupPassphrase)
	if err != nil {
		return err
	}
	fmt.Println(obj.Key)
	return nil
}

type backupListCmd struct {
	config.BackupConfig
}

func (c *backupListCmd) Run(app *appContext) error {
	objects, err := backup.NewManager(c.Backup(), nil, app.Logger).List(context.Background())
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tSIZE\tCREATED")
	for _, o := range objects {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", o.Key, o.Size, o.LastModified.Format(time.RFC3339))
	}
	return tw.Flush()
}

type backupPruneCmd struct {
	config.BackupConfig
	Retention time.Duration `help:"Delete snapshots older than this." default:"720h"`
}

func (c *backupPruneCmd) Run(app *appContext) error {
	n, err := backup.NewManager(c.Backup(), nil, app.Logger).Prune(context.Background(), c.Retention)
	if err != nil {
		return err
	}
	app.Logger.Info("pruned backups", "count", n)
	return nil
}

type backupRestoreCmd struct {
	config.BackupConfig
	Key string `arg:"" help:"Object key of the snapshot."`
	Out string `help:"Path for the restored database; must not exist." required:"" type:"path"`
}

func (c *backupRestoreCmd) Run(app *appContext) error {
	return backup.NewManager(c.Backup(), nil, app.Logger).Restore(context.Background(), c.Key, c.BackupPassphrase, c.Out)
}
