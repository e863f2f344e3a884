package main

import (
	"fmt"

	"github.com/dukerupert/habitual/internal/database"
)

type migrateCmd struct{}

func (c *migrateCmd) Run(app *appContext) error {
	db, err := database.Open(app.Config.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	v, err := database.Version(db)
	if err != nil {
		return err
	}
	app.Logger.Info("database migrated", "path", app.Config.DBPath, "version", v)
	return nil
}
