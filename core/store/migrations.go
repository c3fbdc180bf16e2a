package store

import (
	"context"
	"database/sql"
	"embed"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pressly/goose/v3"

	"github.com/SoloAWS/incident-command-service/core/utils"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// goose keeps its dialect and filesystem in package globals.
var gooseMu sync.Mutex

func ApplyMigrations(ctx context.Context, db *sql.DB, driver string, logger *utils.Logger) error {
	dialect, dir := "postgres", "migrations/postgres"
	if driver == DriverSQLite {
		dialect, dir = "sqlite3", "migrations/sqlite"
	}
	gooseMu.Lock()
	defer gooseMu.Unlock()
	goose.SetBaseFS(migrationsFS)
	if logger != nil {
		goose.SetLogger(logger)
	} else {
		goose.SetLogger(goose.NopLogger())
	}
	if err := goose.SetDialect(dialect); err != nil {
		return goerr.Wrap(err, "failed to set migration dialect", goerr.V("dialect", dialect))
	}
	if err := goose.UpContext(ctx, db, dir); err != nil {
		return goerr.Wrap(err, "failed to apply migrations", goerr.V("dir", dir))
	}
	if logger != nil {
		logger.Printf("migrations applied (%s)", dialect)
	}
	return nil
}
