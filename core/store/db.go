package store

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/m-mizutani/goerr/v2"
	_ "modernc.org/sqlite"

	"github.com/SoloAWS/incident-command-service/config"
	"github.com/SoloAWS/incident-command-service/core/utils"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

func NewDB(cfg *config.AppConfig, logger *utils.Logger) (*sql.DB, error) {
	var (
		db  *sql.DB
		err error
	)
	switch cfg.DBDriver {
	case DriverSQLite:
		db, err = sql.Open("sqlite", cfg.DBURL)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to open sqlite", goerr.V("path", cfg.DBURL))
		}
		// sqlite serialises writers; one connection avoids SQLITE_BUSY inside transactions.
		db.SetMaxOpenConns(1)
		if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
			db.Close()
			return nil, goerr.Wrap(err, "failed to enable sqlite foreign keys")
		}
	case DriverPostgres, "":
		db, err = sql.Open("pgx", cfg.DBURL)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to open postgres")
		}
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(5)
		db.SetConnMaxIdleTime(5 * time.Minute)
	default:
		return nil, goerr.New("unsupported db driver", goerr.V("driver", cfg.DBDriver))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, goerr.Wrap(err, "database is not reachable", goerr.V("driver", cfg.DBDriver))
	}
	if logger != nil {
		logger.Printf("database connected (driver=%s)", cfg.DBDriver)
	}
	return db, nil
}
