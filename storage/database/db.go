package database

import (
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/gnarlyhq/gnarly/core"
	appfs "github.com/gnarlyhq/gnarly/fs"
)

// Open connects to the sqlite file at conf.Database.Path, creating it if
// needed. Foreign keys are enforced so User deletion cascades to pdf rows.
func Open(conf *core.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("sqlite", conf.Database.Path)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if _, err = db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "enabling foreign keys")
	}
	if _, err = db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "enabling WAL")
	}
	// the driver opens one connection per request by default; sqlite writes
	// serialize at the statement level, a single connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)
	return db, nil
}

func Migrate(db *sql.DB) error {
	goose.SetBaseFS(appfs.FS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return errors.Wrap(err, "setting goose dialect")
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return errors.Wrap(err, "migrating database")
	}
	return nil
}
