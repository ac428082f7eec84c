package testutil

import (
	"net/mail"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/gnarlyhq/gnarly/core"
	"github.com/gnarlyhq/gnarly/storage/database"
)

// NewConfig returns a Config suitable for tests: throwaway sqlite file and
// upload dir, no external services.
func NewConfig(t *testing.T) *core.Config {
	t.Helper()
	tmp := t.TempDir()
	return &core.Config{
		Env:              "TEST",
		TestMode:         true,
		AppName:          "Gnarly",
		ClientOrigin:     "http://localhost:5173",
		FrontendBaseURL:  "http://localhost:5173",
		UploadDir:        filepath.Join(tmp, "uploads"),
		Database:         core.DatabaseConfig{Path: filepath.Join(tmp, "test.sqlite")},
		DefaultFromEmail: mail.Address{Name: "Gnarly", Address: "noreply@localhost"},
	}
}

// PrepareDB opens a fresh migrated sqlite database for the test.
func PrepareDB(t *testing.T, conf *core.Config) *sqlx.DB {
	t.Helper()
	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err = database.Migrate(db.DB); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}
