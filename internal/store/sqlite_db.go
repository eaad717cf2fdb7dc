package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// defaultBusyTimeoutMS is the SQLite busy_timeout. Override with WRAPCRASH_BUSY_TIMEOUT_MS.
const defaultBusyTimeoutMS = 2000

// slotDSN builds the modernc.org/sqlite DSN for path. Pragmas ride on the DSN
// so every pooled connection gets them. synchronous=FULL keeps a crash-time
// write durable once Write returns.
func slotDSN(path string) string {
	busy := defaultBusyTimeoutMS
	if v, err := strconv.Atoi(os.Getenv("WRAPCRASH_BUSY_TIMEOUT_MS")); err == nil && v > 0 {
		busy = v
	}

	q := url.Values{}
	q.Set("mode", "rwc")
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busy))
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "synchronous(FULL)")
	return "file:" + path + "?" + q.Encode()
}

// openSlotDB opens the slot database at path, creating it and its directory
// if needed, and brings the schema up to date.
func openSlotDB(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", slotDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Two processes starting at once must not both run the same migration.
	err = withLock(path+".migrate.lock", func() error {
		return retryBusy(func() error { return migrateSlotDB(context.Background(), db) })
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}

func slotMigrator(db *sql.DB) (*goose.Provider, error) {
	fsys, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		return nil, err
	}
	return goose.NewProvider(goose.DialectSQLite3, db, fsys)
}

func migrateSlotDB(ctx context.Context, db *sql.DB) error {
	p, err := slotMigrator(db)
	if err != nil {
		return err
	}
	_, err = p.Up(ctx)
	return err
}

// SchemaVersion returns the applied and the newest embedded migration version.
func SchemaVersion(db *sql.DB) (current, latest int64, err error) {
	p, err := slotMigrator(db)
	if err != nil {
		return 0, 0, err
	}
	current, err = p.GetDBVersion(context.Background())
	if err != nil {
		return 0, 0, fmt.Errorf("read schema version: %w", err)
	}
	for _, src := range p.ListSources() {
		if src.Version > latest {
			latest = src.Version
		}
	}
	return current, latest, nil
}
