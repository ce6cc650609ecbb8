// Package sqlite provides persistent storage on the pure-Go SQLite driver.
// One database file holds the key-value table and the uploads table.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/tejashwikalptaru/pixeltunes/internal/domain"
)

const (
	appName    = "pixeltunes"
	dbFileName = "pixeltunes.db"
)

// DB is an open PixelTunes database.
type DB struct {
	db *sql.DB
}

// DefaultPath returns the database location under the XDG data directory.
func DefaultPath() (string, error) {
	return xdg.DataFile(filepath.Join(appName, dbFileName))
}

// Open opens (or creates) the database at path and initialises the schema.
// ":memory:" opens a private in-memory database.
func Open(path string) (*DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, domain.NewRepositoryError("open", "sqlite", "failed to create data directory", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, domain.NewRepositoryError("open", "sqlite", fmt.Sprintf("failed to open %s", path), err)
	}

	// an in-memory database exists per connection
	db.SetMaxOpenConns(1)

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, domain.NewRepositoryError("open", "sqlite", "failed to initialise schema", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		PRAGMA journal_mode = WAL;

		CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			updated_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS uploads (
			id TEXT PRIMARY KEY,
			filename TEXT NOT NULL,
			title TEXT NOT NULL,
			artist TEXT NOT NULL,
			album TEXT NOT NULL,
			content_type TEXT NOT NULL,
			size INTEGER NOT NULL,
			created_at INTEGER NOT NULL,
			data BLOB NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_uploads_created_at ON uploads(created_at);
	`)
	return err
}
