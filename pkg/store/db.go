package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver
)

// CurrentSchemaVersion defines the current schema version for migration support.
const CurrentSchemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS reports (
	id TEXT PRIMARY KEY,
	ticker TEXT NOT NULL,
	company_name TEXT,
	mode TEXT NOT NULL,
	created_at TEXT NOT NULL,
	summary TEXT,
	preview TEXT,
	report_markdown TEXT NOT NULL,
	markdown_path TEXT,
	pdf_path TEXT
);

CREATE TABLE IF NOT EXISTS report_chunks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	report_id TEXT NOT NULL,
	chunk_index INTEGER NOT NULL,
	content TEXT NOT NULL,
	embedding TEXT NOT NULL,
	FOREIGN KEY (report_id) REFERENCES reports(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_report_chunks_report_id ON report_chunks(report_id);
`

// OpenDatabase opens (creating if needed) the SQLite database with WAL mode,
// foreign keys, and a busy timeout, then ensures the schema is current.
// SQLite supports a single writer, so the pool is capped at one connection;
// this also serializes report+chunk inserts per the store's write contract.
func OpenDatabase(dbPath string) (*sql.DB, error) {
	dsn := fmt.Sprintf(
		"file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)",
		dbPath,
	)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := initializeSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return db, nil
}

// initializeSchema ensures the database schema is at the current version.
func initializeSchema(db *sql.DB) error {
	version, err := schemaVersion(db)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	if version == 0 {
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
		return setSchemaVersion(db, CurrentSchemaVersion)
	}

	if version == CurrentSchemaVersion {
		return nil
	}

	return fmt.Errorf("database schema version %d is newer than supported version %d", version, CurrentSchemaVersion)
}

func schemaVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, err
	}
	return version, nil
}

func setSchemaVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", version))
	return err
}
