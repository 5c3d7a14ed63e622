package db

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Open opens (or creates) the SQLite database at path and brings the schema
// up to date.
func Open(path string) (*sql.DB, error) {
	// _foreign_keys in the DSN so every pooled connection enforces them.
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(2 * time.Hour)

	if err = Migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
