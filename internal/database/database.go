package database

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// DBManager serializes writes to a single sqlite connection.
type DBManager struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// NewDBManager opens (creating if needed) the sqlite database at dbPath.
func NewDBManager(dbPath string) (*DBManager, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("no sqlite3 database path given")
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("could not open sqlite3 database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not open sqlite3 database: %w", err)
	}

	logrus.WithField("file", dbPath).Debug("Opening Sqlite3 database.")

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &DBManager{
		db:   db,
		path: dbPath,
	}, nil
}

func (dm *DBManager) Path() string {
	return dm.path
}

// Migrate runs the given schema statements in one transaction. Statements
// are expected to be idempotent (CREATE ... IF NOT EXISTS).
func (dm *DBManager) Migrate(statements ...string) error {
	return dm.ExecuteWriteTx(func(tx *sql.Tx) error {
		for _, stmt := range statements {
			if _, err := tx.Exec(stmt); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
		}
		return nil
	})
}

// ExecuteWrite performs a write operation safely
func (dm *DBManager) ExecuteWrite(query string, args ...any) (sql.Result, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	return dm.db.Exec(query, args...)
}

// ExecuteWriteTx performs multiple write operations in a single transaction
func (dm *DBManager) ExecuteWriteTx(fn func(*sql.Tx) error) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	tx, err := dm.db.Begin()
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

func (dm *DBManager) QueryRow(query string, args ...any) *sql.Row {
	return dm.db.QueryRow(query, args...)
}

func (dm *DBManager) Query(query string, args ...any) (*sql.Rows, error) {
	return dm.db.Query(query, args...)
}

func (dm *DBManager) Close() error {
	return dm.db.Close()
}
