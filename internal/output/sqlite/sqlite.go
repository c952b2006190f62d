package outputsqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/MuchTitan/logtail/internal"
	"github.com/MuchTitan/logtail/internal/database"
	"github.com/MuchTitan/logtail/internal/util"
	"github.com/sirupsen/logrus"
)

const recordsSchema = `CREATE TABLE IF NOT EXISTS records (
	id TEXT PRIMARY KEY,
	event_time INTEGER NOT NULL,
	tag TEXT NOT NULL,
	host TEXT,
	input TEXT,
	source_file TEXT NOT NULL,
	source_path TEXT,
	offset_after INTEGER NOT NULL,
	payload BLOB NOT NULL
)`

const recordsIndex = `CREATE INDEX IF NOT EXISTS records_source_time ON records (source_path, event_time)`

// SQLite archives every matching record into a local sqlite database.
type SQLite struct {
	name  string
	match string
	db    *database.DBManager
}

func (s *SQLite) Name() string {
	return s.name
}

func (s *SQLite) MatchTag(inputTag string) bool {
	return util.TagMatch(inputTag, s.match)
}

func (s *SQLite) Init(config map[string]any) error {
	s.name = util.MustString(config["Name"])
	if s.name == "" {
		s.name = "sqlite"
	}

	s.match = util.MustString(config["Match"])
	if s.match == "" {
		s.match = "*"
	}

	path := util.MustString(config["Path"])
	if path == "" {
		return errors.New("sqlite output needs a Path")
	}

	db, err := database.NewDBManager(path)
	if err != nil {
		return err
	}
	if err := db.Migrate(recordsSchema, recordsIndex); err != nil {
		db.Close()
		return err
	}
	s.db = db

	logrus.WithFields(logrus.Fields{
		"output": s.name,
		"file":   db.Path(),
	}).Info("archiving records to sqlite")
	return nil
}

func (s *SQLite) Write(events []internal.Event) error {
	written := 0
	err := s.db.ExecuteWriteTx(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO records
			(id, event_time, tag, host, input, source_file, source_path, offset_after, payload)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, event := range events {
			if !s.MatchTag(event.Metadata.Tag) {
				continue
			}
			_, err := stmt.Exec(
				event.ID,
				event.Record.EventTime,
				event.Metadata.Tag,
				event.Metadata.Host,
				event.Metadata.InputSource,
				event.Record.SourceFileName,
				event.Record.SourcePath,
				event.Record.OffsetAfter,
				event.Record.Payload,
			)
			if err != nil {
				return fmt.Errorf("could not insert record %s: %w", event.ID, err)
			}
			written++
		}
		return nil
	})
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"output":  s.name,
		"records": written,
	}).Trace("archived records")
	return nil
}

// Count returns the number of archived records.
func (s *SQLite) Count() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM records`).Scan(&count)
	return count, err
}

func (s *SQLite) Flush() error {
	return nil
}

func (s *SQLite) Exit() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
