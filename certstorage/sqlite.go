/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

package certstorage

import (
	"database/sql"
	"fmt"
	"os"

	// sqlite3 package merely needs the import side-effect.
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const driver = "sqlite3"

const createTable = `CREATE TABLE IF NOT EXISTS cert_storage (
	key BLOB PRIMARY KEY,
	value INTEGER
)`

const insertEntry = `INSERT OR REPLACE INTO cert_storage (key, value) VALUES (?, ?)`

const selectEntries = `SELECT key, value FROM cert_storage`

// SQLite is a cert_storage snapshot exported into a single "cert_storage" table
// of (key BLOB, value INTEGER) rows.
type SQLite struct {
	path string
	db   *sql.DB
}

// OpenSQLite opens an existing snapshot read only.
func OpenSQLite(path string) (*SQLite, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrapf(err, "cert_storage snapshot %s is not readable", path)
	}
	db, err := sql.Open(driver, fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open cert_storage snapshot %s", path)
	}
	return &SQLite{path: path, db: db}, nil
}

func (s *SQLite) Entries() ([]Entry, error) {
	rows, err := s.db.Query(selectEntries)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query cert_storage snapshot %s", s.path)
	}
	defer rows.Close()
	entries := make([]Entry, 0)
	for rows.Next() {
		var key []byte
		var value sql.NullInt64
		if err := rows.Scan(&key, &value); err != nil {
			return nil, errors.Wrapf(err, "failed to read cert_storage snapshot %s", s.path)
		}
		entry := Entry{Key: key}
		if value.Valid {
			v := value.Int64
			entry.Value = &v
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "failed to read cert_storage snapshot %s", s.path)
	}
	log.WithField("path", s.path).WithField("entries", len(entries)).Debug("read cert_storage snapshot")
	return entries, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

// WriteSQLite exports the given entries into the snapshot at path, creating it if necessary.
// All entries are written within a single transaction.
func WriteSQLite(path string, entries []Entry) (err error) {
	db, err := sql.Open(driver, path)
	if err != nil {
		return errors.Wrapf(err, "failed to open cert_storage snapshot %s", path)
	}
	defer db.Close()
	if _, err := db.Exec(createTable); err != nil {
		return errors.Wrap(err, "failed to create the cert_storage table")
	}
	transaction, err := db.Begin()
	if err != nil {
		return errors.WithStack(err)
	}
	defer func() {
		if err != nil {
			transaction.Rollback()
			return
		}
		err = errors.WithStack(transaction.Commit())
	}()
	stmt, err := transaction.Prepare(insertEntry)
	if err != nil {
		return errors.WithStack(err)
	}
	defer stmt.Close()
	for _, entry := range entries {
		var value interface{}
		if entry.Value != nil {
			value = *entry.Value
		}
		if _, err := stmt.Exec(entry.Key, value); err != nil {
			return errors.Wrapf(err, "failed to insert key %x", entry.Key)
		}
	}
	return nil
}
