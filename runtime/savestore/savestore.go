// Package savestore is a SQLite-backed implementation of runtime.FileStore
// (spec.md §6.3: the host-side persisted file collaborator behind the
// File* opcodes). No repo in the retrieval pack actually calls
// modernc.org/sqlite from Go source, so this package follows plain
// database/sql conventions rather than imitating a literal usage site; the
// dependency itself is grounded on ernie-trinity-tools's go.mod.
package savestore

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"
)

// DB is a runtime.FileStore backed by a single SQLite database. Blobs are
// packed int32 slices, stored as a comma-joined text column: spec.md §6.3's
// files never hold anything larger than a save-game's worth of values, so
// there is no reason to reach for a binary encoding.
type DB struct {
	sql *sql.DB
}

// Open opens (creating if necessary) the SQLite database at path and ensures
// its schema exists.
func Open(path string) (*DB, error) {
	sdb, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("savestore: open %s: %w", path, err)
	}
	db := &DB{sql: sdb}
	if err := db.migrate(); err != nil {
		sdb.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) migrate() error {
	_, err := db.sql.Exec(`
		CREATE TABLE IF NOT EXISTS files (
			game_id  TEXT NOT NULL,
			name     TEXT NOT NULL,
			blob     TEXT NOT NULL,
			PRIMARY KEY (game_id, name)
		)
	`)
	if err != nil {
		return fmt.Errorf("savestore: migrate: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (db *DB) Close() error { return db.sql.Close() }

// List returns every file name stored under gameID, in no particular order,
// matching the loose ordering original_source/runner's FileList opcode
// documents (spec.md §6.3 leaves List order unspecified).
func (db *DB) List(gameID string) ([]string, error) {
	rows, err := db.sql.Query(`SELECT name FROM files WHERE game_id = ?`, gameID)
	if err != nil {
		return nil, fmt.Errorf("savestore: list: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("savestore: list: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Get returns the blob stored under (gameID, name). A missing file is
// reported as a plain error, not a special sentinel: FileRead's caller
// (runtime/files.go) decides what a missing file means for that opcode.
func (db *DB) Get(gameID, name string) ([]int32, error) {
	var packed string
	err := db.sql.QueryRow(`SELECT blob FROM files WHERE game_id = ? AND name = ?`, gameID, name).Scan(&packed)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("savestore: no such file %q", name)
	}
	if err != nil {
		return nil, fmt.Errorf("savestore: get: %w", err)
	}
	return unpack(packed)
}

// Put writes blob under (gameID, name), overwriting any existing value.
func (db *DB) Put(gameID, name string, blob []int32) error {
	_, err := db.sql.Exec(`
		INSERT INTO files (game_id, name, blob) VALUES (?, ?, ?)
		ON CONFLICT (game_id, name) DO UPDATE SET blob = excluded.blob
	`, gameID, name, pack(blob))
	if err != nil {
		return fmt.Errorf("savestore: put: %w", err)
	}
	return nil
}

// Delete removes (gameID, name). Deleting a file that doesn't exist is not
// an error, matching FileDelete's idempotent semantics (spec.md §6.3).
func (db *DB) Delete(gameID, name string) error {
	_, err := db.sql.Exec(`DELETE FROM files WHERE game_id = ? AND name = ?`, gameID, name)
	if err != nil {
		return fmt.Errorf("savestore: delete: %w", err)
	}
	return nil
}

func pack(vals []int32) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.FormatInt(int64(v), 10)
	}
	return strings.Join(parts, ",")
}

func unpack(packed string) ([]int32, error) {
	if packed == "" {
		return nil, nil
	}
	parts := strings.Split(packed, ",")
	vals := make([]int32, len(parts))
	for i, p := range parts {
		n, err := strconv.ParseInt(p, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("savestore: corrupt blob: %w", err)
		}
		vals[i] = int32(n)
	}
	return vals, nil
}
