package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `CREATE TABLE IF NOT EXISTS snapshots (
	name    TEXT PRIMARY KEY,
	stamp   INTEGER NOT NULL,
	digest  BLOB NOT NULL,
	payload BLOB NOT NULL
)`

// Store keeps named snapshots in a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Save stores snap under name, replacing a snapshot of the same name.
func (s *Store) Save(ctx context.Context, name string, snap *Snapshot) error {
	payload, err := Encode(snap)
	if err != nil {
		return err
	}
	digest := Digest(payload)
	_, err = s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO snapshots (name, stamp, digest, payload) VALUES (?, ?, ?, ?)",
		name, int64(snap.Stamp), digest[:], payload)
	return err
}

// Load returns the snapshot stored under name. The stored digest is checked
// before the payload is decoded.
func (s *Store) Load(ctx context.Context, name string) (*Snapshot, error) {
	var digest, payload []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT digest, payload FROM snapshots WHERE name = ?", name).Scan(&digest, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err != nil {
		return nil, err
	}

	if sum := Digest(payload); string(sum[:]) != string(digest) {
		return nil, fmt.Errorf("%w: digest mismatch for %q", ErrCorrupt, name)
	}
	return Decode(payload)
}

// Delete removes the snapshot stored under name.
func (s *Store) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM snapshots WHERE name = ?", name)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return nil
}

// Names returns the stored snapshot names in order.
func (s *Store) Names(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM snapshots ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
