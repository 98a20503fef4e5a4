package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"
	_ "modernc.org/sqlite" // driver: sqlite
)

const schema = `
CREATE TABLE IF NOT EXISTS persisted_sessions (
  owner TEXT PRIMARY KEY,
  session_id TEXT NOT NULL,
  updated_at INTEGER NOT NULL
);
`

// Open opens (creating if needed) the sqlite file at path and ensures the schema exists.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	dsn := "file:" + path + "?mode=rwc&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "open sqlite")
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, pkgerrors.Wrap(err, "ping sqlite")
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, pkgerrors.Wrap(err, "ensure sqlite schema")
	}
	return db, nil
}

// SessionStore keeps the persisted session id of one player in a local sqlite
// file, so a restarted terminal host resumes where it left off.
type SessionStore struct {
	db    *sql.DB
	owner string
	clock func() time.Time
}

func NewSessionStore(db *sql.DB, owner string) *SessionStore {
	if owner == "" {
		owner = "default"
	}
	return &SessionStore{db: db, owner: owner, clock: time.Now}
}

func (s *SessionStore) Get(ctx context.Context) (string, bool, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT session_id FROM persisted_sessions WHERE owner = ?`, s.owner).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, pkgerrors.Wrap(err, "read persisted session")
	}
	return id, id != "", nil
}

func (s *SessionStore) Set(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO persisted_sessions (owner, session_id, updated_at) VALUES (?, ?, ?)
ON CONFLICT(owner) DO UPDATE SET session_id = excluded.session_id, updated_at = excluded.updated_at`,
		s.owner, sessionID, s.clock().Unix())
	return pkgerrors.Wrap(err, "write persisted session")
}

func (s *SessionStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM persisted_sessions WHERE owner = ?`, s.owner)
	return pkgerrors.Wrap(err, "clear persisted session")
}
