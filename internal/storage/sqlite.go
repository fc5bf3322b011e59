package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/config"
	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/playback"
)

type SQLiteStorage struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStorage{db: db, now: time.Now}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *SQLiteStorage) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL UNIQUE,
		media_kind TEXT NOT NULL,
		state_json TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// SaveSession inserts or replaces the session of sess.Source and fills in
// its ID and UpdatedAt.
func (s *SQLiteStorage) SaveSession(sess *Session) error {
	if sess.Source == "" {
		return errors.New("session has no source")
	}
	if sess.State == nil {
		return errors.New("session has no state")
	}

	stateJSON, err := json.Marshal(sess.State)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	sess.UpdatedAt = s.now().UTC()

	row := s.db.QueryRow(`
		INSERT INTO sessions (id, source, media_kind, state_json, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(source) DO UPDATE SET
			media_kind = excluded.media_kind,
			state_json = excluded.state_json,
			updated_at = excluded.updated_at
		RETURNING id
	`, sess.ID, sess.Source, sess.MediaKind.String(), string(stateJSON), sess.UpdatedAt.UnixNano())

	return row.Scan(&sess.ID)
}

// GetSession returns nil when source has no saved session.
func (s *SQLiteStorage) GetSession(source string) (*Session, error) {
	row := s.db.QueryRow(`
		SELECT id, source, media_kind, state_json, updated_at
		FROM sessions WHERE source = ?
	`, source)

	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// ListRecent returns the most recently saved sessions first.
func (s *SQLiteStorage) ListRecent(limit int) ([]Session, error) {
	rows, err := s.db.Query(`
		SELECT id, source, media_kind, state_json, updated_at
		FROM sessions ORDER BY updated_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *sess)
	}

	return sessions, rows.Err()
}

func (s *SQLiteStorage) DeleteSession(source string) error {
	_, err := s.db.Exec("DELETE FROM sessions WHERE source = ?", source)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*Session, error) {
	var (
		sess      Session
		kind      string
		stateJSON string
		updatedAt int64
	)
	if err := row.Scan(&sess.ID, &sess.Source, &kind, &stateJSON, &updatedAt); err != nil {
		return nil, err
	}

	mediaKind, err := config.ParseMediaKind(kind)
	if err != nil {
		return nil, err
	}
	sess.MediaKind = mediaKind

	sess.State = &playback.State{}
	if err := json.Unmarshal([]byte(stateJSON), sess.State); err != nil {
		return nil, fmt.Errorf("decode state of %s: %w", sess.Source, err)
	}
	sess.UpdatedAt = time.Unix(0, updatedAt).UTC()

	return &sess, nil
}
