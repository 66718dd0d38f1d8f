// Package store is the SQLite-backed index: schema bootstrap, per-file
// write transactions, and the read queries the query layer composes.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/trawldev/trawl/internal/model"

	_ "modernc.org/sqlite" // register sqlite driver
)

// Store wraps the index database. Reads may run concurrently with an
// in-progress index write; WAL journaling keeps readers on the last
// committed per-file transaction.
type Store struct {
	db *sql.DB
}

// Open opens or creates the index database at the given path. Bootstrap is
// idempotent; a stored schema version that differs from the code's version
// drops all data tables (bookmarks included) and recreates them empty.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating index dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("opening index db: %w", err)
	}

	s := &Store{db: db}
	if err := s.bootstrap(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) bootstrap() error {
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	var stored string
	err := s.db.QueryRow("SELECT value FROM meta WHERE key = 'schema_version'").Scan(&stored)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("reading schema version: %w", err)
	}
	if stored == schemaVersion {
		return nil
	}
	if stored != "" {
		// Version mismatch: rebuild from scratch rather than migrating.
		if _, err := s.db.Exec(dropSQL); err != nil {
			return fmt.Errorf("dropping stale schema: %w", err)
		}
		if _, err := s.db.Exec(schemaSQL); err != nil {
			return fmt.Errorf("recreating schema: %w", err)
		}
	}
	if _, err := s.db.Exec(
		"INSERT OR REPLACE INTO meta (key, value) VALUES ('schema_version', ?)", schemaVersion,
	); err != nil {
		return fmt.Errorf("writing schema version: %w", err)
	}
	return nil
}

// Close closes the index database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Fingerprint is the change-detection state tracked per indexed file.
// IndexedAt records when the file was last written to the index; change
// detection compares size and mtime only.
type Fingerprint struct {
	SizeBytes int64
	MtimeMs   int64
	IndexedAt int64
}

// TrackedFiles returns file_path -> Fingerprint for every indexed file.
func (s *Store) TrackedFiles() (map[string]Fingerprint, error) {
	rows, err := s.db.Query("SELECT file_path, size_bytes, mtime_ms, indexed_at FROM indexed_files")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	result := make(map[string]Fingerprint)
	for rows.Next() {
		var path string
		var fp Fingerprint
		if err := rows.Scan(&path, &fp.SizeBytes, &fp.MtimeMs, &fp.IndexedAt); err != nil {
			return nil, err
		}
		result[path] = fp
	}
	return result, rows.Err()
}

// FileData is everything one parsed transcript file contributes to the
// index.
type FileData struct {
	Project  model.Project
	Session  model.Session
	Messages []model.Message
}

// ReplaceFile atomically swaps all rows derived from one file: prior
// session, messages, tool calls and FTS rows go, fresh ones come in, the
// fingerprint is upserted. Bookmarks pointing at replaced messages are
// orphaned, then re-adopted when a message with the same source id
// reappears.
func (s *Store) ReplaceFile(data FileData, fp Fingerprint) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := deleteDerivedRows(tx, data.Session.FilePath); err != nil {
		return err
	}

	p := data.Project
	if _, err := tx.Exec(`INSERT INTO projects (project_id, provider, name, path)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(project_id) DO UPDATE SET name = excluded.name, path = excluded.path`,
		p.ID, p.Provider, p.Name, p.Path,
	); err != nil {
		return err
	}

	sess := data.Session
	if _, err := tx.Exec(`INSERT INTO sessions
		(session_id, project_id, provider, file_path, title, model_names,
		 started_at, ended_at, duration_ms, git_branch, cwd, is_subagent,
		 message_count, token_input, token_output)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.ProjectID, sess.Provider, sess.FilePath, sess.Title, sess.ModelNames,
		sess.StartedAt, sess.EndedAt, sess.DurationMs, sess.GitBranch, sess.Cwd, boolInt(sess.IsSubagent),
		len(data.Messages), sess.TokenInput, sess.TokenOutput,
	); err != nil {
		return err
	}

	for _, m := range data.Messages {
		res, err := tx.Exec(`INSERT INTO messages
			(source_id, session_id, provider, category, content, created_at,
			 token_input, token_output, op_duration_ms, op_duration_source, op_duration_confidence)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			m.SourceID, m.SessionID, m.Provider, m.Category, m.Content, m.CreatedAt,
			m.TokenInput, m.TokenOutput, m.DurationMs,
			nullString(string(m.DurationSource)), nullString(string(m.DurationConfidence)),
		)
		if err != nil {
			return err
		}
		msgID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		if m.ToolCall != nil {
			tc := m.ToolCall
			if _, err := tx.Exec(`INSERT INTO tool_calls (message_id, name, input, result, duration_ms)
				VALUES (?, ?, ?, ?, ?)`,
				msgID, tc.Name, tc.Input, tc.Result, tc.DurationMs,
			); err != nil {
				return err
			}
		}
		if _, err := tx.Exec(`INSERT INTO messages_fts (content, message_id, session_id, provider, category)
			VALUES (?, ?, ?, ?, ?)`,
			m.Content, msgID, m.SessionID, m.Provider, m.Category,
		); err != nil {
			return err
		}
	}

	// Re-adopt orphaned bookmarks whose target message came back under the
	// same source id.
	if _, err := tx.Exec(`UPDATE bookmarks SET
		message_id = (SELECT m.message_id FROM messages m
			WHERE m.session_id = bookmarks.session_id AND m.source_id = bookmarks.message_source_id),
		is_orphaned = 0
		WHERE session_id = ? AND EXISTS (SELECT 1 FROM messages m
			WHERE m.session_id = bookmarks.session_id AND m.source_id = bookmarks.message_source_id)`,
		sess.ID,
	); err != nil {
		return err
	}

	if _, err := tx.Exec(`INSERT OR REPLACE INTO indexed_files (file_path, size_bytes, mtime_ms, indexed_at)
		VALUES (?, ?, ?, ?)`, sess.FilePath, fp.SizeBytes, fp.MtimeMs, nowMs(),
	); err != nil {
		return err
	}

	return tx.Commit()
}

// RemoveFile purges everything derived from a vanished file and drops its
// fingerprint. Bookmarks are orphaned, never deleted.
func (s *Store) RemoveFile(filePath string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := deleteDerivedRows(tx, filePath); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM indexed_files WHERE file_path = ?", filePath); err != nil {
		return err
	}
	return tx.Commit()
}

// deleteDerivedRows removes the session mapped to filePath along with its
// messages, tool calls and FTS rows, flipping its bookmarks to orphaned.
// Messages and tool calls go via FK cascade; the FTS mirror has no FK and
// is cleared explicitly.
func deleteDerivedRows(tx *sql.Tx, filePath string) error {
	var sessionID string
	err := tx.QueryRow("SELECT session_id FROM sessions WHERE file_path = ?", filePath).Scan(&sessionID)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return err
	}

	if _, err := tx.Exec("UPDATE bookmarks SET is_orphaned = 1 WHERE session_id = ?", sessionID); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM messages_fts WHERE session_id = ?", sessionID); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM sessions WHERE session_id = ?", sessionID); err != nil {
		return err
	}
	return nil
}

// RecomputeAggregates rebuilds the denormalized session and project
// rollups from the now-current message rows and purges projects left
// without sessions.
func (s *Store) RecomputeAggregates() error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`UPDATE sessions SET
		message_count = (SELECT COUNT(*) FROM messages m WHERE m.session_id = sessions.session_id),
		token_input   = (SELECT COALESCE(SUM(m.token_input), 0) FROM messages m WHERE m.session_id = sessions.session_id),
		token_output  = (SELECT COALESCE(SUM(m.token_output), 0) FROM messages m WHERE m.session_id = sessions.session_id)`,
	); err != nil {
		return err
	}

	if _, err := tx.Exec(`UPDATE projects SET
		session_count = (SELECT COUNT(*) FROM sessions s WHERE s.project_id = projects.project_id),
		last_activity = (SELECT COALESCE(MAX(s.ended_at), 0) FROM sessions s WHERE s.project_id = projects.project_id)`,
	); err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM projects
		WHERE NOT EXISTS (SELECT 1 FROM sessions s WHERE s.project_id = projects.project_id)`,
	); err != nil {
		return err
	}

	return tx.Commit()
}

// SessionCount returns the number of indexed sessions.
func (s *Store) SessionCount() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM sessions").Scan(&count)
	return count, err
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nowMs() int64 {
	return time.Now().UnixMilli()
}
