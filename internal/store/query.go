package store

import (
	"database/sql"
	"strings"

	"github.com/trawldev/trawl/internal/model"
)

// ProjectFilter narrows a project listing.
type ProjectFilter struct {
	Providers []model.Provider
	Query     string // substring over name and path
}

// ListProjects returns projects sorted by last activity, newest first.
func (s *Store) ListProjects(f ProjectFilter) ([]model.Project, error) {
	q := `SELECT project_id, provider, name, path, session_count, last_activity FROM projects`
	var conds []string
	var args []any
	if len(f.Providers) > 0 {
		conds = append(conds, "provider IN ("+placeholders(len(f.Providers))+")")
		for _, p := range f.Providers {
			args = append(args, string(p))
		}
	}
	if f.Query != "" {
		conds = append(conds, "(name LIKE ? OR path LIKE ?)")
		like := "%" + f.Query + "%"
		args = append(args, like, like)
	}
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY last_activity DESC, name ASC"

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var projects []model.Project
	for rows.Next() {
		var p model.Project
		if err := rows.Scan(&p.ID, &p.Provider, &p.Name, &p.Path, &p.SessionCount, &p.LastActivity); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// ListSessions returns one project's sessions, newest activity first.
func (s *Store) ListSessions(projectID string) ([]model.Session, error) {
	rows, err := s.db.Query(`SELECT
		session_id, project_id, provider, file_path, title, model_names,
		started_at, ended_at, duration_ms, git_branch, cwd, is_subagent,
		message_count, token_input, token_output
		FROM sessions WHERE project_id = ?
		ORDER BY ended_at DESC, session_id ASC`, projectID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var sessions []model.Session
	for rows.Next() {
		var sess model.Session
		var isSubagent int
		if err := rows.Scan(
			&sess.ID, &sess.ProjectID, &sess.Provider, &sess.FilePath, &sess.Title, &sess.ModelNames,
			&sess.StartedAt, &sess.EndedAt, &sess.DurationMs, &sess.GitBranch, &sess.Cwd, &isSubagent,
			&sess.MessageCount, &sess.TokenInput, &sess.TokenOutput,
		); err != nil {
			return nil, err
		}
		sess.IsSubagent = isSubagent != 0
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// GetSession loads one session by id.
func (s *Store) GetSession(sessionID string) (model.Session, error) {
	var sess model.Session
	var isSubagent int
	err := s.db.QueryRow(`SELECT
		session_id, project_id, provider, file_path, title, model_names,
		started_at, ended_at, duration_ms, git_branch, cwd, is_subagent,
		message_count, token_input, token_output
		FROM sessions WHERE session_id = ?`, sessionID).Scan(
		&sess.ID, &sess.ProjectID, &sess.Provider, &sess.FilePath, &sess.Title, &sess.ModelNames,
		&sess.StartedAt, &sess.EndedAt, &sess.DurationMs, &sess.GitBranch, &sess.Cwd, &isSubagent,
		&sess.MessageCount, &sess.TokenInput, &sess.TokenOutput,
	)
	if err != nil {
		return model.Session{}, err
	}
	sess.IsSubagent = isSubagent != 0
	return sess, nil
}

// MessageFilter narrows one session's message listing. Ordering is always
// created_at ascending with rowid as the tie-break.
type MessageFilter struct {
	SessionID  string
	Categories []model.Category
	Query      string // substring over content
	Limit      int
	Offset     int
}

func (f MessageFilter) conditions() (string, []any) {
	conds := []string{"session_id = ?"}
	args := []any{f.SessionID}
	if len(f.Categories) > 0 {
		conds = append(conds, "category IN ("+placeholders(len(f.Categories))+")")
		for _, c := range f.Categories {
			args = append(args, string(c))
		}
	}
	if f.Query != "" {
		conds = append(conds, "content LIKE ?")
		args = append(args, "%"+f.Query+"%")
	}
	return strings.Join(conds, " AND "), args
}

// ListMessages returns the page of messages matching the filter.
func (s *Store) ListMessages(f MessageFilter) ([]model.Message, error) {
	where, args := f.conditions()
	q := `SELECT message_id, source_id, session_id, provider, category, content, created_at,
		token_input, token_output, op_duration_ms, op_duration_source, op_duration_confidence
		FROM messages WHERE ` + where + ` ORDER BY created_at ASC, message_id ASC`
	if f.Limit > 0 {
		q += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanMessages(rows)
}

// CountMessages returns how many messages match the filter.
func (s *Store) CountMessages(f MessageFilter) (int, error) {
	where, args := f.conditions()
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM messages WHERE "+where, args...).Scan(&count)
	return count, err
}

// CategoryCounts returns the 7-key histogram for the filter with its
// category constraint ignored. Absent categories count zero.
func (s *Store) CategoryCounts(f MessageFilter) (map[model.Category]int, error) {
	f.Categories = nil
	where, args := f.conditions()
	rows, err := s.db.Query("SELECT category, COUNT(*) FROM messages WHERE "+where+" GROUP BY category", args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanHistogram(rows)
}

// MessagePosition returns the zero-based rank of a message under the
// filter's constraints and sort order. The target is located by rowid
// when messageID > 0, otherwise by source id. ok is false when the target
// does not match the filter.
func (s *Store) MessagePosition(f MessageFilter, messageID int64, sourceID string) (int, bool, error) {
	where, args := f.conditions()
	var target string
	if messageID > 0 {
		target = "message_id = ?"
		args = append(args, messageID)
	} else {
		target = "source_id = ?"
		args = append(args, sourceID)
	}

	var createdAt, rowID int64
	err := s.db.QueryRow(
		"SELECT created_at, message_id FROM messages WHERE "+where+" AND "+target+
			" ORDER BY created_at ASC, message_id ASC LIMIT 1",
		args...,
	).Scan(&createdAt, &rowID)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	where, args = f.conditions()
	args = append(args, createdAt, createdAt, rowID)
	var rank int
	err = s.db.QueryRow(
		"SELECT COUNT(*) FROM messages WHERE "+where+
			" AND (created_at < ? OR (created_at = ? AND message_id < ?))",
		args...,
	).Scan(&rank)
	if err != nil {
		return 0, false, err
	}
	return rank, true, nil
}

// SearchFilter narrows a cross-corpus full-text search.
type SearchFilter struct {
	Query        string
	Categories   []model.Category
	Providers    []model.Provider
	ProjectIDs   []string
	ProjectQuery string // substring over project name and path
	Limit        int
	Offset       int
}

// SearchHit is one full-text match with its display context.
type SearchHit struct {
	MessageID    int64
	SourceID     string
	SessionID    string
	Provider     model.Provider
	Category     model.Category
	CreatedAt    int64
	Snippet      string // matches delimited with literal <mark>…</mark>
	SessionTitle string
	ProjectID    string
	ProjectName  string
}

// searchConditions builds the shared WHERE tail for search queries. The
// category constraint is included only when withCategories is set, so the
// histogram can reuse the same filter without it.
func (f SearchFilter) conditions(withCategories bool) (string, []any) {
	conds := []string{"messages_fts MATCH ?"}
	args := []any{ftsQuery(f.Query)}
	if withCategories && len(f.Categories) > 0 {
		conds = append(conds, "m.category IN ("+placeholders(len(f.Categories))+")")
		for _, c := range f.Categories {
			args = append(args, string(c))
		}
	}
	if len(f.Providers) > 0 {
		conds = append(conds, "m.provider IN ("+placeholders(len(f.Providers))+")")
		for _, p := range f.Providers {
			args = append(args, string(p))
		}
	}
	if len(f.ProjectIDs) > 0 {
		conds = append(conds, "s.project_id IN ("+placeholders(len(f.ProjectIDs))+")")
		for _, id := range f.ProjectIDs {
			args = append(args, id)
		}
	}
	if f.ProjectQuery != "" {
		conds = append(conds, "(p.name LIKE ? OR p.path LIKE ?)")
		like := "%" + f.ProjectQuery + "%"
		args = append(args, like, like)
	}
	return strings.Join(conds, " AND "), args
}

const searchJoin = ` FROM messages_fts
	JOIN messages m ON m.message_id = messages_fts.message_id
	JOIN sessions s ON s.session_id = m.session_id
	JOIN projects p ON p.project_id = s.project_id
	WHERE `

// Search runs the full-text query and returns one page of hits.
func (s *Store) Search(f SearchFilter) ([]SearchHit, error) {
	where, args := f.conditions(true)
	q := `SELECT m.message_id, m.source_id, m.session_id, m.provider, m.category, m.created_at,
		snippet(messages_fts, 0, '<mark>', '</mark>', '…', 12),
		s.title, s.project_id, p.name` + searchJoin + where + ` ORDER BY rank LIMIT ? OFFSET ?`
	args = append(args, f.Limit, f.Offset)

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var hits []SearchHit
	for rows.Next() {
		var h SearchHit
		if err := rows.Scan(
			&h.MessageID, &h.SourceID, &h.SessionID, &h.Provider, &h.Category, &h.CreatedAt,
			&h.Snippet, &h.SessionTitle, &h.ProjectID, &h.ProjectName,
		); err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// SearchCount returns the total match count under the non-category
// constraints, so the histogram invariant holds against it.
func (s *Store) SearchCount(f SearchFilter) (int, error) {
	where, args := f.conditions(false)
	var count int
	err := s.db.QueryRow("SELECT COUNT(*)"+searchJoin+where, args...).Scan(&count)
	return count, err
}

// SearchCategoryCounts returns the histogram for the search with the
// category constraint ignored.
func (s *Store) SearchCategoryCounts(f SearchFilter) (map[model.Category]int, error) {
	where, args := f.conditions(false)
	rows, err := s.db.Query("SELECT m.category, COUNT(*)"+searchJoin+where+" GROUP BY m.category", args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanHistogram(rows)
}

func scanMessages(rows *sql.Rows) ([]model.Message, error) {
	var messages []model.Message
	for rows.Next() {
		var m model.Message
		var src, conf sql.NullString
		if err := rows.Scan(
			&m.ID, &m.SourceID, &m.SessionID, &m.Provider, &m.Category, &m.Content, &m.CreatedAt,
			&m.TokenInput, &m.TokenOutput, &m.DurationMs, &src, &conf,
		); err != nil {
			return nil, err
		}
		m.DurationSource = model.DurationSource(src.String)
		m.DurationConfidence = model.DurationConfidence(conf.String)
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func scanHistogram(rows *sql.Rows) (map[model.Category]int, error) {
	counts := make(map[model.Category]int, len(model.Categories()))
	for _, c := range model.Categories() {
		counts[c] = 0
	}
	for rows.Next() {
		var cat string
		var n int
		if err := rows.Scan(&cat, &n); err != nil {
			return nil, err
		}
		counts[model.Category(cat)] = n
	}
	return counts, rows.Err()
}

// ftsQuery turns free text into a safe FTS5 MATCH expression: each
// whitespace-separated term becomes a quoted phrase, implicitly ANDed.
func ftsQuery(query string) string {
	fields := strings.Fields(query)
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		terms = append(terms, `"`+strings.ReplaceAll(f, `"`, `""`)+`"`)
	}
	return strings.Join(terms, " ")
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
