package store

import (
	"database/sql"
	"strings"

	"github.com/trawldev/trawl/internal/model"
)

// BookmarkFilter narrows a project's bookmark listing.
type BookmarkFilter struct {
	ProjectID  string
	Categories []model.Category
	Query      string // substring over the target message content
}

// BookmarkHit is one bookmark with the context of its target message.
// Orphaned bookmarks have no surviving message; their message fields are
// zero values.
type BookmarkHit struct {
	Bookmark     model.Bookmark
	Category     model.Category
	Content      string
	MessageAt    int64
	SessionTitle string
}

func (f BookmarkFilter) conditions(withCategories bool) (string, []any) {
	conds := []string{"b.project_id = ?"}
	args := []any{f.ProjectID}
	if withCategories && len(f.Categories) > 0 {
		conds = append(conds, "m.category IN ("+placeholders(len(f.Categories))+")")
		for _, c := range f.Categories {
			args = append(args, string(c))
		}
	}
	if f.Query != "" {
		conds = append(conds, "m.content LIKE ?")
		args = append(args, "%"+f.Query+"%")
	}
	return strings.Join(conds, " AND "), args
}

const bookmarkJoin = ` FROM bookmarks b
	LEFT JOIN messages m ON m.message_id = b.message_id AND b.is_orphaned = 0
	LEFT JOIN sessions s ON s.session_id = b.session_id
	WHERE `

// ListBookmarks returns a project's bookmarks matching the filter, newest
// first. An active category or text filter excludes orphaned bookmarks
// since they no longer have a message to match against.
func (s *Store) ListBookmarks(f BookmarkFilter) ([]BookmarkHit, error) {
	where, args := f.conditions(true)
	q := `SELECT b.bookmark_id, b.project_id, b.session_id, b.message_id, b.message_source_id,
		b.created_at, b.is_orphaned,
		COALESCE(m.category, ''), COALESCE(m.content, ''), COALESCE(m.created_at, 0),
		COALESCE(s.title, '')` + bookmarkJoin + where + ` ORDER BY b.created_at DESC, b.bookmark_id DESC`

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var hits []BookmarkHit
	for rows.Next() {
		var h BookmarkHit
		var orphaned int
		if err := rows.Scan(
			&h.Bookmark.ID, &h.Bookmark.ProjectID, &h.Bookmark.SessionID, &h.Bookmark.MessageID,
			&h.Bookmark.MessageSourceID, &h.Bookmark.CreatedAt, &orphaned,
			&h.Category, &h.Content, &h.MessageAt, &h.SessionTitle,
		); err != nil {
			return nil, err
		}
		h.Bookmark.IsOrphaned = orphaned != 0
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// CountBookmarks returns the project's bookmark counts: total, matching
// the filter, and orphaned. Orphans have no message row, so they sit
// outside the category histogram; total = sum(histogram) + orphaned when
// no text filter applies.
func (s *Store) CountBookmarks(f BookmarkFilter) (total, filtered, orphaned int, err error) {
	if err := s.db.QueryRow(
		"SELECT COUNT(*), COALESCE(SUM(is_orphaned), 0) FROM bookmarks WHERE project_id = ?", f.ProjectID,
	).Scan(&total, &orphaned); err != nil {
		return 0, 0, 0, err
	}
	where, args := f.conditions(true)
	if err := s.db.QueryRow("SELECT COUNT(*)"+bookmarkJoin+where, args...).Scan(&filtered); err != nil {
		return 0, 0, 0, err
	}
	return total, filtered, orphaned, nil
}

// BookmarkCategoryCounts returns the histogram for the filter with its
// category constraint ignored. Orphaned bookmarks carry no category and
// are not counted.
func (s *Store) BookmarkCategoryCounts(f BookmarkFilter) (map[model.Category]int, error) {
	where, args := f.conditions(false)
	rows, err := s.db.Query(
		"SELECT m.category, COUNT(*)"+bookmarkJoin+where+" AND m.category IS NOT NULL GROUP BY m.category",
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanHistogram(rows)
}

// ToggleBookmark pins the message identified by (sessionID, sourceID) or
// removes an existing pin. Returns whether the message is bookmarked
// after the call.
func (s *Store) ToggleBookmark(projectID, sessionID string, messageID int64, sourceID string) (bool, error) {
	var existing int64
	err := s.db.QueryRow(
		"SELECT bookmark_id FROM bookmarks WHERE session_id = ? AND message_source_id = ?",
		sessionID, sourceID,
	).Scan(&existing)
	switch {
	case err == sql.ErrNoRows:
		_, err := s.db.Exec(`INSERT INTO bookmarks
			(project_id, session_id, message_id, message_source_id, created_at, is_orphaned)
			VALUES (?, ?, ?, ?, ?, 0)`,
			projectID, sessionID, messageID, sourceID, nowMs(),
		)
		return err == nil, err
	case err != nil:
		return false, err
	default:
		_, err := s.db.Exec("DELETE FROM bookmarks WHERE bookmark_id = ?", existing)
		return false, err
	}
}

// GetMessage loads one message row by rowid or source id within a session.
func (s *Store) GetMessage(sessionID string, messageID int64, sourceID string) (model.Message, error) {
	target := "source_id = ?"
	arg := any(sourceID)
	if messageID > 0 {
		target = "message_id = ?"
		arg = messageID
	}
	rows, err := s.db.Query(`SELECT message_id, source_id, session_id, provider, category, content, created_at,
		token_input, token_output, op_duration_ms, op_duration_source, op_duration_confidence
		FROM messages WHERE session_id = ? AND `+target+` LIMIT 1`, sessionID, arg)
	if err != nil {
		return model.Message{}, err
	}
	defer func() { _ = rows.Close() }()

	msgs, err := scanMessages(rows)
	if err != nil {
		return model.Message{}, err
	}
	if len(msgs) == 0 {
		return model.Message{}, sql.ErrNoRows
	}
	return msgs[0], nil
}
