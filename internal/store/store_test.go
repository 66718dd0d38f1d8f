package store

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trawldev/trawl/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testFileData(sessionID, filePath string, messages []model.Message) FileData {
	for i := range messages {
		messages[i].SessionID = sessionID
		messages[i].Provider = model.ProviderClaude
	}
	return FileData{
		Project: model.Project{ID: "proj-1", Provider: model.ProviderClaude, Name: "app", Path: "/home/me/app"},
		Session: model.Session{
			ID:        sessionID,
			ProjectID: "proj-1",
			Provider:  model.ProviderClaude,
			FilePath:  filePath,
			Title:     "test session",
			StartedAt: 1000,
			EndedAt:   5000,
		},
		Messages: messages,
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	count, err := s.SessionCount()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestSchemaVersionMismatchRebuilds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.ReplaceFile(testFileData("claude:s1", "/f/s1.jsonl", []model.Message{
		{SourceID: "m1", Category: model.CategoryUser, Content: "hello", CreatedAt: 1000},
	}), Fingerprint{SizeBytes: 10, MtimeMs: 1}))

	_, err = s.db.Exec("UPDATE meta SET value = '0' WHERE key = 'schema_version'")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	count, err := s.SessionCount()
	require.NoError(t, err)
	assert.Equal(t, 0, count, "mismatch drops all data")

	tracked, err := s.TrackedFiles()
	require.NoError(t, err)
	assert.Empty(t, tracked)
}

func TestReplaceFileSwapsRows(t *testing.T) {
	s := openTestStore(t)

	data := testFileData("claude:s1", "/f/s1.jsonl", []model.Message{
		{SourceID: "m1", Category: model.CategoryUser, Content: "first version", CreatedAt: 1000},
		{SourceID: "m2", Category: model.CategoryAssistant, Content: "reply", CreatedAt: 2000},
	})
	require.NoError(t, s.ReplaceFile(data, Fingerprint{SizeBytes: 10, MtimeMs: 1}))

	data = testFileData("claude:s1", "/f/s1.jsonl", []model.Message{
		{SourceID: "m1", Category: model.CategoryUser, Content: "second version", CreatedAt: 1000},
	})
	require.NoError(t, s.ReplaceFile(data, Fingerprint{SizeBytes: 20, MtimeMs: 2}))

	msgs, err := s.ListMessages(MessageFilter{SessionID: "claude:s1"})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "second version", msgs[0].Content)

	tracked, err := s.TrackedFiles()
	require.NoError(t, err)
	fp := tracked["/f/s1.jsonl"]
	assert.Equal(t, int64(20), fp.SizeBytes)
	assert.Equal(t, int64(2), fp.MtimeMs)
	assert.Positive(t, fp.IndexedAt, "index time recorded on every write")

	// The FTS mirror follows the swap.
	hits, err := s.Search(SearchFilter{Query: "version", Limit: 10})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Contains(t, hits[0].Snippet, "<mark>version</mark>")
}

func TestRemoveFileOrphansBookmarks(t *testing.T) {
	s := openTestStore(t)

	data := testFileData("claude:s1", "/f/s1.jsonl", []model.Message{
		{SourceID: "m1", Category: model.CategoryUser, Content: "keep me", CreatedAt: 1000},
	})
	require.NoError(t, s.ReplaceFile(data, Fingerprint{SizeBytes: 10, MtimeMs: 1}))

	msgs, err := s.ListMessages(MessageFilter{SessionID: "claude:s1"})
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	on, err := s.ToggleBookmark("proj-1", "claude:s1", msgs[0].ID, "m1")
	require.NoError(t, err)
	assert.True(t, on)

	require.NoError(t, s.RemoveFile("/f/s1.jsonl"))

	count, err := s.SessionCount()
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	hits, err := s.ListBookmarks(BookmarkFilter{ProjectID: "proj-1"})
	require.NoError(t, err)
	require.Len(t, hits, 1, "bookmarks survive deletion")
	assert.True(t, hits[0].Bookmark.IsOrphaned)

	// Orphans fall outside the category histogram; the orphan count
	// accounts for the gap.
	total, _, orphaned, err := s.CountBookmarks(BookmarkFilter{ProjectID: "proj-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, 1, orphaned)
	counts, err := s.BookmarkCategoryCounts(BookmarkFilter{ProjectID: "proj-1"})
	require.NoError(t, err)
	sum := 0
	for _, c := range counts {
		sum += c
	}
	assert.Equal(t, total, sum+orphaned)

	// FTS rows are gone too.
	n, err := s.SearchCount(SearchFilter{Query: "keep"})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestReplaceFileReadoptsBookmarks(t *testing.T) {
	s := openTestStore(t)

	data := testFileData("claude:s1", "/f/s1.jsonl", []model.Message{
		{SourceID: "m1", Category: model.CategoryUser, Content: "pinned", CreatedAt: 1000},
	})
	require.NoError(t, s.ReplaceFile(data, Fingerprint{SizeBytes: 10, MtimeMs: 1}))

	msgs, err := s.ListMessages(MessageFilter{SessionID: "claude:s1"})
	require.NoError(t, err)
	_, err = s.ToggleBookmark("proj-1", "claude:s1", msgs[0].ID, "m1")
	require.NoError(t, err)

	// Reindex the same file; the message keeps its source id.
	data = testFileData("claude:s1", "/f/s1.jsonl", []model.Message{
		{SourceID: "m1", Category: model.CategoryUser, Content: "pinned", CreatedAt: 1000},
		{SourceID: "m2", Category: model.CategoryAssistant, Content: "new", CreatedAt: 2000},
	})
	require.NoError(t, s.ReplaceFile(data, Fingerprint{SizeBytes: 20, MtimeMs: 2}))

	hits, err := s.ListBookmarks(BookmarkFilter{ProjectID: "proj-1"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.False(t, hits[0].Bookmark.IsOrphaned)
	assert.Equal(t, "pinned", hits[0].Content)
}

func TestToggleBookmarkOnOff(t *testing.T) {
	s := openTestStore(t)
	data := testFileData("claude:s1", "/f/s1.jsonl", []model.Message{
		{SourceID: "m1", Category: model.CategoryUser, Content: "x", CreatedAt: 1000},
	})
	require.NoError(t, s.ReplaceFile(data, Fingerprint{}))

	on, err := s.ToggleBookmark("proj-1", "claude:s1", 1, "m1")
	require.NoError(t, err)
	assert.True(t, on)

	on, err = s.ToggleBookmark("proj-1", "claude:s1", 1, "m1")
	require.NoError(t, err)
	assert.False(t, on)

	total, filtered, orphaned, err := s.CountBookmarks(BookmarkFilter{ProjectID: "proj-1"})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Zero(t, filtered)
	assert.Zero(t, orphaned)
}

func TestCategoryCountsHistogram(t *testing.T) {
	s := openTestStore(t)
	data := testFileData("claude:s1", "/f/s1.jsonl", []model.Message{
		{SourceID: "m1", Category: model.CategoryUser, Content: "a", CreatedAt: 1},
		{SourceID: "m2", Category: model.CategoryAssistant, Content: "b", CreatedAt: 2},
		{SourceID: "m3", Category: model.CategoryAssistant, Content: "c", CreatedAt: 3},
		{SourceID: "m4", Category: model.CategoryToolUse, Content: "d", CreatedAt: 4},
	})
	require.NoError(t, s.ReplaceFile(data, Fingerprint{}))

	// Histogram ignores the category constraint and covers all 7 keys.
	counts, err := s.CategoryCounts(MessageFilter{
		SessionID:  "claude:s1",
		Categories: []model.Category{model.CategoryUser},
	})
	require.NoError(t, err)
	assert.Len(t, counts, len(model.Categories()))
	assert.Equal(t, 1, counts[model.CategoryUser])
	assert.Equal(t, 2, counts[model.CategoryAssistant])
	assert.Equal(t, 0, counts[model.CategoryThinking])

	total, err := s.CountMessages(MessageFilter{SessionID: "claude:s1"})
	require.NoError(t, err)
	sum := 0
	for _, n := range counts {
		sum += n
	}
	assert.Equal(t, total, sum)
}

func TestMessagePosition(t *testing.T) {
	s := openTestStore(t)
	data := testFileData("claude:s1", "/f/s1.jsonl", []model.Message{
		{SourceID: "m1", Category: model.CategoryUser, Content: "a", CreatedAt: 1},
		{SourceID: "m2", Category: model.CategoryAssistant, Content: "b", CreatedAt: 2},
		{SourceID: "m3", Category: model.CategoryUser, Content: "c", CreatedAt: 3},
	})
	require.NoError(t, s.ReplaceFile(data, Fingerprint{}))

	rank, ok, err := s.MessagePosition(MessageFilter{SessionID: "claude:s1"}, 0, "m3")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, rank)

	// Under a category filter the rank shifts.
	rank, ok, err = s.MessagePosition(MessageFilter{
		SessionID:  "claude:s1",
		Categories: []model.Category{model.CategoryUser},
	}, 0, "m3")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, rank)

	// A target excluded by the filter does not resolve.
	_, ok, err = s.MessagePosition(MessageFilter{
		SessionID:  "claude:s1",
		Categories: []model.Category{model.CategoryUser},
	}, 0, "m2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSearchFilters(t *testing.T) {
	s := openTestStore(t)
	data := testFileData("claude:s1", "/f/s1.jsonl", []model.Message{
		{SourceID: "m1", Category: model.CategoryUser, Content: "deploy the webserver", CreatedAt: 1},
		{SourceID: "m2", Category: model.CategoryAssistant, Content: "webserver restarted", CreatedAt: 2},
	})
	require.NoError(t, s.ReplaceFile(data, Fingerprint{}))

	hits, err := s.Search(SearchFilter{Query: "webserver", Limit: 10})
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	hits, err = s.Search(SearchFilter{
		Query:      "webserver",
		Categories: []model.Category{model.CategoryUser},
		Limit:      10,
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "m1", hits[0].SourceID)
	assert.True(t, strings.Contains(hits[0].Snippet, "<mark>webserver</mark>"))

	// Count and histogram ignore the category constraint.
	n, err := s.SearchCount(SearchFilter{Query: "webserver", Categories: []model.Category{model.CategoryUser}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	counts, err := s.SearchCategoryCounts(SearchFilter{Query: "webserver"})
	require.NoError(t, err)
	assert.Equal(t, 1, counts[model.CategoryUser])
	assert.Equal(t, 1, counts[model.CategoryAssistant])
}

func TestRecomputeAggregates(t *testing.T) {
	s := openTestStore(t)
	in := int64(10)
	out := int64(5)
	data := testFileData("claude:s1", "/f/s1.jsonl", []model.Message{
		{SourceID: "m1", Category: model.CategoryUser, Content: "a", CreatedAt: 1, TokenInput: &in},
		{SourceID: "m2", Category: model.CategoryAssistant, Content: "b", CreatedAt: 2, TokenOutput: &out},
	})
	require.NoError(t, s.ReplaceFile(data, Fingerprint{}))
	require.NoError(t, s.RecomputeAggregates())

	projects, err := s.ListProjects(ProjectFilter{})
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, 1, projects[0].SessionCount)
	assert.Equal(t, int64(5000), projects[0].LastActivity)

	sess, err := s.GetSession("claude:s1")
	require.NoError(t, err)
	assert.Equal(t, 2, sess.MessageCount)
	assert.Equal(t, int64(10), sess.TokenInput)
	assert.Equal(t, int64(5), sess.TokenOutput)

	// Removing the only session purges the project on the next recompute.
	require.NoError(t, s.RemoveFile("/f/s1.jsonl"))
	require.NoError(t, s.RecomputeAggregates())
	projects, err = s.ListProjects(ProjectFilter{})
	require.NoError(t, err)
	assert.Empty(t, projects)
}

func TestListProjectsFilters(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.ReplaceFile(testFileData("claude:s1", "/f/s1.jsonl", []model.Message{
		{SourceID: "m1", Category: model.CategoryUser, Content: "a", CreatedAt: 1},
	}), Fingerprint{}))
	require.NoError(t, s.RecomputeAggregates())

	projects, err := s.ListProjects(ProjectFilter{Providers: []model.Provider{model.ProviderCodex}})
	require.NoError(t, err)
	assert.Empty(t, projects)

	projects, err = s.ListProjects(ProjectFilter{Query: "app"})
	require.NoError(t, err)
	assert.Len(t, projects, 1)
}
