package indexer

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trawldev/trawl/internal/config"
	"github.com/trawldev/trawl/internal/discover"
	"github.com/trawldev/trawl/internal/fsys"
	"github.com/trawldev/trawl/internal/model"
	"github.com/trawldev/trawl/internal/store"
)

var testRoots = config.RootsConfig{
	ClaudeDir: "/home/me/.claude/projects",
	CodexDir:  "/home/me/.codex/sessions",
	GeminiDir: "/home/me/.gemini/tmp",
}

func newTestIndexer(t *testing.T, fs *fsys.MemFS) (*Indexer, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	scanner := discover.New(fs, testRoots, true)
	return New(fs, st, scanner, zap.NewNop()), st
}

func writeClaudeSession(fs *fsys.MemFS, dir, id, cwd string, mtime time.Time) string {
	path := testRoots.ClaudeDir + "/" + dir + "/" + id + ".jsonl"
	content := `{"type":"user","uuid":"` + id + `-u1","timestamp":"2025-05-01T10:00:00Z","cwd":"` + cwd + `","message":{"role":"user","content":"hello"}}
{"type":"assistant","uuid":"` + id + `-a1","timestamp":"2025-05-01T10:00:05Z","cwd":"` + cwd + `","message":{"role":"assistant","model":"claude-sonnet-4","content":[{"type":"text","text":"hi"}]}}`
	fs.WriteFile(path, []byte(content), mtime)
	return path
}

func TestRefreshIdempotence(t *testing.T) {
	fs := fsys.NewMemFS()
	writeClaudeSession(fs, "-home-me-app", "s1", "/home/me/app", time.Unix(1000, 0))
	ix, st := newTestIndexer(t, fs)

	first, err := ix.Refresh(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Reparsed)
	assert.Equal(t, 0, first.CacheHits)

	count, err := st.SessionCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// No filesystem change: the second pass must skip everything.
	second, err := ix.Refresh(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Reparsed)
	assert.Equal(t, 1, second.CacheHits)
	assert.NotEqual(t, first.JobID, second.JobID)

	count, err = st.SessionCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRefreshForceReparses(t *testing.T) {
	fs := fsys.NewMemFS()
	writeClaudeSession(fs, "-home-me-app", "s1", "/home/me/app", time.Unix(1000, 0))
	ix, _ := newTestIndexer(t, fs)

	_, err := ix.Refresh(context.Background(), false)
	require.NoError(t, err)

	stats, err := ix.Refresh(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Reparsed)
	assert.Equal(t, 0, stats.CacheHits)
}

func TestRefreshPicksUpChanges(t *testing.T) {
	fs := fsys.NewMemFS()
	path := writeClaudeSession(fs, "-home-me-app", "s1", "/home/me/app", time.Unix(1000, 0))
	ix, st := newTestIndexer(t, fs)

	_, err := ix.Refresh(context.Background(), false)
	require.NoError(t, err)

	// Touch the file with new content and a new mtime.
	writeClaudeSession(fs, "-home-me-app", "s1", "/home/me/app", time.Unix(2000, 0))

	stats, err := ix.Refresh(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Reparsed)

	tracked, err := st.TrackedFiles()
	require.NoError(t, err)
	assert.Equal(t, int64(2000_000), tracked[path].MtimeMs)
}

func TestRefreshPurgesVanishedFiles(t *testing.T) {
	fs := fsys.NewMemFS()
	path := writeClaudeSession(fs, "-home-me-app", "s1", "/home/me/app", time.Unix(1000, 0))
	ix, st := newTestIndexer(t, fs)

	_, err := ix.Refresh(context.Background(), false)
	require.NoError(t, err)

	msgs, err := st.ListMessages(store.MessageFilter{SessionID: "claude:s1"})
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	projects, err := st.ListProjects(store.ProjectFilter{})
	require.NoError(t, err)
	require.Len(t, projects, 1)
	projID := projects[0].ID

	on, err := st.ToggleBookmark(projID, "claude:s1", msgs[0].ID, msgs[0].SourceID)
	require.NoError(t, err)
	require.True(t, on)

	fs.Remove(path)
	stats, err := ix.Refresh(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Removed)

	count, err := st.SessionCount()
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	hits, err := st.ListBookmarks(store.BookmarkFilter{ProjectID: projID})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.True(t, hits[0].Bookmark.IsOrphaned)
}

func TestRefreshCoalescesActiveJob(t *testing.T) {
	fs := fsys.NewMemFS()
	ix, _ := newTestIndexer(t, fs)

	ix.mu.Lock()
	ix.activeJob = "job-already-running"
	ix.mu.Unlock()

	stats, err := ix.Refresh(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, stats.Coalesced)
	assert.Equal(t, "job-already-running", stats.JobID)
}

func TestRefreshOneProjectPerCwd(t *testing.T) {
	fs := fsys.NewMemFS()
	writeClaudeSession(fs, "-home-me-app", "s1", "/home/me/app", time.Unix(1000, 0))
	codex := `{"timestamp":"2025-06-01T09:00:00Z","type":"session_meta","payload":{"id":"cx-1","cwd":"/workspace/x"}}
{"timestamp":"2025-06-01T09:00:01Z","type":"response_item","payload":{"type":"message","role":"user","content":[{"type":"input_text","text":"hi"}]}}`
	fs.WriteFile(testRoots.CodexDir+"/2025/06/01/rollout-cx-1.jsonl", []byte(codex), time.Unix(1100, 0))

	ix, st := newTestIndexer(t, fs)
	_, err := ix.Refresh(context.Background(), false)
	require.NoError(t, err)

	projects, err := st.ListProjects(store.ProjectFilter{})
	require.NoError(t, err)
	require.Len(t, projects, 2, "one project per distinct cwd")

	paths := []string{projects[0].Path, projects[1].Path}
	assert.ElementsMatch(t, []string{"/home/me/app", "/workspace/x"}, paths)

	var claudeProj model.Project
	for _, p := range projects {
		if p.Provider == model.ProviderClaude {
			claudeProj = p
		}
	}
	sessions, err := st.ListSessions(claudeProj.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, 2, sessions[0].MessageCount)
}
