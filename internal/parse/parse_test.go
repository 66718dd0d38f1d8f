package parse

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trawldev/trawl/internal/fsys"
	"github.com/trawldev/trawl/internal/model"
)

func writeFile(t *testing.T, fs *fsys.MemFS, path, content string) {
	t.Helper()
	fs.WriteFile(path, []byte(content), time.Unix(1700000000, 0))
}

func claudeFile(path string) model.DiscoveredFile {
	return model.DiscoveredFile{
		Provider:        model.ProviderClaude,
		SessionKey:      "claude:sess-1",
		SourceSessionID: "sess-1",
		Path:            path,
	}
}

func TestParseClaudeBasicFlow(t *testing.T) {
	fs := fsys.NewMemFS()
	lines := []string{
		`{"type":"user","uuid":"u1","timestamp":"2025-05-01T10:00:00Z","message":{"role":"user","content":"fix the race in the watcher"}}`,
		`{"type":"assistant","uuid":"a1","timestamp":"2025-05-01T10:00:05Z","message":{"role":"assistant","model":"claude-sonnet-4","usage":{"input_tokens":120,"output_tokens":40},"content":[{"type":"thinking","thinking":"look at the init path"},{"type":"text","text":"I see the problem."},{"type":"tool_use","id":"t1","name":"Read","input":{"file_path":"watcher.go"}}]}}`,
		`{"type":"user","uuid":"u2","timestamp":"2025-05-01T10:00:09Z","message":{"role":"user","content":[{"type":"tool_result","tool_use_id":"t1","content":"package watcher"}]}}`,
	}
	writeFile(t, fs, "/c/p/sess-1.jsonl", strings.Join(lines, "\n"))

	res := parseClaude(fs, claudeFile("/c/p/sess-1.jsonl"))
	require.Len(t, res.Messages, 5)
	assert.Equal(t, 0, res.ParseErrors)

	cats := make([]model.Category, 0, len(res.Messages))
	for _, m := range res.Messages {
		cats = append(cats, m.Category)
	}
	assert.Equal(t, []model.Category{
		model.CategoryUser,
		model.CategoryThinking,
		model.CategoryAssistant,
		model.CategoryToolUse,
		model.CategoryToolResult,
	}, cats)

	// Usage lands on the first block emitted from the assistant line.
	require.NotNil(t, res.Messages[1].TokenInput)
	assert.Equal(t, int64(120), *res.Messages[1].TokenInput)
	assert.Nil(t, res.Messages[2].TokenInput)

	// tool_use at 10:00:05 paired with its result at 10:00:09.
	use := res.Messages[3]
	require.NotNil(t, use.DurationMs)
	assert.Equal(t, int64(4000), *use.DurationMs)
	assert.Equal(t, model.DurationMeasured, use.DurationSource)
	assert.Equal(t, model.ConfidenceHigh, use.DurationConfidence)

	agg := res.Aggregates
	assert.Equal(t, "fix the race in the watcher", agg.Title)
	assert.Equal(t, "claude-sonnet-4", agg.ModelNames)
	assert.Equal(t, int64(9000), agg.DurationMs)
	assert.Equal(t, int64(120), agg.TokenInput)
	assert.Equal(t, int64(40), agg.TokenOutput)
}

func TestParseClaudeEditReclassification(t *testing.T) {
	fs := fsys.NewMemFS()
	lines := []string{
		`{"type":"assistant","uuid":"a1","timestamp":"2025-05-01T10:00:00Z","message":{"role":"assistant","content":[{"type":"tool_use","id":"t1","name":"Edit","input":{"file_path":"a.go","old_string":"x","new_string":"y"}}]}}`,
		`{"type":"assistant","uuid":"a2","timestamp":"2025-05-01T10:00:01Z","message":{"role":"assistant","content":[{"type":"tool_use","id":"t2","name":"Bash","input":{"command":"ls"}}]}}`,
		`{"type":"assistant","uuid":"a3","timestamp":"2025-05-01T10:00:02Z","message":{"role":"assistant","content":[{"type":"tool_use","id":"t3","name":"CustomTool","input":{"diff":"--- a\n+++ b"}}]}}`,
	}
	writeFile(t, fs, "/c/p/s.jsonl", strings.Join(lines, "\n"))

	res := parseClaude(fs, claudeFile("/c/p/s.jsonl"))
	require.Len(t, res.Messages, 3)
	assert.Equal(t, model.CategoryToolEdit, res.Messages[0].Category)
	assert.Equal(t, model.CategoryToolUse, res.Messages[1].Category)
	assert.Equal(t, model.CategoryToolEdit, res.Messages[2].Category)
}

func TestParseClaudeMalformedLinesSkipped(t *testing.T) {
	fs := fsys.NewMemFS()
	lines := []string{
		`{"type":"user","uuid":"u1","timestamp":"2025-05-01T10:00:00Z","message":{"role":"user","content":"hello"}}`,
		`{not json at all`,
		`{"type":"user","uuid":"u2","timestamp":"2025-05-01T10:00:01Z","message":{"role":"user","content":"still here"}}`,
	}
	writeFile(t, fs, "/c/p/s.jsonl", strings.Join(lines, "\n"))

	res := parseClaude(fs, claudeFile("/c/p/s.jsonl"))
	assert.Len(t, res.Messages, 2)
	assert.Equal(t, 1, res.ParseErrors)
}

func TestParseClaudeUnpairedToolUseKeepsNilDuration(t *testing.T) {
	fs := fsys.NewMemFS()
	line := `{"type":"assistant","uuid":"a1","timestamp":"2025-05-01T10:00:00Z","message":{"role":"assistant","content":[{"type":"tool_use","id":"t1","name":"Bash","input":{"command":"sleep 60"}}]}}`
	writeFile(t, fs, "/c/p/s.jsonl", line)

	res := parseClaude(fs, claudeFile("/c/p/s.jsonl"))
	require.Len(t, res.Messages, 1)
	assert.Nil(t, res.Messages[0].DurationMs)
	assert.NotEqual(t, model.ConfidenceHigh, res.Messages[0].DurationConfidence)
}

func TestParseCodexBasicFlow(t *testing.T) {
	fs := fsys.NewMemFS()
	lines := []string{
		`{"timestamp":"2025-06-01T09:00:00Z","type":"session_meta","payload":{"id":"cx-1","cwd":"/home/me/proj"}}`,
		`{"timestamp":"2025-06-01T09:00:01Z","type":"turn_context","payload":{"model":"gpt-5-codex"}}`,
		`{"timestamp":"2025-06-01T09:00:02Z","type":"response_item","payload":{"type":"message","role":"user","content":[{"type":"input_text","text":"add a retry flag"}]}}`,
		`{"timestamp":"2025-06-01T09:00:03Z","type":"response_item","payload":{"type":"reasoning","summary":[{"type":"summary_text","text":"need to touch the CLI"}]}}`,
		`{"timestamp":"2025-06-01T09:00:04Z","type":"response_item","payload":{"type":"function_call","name":"shell","call_id":"c1","arguments":"{\"command\":[\"ls\"]}"}}`,
		`{"timestamp":"2025-06-01T09:00:06Z","type":"response_item","payload":{"type":"function_call_output","call_id":"c1","output":"main.go"}}`,
		`{"timestamp":"2025-06-01T09:00:07Z","type":"response_item","payload":{"type":"message","role":"assistant","content":[{"type":"output_text","text":"Done."}]}}`,
		`{"timestamp":"2025-06-01T09:00:08Z","type":"event_msg","payload":{"type":"token_count","info":{"last_token_usage":{"input_tokens":900,"output_tokens":55}}}}`,
	}
	writeFile(t, fs, "/x/r.jsonl", strings.Join(lines, "\n"))

	df := model.DiscoveredFile{
		Provider:        model.ProviderCodex,
		SessionKey:      "codex:cx-1",
		SourceSessionID: "cx-1",
		Path:            "/x/r.jsonl",
	}
	res := parseCodex(fs, df)
	require.Len(t, res.Messages, 5)

	assert.Equal(t, model.CategoryUser, res.Messages[0].Category)
	assert.Equal(t, model.CategoryThinking, res.Messages[1].Category)
	assert.Equal(t, model.CategoryToolUse, res.Messages[2].Category)
	assert.Equal(t, model.CategoryToolResult, res.Messages[3].Category)
	assert.Equal(t, model.CategoryAssistant, res.Messages[4].Category)

	require.NotNil(t, res.Messages[2].DurationMs)
	assert.Equal(t, int64(2000), *res.Messages[2].DurationMs)

	require.NotNil(t, res.Messages[4].TokenInput)
	assert.Equal(t, int64(900), *res.Messages[4].TokenInput)
	assert.Equal(t, int64(55), *res.Messages[4].TokenOutput)

	assert.Equal(t, "add a retry flag", res.Aggregates.Title)
	assert.Equal(t, "gpt-5-codex", res.Aggregates.ModelNames)
}

func TestParseCodexApplyPatchIsEdit(t *testing.T) {
	fs := fsys.NewMemFS()
	line := `{"timestamp":"2025-06-01T09:00:00Z","type":"response_item","payload":{"type":"function_call","name":"shell","call_id":"c1","arguments":"{\"command\":[\"apply_patch\",\"*** Begin Patch\\n*** Update File: a.go\\n*** End Patch\"]}"}}`
	writeFile(t, fs, "/x/r.jsonl", line)

	res := parseCodex(fs, model.DiscoveredFile{Provider: model.ProviderCodex, SessionKey: "codex:c", SourceSessionID: "c", Path: "/x/r.jsonl"})
	require.Len(t, res.Messages, 1)
	assert.Equal(t, model.CategoryToolEdit, res.Messages[0].Category)
}

func TestParseGeminiBasicFlow(t *testing.T) {
	fs := fsys.NewMemFS()
	blob := `{
		"sessionId": "g-1",
		"projectHash": "abc",
		"messages": [
			{"id":"m1","timestamp":"2025-07-01T08:00:00Z","type":"user","content":"rename the package"},
			{"id":"m2","timestamp":"2025-07-01T08:00:04Z","type":"gemini","model":"gemini-2.5-pro","content":"Renaming now.","thoughts":"check the imports first","tokens":{"input":300,"output":25},"toolCalls":[{"name":"replace","args":{"file_path":"a.go","old_string":"pkg","new_string":"core"},"result":"ok","durationMs":1500}]}
		]
	}`
	writeFile(t, fs, "/g/h/chats/session-g-1.json", blob)

	df := model.DiscoveredFile{
		Provider:        model.ProviderGemini,
		SessionKey:      "gemini:g-1",
		SourceSessionID: "g-1",
		Path:            "/g/h/chats/session-g-1.json",
	}
	res := parseGemini(fs, df)
	require.Len(t, res.Messages, 5)

	assert.Equal(t, model.CategoryUser, res.Messages[0].Category)
	assert.Equal(t, model.CategoryThinking, res.Messages[1].Category)
	assert.Equal(t, model.CategoryAssistant, res.Messages[2].Category)
	assert.Equal(t, model.CategoryToolEdit, res.Messages[3].Category)
	assert.Equal(t, model.CategoryToolResult, res.Messages[4].Category)

	require.NotNil(t, res.Messages[3].DurationMs)
	assert.Equal(t, int64(1500), *res.Messages[3].DurationMs)
	assert.Equal(t, model.DurationMeasured, res.Messages[3].DurationSource)

	assert.Equal(t, "rename the package", res.Aggregates.Title)
	assert.Equal(t, "gemini-2.5-pro", res.Aggregates.ModelNames)
	assert.Equal(t, int64(300), res.Aggregates.TokenInput)
}

func TestParseGeminiUnparseableBlob(t *testing.T) {
	fs := fsys.NewMemFS()
	writeFile(t, fs, "/g/h/chats/session-bad.json", "{truncated")

	res := parseGemini(fs, model.DiscoveredFile{Provider: model.ProviderGemini, SessionKey: "gemini:bad", Path: "/g/h/chats/session-bad.json"})
	assert.Empty(t, res.Messages)
	assert.Equal(t, 1, res.ParseErrors)
}

func TestClassifyTool(t *testing.T) {
	tests := []struct {
		name string
		tool string
		args string
		want model.Category
	}{
		{"known edit tool", "Edit", `{"file_path":"a.go"}`, model.CategoryToolEdit},
		{"write tool", "Write", `{"file_path":"a.go","content":"x"}`, model.CategoryToolEdit},
		{"old/new strings", "mystery", `{"old_string":"a","new_string":"b"}`, model.CategoryToolEdit},
		{"diff key", "mystery", `{"diff":"--- a"}`, model.CategoryToolEdit},
		{"patch key", "mystery", `{"patch":"@@"}`, model.CategoryToolEdit},
		{"edits array", "mystery", `{"edits":[{"old_string":"a"}]}`, model.CategoryToolEdit},
		{"apply patch envelope", "shell", `{"command":["bash","-lc","apply_patch <<'EOF'\n*** Begin Patch\nEOF"]}`, model.CategoryToolEdit},
		{"plain command", "Bash", `{"command":"go vet ./..."}`, model.CategoryToolUse},
		{"read tool", "Read", `{"file_path":"a.go"}`, model.CategoryToolUse},
		{"empty args", "Grep", "", model.CategoryToolUse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyTool(tt.tool, tt.args))
		})
	}
}

func TestDeriveTitleTruncates(t *testing.T) {
	long := strings.Repeat("word ", 60)
	msgs := []model.Message{{Category: model.CategoryUser, Content: long, CreatedAt: 1}}
	res := finalize(msgs, nil)
	title := res.Aggregates.Title
	assert.LessOrEqual(t, len([]rune(title)), titleMaxLen)
	assert.True(t, strings.HasSuffix(title, "…"))
}

func TestJoinModelsDedupes(t *testing.T) {
	assert.Equal(t, "a, b", joinModels([]string{"a", "b", "a", "", "b"}))
}

func TestFinalizeOrdersByTimestamp(t *testing.T) {
	msgs := []model.Message{
		{SourceID: "late", Category: model.CategoryAssistant, CreatedAt: 2000},
		{SourceID: "early", Category: model.CategoryUser, CreatedAt: 1000},
	}
	res := finalize(msgs, nil)
	assert.Equal(t, "early", res.Messages[0].SourceID)
	assert.Equal(t, int64(1000), res.Aggregates.StartedAt)
	assert.Equal(t, int64(2000), res.Aggregates.EndedAt)
	assert.Equal(t, int64(1000), res.Aggregates.DurationMs)
}
