// Package parse reads full transcript files and canonicalizes them into
// the unified message shape plus session-level aggregates.
package parse

import (
	"time"

	"github.com/trawldev/trawl/internal/fsys"
	"github.com/trawldev/trawl/internal/model"
)

// maxLineBytes caps a single JSONL line; tool results can be huge.
const maxLineBytes = 8 * 1024 * 1024

// Result holds the output of parsing a single transcript file. Malformed
// individual records are counted, not fatal: a fully unparseable file
// yields zero messages and is not an indexing failure.
type Result struct {
	Messages    []model.Message
	Aggregates  model.Aggregates
	ParseErrors int

	// Cwd and GitBranch are the first values seen in the stream, when the
	// format carries them. They back project resolution for files whose
	// discovery metadata could not resolve a project path.
	Cwd       string
	GitBranch string
}

// File parses a discovered transcript with the parser matching its
// provider. Unknown providers yield an empty result.
func File(fs fsys.FS, df model.DiscoveredFile) Result {
	switch df.Provider {
	case model.ProviderClaude:
		return parseClaude(fs, df)
	case model.ProviderCodex:
		return parseCodex(fs, df)
	case model.ProviderGemini:
		return parseGemini(fs, df)
	}
	return Result{}
}

// parseTimeMs parses an RFC3339(Nano) timestamp into ms epoch, returning 0
// when the value is empty or malformed.
func parseTimeMs(s string) int64 {
	if s == "" {
		return 0
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return 0
		}
	}
	return t.UnixMilli()
}

func ptr[T any](v T) *T { return &v }
