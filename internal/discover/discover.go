// Package discover walks provider root directories and finds candidate
// transcript files. It extracts lightweight identity metadata via bounded
// partial reads; full parsing is the parser's job.
package discover

import (
	"sort"

	"github.com/trawldev/trawl/internal/config"
	"github.com/trawldev/trawl/internal/fsys"
	"github.com/trawldev/trawl/internal/model"
)

// Scanner discovers transcript files for all providers. All filesystem
// access goes through the injected FS; any per-file or per-directory I/O
// failure contributes nothing and never aborts the scan.
type Scanner struct {
	fs               fsys.FS
	roots            config.RootsConfig
	includeSubagents bool
}

// New returns a scanner over the given roots.
func New(fs fsys.FS, roots config.RootsConfig, includeSubagents bool) *Scanner {
	return &Scanner{fs: fs, roots: roots, includeSubagents: includeSubagents}
}

// Discover returns every transcript file found under the configured roots,
// sorted by mtime descending then path ascending. The tie-break keeps
// incremental processing order stable across passes.
func (s *Scanner) Discover() []model.DiscoveredFile {
	var files []model.DiscoveredFile
	files = append(files, s.discoverClaude()...)
	files = append(files, s.discoverCodex()...)
	files = append(files, s.discoverGemini()...)

	sort.Slice(files, func(i, j int) bool {
		if files[i].MtimeMs != files[j].MtimeMs {
			return files[i].MtimeMs > files[j].MtimeMs
		}
		return files[i].Path < files[j].Path
	})
	return files
}

// statFile fills size and mtime for a discovered file. A stat failure
// drops the entry.
func (s *Scanner) statFile(df *model.DiscoveredFile) bool {
	info, err := s.fs.Stat(df.Path)
	if err != nil || info.IsDir() {
		return false
	}
	df.Size = info.Size()
	df.MtimeMs = info.ModTime().UnixMilli()
	return true
}

// sessionKey builds the synthetic identity for a main session file. The
// provider prefix keeps identical provider ids from colliding across
// providers.
func sessionKey(p model.Provider, sourceID string) string {
	return string(p) + ":" + sourceID
}

// subagentKey builds the identity for a subagent transcript so it never
// collides with its parent session.
func subagentKey(p model.Provider, parentID, name string) string {
	return string(p) + ":" + parentID + ":subagent:" + name
}
