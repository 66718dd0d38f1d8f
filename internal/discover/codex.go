package discover

import (
	"bufio"
	"io"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/trawldev/trawl/internal/model"
)

// Sniff bounds for codex metadata recovery. Transcripts can run to many
// megabytes; the session_meta record is always near the top, so reading
// past these limits is wasted I/O.
const (
	codexSniffMaxLines = 120
	codexSniffMaxBytes = 256 * 1024
)

// discoverCodex recursively walks the date-bucketed Codex tree for .jsonl
// files. Session id, cwd and branch are recovered from the first
// session_meta record within a bounded prefix of each file.
func (s *Scanner) discoverCodex() []model.DiscoveredFile {
	root := s.roots.CodexDir
	if root == "" {
		return nil
	}

	var files []model.DiscoveredFile
	s.walkCodexDir(root, &files)
	return files
}

func (s *Scanner) walkCodexDir(dir string, out *[]model.DiscoveredFile) {
	entries, err := s.fs.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			s.walkCodexDir(path, out)
			continue
		}
		if !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}

		meta := s.sniffCodexMeta(path)
		sourceID := meta.id
		if sourceID == "" {
			// No session_meta record; the filename stem still identifies
			// the file uniquely.
			sourceID = strings.TrimSuffix(entry.Name(), ".jsonl")
		}

		df := model.DiscoveredFile{
			Provider:        model.ProviderCodex,
			SessionKey:      sessionKey(model.ProviderCodex, sourceID),
			SourceSessionID: sourceID,
			Path:            path,
			Cwd:             meta.cwd,
			GitBranch:       meta.branch,
		}
		if meta.cwd != "" {
			df.ProjectPath = meta.cwd
			df.ProjectName = filepath.Base(meta.cwd)
		} else {
			df.ProjectName = filepath.Base(dir)
			df.UnresolvedProject = true
		}
		if s.statFile(&df) {
			*out = append(*out, df)
		}
	}
}

type codexMeta struct {
	id     string
	cwd    string
	branch string
}

// sniffCodexMeta reads at most codexSniffMaxLines non-empty lines (capped
// at codexSniffMaxBytes) looking for the first session_meta record. Any
// read failure yields empty metadata; the file is still discovered.
func (s *Scanner) sniffCodexMeta(path string) codexMeta {
	f, err := s.fs.Open(path)
	if err != nil {
		return codexMeta{}
	}
	defer f.Close()

	scanner := bufio.NewScanner(io.LimitReader(f, codexSniffMaxBytes))
	scanner.Buffer(make([]byte, 0, 64*1024), codexSniffMaxBytes)

	lines := 0
	for scanner.Scan() && lines < codexSniffMaxLines {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		lines++

		if gjson.GetBytes(line, "type").Str != "session_meta" {
			continue
		}
		payload := gjson.GetBytes(line, "payload")
		return codexMeta{
			id:     payload.Get("id").Str,
			cwd:    payload.Get("cwd").Str,
			branch: payload.Get("git.branch").Str,
		}
	}
	return codexMeta{}
}
