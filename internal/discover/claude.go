package discover

import (
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/trawldev/trawl/internal/model"
)

// sessionsIndexName is the optional per-project file mapping session id to
// the project's absolute path. When present it wins over decoding the
// directory name.
const sessionsIndexName = "sessions-index.json"

// discoverClaude scans the two-level Claude layout:
//
//	<root>/<projectDir>/<sessionID>.jsonl
//	<root>/<projectDir>/<sessionID>/subagents/<name>.jsonl
func (s *Scanner) discoverClaude() []model.DiscoveredFile {
	root := s.roots.ClaudeDir
	if root == "" {
		return nil
	}
	entries, err := s.fs.ReadDir(root)
	if err != nil {
		return nil
	}

	var files []model.DiscoveredFile
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		projDir := filepath.Join(root, entry.Name())
		sessionFiles, err := s.fs.ReadDir(projDir)
		if err != nil {
			continue
		}

		index := s.readSessionsIndex(projDir)
		fallbackName := decodeProjectDirName(entry.Name())

		for _, sf := range sessionFiles {
			if sf.IsDir() || !strings.HasSuffix(sf.Name(), ".jsonl") {
				continue
			}
			sourceID := strings.TrimSuffix(sf.Name(), ".jsonl")

			df := model.DiscoveredFile{
				Provider:        model.ProviderClaude,
				SessionKey:      sessionKey(model.ProviderClaude, sourceID),
				SourceSessionID: sourceID,
				Path:            filepath.Join(projDir, sf.Name()),
				ProjectName:     fallbackName,
			}
			if p, ok := index[sourceID]; ok && p != "" {
				df.ProjectPath = p
				df.ProjectName = filepath.Base(p)
			}
			if s.statFile(&df) {
				files = append(files, df)
			}
		}

		if !s.includeSubagents {
			continue
		}

		// Subagent transcripts live under session-named directories.
		for _, sd := range sessionFiles {
			if !sd.IsDir() {
				continue
			}
			parentID := sd.Name()
			subDir := filepath.Join(projDir, parentID, "subagents")
			subFiles, err := s.fs.ReadDir(subDir)
			if err != nil {
				continue
			}
			for _, sub := range subFiles {
				if sub.IsDir() || !strings.HasSuffix(sub.Name(), ".jsonl") {
					continue
				}
				name := strings.TrimSuffix(sub.Name(), ".jsonl")
				df := model.DiscoveredFile{
					Provider:        model.ProviderClaude,
					SessionKey:      subagentKey(model.ProviderClaude, parentID, name),
					SourceSessionID: name,
					Path:            filepath.Join(subDir, sub.Name()),
					ProjectName:     fallbackName,
					IsSubagent:      true,
				}
				if p, ok := index[parentID]; ok && p != "" {
					df.ProjectPath = p
					df.ProjectName = filepath.Base(p)
				}
				if s.statFile(&df) {
					files = append(files, df)
				}
			}
		}
	}
	return files
}

// readSessionsIndex loads a project dir's sessions-index.json, a flat
// object of session id to absolute project path. Missing or malformed
// files yield an empty map.
func (s *Scanner) readSessionsIndex(projDir string) map[string]string {
	data, err := s.fs.ReadFile(filepath.Join(projDir, sessionsIndexName))
	if err != nil {
		return nil
	}
	var index map[string]string
	if err := json.Unmarshal(data, &index); err != nil {
		return nil
	}
	return index
}

// decodeProjectDirName extracts a display name from the encoded directory
// name. Claude encodes absolute paths by replacing "/" with "-", so
// "-Users-me-projects-my-cool-project" decodes to "my-cool-project". We
// find the last known parent marker and take everything after it, falling
// back to the last non-empty segment.
func decodeProjectDirName(dirName string) string {
	parts := strings.Split(dirName, "-")

	knownParents := map[string]bool{
		"projects": true, "repos": true, "src": true,
		"code": true, "workspace": true, "dev": true,
	}

	for i := len(parts) - 2; i >= 0; i-- {
		if knownParents[strings.ToLower(parts[i])] {
			name := strings.Join(parts[i+1:], "-")
			if name != "" {
				return name
			}
		}
	}

	for i := len(parts) - 1; i >= 0; i-- {
		if parts[i] != "" {
			return parts[i]
		}
	}

	return dirName
}
