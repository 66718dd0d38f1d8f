package discover

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/trawldev/trawl/internal/model"
)

// geminiSniffMaxBytes bounds how much of a session blob is read during
// discovery. The identity fields sit at the head of the JSON object.
const geminiSniffMaxBytes = 256 * 1024

// projectRootMarker is the per-hash-directory file whose content is the
// absolute project path the hash was derived from.
const projectRootMarker = ".project_root"

// discoverGemini scans the hash-identified Gemini layout:
//
//	<root>/<hash>/chats/session-<id>.json
//
// A hash-to-path resolution map is built once per pass from marker files
// in both candidate roots and from the projects-mapping file. Files whose
// hash cannot be resolved are kept with an empty project path rather than
// dropped, so a consumer can surface them instead of silently losing data.
func (s *Scanner) discoverGemini() []model.DiscoveredFile {
	root := s.roots.GeminiDir
	if root == "" {
		return nil
	}
	hashDirs, err := s.fs.ReadDir(root)
	if err != nil {
		return nil
	}

	resolve := s.buildGeminiProjectMap()

	var files []model.DiscoveredFile
	for _, hd := range hashDirs {
		if !hd.IsDir() {
			continue
		}
		hash := hd.Name()
		chatsDir := filepath.Join(root, hash, "chats")
		entries, err := s.fs.ReadDir(chatsDir)
		if err != nil {
			continue
		}

		for _, sf := range entries {
			name := sf.Name()
			if sf.IsDir() || !strings.HasPrefix(name, "session-") || !strings.HasSuffix(name, ".json") {
				continue
			}
			path := filepath.Join(chatsDir, name)

			fileHash, sourceID := s.sniffGeminiBlob(path)
			if fileHash == "" {
				fileHash = hash
			}
			if sourceID == "" {
				sourceID = strings.TrimSuffix(strings.TrimPrefix(name, "session-"), ".json")
			}

			df := model.DiscoveredFile{
				Provider:        model.ProviderGemini,
				SessionKey:      sessionKey(model.ProviderGemini, sourceID),
				SourceSessionID: sourceID,
				Path:            path,
			}
			if projectPath, ok := resolve[fileHash]; ok && projectPath != "" {
				df.ProjectPath = projectPath
				df.ProjectName = filepath.Base(projectPath)
			} else {
				df.ProjectName = fallbackHashName(hash)
				df.UnresolvedProject = true
			}
			if s.statFile(&df) {
				files = append(files, df)
			}
		}
	}
	return files
}

// buildGeminiProjectMap returns hash -> absolute project path. Sources, in
// precedence order: .project_root markers under the primary root, markers
// under the history root, and the projects-mapping JSON file.
func (s *Scanner) buildGeminiProjectMap() map[string]string {
	result := make(map[string]string)

	// Mapping file first so marker files can override stale entries.
	if s.roots.GeminiProjectsFile != "" {
		if data, err := s.fs.ReadFile(s.roots.GeminiProjectsFile); err == nil {
			var mapping map[string]string
			if err := json.Unmarshal(data, &mapping); err == nil {
				for id, p := range mapping {
					if p != "" {
						result[id] = p
					}
				}
			}
		}
	}

	for _, root := range []string{s.roots.GeminiHistoryDir, s.roots.GeminiDir} {
		if root == "" {
			continue
		}
		dirs, err := s.fs.ReadDir(root)
		if err != nil {
			continue
		}
		for _, d := range dirs {
			if !d.IsDir() {
				continue
			}
			marker := filepath.Join(root, d.Name(), projectRootMarker)
			data, err := s.fs.ReadFile(marker)
			if err != nil {
				continue
			}
			projectPath := strings.TrimSpace(string(data))
			if projectPath == "" {
				continue
			}
			result[d.Name()] = projectPath
			result[hashPath(projectPath)] = projectPath
		}
	}

	return result
}

// sniffGeminiBlob extracts projectHash and sessionId from a bounded prefix
// of the session blob. Never reads past geminiSniffMaxBytes; a blob the
// prefix truncates mid-document fails validation and yields empty values,
// so the caller falls back to path-derived identity.
func (s *Scanner) sniffGeminiBlob(path string) (hash, sessionID string) {
	f, err := s.fs.Open(path)
	if err != nil {
		return "", ""
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, geminiSniffMaxBytes))
	if err != nil {
		return "", ""
	}
	if !gjson.ValidBytes(data) {
		return "", ""
	}
	return gjson.GetBytes(data, "projectHash").Str, gjson.GetBytes(data, "sessionId").Str
}

// hashPath computes the SHA-256 hex hash over the absolute path string,
// matching the provider's project hash algorithm.
func hashPath(path string) string {
	h := sha256.Sum256([]byte(path))
	return fmt.Sprintf("%x", h)
}

// fallbackHashName derives a short display name from a hash directory so
// unresolved projects still render something recognizable.
func fallbackHashName(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
