package model

// DiscoveredFile describes one transcript file found during a discovery
// pass. It is produced fresh on every pass and never persisted directly.
type DiscoveredFile struct {
	Provider Provider

	// SessionKey is the synthetic identity for this file. It disambiguates
	// subagent transcripts from their parent session and identical session
	// ids across providers.
	SessionKey string

	// SourceSessionID is the provider's own session id, when known.
	SourceSessionID string

	Path    string
	Size    int64
	MtimeMs int64

	// ProjectPath is the resolved absolute project path. Empty when the
	// provider's project mapping could not resolve it.
	ProjectPath string

	// ProjectName is a display name; when ProjectPath is empty it falls
	// back to a name derived from the containing directory.
	ProjectName string

	IsSubagent        bool
	UnresolvedProject bool
	GitBranch         string
	Cwd               string
}

// Project is a denormalized grouping of sessions by resolved project path.
type Project struct {
	ID           string
	Provider     Provider
	Name         string
	Path         string
	SessionCount int
	LastActivity int64 // ms epoch, 0 when unknown
}

// Session maps 1:1 to one discovered transcript file.
type Session struct {
	ID         string // the file's SessionKey
	ProjectID  string
	Provider   Provider
	FilePath   string
	Title      string
	ModelNames string // comma-joined, deduped
	StartedAt  int64  // ms epoch, 0 when unknown
	EndedAt    int64
	DurationMs int64
	GitBranch  string
	Cwd        string
	IsSubagent bool

	MessageCount int
	TokenInput   int64
	TokenOutput  int64
}

// Aggregates holds the session-level rollup a parser computes alongside
// the message stream.
type Aggregates struct {
	Title       string
	ModelNames  string
	StartedAt   int64
	EndedAt     int64
	DurationMs  int64
	TokenInput  int64
	TokenOutput int64
}
