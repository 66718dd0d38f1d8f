// Package indexer drives the incremental refresh: discovery, fingerprint
// diffing, reparse of changed files, and purge of vanished ones.
package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/trawldev/trawl/internal/discover"
	"github.com/trawldev/trawl/internal/fsys"
	"github.com/trawldev/trawl/internal/model"
	"github.com/trawldev/trawl/internal/parse"
	"github.com/trawldev/trawl/internal/store"
)

// Indexer runs refresh jobs against one store. At most one job is active
// at a time; a refresh requested while one runs is coalesced into the
// active job instead of interleaving writes.
type Indexer struct {
	fs      fsys.FS
	store   *store.Store
	scanner *discover.Scanner
	log     *zap.Logger

	mu        sync.Mutex
	activeJob string
}

// Stats summarizes one refresh job.
type Stats struct {
	JobID     string
	Coalesced bool

	Files       int // discovered files considered
	CacheHits   int // unchanged fingerprints, zero content bytes read
	Reparsed    int
	Removed     int // vanished files purged
	Failed      int // files whose write transaction rolled back
	ParseErrors int // malformed records skipped inside parsed files
}

// New returns an indexer over the given scanner and store.
func New(fs fsys.FS, st *store.Store, scanner *discover.Scanner, log *zap.Logger) *Indexer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Indexer{fs: fs, store: st, scanner: scanner, log: log}
}

// Refresh runs one incremental index pass and blocks until it completes.
// If a job is already active its id is returned with Coalesced set and no
// new work starts. Context cancellation stops the run between files; the
// in-flight file's transaction always commits or fully rolls back.
func (ix *Indexer) Refresh(ctx context.Context, force bool) (Stats, error) {
	ix.mu.Lock()
	if ix.activeJob != "" {
		jobID := ix.activeJob
		ix.mu.Unlock()
		return Stats{JobID: jobID, Coalesced: true}, nil
	}
	jobID := uuid.NewString()
	ix.activeJob = jobID
	ix.mu.Unlock()

	defer func() {
		ix.mu.Lock()
		ix.activeJob = ""
		ix.mu.Unlock()
	}()

	stats := Stats{JobID: jobID}
	ix.log.Info("refresh started", zap.String("job_id", jobID), zap.Bool("force", force))

	files := ix.scanner.Discover()
	stats.Files = len(files)

	tracked, err := ix.store.TrackedFiles()
	if err != nil {
		return stats, err
	}

	discovered := make(map[string]struct{}, len(files))
	for _, df := range files {
		discovered[df.Path] = struct{}{}

		if ctx.Err() != nil {
			break
		}

		fp, ok := tracked[df.Path]
		if ok && !force && fp.SizeBytes == df.Size && fp.MtimeMs == df.MtimeMs {
			stats.CacheHits++
			continue
		}

		res := parse.File(ix.fs, df)
		stats.ParseErrors += res.ParseErrors

		data := buildFileData(df, res)
		if err := ix.store.ReplaceFile(data, store.Fingerprint{SizeBytes: df.Size, MtimeMs: df.MtimeMs}); err != nil {
			stats.Failed++
			ix.log.Warn("file index failed",
				zap.String("path", df.Path), zap.Error(err))
			continue
		}
		stats.Reparsed++
	}

	// Purge rows for files no longer present on disk. Skipped when the run
	// was cancelled, since the discovery set may be incomplete.
	if ctx.Err() == nil {
		for path := range tracked {
			if _, ok := discovered[path]; ok {
				continue
			}
			if err := ix.store.RemoveFile(path); err != nil {
				stats.Failed++
				ix.log.Warn("file purge failed", zap.String("path", path), zap.Error(err))
				continue
			}
			stats.Removed++
		}
	}

	if err := ix.store.RecomputeAggregates(); err != nil {
		return stats, err
	}

	ix.log.Info("refresh finished",
		zap.String("job_id", jobID),
		zap.Int("files", stats.Files),
		zap.Int("cache_hits", stats.CacheHits),
		zap.Int("reparsed", stats.Reparsed),
		zap.Int("removed", stats.Removed),
		zap.Int("failed", stats.Failed))
	return stats, ctx.Err()
}

// buildFileData assembles the storage payload for one parsed file.
// Project resolution order: discovery's resolved path, then the cwd the
// parser saw in the file, then an unresolved placeholder keyed by the
// fallback name.
func buildFileData(df model.DiscoveredFile, res parse.Result) store.FileData {
	projectPath := df.ProjectPath
	projectName := df.ProjectName
	if projectPath == "" && res.Cwd != "" {
		projectPath = res.Cwd
		projectName = filepath.Base(res.Cwd)
	}
	projID := projectID(df.Provider, projectPath, projectName)

	cwd := df.Cwd
	if cwd == "" {
		cwd = res.Cwd
	}
	branch := df.GitBranch
	if branch == "" {
		branch = res.GitBranch
	}

	sess := model.Session{
		ID:          df.SessionKey,
		ProjectID:   projID,
		Provider:    df.Provider,
		FilePath:    df.Path,
		Title:       res.Aggregates.Title,
		ModelNames:  res.Aggregates.ModelNames,
		StartedAt:   res.Aggregates.StartedAt,
		EndedAt:     res.Aggregates.EndedAt,
		DurationMs:  res.Aggregates.DurationMs,
		GitBranch:   branch,
		Cwd:         cwd,
		IsSubagent:  df.IsSubagent,
		TokenInput:  res.Aggregates.TokenInput,
		TokenOutput: res.Aggregates.TokenOutput,
	}
	return store.FileData{
		Project: model.Project{
			ID:       projID,
			Provider: df.Provider,
			Name:     projectName,
			Path:     projectPath,
		},
		Session:  sess,
		Messages: res.Messages,
	}
}

// projectID derives a stable project identity from provider and resolved
// path. Unresolved projects key on the fallback name instead so they stay
// distinct from each other without colliding with a future resolution.
func projectID(provider model.Provider, path, name string) string {
	key := string(provider) + ":" + path
	if path == "" {
		key = string(provider) + ":unresolved:" + name
	}
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:8])
}
