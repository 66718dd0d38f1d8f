// Package query exposes the typed read operations the shell consumes.
// Every request is validated and normalized before touching storage;
// malformed-but-recoverable filters get sane defaults, truly invalid
// input surfaces as a ValidationError distinguishable from zero results.
package query

import (
	"database/sql"
	"strings"

	"github.com/trawldev/trawl/internal/model"
	"github.com/trawldev/trawl/internal/store"
)

// Pagination bounds. Out-of-range values are clamped, not rejected.
const (
	DefaultPageSize = 100
	MaxPageSize     = 500

	DefaultSearchLimit = 50
	MaxSearchLimit     = 200
)

// Service answers read requests against one store.
type Service struct {
	store *store.Store
}

// New returns a query service over the store.
func New(st *store.Store) *Service {
	return &Service{store: st}
}

// ProjectsRequest filters the project listing.
type ProjectsRequest struct {
	Providers []model.Provider
	Query     string
}

// ProjectsResponse lists projects sorted by last activity.
type ProjectsResponse struct {
	Projects []model.Project
}

// Projects lists indexed projects.
func (s *Service) Projects(req ProjectsRequest) (ProjectsResponse, error) {
	providers, err := normalizeProviders(req.Providers)
	if err != nil {
		return ProjectsResponse{}, err
	}
	projects, err := s.store.ListProjects(store.ProjectFilter{
		Providers: providers,
		Query:     strings.TrimSpace(req.Query),
	})
	if err != nil {
		return ProjectsResponse{}, err
	}
	return ProjectsResponse{Projects: projects}, nil
}

// SessionsRequest identifies the project to list.
type SessionsRequest struct {
	ProjectID string
}

// SessionsResponse lists one project's sessions newest-activity-first.
type SessionsResponse struct {
	Sessions []model.Session
}

// Sessions lists all sessions of one project.
func (s *Service) Sessions(req SessionsRequest) (SessionsResponse, error) {
	if req.ProjectID == "" {
		return SessionsResponse{}, &ValidationError{Field: "projectId", Reason: "required"}
	}
	sessions, err := s.store.ListSessions(req.ProjectID)
	if err != nil {
		return SessionsResponse{}, err
	}
	return SessionsResponse{Sessions: sessions}, nil
}

// SessionDetailRequest pages through one session's messages. Focus fields
// are optional; when set, the response page lands on the target message.
type SessionDetailRequest struct {
	SessionID  string
	Page       int
	PageSize   int
	Categories []model.Category
	Query      string

	FocusMessageID int64
	FocusSourceID  string
}

// FocusIndex locates a focused message under the request's filters.
type FocusIndex struct {
	Page        int
	IndexInPage int
}

// SessionDetailResponse is one page of a session's messages plus the
// 7-key category histogram over the category-unfiltered set.
type SessionDetailResponse struct {
	Session        model.Session
	TotalCount     int
	CategoryCounts map[model.Category]int
	Page           int
	PageSize       int
	Focus          *FocusIndex
	Messages       []model.Message
}

// SessionDetail returns one page of messages for a session.
func (s *Service) SessionDetail(req SessionDetailRequest) (SessionDetailResponse, error) {
	if req.SessionID == "" {
		return SessionDetailResponse{}, &ValidationError{Field: "sessionId", Reason: "required"}
	}
	categories, err := normalizeCategories(req.Categories)
	if err != nil {
		return SessionDetailResponse{}, err
	}
	page := max(req.Page, 0)
	pageSize := clamp(req.PageSize, DefaultPageSize, MaxPageSize)

	sess, err := s.store.GetSession(req.SessionID)
	if err == sql.ErrNoRows {
		return SessionDetailResponse{}, &ValidationError{Field: "sessionId", Reason: "unknown session"}
	}
	if err != nil {
		return SessionDetailResponse{}, err
	}

	filter := store.MessageFilter{
		SessionID:  req.SessionID,
		Categories: categories,
		Query:      strings.TrimSpace(req.Query),
	}

	var focus *FocusIndex
	if req.FocusMessageID > 0 || req.FocusSourceID != "" {
		rank, ok, err := s.store.MessagePosition(filter, req.FocusMessageID, req.FocusSourceID)
		if err != nil {
			return SessionDetailResponse{}, err
		}
		if ok {
			page = rank / pageSize
			focus = &FocusIndex{Page: page, IndexInPage: rank % pageSize}
		}
	}

	// Total count ignores the category constraint, matching the histogram
	// so its 7 keys always sum to the total.
	totalFilter := filter
	totalFilter.Categories = nil
	total, err := s.store.CountMessages(totalFilter)
	if err != nil {
		return SessionDetailResponse{}, err
	}
	counts, err := s.store.CategoryCounts(filter)
	if err != nil {
		return SessionDetailResponse{}, err
	}

	filter.Limit = pageSize
	filter.Offset = page * pageSize
	messages, err := s.store.ListMessages(filter)
	if err != nil {
		return SessionDetailResponse{}, err
	}

	return SessionDetailResponse{
		Session:        sess,
		TotalCount:     total,
		CategoryCounts: counts,
		Page:           page,
		PageSize:       pageSize,
		Focus:          focus,
		Messages:       messages,
	}, nil
}

// SearchRequest is a cross-corpus full-text query.
type SearchRequest struct {
	Query        string
	Categories   []model.Category
	Providers    []model.Provider
	ProjectIDs   []string
	ProjectQuery string
	Limit        int
	Offset       int
}

// SearchResponse carries one page of hits; snippets delimit matches with
// literal <mark>…</mark>.
type SearchResponse struct {
	Query          string
	TotalCount     int
	CategoryCounts map[model.Category]int
	Results        []store.SearchHit
}

// Search runs a full-text query. An empty or whitespace-only query
// returns zero results and an all-zero histogram, never the whole corpus.
func (s *Service) Search(req SearchRequest) (SearchResponse, error) {
	q := strings.TrimSpace(req.Query)
	resp := SearchResponse{Query: q, CategoryCounts: zeroHistogram()}
	if q == "" {
		return resp, nil
	}

	categories, err := normalizeCategories(req.Categories)
	if err != nil {
		return SearchResponse{}, err
	}
	providers, err := normalizeProviders(req.Providers)
	if err != nil {
		return SearchResponse{}, err
	}

	filter := store.SearchFilter{
		Query:        q,
		Categories:   categories,
		Providers:    providers,
		ProjectIDs:   req.ProjectIDs,
		ProjectQuery: strings.TrimSpace(req.ProjectQuery),
		Limit:        clamp(req.Limit, DefaultSearchLimit, MaxSearchLimit),
		Offset:       max(req.Offset, 0),
	}

	resp.TotalCount, err = s.store.SearchCount(filter)
	if err != nil {
		return SearchResponse{}, err
	}
	resp.CategoryCounts, err = s.store.SearchCategoryCounts(filter)
	if err != nil {
		return SearchResponse{}, err
	}
	resp.Results, err = s.store.Search(filter)
	if err != nil {
		return SearchResponse{}, err
	}
	return resp, nil
}

// BookmarksRequest filters one project's bookmark listing.
type BookmarksRequest struct {
	ProjectID  string
	Categories []model.Category
	Query      string
}

// BookmarksResponse lists pinned messages with their orphan status.
// Orphaned bookmarks have no message to classify, so CategoryCounts
// covers only bookmarks with a surviving target; OrphanCount carries the
// remainder, and without a text filter the histogram plus OrphanCount
// sums to TotalCount.
type BookmarksResponse struct {
	TotalCount     int
	FilteredCount  int
	OrphanCount    int
	CategoryCounts map[model.Category]int
	Results        []store.BookmarkHit
}

// Bookmarks lists a project's pinned messages.
func (s *Service) Bookmarks(req BookmarksRequest) (BookmarksResponse, error) {
	if req.ProjectID == "" {
		return BookmarksResponse{}, &ValidationError{Field: "projectId", Reason: "required"}
	}
	categories, err := normalizeCategories(req.Categories)
	if err != nil {
		return BookmarksResponse{}, err
	}

	filter := store.BookmarkFilter{
		ProjectID:  req.ProjectID,
		Categories: categories,
		Query:      strings.TrimSpace(req.Query),
	}
	total, filtered, orphaned, err := s.store.CountBookmarks(filter)
	if err != nil {
		return BookmarksResponse{}, err
	}
	counts, err := s.store.BookmarkCategoryCounts(filter)
	if err != nil {
		return BookmarksResponse{}, err
	}
	hits, err := s.store.ListBookmarks(filter)
	if err != nil {
		return BookmarksResponse{}, err
	}
	return BookmarksResponse{
		TotalCount:     total,
		FilteredCount:  filtered,
		OrphanCount:    orphaned,
		CategoryCounts: counts,
		Results:        hits,
	}, nil
}

// ToggleBookmarkRequest pins or unpins one message.
type ToggleBookmarkRequest struct {
	ProjectID       string
	SessionID       string
	MessageID       int64
	MessageSourceID string
}

// ToggleBookmarkResponse reports the state after the toggle.
type ToggleBookmarkResponse struct {
	Bookmarked bool
}

// ToggleBookmark pins the target message, or unpins it when already
// pinned. The target must exist at toggle time.
func (s *Service) ToggleBookmark(req ToggleBookmarkRequest) (ToggleBookmarkResponse, error) {
	if req.ProjectID == "" {
		return ToggleBookmarkResponse{}, &ValidationError{Field: "projectId", Reason: "required"}
	}
	if req.SessionID == "" {
		return ToggleBookmarkResponse{}, &ValidationError{Field: "sessionId", Reason: "required"}
	}
	if req.MessageID <= 0 && req.MessageSourceID == "" {
		return ToggleBookmarkResponse{}, &ValidationError{Field: "messageId", Reason: "message id or source id required"}
	}

	msg, err := s.store.GetMessage(req.SessionID, req.MessageID, req.MessageSourceID)
	if err == sql.ErrNoRows {
		return ToggleBookmarkResponse{}, &ValidationError{Field: "messageId", Reason: "unknown message"}
	}
	if err != nil {
		return ToggleBookmarkResponse{}, err
	}

	on, err := s.store.ToggleBookmark(req.ProjectID, req.SessionID, msg.ID, msg.SourceID)
	if err != nil {
		return ToggleBookmarkResponse{}, err
	}
	return ToggleBookmarkResponse{Bookmarked: on}, nil
}

func zeroHistogram() map[model.Category]int {
	counts := make(map[model.Category]int, len(model.Categories()))
	for _, c := range model.Categories() {
		counts[c] = 0
	}
	return counts
}

func clamp(v, def, maxVal int) int {
	if v <= 0 {
		return def
	}
	if v > maxVal {
		return maxVal
	}
	return v
}
