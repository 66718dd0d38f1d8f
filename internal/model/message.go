package model

// Message is the unified shape all provider events are normalized into.
// Ordering within a session is creation-time order as derived from the
// source file, not insertion order.
type Message struct {
	ID        int64 // storage rowid; 0 before insertion
	SourceID  string
	SessionID string
	Provider  Provider
	Category  Category
	Content   string
	CreatedAt int64 // ms epoch, 0 when the event carried no timestamp

	TokenInput  *int64
	TokenOutput *int64

	// DurationMs is the operation duration for tool invocations, derived
	// from the gap to the paired result event. Nil when no pair exists.
	DurationMs         *int64
	DurationSource     DurationSource
	DurationConfidence DurationConfidence

	// ToolCall carries optional denormalized detail for tool_use,
	// tool_edit and tool_result messages.
	ToolCall *ToolCall
}

// ToolCall is optional enrichment for tool-category messages; it is not
// required for message display.
type ToolCall struct {
	MessageID  int64
	Name       string
	Input      string // raw JSON args
	Result     string
	DurationMs *int64
}

// Bookmark pins one message. When reindexing removes the target message the
// bookmark is flagged orphaned, never deleted.
type Bookmark struct {
	ID              int64
	ProjectID       string
	SessionID       string
	MessageID       int64
	MessageSourceID string
	CreatedAt       int64
	IsOrphaned      bool
}
