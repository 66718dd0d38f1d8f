// Package model defines the canonical domain types shared by discovery,
// parsing, storage, and query.
package model

// Provider identifies one of the supported transcript sources.
type Provider string

const (
	ProviderClaude Provider = "claude"
	ProviderCodex  Provider = "codex"
	ProviderGemini Provider = "gemini"
)

// Providers lists all supported providers in a stable order.
func Providers() []Provider {
	return []Provider{ProviderClaude, ProviderCodex, ProviderGemini}
}

// Valid reports whether p is a known provider.
func (p Provider) Valid() bool {
	switch p {
	case ProviderClaude, ProviderCodex, ProviderGemini:
		return true
	}
	return false
}

// Category is one of the seven fixed message kinds.
type Category string

const (
	CategoryUser       Category = "user"
	CategoryAssistant  Category = "assistant"
	CategoryToolUse    Category = "tool_use"
	CategoryToolEdit   Category = "tool_edit"
	CategoryToolResult Category = "tool_result"
	CategoryThinking   Category = "thinking"
	CategorySystem     Category = "system"
)

// Categories lists the seven categories in display order. Histograms are
// keyed and summed over exactly this set.
func Categories() []Category {
	return []Category{
		CategoryUser,
		CategoryAssistant,
		CategoryToolUse,
		CategoryToolEdit,
		CategoryToolResult,
		CategoryThinking,
		CategorySystem,
	}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryUser, CategoryAssistant, CategoryToolUse, CategoryToolEdit,
		CategoryToolResult, CategoryThinking, CategorySystem:
		return true
	}
	return false
}

// DurationSource records how an operation duration was derived.
type DurationSource string

const (
	DurationMeasured  DurationSource = "measured"
	DurationEstimated DurationSource = "estimated"
)

// DurationConfidence qualifies an operation duration value. An estimated
// duration is never high-confidence.
type DurationConfidence string

const (
	ConfidenceHigh DurationConfidence = "high"
	ConfidenceLow  DurationConfidence = "low"
)
