package parse

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/trawldev/trawl/internal/model"
)

// titleMaxLen bounds the derived session title.
const titleMaxLen = 120

// finalize orders messages by creation time (stable, so same-timestamp
// events keep file order) and computes the session rollup.
func finalize(messages []model.Message, modelNames []string) Result {
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].CreatedAt < messages[j].CreatedAt
	})

	agg := model.Aggregates{
		Title:      deriveTitle(messages),
		ModelNames: joinModels(modelNames),
	}
	for _, m := range messages {
		if m.CreatedAt == 0 {
			continue
		}
		if agg.StartedAt == 0 || m.CreatedAt < agg.StartedAt {
			agg.StartedAt = m.CreatedAt
		}
		if m.CreatedAt > agg.EndedAt {
			agg.EndedAt = m.CreatedAt
		}
	}
	if agg.StartedAt > 0 && agg.EndedAt >= agg.StartedAt {
		agg.DurationMs = agg.EndedAt - agg.StartedAt
	}
	for _, m := range messages {
		if m.TokenInput != nil {
			agg.TokenInput += *m.TokenInput
		}
		if m.TokenOutput != nil {
			agg.TokenOutput += *m.TokenOutput
		}
	}

	return Result{Messages: messages, Aggregates: agg}
}

// deriveTitle takes the first user message with visible text, collapses
// whitespace and truncates on a rune boundary.
func deriveTitle(messages []model.Message) string {
	for _, m := range messages {
		if m.Category != model.CategoryUser {
			continue
		}
		title := strings.Join(strings.Fields(m.Content), " ")
		if title == "" {
			continue
		}
		if utf8.RuneCountInString(title) > titleMaxLen {
			runes := []rune(title)
			title = string(runes[:titleMaxLen-1]) + "…"
		}
		return title
	}
	return ""
}

// joinModels dedupes model names preserving first-seen order and joins
// them with commas.
func joinModels(names []string) string {
	seen := make(map[string]bool, len(names))
	var out []string
	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return strings.Join(out, ", ")
}

// pairToolDurations fills measured operation durations on tool invocation
// messages by finding the result event carrying the same tool id. An
// invocation without a paired result keeps a nil duration; a measured
// pairing is always high confidence.
func pairToolDurations(messages []model.Message, callIdx map[string]int, resultTimes map[string]int64) {
	for id, i := range callIdx {
		resAt, ok := resultTimes[id]
		if !ok {
			continue
		}
		m := &messages[i]
		if m.CreatedAt == 0 || resAt < m.CreatedAt {
			continue
		}
		d := resAt - m.CreatedAt
		m.DurationMs = &d
		m.DurationSource = model.DurationMeasured
		m.DurationConfidence = model.ConfidenceHigh
		if m.ToolCall != nil {
			m.ToolCall.DurationMs = &d
		}
	}
}
