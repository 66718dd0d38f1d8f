package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/trawldev/trawl/internal/model"
)

// Theme colors (Flexoki Dark)
var (
	ColorBorder    = lipgloss.Color("#282726")
	ColorTextDim   = lipgloss.Color("#575653")
	ColorTextMuted = lipgloss.Color("#6F6E69")
	ColorText      = lipgloss.Color("#FFFCF0")
	ColorAccent    = lipgloss.Color("#3AA99F")
	ColorGreen     = lipgloss.Color("#879A39")
	ColorOrange    = lipgloss.Color("#DA702C")
	ColorRed       = lipgloss.Color("#D14D41")
	ColorBlue      = lipgloss.Color("#4385BE")
	ColorPurple    = lipgloss.Color("#8B7EC8")
	ColorYellow    = lipgloss.Color("#D0A215")
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorText).
			Align(lipgloss.Center)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent)

	valueStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	mutedStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	markStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorYellow)

	warnStyle = lipgloss.NewStyle().
			Foreground(ColorOrange)

	dimStyle = lipgloss.NewStyle().
			Foreground(ColorTextDim)
)

// categoryStyles colors the seven message categories consistently across
// commands.
var categoryStyles = map[model.Category]lipgloss.Style{
	model.CategoryUser:       lipgloss.NewStyle().Foreground(ColorGreen),
	model.CategoryAssistant:  lipgloss.NewStyle().Foreground(ColorBlue),
	model.CategoryToolUse:    lipgloss.NewStyle().Foreground(ColorAccent),
	model.CategoryToolEdit:   lipgloss.NewStyle().Foreground(ColorOrange),
	model.CategoryToolResult: lipgloss.NewStyle().Foreground(ColorTextMuted),
	model.CategoryThinking:   lipgloss.NewStyle().Foreground(ColorPurple),
	model.CategorySystem:     lipgloss.NewStyle().Foreground(ColorTextDim),
}

// RenderCategory renders a category name in its theme color.
func RenderCategory(c model.Category) string {
	if style, ok := categoryStyles[c]; ok {
		return style.Render(string(c))
	}
	return string(c)
}

// RenderOrphaned renders the orphan marker for bookmark listings.
func RenderOrphaned() string {
	return warnStyle.Render("orphaned")
}

// HighlightSnippet converts the <mark>…</mark> delimiters of a search
// snippet into styled terminal spans.
func HighlightSnippet(snippet string) string {
	out := snippet
	for {
		start := strings.Index(out, "<mark>")
		if start < 0 {
			break
		}
		end := strings.Index(out[start:], "</mark>")
		if end < 0 {
			break
		}
		end += start
		inner := out[start+len("<mark>") : end]
		out = out[:start] + markStyle.Render(inner) + out[end+len("</mark>"):]
	}
	return out
}

// RenderHistogram renders the 7-key category histogram as one line of
// filter-chip counts, skipping empty categories.
func RenderHistogram(counts map[model.Category]int) string {
	var parts []string
	for _, c := range model.Categories() {
		n := counts[c]
		if n == 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %s", RenderCategory(c), mutedStyle.Render(FormatNumber(int64(n)))))
	}
	if len(parts) == 0 {
		return mutedStyle.Render("no messages")
	}
	return strings.Join(parts, dimStyle.Render("  ·  "))
}

// Table represents a bordered text table for CLI output.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
	Widths  []int // optional column widths, auto-calculated if nil
}

// RenderTitle renders a centered title bar in a bordered box.
func RenderTitle(title string) string {
	width := 55
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Width(width).
		Align(lipgloss.Center).
		Padding(0, 1)

	return border.Render(titleStyle.Render(title))
}

// RenderTable renders a bordered table with headers and rows.
func RenderTable(t Table) string {
	if len(t.Rows) == 0 && len(t.Headers) == 0 {
		return ""
	}

	// Calculate column widths
	numCols := len(t.Headers)
	if numCols == 0 && len(t.Rows) > 0 {
		numCols = len(t.Rows[0])
	}

	widths := make([]int, numCols)
	if t.Widths != nil {
		copy(widths, t.Widths)
	} else {
		for i, h := range t.Headers {
			if len(h) > widths[i] {
				widths[i] = len(h)
			}
		}
		for _, row := range t.Rows {
			for i, cell := range row {
				if i < numCols && len(cell) > widths[i] {
					widths[i] = len(cell)
				}
			}
		}
	}

	var b strings.Builder

	// Title above table if present
	if t.Title != "" {
		b.WriteString("  ")
		b.WriteString(headerStyle.Render(t.Title))
		b.WriteString("\n")
	}

	// Top border
	b.WriteString(dimStyle.Render("╭"))
	for i, w := range widths {
		b.WriteString(dimStyle.Render(strings.Repeat("─", w+2)))
		if i < numCols-1 {
			b.WriteString(dimStyle.Render("┬"))
		}
	}
	b.WriteString(dimStyle.Render("╮"))
	b.WriteString("\n")

	// Header row
	if len(t.Headers) > 0 {
		b.WriteString(dimStyle.Render("│"))
		for i, h := range t.Headers {
			w := widths[i]
			padded := fmt.Sprintf(" %-*s ", w, h)
			b.WriteString(headerStyle.Render(padded))
			if i < numCols-1 {
				b.WriteString(dimStyle.Render("│"))
			}
		}
		b.WriteString(dimStyle.Render("│"))
		b.WriteString("\n")

		// Header separator
		b.WriteString(dimStyle.Render("├"))
		for i, w := range widths {
			b.WriteString(dimStyle.Render(strings.Repeat("─", w+2)))
			if i < numCols-1 {
				b.WriteString(dimStyle.Render("┼"))
			}
		}
		b.WriteString(dimStyle.Render("┤"))
		b.WriteString("\n")
	}

	// Data rows
	for _, row := range t.Rows {
		if len(row) == 1 && row[0] == "---" {
			// Separator row
			b.WriteString(dimStyle.Render("├"))
			for i, w := range widths {
				b.WriteString(dimStyle.Render(strings.Repeat("─", w+2)))
				if i < numCols-1 {
					b.WriteString(dimStyle.Render("┼"))
				}
			}
			b.WriteString(dimStyle.Render("┤"))
			b.WriteString("\n")
			continue
		}

		b.WriteString(dimStyle.Render("│"))
		for i := 0; i < numCols; i++ {
			w := widths[i]
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			padded := fmt.Sprintf(" %-*s ", w, cell)
			b.WriteString(valueStyle.Render(padded))
			if i < numCols-1 {
				b.WriteString(dimStyle.Render("│"))
			}
		}
		b.WriteString(dimStyle.Render("│"))
		b.WriteString("\n")
	}

	// Bottom border
	b.WriteString(dimStyle.Render("╰"))
	for i, w := range widths {
		b.WriteString(dimStyle.Render(strings.Repeat("─", w+2)))
		if i < numCols-1 {
			b.WriteString(dimStyle.Render("┴"))
		}
	}
	b.WriteString(dimStyle.Render("╯"))
	b.WriteString("\n")

	return b.String()
}
