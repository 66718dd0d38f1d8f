package query

import (
	"fmt"

	"github.com/trawldev/trawl/internal/model"
)

// ValidationError marks a request rejected before touching storage. It is
// distinguishable from an empty result set and from storage failures.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// normalizeCategories drops duplicates and rejects unknown categories. An
// empty set means "no category filter", never "match nothing".
func normalizeCategories(categories []model.Category) ([]model.Category, error) {
	if len(categories) == 0 {
		return nil, nil
	}
	seen := make(map[model.Category]bool, len(categories))
	var out []model.Category
	for _, c := range categories {
		if !c.Valid() {
			return nil, &ValidationError{Field: "categories", Reason: fmt.Sprintf("unknown category %q", c)}
		}
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	// Filtering on every category is the same as not filtering.
	if len(out) == len(model.Categories()) {
		return nil, nil
	}
	return out, nil
}

// normalizeProviders drops duplicates and rejects unknown providers.
func normalizeProviders(providers []model.Provider) ([]model.Provider, error) {
	if len(providers) == 0 {
		return nil, nil
	}
	seen := make(map[model.Provider]bool, len(providers))
	var out []model.Provider
	for _, p := range providers {
		if !p.Valid() {
			return nil, &ValidationError{Field: "providers", Reason: fmt.Sprintf("unknown provider %q", p)}
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out, nil
}
