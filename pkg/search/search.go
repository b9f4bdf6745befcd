// Package search filters record lists by a free-text term.
package search

import "strings"

// Searchable exposes the string values a list screen shows for a record.
type Searchable interface {
	SearchFields() []string
}

// Filter keeps the items with at least one field containing term,
// case-insensitively. Spaces in term are significant. An empty term returns
// items unchanged.
func Filter[T Searchable](items []T, term string) []T {
	term = strings.ToLower(term)
	if term == "" {
		return items
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		if Matches(item, term) {
			out = append(out, item)
		}
	}
	return out
}

// Matches reports whether any field of item contains the lower-cased term.
func Matches(item Searchable, term string) bool {
	for _, field := range item.SearchFields() {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}
