// Package search provides the in-memory autocomplete index over card and
// set names.
package search

import (
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/cases"

	"github.com/cardintel/cardintel/internal/model"
)

var folder = cases.Fold()

// normalize lowercases with full Unicode case folding, so queries like
// "POKé" match "Poké".
func normalize(s string) string {
	return folder.String(strings.TrimSpace(s))
}

// Index is a keyword index over card names supporting prefix autocomplete.
// Safe for concurrent use; Load replaces the whole index atomically.
type Index struct {
	mu    sync.RWMutex
	cards []model.Card
	names []string // normalized, parallel to cards
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{}
}

// Load replaces the indexed cards.
func (ix *Index) Load(cards []model.Card) {
	names := make([]string, len(cards))
	for i, c := range cards {
		names[i] = normalize(c.Name)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.cards = append([]model.Card(nil), cards...)
	ix.names = names
}

// Len returns the number of indexed cards.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.cards)
}

// Search returns up to limit cards whose name matches the query, ranked:
// whole-name prefix matches first, then word-prefix matches, then
// substring matches. An empty query matches nothing.
func (ix *Index) Search(query string, limit int) []model.Card {
	q := normalize(query)
	if q == "" || limit <= 0 {
		return nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	type scored struct {
		card model.Card
		rank int
		pos  int
	}
	var matches []scored
	for i, name := range ix.names {
		rank := -1
		switch {
		case strings.HasPrefix(name, q):
			rank = 0
		case wordPrefix(name, q):
			rank = 1
		case strings.Contains(name, q):
			rank = 2
		}
		if rank >= 0 {
			matches = append(matches, scored{card: ix.cards[i], rank: rank, pos: i})
		}
	}

	sort.Slice(matches, func(a, b int) bool {
		if matches[a].rank != matches[b].rank {
			return matches[a].rank < matches[b].rank
		}
		return matches[a].pos < matches[b].pos
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]model.Card, len(matches))
	for i, m := range matches {
		out[i] = m.card
	}
	return out
}

func wordPrefix(name, q string) bool {
	for _, w := range strings.Fields(name) {
		if strings.HasPrefix(w, q) {
			return true
		}
	}
	return false
}
