package app

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

const (
	maxSuggestions  = 5
	maxEditDistance = 2
)

// suggestFrom picks up to maxSuggestions words within maxEditDistance of word,
// closest first
func suggestFrom(word string, words []string) []string {
	word = strings.ToLower(word)
	type candidate struct {
		word string
		dist int
	}
	var candidates []candidate
	for _, w := range words {
		lw := strings.ToLower(w)
		if lw == word {
			continue
		}
		if d := levenshtein.ComputeDistance(word, lw); d <= maxEditDistance {
			candidates = append(candidates, candidate{w, d})
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].dist != candidates[j].dist {
			return candidates[i].dist < candidates[j].dist
		}
		return candidates[i].word < candidates[j].word
	})
	if len(candidates) > maxSuggestions {
		candidates = candidates[:maxSuggestions]
	}
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.word)
	}
	return out
}
