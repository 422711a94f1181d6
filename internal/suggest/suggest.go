// Package suggest post-processes an analysis result, annotating
// diagnostics with semantic hints. Enrichers never add or remove
// diagnostics — the verdict set stays deterministic; they only fill
// the Hint field.
package suggest

import (
	"fmt"

	"methodical/internal/analyzer"
)

// Enricher transforms an analysis result, adding hint information.
type Enricher interface {
	Enrich(result *analyzer.Result) *analyzer.Result
}

// NearestName annotates undeclared- and unknown-method diagnostics
// with the closest declared name, catching the common typo case.
type NearestName struct {
	MaxDistance int // edit-distance cutoff; 0 means the default of 2
}

// NewNearestName returns a NearestName with the default cutoff.
func NewNearestName() *NearestName { return &NearestName{MaxDistance: 2} }

func (n *NearestName) Enrich(result *analyzer.Result) *analyzer.Result {
	max := n.MaxDistance
	if max <= 0 {
		max = 2
	}
	universe := result.Universe.Names()
	for i, d := range result.Diagnostics {
		if d.Hint != "" || d.Method == "" {
			continue
		}
		best, bestDist := "", max+1
		for _, candidate := range universe {
			if candidate == d.Method {
				continue
			}
			if dist := levenshtein(d.Method, candidate); dist < bestDist {
				best, bestDist = candidate, dist
			}
		}
		if best != "" {
			result.Diagnostics[i].Hint = fmt.Sprintf("did you mean %q?", best)
		}
	}
	return result
}

// Chain applies enrichers in order.
func Chain(result *analyzer.Result, enrichers ...Enricher) *analyzer.Result {
	for _, e := range enrichers {
		result = e.Enrich(result)
	}
	return result
}

// levenshtein computes edit distance with a two-row table.
func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
