// Package ranking scores corpus vectors against a query by cosine similarity.
package ranking

import (
	"math"
	"sort"
)

// Match is a ranked corpus position with its similarity score.
type Match struct {
	Index int
	Score float64
}

// Cosine returns dot(a,b)/(|a||b|) computed in float64.
// A zero norm, a length mismatch or a non-finite result yields 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	score := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0
	}
	return score
}

// Rank returns the min(k, len(vectors)) best matches for query.
// Order is descending by score; equal scores keep the smaller index first.
func Rank(query []float32, vectors [][]float32, k int) []Match {
	if k <= 0 || len(vectors) == 0 {
		return []Match{}
	}

	matches := make([]Match, len(vectors))
	for i, v := range vectors {
		matches[i] = Match{Index: i, Score: Cosine(query, v)}
	}

	SortMatches(matches)

	if k < len(matches) {
		matches = matches[:k]
	}
	return matches
}

// SortMatches orders matches by score descending, then by index ascending.
func SortMatches(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Index < matches[j].Index
	})
}
