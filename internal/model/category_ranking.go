package model

import (
	"fmt"
	"math"
	"sort"
)

// CategoryRanking represents how likely a found item belongs to a specific
// taxonomy category.
type CategoryRanking struct {
	Category Category
	// Score is in [0,1]: cosine similarity on the embedding path, 1.0/0.0
	// on the keyword-containment fallback path.
	Score float64
	// MatchedKeyword is the keyword that produced the score on the fallback
	// path; empty on the embedding path.
	MatchedKeyword string
}

// Validate ensures the CategoryRanking has valid data.
func (r *CategoryRanking) Validate() error {
	if err := r.Category.Validate(); err != nil {
		return err
	}
	if r.Score < 0.0 || r.Score > 1.0 {
		return fmt.Errorf("score must be between 0.0 and 1.0, got %.2f", r.Score)
	}
	return nil
}

// ConfidencePercent returns the score as a whole percentage for display.
func (r CategoryRanking) ConfidencePercent() int {
	return int(math.Round(r.Score * 100))
}

// CategoryRankings is an ordered classification result.
type CategoryRankings []CategoryRanking

// Sort orders rankings by score descending. Ties go to the longer matched
// keyword, then to taxonomy declaration order; the sort is stable so equal
// entries keep their scan order.
func (r CategoryRankings) Sort() {
	sort.SliceStable(r, func(i, j int) bool {
		if r[i].Score != r[j].Score {
			return r[i].Score > r[j].Score
		}
		if len(r[i].MatchedKeyword) != len(r[j].MatchedKeyword) {
			return len(r[i].MatchedKeyword) > len(r[j].MatchedKeyword)
		}
		return r[i].Category.Index < r[j].Category.Index
	})
}

// Top returns the highest-scoring ranking, or nil if empty.
func (r CategoryRankings) Top() *CategoryRanking {
	if len(r) == 0 {
		return nil
	}
	r.Sort()
	return &r[0]
}

// TopN returns the N highest-scoring rankings.
func (r CategoryRankings) TopN(n int) CategoryRankings {
	if n <= 0 {
		return CategoryRankings{}
	}
	r.Sort()
	if n > len(r) {
		n = len(r)
	}
	out := make(CategoryRankings, n)
	copy(out, r[:n])
	return out
}
