package engine

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/jeonglab2/lost-items-desktop/internal/embedding"
	"github.com/jeonglab2/lost-items-desktop/internal/model"
	"github.com/jeonglab2/lost-items-desktop/internal/normalize"
	"github.com/jeonglab2/lost-items-desktop/internal/taxonomy"
)

// Matcher ranks every taxonomy category against canonical query text.
// Implementations are pure with respect to the taxonomy and safe for
// unbounded concurrent use.
type Matcher interface {
	// Match scores all categories for text, which must already be in
	// canonical form (see normalize.Text). The result is unsorted.
	Match(ctx context.Context, text string) (model.CategoryRankings, error)
	// Name identifies the strategy in logs.
	Name() string
}

// KeywordMatcher scores categories by normalized keyword containment:
// 1.0 when any of the category's keywords appears as a substring of the
// query text, 0.0 otherwise. The longest matching keyword is recorded so
// score ties resolve toward the more specific category.
type KeywordMatcher struct {
	tax *taxonomy.Store
}

// NewKeywordMatcher creates the fallback matcher over the given taxonomy.
func NewKeywordMatcher(tax *taxonomy.Store) *KeywordMatcher {
	return &KeywordMatcher{tax: tax}
}

// Name implements Matcher.
func (m *KeywordMatcher) Name() string { return "keyword" }

// Match implements Matcher. Categories with no matching keyword are
// omitted; a zero-score entry carries no information for the caller.
func (m *KeywordMatcher) Match(_ context.Context, text string) (model.CategoryRankings, error) {
	var rankings model.CategoryRankings

	for _, cat := range m.tax.Categories() {
		best := ""
		for _, kw := range cat.Keywords {
			norm := normalize.Text(kw)
			if norm == "" || !strings.Contains(text, norm) {
				continue
			}
			if len(norm) > len(best) {
				best = norm
			}
		}
		if best != "" {
			rankings = append(rankings, model.CategoryRanking{
				Category:       cat,
				Score:          1.0,
				MatchedKeyword: best,
			})
		}
	}

	return rankings, nil
}

// VectorMatcher scores categories by cosine similarity between the query
// embedding and each category's precomputed vector. The scan is linear over
// the taxonomy, which stays in the hundreds of entries.
type VectorMatcher struct {
	tax      *taxonomy.Store
	embedder embedding.Embedder
}

// NewVectorMatcher creates the primary matcher. The taxonomy must have
// vectors attached and the embedder must be the same model version the
// vectors were computed with; callers check both before constructing one.
func NewVectorMatcher(tax *taxonomy.Store, embedder embedding.Embedder) *VectorMatcher {
	return &VectorMatcher{tax: tax, embedder: embedder}
}

// Name implements Matcher.
func (m *VectorMatcher) Name() string { return "vector" }

// Match implements Matcher.
func (m *VectorMatcher) Match(ctx context.Context, text string) (model.CategoryRankings, error) {
	queryVec, err := m.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("vector match: %w", err)
	}

	rankings := make(model.CategoryRankings, 0, m.tax.Len())
	for _, cat := range m.tax.Categories() {
		if !cat.HasEmbedding() {
			continue
		}
		score := CosineSimilarity(queryVec, cat.Embedding)
		// Negative similarity carries no more ranking information than
		// "unrelated"; clamp so scores stay in [0,1].
		if score < 0 {
			score = 0
		}
		rankings = append(rankings, model.CategoryRanking{
			Category: cat,
			Score:    score,
		})
	}

	return rankings, nil
}

// CosineSimilarity scores two vectors in [-1, 1]. Mismatched dimensions and
// zero vectors score zero.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
