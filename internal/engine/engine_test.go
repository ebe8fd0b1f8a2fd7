package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeonglab2/lost-items-desktop/internal/common"
	"github.com/jeonglab2/lost-items-desktop/internal/model"
	"github.com/jeonglab2/lost-items-desktop/internal/taxonomy"
)

const testDocument = `[
	{
		"large_category": "かさ類",
		"medium_categories": [
			{"medium_category": "傘", "keywords": ["傘", "折りたたみ傘", "日傘"]}
		]
	},
	{
		"large_category": "袋・かばん類",
		"medium_categories": [
			{"medium_category": "バッグ", "keywords": ["バッグ", "かばん", "リュック"]}
		]
	},
	{
		"large_category": "財布類",
		"medium_categories": [
			{"medium_category": "財布", "keywords": ["財布", "さいふ", "小銭入れ"]}
		]
	},
	{
		"large_category": "その他",
		"medium_categories": [
			{"medium_category": "その他", "keywords": ["その他", "不明"]}
		]
	}
]`

func testTaxonomy(t *testing.T) *taxonomy.Store {
	t.Helper()
	tax, err := taxonomy.Parse(strings.NewReader(testDocument))
	require.NoError(t, err)
	return tax
}

// stubEmbedder wraps a fixed vector function for matcher tests.
type stubEmbedder struct {
	fn      func(text string) ([]float32, error)
	dim     int
	version string
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return s.fn(text)
}
func (s *stubEmbedder) Dim() int        { return s.dim }
func (s *stubEmbedder) Version() string { return s.version }
func (s *stubEmbedder) Close() error    { return nil }

func TestKeywordMatcher(t *testing.T) {
	tax := testTaxonomy(t)
	matcher := NewKeywordMatcher(tax)

	tests := []struct {
		name        string
		text        string
		wantKeys    []string
		wantKeyword string
	}{
		{
			name:        "single category match",
			text:        "黒い折りたたみ傘",
			wantKeys:    []string{"かさ類/傘"},
			wantKeyword: "折りたたみ傘",
		},
		{
			name:     "multiple category match",
			text:     "バッグの中に財布",
			wantKeys: []string{"袋・かばん類/バッグ", "財布類/財布"},
		},
		{
			name:     "no match yields no rankings",
			text:     "鍵",
			wantKeys: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rankings, err := matcher.Match(context.Background(), tt.text)
			require.NoError(t, err)

			keys := make([]string, 0, len(rankings))
			for _, r := range rankings {
				assert.Equal(t, 1.0, r.Score)
				keys = append(keys, r.Category.Key())
			}
			assert.ElementsMatch(t, tt.wantKeys, keys)

			if tt.wantKeyword != "" {
				require.Len(t, rankings, 1)
				assert.Equal(t, tt.wantKeyword, rankings[0].MatchedKeyword)
			}
		})
	}
}

func TestVectorMatcher(t *testing.T) {
	tax := testTaxonomy(t)

	// Category vectors are axis-aligned; the query vector leans toward the
	// axis of the expected category.
	axes := map[string]int{}
	for i, c := range tax.Categories() {
		axes[c.Key()] = i
	}
	embed := func(text string) ([]float32, error) {
		vec := make([]float32, tax.Len())
		vec[axes["財布類/財布"]] = 1
		return vec, nil
	}

	vs, err := tax.BuildVectors(context.Background(), func(_ context.Context, kw string) ([]float32, error) {
		vec := make([]float32, tax.Len())
		for _, c := range tax.Categories() {
			if taxonomy.KeywordText(c) == kw {
				vec[axes[c.Key()]] = 1
			}
		}
		return vec, nil
	}, "stub@4", nil)
	require.NoError(t, err)
	_, err = tax.AttachVectors(vs)
	require.NoError(t, err)

	matcher := NewVectorMatcher(tax, &stubEmbedder{fn: embed, dim: tax.Len(), version: "stub@4"})

	rankings, err := matcher.Match(context.Background(), "さいふ")
	require.NoError(t, err)
	require.Len(t, rankings, tax.Len())

	top := rankings.Top()
	require.NotNil(t, top)
	assert.Equal(t, "財布類/財布", top.Category.Key())
	assert.InDelta(t, 1.0, top.Score, 1e-9)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{1}), "mismatched dims score zero")
	assert.Equal(t, 0.0, CosineSimilarity([]float32{0, 0}, []float32{1, 0}), "zero vector scores zero")
}

func TestSuggester_KeywordOnly(t *testing.T) {
	tax := testTaxonomy(t)
	s, err := New(tax, nil, DefaultConfig())
	require.NoError(t, err)
	assert.True(t, s.Degraded())

	rankings, err := s.Suggest(context.Background(), model.ClassificationQuery{Name: "赤い財布"}, 5)
	require.NoError(t, err)
	require.Len(t, rankings, 1)
	assert.Equal(t, "財布類/財布", rankings[0].Category.Key())
	assert.Equal(t, 100, rankings[0].ConfidencePercent())
}

func TestSuggester_FallbackRanking(t *testing.T) {
	tax := testTaxonomy(t)
	s, err := New(tax, nil, DefaultConfig())
	require.NoError(t, err)

	tests := []struct {
		name  string
		query model.ClassificationQuery
	}{
		{name: "nothing matches", query: model.ClassificationQuery{Name: "鍵"}},
		{name: "empty query", query: model.ClassificationQuery{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rankings, err := s.Suggest(context.Background(), tt.query, 5)
			require.NoError(t, err)
			require.Len(t, rankings, 1, "the fallback always yields exactly one suggestion")
			assert.Equal(t, "その他/その他", rankings[0].Category.Key())
			assert.Equal(t, 0, rankings[0].ConfidencePercent())
		})
	}
}

func TestSuggester_FallbackSubstitutesLastCategory(t *testing.T) {
	// A taxonomy without the configured fallback pair still yields a
	// suggestion: the last category stands in.
	doc := `[
		{
			"large_category": "かさ類",
			"medium_categories": [
				{"medium_category": "傘", "keywords": ["傘"]}
			]
		},
		{
			"large_category": "財布類",
			"medium_categories": [
				{"medium_category": "財布", "keywords": ["財布"]}
			]
		}
	]`
	tax, err := taxonomy.Parse(strings.NewReader(doc))
	require.NoError(t, err)

	s, err := New(tax, nil, DefaultConfig())
	require.NoError(t, err)

	rankings, err := s.Suggest(context.Background(), model.ClassificationQuery{Name: "鍵"}, 5)
	require.NoError(t, err)
	require.Len(t, rankings, 1)
	assert.Equal(t, "財布類/財布", rankings[0].Category.Key())
	assert.Equal(t, 0, rankings[0].ConfidencePercent())
}

func TestSuggester_DegradesOnEmbedderFailure(t *testing.T) {
	tax := testTaxonomy(t)

	vs, err := tax.BuildVectors(context.Background(), func(_ context.Context, _ string) ([]float32, error) {
		return []float32{1, 0}, nil
	}, "stub@2", nil)
	require.NoError(t, err)
	_, err = tax.AttachVectors(vs)
	require.NoError(t, err)

	failing := &stubEmbedder{
		fn:  func(string) ([]float32, error) { return nil, common.ErrEmbeddingUnavailable },
		dim: 2,
	}

	s, err := New(tax, failing, DefaultConfig())
	require.NoError(t, err)
	assert.False(t, s.Degraded())

	// The embedder fails at query time; the keyword path still answers.
	rankings, err := s.Suggest(context.Background(), model.ClassificationQuery{Name: "折りたたみ傘"}, 5)
	require.NoError(t, err)
	require.Len(t, rankings, 1)
	assert.Equal(t, "かさ類/傘", rankings[0].Category.Key())
}

func TestSuggester_DimensionMismatchDisablesVectors(t *testing.T) {
	tax := testTaxonomy(t)

	vs, err := tax.BuildVectors(context.Background(), func(_ context.Context, _ string) ([]float32, error) {
		return []float32{1, 0}, nil
	}, "stub@2", nil)
	require.NoError(t, err)
	_, err = tax.AttachVectors(vs)
	require.NoError(t, err)

	wrongDim := &stubEmbedder{
		fn:  func(string) ([]float32, error) { return []float32{1, 0, 0}, nil },
		dim: 3,
	}

	s, err := New(tax, wrongDim, DefaultConfig())
	require.NoError(t, err)
	assert.True(t, s.Degraded())
}

func TestSuggester_EmptyTaxonomy(t *testing.T) {
	_, err := New(nil, nil, DefaultConfig())
	assert.ErrorIs(t, err, common.ErrTaxonomyUnavailable)
}

func TestSuggester_TopNBound(t *testing.T) {
	tax := testTaxonomy(t)
	s, err := New(tax, nil, DefaultConfig())
	require.NoError(t, err)

	rankings, err := s.Suggest(context.Background(), model.ClassificationQuery{Name: "バッグの中に財布と日傘"}, 2)
	require.NoError(t, err)
	assert.Len(t, rankings, 2)
}
