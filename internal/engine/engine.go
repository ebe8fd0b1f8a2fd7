// Package engine implements the category matcher: it turns a free-text item
// description into a ranked set of taxonomy category suggestions. The
// primary path ranks by embedding similarity; when the embedding function is
// unavailable or times out, matching degrades to keyword containment
// instead of failing the registration.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jeonglab2/lost-items-desktop/internal/common"
	"github.com/jeonglab2/lost-items-desktop/internal/embedding"
	"github.com/jeonglab2/lost-items-desktop/internal/model"
	"github.com/jeonglab2/lost-items-desktop/internal/normalize"
	"github.com/jeonglab2/lost-items-desktop/internal/taxonomy"
)

// DefaultTopN is the suggestion count when the caller does not ask for one.
const DefaultTopN = 5

// Config holds configuration options for the suggester.
type Config struct {
	// EmbedTimeout bounds the embedding call on the primary path. On expiry
	// the suggester falls back to keyword matching.
	EmbedTimeout time.Duration
	// TopN is the default suggestion count.
	TopN int
	// FallbackLarge/FallbackMedium name the category returned with score 0
	// when nothing matches at all. When empty, or when the named pair is not
	// in the taxonomy, the taxonomy's last category stands in; New logs the
	// substitution.
	FallbackLarge  string
	FallbackMedium string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		EmbedTimeout:   2 * time.Second,
		TopN:           DefaultTopN,
		FallbackLarge:  "その他",
		FallbackMedium: "その他",
	}
}

// Suggester produces ranked category suggestions for classification queries.
type Suggester struct {
	tax     *taxonomy.Store
	vector  Matcher
	keyword Matcher
	cfg     Config
}

// New creates a Suggester over the taxonomy. embedder may be nil, in which
// case only the keyword path is available. The vector path additionally
// requires the taxonomy to carry precomputed vectors of the embedder's
// dimensionality.
func New(tax *taxonomy.Store, embedder embedding.Embedder, cfg Config) (*Suggester, error) {
	if tax == nil || tax.Len() == 0 {
		return nil, common.ErrTaxonomyUnavailable
	}
	if cfg.EmbedTimeout <= 0 {
		cfg.EmbedTimeout = DefaultConfig().EmbedTimeout
	}
	if cfg.TopN <= 0 {
		cfg.TopN = DefaultTopN
	}

	s := &Suggester{
		tax:     tax,
		keyword: NewKeywordMatcher(tax),
		cfg:     cfg,
	}

	if cfg.FallbackLarge != "" || cfg.FallbackMedium != "" {
		if _, ok := tax.Lookup(cfg.FallbackLarge, cfg.FallbackMedium); !ok {
			cats := tax.Categories()
			slog.Warn("configured fallback category not in taxonomy, using last category",
				"configured", cfg.FallbackLarge+"/"+cfg.FallbackMedium,
				"using", cats[len(cats)-1].Key())
		}
	}

	if embedder != nil {
		if !tax.HasVectors() {
			slog.Warn("category vectors missing or stale, vector matching disabled",
				"taxonomy_version", tax.Version())
		} else if tax.Dim() != embedder.Dim() {
			slog.Warn("category vectors do not match embedding model, vector matching disabled",
				"vector_dim", tax.Dim(), "model_dim", embedder.Dim())
		} else {
			s.vector = NewVectorMatcher(tax, embedder)
		}
	}

	return s, nil
}

// Degraded reports whether the suggester is running without the vector path.
func (s *Suggester) Degraded() bool {
	return s.vector == nil
}

// Suggest ranks taxonomy categories for the query and returns the top
// topN suggestions, descending by score with ties broken by matched keyword
// length and then taxonomy declaration order. topN <= 0 selects the
// configured default. Suggest fails only when the taxonomy is unusable;
// embedding trouble degrades to keyword matching.
func (s *Suggester) Suggest(ctx context.Context, query model.ClassificationQuery, topN int) (model.CategoryRankings, error) {
	if topN <= 0 {
		topN = s.cfg.TopN
	}

	text := normalize.Text(query.Text())
	if text == "" {
		return model.CategoryRankings{s.fallbackRanking()}, nil
	}

	rankings, err := s.match(ctx, text)
	if err != nil {
		return nil, err
	}

	rankings = rankings.TopN(topN)
	rankings = trimZeroScores(rankings)
	if len(rankings) == 0 {
		return model.CategoryRankings{s.fallbackRanking()}, nil
	}
	return rankings, nil
}

func (s *Suggester) match(ctx context.Context, text string) (model.CategoryRankings, error) {
	if s.vector != nil {
		embedCtx, cancel := context.WithTimeout(ctx, s.cfg.EmbedTimeout)
		rankings, err := s.vector.Match(embedCtx, text)
		cancel()
		if err == nil {
			return rankings, nil
		}
		slog.Warn("vector matching unavailable, degrading to keyword matching",
			"error", err)
	}

	rankings, err := s.keyword.Match(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("keyword match: %w", err)
	}
	return rankings, nil
}

// fallbackRanking is the zero-confidence suggestion returned when no
// category matches, so the caller always has something to confirm.
func (s *Suggester) fallbackRanking() model.CategoryRanking {
	if cat, ok := s.tax.Lookup(s.cfg.FallbackLarge, s.cfg.FallbackMedium); ok {
		return model.CategoryRanking{Category: cat, Score: 0}
	}
	cats := s.tax.Categories()
	return model.CategoryRanking{Category: cats[len(cats)-1], Score: 0}
}

func trimZeroScores(r model.CategoryRankings) model.CategoryRankings {
	out := r[:0]
	for _, ranking := range r {
		if ranking.Score > 0 {
			out = append(out, ranking)
		}
	}
	return out
}
