// Package taxonomy loads and holds the category graph used for
// classification: large categories, their medium categories, and keyword
// lists, plus one precomputed embedding vector per medium category once
// available.
package taxonomy

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jeonglab2/lost-items-desktop/internal/common"
	"github.com/jeonglab2/lost-items-desktop/internal/model"
	"github.com/jeonglab2/lost-items-desktop/internal/normalize"
)

// document mirrors the on-disk taxonomy JSON shape.
type document []struct {
	Large   string `json:"large_category"`
	Mediums []struct {
		Medium   string   `json:"medium_category"`
		Keywords []string `json:"keywords"`
	} `json:"medium_categories"`
}

// Store holds a loaded taxonomy version. Categories and their keyword text
// are immutable after load; only vector attachment mutates the store, and
// that happens once during startup before any matching begins.
type Store struct {
	categories []model.Category
	version    string
	dim        int
}

// Load reads a taxonomy document from path.
func Load(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrTaxonomyUnavailable, err)
	}
	defer func() { _ = f.Close() }()
	return Parse(f)
}

// Parse reads a taxonomy document from r and builds a Store.
func Parse(r io.Reader) (*Store, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: parse: %v", common.ErrTaxonomyUnavailable, err)
	}
	return fromDocument(doc)
}

func fromDocument(doc document) (*Store, error) {
	s := &Store{}
	seen := make(map[string]bool)

	for _, large := range doc {
		for _, medium := range large.Mediums {
			cat := model.Category{
				Large:    large.Large,
				Medium:   medium.Medium,
				Keywords: medium.Keywords,
				Index:    len(s.categories),
			}
			if err := cat.Validate(); err != nil {
				return nil, fmt.Errorf("%w: %v", common.ErrTaxonomyUnavailable, err)
			}
			if seen[cat.Key()] {
				return nil, fmt.Errorf("%w: duplicate category %s", common.ErrTaxonomyUnavailable, cat.Key())
			}
			seen[cat.Key()] = true
			s.categories = append(s.categories, cat)
		}
	}

	if len(s.categories) == 0 {
		return nil, fmt.Errorf("%w: document has no categories", common.ErrTaxonomyUnavailable)
	}

	s.version = computeVersion(s.categories)
	return s, nil
}

// Categories returns all categories in declaration order.
func (s *Store) Categories() []model.Category {
	return s.categories
}

// Len returns the number of medium categories.
func (s *Store) Len() int {
	return len(s.categories)
}

// Version is a digest over every category's canonical keyword text. It
// changes whenever the document's keyword content changes, which is what
// invalidates precomputed vectors.
func (s *Store) Version() string {
	return s.version
}

// Dim returns the attached vector dimensionality, or 0 when no vectors are
// attached.
func (s *Store) Dim() int {
	return s.dim
}

// HasVectors reports whether every category carries a precomputed vector.
func (s *Store) HasVectors() bool {
	if len(s.categories) == 0 {
		return false
	}
	for _, c := range s.categories {
		if !c.HasEmbedding() {
			return false
		}
	}
	return true
}

// Lookup returns the category with the given large/medium labels.
func (s *Store) Lookup(large, medium string) (model.Category, bool) {
	for _, c := range s.categories {
		if c.Large == large && c.Medium == medium {
			return c, true
		}
	}
	return model.Category{}, false
}

// KeywordText returns the canonical keyword text a category's vector is
// computed from.
func KeywordText(c model.Category) string {
	return normalize.Text(strings.Join(c.Keywords, " "))
}

// keywordChecksum identifies a category's keyword content. A vector computed
// against a different checksum is stale and must not be attached.
func keywordChecksum(c model.Category) string {
	sum := sha256.Sum256([]byte(KeywordText(c)))
	return hex.EncodeToString(sum[:])
}

func computeVersion(categories []model.Category) string {
	h := sha256.New()
	for _, c := range categories {
		_, _ = io.WriteString(h, c.Key())
		_, _ = io.WriteString(h, "\x00")
		_, _ = io.WriteString(h, keywordChecksum(c))
		_, _ = io.WriteString(h, "\n")
	}
	return hex.EncodeToString(h.Sum(nil))
}
