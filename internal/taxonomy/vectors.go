package taxonomy

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// VectorEntry is one precomputed category vector together with the keyword
// checksum it was computed from.
type VectorEntry struct {
	Checksum string    `json:"checksum"`
	Vector   []float32 `json:"vector"`
}

// VectorSet is the on-disk category vector file. Vectors are keyed by
// category key and tagged with the embedding model version so a model swap
// invalidates the whole file.
type VectorSet struct {
	ModelVersion string                 `json:"model_version"`
	Dimension    int                    `json:"dimension"`
	Entries      map[string]VectorEntry `json:"entries"`
}

// LoadVectors reads a vector file from path.
func LoadVectors(path string) (*VectorSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("vectors: %w", err)
	}
	var vs VectorSet
	if err := json.Unmarshal(data, &vs); err != nil {
		return nil, fmt.Errorf("vectors: parse %s: %w", path, err)
	}
	return &vs, nil
}

// Save writes the vector set to path, creating parent directories.
func (vs *VectorSet) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("vectors: %w", err)
	}
	data, err := json.Marshal(vs)
	if err != nil {
		return fmt.Errorf("vectors: encode: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// AttachVectors attaches precomputed vectors to matching categories. A
// category whose keyword checksum differs from the stored entry keeps a nil
// embedding; the matcher then treats the whole store as vector-less and the
// operator re-runs precompute. Returns how many categories got a vector.
func (s *Store) AttachVectors(vs *VectorSet) (int, error) {
	if vs.Dimension <= 0 {
		return 0, fmt.Errorf("vectors: invalid dimension %d", vs.Dimension)
	}

	attached := 0
	for i := range s.categories {
		entry, ok := vs.Entries[s.categories[i].Key()]
		if !ok || entry.Checksum != keywordChecksum(s.categories[i]) {
			continue
		}
		if len(entry.Vector) != vs.Dimension {
			return attached, fmt.Errorf("vectors: %s has dimension %d, want %d",
				s.categories[i].Key(), len(entry.Vector), vs.Dimension)
		}
		s.categories[i].Embedding = entry.Vector
		attached++
	}

	if attached > 0 {
		s.dim = vs.Dimension
	}
	return attached, nil
}

// BuildVectors computes a fresh vector set for every category using the
// supplied embedding function. progress may be nil.
func (s *Store) BuildVectors(ctx context.Context, embed func(context.Context, string) ([]float32, error), modelVersion string, progress func(done, total int)) (*VectorSet, error) {
	vs := &VectorSet{
		ModelVersion: modelVersion,
		Entries:      make(map[string]VectorEntry, len(s.categories)),
	}

	for i, cat := range s.categories {
		vec, err := embed(ctx, KeywordText(cat))
		if err != nil {
			return nil, fmt.Errorf("vectors: embed %s: %w", cat.Key(), err)
		}
		if vs.Dimension == 0 {
			vs.Dimension = len(vec)
		}
		if len(vec) != vs.Dimension {
			return nil, fmt.Errorf("vectors: %s has dimension %d, want %d", cat.Key(), len(vec), vs.Dimension)
		}
		vs.Entries[cat.Key()] = VectorEntry{
			Checksum: keywordChecksum(cat),
			Vector:   vec,
		}
		if progress != nil {
			progress(i+1, len(s.categories))
		}
	}

	return vs, nil
}
