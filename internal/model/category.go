// Package model defines the core data structures for the lost-items application.
package model

import "fmt"

// Category is an immutable taxonomy node: a (large, medium) label pair with
// its keyword list and, once precomputed, an embedding vector.
type Category struct {
	Large    string
	Medium   string
	Keywords []string
	// Embedding is nil until category vectors have been precomputed and
	// attached by the taxonomy store.
	Embedding []float32
	// Index is the category's declaration order within the taxonomy
	// document. Used as the final tie-breaker when ranking suggestions.
	Index int
}

// Key returns the unique identity of the category within a taxonomy version.
func (c Category) Key() string {
	return c.Large + "/" + c.Medium
}

// HasEmbedding reports whether a precomputed vector is attached.
func (c Category) HasEmbedding() bool {
	return len(c.Embedding) > 0
}

// Validate ensures the Category has valid data.
func (c *Category) Validate() error {
	if c.Large == "" {
		return fmt.Errorf("large category label is required")
	}
	if c.Medium == "" {
		return fmt.Errorf("medium category label is required")
	}
	if len(c.Keywords) == 0 {
		return fmt.Errorf("category %s has no keywords", c.Key())
	}
	return nil
}
