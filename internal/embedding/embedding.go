// Package embedding provides the fixed, versioned text embedding function
// consumed by the category matcher. The engine never trains or fine-tunes a
// model; it only runs inference against a pretrained sentence encoder.
package embedding

import "context"

// Embedder produces a fixed-length vector for a piece of normalized text.
// Embed must honor context cancellation: the matcher bounds every call with
// a timeout and falls back to keyword matching when it expires.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dim() int
	Version() string
	Close() error
}
