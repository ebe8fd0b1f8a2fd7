package model

import "strings"

// ClassificationQuery is the ephemeral input to the category matcher:
// free-text fields describing a found item, optionally pre-filled by the
// external visual feature extractor, plus rights-claim flags and hints.
type ClassificationQuery struct {
	Name     string
	Features string
	Color    string

	ClaimsOwnership bool
	ClaimsReward    bool

	// FoodHint and UmbrellaHint are optional pre-extracted signals from the
	// visual feature extractor. Nil means "no hint"; the slot allocator then
	// falls back to category and feature-text inspection.
	FoodHint     *bool
	UmbrellaHint *bool
}

// Text concatenates the query's free-text fields into the single string the
// matcher normalizes and scores.
func (q ClassificationQuery) Text() string {
	parts := make([]string, 0, 3)
	for _, s := range []string{q.Name, q.Features, q.Color} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// Empty reports whether the query carries no usable text at all.
func (q ClassificationQuery) Empty() bool {
	return strings.TrimSpace(q.Name) == "" &&
		strings.TrimSpace(q.Features) == "" &&
		strings.TrimSpace(q.Color) == ""
}
