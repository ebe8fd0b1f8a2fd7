package taxonomy

import (
	"bytes"
	_ "embed"
)

//go:embed default_taxonomy.json
var defaultDocument []byte

// Default returns the built-in taxonomy, used when no document path is
// configured. The embedded document is validated at build time by the
// package tests, so parsing it cannot fail at runtime.
func Default() *Store {
	s, err := Parse(bytes.NewReader(defaultDocument))
	if err != nil {
		panic("taxonomy: embedded default document is invalid: " + err.Error())
	}
	return s
}
