// Package normalize canonicalizes item description text before any
// comparison. The exact same folding must be applied to taxonomy keyword
// text at vector-precompute time and to every runtime query; similarity
// scores are only meaningful when both sides went through this function.
package normalize

import (
	"strings"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// vaRow folds katakana va-row spellings to their common ba-row forms so
// "ヴァイオリン" and "バイオリン" compare equal. Pairs are listed before the
// bare ヴ so the two-rune forms win.
var vaRow = strings.NewReplacer(
	"ヴァ", "バ",
	"ヴィ", "ビ",
	"ヴェ", "ベ",
	"ヴォ", "ボ",
	"ヴ", "ブ",
)

// Text returns the canonical form of s: NFKC compatibility folding, width
// folding (full-width Latin to half-width, half-width kana to full-width),
// Latin case folding, katakana long-vowel-mark removal, va-row folding, and
// whitespace collapsed to single spaces with the ends trimmed.
func Text(s string) string {
	if s == "" {
		return ""
	}

	// The wave dash has two code points that survive NFKC as distinct
	// characters; fold them before normalizing.
	s = strings.ReplaceAll(s, "〜", "～")

	s = norm.NFKC.String(s)
	s = width.Fold.String(s)
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "ー", "")
	s = vaRow.Replace(s)

	return strings.Join(strings.Fields(s), " ")
}

// Contains reports whether the canonical form of text contains the
// canonical form of substr. Empty substrings never match.
func Contains(text, substr string) bool {
	sub := Text(substr)
	if sub == "" {
		return false
	}
	return strings.Contains(Text(text), sub)
}
