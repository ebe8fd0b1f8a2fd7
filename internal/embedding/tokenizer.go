package embedding

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"
)

// wordpieceTokenizer performs BERT-style WordPiece tokenization against a
// vocab.txt vocabulary (one token per line, line number is the token ID).
type wordpieceTokenizer struct {
	ids map[string]int64

	padID int64
	unkID int64
	clsID int64
	sepID int64
}

func newWordpieceTokenizer(vocabPath string) (*wordpieceTokenizer, error) {
	f, err := os.Open(vocabPath)
	if err != nil {
		return nil, fmt.Errorf("embedding: open vocab: %w", err)
	}
	defer func() { _ = f.Close() }()

	t := &wordpieceTokenizer{ids: make(map[string]int64, 32000)}

	scanner := bufio.NewScanner(f)
	var n int64
	for scanner.Scan() {
		t.ids[scanner.Text()] = n
		n++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("embedding: read vocab: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("embedding: vocab %s is empty", vocabPath)
	}

	for _, special := range []struct {
		token string
		dest  *int64
	}{
		{"[PAD]", &t.padID},
		{"[UNK]", &t.unkID},
		{"[CLS]", &t.clsID},
		{"[SEP]", &t.sepID},
	} {
		id, ok := t.ids[special.token]
		if !ok {
			return nil, fmt.Errorf("embedding: vocab missing %s", special.token)
		}
		*special.dest = id
	}

	return t, nil
}

// encode converts text into a [CLS] ... [SEP] token ID sequence, truncated
// so the total length never exceeds maxLen.
func (t *wordpieceTokenizer) encode(text string, maxLen int) []int64 {
	words := basicTokenize(text)

	out := make([]int64, 0, maxLen)
	out = append(out, t.clsID)
	for _, word := range words {
		for _, sub := range t.wordpiece(word) {
			if len(out) == maxLen-1 {
				break
			}
			out = append(out, sub)
		}
	}
	return append(out, t.sepID)
}

// wordpiece decomposes one basic token into subword IDs using greedy
// longest-match-first, with ## continuation prefixes. An undecomposable
// token maps to [UNK].
func (t *wordpieceTokenizer) wordpiece(word string) []int64 {
	runes := []rune(word)
	if len(runes) == 0 || len(runes) > 100 {
		return []int64{t.unkID}
	}

	var subs []int64
	start := 0
	for start < len(runes) {
		end := len(runes)
		matched := int64(-1)
		for end > start {
			sub := string(runes[start:end])
			if start > 0 {
				sub = "##" + sub
			}
			if id, ok := t.ids[sub]; ok {
				matched = id
				break
			}
			end--
		}
		if matched < 0 {
			return []int64{t.unkID}
		}
		subs = append(subs, matched)
		start = end
	}
	return subs
}

// basicTokenize lowercases, isolates CJK ideographs as single-character
// tokens, and splits on whitespace and punctuation, matching BERT's
// BasicTokenizer closely enough for the vocabularies we load.
func basicTokenize(text string) []string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4)
	for _, r := range strings.ToLower(text) {
		switch {
		case r == 0 || r == 0xFFFD || isBERTControl(r):
			// drop
		case isCJK(r):
			b.WriteRune(' ')
			b.WriteRune(r)
			b.WriteRune(' ')
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		case isBERTPunct(r):
			b.WriteRune(' ')
			b.WriteRune(r)
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Fields(b.String())
}

func isBERTControl(r rune) bool {
	if r == '\t' || r == '\n' || r == '\r' {
		return false
	}
	return unicode.IsControl(r)
}

// isBERTPunct mirrors BERT's punctuation classes: the ASCII symbol ranges
// plus the Unicode punctuation categories.
func isBERTPunct(r rune) bool {
	if (r >= 33 && r <= 47) || (r >= 58 && r <= 64) ||
		(r >= 91 && r <= 96) || (r >= 123 && r <= 126) {
		return true
	}
	return unicode.IsPunct(r)
}

// isCJK covers the CJK Unified Ideograph blocks.
func isCJK(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) ||
		(r >= 0x3400 && r <= 0x4DBF) ||
		(r >= 0x20000 && r <= 0x2A6DF) ||
		(r >= 0xF900 && r <= 0xFAFF) ||
		(r >= 0x2F800 && r <= 0x2FA1F)
}
