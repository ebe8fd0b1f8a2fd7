package embedding

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeVocab(t *testing.T, tokens ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vocab.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(tokens, "\n")+"\n"), 0o644))
	return path
}

func testVocab(t *testing.T) *wordpieceTokenizer {
	t.Helper()
	path := writeVocab(t,
		"[PAD]", "[UNK]", "[CLS]", "[SEP]", // 0..3
		"un", "##aff", "##able", // 4..6
		"snow", "##board", // 7..8
		"傘", "財", "布", // 9..11
		",", // 12
	)
	tok, err := newWordpieceTokenizer(path)
	require.NoError(t, err)
	return tok
}

func TestNewWordpieceTokenizer_Errors(t *testing.T) {
	_, err := newWordpieceTokenizer(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)

	noSpecials := writeVocab(t, "a", "b")
	_, err = newWordpieceTokenizer(noSpecials)
	assert.Error(t, err)
}

func TestWordpiece(t *testing.T) {
	tok := testVocab(t)

	tests := []struct {
		name string
		word string
		want []int64
	}{
		{name: "whole word", word: "snow", want: []int64{7}},
		{name: "greedy subwords", word: "snowboard", want: []int64{7, 8}},
		{name: "continuation chain", word: "unaffable", want: []int64{4, 5, 6}},
		{name: "unknown word", word: "xyzzy", want: []int64{1}},
		{name: "empty word", word: "", want: []int64{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tok.wordpiece(tt.word))
		})
	}
}

func TestEncode(t *testing.T) {
	tok := testVocab(t)

	// CJK characters tokenize individually, so "財布" splits into 財 and 布.
	ids := tok.encode("傘, 財布", 16)
	assert.Equal(t, []int64{2, 9, 12, 10, 11, 3}, ids)
}

func TestEncode_Truncates(t *testing.T) {
	tok := testVocab(t)

	ids := tok.encode("傘 傘 傘 傘 傘 傘", 5)
	assert.Len(t, ids, 5)
	assert.Equal(t, tok.clsID, ids[0])
	assert.Equal(t, tok.sepID, ids[len(ids)-1])
}

func TestBasicTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "lowercases latin",
			input: "Snow Board",
			want:  []string{"snow", "board"},
		},
		{
			name:  "isolates cjk characters",
			input: "財布と傘",
			want:  []string{"財", "布", "と", "傘"},
		},
		{
			name:  "splits punctuation",
			input: "wallet,umbrella",
			want:  []string{"wallet", ",", "umbrella"},
		},
		{
			name:  "empty input",
			input: "",
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := basicTokenize(tt.input)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
