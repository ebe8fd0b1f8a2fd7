package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "empty string",
			input: "",
			want:  "",
		},
		{
			name:  "full-width latin to half-width",
			input: "ＡＢＣ１２３",
			want:  "abc123",
		},
		{
			name:  "half-width kana to full-width",
			input: "ｶｻﾞｸﾞﾙﾏ",
			want:  "カザグルマ",
		},
		{
			name:  "latin case folding",
			input: "iPhone",
			want:  "iphone",
		},
		{
			name:  "long vowel mark removed",
			input: "カードケース",
			want:  "カドケス",
		},
		{
			name:  "va row folded to ba row",
			input: "ヴァイオリン",
			want:  "バイオリン",
		},
		{
			name:  "bare vu folded to bu",
			input: "ヴ",
			want:  "ブ",
		},
		{
			name:  "whitespace collapsed and trimmed",
			input: "  黒い   財布  ",
			want:  "黒い 財布",
		},
		{
			name:  "ideographic space collapsed",
			input: "黒い　財布",
			want:  "黒い 財布",
		},
		{
			name:  "mixed widths and case",
			input: "Ｎｉｎｔｅｎｄｏ Ｓｗｉｔｃｈ ｹｰｽ",
			want:  "nintendo switch ケス",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Text(tt.input))
		})
	}
}

func TestText_Idempotent(t *testing.T) {
	inputs := []string{"ヴァイオリンケース", "ＡＢＣ　ｄｅｆ", "ｽﾏｰﾄﾌｫﾝ"}
	for _, s := range inputs {
		once := Text(s)
		assert.Equal(t, once, Text(once), "normalizing twice must equal normalizing once for %q", s)
	}
}

func TestContains(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		substr string
		want   bool
	}{
		{
			name:   "plain containment",
			text:   "黒い折りたたみ傘",
			substr: "傘",
			want:   true,
		},
		{
			name:   "matches across width variants",
			text:   "ﾊﾞｯｸﾞの中に財布",
			substr: "バッグ",
			want:   true,
		},
		{
			name:   "matches across long vowel spelling",
			text:   "カードケース",
			substr: "ケス",
			want:   true,
		},
		{
			name:   "no match",
			text:   "黒い財布",
			substr: "傘",
			want:   false,
		},
		{
			name:   "empty substring never matches",
			text:   "黒い財布",
			substr: "",
			want:   false,
		},
		{
			name:   "whitespace-only substring never matches",
			text:   "黒い財布",
			substr: "   ",
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Contains(tt.text, tt.substr))
		})
	}
}
