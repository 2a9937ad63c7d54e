package textnorm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizePunctuation(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "cjk punctuation", input: "你好，世界。真的！吗？", expected: "你好,世界.真的!吗?"},
		{name: "brackets and quotes", input: "（一）【二】“三”", expected: "(一)[二]\"三\""},
		{name: "full-width alphanumerics", input: "ＡＢＣ１２３ｘｙｚ", expected: "ABC123xyz"},
		{name: "ellipsis and dash", input: "等等……对—了", expected: "等等......对-了"},
		{name: "multiplication and division", input: "３×２÷１", expected: "3*2/1"},
		{name: "untouched ascii", input: "plain text, unchanged.", expected: "plain text, unchanged."},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, NormalizePunctuation(tc.input))
		})
	}
}

func TestNormalizePunctuationIdempotent(t *testing.T) {
	inputs := []string{"你好，世界。", "ＡＢＣ１２３", "（混合）mixed, text!", ""}
	for _, input := range inputs {
		once := NormalizePunctuation(input)
		require.Equal(t, once, NormalizePunctuation(once))
	}
}

func TestNormalizeAnswer(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty", input: "", expected: ""},
		{name: "case folding", input: "The Answer", expected: "theanswer"},
		{name: "punctuation removed", input: "答案：正确！", expected: "答案正确"},
		{name: "html stripped", input: "<p>Hello <b>world</b></p>", expected: "helloworld"},
		{name: "markdown stripped", input: "**bold** and `code`", expected: "boldandcode"},
		{name: "escaped newlines collapsed", input: "line1\\nline2\\tline3", expected: "line1line2line3"},
		{name: "literal newlines collapsed", input: "line1\nline2\tline3", expected: "line1line2line3"},
		{name: "math symbols", input: "3 × 4 ÷ 2", expected: "3*4/2"},
		{name: "sqrt and degrees", input: "√2 与 90°", expected: "sqrt2与90deg"},
		{name: "inequality", input: "a ≥ b", expected: "a>=b"},
		{name: "circled markers", input: "① 对 ② 错", expected: "①对②错"},
		{name: "fraction preserved", input: "3/4", expected: "3/4"},
		{name: "full-width digits", input: "０.７５", expected: "075"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, NormalizeAnswer(tc.input))
		})
	}
}

func TestNormalizeAnswerIdempotent(t *testing.T) {
	inputs := []string{
		"The Answer",
		"答案：正确！",
		"<p>Hello <b>world</b></p>",
		"**bold** and `code`",
		"3 × 4 ÷ 2",
		"√2 与 90°",
		"① 对 ② 错",
		"stopped",
		// Whitespace removal can butt multiplication stars against their
		// neighbours and form emphasis spans late in the pipeline.
		"× ×3× ×",
		"2 × × 5 × ×",
		"* 3 *",
		"",
	}

	for _, input := range inputs {
		once := NormalizeAnswer(input)
		require.Equal(t, once, NormalizeAnswer(once), "input %q", input)
	}
}

func TestNormalizeForSimilarity(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty", input: "", expected: ""},
		{name: "mixed text", input: "答案：Yes!", expected: "答案yes"},
		{name: "math dropped", input: "3/4 = 0.75", expected: "34075"},
		{name: "hyphen and underscore dropped", input: "one-two_three", expected: "onetwothree"},
		{name: "circled marker kept", input: "① answer", expected: "①answer"},
		{name: "html stripped", input: "<i>斜体</i>字", expected: "斜体字"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, NormalizeForSimilarity(tc.input))
		})
	}
}

func TestParseCorrect(t *testing.T) {
	truthy := []interface{}{true, "yes", "Yes", "YES", "true", "True", " true "}
	for _, value := range truthy {
		result, err := ParseCorrect(value)
		require.NoError(t, err)
		require.True(t, result)
	}

	falsy := []interface{}{false, "no", "No", "FALSE", "false"}
	for _, value := range falsy {
		result, err := ParseCorrect(value)
		require.NoError(t, err)
		require.False(t, result)
	}

	invalid := []interface{}{"maybe", "", "1", 1, 1.0, nil}
	for _, value := range invalid {
		_, err := ParseCorrect(value)
		require.Error(t, err)
		require.ErrorIs(t, err, ErrCorrectFlag)
	}
}
