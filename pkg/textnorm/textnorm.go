// Package textnorm canonicalizes answer text extracted from scanned homework
// so that baseline and AI-produced answers can be compared reliably.
package textnorm

import (
	"html"
	"regexp"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

// punctuationMap translates CJK and full-width punctuation to its ASCII
// counterpart. It canonicalizes representation only and never drops characters.
var punctuationMap = map[rune]string{
	'，': ",",
	'。': ".",
	'、': ",",
	'；': ";",
	'：': ":",
	'！': "!",
	'？': "?",
	'（': "(",
	'）': ")",
	'【': "[",
	'】': "]",
	'《': "<",
	'》': ">",
	'〈': "<",
	'〉': ">",
	'「': "\"",
	'」': "\"",
	'『': "\"",
	'』': "\"",
	'〔': "(",
	'〕': ")",
	'｛': "{",
	'｝': "}",
	'“': "\"",
	'”': "\"",
	'‘': "'",
	'’': "'",
	'～': "~",
	'—': "-",
	'–': "-",
	'·': ".",
	'…': "...",
	'×': "*",
	'÷': "/",
	'　': " ",
}

var (
	htmlPolicy = bluemonday.StrictPolicy()

	escapedWhitespaceRe = regexp.MustCompile(`\\[nrt]`)
	literalWhitespaceRe = regexp.MustCompile(`[\n\r\t]+`)

	codeSpanRe       = regexp.MustCompile("`([^`]+)`")
	boldStarRe       = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	boldUnderscoreRe = regexp.MustCompile(`__([^_]+)__`)
	emphasisStarRe   = regexp.MustCompile(`(^|\s)\*([^*\s][^*]*)\*`)
	emphasisUnderRe  = regexp.MustCompile(`(^|\s)_([^_\s][^_]*)_`)

	circledNumberRe = regexp.MustCompile(`\s*([\x{2460}-\x{246E}])\s*`)
)

// mathSymbolMap rewrites mathematical notation into the ASCII tokens the
// comparison form keeps. Applied by NormalizeAnswer after markdown stripping.
var mathSymbolMap = map[rune]string{
	'×': "*",
	'÷': "/",
	'√': "sqrt",
	'°': "deg",
	'±': "+-",
	'π': "pi",
	'²': "^2",
	'³': "^3",
	'≤': "<=",
	'≥': ">=",
	'≠': "<>",
}

// removablePunctuation lists every punctuation rune NormalizeAnswer deletes
// after math symbols have been rewritten. Math token characters (* / + - ^ < >
// =) are deliberately absent so rewritten symbols survive.
const removablePunctuation = "，。、；：！？“”‘’（）【】《》〈〉「」『』〔〕｛｝～·…—" +
	",.;:!?\"'()[]{}~@#$%&\\|_`•"

// NormalizePunctuation maps full-width and CJK punctuation, full-width digits
// and full-width Latin letters to their ASCII equivalents. It removes nothing
// and is idempotent.
func NormalizePunctuation(input string) string {
	if input == "" {
		return ""
	}

	var builder strings.Builder
	builder.Grow(len(input))
	for _, r := range input {
		switch {
		case r >= '０' && r <= '９', r >= 'Ａ' && r <= 'Ｚ', r >= 'ａ' && r <= 'ｚ':
			// Full-width alphanumerics sit a fixed offset above ASCII.
			builder.WriteRune(r - 0xFEE0)
		default:
			if mapped, ok := punctuationMap[r]; ok {
				builder.WriteString(mapped)
			} else {
				builder.WriteRune(r)
			}
		}
	}

	return builder.String()
}

// NormalizeAnswer produces the strict comparison form of an answer: width and
// punctuation canonicalized, lower-cased, HTML and markdown markers stripped,
// math symbols rewritten to ASCII tokens, remaining punctuation removed and
// all whitespace collapsed away. The result is suitable for exact equality
// checks; empty input maps to the empty string.
func NormalizeAnswer(input string) string {
	if input == "" {
		return ""
	}

	text := NormalizePunctuation(input)
	text = strings.ToLower(text)
	text = stripHTML(text)

	text = escapedWhitespaceRe.ReplaceAllString(text, " ")
	text = literalWhitespaceRe.ReplaceAllString(text, " ")

	text = stripMarkdown(text)

	text = rewriteMathSymbols(text)

	text = strings.Map(func(r rune) rune {
		if strings.ContainsRune(removablePunctuation, r) {
			return -1
		}
		return r
	}, text)

	text = circledNumberRe.ReplaceAllString(text, "$1")

	text = strings.Join(strings.Fields(text), "")

	// Collapsing whitespace can butt stray * and _ markers against their
	// neighbours and manufacture emphasis spans a single strip pass never
	// saw. Re-strip until the text stops changing so normalizing an
	// already-normalized answer is a no-op.
	for {
		stripped := strings.Join(strings.Fields(stripMarkdown(text)), "")
		if stripped == text {
			return text
		}
		text = stripped
	}
}

// stripMarkdown removes inline markdown markers (code spans, bold, emphasis)
// while keeping their content.
func stripMarkdown(s string) string {
	s = codeSpanRe.ReplaceAllString(s, "$1")
	s = boldStarRe.ReplaceAllString(s, "$1")
	s = boldUnderscoreRe.ReplaceAllString(s, "$1")
	s = emphasisStarRe.ReplaceAllString(s, "$1$2")
	s = emphasisUnderRe.ReplaceAllString(s, "$1$2")
	return s
}

// NormalizeForSimilarity produces the loose bag-of-characters form used by the
// similarity scorer: punctuation canonicalized, lower-cased, HTML stripped,
// then every rune that is not a letter or a number (CJK ideographs and circled
// markers included) is discarded. Hyphens, underscores and the ASCII math
// tokens are intentionally not preserved here.
func NormalizeForSimilarity(input string) string {
	if input == "" {
		return ""
	}

	text := NormalizePunctuation(input)
	text = strings.ToLower(text)
	text = stripHTML(text)

	var builder strings.Builder
	builder.Grow(len(text))
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			builder.WriteRune(r)
		}
	}

	return builder.String()
}

func rewriteMathSymbols(input string) string {
	var builder strings.Builder
	builder.Grow(len(input))
	for _, r := range input {
		if mapped, ok := mathSymbolMap[r]; ok {
			builder.WriteString(mapped)
		} else {
			builder.WriteRune(r)
		}
	}
	return builder.String()
}

func stripHTML(input string) string {
	if !strings.ContainsAny(input, "<&") {
		return input
	}
	// The strict policy escapes residual entities; unescape to recover the
	// original text content.
	return html.UnescapeString(htmlPolicy.Sanitize(input))
}
