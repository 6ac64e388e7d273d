package tokenizer

import (
	"strings"
	"unicode"
)

// LanguageChinese selects character n-gram tokenization. Any other
// language value selects delimiter-based splitting.
const LanguageChinese = "zh"

// maxGram is the longest character n-gram emitted for Chinese text.
const maxGram = 5

// Config controls tokenization. The zero value tokenizes as a
// space-delimited language with no stop words and no stemming.
type Config struct {
	// Language selects the tokenization strategy. "zh" uses character
	// n-grams; everything else splits on whitespace and punctuation.
	Language string

	// StopWords are dropped by exact match after splitting. A nil or
	// empty set disables stop-word filtering.
	StopWords map[string]struct{}

	// Stemming applies a minimal suffix-stripping heuristic to non-CJK
	// tokens.
	Stemming bool
}

// Tokenize breaks text into an ordered sequence of index terms. Repeats
// are preserved; callers that need per-chunk counts must count
// occurrences themselves. The same config must be used at index time
// and query time or scores will not line up.
func Tokenize(text string, cfg Config) []string {
	if text == "" {
		return nil
	}

	var raw []string
	if cfg.Language == LanguageChinese {
		raw = ngramTokens(strings.ToLower(text))
	} else {
		raw = splitTokens(strings.ToLower(text))
	}

	tokens := raw[:0]
	for _, tok := range raw {
		if !hasWordRune(tok) {
			continue
		}
		if len(cfg.StopWords) > 0 {
			if _, stop := cfg.StopWords[tok]; stop {
				continue
			}
		}
		if cfg.Stemming && cfg.Language != LanguageChinese && !hasCJKRune(tok) {
			tok = stem(tok)
			if tok == "" {
				continue
			}
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// ngramTokens emits every contiguous run of 1..maxGram characters that
// does not cross whitespace or punctuation. Overlapping n-grams are all
// retained so exact-phrase and sub-phrase matches both score.
func ngramTokens(text string) []string {
	runes := []rune(text)
	tokens := make([]string, 0, len(runes)*2)
	for i := 0; i < len(runes); i++ {
		if isSeparator(runes[i]) {
			continue
		}
		for n := 1; n <= maxGram && i+n <= len(runes); n++ {
			if isSeparator(runes[i+n-1]) {
				break
			}
			tokens = append(tokens, string(runes[i:i+n]))
		}
	}
	return tokens
}

// splitTokens splits on runs of whitespace and punctuation.
func splitTokens(text string) []string {
	return strings.FieldsFunc(text, isSeparator)
}

func isSeparator(r rune) bool {
	return unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)
}

// hasWordRune reports whether the token contains at least one letter,
// digit, or CJK character.
func hasWordRune(tok string) bool {
	for _, r := range tok {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// IsCJKRune reports whether r is a CJK character. The token budget
// estimator weighs these characters differently from Latin text.
func IsCJKRune(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		unicode.Is(unicode.Hangul, r)
}

// hasCJKRune reports whether the token contains any CJK character.
func hasCJKRune(tok string) bool {
	for _, r := range tok {
		if IsCJKRune(r) {
			return true
		}
	}
	return false
}

// stemSuffixes are tried in priority order; only the first match is
// stripped.
var stemSuffixes = []string{"ing", "ed", "es", "s"}

// stem strips a single trailing suffix. Words short enough that
// stripping would leave fewer than two characters are left alone.
func stem(word string) string {
	for _, suffix := range stemSuffixes {
		if strings.HasSuffix(word, suffix) && len(word) >= len(suffix)+2 {
			return word[:len(word)-len(suffix)]
		}
	}
	return word
}
