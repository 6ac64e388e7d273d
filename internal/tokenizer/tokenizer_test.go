package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize_Default(t *testing.T) {
	tokens := Tokenize("The Quick, brown fox!", Config{})
	assert.Equal(t, []string{"the", "quick", "brown", "fox"}, tokens)
}

func TestTokenize_Empty(t *testing.T) {
	assert.Empty(t, Tokenize("", Config{}))
	assert.Empty(t, Tokenize("...!!!", Config{}))
	assert.Empty(t, Tokenize("   ", Config{}))
}

func TestTokenize_RepeatsPreserved(t *testing.T) {
	tokens := Tokenize("go go go", Config{})
	assert.Equal(t, []string{"go", "go", "go"}, tokens)
}

func TestTokenize_StopWords(t *testing.T) {
	cfg := Config{
		StopWords: map[string]struct{}{"the": {}, "a": {}},
	}
	tokens := Tokenize("The cat and a dog", cfg)
	assert.Equal(t, []string{"cat", "and", "dog"}, tokens)
}

func TestTokenize_Stemming(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"ing suffix", "running jumping", []string{"runn", "jump"}},
		{"ed suffix", "walked", []string{"walk"}},
		{"es suffix", "boxes", []string{"box"}},
		{"s suffix", "cats", []string{"cat"}},
		{"ing beats s", "kings", []string{"king"}},
		{"too short to strip", "is", []string{"is"}},
	}
	cfg := Config{Stemming: true}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.in, cfg))
		})
	}
}

func TestTokenize_StemmingSkipsChinese(t *testing.T) {
	cfg := Config{Language: LanguageChinese, Stemming: true}
	tokens := Tokenize("猫s", cfg)
	// n-grams over the two characters; no stemming applied to CJK runs
	assert.Contains(t, tokens, "猫")
	assert.Contains(t, tokens, "猫s")
}

func TestTokenize_ChineseNgrams(t *testing.T) {
	cfg := Config{Language: LanguageChinese}
	tokens := Tokenize("猫吃鱼", cfg)
	want := []string{"猫", "猫吃", "猫吃鱼", "吃", "吃鱼", "鱼"}
	assert.Equal(t, want, tokens)
}

func TestTokenize_ChineseNgramsStopAtPunctuation(t *testing.T) {
	cfg := Config{Language: LanguageChinese}
	tokens := Tokenize("猫，鱼", cfg)
	// no n-gram may span the comma
	assert.ElementsMatch(t, []string{"猫", "鱼"}, tokens)
}

func TestTokenize_ChineseMaxGramLength(t *testing.T) {
	cfg := Config{Language: LanguageChinese}
	tokens := Tokenize("一二三四五六", cfg)
	for _, tok := range tokens {
		assert.LessOrEqual(t, len([]rune(tok)), 5)
	}
	assert.Contains(t, tokens, "一二三四五")
	assert.Contains(t, tokens, "二三四五六")
	assert.NotContains(t, tokens, "一二三四五六")
}

func TestTokenize_ChineseSingleCharacterAlsoEmitted(t *testing.T) {
	cfg := Config{Language: LanguageChinese}
	tokens := Tokenize("猫", cfg)
	assert.Equal(t, []string{"猫"}, tokens)
}

func TestTokenize_MixedLatinRetained(t *testing.T) {
	tokens := Tokenize("BM25 scoring-function", Config{})
	assert.Equal(t, []string{"bm25", "scoring", "function"}, tokens)
}
