// Package tokenizer turns raw text into an ordered sequence of index
// terms.
//
// Two strategies are supported, selected by Config.Language:
//
//   - "zh": the text is lower-cased, split into individual characters,
//     and every contiguous run of 1 through 5 characters is emitted as a
//     candidate term, except runs containing whitespace or punctuation.
//     Overlapping n-grams are all retained so exact-phrase and
//     sub-phrase query matches both score against the index.
//
//   - anything else: lower-case, then split on runs of whitespace and
//     punctuation.
//
// After splitting, tokens that contain no word or CJK character are
// dropped, stop words are removed by exact match, and an optional
// minimal suffix stemmer (ing, ed, es, s) is applied to non-CJK tokens.
//
// The output is a flat ordered sequence with repeats preserved; the
// index builder counts occurrences itself.
package tokenizer
