package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkDocumentSingleParagraph(t *testing.T) {
	c := New(DefaultOptions())
	chunks := c.ChunkDocument("doc1", "Title", "A short paragraph.")

	require.Len(t, chunks, 1)
	assert.Equal(t, "A short paragraph.", chunks[0].Text)
	assert.Equal(t, "doc1", chunks[0].DocID)
	assert.Equal(t, "Title", chunks[0].Metadata.DocTitle)
	assert.NotEmpty(t, chunks[0].ID)
}

func TestChunkDocumentEmpty(t *testing.T) {
	c := New(DefaultOptions())
	assert.Nil(t, c.ChunkDocument("doc1", "Title", ""))
	assert.Nil(t, c.ChunkDocument("doc1", "Title", "\n\n  \n\n"))
}

func TestChunkDocumentPacksSmallParagraphs(t *testing.T) {
	c := New(Options{MaxChars: 100, OverlapChars: 10})
	text := "First paragraph here.\n\nSecond paragraph here.\n\nThird paragraph here."

	chunks := c.ChunkDocument("doc1", "T", text)
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0].Text, "First paragraph")
	assert.Contains(t, chunks[0].Text, "Third paragraph")
}

func TestChunkDocumentRespectsSizeTarget(t *testing.T) {
	c := New(Options{MaxChars: 50, OverlapChars: 0})
	text := "Paragraph one is right here.\n\nParagraph two is right here.\n\nParagraph three is right here."

	chunks := c.ChunkDocument("doc1", "T", text)
	require.Greater(t, len(chunks), 1)
	for _, ch := range chunks {
		assert.LessOrEqual(t, len(ch.Text), 60)
	}
}

func TestSplitLongParagraphAtSentences(t *testing.T) {
	c := New(Options{MaxChars: 60, OverlapChars: 0})
	para := strings.Repeat("This sentence fills out the chunk nicely. ", 4)

	chunks := c.ChunkDocument("doc1", "T", strings.TrimSpace(para))
	require.Greater(t, len(chunks), 1)
	for _, ch := range chunks {
		// Splits land on sentence boundaries, never mid-sentence.
		assert.True(t, strings.HasSuffix(strings.TrimSpace(ch.Text), "."),
			"chunk should end at a sentence boundary: %q", ch.Text)
	}
}

func TestOverlapCarriedBetweenPieces(t *testing.T) {
	c := New(Options{MaxChars: 80, OverlapChars: 20})
	para := "Alpha beta gamma delta epsilon zeta. Eta theta iota kappa lambda mu. Nu xi omicron pi rho sigma."

	chunks := c.ChunkDocument("doc1", "T", para)
	require.Greater(t, len(chunks), 1)

	first := strings.TrimSpace(chunks[0].Text)
	second := chunks[1].Text
	tail := first[strings.LastIndex(first, " ")+1:]
	assert.Contains(t, second, tail)
}

func TestSplitSentencesCJK(t *testing.T) {
	sentences := splitSentences("她走进房间。她看到了一只猫！然后呢？")
	require.Len(t, sentences, 3)
	assert.Equal(t, "她走进房间。", sentences[0])
	assert.Equal(t, "她看到了一只猫！", sentences[1])
	assert.Equal(t, "然后呢？", sentences[2])
}

func TestSplitSentencesKeepsClosingQuote(t *testing.T) {
	sentences := splitSentences(`He said "stop." Then he left.`)
	require.Len(t, sentences, 2)
	assert.Equal(t, `He said "stop." `, sentences[0])
}

func TestUniqueChunkIDs(t *testing.T) {
	c := New(Options{MaxChars: 30, OverlapChars: 0})
	text := "One short paragraph.\n\nAnother short paragraph.\n\nA third short paragraph."

	chunks := c.ChunkDocument("doc1", "T", text)
	seen := make(map[string]struct{})
	for _, ch := range chunks {
		_, dup := seen[ch.ID]
		assert.False(t, dup)
		seen[ch.ID] = struct{}{}
	}
}
