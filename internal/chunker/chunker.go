package chunker

import (
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/fjurahelianthus/CharaEngineForST-sub000/pkg/types"
)

const (
	// DefaultMaxChars is the target maximum character count per chunk.
	DefaultMaxChars = 1200

	// DefaultOverlapChars is how many trailing characters of one chunk
	// are repeated at the start of the next, so sentences near a
	// boundary still score against both chunks.
	DefaultOverlapChars = 120
)

// Options controls how documents are split into chunks.
type Options struct {
	MaxChars     int
	OverlapChars int
}

// DefaultOptions returns the default chunking options.
func DefaultOptions() Options {
	return Options{
		MaxChars:     DefaultMaxChars,
		OverlapChars: DefaultOverlapChars,
	}
}

// Chunker splits prose documents into retrieval chunks.
type Chunker struct {
	opts Options
}

// New creates a new Chunker instance.
func New(opts Options) *Chunker {
	if opts.MaxChars <= 0 {
		opts.MaxChars = DefaultMaxChars
	}
	if opts.OverlapChars < 0 || opts.OverlapChars >= opts.MaxChars {
		opts.OverlapChars = DefaultOverlapChars
		if opts.OverlapChars >= opts.MaxChars {
			opts.OverlapChars = opts.MaxChars / 10
		}
	}
	return &Chunker{opts: opts}
}

// ChunkDocument splits a document into chunks. Paragraphs are the
// preferred unit; paragraphs larger than the size target are split at
// sentence boundaries, with overlap carried between pieces. Each chunk
// gets a fresh UUID and inherits the document metadata.
func (c *Chunker) ChunkDocument(docID, title, text string) []types.Chunk {
	paragraphs := splitParagraphs(text)
	if len(paragraphs) == 0 {
		return nil
	}

	pieces := make([]string, 0, len(paragraphs))
	var current strings.Builder
	for _, para := range paragraphs {
		if len(para) > c.opts.MaxChars {
			if current.Len() > 0 {
				pieces = append(pieces, current.String())
				current.Reset()
			}
			pieces = append(pieces, c.splitLongParagraph(para)...)
			continue
		}

		// Pack small paragraphs together up to the size target.
		if current.Len() > 0 && current.Len()+len(para)+2 > c.opts.MaxChars {
			pieces = append(pieces, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	if current.Len() > 0 {
		pieces = append(pieces, current.String())
	}

	chunks := make([]types.Chunk, 0, len(pieces))
	for _, piece := range pieces {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}
		chunks = append(chunks, types.Chunk{
			ID:    uuid.New().String(),
			DocID: docID,
			Text:  piece,
			Metadata: types.ChunkMetadata{
				DocTitle: title,
			},
		})
	}
	return chunks
}

// splitLongParagraph breaks an oversized paragraph at sentence
// boundaries, carrying overlap from one piece into the next.
func (c *Chunker) splitLongParagraph(para string) []string {
	sentences := splitSentences(para)

	var pieces []string
	var current strings.Builder
	for _, sent := range sentences {
		if current.Len() > 0 && current.Len()+len(sent) > c.opts.MaxChars {
			piece := current.String()
			pieces = append(pieces, piece)
			current.Reset()
			current.WriteString(tailOverlap(piece, c.opts.OverlapChars))
		}
		current.WriteString(sent)
	}
	if strings.TrimSpace(current.String()) != "" {
		pieces = append(pieces, current.String())
	}
	return pieces
}

// tailOverlap returns the last n characters of s, extended backward to
// the nearest whitespace so words are not cut mid-run.
func tailOverlap(s string, n int) string {
	if n <= 0 || len(s) <= n {
		if n <= 0 {
			return ""
		}
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	start := len(runes) - n
	for start > 0 && !unicode.IsSpace(runes[start]) && !isCJK(runes[start]) {
		start--
	}
	return strings.TrimLeft(string(runes[start:]), " \t")
}

// splitParagraphs splits text on blank lines.
func splitParagraphs(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n")
	paragraphs := make([]string, 0, len(raw))
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return paragraphs
}

// sentence terminators for both Latin and CJK prose
var sentenceEnders = map[rune]struct{}{
	'.': {}, '!': {}, '?': {},
	'。': {}, '！': {}, '？': {}, '…': {},
}

// splitSentences splits a paragraph into sentences, keeping the
// terminator and trailing whitespace attached to each sentence.
func splitSentences(para string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(para)
	for i, r := range runes {
		current.WriteRune(r)
		if _, ok := sentenceEnders[r]; !ok {
			continue
		}
		// Consume any closing quote right after the terminator.
		if i+1 < len(runes) {
			next := runes[i+1]
			if next == '"' || next == '\'' || next == '」' || next == '”' {
				continue
			}
		}
		sentences = append(sentences, current.String())
		current.Reset()
	}
	if current.Len() > 0 {
		sentences = append(sentences, current.String())
	}
	return sentences
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r)
}
