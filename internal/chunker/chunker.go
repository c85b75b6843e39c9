// Package chunker splits source files into bounded, overlapping chunks using
// a strategy chosen by language.
package chunker

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mike-a-ellis/repo-rag/internal/ragerr"
	"github.com/mike-a-ellis/repo-rag/internal/source"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 100
)

// ErrUnsupportedFileType is returned for files whose language has no
// splitting strategy. Callers count these files; it is not a failure.
var ErrUnsupportedFileType = errors.New("unsupported file type")

// Chunk is a contiguous span of one source file.
type Chunk struct {
	SourcePath string
	Text       string
	Ordinal    int // position within the file, 0-based
	Length     int // in runes
	Offset     int // byte offset within the file
	Section    string
	Language   source.Language
}

// Chunker splits files into chunks of at most Size runes overlapping by at
// most Overlap runes.
type Chunker struct {
	splitter splitter
	markdown *markdownParser
}

// New creates a Chunker. overlap must be smaller than size.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, ragerr.Configf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, ragerr.Configf("chunk overlap must be in [0, %d), got %d", size, overlap)
	}
	return &Chunker{
		splitter: splitter{size: size, overlap: overlap},
		markdown: newMarkdownParser(),
	}, nil
}

// Size returns the maximum chunk length in runes.
func (c *Chunker) Size() int { return c.splitter.size }

// Overlap returns the maximum shared length between adjacent chunks.
func (c *Chunker) Overlap() int { return c.splitter.overlap }

// Chunk splits f. Content no longer than the chunk size comes back as a
// single chunk equal to the content; blank content yields no chunks.
func (c *Chunker) Chunk(f source.SourceFile) ([]Chunk, error) {
	switch st := StrategyFor(f.Language).(type) {
	case Unsupported:
		return nil, fmt.Errorf("%s: %w", f.Path, ErrUnsupportedFileType)

	case MarkdownStrategy:
		if strings.TrimSpace(f.Content) == "" {
			return nil, nil
		}
		sections, err := c.markdown.sections([]byte(f.Content))
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", f.Path, err)
		}
		var spans []span
		if runeLen(f.Content) <= c.splitter.size {
			spans = []span{{text: f.Content}}
		} else {
			spans = c.splitter.process(sectionSpans(f.Content, sections), markdownSeparators)
		}
		return c.build(f, spans, func(offset int) string { return sectionAt(sections, offset) }), nil

	case CodeStrategy:
		if strings.TrimSpace(f.Content) == "" {
			return nil, nil
		}
		var spans []span
		if runeLen(f.Content) <= c.splitter.size {
			spans = []span{{text: f.Content}}
		} else {
			spans = c.splitter.split(f.Content, 0, st.Separators)
		}
		return c.build(f, spans, nil), nil

	default:
		return nil, fmt.Errorf("%s: unknown strategy %T", f.Path, st)
	}
}

// build drops blank spans and numbers the rest in document order.
func (c *Chunker) build(f source.SourceFile, spans []span, sectionOf func(int) string) []Chunk {
	chunks := make([]Chunk, 0, len(spans))
	for _, sp := range spans {
		if strings.TrimSpace(sp.text) == "" {
			continue
		}
		chunk := Chunk{
			SourcePath: f.Path,
			Text:       sp.text,
			Ordinal:    len(chunks),
			Length:     runeLen(sp.text),
			Offset:     sp.offset,
			Language:   f.Language,
		}
		if sectionOf != nil {
			chunk.Section = sectionOf(sp.offset)
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}

// EmbeddingText is the text sent to the embedding model for a chunk. Markdown
// chunks carry their header path so retrieval sees the section context.
func (ch Chunk) EmbeddingText() string {
	if ch.Section == "" {
		return ch.Text
	}
	return ch.Section + "\n\n" + ch.Text
}
