package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mike-a-ellis/repo-rag/internal/ragerr"
	"github.com/mike-a-ellis/repo-rag/internal/source"
)

func newChunker(t *testing.T, size, overlap int) *Chunker {
	t.Helper()
	c, err := New(size, overlap)
	require.NoError(t, err)
	return c
}

func words(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "word%03d", i)
	}
	return b.String()
}

// assertWellFormed checks the properties every chunk sequence must hold.
func assertWellFormed(t *testing.T, c *Chunker, content string, chunks []Chunk) {
	t.Helper()
	for i, ch := range chunks {
		assert.Equal(t, i, ch.Ordinal, "ordinals are contiguous")
		assert.Greater(t, ch.Length, 0)
		assert.LessOrEqual(t, ch.Length, c.Size(), "chunk %d too long", i)
		assert.Equal(t, runeLen(ch.Text), ch.Length)
		assert.Equal(t, content[ch.Offset:ch.Offset+len(ch.Text)], ch.Text, "chunk %d is not a span of the file", i)
		if i > 0 {
			assert.Greater(t, ch.Offset, chunks[i-1].Offset, "chunks stay in document order")
		}
	}
}

// sharedOverlap returns the length in runes of the longest suffix of a that
// is also a prefix of b.
func sharedOverlap(a, b string) int {
	ar, br := []rune(a), []rune(b)
	for n := min(len(ar), len(br)); n > 0; n-- {
		if string(ar[len(ar)-n:]) == string(br[:n]) {
			return n
		}
	}
	return 0
}

func TestChunk_SmallFileIsOneChunk(t *testing.T) {
	c := newChunker(t, DefaultChunkSize, DefaultChunkOverlap)
	content := "package main\n\nfunc main() {\n\tprintln(\"hi\")\n}\n"

	chunks, err := c.Chunk(source.SourceFile{Path: "main.go", Content: content, Language: source.LanguageGo})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Ordinal)
	assert.Equal(t, content, chunks[0].Text)
	assert.Equal(t, "main.go", chunks[0].SourcePath)
	assert.Equal(t, source.LanguageGo, chunks[0].Language)
}

func TestChunk_ReadmeOf600Characters(t *testing.T) {
	c := newChunker(t, DefaultChunkSize, DefaultChunkOverlap)
	content := strings.Repeat("Widgets are small. ", 32)[:600]
	require.Equal(t, 600, len(content))

	chunks, err := c.Chunk(source.SourceFile{Path: "README.md", Content: content, Language: source.LanguageMarkdown})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, content, chunks[0].Text)
}

func TestChunk_EmptyContent(t *testing.T) {
	c := newChunker(t, DefaultChunkSize, DefaultChunkOverlap)

	for _, lang := range []source.Language{source.LanguageGo, source.LanguageMarkdown} {
		chunks, err := c.Chunk(source.SourceFile{Path: "empty", Content: "", Language: lang})
		require.NoError(t, err)
		assert.Empty(t, chunks)
	}
}

func TestChunk_UnsupportedLanguage(t *testing.T) {
	c := newChunker(t, DefaultChunkSize, DefaultChunkOverlap)

	chunks, err := c.Chunk(source.SourceFile{Path: "main.unknownext", Content: "zzzz", Language: source.LanguageNone})
	assert.ErrorIs(t, err, ErrUnsupportedFileType)
	assert.Nil(t, chunks)
}

func TestChunk_LongProseOverlaps(t *testing.T) {
	c := newChunker(t, 100, 20)
	content := words(300)

	chunks, err := c.Chunk(source.SourceFile{Path: "notes.txt", Content: content, Language: source.LanguageText})
	require.NoError(t, err)
	require.Greater(t, len(chunks), 10)
	assertWellFormed(t, c, content, chunks)

	for i := 1; i < len(chunks); i++ {
		shared := sharedOverlap(chunks[i-1].Text, chunks[i].Text)
		assert.Greater(t, shared, 0, "chunks %d and %d should overlap", i-1, i)
		assert.LessOrEqual(t, shared, c.Overlap())
	}
	assert.True(t, strings.HasSuffix(content, strings.TrimSpace(chunks[len(chunks)-1].Text)))
}

func TestChunk_CodeSplitsAtFunctions(t *testing.T) {
	c := newChunker(t, 120, 0)

	var b strings.Builder
	b.WriteString("package widgets\n")
	for i := 0; i < 6; i++ {
		fmt.Fprintf(&b, "\nfunc Widget%d() int {\n\treturn %d + %d + %d\n}\n", i, i, i, i)
	}
	content := b.String()

	chunks, err := c.Chunk(source.SourceFile{Path: "widgets.go", Content: content, Language: source.LanguageGo})
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)
	assertWellFormed(t, c, content, chunks)

	for _, ch := range chunks[1:] {
		assert.True(t, strings.HasPrefix(ch.Text, "\nfunc "), "chunk should start at a function: %q", ch.Text)
	}
}

func TestChunk_UnbrokenTextFallsBackToCharacters(t *testing.T) {
	c := newChunker(t, 100, 20)

	// 250 distinct multi-byte runes with no separator in them
	var b strings.Builder
	for i := 0; i < 250; i++ {
		b.WriteRune(rune(0x4E00 + i))
	}
	content := b.String()

	chunks, err := c.Chunk(source.SourceFile{Path: "blob.txt", Content: content, Language: source.LanguageText})
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assertWellFormed(t, c, content, chunks)
	assert.Equal(t, 100, chunks[0].Length)
	assert.Equal(t, 90, chunks[2].Length)
	assert.Equal(t, 20, sharedOverlap(chunks[0].Text, chunks[1].Text))
	assert.Equal(t, 20, sharedOverlap(chunks[1].Text, chunks[2].Text))
}

func TestChunk_MarkdownSections(t *testing.T) {
	c := newChunker(t, 120, 0)

	content := "# Guide\n\n" + strings.Repeat("intro ", 15) + "\n\n" +
		"## Install\n\nRun go install.\n\n```sh\n# not a heading\ngo install ./...\n```\n\n" +
		"## Usage\n\n" + strings.Repeat("usage ", 15) + "\n"

	chunks, err := c.Chunk(source.SourceFile{Path: "docs/guide.md", Content: content, Language: source.LanguageMarkdown})
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assertWellFormed(t, c, content, chunks)

	assert.Equal(t, "# Guide", chunks[0].Section)
	assert.True(t, strings.HasPrefix(chunks[0].Text, "# Guide"))

	assert.Equal(t, "# Guide > ## Install", chunks[1].Section)
	assert.True(t, strings.HasPrefix(chunks[1].Text, "## Install"))
	assert.Contains(t, chunks[1].Text, "# not a heading", "fenced code stays with its section")

	assert.Equal(t, "# Guide > ## Usage", chunks[2].Section)
	assert.Equal(t, "# Guide > ## Usage\n\n"+chunks[2].Text, chunks[2].EmbeddingText())
}

func TestChunk_MarkdownWithoutHeadings(t *testing.T) {
	c := newChunker(t, 50, 10)
	content := words(40)

	chunks, err := c.Chunk(source.SourceFile{Path: "NOTES.md", Content: content, Language: source.LanguageMarkdown})
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)
	assertWellFormed(t, c, content, chunks)
	for _, ch := range chunks {
		assert.Empty(t, ch.Section)
		assert.Equal(t, ch.Text, ch.EmbeddingText())
	}
}

func TestNew_RejectsBadSizes(t *testing.T) {
	_, err := New(100, 100)
	assert.ErrorIs(t, err, ragerr.ErrConfiguration)

	_, err = New(0, 0)
	assert.ErrorIs(t, err, ragerr.ErrConfiguration)

	_, err = New(100, -1)
	assert.ErrorIs(t, err, ragerr.ErrConfiguration)
}

func TestStrategyFor(t *testing.T) {
	assert.IsType(t, MarkdownStrategy{}, StrategyFor(source.LanguageMarkdown))
	assert.IsType(t, Unsupported{}, StrategyFor(source.LanguageNone))

	st, ok := StrategyFor(source.LanguagePython).(CodeStrategy)
	require.True(t, ok)
	assert.Equal(t, "\nclass ", st.Separators[0])
	assert.Equal(t, "", st.Separators[len(st.Separators)-1])
}

func TestFormatHeaderPath(t *testing.T) {
	assert.Equal(t, "", formatHeaderPath(nil))
	assert.Equal(t, "# Installation > ## Prerequisites", formatHeaderPath([]string{"Installation", "Prerequisites"}))
}
