package chunker

import (
	"strings"
	"unicode/utf8"
)

// span is a contiguous slice of the file with its byte offset.
type span struct {
	text   string
	offset int
}

type splitter struct {
	size    int
	overlap int
}

// split recursively breaks text into spans of at most s.size runes.
func (s splitter) split(text string, offset int, separators []string) []span {
	sep, rest := pickSeparator(text, separators)
	return s.process(splitKeep(text, offset, sep), rest)
}

// process merges pieces that fit and recurses into the ones that do not,
// keeping document order.
func (s splitter) process(pieces []span, rest []string) []span {
	var out, fitting []span
	for _, p := range pieces {
		if runeLen(p.text) <= s.size {
			fitting = append(fitting, p)
			continue
		}
		if len(fitting) > 0 {
			out = append(out, s.merge(fitting)...)
			fitting = nil
		}
		out = append(out, s.split(p.text, p.offset, rest)...)
	}
	if len(fitting) > 0 {
		out = append(out, s.merge(fitting)...)
	}
	return out
}

// merge packs adjacent pieces into chunks of at most s.size runes. After a
// chunk is emitted the leading pieces are dropped until the retained tail is
// within s.overlap, so the tail of one chunk is the head of the next.
func (s splitter) merge(pieces []span) []span {
	var chunks []span
	var current []span
	total := 0

	for _, p := range pieces {
		n := runeLen(p.text)
		if total+n > s.size && len(current) > 0 {
			chunks = append(chunks, join(current))
			for len(current) > 0 && (total > s.overlap || total+n > s.size) {
				total -= runeLen(current[0].text)
				current = current[1:]
			}
		}
		current = append(current, p)
		total += n
	}
	if len(current) > 0 {
		chunks = append(chunks, join(current))
	}
	return chunks
}

// pickSeparator returns the first separator present in text and the
// separators after it. "" always matches.
func pickSeparator(text string, separators []string) (string, []string) {
	for i, sep := range separators {
		if sep == "" || strings.Contains(text, sep) {
			return sep, separators[i+1:]
		}
	}
	return "", nil
}

// splitKeep splits text before every occurrence of sep, so each piece after
// the first starts with the separator. An empty sep splits into runes.
func splitKeep(text string, offset int, sep string) []span {
	if sep == "" {
		pieces := make([]span, 0, len(text))
		for i := 0; i < len(text); {
			_, n := utf8.DecodeRuneInString(text[i:])
			pieces = append(pieces, span{text: text[i : i+n], offset: offset + i})
			i += n
		}
		return pieces
	}

	var pieces []span
	start, search := 0, 0
	if strings.HasPrefix(text, sep) {
		search = len(sep)
	}
	for {
		idx := strings.Index(text[search:], sep)
		if idx < 0 {
			break
		}
		idx += search
		pieces = append(pieces, span{text: text[start:idx], offset: offset + start})
		start = idx
		search = idx + len(sep)
	}
	pieces = append(pieces, span{text: text[start:], offset: offset + start})
	return pieces
}

// join concatenates contiguous spans.
func join(spans []span) span {
	var b strings.Builder
	for _, sp := range spans {
		b.WriteString(sp.text)
	}
	return span{text: b.String(), offset: spans[0].offset}
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
