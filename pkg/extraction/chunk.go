package extraction

import (
	"strings"
	"unicode/utf8"
)

// Chunk is a piece of document text and its byte offset in the document.
type Chunk struct {
	Text   string
	Offset int
}

// SplitText cuts text into chunks of at most maxBytes bytes. Cuts prefer the
// last line break in the window, then the last space, and otherwise fall on
// a rune boundary. Whitespace-only chunks are dropped. Concatenating the
// chunks' text in order at their offsets reproduces the input.
func SplitText(text string, maxBytes int) []Chunk {
	if maxBytes <= 0 || len(text) <= maxBytes {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []Chunk{{Text: text}}
	}

	var chunks []Chunk
	pos := 0
	for pos < len(text) {
		rest := text[pos:]
		cut := len(rest)
		if cut > maxBytes {
			cut = cutPoint(rest, maxBytes)
		}
		if piece := rest[:cut]; strings.TrimSpace(piece) != "" {
			chunks = append(chunks, Chunk{Text: piece, Offset: pos})
		}
		pos += cut
	}
	return chunks
}

// cutPoint picks where to end a chunk of rest, which is longer than maxBytes.
func cutPoint(rest string, maxBytes int) int {
	window := rest[:maxBytes]
	if i := strings.LastIndexByte(window, '\n'); i > 0 {
		return i + 1
	}
	if i := strings.LastIndexAny(window, " \t"); i > 0 {
		return i + 1
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(rest[cut]) {
		cut--
	}
	if cut == 0 {
		// Limit smaller than one rune.
		_, size := utf8.DecodeRuneInString(rest)
		return size
	}
	return cut
}
