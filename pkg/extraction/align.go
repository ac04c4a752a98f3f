package extraction

import "strings"

// Confidence assigned when the model does not report one.
const (
	ConfidenceExact     = 1.0
	ConfidenceFuzzy     = 0.8
	ConfidenceUnaligned = 0.5
)

// align grounds an extraction in its chunk. It returns the span in document
// offsets (nil when the text is not found) and the confidence implied by the
// match quality.
func align(text string, chunk Chunk) (*Span, float64) {
	if i := strings.Index(chunk.Text, text); i >= 0 {
		return &Span{Start: chunk.Offset + i, End: chunk.Offset + i + len(text)}, ConfidenceExact
	}

	lowerChunk := strings.ToLower(chunk.Text)
	lowerText := strings.ToLower(text)
	// Lowercasing can change byte lengths for some scripts, which would make
	// the offsets meaningless.
	if len(lowerChunk) == len(chunk.Text) && len(lowerText) == len(text) {
		if i := strings.Index(lowerChunk, lowerText); i >= 0 {
			return &Span{Start: chunk.Offset + i, End: chunk.Offset + i + len(text)}, ConfidenceFuzzy
		}
	}
	return nil, ConfidenceUnaligned
}

// clampConfidence bounds a model-reported confidence to [0, 1].
func clampConfidence(c float64) float64 {
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	default:
		return c
	}
}

// dedupKey identifies an extraction across passes: its class plus its text
// lowercased with whitespace collapsed.
func dedupKey(class, text string) string {
	return strings.ToLower(strings.TrimSpace(class)) + "\x00" + strings.ToLower(strings.Join(strings.Fields(text), " "))
}
