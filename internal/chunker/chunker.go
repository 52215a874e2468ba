// Package chunker splits text into overlapping chunks for embedding.
package chunker

const (
	// DefaultSize is the target chunk length in characters.
	DefaultSize = 2000
	// DefaultOverlap is the number of characters shared by neighbouring chunks.
	DefaultOverlap = 500
)

// Span is a chunk position in runes, End exclusive.
type Span struct {
	Start int
	End   int
}

// Spans computes chunk boundaries over text measured in runes.
//
// A non-positive size uses DefaultSize. An overlap that is not smaller than
// size becomes size/2. A full-size chunk that does not reach the end of the
// text is cut after its last '.' when that lies past the chunk's midpoint.
// Every step advances the start by at least one rune, and the last span ends
// at the end of the text.
func Spans(text string, size, overlap int) []Span {
	return spans([]rune(text), size, overlap)
}

// Chunk splits text into chunks as described by Spans.
func Chunk(text string, size, overlap int) []string {
	runes := []rune(text)
	var chunks []string
	for _, s := range spans(runes, size, overlap) {
		chunks = append(chunks, string(runes[s.Start:s.End]))
	}
	return chunks
}

func spans(runes []rune, size, overlap int) []Span {
	if size <= 0 {
		size = DefaultSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 2
	}

	n := len(runes)
	var out []Span
	start := 0
	for start < n {
		end := min(start+size, n)
		if end < n && end-start == size {
			if dot := lastIndex(runes, '.', start, end); dot > start+size/2 {
				end = dot + 1
			}
		}

		out = append(out, Span{Start: start, End: end})
		if end == n {
			break
		}
		start = min(end, start+max(1, end-start-overlap))
	}
	return out
}

func lastIndex(runes []rune, r rune, from, to int) int {
	for i := to - 1; i >= from; i-- {
		if runes[i] == r {
			return i
		}
	}
	return -1
}
