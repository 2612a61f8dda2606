package chunker

import (
	"strconv"
	"strings"

	"advisor/internal/domain"
)

// TextChunker splits document text into rune-budgeted chunks with a
// fixed overlap between adjacent chunks. Split points prefer sentence
// or whitespace boundaries, but the size budget is the hard constraint.
type TextChunker struct {
	size    int
	overlap int
}

// NewTextChunker creates a chunker with the given rune budget and
// overlap. Invalid values fall back to the defaults (1000/200).
func NewTextChunker(size, overlap int) *TextChunker {
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 {
		overlap = 200
	}
	if overlap >= size {
		overlap = size / 5
	}
	return &TextChunker{size: size, overlap: overlap}
}

// Chunk splits a single document. Chunks never span documents; the
// last `overlap` runes of each chunk are repeated as the prefix of
// the next one.
func (c *TextChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	runes := []rune(strings.TrimSpace(document.Content))
	if len(runes) == 0 {
		return nil, nil
	}
	var chunks []domain.Chunk
	start := 0
	idx := 0
	for {
		end := start + c.size
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = c.splitPoint(runes, start, end)
		}
		text := string(runes[start:end])
		if strings.TrimSpace(text) != "" {
			chunks = append(chunks, domain.Chunk{
				DocumentID: document.ID,
				ChunkID:    document.ID + ":" + strconv.Itoa(idx),
				Source:     document.Source,
				Text:       text,
				Index:      idx,
			})
			idx++
		}
		if end == len(runes) {
			break
		}
		start = end - c.overlap
	}
	return chunks, nil
}

// splitPoint scans backwards from the size limit looking for a sentence
// end, then any whitespace. It never retreats past the overlap region,
// so the next chunk always makes progress.
func (c *TextChunker) splitPoint(runes []rune, start, limit int) int {
	floor := start + c.overlap + 1
	if floor >= limit {
		return limit
	}
	for i := limit - 1; i >= floor; i-- {
		switch runes[i] {
		case '.', '!', '?', '\n':
			return i + 1
		}
	}
	for i := limit - 1; i >= floor; i-- {
		if runes[i] == ' ' || runes[i] == '\t' {
			return i + 1
		}
	}
	return limit
}
