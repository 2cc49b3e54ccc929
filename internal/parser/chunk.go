package parser

import (
	"unicode/utf8"
)

// Chunk is one fixed-size slice of a serialized payload, ordered by SeqNo
// starting at zero.
type Chunk struct {
	SeqNo      int32
	Text       string
	TokenCount int32
}

// Split cuts serialized into chunks of at most size bytes. Cut points back
// off to rune boundaries so every chunk is valid UTF-8 on its own; token
// counts use the bytes/4 approximation, minimum one per non-empty chunk.
func Split(serialized []byte, size int) []Chunk {
	if size <= 0 || len(serialized) == 0 {
		return nil
	}
	var chunks []Chunk
	var seq int32
	for off := 0; off < len(serialized); {
		end := off + size
		if end >= len(serialized) {
			end = len(serialized)
		} else {
			// Continuation bytes are 10xxxxxx; step back to the rune start.
			for end > off && serialized[end]&0xc0 == 0x80 {
				end--
			}
			if end == off {
				// A single rune wider than size; emit it whole.
				_, n := utf8.DecodeRune(serialized[off:])
				end = off + n
			}
		}
		text := serialized[off:end]
		chunks = append(chunks, Chunk{
			SeqNo:      seq,
			Text:       string(text),
			TokenCount: approxTokens(len(text)),
		})
		seq++
		off = end
	}
	return chunks
}

func approxTokens(n int) int32 {
	t := int32(n / 4)
	if t == 0 && n > 0 {
		t = 1
	}
	return t
}
