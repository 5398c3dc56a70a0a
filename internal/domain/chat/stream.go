package chat

import (
	"context"
	"strings"
	"time"
)

// DefaultChunkDelay is the fixed pause between delivered chunks.
const DefaultChunkDelay = 50 * time.Millisecond

// Chunk is one piece of an incrementally delivered response.
type Chunk struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// Streamer delivers a complete response as an incremental sequence of
// chunks. The underlying transport returns whole answers, so the streamer
// partitions on whitespace and paces delivery with a fixed delay.
type Streamer struct {
	chunkDelay time.Duration
}

// NewStreamer creates a streamer. A non-positive delay falls back to the
// default.
func NewStreamer(chunkDelay time.Duration) *Streamer {
	if chunkDelay <= 0 {
		chunkDelay = DefaultChunkDelay
	}
	return &Streamer{chunkDelay: chunkDelay}
}

// Stream returns a channel of chunks for text. Cancelling ctx closes the
// channel with no further sends; whatever was delivered before
// cancellation stands as the committed partial response.
func (s *Streamer) Stream(ctx context.Context, text string) <-chan Chunk {
	out := make(chan Chunk)
	go func() {
		defer close(out)
		words := strings.Fields(text)
		for i, word := range words {
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.chunkDelay):
			}
			select {
			case <-ctx.Done():
				return
			case out <- Chunk{Index: i, Text: word}:
			}
		}
	}()
	return out
}

// Reassemble joins delivered chunk texts back into the response string.
func Reassemble(chunks []Chunk) string {
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = c.Text
	}
	return strings.Join(parts, " ")
}
