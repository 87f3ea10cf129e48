package llm

import (
	"context"
)

// StreamChunk is a single fragment of a streamed completion. The channel
// carrying chunks is closed after the final chunk; callers must treat a chunk
// with Err set as terminal.
type StreamChunk struct {
	Token string
	Done  bool
	Err   error
}

// Transport is the boundary to the generative text provider. Buffered and
// streaming delivery are two operations on one capability so the rest of the
// pipeline is shared and only the adapter varies.
type Transport interface {
	// Complete awaits the full completion and returns its raw text.
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// Stream returns a forward-only, single-pass sequence of text chunks in
	// arrival order. It is not restartable. Cancelling ctx stops upstream
	// reads promptly.
	Stream(ctx context.Context, systemPrompt, userPrompt string) (<-chan StreamChunk, error)
}
