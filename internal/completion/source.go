// Package completion abstracts the language-model provider behind two
// operations: a restartable streaming generation call and a single-shot
// judgment call. The engine core never touches credentials, endpoints, or
// model identifiers directly; callers supply them through Options.
package completion

import (
	"context"

	"github.com/thinktwice-ai/thinktwice/internal/history"
)

// Source is the provider abstraction consumed by the engine.
type Source interface {
	// StreamGenerate starts a streaming completion over the given message
	// history. Cancelling ctx aborts the stream mid-flight; deltas already
	// delivered remain valid.
	StreamGenerate(ctx context.Context, messages []history.Message, temperature float32) (Stream, error)

	// Judge performs a single-shot completion with a system and user prompt,
	// returning the full response text.
	Judge(ctx context.Context, systemPrompt, userPrompt string, temperature float32) (string, error)
}

// Stream yields text deltas from a streaming completion. Recv returns io.EOF
// when the stream ends normally and the context error when cancelled.
type Stream interface {
	Recv() (string, error)
	Close() error
}
