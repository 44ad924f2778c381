package ai

import "context"

// TextGenerator produces a completion from a system prompt and user prompt.
// Hosted providers (Gemini, OpenAI-compatible endpoints) implement this
// interface; tests substitute deterministic stubs.
type TextGenerator interface {
	GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
