// Package summarize implements the enrichment orchestrator (C7): turning
// detected turns and whole sessions into LLM-generated summaries via a
// pluggable TextGenerator, generalized from the provider-agnostic
// GenerateRequest/GenerateResponse shape original_source's llm/types.rs
// used across its Google AI / Claude Code / Gemini CLI backends.
package summarize

import (
	"context"
	"time"
)

// GenerateRequest is a provider-agnostic text-generation call.
type GenerateRequest struct {
	Prompt       string
	SystemPrompt string
	MaxTokens    int
	Temperature  float32
}

// TokenUsage is token accounting reported by a TextGenerator, when its
// backend reports one.
type TokenUsage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// GenerateResponse is a provider-agnostic text-generation result.
type GenerateResponse struct {
	Text         string
	TokenUsage   *TokenUsage
	ModelUsed    string
	FinishReason string
}

// TextGenerator is the capability every summarization backend implements.
// Errors are *model.GeneratorError, whose Retryable() method the sweep
// consults to decide whether a failure should be retried within budget.
type TextGenerator interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// Clock is injected wall-clock access, letting tests control
// GeneratedAt/CreatedAt timestamps without sleeping or patching time.Now.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock, backed by time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
