// Package llmstream is a streaming client for remote generative-text APIs.
// It converts each provider's server-sent event vocabulary into one canonical
// incremental output model (text tokens, thinking text, and piecewise
// tool-call fragments), and maps canonical conversations into each provider's
// request JSON.
package llmstream

import (
	"context"
	"encoding/json"
	"fmt"
)

const (
	DefaultMaxTokens   = 4096
	DefaultTemperature = 1.0
)

// ReasoningEffort is the caller-requested intensity of internal "thinking".
// Providers encode it either as a named level or as a token budget.
type ReasoningEffort int

const (
	ReasoningLow ReasoningEffort = iota
	ReasoningMedium
	ReasoningHigh
)

// BudgetTokens returns the thinking token budget for providers that take a
// numeric budget instead of a named level.
func (e ReasoningEffort) BudgetTokens() int {
	switch e {
	case ReasoningMedium:
		return 2048
	case ReasoningHigh:
		return 4096
	default:
		return 1024
	}
}

func (e ReasoningEffort) String() string {
	switch e {
	case ReasoningMedium:
		return "medium"
	case ReasoningHigh:
		return "high"
	default:
		return "low"
	}
}

// Tool describes a function the model may call. Parameters is an opaque,
// already-serialized JSON schema; the client never inspects it.
type Tool struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// PromptOptions are the generation settings for a single prompt call.
type PromptOptions struct {
	MaxTokens     int
	Temperature   float64
	SystemPrompt  string
	StopSequences []string
	Tools         []Tool
	Reasoning     *ReasoningEffort
}

// DefaultOptions returns options with the stock token limit and temperature.
func DefaultOptions() *PromptOptions {
	return &PromptOptions{
		MaxTokens:   DefaultMaxTokens,
		Temperature: DefaultTemperature,
	}
}

// LLM is a hook into a generative-text model. Prompt submits the conversation
// and returns a lazily-polled stream of canonical chunks. The request is
// attempted once; retry policy belongs to the caller.
type LLM interface {
	Prompt(ctx context.Context, conversation []Message, opts *PromptOptions) (Stream, error)
}

// RequestError reports that the request body could not be constructed or
// serialized. It is returned synchronously; no stream is created.
type RequestError struct {
	Err error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("build model request: %v", e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }
