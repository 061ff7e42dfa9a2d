// Package providers implements the per-provider halves of the pipeline: an
// encoder from the canonical conversation to each provider's request JSON,
// and a decoder from framed wire records to canonical chunks. Anthropic has
// its own decoder; OpenAI and OpenRouter share one.
package providers

import (
	"encoding/json"
	"fmt"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleDeveloper = "developer"
	RoleTool      = "tool"
)

// textSeparator joins consecutive same-role plain-text turns collated into a
// single wire message.
const textSeparator = "\n\n"

// UnknownEventError reports a wire event the OpenAI-compatible decoder does
// not recognize. Unlike the Anthropic decoder's log-and-skip policy, this is
// fatal for the stream.
type UnknownEventError struct {
	Type string
}

func (e *UnknownEventError) Error() string {
	return fmt.Sprintf("unknown stream event type %q", e.Type)
}

// MalformedResponseError reports a wire record missing a structurally
// required field. Raw carries the offending JSON for debugging.
type MalformedResponseError struct {
	Msg string
	Raw json.RawMessage
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed stream response: %s", e.Msg)
}
