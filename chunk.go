package llmstream

// Chunk is one canonical unit of streamed output: a text token, a piece of
// thinking text, or a tool-call fragment.
type Chunk interface {
	isChunk()
}

// Token is a fragment of plain response text.
type Token string

// Thinking is a fragment of the model's internal reasoning text.
type Thinking string

// ToolCall is a fragment of a piecewise-assembled tool invocation. ID and
// Name may be empty on fragments that only carry an arguments delta; the call
// is complete once both are present.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

func (Token) isChunk()    {}
func (Thinking) isChunk() {}
func (ToolCall) isChunk() {}

// Complete reports whether the piecewise-assembled call has both its id and
// name, which is the point at which it can become a ToolRequest.
func (c ToolCall) Complete() bool {
	return c.ID != "" && c.Name != ""
}

// Request converts a complete tool call into a canonical conversation turn.
// It returns false while the call is still missing its id or name.
func (c ToolCall) Request() (ToolRequest, bool) {
	if !c.Complete() {
		return ToolRequest{}, false
	}
	return ToolRequest{ID: c.ID, Name: c.Name, Arguments: c.Arguments}, true
}

// Merge folds adjacent chunks of matching kind that belong to the same
// logical unit: text concatenates for Token and Thinking; for ToolCall the id
// and name are filled from whichever side has them and arguments concatenate.
// Fragments of distinct tool calls (conflicting ids) are never folded.
func Merge(chunks []Chunk) []Chunk {
	var out []Chunk
	for _, c := range chunks {
		if len(out) == 0 {
			out = append(out, c)
			continue
		}
		if merged, ok := mergeTwo(out[len(out)-1], c); ok {
			out[len(out)-1] = merged
			continue
		}
		out = append(out, c)
	}
	return out
}

func mergeTwo(a, b Chunk) (Chunk, bool) {
	switch a := a.(type) {
	case Token:
		if b, ok := b.(Token); ok {
			return a + b, true
		}
	case Thinking:
		if b, ok := b.(Thinking); ok {
			return a + b, true
		}
	case ToolCall:
		b, ok := b.(ToolCall)
		if !ok {
			return nil, false
		}
		if a.ID != "" && b.ID != "" && a.ID != b.ID {
			return nil, false
		}
		merged := ToolCall{
			ID:        a.ID,
			Name:      a.Name,
			Arguments: a.Arguments + b.Arguments,
		}
		if merged.ID == "" {
			merged.ID = b.ID
		}
		if merged.Name == "" {
			merged.Name = b.Name
		}
		return merged, true
	}
	return nil, false
}
