package providers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/Davincible/llmstream"
	"github.com/Davincible/llmstream/sse"
)

const (
	anthropicEndpoint = "https://api.anthropic.com/v1/messages"
	anthropicVersion  = "2023-06-01"
)

// ClaudeModel identifies an Anthropic model.
type ClaudeModel string

const (
	Claude37Sonnet       ClaudeModel = "claude-3-7-sonnet-20250219"
	Claude35SonnetLatest ClaudeModel = "claude-3-5-sonnet-latest"
	Claude35Sonnet       ClaudeModel = "claude-3-5-sonnet-20241022"
	Claude35HaikuLatest  ClaudeModel = "claude-3-5-haiku-latest"
	Claude35Haiku        ClaudeModel = "claude-3-5-haiku-20241022"
	Claude3OpusLatest    ClaudeModel = "claude-3-opus-latest"
	Claude3Opus          ClaudeModel = "claude-3-opus-20240229"
	Claude3Haiku         ClaudeModel = "claude-3-haiku-20240307"
)

// Claude streams completions from the Anthropic messages API.
type Claude struct {
	model    ClaudeModel
	apiKey   string
	endpoint string
	logger   *slog.Logger
}

func NewClaude(model ClaudeModel, apiKey string) *Claude {
	return &Claude{
		model:    model,
		apiKey:   apiKey,
		endpoint: anthropicEndpoint,
		logger:   slog.Default(),
	}
}

// NewClaudeFromEnv reads the API key from ANTHROPIC_API_KEY.
func NewClaudeFromEnv(model ClaudeModel) (*Claude, error) {
	key := os.Getenv("ANTHROPIC_API_KEY")
	if key == "" {
		return nil, errors.New("ANTHROPIC_API_KEY environment variable not set")
	}
	return NewClaude(model, key), nil
}

// SetLogger replaces the default logger.
func (c *Claude) SetLogger(logger *slog.Logger) { c.logger = logger }

// SetEndpoint overrides the API endpoint, mainly for tests.
func (c *Claude) SetEndpoint(endpoint string) { c.endpoint = endpoint }

// Anthropic wire request.
type claudeRequest struct {
	Model         ClaudeModel     `json:"model"`
	MaxTokens     int             `json:"max_tokens"`
	Temperature   *float64        `json:"temperature,omitempty"`
	Stream        bool            `json:"stream"`
	StopSequences []string        `json:"stop_sequences,omitempty"`
	System        string          `json:"system,omitempty"`
	Thinking      *claudeThinking `json:"thinking,omitempty"`
	Tools         []claudeTool    `json:"tools,omitempty"`
	Messages      []claudeMessage `json:"messages"`
}

type claudeThinking struct {
	Type         string `json:"type"`
	BudgetTokens int    `json:"budget_tokens"`
}

type claudeTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

type claudeMessage struct {
	Role    string          `json:"role"`
	Content []claudeContent `json:"content"`
}

type claudeContent struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
}

// Prompt encodes the conversation, opens the stream, and returns the decoder.
func (c *Claude) Prompt(ctx context.Context, conversation []llmstream.Message, opts *llmstream.PromptOptions) (llmstream.Stream, error) {
	if opts == nil {
		opts = llmstream.DefaultOptions()
	}

	req := claudeRequest{
		Model:         c.model,
		MaxTokens:     opts.MaxTokens,
		Stream:        true,
		StopSequences: opts.StopSequences,
		System:        opts.SystemPrompt,
		Messages:      encodeClaudeMessages(conversation),
	}

	if opts.Reasoning != nil {
		// The API rejects a custom temperature once thinking is enabled.
		neutral := llmstream.DefaultTemperature
		req.Temperature = &neutral
		req.Thinking = &claudeThinking{
			Type:         "enabled",
			BudgetTokens: opts.Reasoning.BudgetTokens(),
		}
	} else if opts.Temperature != llmstream.DefaultTemperature {
		t := opts.Temperature
		req.Temperature = &t
	}

	for _, tool := range opts.Tools {
		req.Tools = append(req.Tools, claudeTool{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.Parameters,
		})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, &llmstream.RequestError{Err: err}
	}
	c.logger.Debug("anthropic request body", "body", string(body))

	header := http.Header{}
	header.Set("x-api-key", c.apiKey)
	header.Set("anthropic-version", anthropicVersion)
	header.Set("content-type", "application/json")

	client := sse.Open(ctx, sse.Request{URL: c.endpoint, Header: header, Body: body}, c.logger)

	return &claudeStream{source: client, logger: c.logger}, nil
}

// encodeClaudeMessages collates canonical turns into the wire message array:
// consecutive same-role text appends to the current text block unless the
// message currently ends in a non-text block, tool requests become assistant
// tool_use blocks, and tool responses become user tool_result blocks.
func encodeClaudeMessages(conversation []llmstream.Message) []claudeMessage {
	messages := []claudeMessage{}

	appendText := func(role, text string) {
		if len(messages) > 0 {
			last := &messages[len(messages)-1]
			if last.Role == role {
				if tail := &last.Content[len(last.Content)-1]; tail.Type == "text" {
					tail.Text += textSeparator + text
				} else {
					last.Content = append(last.Content, claudeContent{Type: "text", Text: text})
				}
				return
			}
		}
		messages = append(messages, claudeMessage{
			Role:    role,
			Content: []claudeContent{{Type: "text", Text: text}},
		})
	}

	appendBlock := func(role string, block claudeContent) {
		if len(messages) > 0 {
			last := &messages[len(messages)-1]
			if last.Role == role {
				last.Content = append(last.Content, block)
				return
			}
		}
		messages = append(messages, claudeMessage{Role: role, Content: []claudeContent{block}})
	}

	for _, msg := range conversation {
		switch msg := msg.(type) {
		case llmstream.User:
			appendText(RoleUser, string(msg))
		case llmstream.Assistant:
			appendText(RoleAssistant, string(msg))
		case llmstream.ToolRequest:
			input := json.RawMessage(msg.Arguments)
			if len(input) == 0 {
				input = json.RawMessage("{}")
			}
			appendBlock(RoleAssistant, claudeContent{
				Type:  "tool_use",
				ID:    msg.ID,
				Name:  msg.Name,
				Input: input,
			})
		case llmstream.ToolResponse:
			appendBlock(RoleUser, claudeContent{
				Type:      "tool_result",
				ToolUseID: msg.ID,
				Content:   msg.Content,
			})
		}
	}

	return messages
}

// Anthropic wire events.
type claudeStreamEvent struct {
	ContentBlock *claudeBlock `json:"content_block"`
	Delta        *claudeBlock `json:"delta"`
}

type claudeBlock struct {
	Type        string `json:"type"`
	Text        string `json:"text"`
	Thinking    string `json:"thinking"`
	PartialJSON string `json:"partial_json"`
	ID          string `json:"id"`
	Name        string `json:"name"`
}

// claudeStream decodes Anthropic wire records into canonical chunks. Unknown
// event and block types are logged and skipped; the protocol grows fields
// over time and additions must not abort the stream.
type claudeStream struct {
	source recordSource
	logger *slog.Logger
	closed bool
}

// recordSource is what the decoders poll; *sse.Client satisfies it.
type recordSource interface {
	Recv() (sse.Event, error)
	Close() error
}

func (s *claudeStream) Close() error {
	s.closed = true
	return s.source.Close()
}

func (s *claudeStream) Recv() (llmstream.Chunk, error) {
	if s.closed {
		return nil, io.EOF
	}

	for {
		rec, err := s.source.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.closed = true
			}
			return nil, err
		}

		switch rec.Type {
		case "ping", "message_start", "content_block_stop", "message_delta":
			// Protocol noise between content events.
		case "message_stop":
			s.closed = true
			s.source.Close()
			return nil, io.EOF
		case "content_block_start":
			var ev claudeStreamEvent
			if err := json.Unmarshal(rec.Data, &ev); err != nil || ev.ContentBlock == nil {
				return nil, &sse.FramingError{Msg: "content_block_start has no content_block", Block: rec.Data}
			}
			if chunk := s.decodeBlock("content_block_start", ev.ContentBlock); chunk != nil {
				return chunk, nil
			}
		case "content_block_delta":
			var ev claudeStreamEvent
			if err := json.Unmarshal(rec.Data, &ev); err != nil || ev.Delta == nil {
				return nil, &sse.FramingError{Msg: "content_block_delta has no delta", Block: rec.Data}
			}
			if chunk := s.decodeBlock("content_block_delta", ev.Delta); chunk != nil {
				return chunk, nil
			}
		default:
			s.logger.Error("unexpected anthropic event", "event", rec.Type, "data", string(rec.Data))
		}
	}
}

// decodeBlock maps one content block or delta to a chunk, or nil when the
// block carries nothing to surface.
func (s *claudeStream) decodeBlock(event string, block *claudeBlock) llmstream.Chunk {
	switch block.Type {
	case "text", "text_delta":
		if block.Text != "" {
			return llmstream.Token(block.Text)
		}
	case "thinking", "thinking_delta":
		if block.Thinking != "" {
			return llmstream.Thinking(block.Thinking)
		}
	case "tool_use":
		return llmstream.ToolCall{ID: block.ID, Name: block.Name}
	case "input_json_delta":
		if block.PartialJSON != "" {
			return llmstream.ToolCall{Arguments: block.PartialJSON}
		}
	case "signature_delta", "redacted_thinking":
		// Opaque reasoning metadata; nothing to surface.
	default:
		s.logger.Error("unexpected anthropic content block", "event", event, "type", block.Type)
	}
	return nil
}
