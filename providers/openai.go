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
	openaiEndpoint  = "https://api.openai.com/v1/chat/completions"
	chatChunkObject = "chat.completion.chunk"
)

// GptModel identifies an OpenAI model.
type GptModel string

const (
	Gpt4o         GptModel = "gpt-4o"
	Gpt4o20240806 GptModel = "gpt-4o-2024-08-06"
	ChatGpt4o     GptModel = "chatgpt-4o-latest"
	Gpt4oMini     GptModel = "gpt-4o-mini"
	O1            GptModel = "o1"
	O1Mini        GptModel = "o1-mini"
	O1Preview     GptModel = "o1-preview"
	O3Mini        GptModel = "o3-mini"
)

// gptReasoningModels marks the model family that takes a "developer" system
// role and rejects a custom temperature.
var gptReasoningModels = map[GptModel]bool{
	O1:        true,
	O1Mini:    true,
	O1Preview: true,
	O3Mini:    true,
}

func (m GptModel) systemRole() string {
	if gptReasoningModels[m] {
		return RoleDeveloper
	}
	return RoleSystem
}

func (m GptModel) supportsTemperature() bool {
	return !gptReasoningModels[m]
}

// GPT streams completions from the OpenAI chat completions API.
type GPT struct {
	model    GptModel
	apiKey   string
	endpoint string
	logger   *slog.Logger
}

func NewGPT(model GptModel, apiKey string) *GPT {
	return &GPT{
		model:    model,
		apiKey:   apiKey,
		endpoint: openaiEndpoint,
		logger:   slog.Default(),
	}
}

// NewGPTFromEnv reads the API key from OPENAI_API_KEY.
func NewGPTFromEnv(model GptModel) (*GPT, error) {
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable not set")
	}
	return NewGPT(model, key), nil
}

// SetLogger replaces the default logger.
func (g *GPT) SetLogger(logger *slog.Logger) { g.logger = logger }

// SetEndpoint overrides the API endpoint, mainly for tests.
func (g *GPT) SetEndpoint(endpoint string) { g.endpoint = endpoint }

// OpenAI wire request.
type openaiRequest struct {
	Model               GptModel        `json:"model"`
	MaxCompletionTokens int             `json:"max_completion_tokens"`
	Temperature         *float64        `json:"temperature,omitempty"`
	Stream              bool            `json:"stream"`
	Stop                []string        `json:"stop,omitempty"`
	ReasoningEffort     string          `json:"reasoning_effort,omitempty"`
	Tools               []openaiTool    `json:"tools,omitempty"`
	Messages            []openaiMessage `json:"messages"`
}

type openaiTool struct {
	Type     string         `json:"type"`
	Function openaiFunction `json:"function"`
}

type openaiFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

type openaiMessage struct {
	Role       string           `json:"role"`
	Content    string           `json:"content"`
	ToolCalls  []openaiToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
}

type openaiToolCall struct {
	ID       string             `json:"id"`
	Type     string             `json:"type"`
	Function openaiCallFunction `json:"function"`
}

type openaiCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Prompt encodes the conversation, opens the stream, and returns the decoder.
func (g *GPT) Prompt(ctx context.Context, conversation []llmstream.Message, opts *llmstream.PromptOptions) (llmstream.Stream, error) {
	if opts == nil {
		opts = llmstream.DefaultOptions()
	}

	req := openaiRequest{
		Model:               g.model,
		MaxCompletionTokens: opts.MaxTokens,
		Stream:              true,
		Stop:                opts.StopSequences,
		Tools:               encodeOpenAITools(opts.Tools),
		Messages:            encodeOpenAIMessages(conversation, opts.SystemPrompt, g.model.systemRole()),
	}

	// Reasoning models reject the temperature field outright, so it is
	// dropped rather than pinned.
	if g.model.supportsTemperature() && opts.Temperature != llmstream.DefaultTemperature {
		t := opts.Temperature
		req.Temperature = &t
	}
	if opts.Reasoning != nil {
		req.ReasoningEffort = opts.Reasoning.String()
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, &llmstream.RequestError{Err: err}
	}
	g.logger.Debug("openai request body", "body", string(body))

	header := http.Header{}
	header.Set("Authorization", "Bearer "+g.apiKey)
	header.Set("content-type", "application/json")

	client := sse.Open(ctx, sse.Request{URL: g.endpoint, Header: header, Body: body}, g.logger)

	return &openAIStream{source: client}, nil
}

func encodeOpenAITools(tools []llmstream.Tool) []openaiTool {
	var out []openaiTool
	for _, tool := range tools {
		out = append(out, openaiTool{
			Type: "function",
			Function: openaiFunction{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}
	return out
}

// encodeOpenAIMessages collates canonical turns into the flat message list:
// consecutive same-role text merges, tool requests extend the assistant
// message's tool_calls, and tool responses become distinct "tool" role
// messages keyed by the originating call id.
func encodeOpenAIMessages(conversation []llmstream.Message, systemPrompt, systemRole string) []openaiMessage {
	var messages []openaiMessage
	if systemPrompt != "" {
		messages = append(messages, openaiMessage{Role: systemRole, Content: systemPrompt})
	}

	appendText := func(role, text string) {
		if len(messages) > 0 {
			last := &messages[len(messages)-1]
			if last.Role == role && len(last.ToolCalls) == 0 {
				last.Content += textSeparator + text
				return
			}
		}
		messages = append(messages, openaiMessage{Role: role, Content: text})
	}

	for _, msg := range conversation {
		switch msg := msg.(type) {
		case llmstream.User:
			appendText(RoleUser, string(msg))
		case llmstream.Assistant:
			appendText(RoleAssistant, string(msg))
		case llmstream.ToolRequest:
			call := openaiToolCall{
				ID:   msg.ID,
				Type: "function",
				Function: openaiCallFunction{
					Name:      msg.Name,
					Arguments: msg.Arguments,
				},
			}
			if len(messages) > 0 && messages[len(messages)-1].Role == RoleAssistant {
				last := &messages[len(messages)-1]
				last.ToolCalls = append(last.ToolCalls, call)
			} else {
				messages = append(messages, openaiMessage{
					Role:      RoleAssistant,
					ToolCalls: []openaiToolCall{call},
				})
			}
		case llmstream.ToolResponse:
			messages = append(messages, openaiMessage{
				Role:       RoleTool,
				ToolCallID: msg.ID,
				Content:    msg.Content,
			})
		}
	}

	return messages
}

// OpenAI wire events. The same chunk shape is used by OpenRouter.
type chatChunk struct {
	Object  string       `json:"object"`
	Choices []chatChoice `json:"choices"`
}

type chatChoice struct {
	Delta *chatDelta `json:"delta"`
}

type chatDelta struct {
	Content          string         `json:"content"`
	Reasoning        string         `json:"reasoning"`
	ReasoningContent string         `json:"reasoning_content"`
	ToolCalls        []chatToolCall `json:"tool_calls"`
}

type chatToolCall struct {
	ID       string                `json:"id"`
	Function *chatToolCallFunction `json:"function"`
}

type chatToolCallFunction struct {
	Name      string  `json:"name"`
	Arguments *string `json:"arguments"`
}

// openAIStream decodes OpenAI-compatible wire records into canonical chunks.
// The protocol's shape is small, so deviations indicate a real bug: shape
// violations and unknown events end the stream as errors instead of being
// skipped. A record can carry several tool-call fragments; those beyond the
// first are queued and drained in order before the transport is polled again.
type openAIStream struct {
	source  recordSource
	pending []llmstream.Chunk
	closed  bool
}

func (s *openAIStream) Close() error {
	s.closed = true
	return s.source.Close()
}

func (s *openAIStream) Recv() (llmstream.Chunk, error) {
	for {
		if len(s.pending) > 0 {
			chunk := s.pending[0]
			s.pending = s.pending[1:]
			return chunk, nil
		}
		if s.closed {
			return nil, io.EOF
		}

		rec, err := s.source.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.closed = true
			}
			return nil, err
		}

		if rec.Type == sse.TypeDone {
			s.closed = true
			s.source.Close()
			return nil, io.EOF
		}
		if rec.Type != "" {
			return nil, s.fatal(&UnknownEventError{Type: rec.Type})
		}

		chunks, err := decodeChatChunk(rec.Data)
		if err != nil {
			return nil, s.fatal(err)
		}
		s.pending = chunks
	}
}

// fatal ends the stream; decode errors here are terminal by design.
func (s *openAIStream) fatal(err error) error {
	s.closed = true
	s.source.Close()
	return err
}

// decodeChatChunk extracts every chunk carried by one wire record, in wire
// order. An empty result means the record was bookkeeping only (role
// announcement, finish reason, usage).
func decodeChatChunk(data json.RawMessage) ([]llmstream.Chunk, error) {
	var chunk chatChunk
	if err := json.Unmarshal(data, &chunk); err != nil {
		return nil, &MalformedResponseError{Msg: "chunk is not an object", Raw: data}
	}
	if chunk.Object == "" {
		return nil, &MalformedResponseError{Msg: "chunk has no object field", Raw: data}
	}
	if chunk.Object != chatChunkObject {
		return nil, &UnknownEventError{Type: chunk.Object}
	}
	if len(chunk.Choices) != 1 {
		return nil, &MalformedResponseError{Msg: "chunk must have exactly one choice", Raw: data}
	}
	delta := chunk.Choices[0].Delta
	if delta == nil {
		return nil, &MalformedResponseError{Msg: "choice has no delta", Raw: data}
	}

	var chunks []llmstream.Chunk
	if delta.Content != "" {
		chunks = append(chunks, llmstream.Token(delta.Content))
	}
	if delta.ReasoningContent != "" {
		chunks = append(chunks, llmstream.Thinking(delta.ReasoningContent))
	} else if delta.Reasoning != "" {
		chunks = append(chunks, llmstream.Thinking(delta.Reasoning))
	}
	for _, call := range delta.ToolCalls {
		if call.Function == nil {
			return nil, &MalformedResponseError{Msg: "tool call has no function", Raw: data}
		}
		if call.Function.Arguments == nil {
			return nil, &MalformedResponseError{Msg: "tool call has no arguments", Raw: data}
		}
		chunks = append(chunks, llmstream.ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: *call.Function.Arguments,
		})
	}

	return chunks, nil
}
