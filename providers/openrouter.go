package providers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"

	"github.com/Davincible/llmstream"
	"github.com/Davincible/llmstream/sse"
)

const openrouterEndpoint = "https://openrouter.ai/api/v1/chat/completions"

// OpenRouter streams completions through the OpenRouter gateway. The wire
// chunk shape is identical to OpenAI's, so it reuses that decoder; only the
// request encoding differs.
type OpenRouter struct {
	model    string
	apiKey   string
	endpoint string
	logger   *slog.Logger
}

func NewOpenRouter(model, apiKey string) *OpenRouter {
	return &OpenRouter{
		model:    model,
		apiKey:   apiKey,
		endpoint: openrouterEndpoint,
		logger:   slog.Default(),
	}
}

// NewOpenRouterFromEnv reads the API key from OPENROUTER_API_KEY.
func NewOpenRouterFromEnv(model string) (*OpenRouter, error) {
	key := os.Getenv("OPENROUTER_API_KEY")
	if key == "" {
		return nil, errors.New("OPENROUTER_API_KEY environment variable not set")
	}
	return NewOpenRouter(model, key), nil
}

// SetLogger replaces the default logger.
func (o *OpenRouter) SetLogger(logger *slog.Logger) { o.logger = logger }

// SetEndpoint overrides the API endpoint, mainly for tests.
func (o *OpenRouter) SetEndpoint(endpoint string) { o.endpoint = endpoint }

// OpenRouter wire request. Unlike OpenAI, temperature and max_tokens are
// always sent; model quirks are the gateway's problem.
type openrouterRequest struct {
	Model       string               `json:"model"`
	MaxTokens   int                  `json:"max_tokens"`
	Temperature float64              `json:"temperature"`
	Stream      bool                 `json:"stream"`
	Stop        []string             `json:"stop,omitempty"`
	Tools       []openaiTool         `json:"tools,omitempty"`
	Reasoning   *openrouterReasoning `json:"reasoning,omitempty"`
	Messages    []openaiMessage      `json:"messages"`
}

type openrouterReasoning struct {
	Effort string `json:"effort"`
}

// Prompt encodes the conversation, opens the stream, and returns the shared
// OpenAI-compatible decoder.
func (o *OpenRouter) Prompt(ctx context.Context, conversation []llmstream.Message, opts *llmstream.PromptOptions) (llmstream.Stream, error) {
	if opts == nil {
		opts = llmstream.DefaultOptions()
	}

	req := openrouterRequest{
		Model:       o.model,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		Stream:      true,
		Stop:        opts.StopSequences,
		Tools:       encodeOpenAITools(opts.Tools),
		Messages:    encodeOpenAIMessages(conversation, opts.SystemPrompt, RoleSystem),
	}
	if opts.Reasoning != nil {
		req.Reasoning = &openrouterReasoning{Effort: opts.Reasoning.String()}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, &llmstream.RequestError{Err: err}
	}
	o.logger.Debug("openrouter request body", "body", string(body))

	header := http.Header{}
	header.Set("Authorization", "Bearer "+o.apiKey)
	header.Set("content-type", "application/json")

	client := sse.Open(ctx, sse.Request{URL: o.endpoint, Header: header, Body: body}, o.logger)

	return &openAIStream{source: client}, nil
}
