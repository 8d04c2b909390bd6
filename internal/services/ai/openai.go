package ai

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/benvon/insight-coach/internal/apperr"
	"github.com/benvon/insight-coach/internal/request"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"
)

const (
	// DefaultOpenAIModel is the default model to use
	DefaultOpenAIModel = "gpt-4o-mini"
	// DefaultOpenAIBaseURL is the default OpenAI API base URL
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"

	// ErrNoChoicesInResponse is returned when the API response has no choices
	ErrNoChoicesInResponse = "no choices in response"
	// ErrEmptyCompletion is returned when the model answered with blank text
	ErrEmptyCompletion = "empty completion text"
)

// OpenAIProvider implements Completer using OpenAI's chat completions API
type OpenAIProvider struct {
	client    openai.Client
	model     string
	timeout   time.Duration
	logger    *zap.Logger
	debugMode bool
}

// NewOpenAIProvider creates a new OpenAI provider. A blank API key is a
// configuration error.
func NewOpenAIProvider(cfg ProviderConfig) (*OpenAIProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, apperr.Configuration(nil, "OPENAI_API_KEY is required for the openai provider")
	}
	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}

	httpClient := &http.Client{
		Timeout: cfg.timeout() + 5*time.Second,
	}

	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	)

	return &OpenAIProvider{
		client:    client,
		model:     model,
		timeout:   cfg.timeout(),
		logger:    cfg.Logger,
		debugMode: cfg.DebugMode,
	}, nil
}

// Complete sends one system and one user message and returns the first choice.
func (p *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	requestID := request.RequestID(ctx)
	userID := request.UserID(ctx)

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.User),
		},
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}

	if p.logger != nil && p.debugMode {
		p.logger.Debug("llm_api_request",
			zap.String("provider", "openai"),
			zap.String("model", p.model),
			zap.Float64("temperature", req.Temperature),
			zap.Int("prompt_length", len(req.System)),
			zap.String("prompt_preview", SanitizePrompt(req.System, true)),
			zap.String("user_id", HashUserID(userID)),
			zap.String("request_id", requestID),
		)
	}

	start := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, params)
	latency := time.Since(start)
	if err != nil {
		if p.logger != nil {
			p.logger.Warn("llm_api_error",
				zap.String("provider", "openai"),
				zap.String("model", p.model),
				zap.String("failure_class", Classify(err)),
				zap.Error(err),
				zap.String("request_id", requestID),
				zap.Int64("latency_ms", latency.Milliseconds()),
			)
		}
		return "", upstreamError(ctx, "openai", p.timeout, err)
	}

	if len(resp.Choices) == 0 {
		return "", apperr.Upstream(errors.New(ErrNoChoicesInResponse), "openai completion returned no choices")
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", apperr.Upstream(errors.New(ErrEmptyCompletion), "openai completion returned empty text")
	}

	if p.logger != nil && p.debugMode {
		p.logger.Debug("llm_api_response",
			zap.String("provider", "openai"),
			zap.String("model", p.model),
			zap.Int("response_length", len(content)),
			zap.String("response_preview", SanitizeResponse(content, true)),
			zap.String("request_id", requestID),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
	}

	return content, nil
}

// RegisterOpenAI registers the OpenAI provider with the registry
func RegisterOpenAI(registry *ProviderRegistry) {
	registry.Register("openai", func(cfg ProviderConfig) (Completer, error) {
		return NewOpenAIProvider(cfg)
	})
}
