package ai

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/benvon/insight-coach/internal/apperr"
	"github.com/benvon/insight-coach/internal/request"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// DefaultGeminiModel is used when AI_MODEL is unset for the gemini provider
const DefaultGeminiModel = "gemini-2.5-flash"

// generateFunc matches (*genai.Models).GenerateContent
type generateFunc func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

// GeminiProvider implements Completer using the Gemini API
type GeminiProvider struct {
	generate  generateFunc
	model     string
	timeout   time.Duration
	logger    *zap.Logger
	debugMode bool
}

// NewGeminiProvider creates a Gemini provider. A blank API key is a
// configuration error.
func NewGeminiProvider(ctx context.Context, cfg ProviderConfig) (*GeminiProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, apperr.Configuration(nil, "GEMINI_API_KEY is required for the gemini provider")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = cfg.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, apperr.Configuration(err, "failed to create Gemini client")
	}

	return newGeminiProvider(client.Models.GenerateContent, cfg), nil
}

func newGeminiProvider(generate generateFunc, cfg ProviderConfig) *GeminiProvider {
	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiProvider{
		generate:  generate,
		model:     model,
		timeout:   cfg.timeout(),
		logger:    cfg.Logger,
		debugMode: cfg.DebugMode,
	}
}

// Complete sends the system instruction and the user message and returns
// the text of the first candidate.
func (p *GeminiProvider) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	requestID := request.RequestID(ctx)

	temperature := float32(req.Temperature)
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: req.System}}},
		Temperature:       &temperature,
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}

	if p.logger != nil && p.debugMode {
		p.logger.Debug("llm_api_request",
			zap.String("provider", "gemini"),
			zap.String("model", p.model),
			zap.Float64("temperature", req.Temperature),
			zap.Int("prompt_length", len(req.System)),
			zap.String("prompt_preview", SanitizePrompt(req.System, true)),
			zap.String("user_id", HashUserID(request.UserID(ctx))),
			zap.String("request_id", requestID),
		)
	}

	start := time.Now()
	resp, err := p.generate(ctx, p.model, genai.Text(req.User), config)
	latency := time.Since(start)
	if err != nil {
		if p.logger != nil {
			p.logger.Warn("llm_api_error",
				zap.String("provider", "gemini"),
				zap.String("model", p.model),
				zap.String("failure_class", Classify(err)),
				zap.Error(err),
				zap.String("request_id", requestID),
				zap.Int64("latency_ms", latency.Milliseconds()),
			)
		}
		return "", upstreamError(ctx, "gemini", p.timeout, err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", apperr.Upstream(errors.New(ErrNoChoicesInResponse), "gemini completion returned no candidates")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && !part.Thought {
			b.WriteString(part.Text)
		}
	}
	content := strings.TrimSpace(b.String())
	if content == "" {
		return "", apperr.Upstream(errors.New(ErrEmptyCompletion), "gemini completion returned empty text")
	}

	if p.logger != nil && p.debugMode {
		p.logger.Debug("llm_api_response",
			zap.String("provider", "gemini"),
			zap.String("model", p.model),
			zap.Int("response_length", len(content)),
			zap.String("response_preview", SanitizeResponse(content, true)),
			zap.String("request_id", requestID),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
	}

	return content, nil
}

// RegisterGemini registers the Gemini provider with the registry
func RegisterGemini(registry *ProviderRegistry) {
	registry.Register("gemini", func(cfg ProviderConfig) (Completer, error) {
		return NewGeminiProvider(context.Background(), cfg)
	})
}
