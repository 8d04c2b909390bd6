package ai

import (
	"context"
	"errors"
	"time"

	"github.com/benvon/insight-coach/internal/apperr"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a completion call when the caller sets none
const DefaultTimeout = 20 * time.Second

// Completer produces a single reply for a composed prompt.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// CompletionRequest is one system/user exchange
type CompletionRequest struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int
}

// ProviderConfig is what every provider factory receives
type ProviderConfig struct {
	APIKey    string
	Model     string
	BaseURL   string
	Timeout   time.Duration
	Logger    *zap.Logger
	DebugMode bool
}

func (c ProviderConfig) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

// ProviderFactory creates a completer from its configuration
type ProviderFactory func(cfg ProviderConfig) (Completer, error)

// ProviderRegistry stores available AI providers
type ProviderRegistry struct {
	providers map[string]ProviderFactory
}

// NewProviderRegistry creates a new provider registry
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		providers: make(map[string]ProviderFactory),
	}
}

// NewDefaultRegistry returns a registry with every built-in provider.
func NewDefaultRegistry() *ProviderRegistry {
	r := NewProviderRegistry()
	RegisterOpenAI(r)
	RegisterGemini(r)
	return r
}

// Register registers a provider factory
func (r *ProviderRegistry) Register(name string, factory ProviderFactory) {
	r.providers[name] = factory
}

// GetProvider gets a provider by name. An unknown name is a configuration error.
func (r *ProviderRegistry) GetProvider(name string, cfg ProviderConfig) (Completer, error) {
	factory, ok := r.providers[name]
	if !ok {
		return nil, apperr.Configuration(&ErrProviderNotFound{Name: name}, "unknown AI provider %q", name)
	}

	return factory(cfg)
}

// ErrProviderNotFound is returned when a provider is not found
type ErrProviderNotFound struct {
	Name string
}

func (e *ErrProviderNotFound) Error() string {
	return "AI provider not found: " + e.Name
}

// upstreamError turns a provider failure into an apperr.Upstream, naming
// the timeout when the call's own deadline fired.
func upstreamError(ctx context.Context, provider string, timeout time.Duration, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return apperr.Upstream(err, "%s completion timed out after %s", provider, timeout)
	}
	if apiErr := ExtractAPIError(err); apiErr != nil {
		return apperr.Upstream(apiErr, "%s completion failed", provider)
	}
	return apperr.Upstream(err, "%s completion failed", provider)
}
