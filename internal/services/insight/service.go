// Package insight runs the request pipeline: rate limiting, input
// normalization, signal derivation, intent and tone resolution, the
// deterministic shortcuts, prompt composition, completion and reply shaping.
package insight

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/benvon/insight-coach/internal/apperr"
	"github.com/benvon/insight-coach/internal/intent"
	"github.com/benvon/insight-coach/internal/logger"
	"github.com/benvon/insight-coach/internal/memory"
	"github.com/benvon/insight-coach/internal/metrics"
	"github.com/benvon/insight-coach/internal/models"
	"github.com/benvon/insight-coach/internal/prompt"
	"github.com/benvon/insight-coach/internal/ratelimit"
	"github.com/benvon/insight-coach/internal/reply"
	"github.com/benvon/insight-coach/internal/request"
	"github.com/benvon/insight-coach/internal/services/ai"
	"github.com/benvon/insight-coach/internal/shortcut"
	"github.com/benvon/insight-coach/internal/signals"
	"github.com/benvon/insight-coach/internal/tone"
	"github.com/benvon/insight-coach/internal/validation"
	"github.com/benvon/insight-coach/internal/workers"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/benvon/insight-coach/internal/services/insight"

// RateLimitMessage is the client-facing text of a 429
const RateLimitMessage = "Too many requests. Please wait a minute and try again."

// ReplyAcknowledgement marks a reply produced by the acknowledgement check
const ReplyAcknowledgement shortcut.Kind = "acknowledgement"

// Config wires the service's collaborators. Only Personas is required for
// Plan; Generate additionally uses the rest when set.
type Config struct {
	Limiter   ratelimit.Limiter
	Memory    memory.Store
	Updater   workers.UpdateScheduler
	Completer ai.Completer
	Personas  *prompt.Catalogue
	Chance    tone.Chance
	Location  *time.Location
	Now       func() time.Time
	Logger    *zap.Logger
	DebugMode bool
}

// Service answers insight requests
type Service struct {
	limiter   ratelimit.Limiter
	memory    memory.Store
	updater   workers.UpdateScheduler
	completer ai.Completer
	personas  *prompt.Catalogue
	chance    tone.Chance
	location  *time.Location
	now       func() time.Time
	logger    *zap.Logger
	debugMode bool
	tracer    trace.Tracer
}

// NewService creates a Service, filling unset collaborators with defaults.
func NewService(cfg Config) *Service {
	s := &Service{
		limiter:   cfg.Limiter,
		memory:    cfg.Memory,
		updater:   cfg.Updater,
		completer: cfg.Completer,
		personas:  cfg.Personas,
		chance:    cfg.Chance,
		location:  cfg.Location,
		now:       cfg.Now,
		logger:    cfg.Logger,
		debugMode: cfg.DebugMode,
		tracer:    otel.Tracer(tracerName),
	}
	if s.personas == nil {
		s.personas = prompt.DefaultCatalogue()
	}
	if s.chance == nil {
		s.chance = tone.RandomChance{}
	}
	if s.location == nil {
		s.location = time.UTC
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Debug explains how a reply was produced
type Debug struct {
	Intent      intent.Intent   `json:"intent"`
	Flags       intent.Flags    `json:"flags"`
	Settings    tone.Settings   `json:"settings"`
	Signals     signals.Signals `json:"signals"`
	Persona     string          `json:"persona"`
	LocalHour   int             `json:"localHour"`
	Temperature float64         `json:"temperature,omitempty"`
	Shortcut    shortcut.Kind   `json:"shortcut"`
}

// Result is a produced insight
type Result struct {
	Insight string
	Debug   *Debug
}

// Plan is everything derived from a request before any completion call. When
// Reply is set the request is answered without one.
type Plan struct {
	Metrics     metrics.Metrics
	Profile     metrics.Profile
	Trends      metrics.Trends
	Preferences metrics.Preferences
	Signals     signals.Signals
	Intent      intent.Intent
	Flags       intent.Flags
	Settings    tone.Settings
	LocalHour   int
	Prompt      prompt.Prompt
	Temperature float64
	Shortcut    shortcut.Kind
	Reply       string
}

func (p *Plan) debug() *Debug {
	d := &Debug{
		Intent:    p.Intent,
		Flags:     p.Flags,
		Settings:  p.Settings,
		Signals:   p.Signals,
		Persona:   p.Prompt.Persona,
		LocalHour: p.LocalHour,
		Shortcut:  p.Shortcut,
	}
	if p.Reply == "" {
		d.Temperature = p.Temperature
	}
	return d
}

// Generate validates req, applies the rate limit and produces one insight.
// A memory update is scheduled after every successful reply and is never
// waited on.
func (s *Service) Generate(ctx context.Context, req *models.InsightRequest) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "insight.generate")
	defer span.End()
	start := time.Now()

	if err := validation.InsightRequest(req); err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}
	ctx = request.WithUserID(ctx, req.UserID)

	if err := s.checkRateLimit(ctx, req.UserID); err != nil {
		span.SetStatus(codes.Error, "rate limited")
		return nil, err
	}

	mem := s.readMemory(ctx, req.UserID)
	plan := s.Plan(req, mem)
	span.SetAttributes(
		attribute.String("insight.intent", string(plan.Intent)),
		attribute.String("insight.shortcut", string(plan.Shortcut)),
	)

	text := plan.Reply
	if text == "" {
		raw, err := s.complete(ctx, plan)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(apperr.KindOf(err)))
			s.logger.Error("insight_failed",
				zap.String("request_id", request.RequestID(ctx)),
				zap.String("user_id", ai.HashUserID(req.UserID)),
				zap.String("intent", string(plan.Intent)),
				zap.String("kind", string(apperr.KindOf(err))),
				zap.Error(err),
			)
			return nil, err
		}

		text = reply.Sanitize(raw, reply.Context{
			Question:       req.Question,
			Intent:         plan.Intent,
			AskedQuestion:  plan.Flags.AskedQuestion,
			ProteinPerMeal: plan.Prompt.ProteinPerMeal,
			Metrics:        plan.Metrics,
			History:        req.ChatHistory,
		})
		if strings.TrimSpace(text) == "" {
			return nil, apperr.Upstream(errors.New(ai.ErrEmptyCompletion), "completion produced no usable text")
		}
	}

	s.scheduleMemoryUpdate(req, plan)

	s.logger.Info("insight_completed",
		zap.String("request_id", request.RequestID(ctx)),
		zap.String("user_id", ai.HashUserID(req.UserID)),
		zap.String("intent", string(plan.Intent)),
		zap.String("shortcut", string(plan.Shortcut)),
		zap.String("persona", plan.Prompt.Persona),
		zap.Duration("duration", time.Since(start)),
	)

	result := &Result{Insight: text}
	if s.debugMode {
		result.Debug = plan.debug()
	}
	return result, nil
}

// Plan runs every deterministic stage for req against the memory snapshot
// mem. It performs no I/O.
func (s *Service) Plan(req *models.InsightRequest, mem memory.Memory) Plan {
	p := Plan{
		Metrics:     metrics.Normalize(req.Metrics),
		Profile:     metrics.NormalizeProfile(req.Profile),
		Trends:      metrics.NormalizeTrends(req.Trends),
		Preferences: metrics.NormalizePreferences(req.Preferences),
		LocalHour:   s.localHour(req),
	}
	p.Signals = signals.Compute(p.Metrics, p.Trends, p.LocalHour)
	p.Intent = intent.Classify(req.Question)
	p.Flags = intent.DetectFlags(req.Question, p.Metrics)
	p.Settings = tone.Resolve(p.Preferences, mem, p.Intent, p.Flags, p.Signals.OnTrack, s.chance)

	persona := s.personas.Lookup(req.Lens)
	p.Prompt.Persona = persona.Key

	if text, kind, ok := shortcut.Respond(p.Flags, p.Profile, p.Metrics, p.Signals); ok {
		p.Shortcut, p.Reply = kind, text
		return p
	}
	if text, ok := reply.Acknowledge(req.Question, req.ChatHistory); ok {
		p.Shortcut, p.Reply = ReplyAcknowledgement, text
		return p
	}

	p.Shortcut = shortcut.KindNone
	p.Prompt = prompt.Compose(prompt.Input{
		Persona: persona,
		Birth: prompt.BirthDetails{
			Date:  req.BirthDate,
			Time:  req.BirthTime,
			Place: req.BirthPlace,
		},
		Settings:     p.Settings,
		Memory:       mem,
		Metrics:      p.Metrics,
		Trends:       p.Trends,
		Signals:      p.Signals,
		Intent:       p.Intent,
		Flags:        p.Flags,
		History:      req.ChatHistory,
		Question:     req.Question,
		IsVoiceInput: req.IsVoiceInput,
		LocalHour:    p.LocalHour,
	})
	p.Temperature = ai.SelectTemperature(p.Intent, p.Settings.Pressure, p.LocalHour)
	return p
}

func (s *Service) checkRateLimit(ctx context.Context, userID string) error {
	if s.limiter == nil {
		return nil
	}

	decision, err := s.limiter.Allow(ctx, userID)
	if err != nil {
		s.logger.Warn("rate_limit_check_failed", zap.Error(err))
		return nil
	}
	if decision.Allowed {
		return nil
	}

	s.logger.Warn("rate_limit_exceeded",
		zap.String("user_id", ai.HashUserID(userID)),
		zap.Int("count", decision.Count),
		zap.Int("limit", decision.Limit),
	)
	return apperr.RateLimited(&ratelimit.LimitError{Decision: decision}, RateLimitMessage)
}

// readMemory returns the user's snapshot, or an empty one when the store
// is missing or failing.
func (s *Service) readMemory(ctx context.Context, userID string) memory.Memory {
	if s.memory == nil {
		return memory.Memory{}
	}
	mem, err := s.memory.Get(ctx, userID)
	if err != nil {
		s.logger.Warn("memory_read_failed",
			zap.String("user_id", ai.HashUserID(userID)),
			zap.String("error", logger.SanitizeError(err)),
		)
		return memory.Memory{}
	}
	return mem
}

func (s *Service) complete(ctx context.Context, plan Plan) (string, error) {
	if s.completer == nil {
		return "", apperr.Configuration(nil, "completion service is not configured")
	}

	ctx, span := s.tracer.Start(ctx, "insight.complete", trace.WithAttributes(
		attribute.Float64("llm.temperature", plan.Temperature),
		attribute.Int("llm.max_tokens", ai.MaxTokens),
	))
	defer span.End()

	text, err := s.completer.Complete(ctx, ai.CompletionRequest{
		System:      plan.Prompt.System,
		User:        plan.Prompt.User,
		Temperature: plan.Temperature,
		MaxTokens:   ai.MaxTokens,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, ai.Classify(err))
		var appErr *apperr.AppError
		if !errors.As(err, &appErr) {
			err = apperr.Upstream(err, "completion failed")
		}
		return "", err
	}
	return text, nil
}

func (s *Service) scheduleMemoryUpdate(req *models.InsightRequest, plan Plan) {
	if s.updater == nil {
		return
	}
	update := memory.Update{ProteinG: plan.Metrics.DietaryProteinG}
	if req.Feedback != nil {
		update.Feedback = req.Feedback.Rating
	}
	if !s.updater.Schedule(req.UserID, update) {
		s.logger.Warn("memory_update_not_scheduled", zap.String("user_id", ai.HashUserID(req.UserID)))
	}
}

// localHour prefers the client's explicit hour, then its time zone, then
// the service default.
func (s *Service) localHour(req *models.InsightRequest) int {
	if req.LocalHour != nil && *req.LocalHour >= 0 && *req.LocalHour <= 23 {
		return *req.LocalHour
	}
	loc := s.location
	if req.Timezone != "" {
		if l, err := time.LoadLocation(req.Timezone); err == nil {
			loc = l
		}
	}
	return s.now().In(loc).Hour()
}
