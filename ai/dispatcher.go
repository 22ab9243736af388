package ai

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"

	"github.com/jonesycrew/ashbot/ai/cache"
	"github.com/jonesycrew/ashbot/ai/llm"
	"github.com/jonesycrew/ashbot/ai/metrics"
	"github.com/jonesycrew/ashbot/ai/ratelimit"
)

// Status is the dispatch outcome surfaced to callers. Callers map non-ok
// statuses to a generic busy line.
type Status string

const (
	StatusOK             Status = "ok"
	StatusQuotaExhausted Status = "quota_exhausted"
	StatusUpstreamError  Status = "upstream_error"
	StatusTimeout        Status = "timeout"
	StatusDisabled       Status = "disabled"
)

// Request describes one prompt to dispatch.
type Request struct {
	UserID   string
	Prompt   string
	Tier     Tier
	Priority ratelimit.Priority

	// QueryType overrides cache TTL detection when non-empty.
	QueryType cache.QueryType

	// Context carries catalog facts, injected only for catalog-adjacent
	// questions.
	Context string
}

// Result is the dispatch outcome.
type Result struct {
	Status     Status
	Text       string
	Provider   string
	Cached     bool
	RetryAfter time.Duration
}

// Dispatcher fronts two providers with a response cache and a rate limiter.
// Failover from primary to backup happens at most once per request.
type Dispatcher struct {
	primary llm.Service
	backup  llm.Service
	cache   *cache.ResponseCache
	limiter *ratelimit.Limiter
	metrics *metrics.Exporter
	enabled atomic.Bool

	// personaOverride holds operator-set persona text appended to the base
	// prompt, empty for the default voice.
	personaOverride atomic.Value
}

// NewDispatcher creates a dispatcher. backup and exporter may be nil.
func NewDispatcher(primary, backup llm.Service, responseCache *cache.ResponseCache, limiter *ratelimit.Limiter, exporter *metrics.Exporter) *Dispatcher {
	d := &Dispatcher{
		primary: primary,
		backup:  backup,
		cache:   responseCache,
		limiter: limiter,
		metrics: exporter,
	}
	d.enabled.Store(true)
	return d
}

// SetEnabled toggles dispatching at runtime.
func (d *Dispatcher) SetEnabled(enabled bool) {
	d.enabled.Store(enabled)
	slog.Info("AI dispatching toggled", "enabled", enabled)
}

// Enabled reports whether dispatching is active.
func (d *Dispatcher) Enabled() bool {
	return d.enabled.Load()
}

// SetPersonaOverride installs operator-set persona text, or restores the
// default voice when empty.
func (d *Dispatcher) SetPersonaOverride(text string) {
	d.personaOverride.Store(text)
	slog.Info("AI persona override updated", "set", text != "")
}

// PersonaOverride returns the active override, empty for the default voice.
func (d *Dispatcher) PersonaOverride() string {
	if v, ok := d.personaOverride.Load().(string); ok {
		return v
	}
	return ""
}

// CacheStats exposes response cache counters for the status command.
func (d *Dispatcher) CacheStats() cache.ResponseStats {
	return d.cache.Stats()
}

// Providers names the configured providers. backup is empty when no failover
// target exists.
func (d *Dispatcher) Providers() (primary, backup string) {
	primary = d.primary.Name()
	if d.backup != nil {
		backup = d.backup.Name()
	}
	return primary, backup
}

// LimiterStats exposes rate limiter counters for the status command.
func (d *Dispatcher) LimiterStats() ratelimit.Stats {
	return d.limiter.Stats()
}

// Respond resolves a request: cache first, then rate limiter, then provider
// with single failover. A cache hit carries no rate-limiter charge.
func (d *Dispatcher) Respond(ctx context.Context, req Request) Result {
	if !d.enabled.Load() {
		return Result{Status: StatusDisabled}
	}

	// Short id correlating this dispatch across log lines.
	dispatchID := uuid.New().String()[:8]

	if text, ok := d.cache.Get(req.Prompt); ok {
		d.recordCache(true)
		return Result{Status: StatusOK, Text: text, Cached: true}
	}
	d.recordCache(false)

	decision := d.limiter.Check(req.UserID, req.Priority)
	if !decision.Allowed {
		if d.metrics != nil {
			d.metrics.RecordRateDenial(decision.Reason)
		}
		slog.Debug("AI request rate limited",
			"dispatch_id", dispatchID,
			"user_id", req.UserID,
			"reason", decision.Reason,
			"retry_after", decision.RetryAfter,
		)
		return Result{Status: StatusQuotaExhausted, RetryAfter: decision.RetryAfter}
	}

	messages := composeMessages(req, d.PersonaOverride())

	text, status := d.call(ctx, dispatchID, d.primary, messages)
	provider := d.primary.Name()
	if status != StatusOK && d.backup != nil {
		slog.Warn("AI provider failed, failing over",
			"dispatch_id", dispatchID,
			"from", d.primary.Name(),
			"to", d.backup.Name(),
			"status", status,
		)
		text, status = d.call(ctx, dispatchID, d.backup, messages)
		provider = d.backup.Name()
	}
	if status != StatusOK {
		return Result{Status: status, Provider: provider}
	}

	text = FilterResponse(text)
	d.cache.Set(req.Prompt, text, req.QueryType)
	return Result{Status: StatusOK, Text: text, Provider: provider}
}

func (d *Dispatcher) call(ctx context.Context, dispatchID string, svc llm.Service, messages []llm.Message) (string, Status) {
	start := time.Now()
	text, stats, err := svc.Chat(ctx, messages)
	latency := time.Since(start)

	if err != nil {
		status := classifyError(err)
		if d.metrics != nil {
			d.metrics.RecordAIRequest(svc.Name(), string(status), latency)
		}
		return "", status
	}

	slog.Debug("AI dispatch completed",
		"dispatch_id", dispatchID,
		"provider", svc.Name(),
		"latency", latency,
	)
	if d.metrics != nil {
		d.metrics.RecordAIRequest(svc.Name(), string(StatusOK), latency)
		if stats != nil {
			d.metrics.RecordAITokens(svc.Name(), stats.PromptTokens, stats.CompletionTokens)
		}
	}
	return text, StatusOK
}

func (d *Dispatcher) recordCache(hit bool) {
	if d.metrics == nil {
		return
	}
	if hit {
		d.metrics.RecordCacheHit("response")
	} else {
		d.metrics.RecordCacheMiss("response")
	}
}

func composeMessages(req Request, personaOverride string) []llm.Message {
	system := PersonaPrompt(req.Tier)
	if personaOverride != "" {
		system += "\n\n" + personaOverride
	}
	if req.Context != "" {
		system += "\n\nCatalog context:\n" + req.Context
	}
	return []llm.Message{
		llm.SystemPrompt(system),
		llm.UserMessage(req.Prompt),
	}
}

// classifyError maps a provider error to the caller-facing taxonomy.
func classifyError(err error) Status {
	if errors.Is(err, context.DeadlineExceeded) {
		return StatusTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return StatusTimeout
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case 429:
			return StatusQuotaExhausted
		case 402, 403:
			return StatusQuotaExhausted
		}
	}
	return StatusUpstreamError
}
