package quota

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/replyflow/pkg/automation"
	"github.com/dmitrymomot/replyflow/pkg/logger"
	"github.com/dmitrymomot/replyflow/pkg/usage"
)

// UsageService is the part of usage.Service the gate depends on.
type UsageService interface {
	GetUsageBundle(ctx context.Context, userID string) (usage.Bundle, error)
	BumpUsage(ctx context.Context, userID string, kind usage.Kind, amount int64) (usage.Record, error)
}

// Forwarder delivers an action to the automation endpoint.
type Forwarder interface {
	Configured() bool
	Call(ctx context.Context, action string, payload json.RawMessage) (*automation.Response, error)
}

// Result is what the caller should send back.
// When Fields is nil the upstream response is passed through as Body.
type Result struct {
	Status      int
	ContentType string
	Body        []byte
	Fields      map[string]any
}

// Passthrough reports whether the result carries the raw upstream body.
func (r Result) Passthrough() bool {
	return r.Fields == nil
}

// Option configures Gate.
type Option func(*Gate)

// WithPolicy replaces DefaultPolicy. The table is copied.
func WithPolicy(p Policy) Option {
	return func(g *Gate) {
		if p != nil {
			g.policy = p.Clone()
		}
	}
}

// WithLogger sets the gate logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(g *Gate) {
		if l != nil {
			g.log = l
		}
	}
}

// WithMetrics enables decision counters.
func WithMetrics(m *Metrics) Option {
	return func(g *Gate) {
		g.metrics = m
	}
}

// Gate enforces monthly limits around forwarded actions.
type Gate struct {
	usage   UsageService
	fwd     Forwarder
	policy  Policy
	log     *slog.Logger
	metrics *Metrics
}

// NewGate creates a Gate.
func NewGate(svc UsageService, fwd Forwarder, opts ...Option) *Gate {
	g := &Gate{
		usage:  svc,
		fwd:    fwd,
		policy: DefaultPolicy(),
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Handle runs one action request through the gate.
//
// Errors: automation.ErrNotConfigured, ErrMissingUserID, ErrMissingAction,
// *LimitError, ErrUsageUnavailable (joined with the store error) and
// transport errors from the forwarder. Non-2xx upstream answers are not
// errors; they come back as a passthrough Result.
//
// Cancellation of ctx is honoured only up to the limit check. The upstream
// call, the increment and the fresh bundle read run on a detached context,
// so a client that disconnects mid-action is still charged. Bound the
// upstream call with the forwarder's own timeout.
func (g *Gate) Handle(ctx context.Context, userID, action string, payload json.RawMessage) (Result, error) {
	if !g.fwd.Configured() {
		return Result{}, automation.ErrNotConfigured
	}
	if userID == "" {
		return Result{}, ErrMissingUserID
	}
	if action == "" {
		return Result{}, ErrMissingAction
	}

	rule, known := g.policy[action]
	label := action
	if !known {
		label = "other"
	}

	bundle, err := g.usage.GetUsageBundle(ctx, userID)
	if err != nil {
		return Result{}, errors.Join(ErrUsageUnavailable, err)
	}

	if rule.Metered() && bundle.Exceeded(rule.Dimension) {
		g.metrics.decision(label, OutcomeLimitReached)
		g.log.InfoContext(ctx, "action refused",
			logger.Component("quota"),
			logger.UserID(userID),
			logger.Action(action),
			logger.Dimension(string(rule.Dimension)),
			slog.Int64("used", bundle.Usage.Count(rule.Dimension)),
			slog.Int64("limit", bundle.Limits.For(rule.Dimension)),
		)
		return Result{}, &LimitError{Action: action, Dimension: rule.Dimension, Bundle: bundle}
	}

	// Once forwarded, the call and its accounting outlive the caller.
	ctx = context.WithoutCancel(ctx)

	resp, err := g.fwd.Call(ctx, action, payload)
	if err != nil {
		g.metrics.decision(label, OutcomeUpstreamError)
		return Result{}, err
	}
	if !resp.OK() {
		g.metrics.decision(label, OutcomeUpstreamError)
		g.log.WarnContext(ctx, "automation endpoint returned an error status",
			logger.Component("quota"),
			logger.Action(action),
			logger.Status(resp.StatusCode),
		)
		return passthrough(resp, resp.StatusCode), nil
	}

	var body map[string]any
	if err := json.Unmarshal(resp.Body, &body); err != nil || body == nil {
		g.metrics.decision(label, OutcomeRawResponse)
		return passthrough(resp, http.StatusOK), nil
	}

	if ok, _ := body["ok"].(bool); ok && rule.Metered() {
		if n := rule.amount(body); n > 0 {
			if _, err := g.usage.BumpUsage(ctx, userID, rule.Dimension, n); err != nil {
				g.log.ErrorContext(ctx, "failed to record usage after successful action",
					logger.Component("quota"),
					logger.UserID(userID),
					logger.Action(action),
					logger.Error(err),
				)
				return Result{}, errors.Join(ErrUsageUnavailable, err)
			}
			g.metrics.increment(string(rule.Dimension), n)
		}
	}

	fresh, err := g.usage.GetUsageBundle(ctx, userID)
	if err != nil {
		return Result{}, errors.Join(ErrUsageUnavailable, err)
	}
	body["plan"] = fresh.Tier
	body["usage"] = fresh.Usage
	body["limits"] = fresh.Limits

	if rule.Exempt {
		g.metrics.decision(label, OutcomeExempt)
	} else {
		g.metrics.decision(label, OutcomeAllowed)
	}
	return Result{Status: http.StatusOK, Fields: body}, nil
}

func passthrough(resp *automation.Response, status int) Result {
	return Result{
		Status:      status,
		ContentType: resp.ContentType,
		Body:        resp.Body,
	}
}
