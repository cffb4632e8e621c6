package egress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Sentinel errors for each guard in the pre-flight chain: rate limit,
// token budget, cost ceiling. Kill-switch, policy allowlist, consent, and
// data-classification guard steps assume a multi-tenant service boundary
// this single-process batch core doesn't have (see DESIGN.md).
var (
	ErrRateLimited  = errors.New("egress: rate limit exceeded")
	ErrBudgetExceeded = errors.New("egress: token budget exceeded")
	ErrCostExceeded = errors.New("egress: cost ceiling exceeded")
)

func sentinelForBlocker(blockedBy string) error {
	switch blockedBy {
	case "rate_limit":
		return ErrRateLimited
	case "budget":
		return ErrBudgetExceeded
	case "cost":
		return ErrCostExceeded
	default:
		return fmt.Errorf("egress: blocked by %s", blockedBy)
	}
}

// Guard composes the rate-limit, token-budget, and cost-ceiling checks
// that must pass before any request reaches the oracle's transport layer.
type Guard struct {
	provider      string
	rateLimiter   *RateLimiter
	tokenBudget   *TokenBudget
	costEstimator *CostEstimator
	metrics       *ProviderMetrics
}

// NewGuard builds a Guard for provider. Any of rateLimiter/tokenBudget/
// costEstimator may be nil to disable that check.
func NewGuard(provider string, rateLimiter *RateLimiter, tokenBudget *TokenBudget, costEstimator *CostEstimator) *Guard {
	return &Guard{
		provider:      provider,
		rateLimiter:   rateLimiter,
		tokenBudget:   tokenBudget,
		costEstimator: costEstimator,
		metrics:       NewProviderMetrics(provider),
	}
}

// CostSummary renders the guard's cumulative spend line, or "" if no
// cost estimator is configured.
func (g *Guard) CostSummary() string {
	if g.costEstimator == nil {
		return ""
	}
	return g.costEstimator.Summary()
}

// BudgetSummary renders the guard's cumulative token-budget line, or ""
// if no token budget is configured.
func (g *Guard) BudgetSummary() string {
	if g.tokenBudget == nil {
		return ""
	}
	return g.tokenBudget.Summary()
}

// Metrics returns the guard's running per-provider usage tracker, for the
// end-of-run summary report.
func (g *Guard) Metrics() *ProviderMetrics {
	return g.metrics
}

// CheckResult carries what PreFlight decided, so the caller can record
// actual usage afterward without recomputing the estimate.
type CheckResult struct {
	EstimatedCostCents float64
}

// PreFlight runs the rate-limit, token-budget, and cost-ceiling checks in
// order and returns a sentinel error from the first one that blocks the
// request. Passing all three does not record consumption — call Record
// after the oracle call actually completes, with real token counts.
func (g *Guard) PreFlight(ctx context.Context, model string, estimatedInputTokens, estimatedOutputTokens int) (CheckResult, error) {
	_, span := otel.Tracer("jsdeminify.oracle").Start(ctx, "egress.Guard.PreFlight",
		oteltrace.WithAttributes(
			attribute.String("provider", g.provider),
			attribute.String("model", model),
		),
	)
	defer span.End()

	if g.rateLimiter != nil {
		if allowed, retryAfter := g.rateLimiter.Allow(g.provider); !allowed {
			g.block(span, "rate_limit", fmt.Sprintf("retry after %s", retryAfter))
			return CheckResult{}, sentinelForBlocker("rate_limit")
		}
	}

	estimated := estimatedInputTokens + estimatedOutputTokens
	if g.tokenBudget != nil {
		if ok, remaining := g.tokenBudget.CanSpend(estimated); !ok {
			g.block(span, "budget", fmt.Sprintf("%d tokens remaining, %d requested", remaining, estimated))
			return CheckResult{}, sentinelForBlocker("budget")
		}
	}

	var costCents float64
	if g.costEstimator != nil {
		ok, cents := g.costEstimator.CanAfford(model, estimatedInputTokens, estimatedOutputTokens)
		costCents = cents
		if !ok {
			g.block(span, "cost", fmt.Sprintf("estimated $%.4f would exceed ceiling", cents/100))
			return CheckResult{}, sentinelForBlocker("cost")
		}
	}

	return CheckResult{EstimatedCostCents: costCents}, nil
}

// Record reports the real outcome of a call that passed PreFlight, so
// cumulative budget/cost/metrics reflect actual rather than estimated
// usage.
func (g *Guard) Record(model string, inputTokens, outputTokens int, latency time.Duration) {
	if g.tokenBudget != nil {
		g.tokenBudget.Record(inputTokens + outputTokens)
	}
	var costCents float64
	if g.costEstimator != nil {
		costCents = g.costEstimator.Record(model, inputTokens, outputTokens)
	}
	g.metrics.RecordCall(inputTokens, outputTokens, latency)
	RecordAllowed(g.provider, inputTokens, outputTokens, latency.Seconds(), costCents)
}

// RecordError reports a call that passed PreFlight but failed in
// transport, so the error count and call count stay accurate even though
// no tokens were actually billed.
func (g *Guard) RecordError() {
	g.metrics.RecordError()
}

func (g *Guard) block(span oteltrace.Span, blockedBy, reason string) {
	RecordBlocked(g.provider, blockedBy)
	span.SetAttributes(attribute.String("blocked_by", blockedBy))
	span.SetStatus(codes.Error, reason)
}
