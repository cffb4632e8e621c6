package egress

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// TokenBudget enforces a maximum total token spend for one run. A limit of
// 0 means unlimited. The check happens before a call with an estimate;
// actual usage is recorded after the call completes.
type TokenBudget struct {
	mu       sync.Mutex
	limit    int
	consumed int
}

// NewTokenBudget creates a budget capped at limit tokens (0 = unlimited).
func NewTokenBudget(limit int) *TokenBudget {
	return &TokenBudget{limit: limit}
}

// CanSpend reports whether estimated additional tokens fit within the
// remaining budget, and what would remain afterward.
func (b *TokenBudget) CanSpend(estimated int) (bool, int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.limit == 0 {
		return true, 0
	}
	remaining := b.limit - b.consumed
	if estimated > remaining {
		return false, remaining
	}
	return true, remaining - estimated
}

// Record adds actual to cumulative consumption.
func (b *TokenBudget) Record(actual int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consumed += actual
}

// Remaining returns tokens left in the budget, or -1 if unlimited.
func (b *TokenBudget) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.limit == 0 {
		return -1
	}
	if r := b.limit - b.consumed; r > 0 {
		return r
	}
	return 0
}

// Summary renders a human-readable budget line for the end-of-run report.
func (b *TokenBudget) Summary() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.limit == 0 {
		return fmt.Sprintf("%d tokens used (unlimited budget)", b.consumed)
	}
	return fmt.Sprintf("%d/%d tokens used", b.consumed, b.limit)
}

// ProviderMetrics accumulates per-provider usage across one run, for the
// end-of-run summary report.
type ProviderMetrics struct {
	mu                sync.Mutex
	Provider          string
	InputTokens       int
	OutputTokens      int
	TotalCalls        int
	TotalErrors       int
	TotalLatencyMs    int64
	LastCallTimestamp int64
}

// NewProviderMetrics creates a tracker for the named provider.
func NewProviderMetrics(provider string) *ProviderMetrics {
	return &ProviderMetrics{Provider: provider}
}

// RecordCall records one successful oracle call.
func (m *ProviderMetrics) RecordCall(inputTokens, outputTokens int, latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InputTokens += inputTokens
	m.OutputTokens += outputTokens
	m.TotalCalls++
	m.TotalLatencyMs += latency.Milliseconds()
	m.LastCallTimestamp = time.Now().UnixMilli()
}

// RecordError records one failed oracle call.
func (m *ProviderMetrics) RecordError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TotalErrors++
	m.TotalCalls++
	m.LastCallTimestamp = time.Now().UnixMilli()
}

// LogSummary emits the accumulated metrics as a single structured log line.
func (m *ProviderMetrics) LogSummary(logger *slog.Logger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	logger.Info("oracle session metrics",
		slog.String("provider", m.Provider),
		slog.Int("input_tokens", m.InputTokens),
		slog.Int("output_tokens", m.OutputTokens),
		slog.Int("total_calls", m.TotalCalls),
		slog.Int("total_errors", m.TotalErrors),
		slog.Int64("total_latency_ms", m.TotalLatencyMs),
	)
}
