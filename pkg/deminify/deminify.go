// Package deminify is the top-level entry point gluing the five pipeline
// components — parse, call-graph, schedule, oracle, rename — into one
// call: Deminify takes minified JavaScript source and Options and returns
// de-minified source plus a run summary.
package deminify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/shepherdjerred/jsdeminify/internal/cache"
	"github.com/shepherdjerred/jsdeminify/internal/callgraph"
	"github.com/shepherdjerred/jsdeminify/internal/jsast"
	"github.com/shepherdjerred/jsdeminify/internal/oracle"
	"github.com/shepherdjerred/jsdeminify/internal/oracle/egress"
	"github.com/shepherdjerred/jsdeminify/internal/rename"
	"github.com/shepherdjerred/jsdeminify/internal/scheduler"
	"github.com/shepherdjerred/jsdeminify/internal/tokencount"
)

// DefaultOutputTokensPerFunction estimates a typical oracle response size
// for the pre-dispatch CostEstimate, before any real output exists to
// measure. It mirrors the coordinator's own pre-flight guess (see
// internal/oracle.Coordinator.estimateTokens).
const DefaultOutputTokensPerFunction = 512

// Options configures one Deminify run. Oracle is the only required field
// beyond Model; everything else has a workable zero value.
type Options struct {
	// Model is the oracle model identifier (e.g. "gpt-4o-mini",
	// "claude-haiku-4-5-20251001"), used for prompt-budget sizing,
	// tokenization, and cost estimation.
	Model string

	// Provider names the oracle backend for rate-limit and metrics
	// bucketing (e.g. "openai", "anthropic"). Defaults to Model if empty.
	Provider string

	// Oracle is the LLM-calling backend. Required.
	Oracle oracle.Oracle

	// CacheDir is where the default on-disk Store and BatchStore live.
	// Ignored only when both Cache and BatchStore are set. Defaults to
	// ".jsdeminify-cache".
	CacheDir string
	// Cache overrides the default FileCache-backed Store.
	Cache cache.Store
	// BatchStore overrides the default FileBatchStore-backed BatchStore.
	BatchStore cache.BatchStore

	// UseBatch selects the oracle's deferred submit/poll/fetch transport
	// instead of synchronous interactive calls.
	UseBatch bool
	// ProjectID namespaces deferred-batch resume state. Defaults to
	// cache.ProjectKey of the source text when empty.
	ProjectID string

	// Concurrency bounds in-round parallel batch dispatch. 0 uses
	// scheduler.DefaultConcurrency.
	Concurrency int
	// RateLimitPerMinute caps interactive requests to Provider per
	// minute. 0 means unlimited.
	RateLimitPerMinute int
	// DispatchRatePerSecond and DispatchBurst configure the scheduler's
	// token-bucket dispatch gate. A zero rate disables the gate.
	DispatchRatePerSecond float64
	DispatchBurst         int

	// TokenBudget caps total tokens spent across the run. 0 means
	// unlimited.
	TokenBudget int
	// CostCeilingCents caps total estimated spend across the run, in US
	// cents. 0 means unlimited.
	CostCeilingCents float64

	// ConfirmCost is called once, before any oracle call, with a
	// coarse whole-file estimate. Returning false aborts the run with
	// ErrCostCancelled. A nil callback always proceeds.
	ConfirmCost func(egress.CostEstimate) bool

	// OnProgress is called after every dispatched batch.
	OnProgress scheduler.ProgressFunc
}

// Summary reports what one Deminify run actually did, for callers that
// want to log or display it (see cmd/deminify).
type Summary struct {
	RunID         string
	FunctionCount int
	Mapped        int
	Unmapped      int
	InputTokens   int
	OutputTokens  int
	CostSummary   string
	BudgetSummary string
	Elapsed       time.Duration
}

// Result is Deminify's return value: the rewritten source plus a summary
// of the run that produced it.
type Result struct {
	Source  string
	Summary Summary
}

// Deminify parses source, schedules its functions bottom-up through
// Options.Oracle, and applies the resulting rename mappings back onto
// source, returning the rewritten text. It never mutates source itself.
func Deminify(ctx context.Context, source string, opts Options) (Result, error) {
	runID := uuid.New().String()

	tracer := otel.Tracer("jsdeminify.deminify")
	ctx, span := tracer.Start(ctx, "deminify.Deminify", oteltrace.WithAttributes(attribute.String("run_id", runID)))
	defer span.End()

	start := time.Now()
	logger := slog.Default().With(slog.String("run_id", runID))

	result, err := jsast.NewParser().Parse(ctx, []byte(source))
	if err != nil {
		return Result{}, classify(KindParseError, err)
	}
	logger.Info("parsed source", slog.Int("function_count", len(result.Functions)))

	if len(result.Functions) == 0 {
		return Result{Source: source, Summary: Summary{RunID: runID, Elapsed: time.Since(start)}}, nil
	}

	graph := callgraph.Build(result)

	store, batchStore, err := resolveStores(opts)
	if err != nil {
		return Result{}, classify(KindCachePersistFailure, err)
	}

	provider := opts.Provider
	if provider == "" {
		provider = opts.Model
	}
	projectID := opts.ProjectID
	if projectID == "" {
		// No working directory to namespace by in library use: fall back
		// to a hash of the source itself, which is still stable across
		// repeated runs against the same file.
		projectID = cache.ProjectKey(source)
	}

	guard := buildGuard(provider, opts)

	if opts.ConfirmCost != nil {
		estimate := estimateCost(opts.Model, result)
		if !opts.ConfirmCost(estimate) {
			return Result{Source: source, Summary: Summary{RunID: runID, Elapsed: time.Since(start)}},
				classify(KindCostCancelled, ErrCostCancelled)
		}
	}

	coordinator := &oracle.Coordinator{
		Oracle:     opts.Oracle,
		Cache:      store,
		BatchStore: batchStore,
		Guard:      guard,
		Model:      opts.Model,
		UseBatch:   opts.UseBatch,
		ProjectID:  projectID,
	}

	sched := scheduler.New(graph, coordinator, scheduler.Options{
		Model:       opts.Model,
		Concurrency: opts.Concurrency,
		RateLimiter: buildDispatchLimiter(opts),
		OnProgress:  opts.OnProgress,
	})

	mappings, err := sched.Run(ctx, result)
	if err != nil {
		return Result{Source: source, Summary: Summary{RunID: runID, Elapsed: time.Since(start)}},
			classify(KindOracleTransient, err)
	}

	rewritten, err := rename.Apply(ctx, source, mappings)
	if err != nil {
		// rename.Apply returns the original source alongside the error
		// (unchanged on a hard failure, or the pre-rewrite source on
		// ErrReassemblyInvalid), so rewritten here is always safe to surface.
		return Result{Source: rewritten, Summary: Summary{RunID: runID, Elapsed: time.Since(start)}},
			classify(KindRenameFailure, err)
	}

	summary := Summary{
		RunID:         runID,
		FunctionCount: len(result.Functions),
		Elapsed:       time.Since(start),
	}
	for _, m := range mappings {
		if m.FunctionName != "" || m.Description != "" || len(m.Renames) > 0 {
			summary.Mapped++
		} else {
			summary.Unmapped++
		}
	}
	guard.Metrics().LogSummary(logger)
	summary.InputTokens = guard.Metrics().InputTokens
	summary.OutputTokens = guard.Metrics().OutputTokens
	summary.CostSummary = guard.CostSummary()
	summary.BudgetSummary = guard.BudgetSummary()

	logger.Info("deminify run complete",
		slog.Int("mapped", summary.Mapped),
		slog.Int("unmapped", summary.Unmapped),
		slog.Duration("elapsed", summary.Elapsed),
	)

	return Result{Source: rewritten, Summary: summary}, nil
}

func resolveStores(opts Options) (cache.Store, cache.BatchStore, error) {
	store := opts.Cache
	batchStore := opts.BatchStore
	if store != nil && batchStore != nil {
		return store, batchStore, nil
	}

	root := opts.CacheDir
	if root == "" {
		root = ".jsdeminify-cache"
	}
	if store == nil {
		fc, err := cache.NewFileCache(root)
		if err != nil {
			return nil, nil, fmt.Errorf("deminify: open cache: %w", err)
		}
		store = fc
	}
	if batchStore == nil {
		fb, err := cache.NewFileBatchStore(root)
		if err != nil {
			return nil, nil, fmt.Errorf("deminify: open batch store: %w", err)
		}
		batchStore = fb
	}
	return store, batchStore, nil
}

// buildGuard always returns a usable Guard: a cost estimator backs every
// run (with limitCents 0, i.e. unlimited, unless the caller set a
// ceiling) since Deminify's own CostEstimate gate depends on one being
// present to price a run before any call is made.
func buildGuard(provider string, opts Options) *egress.Guard {
	var rateLimiter *egress.RateLimiter
	if opts.RateLimitPerMinute > 0 {
		rateLimiter = egress.NewRateLimiter(map[string]int{provider: opts.RateLimitPerMinute})
	}
	var tokenBudget *egress.TokenBudget
	if opts.TokenBudget > 0 {
		tokenBudget = egress.NewTokenBudget(opts.TokenBudget)
	}
	costEstimator := egress.NewCostEstimator(opts.CostCeilingCents)
	return egress.NewGuard(provider, rateLimiter, tokenBudget, costEstimator)
}

func buildDispatchLimiter(opts Options) *rate.Limiter {
	if opts.DispatchRatePerSecond <= 0 {
		return nil
	}
	burst := opts.DispatchBurst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(opts.DispatchRatePerSecond), burst)
}

// estimateCost produces a coarse, whole-file CostEstimate before any
// oracle call is made: every function's prompt cost, summed, plus a flat
// per-function output-token guess. knownNames is empty at this point —
// the advisory comments it would add are a small fraction of prompt size
// and do not change the gate decision meaningfully.
func estimateCost(model string, result *jsast.ParseResult) egress.CostEstimate {
	inputTokens := 0
	for _, fn := range result.Functions {
		advisory := oracle.BuildAdvisoryComment(fn.Callees, nil)
		prompt := oracle.BuildUserPrompt(fn, result.Source, advisory)
		inputTokens += tokencount.Count(model, oracle.SystemPrompt()) + tokencount.Count(model, prompt)
	}
	outputTokens := len(result.Functions) * DefaultOutputTokensPerFunction

	_, cents := egress.NewCostEstimator(0).CanAfford(model, inputTokens, outputTokens)

	return egress.CostEstimate{
		InputTokens:   inputTokens,
		OutputTokens:  outputTokens,
		EstimatedUSD:  cents / 100,
		FunctionCount: len(result.Functions),
		RequestCount:  len(result.Functions),
	}
}
