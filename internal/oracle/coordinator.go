package oracle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shepherdjerred/jsdeminify/internal/cache"
	"github.com/shepherdjerred/jsdeminify/internal/jsast"
	"github.com/shepherdjerred/jsdeminify/internal/oracle/egress"
	"github.com/shepherdjerred/jsdeminify/internal/tokencount"
)

// ErrBatchCollision is returned when a pre-existing batch-state file for
// this project exists with a source hash that does not match the current
// run, and no resume was explicitly requested.
var ErrBatchCollision = errors.New("oracle: existing batch state does not match this source; resume explicitly or clear the cache")

// pollInterval is how often the coordinator checks a deferred batch job
// for completion.
const pollInterval = 30 * time.Second

// Coordinator is C4: for one batch of functions, it checks the cache,
// builds prompt payloads for misses, calls the oracle (interactively or
// via a deferred job), parses responses, and persists results — durably,
// per function, even if the batch as a whole is later abandoned.
type Coordinator struct {
	Oracle     Oracle
	Cache      cache.Store
	BatchStore cache.BatchStore
	Guard      *egress.Guard
	Model      string
	UseBatch   bool
	ProjectID  string
}

// Process resolves mappings for every function in batch: cache hits are
// returned immediately; misses are sent to the oracle as one request set.
// source is the full original file (fn.Start/End index into it); advisory
// comments for each function are built from knownNames by the caller
// (internal/scheduler) before the batch is handed here is NOT the
// contract — Process builds them itself so the advisory reflects exactly
// the names known at dispatch time.
func (c *Coordinator) Process(ctx context.Context, batch []*jsast.Function, source string, sourceHash string, knownNames map[string]string) (map[string]cache.RenameMapping, error) {
	results := make(map[string]cache.RenameMapping, len(batch))
	var misses []*jsast.Function
	keys := make(map[string]string, len(batch)) // function ID -> cache key

	for _, fn := range batch {
		key := cache.FunctionKey(source[fn.Start:fn.End])
		keys[fn.ID] = key

		entry, hit, err := c.Cache.Get(key)
		if err != nil {
			slog.Warn("oracle: cache read failed, treating as miss",
				slog.String("function_id", fn.ID), slog.String("error", err.Error()))
			misses = append(misses, fn)
			continue
		}
		if hit && entry.Model == c.Model {
			results[fn.ID] = entry.Mapping
			continue
		}
		misses = append(misses, fn)
	}

	if len(misses) == 0 {
		return results, nil
	}

	requests := make([]Request, 0, len(misses))
	for _, fn := range misses {
		advisory := BuildAdvisoryComment(fn.Callees, knownNames)
		requests = append(requests, Request{
			CustomID:     fn.ID,
			SystemPrompt: SystemPrompt(),
			UserPrompt:   BuildUserPrompt(fn, source, advisory),
		})
	}

	var rawResponses map[string]string
	var err error
	if c.UseBatch {
		rawResponses, err = c.processDeferred(ctx, requests, sourceHash)
	} else {
		rawResponses, err = c.processInteractive(ctx, requests)
	}
	if err != nil {
		return results, err
	}

	for _, fn := range misses {
		raw, ok := rawResponses[fn.ID]
		if !ok {
			continue
		}
		mapping, perr := ParseResponse(raw)
		if perr != nil {
			slog.Warn("oracle: response malformed for batch, skipping",
				slog.String("function_id", fn.ID), slog.String("error", perr.Error()))
			continue
		}
		m, ok := mapping[fn.ID]
		if !ok {
			continue
		}
		results[fn.ID] = m

		entry := cache.Entry{
			Hash:      keys[fn.ID],
			Mapping:   m,
			Timestamp: cache.Now(),
			Model:     c.Model,
		}
		if err := c.Cache.Put(entry); err != nil {
			slog.Warn("oracle: cache write failed",
				slog.String("function_id", fn.ID), slog.String("error", err.Error()))
		}
	}

	return results, nil
}

// processInteractive hands all requests to one Oracle.Complete call per
// attempt; the bundled OpenAI and Anthropic bindings send one HTTP request
// per Request inside that call, not one combined payload.
// Rate limiting gets its own policy: sleep 60s once and retry a single
// time; other transient errors use exponential backoff, 2^attempt
// seconds, for up to 3 attempts.
func (c *Coordinator) processInteractive(ctx context.Context, requests []Request) (map[string]string, error) {
	if c.Guard != nil {
		estimatedIn, estimatedOut := c.estimateTokens(requests)
		if _, err := c.Guard.PreFlight(ctx, c.Model, estimatedIn, estimatedOut); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	rateLimitRetried := false
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		results, err := c.Oracle.Complete(ctx, c.Model, requests)
		if err == nil {
			if c.Guard != nil {
				c.Guard.Record(c.Model, c.estimateInputTokens(requests), c.estimateOutputTokens(results), time.Since(start))
			}
			return results, nil
		}
		lastErr = err
		if c.Guard != nil {
			c.Guard.RecordError()
		}

		if errors.Is(err, ErrRateLimited) {
			// Rate limit gets its own policy: sleep 60s once, retry once,
			// then give up rather than joining the exponential backoff
			// loop below.
			if rateLimitRetried {
				return nil, fmt.Errorf("oracle: rate limited again after waiting: %w", err)
			}
			rateLimitRetried = true
			slog.Warn("oracle: rate limited, sleeping 60s before single retry")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(60 * time.Second):
			}
			attempt--
			continue
		}

		if !errors.Is(err, ErrTransient) {
			return nil, err
		}

		backoff := time.Duration(1<<uint(attempt)) * time.Second
		slog.Warn("oracle: transient error, retrying", slog.Int("attempt", attempt+1), slog.Duration("backoff", backoff))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return nil, fmt.Errorf("oracle: exhausted retries: %w", lastErr)
}

// processDeferred submits (or resumes) a single deferred batch job and
// polls it to completion.
func (c *Coordinator) processDeferred(ctx context.Context, requests []Request, sourceHash string) (map[string]string, error) {
	existing, hasExisting, err := c.BatchStore.Load(c.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("oracle: load batch state: %w", err)
	}

	var batchID string
	if hasExisting {
		if existing.SourceHash != sourceHash {
			return nil, ErrBatchCollision
		}
		batchID = existing.BatchID
		slog.Info("oracle: resuming existing deferred batch", slog.String("batch_id", batchID))
	} else {
		if c.Guard != nil {
			estimatedIn, estimatedOut := c.estimateTokens(requests)
			if _, err := c.Guard.PreFlight(ctx, c.Model, estimatedIn, estimatedOut); err != nil {
				return nil, err
			}
		}
		batchID, err = c.Oracle.Submit(ctx, c.Model, requests)
		if err != nil {
			return nil, fmt.Errorf("oracle: submit deferred batch: %w", err)
		}
		if err := c.BatchStore.Save(cache.BatchState{
			BatchID:       batchID,
			SourceHash:    sourceHash,
			Model:         c.Model,
			FunctionCount: len(requests),
			CreatedAt:     cache.Now(),
			ProjectID:     c.ProjectID,
		}); err != nil {
			slog.Warn("oracle: failed to persist batch state", slog.String("error", err.Error()))
		}
	}

	for {
		done, err := c.Oracle.Poll(ctx, batchID)
		if err != nil {
			return nil, fmt.Errorf("oracle: poll deferred batch: %w", err)
		}
		if done {
			break
		}
		select {
		case <-ctx.Done():
			// Cancellation: the deferred job keeps running server-side
			// and the batch-state file is left in place so a later run
			// can resume it.
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}

	results, err := c.Oracle.Fetch(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("oracle: fetch deferred batch results: %w", err)
	}

	if err := c.BatchStore.Clear(c.ProjectID); err != nil {
		slog.Warn("oracle: failed to clear batch state after fetch", slog.String("error", err.Error()))
	}
	return results, nil
}

// estimateTokens returns a pre-flight (input, output) token estimate for
// requests, using the same tokenizer the scheduler budgets batches with
// (internal/tokencount) so the guard's ceiling checks and the scheduler's
// partitioning agree on what a token costs. Output is a rough guess —
// the oracle hasn't answered yet — capped at one advisory-sized response
// per function.
func (c *Coordinator) estimateTokens(requests []Request) (int, int) {
	in := c.estimateInputTokens(requests)
	out := 0
	for range requests {
		out += 512
	}
	return in, out
}

func (c *Coordinator) estimateInputTokens(requests []Request) int {
	total := 0
	for _, r := range requests {
		total += tokencount.Count(c.Model, r.SystemPrompt) + tokencount.Count(c.Model, r.UserPrompt)
	}
	return total
}

func (c *Coordinator) estimateOutputTokens(results map[string]string) int {
	total := 0
	for _, v := range results {
		total += tokencount.Count(c.Model, v)
	}
	return total
}
