package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/shepherdjerred/jsdeminify/internal/cache"
	"github.com/shepherdjerred/jsdeminify/internal/callgraph"
	"github.com/shepherdjerred/jsdeminify/internal/jsast"
)

// Coordinator is the subset of *oracle.Coordinator the scheduler depends
// on, so tests can substitute a fake.
type Coordinator interface {
	Process(ctx context.Context, batch []*jsast.Function, source string, sourceHash string, knownNames map[string]string) (map[string]cache.RenameMapping, error)
}

// DefaultConcurrency bounds how many batches within one round dispatch at
// once when Options.Concurrency is left at zero.
const DefaultConcurrency = 4

// Options configures a Scheduler.
type Options struct {
	// Model is the oracle model identifier, used to look up context limit
	// and tokenizer.
	Model string

	// Concurrency bounds how many batches within a single round are
	// dispatched at once. Zero means DefaultConcurrency.
	Concurrency int

	// RateLimiter gates batch dispatch, one Wait per batch. Nil means no
	// gating.
	RateLimiter *rate.Limiter

	// OnProgress is called after every batch, including failed ones. May
	// be nil.
	OnProgress ProgressFunc
}

// Scheduler is C3: it drives Coordinator.Process over bottom-up rounds of
// a callgraph.Graph.
type Scheduler struct {
	Graph       *callgraph.Graph
	Coordinator Coordinator
	Options     Options
}

// New constructs a Scheduler. opts.Concurrency of zero is replaced with
// DefaultConcurrency.
func New(graph *callgraph.Graph, coordinator Coordinator, opts Options) *Scheduler {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	return &Scheduler{Graph: graph, Coordinator: coordinator, Options: opts}
}

// Run drives result's functions through rounds of readiness, batching,
// and dispatch, accumulating a known-names advisory map as renames are
// accepted. It returns every mapping collected, including for batches
// that failed (mapped to an empty cache.RenameMapping so the function is
// still marked processed, per the scheduler's failure semantics).
func (s *Scheduler) Run(ctx context.Context, result *jsast.ParseResult) (map[string]cache.RenameMapping, error) {
	total := len(result.Functions)
	mappings := make(map[string]cache.RenameMapping, total)
	processed := make(map[string]bool, total)
	knownNames := make(map[string]string, total)

	sourceHash := cache.FunctionKey(result.Source)
	budget := batchTokenBudget(s.Options.Model)

	start := time.Now()
	batchIndex := 0
	mapped, unmapped, inputTokens, outputTokens, errorCount := 0, 0, 0, 0, 0

	for len(processed) < total {
		if err := ctx.Err(); err != nil {
			return mappings, err
		}

		ready := s.readySet(result, processed)
		if len(ready) == 0 {
			ready = s.remaining(result, processed)
		}
		if len(ready) == 0 {
			break
		}

		batches := partitionBatches(ready, s.Options.Model, result.Source, knownNames, budget)

		roundKnown := make(map[string]string, len(knownNames))
		for k, v := range knownNames {
			roundKnown[k] = v
		}

		var mu sync.Mutex
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.Options.Concurrency)

		for _, batch := range batches {
			batch := batch
			g.Go(func() error {
				if s.Options.RateLimiter != nil {
					if err := s.Options.RateLimiter.Wait(gctx); err != nil {
						return err
					}
				}

				batchResult, err := s.Coordinator.Process(gctx, batch, result.Source, sourceHash, roundKnown)

				mu.Lock()
				defer mu.Unlock()
				batchIndex++
				for _, fn := range batch {
					processed[fn.ID] = true
				}
				if err != nil {
					errorCount++
					for _, fn := range batch {
						unmapped++
						mappings[fn.ID] = cache.RenameMapping{}
					}
				} else {
					for _, fn := range batch {
						m, ok := batchResult[fn.ID]
						if !ok {
							unmapped++
							mappings[fn.ID] = cache.RenameMapping{}
							continue
						}
						mapped++
						mappings[fn.ID] = m
						if m.FunctionName != "" && fn.Name != "" {
							knownNames[fn.Name] = m.FunctionName
						}
						inputTokens += tokensIn(s.Options.Model, fn, result.Source, roundKnown)
						outputTokens += tokensOut(s.Options.Model, m)
					}
				}

				if s.Options.OnProgress != nil {
					label := ""
					if len(batch) > 0 {
						label = batch[0].ID
					}
					s.Options.OnProgress(Progress{
						BatchIndex:   batchIndex,
						BatchCount:   len(batches),
						Processed:    len(processed),
						Total:        total,
						Mapped:       mapped,
						Unmapped:     unmapped,
						InputTokens:  inputTokens,
						OutputTokens: outputTokens,
						Errors:       errorCount,
						Elapsed:      time.Since(start),
						CurrentLabel: label,
					})
				}
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return mappings, err
		}
	}

	return mappings, nil
}

// readySet returns every unprocessed function whose every callee name
// either resolves to an already-processed function or does not resolve in
// the graph at all. Self-recursive calls never block readiness. The
// result is ordered bottom-up (graph depth ascending) so batches within a
// round still favor leaves-first packing.
func (s *Scheduler) readySet(result *jsast.ParseResult, processed map[string]bool) []*jsast.Function {
	var ready []*jsast.Function
	for _, id := range s.Graph.IDs() {
		if processed[id] {
			continue
		}
		fn, ok := s.Graph.Function(id)
		if !ok {
			continue
		}
		if s.isReady(fn, processed) {
			ready = append(ready, fn)
		}
	}
	return ready
}

func (s *Scheduler) isReady(fn *jsast.Function, processed map[string]bool) bool {
	for _, name := range fn.Callees {
		calleeID, ok := s.Graph.ResolvesName(name)
		if !ok || calleeID == fn.ID {
			continue
		}
		if !processed[calleeID] {
			return false
		}
	}
	return true
}

// remaining returns every unprocessed function, sorted by ID — the
// fixed-point fallback used when a round's readySet is empty (a cycle)
// but unprocessed work remains.
func (s *Scheduler) remaining(result *jsast.ParseResult, processed map[string]bool) []*jsast.Function {
	var rest []*jsast.Function
	for _, id := range s.Graph.IDs() {
		if processed[id] {
			continue
		}
		if fn, ok := s.Graph.Function(id); ok {
			rest = append(rest, fn)
		}
	}
	sort.SliceStable(rest, func(i, j int) bool { return rest[i].ID < rest[j].ID })
	return rest
}

func tokensIn(model string, fn *jsast.Function, source string, knownNames map[string]string) int {
	return promptCost(model, fn, source, knownNames)
}

func tokensOut(model string, m cache.RenameMapping) int {
	cost := 0
	if m.FunctionName != "" {
		cost += len(m.FunctionName)
	}
	if m.Description != "" {
		cost += len(m.Description)
	}
	for k, v := range m.Renames {
		cost += len(k) + len(v)
	}
	if cost == 0 {
		return 0
	}
	return (cost + 3) / 4
}
