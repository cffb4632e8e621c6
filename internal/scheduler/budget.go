package scheduler

import (
	"github.com/shepherdjerred/jsdeminify/internal/jsast"
	"github.com/shepherdjerred/jsdeminify/internal/oracle"
	"github.com/shepherdjerred/jsdeminify/internal/tokencount"
)

// outputReserve is subtracted from a model's context limit before batching,
// leaving room for the oracle's response.
const outputReserve = 16_384

// batchTokenBudget returns the per-batch token budget for model:
// floor(0.9 * (context_limit - output_reserve)).
func batchTokenBudget(model string) int {
	limit := tokencount.ContextLimit(model) - outputReserve
	if limit < 0 {
		limit = 0
	}
	return (limit * 9) / 10
}

// promptCost estimates the token cost of sending fn through the oracle,
// using the same prompt-building logic the coordinator uses so the
// estimate tracks what's actually dispatched.
func promptCost(model string, fn *jsast.Function, source string, knownNames map[string]string) int {
	advisory := oracle.BuildAdvisoryComment(fn.Callees, knownNames)
	user := oracle.BuildUserPrompt(fn, source, advisory)
	return tokencount.Count(model, oracle.SystemPrompt()) + tokencount.Count(model, user)
}

// partitionBatches splits ready (already ordered bottom-up) into ordered
// batches that each fit within budget. A function whose own cost exceeds
// budget is placed alone in a singleton batch.
func partitionBatches(ready []*jsast.Function, model string, source string, knownNames map[string]string, budget int) [][]*jsast.Function {
	var batches [][]*jsast.Function
	var current []*jsast.Function
	currentTokens := 0

	flush := func() {
		if len(current) > 0 {
			batches = append(batches, current)
			current = nil
			currentTokens = 0
		}
	}

	for _, fn := range ready {
		cost := promptCost(model, fn, source, knownNames)
		if cost > budget {
			flush()
			batches = append(batches, []*jsast.Function{fn})
			continue
		}
		if currentTokens+cost > budget {
			flush()
		}
		current = append(current, fn)
		currentTokens += cost
	}
	flush()

	return batches
}
