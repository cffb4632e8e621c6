// Package egress implements the oracle's pre-flight guard chain: cost
// ceiling, token budget, and a per-provider rate limit, applied before
// every outbound request to an LLM provider.
package egress

import (
	"fmt"
	"strings"
	"sync"
)

// ModelPricing holds per-model token pricing in USD per million tokens.
type ModelPricing struct {
	InputCostPerMillion  float64
	OutputCostPerMillion float64
}

// defaultPricing covers the provider families the oracle package ships
// bindings for. Prices are approximate published rates and are not
// refreshed automatically — an operator overriding pricing for a new
// model should use WithPricing.
var defaultPricing = map[string]ModelPricing{
	"claude-sonnet-4-20250514":  {InputCostPerMillion: 3.0, OutputCostPerMillion: 15.0},
	"claude-haiku-4-5-20251001": {InputCostPerMillion: 1.0, OutputCostPerMillion: 5.0},
	"claude-opus-4":             {InputCostPerMillion: 15.0, OutputCostPerMillion: 75.0},

	"gpt-4o":      {InputCostPerMillion: 2.50, OutputCostPerMillion: 10.0},
	"gpt-4o-mini": {InputCostPerMillion: 0.15, OutputCostPerMillion: 0.60},

	"gemini-1.5-flash": {InputCostPerMillion: 0.075, OutputCostPerMillion: 0.30},
	"gemini-1.5-pro":   {InputCostPerMillion: 1.25, OutputCostPerMillion: 5.0},
	"gemini-2.0-flash": {InputCostPerMillion: 0.10, OutputCostPerMillion: 0.40},
}

// CostEstimate summarizes the projected cost of a run before any oracle
// call is made, for the cost-gate confirmation callback.
type CostEstimate struct {
	InputTokens   int
	OutputTokens  int
	EstimatedUSD  float64
	FunctionCount int
	RequestCount  int
}

// CostEstimator tracks cumulative spend and enforces an optional cost
// ceiling. A limit of 0 means unlimited.
type CostEstimator struct {
	mu             sync.Mutex
	pricing        map[string]ModelPricing
	totalCostCents float64
	limitCents     float64
}

// NewCostEstimator creates an estimator with the default pricing table and
// a ceiling of limitCents (0 = unlimited).
func NewCostEstimator(limitCents float64) *CostEstimator {
	pricing := make(map[string]ModelPricing, len(defaultPricing))
	for k, v := range defaultPricing {
		pricing[k] = v
	}
	return &CostEstimator{pricing: pricing, limitCents: limitCents}
}

// CanAfford reports whether a request of the given estimated size would
// keep cumulative spend within the ceiling, along with its estimated cost
// in cents.
func (c *CostEstimator) CanAfford(model string, estimatedInputTokens, estimatedOutputTokens int) (bool, float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	estimatedCents := c.estimateCostCentsLocked(model, estimatedInputTokens, estimatedOutputTokens)
	if c.limitCents == 0 {
		return true, estimatedCents
	}
	return c.totalCostCents+estimatedCents <= c.limitCents, estimatedCents
}

// Record adds the cost of an actual call to the cumulative total and
// returns that call's cost in cents.
func (c *CostEstimator) Record(model string, inputTokens, outputTokens int) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	cents := c.estimateCostCentsLocked(model, inputTokens, outputTokens)
	c.totalCostCents += cents
	return cents
}

// TotalCostCents returns cumulative recorded spend.
func (c *CostEstimator) TotalCostCents() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalCostCents
}

// Summary renders a human-readable spend line for the end-of-run report.
func (c *CostEstimator) Summary() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.limitCents == 0 {
		return fmt.Sprintf("total cost: $%.4f (unlimited)", c.totalCostCents/100)
	}
	return fmt.Sprintf("total cost: $%.4f / $%.4f limit", c.totalCostCents/100, c.limitCents/100)
}

func (c *CostEstimator) estimateCostCentsLocked(model string, inputTokens, outputTokens int) float64 {
	pricing := c.lookupPricingLocked(model)
	inputCost := float64(inputTokens) * pricing.InputCostPerMillion / 1_000_000
	outputCost := float64(outputTokens) * pricing.OutputCostPerMillion / 1_000_000
	return (inputCost + outputCost) * 100
}

func (c *CostEstimator) lookupPricingLocked(model string) ModelPricing {
	if p, ok := c.pricing[model]; ok {
		return p
	}
	for name, p := range c.pricing {
		if strings.HasPrefix(model, name) || strings.HasPrefix(name, model) {
			return p
		}
	}
	// Unknown model: conservative default, deliberately above most
	// published frontier-model rates so an unrecognized model never
	// silently undercounts spend.
	return ModelPricing{InputCostPerMillion: 5.0, OutputCostPerMillion: 15.0}
}
