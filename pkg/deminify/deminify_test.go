package deminify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shepherdjerred/jsdeminify/internal/jsast"
	"github.com/shepherdjerred/jsdeminify/internal/oracle"
	"github.com/shepherdjerred/jsdeminify/internal/oracle/egress"
)

// fakeOracle is an in-memory Oracle: it echoes back a canned response for
// every custom ID it recognizes and nothing for the rest, simulating an
// oracle that has an opinion about some functions but not others.
type fakeOracle struct {
	responses map[string]string
	calls     int
}

func (f *fakeOracle) Complete(ctx context.Context, model string, requests []oracle.Request) (map[string]string, error) {
	f.calls++
	out := make(map[string]string, len(requests))
	for _, r := range requests {
		if resp, ok := f.responses[r.CustomID]; ok {
			out[r.CustomID] = resp
		}
	}
	return out, nil
}

func (f *fakeOracle) Submit(ctx context.Context, model string, requests []oracle.Request) (string, error) {
	return "batch-1", nil
}
func (f *fakeOracle) Poll(ctx context.Context, batchID string) (bool, error) { return true, nil }
func (f *fakeOracle) Fetch(ctx context.Context, batchID string) (map[string]string, error) {
	return f.responses, nil
}

func rawMapping(t *testing.T, id string, functionName string, renames map[string]string) string {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		id: map[string]any{
			"functionName": functionName,
			"renames":      renames,
		},
	})
	require.NoError(t, err)
	return string(body)
}

func functionID(t *testing.T, source, name string) string {
	t.Helper()
	result, err := jsast.NewParser().Parse(context.Background(), []byte(source))
	require.NoError(t, err)
	for _, fn := range result.Functions {
		if fn.Name == name {
			return fn.ID
		}
	}
	t.Fatalf("no function named %q in source", name)
	return ""
}

func TestDeminify_RenamesFunctionAndParams(t *testing.T) {
	source := `function f(a, b) { return a + b; }`
	id := functionID(t, source, "f")

	fake := &fakeOracle{responses: map[string]string{
		id: rawMapping(t, id, "sum", map[string]string{"a": "x", "b": "y"}),
	}}

	result, err := Deminify(context.Background(), source, Options{
		Model:    "gpt-4o-mini",
		Oracle:   fake,
		CacheDir: t.TempDir(),
	})
	require.NoError(t, err)

	assert.Contains(t, result.Source, "function sum(x, y)")
	assert.Contains(t, result.Source, "return x + y;")
	assert.Equal(t, 1, result.Summary.FunctionCount)
	assert.Equal(t, 1, result.Summary.Mapped)
	assert.Equal(t, 0, result.Summary.Unmapped)
	assert.Equal(t, 1, fake.calls)
}

func TestDeminify_NoFunctionsReturnsUnchanged(t *testing.T) {
	source := `const x = 1;`

	result, err := Deminify(context.Background(), source, Options{
		Model:    "gpt-4o-mini",
		Oracle:   &fakeOracle{},
		CacheDir: t.TempDir(),
	})
	require.NoError(t, err)
	assert.Equal(t, source, result.Source)
	assert.Equal(t, 0, result.Summary.FunctionCount)
}

func TestDeminify_CostGateCancelsBeforeAnyOracleCall(t *testing.T) {
	source := `function f(a) { return a; }`
	fake := &fakeOracle{responses: map[string]string{}}

	result, err := Deminify(context.Background(), source, Options{
		Model:    "gpt-4o-mini",
		Oracle:   fake,
		CacheDir: t.TempDir(),
		ConfirmCost: func(estimate egress.CostEstimate) bool {
			return false
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCostCancelled)
	var derr *Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, KindCostCancelled, derr.Kind)
	assert.Equal(t, 0, fake.calls, "oracle must not be called once the cost gate declines")
	assert.Equal(t, source, result.Source, "cancellation must return the original source unchanged")
}

// erroringOracle always fails Complete with a non-transient error, so the
// coordinator gives up on the batch without retrying; the scheduler absorbs
// the batch failure and leaves the function unmapped.
type erroringOracle struct{}

func (erroringOracle) Complete(ctx context.Context, model string, requests []oracle.Request) (map[string]string, error) {
	return nil, errors.New("oracle backend unavailable")
}
func (erroringOracle) Submit(ctx context.Context, model string, requests []oracle.Request) (string, error) {
	return "", errors.New("oracle backend unavailable")
}
func (erroringOracle) Poll(ctx context.Context, batchID string) (bool, error) {
	return false, errors.New("oracle backend unavailable")
}
func (erroringOracle) Fetch(ctx context.Context, batchID string) (map[string]string, error) {
	return nil, errors.New("oracle backend unavailable")
}

func TestDeminify_OracleFailureReturnsOriginalSource(t *testing.T) {
	source := `function f(a) { return a; }`

	result, err := Deminify(context.Background(), source, Options{
		Model:    "gpt-4o-mini",
		Oracle:   erroringOracle{},
		CacheDir: t.TempDir(),
	})
	require.NoError(t, err, "a failed batch is absorbed by the scheduler, not surfaced")
	assert.Equal(t, 1, result.Summary.Unmapped)
	assert.Equal(t, source, result.Source, "an oracle failure must return the original source unchanged")
}

func TestDeminify_UnmappedFunctionStillProducesValidOutput(t *testing.T) {
	source := `function f(a) { return a; }`
	fake := &fakeOracle{responses: map[string]string{}}

	result, err := Deminify(context.Background(), source, Options{
		Model:    "gpt-4o-mini",
		Oracle:   fake,
		CacheDir: t.TempDir(),
	})
	require.NoError(t, err)
	assert.Equal(t, source, result.Source)
	assert.Equal(t, 0, result.Summary.Mapped)
	assert.Equal(t, 1, result.Summary.Unmapped)
}
