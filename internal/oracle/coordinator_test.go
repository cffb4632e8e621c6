package oracle

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shepherdjerred/jsdeminify/internal/cache"
	"github.com/shepherdjerred/jsdeminify/internal/jsast"
)

// fakeOracle is an in-memory Oracle for coordinator tests: it echoes back
// a canned mapping for every custom ID it's asked about.
type fakeOracle struct {
	callCount int
	responses map[string]string // custom_id -> raw response body
}

func (f *fakeOracle) Complete(ctx context.Context, model string, requests []Request) (map[string]string, error) {
	f.callCount++
	out := make(map[string]string, len(requests))
	for _, r := range requests {
		if resp, ok := f.responses[r.CustomID]; ok {
			out[r.CustomID] = resp
		}
	}
	return out, nil
}

func (f *fakeOracle) Submit(ctx context.Context, model string, requests []Request) (string, error) {
	return "batch-1", nil
}
func (f *fakeOracle) Poll(ctx context.Context, batchID string) (bool, error) { return true, nil }
func (f *fakeOracle) Fetch(ctx context.Context, batchID string) (map[string]string, error) {
	return f.responses, nil
}

func rawMapping(t *testing.T, id, newName string) string {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		id: map[string]any{
			"functionName": newName,
			"renames":      map[string]string{},
		},
	})
	require.NoError(t, err)
	return string(body)
}

func TestCoordinator_CacheHitSkipsOracle(t *testing.T) {
	dir := t.TempDir()
	store, err := cache.NewFileCache(dir)
	require.NoError(t, err)

	source := "function a(){return 1;}"
	fn := &jsast.Function{ID: "a_0_23", Name: "a", Start: 0, End: len(source)}

	key := cache.FunctionKey(source[fn.Start:fn.End])
	require.NoError(t, store.Put(cache.Entry{
		Hash:  key,
		Model: "gpt-4o-mini",
		Mapping: cache.RenameMapping{
			FunctionName: "addOne",
			Renames:      map[string]string{},
		},
	}))

	oracleClient := &fakeOracle{responses: map[string]string{}}
	coord := &Coordinator{
		Oracle: oracleClient,
		Cache:  store,
		Model:  "gpt-4o-mini",
	}

	results, err := coord.Process(context.Background(), []*jsast.Function{fn}, source, "srchash", nil)
	require.NoError(t, err)
	assert.Equal(t, "addOne", results[fn.ID].FunctionName)
	assert.Equal(t, 0, oracleClient.callCount)
}

func TestCoordinator_CacheMissCallsOracleAndPersists(t *testing.T) {
	dir := t.TempDir()
	store, err := cache.NewFileCache(dir)
	require.NoError(t, err)

	source := "function b(){return 2;}"
	fn := &jsast.Function{ID: "b_0_23", Name: "b", Start: 0, End: len(source)}

	oracleClient := &fakeOracle{responses: map[string]string{
		fn.ID: rawMapping(t, fn.ID, "returnTwo"),
	}}
	coord := &Coordinator{
		Oracle: oracleClient,
		Cache:  store,
		Model:  "gpt-4o-mini",
	}

	results, err := coord.Process(context.Background(), []*jsast.Function{fn}, source, "srchash", nil)
	require.NoError(t, err)
	assert.Equal(t, "returnTwo", results[fn.ID].FunctionName)
	assert.Equal(t, 1, oracleClient.callCount)

	// Second run should now be a cache hit.
	results2, err := coord.Process(context.Background(), []*jsast.Function{fn}, source, "srchash", nil)
	require.NoError(t, err)
	assert.Equal(t, "returnTwo", results2[fn.ID].FunctionName)
	assert.Equal(t, 1, oracleClient.callCount) // unchanged: no second call
}

func TestCoordinator_DeferredModeSubmitsAndClearsBatchState(t *testing.T) {
	dir := t.TempDir()
	store, err := cache.NewFileCache(dir)
	require.NoError(t, err)
	batchStore, err := cache.NewFileBatchStore(dir)
	require.NoError(t, err)

	source := "function c(){return 3;}"
	fn := &jsast.Function{ID: "c_0_23", Name: "c", Start: 0, End: len(source)}

	oracleClient := &fakeOracle{responses: map[string]string{
		fn.ID: rawMapping(t, fn.ID, "returnThree"),
	}}
	coord := &Coordinator{
		Oracle:     oracleClient,
		Cache:      store,
		BatchStore: batchStore,
		Model:      "claude-sonnet-4",
		UseBatch:   true,
		ProjectID:  "proj1",
	}

	results, err := coord.Process(context.Background(), []*jsast.Function{fn}, source, "srchash", nil)
	require.NoError(t, err)
	assert.Equal(t, "returnThree", results[fn.ID].FunctionName)

	_, exists, err := batchStore.Load("proj1")
	require.NoError(t, err)
	assert.False(t, exists, "batch state should be cleared after a successful fetch")
}
