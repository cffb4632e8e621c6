package cache

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFunctionKey_StableUnderWhitespaceEdits(t *testing.T) {
	a := "function f(x) {\n  return x+1;\n}"
	b := "function f(x) { return x+1; }"
	assert.Equal(t, FunctionKey(a), FunctionKey(b))
	assert.Len(t, FunctionKey(a), 16)
}

func TestFunctionKey_DiffersOnRealEdit(t *testing.T) {
	assert.NotEqual(t,
		FunctionKey("function f(x) { return x+1; }"),
		FunctionKey("function f(x) { return x+2; }"),
	)
}

func TestProjectKey_Length(t *testing.T) {
	assert.Len(t, ProjectKey("/home/user/project"), 8)
}

func TestFileCache_MissThenPutThenHit(t *testing.T) {
	dir := t.TempDir()
	c, err := NewFileCache(dir)
	require.NoError(t, err)

	_, ok, err := c.Get("abc123")
	require.NoError(t, err)
	assert.False(t, ok)

	entry := Entry{
		Hash:      "abc123",
		Model:     "gpt-4o-mini",
		Timestamp: 1,
		Mapping: RenameMapping{
			FunctionName: "computeTotal",
			Renames:      map[string]string{"a": "total"},
		},
	}
	require.NoError(t, c.Put(entry))

	got, ok, err := c.Get("abc123")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, entry, got)

	assert.FileExists(t, filepath.Join(dir, "abc123.json"))
}

func TestFileBatchStore_SaveLoadClear(t *testing.T) {
	dir := t.TempDir()
	b, err := NewFileBatchStore(dir)
	require.NoError(t, err)

	_, ok, err := b.Load("proj1")
	require.NoError(t, err)
	assert.False(t, ok)

	state := BatchState{
		BatchID:       "batch-1",
		SourceHash:    "deadbeef",
		ProjectID:     "proj1",
		Model:         "gpt-4o-mini",
		FunctionCount: 12,
	}
	require.NoError(t, b.Save(state))

	got, ok, err := b.Load("proj1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, state, got)

	require.NoError(t, b.Clear("proj1"))
	_, ok, err = b.Load("proj1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBadgerCache_PutGet(t *testing.T) {
	dir := t.TempDir()
	c, err := NewBadgerCache(dir, 0)
	require.NoError(t, err)
	defer c.Close()

	entry := Entry{
		Hash:      "feedface",
		Model:     "claude-sonnet-4",
		Timestamp: 42,
		Mapping: RenameMapping{
			Description: "adds two numbers",
			Renames:     map[string]string{"a": "left", "b": "right"},
		},
	}
	require.NoError(t, c.Put(entry))

	got, ok, err := c.Get("feedface")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, entry, got)

	_, ok, err = c.Get("not-present")
	require.NoError(t, err)
	assert.False(t, ok)
}
