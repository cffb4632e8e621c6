package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponse_BareJSON(t *testing.T) {
	raw := `{"fn_0_10": {"functionName": "computeTotal", "renames": {"a": "total"}}}`
	got, err := ParseResponse(raw)
	require.NoError(t, err)
	require.Contains(t, got, "fn_0_10")
	assert.Equal(t, "computeTotal", got["fn_0_10"].FunctionName)
	assert.Equal(t, "total", got["fn_0_10"].Renames["a"])
}

func TestParseResponse_FencedCodeBlock(t *testing.T) {
	raw := "Here is the result:\n```json\n{\"fn_0_10\": {\"renames\": {\"a\": \"total\"}}}\n```\nThanks."
	got, err := ParseResponse(raw)
	require.NoError(t, err)
	require.Contains(t, got, "fn_0_10")
	assert.Equal(t, "total", got["fn_0_10"].Renames["a"])
}

func TestParseResponse_MalformedEntryDiscardedNotFatal(t *testing.T) {
	raw := `{
		"fn_good": {"renames": {"a": "total"}},
		"fn_bad": {"renames": "not-an-object"}
	}`
	got, err := ParseResponse(raw)
	require.NoError(t, err)
	assert.Contains(t, got, "fn_good")
	assert.NotContains(t, got, "fn_bad")
}

func TestParseResponse_TopLevelMalformedIsFatal(t *testing.T) {
	_, err := ParseResponse("not json at all")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestParseResponse_EmptyRenamesIsValid(t *testing.T) {
	raw := `{"fn_1": {"description": "does nothing interesting"}}`
	got, err := ParseResponse(raw)
	require.NoError(t, err)
	require.Contains(t, got, "fn_1")
	assert.Empty(t, got["fn_1"].Renames)
	assert.Equal(t, "does nothing interesting", got["fn_1"].Description)
}
