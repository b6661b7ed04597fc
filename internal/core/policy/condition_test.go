package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRejectsUnknownOperator(t *testing.T) {
	_, err := Parse([]byte(`{"xor": [{"eq": ["request.action", "read"]}]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown condition operator")
}

func TestParseRejectsUnknownAttribute(t *testing.T) {
	_, err := Parse([]byte(`{"eq": ["subject.password", "x"]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown attribute")
}

func TestParseRejectsBadRegex(t *testing.T) {
	_, err := Parse([]byte(`{"regex": ["request.resource", "["]}`))
	require.Error(t, err)
}

func TestEmptyConditionAlwaysMatches(t *testing.T) {
	e, err := Parse(nil)
	require.NoError(t, err)
	assert.True(t, e.Eval(map[string]any{}))

	e, err = Parse([]byte(`{}`))
	require.NoError(t, err)
	assert.True(t, e.Eval(nil))
}

func TestEqAndNe(t *testing.T) {
	e, err := Parse([]byte(`{"eq": ["request.action", "delete"]}`))
	require.NoError(t, err)
	assert.True(t, e.Eval(map[string]any{"request.action": "delete"}))
	assert.False(t, e.Eval(map[string]any{"request.action": "read"}))
	assert.False(t, e.Eval(map[string]any{}))

	ne, err := Parse([]byte(`{"ne": ["request.action", "delete"]}`))
	require.NoError(t, err)
	assert.True(t, ne.Eval(map[string]any{"request.action": "read"}))
	assert.True(t, ne.Eval(map[string]any{}))
}

func TestNumericComparisons(t *testing.T) {
	e, err := Parse([]byte(`{"and": [{"gte": ["env.hour", 9]}, {"lt": ["env.hour", 18]}]}`))
	require.NoError(t, err)
	assert.True(t, e.Eval(map[string]any{"env.hour": 10}))
	assert.False(t, e.Eval(map[string]any{"env.hour": 20}))
	assert.False(t, e.Eval(map[string]any{}))
}

func TestInAgainstSliceAttribute(t *testing.T) {
	e, err := Parse([]byte(`{"in": ["subject.roles", ["auditor", "admin"]]}`))
	require.NoError(t, err)
	assert.True(t, e.Eval(map[string]any{"subject.roles": []string{"viewer", "admin"}}))
	assert.False(t, e.Eval(map[string]any{"subject.roles": []string{"viewer"}}))
}

func TestNotAndOr(t *testing.T) {
	e, err := Parse([]byte(`{"not": {"or": [{"eq": ["request.action", "delete"]}, {"eq": ["request.action", "update"]}]}}`))
	require.NoError(t, err)
	assert.True(t, e.Eval(map[string]any{"request.action": "read"}))
	assert.False(t, e.Eval(map[string]any{"request.action": "delete"}))
}

func TestRegexMatch(t *testing.T) {
	e, err := Parse([]byte(`{"regex": ["request.attrs.department", "^eng-"]}`))
	require.NoError(t, err)
	assert.True(t, e.Eval(map[string]any{"request.attrs.department": "eng-platform"}))
	assert.False(t, e.Eval(map[string]any{"request.attrs.department": "sales"}))
	assert.False(t, e.Eval(map[string]any{}))
}

func TestDynamicRequestAttrs(t *testing.T) {
	e, err := Parse([]byte(`{"eq": ["request.attrs.owner_id", "u-7"]}`))
	require.NoError(t, err)
	assert.True(t, e.Eval(map[string]any{"request.attrs.owner_id": "u-7"}))
}

func TestNumericOpRejectsStringValue(t *testing.T) {
	_, err := Parse([]byte(`{"gt": ["env.hour", "nine"]}`))
	require.Error(t, err)
}
