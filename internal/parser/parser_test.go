package parser_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/microscaler/secret-manager-controller/internal/parser"
)

func TestClassifyDisabled(t *testing.T) {
	key, value, enabled, ok := parser.Classify("#OLD_API_KEY=x")
	require.True(t, ok)
	assert.Equal(t, "OLD_API_KEY", key)
	assert.Equal(t, "x", value)
	assert.False(t, enabled)
}

func TestClassifyPlain(t *testing.T) {
	key, value, enabled, ok := parser.Classify(`NEW_API_KEY="y"`)
	require.True(t, ok)
	assert.Equal(t, "NEW_API_KEY", key)
	assert.Equal(t, "y", value)
	assert.True(t, enabled)
}

func TestClassifyBlankCommentDiscarded(t *testing.T) {
	_, _, _, ok := parser.Classify("   #   ")
	assert.False(t, ok)
}

func TestClassifyBlankLineDiscarded(t *testing.T) {
	_, _, _, ok := parser.Classify("")
	assert.False(t, ok)
}

func TestParseEnvInvalidKey(t *testing.T) {
	_, err := parser.ParseEnv([]byte("1BAD=x\n"))
	require.Error(t, err)
	var pe *parser.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 1, pe.Line)
}

func TestParseEnvRoundTripNoDisabledNoQuoting(t *testing.T) {
	input := []byte("API_KEY=k1\nDB_PW=k2\n")
	bundle, err := parser.ParseEnv(input)
	require.NoError(t, err)
	assert.Equal(t, []string{"API_KEY", "DB_PW"}, bundle.Keys())

	var out strings.Builder
	for _, k := range bundle.Keys() {
		e, _ := bundle.Get(k)
		out.WriteString(k + "=" + e.Value + "\n")
	}
	assert.Equal(t, string(input), out.String())
}

func TestFlattenNested(t *testing.T) {
	bundle, err := parser.Flatten(map[string]any{
		"db": map[string]any{
			"host": "localhost",
			"port": 5432,
		},
		"api_key": "k1",
	})
	require.NoError(t, err)
	entry, ok := bundle.Get("db.host")
	require.True(t, ok)
	assert.Equal(t, "localhost", entry.Value)
	entry, ok = bundle.Get("api_key")
	require.True(t, ok)
	assert.Equal(t, "k1", entry.Value)
}

func TestFlattenNonScalarLeaf(t *testing.T) {
	_, err := parser.Flatten(map[string]any{
		"list": []any{"a", "b"},
	})
	require.Error(t, err)
	var nsErr *parser.NonScalarLeafError
	require.ErrorAs(t, err, &nsErr)
}

func TestMergeTreeOverridesEnv(t *testing.T) {
	env, err := parser.ParseEnv([]byte("API_KEY=k1\nDB_PW=k2\n"))
	require.NoError(t, err)
	tree, err := parser.Flatten(map[string]any{"API_KEY": "k1-new"})
	require.NoError(t, err)

	merged := parser.Merge(env, tree)
	entry, ok := merged.Get("API_KEY")
	require.True(t, ok)
	assert.Equal(t, "k1-new", entry.Value)
	assert.Equal(t, []string{"API_KEY", "DB_PW"}, merged.Keys())
}

func TestParsePropertiesRoutedSeparately(t *testing.T) {
	bundle, err := parser.ParseProperties([]byte("# comment\nkey=value\n"))
	require.NoError(t, err)
	entry, ok := bundle.Get("key")
	require.True(t, ok)
	assert.Equal(t, "value", entry.Value)
}
