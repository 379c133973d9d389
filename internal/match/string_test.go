package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strNode(s string) RawNode {
	v := s
	return &fakeNode{strVal: &v}
}

func TestCompileStringIs(t *testing.T) {
	m, err := CompileString(mappingNode(map[string]RawNode{"is": strNode("gedit")}))
	require.NoError(t, err)
	assert.True(t, m.Matches("gedit"))
	assert.False(t, m.Matches("Gedit"))
}

func TestCompileStringContains(t *testing.T) {
	m, err := CompileString(mappingNode(map[string]RawNode{"contains": strNode("edi")}))
	require.NoError(t, err)
	assert.True(t, m.Matches("gedit"))
	assert.False(t, m.Matches("vim"))
}

func TestCompileStringStartsWith(t *testing.T) {
	m, err := CompileString(mappingNode(map[string]RawNode{"starts_with": strNode("ged")}))
	require.NoError(t, err)
	assert.True(t, m.Matches("gedit"))
	assert.False(t, m.Matches("notgedit"))
}

func TestCompileStringEndsWith(t *testing.T) {
	m, err := CompileString(mappingNode(map[string]RawNode{"ends_with": strNode("dit")}))
	require.NoError(t, err)
	assert.True(t, m.Matches("gedit"))
	assert.False(t, m.Matches("ditto"))
}

func TestCompileStringRegex(t *testing.T) {
	m, err := CompileString(mappingNode(map[string]RawNode{"regex": strNode("^ged.t$")}))
	require.NoError(t, err)
	assert.True(t, m.Matches("gedit"))
	assert.False(t, m.Matches("gedddit"))
}

func TestCompileStringRejectsMultipleKeys(t *testing.T) {
	_, err := CompileString(mappingNode(map[string]RawNode{
		"is":       strNode("gedit"),
		"contains": strNode("edi"),
	}))
	assert.Error(t, err)
}

func TestCompileStringRejectsNoKeys(t *testing.T) {
	_, err := CompileString(mappingNode(map[string]RawNode{}))
	assert.Error(t, err)
}

func TestCompileStringRejectsNonStringValue(t *testing.T) {
	_, err := CompileString(mappingNode(map[string]RawNode{"is": intNode(5)}))
	assert.Error(t, err)
}
