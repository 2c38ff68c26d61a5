package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgcudahy/sos/internal/digraph"
)

func TestCELEvaluator_CompileExpression(t *testing.T) {
	e, err := NewCELEvaluator()
	require.NoError(t, err)

	cases := []struct {
		name  string
		text  string
		mode  Mode
		valid bool
	}{
		{"complete expression", "1 + 2", ModeExpression, true},
		{"incomplete expression", "1 +", ModeExpression, false},
		{"complete directive list", "'a.txt', 'b.txt'", ModeDirective, true},
		{"directive trailing comma forces continuation", "'a.txt',", ModeDirective, false},
		{"balanced statement block", "x = (1 + 2)\n", ModeStatements, true},
		{"unbalanced statement block", "x = (1 + 2\n", ModeStatements, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := e.Compile(tc.text, tc.mode)
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestCELEvaluator_Eval(t *testing.T) {
	e, err := NewCELEvaluator()
	require.NoError(t, err)

	v, err := e.Eval("n + 1", map[string]digraph.Value{"n": digraph.Int(41)})
	require.NoError(t, err)
	i, ok := v.AsInt()
	require.True(t, ok)
	assert.Equal(t, int64(42), i)

	v, err = e.Eval("'hello, ' + name", map[string]digraph.Value{"name": digraph.Str("world")})
	require.NoError(t, err)
	s, ok := v.AsStr()
	require.True(t, ok)
	assert.Equal(t, "hello, world", s)
}
