package executor

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgcudahy/sos/internal/digraph"
	"github.com/pgcudahy/sos/internal/digraph/scheduler"
)

func TestShellExecutor_RunsStatementWithBindings(t *testing.T) {
	var out bytes.Buffer
	e := ShellExecutor{Stdout: &out}
	node := &scheduler.Node{Name: "greet", Statement: `echo "hello $NAME"`}

	result, err := e.Execute(context.Background(), node, map[string]digraph.Value{
		"NAME": digraph.Str("world"),
	})
	require.NoError(t, err)
	assert.Equal(t, "hello world\n", out.String())
	assert.False(t, result.Outputs.IsUndetermined())
}

func TestShellExecutor_EmptyStatementIsNoop(t *testing.T) {
	e := ShellExecutor{}
	node := &scheduler.Node{Name: "noop"}
	result, err := e.Execute(context.Background(), node, nil)
	require.NoError(t, err)
	assert.False(t, result.Outputs.IsUndetermined())
}

func TestShellExecutor_PropagatesNonZeroExit(t *testing.T) {
	e := ShellExecutor{}
	node := &scheduler.Node{Name: "fails", Statement: "exit 3"}
	_, err := e.Execute(context.Background(), node, nil)
	require.Error(t, err)
}
