package json

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/C8PAN/rafl/queue"
)

func TestTaskRoundtrip(t *testing.T) {
	ctx := context.Background()
	ed := New()

	data, err := ed.Encode(ctx, &queue.Task{TreeID: "tree-2", NodeID: "node-7"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"tree":"tree-2","node":"node-7"}`, string(data))

	task, err := ed.Decode(ctx, data)
	require.NoError(t, err)
	assert.Equal(t, "tree-2", task.TreeID)
	assert.Equal(t, "node-7", task.NodeID)
}

func TestDecodeRejectsIncompleteTasks(t *testing.T) {
	ctx := context.Background()
	ed := New()

	_, err := ed.Decode(ctx, []byte(`{"tree":"tree-2"}`))
	assert.Error(t, err)
	_, err = ed.Decode(ctx, []byte(`not json`))
	assert.Error(t, err)
}
