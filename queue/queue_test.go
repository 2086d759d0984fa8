package queue

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueuePushPullComplete(t *testing.T) {
	ctx := context.Background()
	q := New()
	defer q.Stop(ctx)

	pushed := &Task{TreeID: "tree-0", NodeID: "node-a"}
	require.NoError(t, q.Push(ctx, pushed))

	pending, running, err := q.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pending)
	assert.Equal(t, 0, running)

	task, tctx, tcf, err := q.Pull(ctx)
	require.NoError(t, err)
	require.NotNil(t, task)
	require.NotNil(t, tctx)
	defer tcf()
	assert.Equal(t, pushed.TreeID, task.TreeID)
	assert.Equal(t, pushed.NodeID, task.NodeID)

	pending, running, err = q.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, pending)
	assert.Equal(t, 1, running)

	require.NoError(t, q.Complete(ctx, task.ID()))
	pending, running, err = q.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, pending)
	assert.Equal(t, 0, running)
}

func TestQueuePullEmpty(t *testing.T) {
	ctx := context.Background()
	q := New()
	defer q.Stop(ctx)

	task, tctx, tcf, err := q.Pull(ctx)
	assert.NoError(t, err)
	assert.Nil(t, task)
	assert.Nil(t, tctx)
	assert.Nil(t, tcf)
}

func TestQueueDropRequeues(t *testing.T) {
	ctx := context.Background()
	q := New()
	defer q.Stop(ctx)

	require.NoError(t, q.Push(ctx, &Task{TreeID: "tree-0", NodeID: "node-a"}))
	task, _, tcf, err := q.Pull(ctx)
	require.NoError(t, err)
	require.NotNil(t, task)
	tcf()

	require.NoError(t, q.Drop(ctx, task.ID()))
	pending, running, err := q.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pending)
	assert.Equal(t, 0, running)

	again, _, tcf, err := q.Pull(ctx)
	require.NoError(t, err)
	require.NotNil(t, again)
	defer tcf()
	assert.Equal(t, task.NodeID, again.NodeID)
}

func TestQueueDropAfterCompleteIsNoop(t *testing.T) {
	ctx := context.Background()
	q := New()
	defer q.Stop(ctx)

	require.NoError(t, q.Push(ctx, &Task{TreeID: "tree-0", NodeID: "node-a"}))
	task, _, tcf, err := q.Pull(ctx)
	require.NoError(t, err)
	tcf()
	require.NoError(t, q.Complete(ctx, task.ID()))
	require.NoError(t, q.Drop(ctx, task.ID()))

	pending, running, err := q.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, pending+running)
}

func TestQueuePreservesOrder(t *testing.T) {
	ctx := context.Background()
	q := New()
	defer q.Stop(ctx)

	for i := 0; i < 10; i++ {
		require.NoError(t, q.Push(ctx, &Task{TreeID: "tree-0", NodeID: fmt.Sprintf("node-%d", i)}))
	}
	for i := 0; i < 10; i++ {
		task, _, tcf, err := q.Pull(ctx)
		require.NoError(t, err)
		require.NotNil(t, task)
		tcf()
		assert.Equal(t, fmt.Sprintf("node-%d", i), task.NodeID)
		require.NoError(t, q.Complete(ctx, task.ID()))
	}
}

func TestWaitFor(t *testing.T) {
	ctx := context.Background()
	q := New()
	defer q.Stop(ctx)

	require.NoError(t, q.Push(ctx, &Task{TreeID: "tree-0", NodeID: "node-a"}))
	go func() {
		task, _, tcf, err := q.Pull(ctx)
		if err != nil || task == nil {
			return
		}
		tcf()
		q.Complete(ctx, task.ID())
	}()

	wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	assert.NoError(t, WaitFor(wctx, q))
}

func TestWaitForHonoursContext(t *testing.T) {
	ctx := context.Background()
	q := New()
	defer q.Stop(ctx)

	require.NoError(t, q.Push(ctx, &Task{TreeID: "tree-0", NodeID: "node-a"}))
	wctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	assert.Error(t, WaitFor(wctx, q))
}

func TestTaskID(t *testing.T) {
	task := &Task{TreeID: "tree-3", NodeID: "node-x"}
	assert.Equal(t, "node-x", task.ID())
	assert.Equal(t, "{Task tree-3/node-x}", task.String())
}
