package rafl

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/C8PAN/rafl/queue"
)

/*
Work takes a context and an emptyQueueSleep duration and enters a
loop in which it:
  - pulls a split-evaluation task from the forest's queue,
  - runs the evaluation on the task's tree, splitting the leaf if a
    candidate with sufficient information gain is found,
  - pushes follow-up tasks for children of the split that are born
    with enough examples to qualify for a split of their own,
  - marks the task as completed on the queue.

If at some point no task can be pulled and the sum of tasks running
and pending on the queue is 0, the worker ends returning nil. If no
task can be pulled but the sum is not 0, the worker will sleep for
the given emptyQueueSleep duration and then retry.

Work will return a non-nil error if the given context times out or
is cancelled, if a split evaluation returns a non-nil error or if an
operation with the queue returns a non-nil error. Several Work
calls may run concurrently on the same forest.
*/
func (f *Forest[L]) Work(ctx context.Context, emptyQueueSleep time.Duration) error {
	for {
		task, tctx, tcf, err := f.queue.Pull(ctx)
		if err != nil {
			return err
		}
		if task == nil {
			pending, running, err := f.queue.Count(ctx)
			if err != nil {
				return err
			}
			if pending+running == 0 {
				break
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(emptyQueueSleep):
			}
			continue
		}
		mctx, cancel := mergeCtxCancel(tctx, ctx)
		err = f.workTask(mctx, task)
		cancel()
		tcf()
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

/*
Train takes a context, a worker count and an emptyQueueSleep
duration and runs that many concurrent Work loops until the queue
drains, returning the first error any of them produces.
*/
func (f *Forest[L]) Train(ctx context.Context, workers int, emptyQueueSleep time.Duration) error {
	if workers <= 0 {
		return fmt.Errorf("training forest: worker count must be positive, got %d", workers)
	}
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			return f.Work(gctx, emptyQueueSleep)
		})
	}
	return g.Wait()
}

func (f *Forest[L]) workTask(ctx context.Context, task *queue.Task) error {
	defer func() {
		f.queue.Drop(ctx, task.ID())
	}()
	t := f.Tree(task.TreeID)
	if t == nil {
		return fmt.Errorf("working task %s: unknown tree %s", task.ID(), task.TreeID)
	}
	_, due, err := t.EvaluateSplit(ctx, task.NodeID)
	if err != nil {
		return err
	}
	for _, nodeID := range due {
		if err := f.queue.Push(ctx, &queue.Task{TreeID: t.ID, NodeID: nodeID}); err != nil {
			return fmt.Errorf("working task %s: scheduling child %s: %v", task.ID(), nodeID, err)
		}
	}
	return f.queue.Complete(ctx, task.ID())
}

func mergeCtxCancel(ctx1, ctx2 context.Context) (context.Context, context.CancelFunc) {
	mctx, cancel := context.WithCancel(ctx1)
	go func() {
		select {
		case <-mctx.Done():
		case <-ctx2.Done():
			cancel()
		}
	}()
	return mctx, cancel
}
