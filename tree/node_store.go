package tree

import (
	"cmp"
	"context"
	"sync"

	"github.com/google/uuid"
)

/*
NodeStore is an interface to manage a store where the nodes of a
tree can be created, retrieved, updated and deleted.

All its methods take a context that may allow cancelling the
operation (thus forcing the return of an error) if the
implementation allows it.
*/
type NodeStore[L cmp.Ordered] interface {
	// Create takes a node and stores it for the first time in the
	// store, creating an ID for it and setting it on the node. It
	// returns an error if the node cannot be stored.
	Create(ctx context.Context, n *Node[L]) error
	// Get takes an id and returns the node in the store with that
	// id (or nil if it cannot be found) or an error if the store
	// cannot be queried.
	Get(ctx context.Context, id string) (*Node[L], error)
	// Store takes a node already existing in the store and updates
	// it on the store. It expects the node to have an ID which it
	// will not alter. It returns an error if the update cannot be
	// performed.
	Store(ctx context.Context, n *Node[L]) error
	// Delete takes a node already existing in the store and deletes
	// it from the store. It returns an error if the node exists but
	// the deletion cannot be performed.
	Delete(ctx context.Context, n *Node[L]) error
	// Close closes the store. Implementations should free any
	// resources in use as well as ensure any pending changes are
	// applied before returning (unless the context expires).
	Close(ctx context.Context) error
}

type memoryNodeStore[L cmp.Ordered] struct {
	nodes map[string]*Node[L]
	lock  *sync.RWMutex
}

/*
NewMemoryNodeStore returns an implementation of NodeStore with the
process memory space as underlying backend. Node IDs are random
UUIDs.
*/
func NewMemoryNodeStore[L cmp.Ordered]() NodeStore[L] {
	return &memoryNodeStore[L]{
		nodes: make(map[string]*Node[L]),
		lock:  &sync.RWMutex{},
	}
}

func (mns *memoryNodeStore[L]) Create(ctx context.Context, n *Node[L]) error {
	return mns.withLock(ctx, func(ctx context.Context) error {
		taken := true
		for taken {
			if err := ctx.Err(); err != nil {
				return err
			}
			n.ID = uuid.NewString()
			_, taken = mns.nodes[n.ID]
		}
		mns.nodes[n.ID] = n
		return nil
	})
}

func (mns *memoryNodeStore[L]) Store(ctx context.Context, n *Node[L]) error {
	return mns.withLock(ctx, func(ctx context.Context) error {
		mns.nodes[n.ID] = n
		return nil
	})
}

func (mns *memoryNodeStore[L]) Get(ctx context.Context, id string) (*Node[L], error) {
	var n *Node[L]
	err := mns.withRLock(ctx, func(ctx context.Context) error {
		n = mns.nodes[id]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (mns *memoryNodeStore[L]) Delete(ctx context.Context, n *Node[L]) error {
	return mns.withLock(ctx, func(ctx context.Context) error {
		delete(mns.nodes, n.ID)
		return nil
	})
}

func (mns *memoryNodeStore[L]) Close(ctx context.Context) error {
	return nil
}

func (mns *memoryNodeStore[L]) withLock(ctx context.Context, f func(ctx context.Context) error) error {
	gotLock := make(chan struct{})
	go func() {
		mns.lock.Lock()
		select {
		case <-ctx.Done():
			mns.lock.Unlock()
		case gotLock <- struct{}{}:
		}
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-gotLock:
		defer mns.lock.Unlock()
	}
	return f(ctx)
}

func (mns *memoryNodeStore[L]) withRLock(ctx context.Context, f func(ctx context.Context) error) error {
	gotLock := make(chan struct{})
	go func() {
		mns.lock.RLock()
		select {
		case <-ctx.Done():
			mns.lock.RUnlock()
		case gotLock <- struct{}{}:
		}
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-gotLock:
		defer mns.lock.RUnlock()
	}
	return f(ctx)
}
