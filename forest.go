/*
Package rafl implements an online random forest classifier: an
ensemble of decision trees that are grown incrementally as labelled
feature descriptors arrive, and whose per-tree label distributions
are averaged into a single calibrated prediction.

Each tree sees every example exactly once on arrival and keeps
bounded-memory reservoirs at its leaves, so a forest can be trained
continuously during a live labelling session. The only source of
diversity between trees is the random draw of candidate split
functions, each tree using its own random source.
*/
package rafl

import (
	"cmp"
	"context"
	"fmt"
	"math/rand"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/C8PAN/rafl/base"
	"github.com/C8PAN/rafl/example"
	"github.com/C8PAN/rafl/queue"
	"github.com/C8PAN/rafl/tree"
)

/*
Forest is an ordered collection of independently seeded online
decision trees. Trees share no mutable state: ingestion and split
evaluation on different trees may run fully in parallel.
*/
type Forest[L cmp.Ordered] struct {
	cfg      ForestConfig
	trees    []*tree.Tree[L]
	treeByID map[string]*tree.Tree[L]
	queue    queue.Queue
}

/*
New takes a context, a forest config and a queue for split
evaluation tasks, and returns a forest with its trees created and
ready to train, or an error if the config is invalid or a tree
cannot be created.
*/
func New[L cmp.Ordered](ctx context.Context, cfg ForestConfig, q queue.Queue) (*Forest[L], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	f := &Forest[L]{
		cfg:      cfg,
		trees:    make([]*tree.Tree[L], 0, cfg.Trees),
		treeByID: make(map[string]*tree.Tree[L]),
		queue:    q,
	}
	for i := 0; i < cfg.Trees; i++ {
		id := fmt.Sprintf("tree-%d", i)
		t, err := tree.New[L](ctx, id, tree.NewMemoryNodeStore[L](), cfg.treeConfig(), rand.New(rand.NewSource(seed+int64(i))))
		if err != nil {
			return nil, fmt.Errorf("creating forest: %v", err)
		}
		f.trees = append(f.trees, t)
		f.treeByID[id] = t
	}
	return f, nil
}

/*
Size returns the number of trees in the forest.
*/
func (f *Forest[L]) Size() int {
	return len(f.trees)
}

/*
Config returns the static configuration of the forest.
*/
func (f *Forest[L]) Config() ForestConfig {
	return f.cfg
}

/*
Trees returns the trees of the forest in their fixed order.
*/
func (f *Forest[L]) Trees() []*tree.Tree[L] {
	trees := make([]*tree.Tree[L], len(f.trees))
	copy(trees, f.trees)
	return trees
}

/*
Tree returns the tree with the given ID, or nil if the forest has
no such tree.
*/
func (f *Forest[L]) Tree(id string) *tree.Tree[L] {
	return f.treeByID[id]
}

/*
AddExample takes a context, a descriptor and a label and feeds the
example to every tree of the forest, one goroutine per tree. Leaves
that become due for a split evaluation are pushed as tasks on the
forest's queue, to be picked up by Work.
*/
func (f *Forest[L]) AddExample(ctx context.Context, d example.Descriptor, label L) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, t := range f.trees {
		t := t
		g.Go(func() error {
			leafID, due, err := t.AddExample(gctx, d, label)
			if err != nil {
				return err
			}
			if due {
				return f.queue.Push(gctx, &queue.Task{TreeID: t.ID, NodeID: leafID})
			}
			return nil
		})
	}
	return g.Wait()
}

/*
Predict takes a context and a descriptor, collects one PMF per tree
and returns the label with maximum averaged mass across trees,
together with the per-label averaged masses as confidence scores.
Ties are broken deterministically in favour of the lowest label. An
error is returned only if the forest has seen no labelled example
at all.
*/
func (f *Forest[L]) Predict(ctx context.Context, d example.Descriptor) (L, map[L]float64, error) {
	pmfs := make([]*base.ProbabilityMassFunction[L], len(f.trees))
	g, gctx := errgroup.WithContext(ctx)
	for i, t := range f.trees {
		i, t := i, t
		g.Go(func() error {
			pmf, err := t.Predict(gctx, d)
			if err != nil {
				return err
			}
			pmfs[i] = pmf
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		var zero L
		return zero, nil, fmt.Errorf("predicting with forest: %v", err)
	}
	avg, err := base.AverageProbabilityMassFunctions(pmfs)
	if err != nil {
		var zero L
		return zero, nil, fmt.Errorf("predicting with forest: %v", err)
	}
	label, _ := avg.Best()
	return label, avg.Masses(), nil
}
