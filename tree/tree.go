/*
Package tree implements the online decision trees of the engine:
binary partitions of descriptor space that are grown incrementally,
one labelled example at a time, with bounded-memory leaves.
*/
package tree

import (
	"cmp"
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"

	"gonum.org/v1/gonum/floats"

	"github.com/C8PAN/rafl/base"
	"github.com/C8PAN/rafl/example"
)

/*
Config holds the static parameters of a tree, set at construction.
*/
type Config struct {
	// The maximum number of ancestors a leaf may have and still be
	// considered for splitting
	MaxDepth int
	// The capacity of the example reservoir of each leaf
	ReservoirCapacity int
	// The number of candidate split functions drawn per split
	// evaluation
	SplitCandidates int
	// The number of examples a leaf must hold before it is
	// considered for splitting
	MinExamplesForSplit int
	// The information gain below which the best candidate split is
	// discarded and the leaf left unsplit
	MinInformationGain float64
}

/*
Validate returns an error describing the first invalid parameter on
the config, or nil if the config is usable.
*/
func (c *Config) Validate() error {
	if c.ReservoirCapacity <= 0 {
		return fmt.Errorf("invalid tree config: reservoir capacity must be positive, got %d", c.ReservoirCapacity)
	}
	if c.MaxDepth <= 0 {
		return fmt.Errorf("invalid tree config: max depth must be positive, got %d", c.MaxDepth)
	}
	if c.SplitCandidates <= 0 {
		return fmt.Errorf("invalid tree config: split candidate count must be positive, got %d", c.SplitCandidates)
	}
	if c.MinExamplesForSplit <= 0 {
		return fmt.Errorf("invalid tree config: min examples for split must be positive, got %d", c.MinExamplesForSplit)
	}
	if c.MinExamplesForSplit > c.ReservoirCapacity {
		return fmt.Errorf("invalid tree config: min examples for split %d exceeds reservoir capacity %d, so no leaf could ever be split", c.MinExamplesForSplit, c.ReservoirCapacity)
	}
	if c.MinInformationGain < 0 {
		return fmt.Errorf("invalid tree config: min information gain must not be negative, got %g", c.MinInformationGain)
	}
	return nil
}

/*
Tree is an online decision tree. It is composed of a NodeStore where
all its nodes live, the ID for its root node, its configuration and
its own random source, which drives candidate split draws and is the
only source of diversity between the trees of a forest.

All operations on a tree appear atomic to each other: a leaf is
never observed half-converted into an internal node.
*/
type Tree[L cmp.Ordered] struct {
	NodeStore NodeStore[L]
	RootID    string
	ID        string

	cfg    Config
	rng    *rand.Rand
	mu     sync.RWMutex
	labels map[L]struct{}
}

/*
New takes a context, an ID for the tree, a node store, a config and
a random source, creates the root leaf of the tree on the store and
returns the tree or an error if the config is invalid or the root
cannot be created.
*/
func New[L cmp.Ordered](ctx context.Context, id string, ns NodeStore[L], cfg Config, rng *rand.Rand) (*Tree[L], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	reservoir, err := example.NewReservoir[L](cfg.ReservoirCapacity, rand.New(rand.NewSource(rng.Int63())))
	if err != nil {
		return nil, err
	}
	root := &Node[L]{Reservoir: reservoir}
	if err := ns.Create(ctx, root); err != nil {
		return nil, fmt.Errorf("creating root node for tree %s: %v", id, err)
	}
	return &Tree[L]{
		NodeStore: ns,
		RootID:    root.ID,
		ID:        id,
		cfg:       cfg,
		rng:       rng,
		labels:    make(map[L]struct{}),
	}, nil
}

/*
Config returns the static configuration of the tree.
*/
func (t *Tree[L]) Config() Config {
	return t.cfg
}

/*
Labels returns the labels the tree has seen so far in ascending
order.
*/
func (t *Tree[L]) Labels() []L {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sortedLabels()
}

/*
RecordLabels adds the given labels to the alphabet the tree knows
about without adding any example. It is used when deserialising a
persisted tree.
*/
func (t *Tree[L]) RecordLabels(labels []L) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, label := range labels {
		t.labels[label] = struct{}{}
	}
}

/*
NewLeafReservoir returns an empty reservoir with the tree's
configured capacity and a random source derived from the tree's
own, suitable for a leaf of this tree. It is used when deserialising
a persisted tree.
*/
func (t *Tree[L]) NewLeafReservoir() (*example.Reservoir[L], error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return example.NewReservoir[L](t.cfg.ReservoirCapacity, rand.New(rand.NewSource(t.rng.Int63())))
}

/*
AddExample takes a context, a descriptor and a label, routes the
example to a leaf and adds it to that leaf's reservoir. It returns
the ID of the touched leaf and whether the leaf became due for a
split evaluation with this addition, so the caller can schedule one.
*/
func (t *Tree[L]) AddExample(ctx context.Context, d example.Descriptor, label L) (leafID string, due bool, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, err := t.route(ctx, d)
	if err != nil {
		return "", false, fmt.Errorf("adding example to tree %s: %v", t.ID, err)
	}
	n.Reservoir.Add(example.New(d, label))
	n.markStale()
	t.labels[label] = struct{}{}
	if !n.Pending && n.Depth < t.cfg.MaxDepth && n.Reservoir.Len() >= t.cfg.MinExamplesForSplit {
		n.Pending = true
		due = true
	}
	if err := t.NodeStore.Store(ctx, n); err != nil {
		return "", false, fmt.Errorf("adding example to tree %s: storing leaf %s: %v", t.ID, n.ID, err)
	}
	return n.ID, due, nil
}

/*
Predict takes a context and a descriptor, routes it to a leaf and
returns that leaf's PMF. A leaf holding no examples yields a uniform
PMF over the labels the tree has seen; a tree that has seen no
labels at all cannot predict and returns an error.
*/
func (t *Tree[L]) Predict(ctx context.Context, d example.Descriptor) (*base.ProbabilityMassFunction[L], error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, err := t.route(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("predicting with tree %s: %v", t.ID, err)
	}
	pmf, err := n.leafPMF(t.sortedLabels())
	if err != nil {
		return nil, fmt.Errorf("predicting with tree %s: %v", t.ID, err)
	}
	return pmf, nil
}

/*
Route takes a context and a descriptor and returns the ID of the
leaf the descriptor is routed to by the split functions of the
tree's internal nodes.
*/
func (t *Tree[L]) Route(ctx context.Context, d example.Descriptor) (string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, err := t.route(ctx, d)
	if err != nil {
		return "", err
	}
	return n.ID, nil
}

func (t *Tree[L]) route(ctx context.Context, d example.Descriptor) (*Node[L], error) {
	n, err := t.NodeStore.Get(ctx, t.RootID)
	if err != nil {
		return nil, fmt.Errorf("retrieving root node %s: %v", t.RootID, err)
	}
	if n == nil {
		return nil, fmt.Errorf("root node %s not found", t.RootID)
	}
	for !n.IsLeaf() {
		if n.Split.FeatureIndex >= len(d) {
			return nil, fmt.Errorf("routing descriptor with %d features: node %s splits on feature %d", len(d), n.ID, n.Split.FeatureIndex)
		}
		childID := n.RightID
		if n.Split.RoutesLeft(d) {
			childID = n.LeftID
		}
		child, err := t.NodeStore.Get(ctx, childID)
		if err != nil {
			return nil, fmt.Errorf("retrieving node %s: %v", childID, err)
		}
		if child == nil {
			return nil, fmt.Errorf("node %s not found", childID)
		}
		n = child
	}
	return n, nil
}

/*
EvaluateSplit takes a context and the ID of a node and attempts to
split it: it draws the configured number of candidate split
functions from the ranges observed at the leaf, partitions the
leaf's examples with each and computes the information gain of the
partition, and applies the best candidate if its gain reaches the
configured minimum and neither side of it is empty. It returns
whether the node was split, together with the IDs of any children
that are born already due for an evaluation of their own, so the
caller can schedule follow-up evaluations and the tree keeps growing
past the first split.

A leaf left unsplit because it holds too few examples, sits at
maximum depth, or yields no candidate with sufficient gain is a
normal outcome, not an error; so is evaluating a node that has
already been converted by a previous evaluation.
*/
func (t *Tree[L]) EvaluateSplit(ctx context.Context, nodeID string) (bool, []string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, err := t.NodeStore.Get(ctx, nodeID)
	if err != nil {
		return false, nil, fmt.Errorf("evaluating split for node %s: %v", nodeID, err)
	}
	if n == nil {
		return false, nil, fmt.Errorf("evaluating split for node %s: node not found", nodeID)
	}
	if !n.IsLeaf() {
		return false, nil, nil
	}
	n.Pending = false
	if n.Depth >= t.cfg.MaxDepth || n.Reservoir.Len() < t.cfg.MinExamplesForSplit || n.Reservoir.Len() < 2 {
		if err := t.NodeStore.Store(ctx, n); err != nil {
			return false, nil, fmt.Errorf("evaluating split for node %s: %v", nodeID, err)
		}
		return false, nil, nil
	}
	examples := n.Reservoir.Examples()
	parentEntropy, err := labelEntropy(examples)
	if err != nil {
		return false, nil, fmt.Errorf("evaluating split for node %s: %v", nodeID, err)
	}
	split, left, right, gain, err := t.bestSplit(examples, parentEntropy)
	if err != nil {
		return false, nil, fmt.Errorf("evaluating split for node %s: %v", nodeID, err)
	}
	if split == nil || gain < t.cfg.MinInformationGain {
		if err := t.NodeStore.Store(ctx, n); err != nil {
			return false, nil, fmt.Errorf("evaluating split for node %s: %v", nodeID, err)
		}
		return false, nil, nil
	}
	due, err := t.applySplit(ctx, n, split, left, right)
	if err != nil {
		return false, nil, fmt.Errorf("splitting node %s: %v", nodeID, err)
	}
	return true, due, nil
}

/*
bestSplit draws candidate split functions for the given examples and
returns the one producing the partition with maximum information
gain, together with the partition and its gain. Candidates whose
partition leaves either side empty are discarded. The returned split
is nil when no usable candidate was drawn.
*/
func (t *Tree[L]) bestSplit(examples []*example.Example[L], parentEntropy float64) (*SplitFunction, []*example.Example[L], []*example.Example[L], float64, error) {
	var best *SplitFunction
	var bestLeft, bestRight []*example.Example[L]
	var bestGain float64
	total := float64(len(examples))
	dim := len(examples[0].Descriptor())
	for i := 0; i < t.cfg.SplitCandidates; i++ {
		candidate := t.drawCandidate(examples, dim)
		if candidate == nil {
			continue
		}
		var left, right []*example.Example[L]
		for _, e := range examples {
			if candidate.RoutesLeft(e.Descriptor()) {
				left = append(left, e)
			} else {
				right = append(right, e)
			}
		}
		if len(left) == 0 || len(right) == 0 {
			continue
		}
		leftEntropy, err := labelEntropy(left)
		if err != nil {
			return nil, nil, nil, 0, err
		}
		rightEntropy, err := labelEntropy(right)
		if err != nil {
			return nil, nil, nil, 0, err
		}
		gain := parentEntropy - leftEntropy*float64(len(left))/total - rightEntropy*float64(len(right))/total
		if best == nil || gain > bestGain {
			best = candidate
			bestLeft, bestRight = left, right
			bestGain = gain
		}
	}
	return best, bestLeft, bestRight, bestGain, nil
}

/*
drawCandidate draws a candidate split function for the given
examples: a random feature index and a threshold drawn uniformly
from the range that feature takes over the examples. It returns nil
when the drawn feature is constant over the examples, which makes it
unable to partition them.
*/
func (t *Tree[L]) drawCandidate(examples []*example.Example[L], dim int) *SplitFunction {
	featureIndex := t.rng.Intn(dim)
	values := make([]float64, len(examples))
	for i, e := range examples {
		values[i] = e.Descriptor()[featureIndex]
	}
	lo, hi := floats.Min(values), floats.Max(values)
	if lo == hi {
		return nil
	}
	return &SplitFunction{
		FeatureIndex: featureIndex,
		Threshold:    lo + t.rng.Float64()*(hi-lo),
	}
}

/*
applySplit converts the given leaf into an internal node holding the
given split function, creates its two leaf children on the store and
distributes the partitioned examples between them. The parent's
reservoir is discarded: internal nodes hold no examples. The
conversion is irreversible.

A child seeded with enough examples to qualify for a split of its
own, and sitting above the depth limit, is marked pending right away
and its ID returned, so batch-fed trees keep growing past the first
split without waiting for further ingestion.
*/
func (t *Tree[L]) applySplit(ctx context.Context, n *Node[L], split *SplitFunction, left, right []*example.Example[L]) ([]string, error) {
	leftChild, err := t.newChild(ctx, n, left)
	if err != nil {
		return nil, err
	}
	rightChild, err := t.newChild(ctx, n, right)
	if err != nil {
		return nil, err
	}
	n.Split = split
	n.LeftID = leftChild.ID
	n.RightID = rightChild.ID
	n.Reservoir = nil
	n.markStale()
	if err := t.NodeStore.Store(ctx, n); err != nil {
		return nil, fmt.Errorf("storing converted node %s: %v", n.ID, err)
	}
	var due []string
	for _, child := range []*Node[L]{leftChild, rightChild} {
		if child.Depth >= t.cfg.MaxDepth || child.Reservoir.Len() < t.cfg.MinExamplesForSplit {
			continue
		}
		child.Pending = true
		if err := t.NodeStore.Store(ctx, child); err != nil {
			return nil, fmt.Errorf("storing pending child %s: %v", child.ID, err)
		}
		due = append(due, child.ID)
	}
	return due, nil
}

func (t *Tree[L]) newChild(ctx context.Context, parent *Node[L], examples []*example.Example[L]) (*Node[L], error) {
	reservoir, err := example.NewReservoir[L](t.cfg.ReservoirCapacity, rand.New(rand.NewSource(t.rng.Int63())))
	if err != nil {
		return nil, err
	}
	for _, e := range examples {
		reservoir.Add(e)
	}
	child := &Node[L]{
		ParentID:  parent.ID,
		Depth:     parent.Depth + 1,
		Reservoir: reservoir,
	}
	if err := t.NodeStore.Create(ctx, child); err != nil {
		return nil, fmt.Errorf("creating child of node %s: %v", parent.ID, err)
	}
	return child, nil
}

/*
Traverse takes a context, a bottomup boolean and an error-returning
function that takes a context and a node as parameters, and goes
through the tree running the function with the context and every
traversed node. Traverse will call the function with a parent node
before calling it for its children if bottomup is false, and after
its children if bottomup is true. If the given context times out or
is cancelled, or a node cannot be retrieved, or the function returns
an error, the traversal is aborted and the error returned.
*/
func (t *Tree[L]) Traverse(ctx context.Context, bottomup bool, f func(context.Context, *Node[L]) error) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, err := t.NodeStore.Get(ctx, t.RootID)
	if err != nil {
		return err
	}
	return t.traverse(ctx, n, bottomup, f)
}

func (t *Tree[L]) traverse(ctx context.Context, n *Node[L], bottomup bool, f func(context.Context, *Node[L]) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !bottomup {
		if err := f(ctx, n); err != nil {
			return err
		}
	}
	for _, childID := range []string{n.LeftID, n.RightID} {
		if childID == "" {
			continue
		}
		child, err := t.NodeStore.Get(ctx, childID)
		if err != nil {
			return err
		}
		if err := t.traverse(ctx, child, bottomup, f); err != nil {
			return err
		}
	}
	if bottomup {
		if err := f(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tree[L]) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.subtreeString(t.RootID)
}

func (t *Tree[L]) subtreeString(nodeID string) string {
	n, err := t.NodeStore.Get(context.TODO(), nodeID)
	if err != nil {
		return fmt.Sprintf("ERROR: %s\n", err.Error())
	}
	result := fmt.Sprintf("[%s]\n", nodeID)
	if n.Split != nil {
		result = fmt.Sprintf("%s{ %v }\n", result, n.Split)
	} else if pmf, err := n.leafPMF(t.sortedLabels()); err == nil {
		result = fmt.Sprintf("%s{ %v }\n", result, pmf)
	}
	childIDs := []string{}
	for _, childID := range []string{n.LeftID, n.RightID} {
		if childID != "" {
			childIDs = append(childIDs, childID)
		}
	}
	if len(childIDs) > 0 {
		result = fmt.Sprintf("%s|\n", result)
	}
	for i, childID := range childIDs {
		for j, line := range strings.Split(t.subtreeString(childID), "\n") {
			if len(line) > 0 {
				if j == 0 {
					result = fmt.Sprintf("%s|__%s\n", result, line)
				} else {
					if i == len(childIDs)-1 {
						result = fmt.Sprintf("%s   %s\n", result, line)
					} else {
						result = fmt.Sprintf("%s|  %s\n", result, line)
					}
				}
			}
		}
	}
	return result
}

func (t *Tree[L]) sortedLabels() []L {
	labels := make([]L, 0, len(t.labels))
	for label := range t.labels {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })
	return labels
}

/*
labelEntropy returns the entropy in bits of the label distribution
of the given examples.
*/
func labelEntropy[L cmp.Ordered](examples []*example.Example[L]) (float64, error) {
	h := base.NewHistogram[L]()
	for _, e := range examples {
		h.Add(e.Label())
	}
	pmf, err := base.NewProbabilityMassFunction(h)
	if err != nil {
		return 0, err
	}
	return pmf.Entropy(), nil
}
