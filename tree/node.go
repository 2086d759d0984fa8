package tree

import (
	"cmp"

	"github.com/C8PAN/rafl/base"
	"github.com/C8PAN/rafl/example"
)

/*
Node is a node of a decision tree. A node starts its life as a leaf
that owns a bounded reservoir of labelled examples and a lazily
cached PMF over their labels, and may later be converted exactly
once into an internal node that owns a split function and two leaf
children. The conversion is irreversible: internal nodes never
revert to leaves and hold no examples.
*/
type Node[L cmp.Ordered] struct {
	// An ID to identify the node on its store
	ID string
	// The ID for the parent of the node in the tree
	ParentID string
	// The IDs for the children of an internal node
	LeftID, RightID string
	// The number of ancestors of the node
	Depth int
	// The decision predicate of an internal node, nil for leaves
	Split *SplitFunction
	// The bounded example sample of a leaf, nil for internal nodes
	Reservoir *example.Reservoir[L]
	// Whether a split-evaluation task for this leaf is already on
	// the training queue
	Pending bool

	// The cached PMF of the leaf's reservoir labels, nil when stale
	pmf *base.ProbabilityMassFunction[L]
}

/*
IsLeaf returns whether the node is still a leaf.
*/
func (n *Node[L]) IsLeaf() bool {
	return n.Split == nil
}

/*
markStale discards the node's cached PMF so the next read recomputes
it from the reservoir.
*/
func (n *Node[L]) markStale() {
	n.pmf = nil
}

/*
leafPMF returns the PMF over the labels of the leaf's reservoir,
recomputing and caching it if stale. For a leaf holding no examples
it falls back to a uniform PMF over the given known label alphabet,
so that prediction stays total over any reachable leaf.
*/
func (n *Node[L]) leafPMF(knownLabels []L) (*base.ProbabilityMassFunction[L], error) {
	if n.pmf != nil {
		return n.pmf, nil
	}
	h := n.Reservoir.Histogram()
	if h.Total() == 0 {
		return base.NewUniformProbabilityMassFunction(knownLabels)
	}
	pmf, err := base.NewProbabilityMassFunction(h)
	if err != nil {
		return nil, err
	}
	n.pmf = pmf
	return pmf, nil
}
