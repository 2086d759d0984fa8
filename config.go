package rafl

import (
	"fmt"

	"github.com/C8PAN/rafl/tree"
)

/*
ForestConfig holds the static parameters of a forest. It is set at
construction and never changes afterwards.
*/
type ForestConfig struct {
	// The number of trees in the forest
	Trees int `json:"trees" yaml:"trees"`
	// The capacity of the example reservoir of each leaf
	ReservoirCapacity int `json:"reservoirCapacity" yaml:"reservoir_capacity"`
	// The maximum depth leaves may sit at and still be split
	MaxDepth int `json:"maxDepth" yaml:"max_depth"`
	// The number of candidate split functions drawn per split
	// evaluation
	SplitCandidates int `json:"splitCandidates" yaml:"split_candidates"`
	// The number of examples a leaf must hold before it is
	// considered for splitting
	MinExamplesForSplit int `json:"minExamplesForSplit" yaml:"min_examples_for_split"`
	// The information gain below which the best candidate split is
	// discarded
	MinInformationGain float64 `json:"minInformationGain" yaml:"min_information_gain"`
	// The seed for the random sources of the trees. Tree i is
	// seeded with Seed+i, so a fixed seed makes training
	// reproducible for a fixed example order. A zero seed is
	// replaced by the current time.
	Seed int64 `json:"seed,omitempty" yaml:"seed"`
}

/*
Validate returns an error describing the first invalid parameter on
the config, or nil if the config is usable.
*/
func (c *ForestConfig) Validate() error {
	if c.Trees <= 0 {
		return fmt.Errorf("invalid forest config: tree count must be positive, got %d", c.Trees)
	}
	tc := c.treeConfig()
	return tc.Validate()
}

func (c *ForestConfig) treeConfig() tree.Config {
	return tree.Config{
		MaxDepth:            c.MaxDepth,
		ReservoirCapacity:   c.ReservoirCapacity,
		SplitCandidates:     c.SplitCandidates,
		MinExamplesForSplit: c.MinExamplesForSplit,
		MinInformationGain:  c.MinInformationGain,
	}
}
