package rafl

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/C8PAN/rafl/example"
	"github.com/C8PAN/rafl/queue"
	"github.com/C8PAN/rafl/tree"
)

func testForestConfig() ForestConfig {
	return ForestConfig{
		Trees:               4,
		ReservoirCapacity:   100,
		MaxDepth:            5,
		SplitCandidates:     16,
		MinExamplesForSplit: 4,
		MinInformationGain:  0,
		Seed:                42,
	}
}

func newTestForest(t *testing.T, cfg ForestConfig) *Forest[string] {
	f, err := New[string](context.Background(), cfg, queue.New())
	require.NoError(t, err)
	return f
}

func trainOn(t *testing.T, f *Forest[string], examples []*example.Example[string]) {
	t.Helper()
	ctx := context.Background()
	for _, e := range examples {
		require.NoError(t, f.AddExample(ctx, e.Descriptor(), e.Label()))
	}
	// A single worker keeps the per-tree evaluation order, and with it
	// each tree's random draws, deterministic for a fixed seed.
	require.NoError(t, f.Train(ctx, 1, 5*time.Millisecond))
}

func clusteredExamples(label string, center example.Descriptor, offsets []float64) []*example.Example[string] {
	examples := make([]*example.Example[string], 0, len(offsets))
	for _, offset := range offsets {
		d := example.Descriptor{center[0] + offset, center[1] - offset}
		examples = append(examples, example.New(d, label))
	}
	return examples
}

func TestNewValidatesConfig(t *testing.T) {
	cfg := testForestConfig()
	cfg.Trees = 0
	_, err := New[string](context.Background(), cfg, queue.New())
	assert.Error(t, err)
}

func TestNewCreatesIndependentTrees(t *testing.T) {
	f := newTestForest(t, testForestConfig())
	assert.Equal(t, 4, f.Size())

	seen := map[string]bool{}
	for _, tr := range f.Trees() {
		assert.False(t, seen[tr.ID], "tree IDs must be unique")
		seen[tr.ID] = true
		assert.Equal(t, tr, f.Tree(tr.ID))
	}
	assert.Nil(t, f.Tree("no-such-tree"))
}

func TestForestLearnsSeparableClusters(t *testing.T) {
	ctx := context.Background()
	f := newTestForest(t, testForestConfig())
	offsets := []float64{-0.4, -0.2, 0, 0.1, 0.3, 0.5, -0.1, 0.2, -0.3, 0.4}
	examples := append(
		clusteredExamples("floor", example.Descriptor{0, 0}, offsets),
		clusteredExamples("wall", example.Descriptor{10, 10}, offsets)...,
	)
	trainOn(t, f, examples)

	label, masses, err := f.Predict(ctx, example.Descriptor{0.1, 0.1})
	require.NoError(t, err)
	assert.Equal(t, "floor", label)
	assert.Greater(t, masses["floor"], 0.5)

	label, masses, err = f.Predict(ctx, example.Descriptor{10, 10})
	require.NoError(t, err)
	assert.Equal(t, "wall", label)
	assert.Greater(t, masses["wall"], 0.5)
}

func TestForestGrowsBeyondOneSplit(t *testing.T) {
	// Four separable classes cannot be told apart by a single split,
	// so batch training must keep scheduling the children born from
	// each split until the tree is deep enough.
	ctx := context.Background()
	cfg := testForestConfig()
	cfg.Trees = 1
	cfg.MaxDepth = 6
	cfg.MinInformationGain = 0.01
	f := newTestForest(t, cfg)

	offsets := []float64{-0.4, -0.2, 0, 0.1, 0.3, 0.5, -0.1, 0.2, -0.3, 0.4}
	centers := map[string]example.Descriptor{
		"chair":  {0, 0},
		"floor":  {0, 10},
		"wall":   {10, 0},
		"window": {10, 10},
	}
	var examples []*example.Example[string]
	for _, label := range []string{"chair", "floor", "wall", "window"} {
		examples = append(examples, clusteredExamples(label, centers[label], offsets)...)
	}
	trainOn(t, f, examples)

	for label, center := range centers {
		predicted, masses, err := f.Predict(ctx, center)
		require.NoError(t, err)
		assert.Equal(t, label, predicted)
		assert.Greater(t, masses[label], 0.5)
	}

	var maxLeafDepth int
	require.NoError(t, f.Trees()[0].Traverse(ctx, false, func(_ context.Context, n *tree.Node[string]) error {
		if n.IsLeaf() && n.Depth > maxLeafDepth {
			maxLeafDepth = n.Depth
		}
		return nil
	}))
	assert.GreaterOrEqual(t, maxLeafDepth, 2, "four classes need at least two levels of splits")
}

func TestPredictIsTotalOverDescriptorSpace(t *testing.T) {
	// Any descriptor routes to some leaf on every tree, so prediction
	// must succeed even far away from all training examples.
	ctx := context.Background()
	f := newTestForest(t, testForestConfig())
	offsets := []float64{-0.4, -0.2, 0, 0.1, 0.3, 0.5}
	trainOn(t, f, clusteredExamples("floor", example.Descriptor{0, 0}, offsets))

	label, masses, err := f.Predict(ctx, example.Descriptor{-1e6, 1e6})
	require.NoError(t, err)
	assert.Equal(t, "floor", label)
	var sum float64
	for _, mass := range masses {
		sum += mass
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestPredictBeforeAnyExampleFails(t *testing.T) {
	f := newTestForest(t, testForestConfig())
	_, _, err := f.Predict(context.Background(), example.Descriptor{0, 0})
	assert.Error(t, err)
}

func TestPredictBreaksTiesTowardsLowestLabel(t *testing.T) {
	ctx := context.Background()
	cfg := testForestConfig()
	cfg.Trees = 1
	// A min-examples threshold above the example count keeps the tree
	// a single leaf, making the tie exact.
	cfg.MinExamplesForSplit = 100
	f := newTestForest(t, cfg)

	require.NoError(t, f.AddExample(ctx, example.Descriptor{0, 0}, "wall"))
	require.NoError(t, f.AddExample(ctx, example.Descriptor{1, 1}, "floor"))

	label, masses, err := f.Predict(ctx, example.Descriptor{0.5, 0.5})
	require.NoError(t, err)
	assert.Equal(t, "floor", label)
	assert.InDelta(t, 0.5, masses["floor"], 1e-12)
	assert.InDelta(t, 0.5, masses["wall"], 1e-12)
}

func TestFixedSeedIsReproducible(t *testing.T) {
	ctx := context.Background()
	offsets := []float64{-0.4, -0.2, 0, 0.1, 0.3, 0.5, -0.1, 0.2, -0.3, 0.4}
	examples := append(
		clusteredExamples("floor", example.Descriptor{0, 0}, offsets),
		clusteredExamples("wall", example.Descriptor{10, 10}, offsets)...,
	)

	var masses [2]map[string]float64
	for i := range masses {
		f := newTestForest(t, testForestConfig())
		trainOn(t, f, examples)
		_, m, err := f.Predict(ctx, example.Descriptor{5, 5})
		require.NoError(t, err)
		masses[i] = m
	}
	assert.Equal(t, masses[0], masses[1])
}

func TestConcurrentIngestionAndPrediction(t *testing.T) {
	ctx := context.Background()
	f := newTestForest(t, testForestConfig())
	offsets := []float64{-0.4, -0.2, 0, 0.1, 0.3, 0.5}
	trainOn(t, f, clusteredExamples("floor", example.Descriptor{0, 0}, offsets))

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		w := w
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				if w%2 == 0 {
					label := "floor"
					if i%2 == 0 {
						label = "wall"
					}
					assert.NoError(t, f.AddExample(ctx, example.Descriptor{float64(i), float64(w)}, label))
				} else {
					_, _, err := f.Predict(ctx, example.Descriptor{float64(i), float64(w)})
					assert.NoError(t, err)
				}
			}
		}()
	}
	wg.Wait()
	require.NoError(t, f.Train(ctx, 4, 5*time.Millisecond))
}
