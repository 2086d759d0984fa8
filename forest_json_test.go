package rafl

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/C8PAN/rafl/example"
	"github.com/C8PAN/rafl/queue"
)

func TestForestJSONRoundtrip(t *testing.T) {
	ctx := context.Background()
	f := newTestForest(t, testForestConfig())
	offsets := []float64{-0.4, -0.2, 0, 0.1, 0.3, 0.5, -0.1, 0.2, -0.3, 0.4}
	examples := append(
		clusteredExamples("floor", example.Descriptor{0, 0}, offsets),
		clusteredExamples("wall", example.Descriptor{10, 10}, offsets)...,
	)
	trainOn(t, f, examples)

	var buf bytes.Buffer
	require.NoError(t, f.WriteJSON(ctx, &buf))

	restored, err := ReadJSONForest[string](ctx, &buf, queue.New())
	require.NoError(t, err)
	assert.Equal(t, f.Size(), restored.Size())
	assert.Equal(t, f.Config(), restored.Config())

	for _, d := range []example.Descriptor{{0.1, 0.1}, {10, 10}, {5, 5}} {
		originalLabel, originalMasses, err := f.Predict(ctx, d)
		require.NoError(t, err)
		restoredLabel, restoredMasses, err := restored.Predict(ctx, d)
		require.NoError(t, err)
		assert.Equal(t, originalLabel, restoredLabel)
		assert.Equal(t, originalMasses, restoredMasses)
	}

	// A restored forest keeps training.
	require.NoError(t, restored.AddExample(ctx, example.Descriptor{0.15, -0.15}, "floor"))
	require.NoError(t, restored.Train(ctx, 2, 5*time.Millisecond))
}

func TestReadJSONForestRejectsMalformedInput(t *testing.T) {
	ctx := context.Background()

	_, err := ReadJSONForest[string](ctx, bytes.NewReader([]byte(`not json`)), queue.New())
	assert.Error(t, err)

	// Tree count disagreeing with the config is rejected.
	_, err = ReadJSONForest[string](ctx, bytes.NewReader([]byte(
		`{"config":{"trees":2,"reservoirCapacity":10,"maxDepth":3,"splitCandidates":4,"minExamplesForSplit":5,"minInformationGain":0},"trees":[]}`,
	)), queue.New())
	assert.Error(t, err)
}
