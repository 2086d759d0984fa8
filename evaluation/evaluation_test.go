package evaluation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/C8PAN/rafl"
	"github.com/C8PAN/rafl/example"
	"github.com/C8PAN/rafl/queue"
)

func testFactory() ForestFactory[string] {
	return func(ctx context.Context) (*rafl.Forest[string], error) {
		return rafl.New[string](ctx, rafl.ForestConfig{
			Trees:               3,
			ReservoirCapacity:   100,
			MaxDepth:            5,
			SplitCandidates:     16,
			MinExamplesForSplit: 4,
			MinInformationGain:  0,
			Seed:                7,
		}, queue.New())
	}
}

func clusteredExamples(count int) []*example.Example[string] {
	examples := make([]*example.Example[string], 0, 2*count)
	for i := 0; i < count; i++ {
		offset := float64(i%5)/10 - 0.2
		examples = append(examples,
			example.New(example.Descriptor{offset, -offset}, "floor"),
			example.New(example.Descriptor{10 + offset, 10 - offset}, "wall"),
		)
	}
	return examples
}

func TestFoldBounds(t *testing.T) {
	assert.Equal(t, []int{0, 4, 7, 10}, foldBounds(10, 3))
	assert.Equal(t, []int{0, 5, 10}, foldBounds(10, 2))
	assert.Equal(t, []int{0, 1, 2, 3}, foldBounds(3, 3))

	// Fold sizes differ by at most one.
	bounds := foldBounds(23, 5)
	minSize, maxSize := 23, 0
	for k := 0; k < 5; k++ {
		size := bounds[k+1] - bounds[k]
		if size < minSize {
			minSize = size
		}
		if size > maxSize {
			maxSize = size
		}
	}
	assert.LessOrEqual(t, maxSize-minSize, 1)
	assert.Equal(t, 23, bounds[5])
}

func TestCrossValidateEvaluatesEveryExampleOnce(t *testing.T) {
	examples := clusteredExamples(5)
	result, err := CrossValidate(context.Background(), examples, 2, testFactory())
	require.NoError(t, err)
	assert.Equal(t, len(examples), result.Matrix.Total())
	assert.Len(t, result.FoldAccuracies, 2)
}

func TestCrossValidateSeparableClusters(t *testing.T) {
	examples := clusteredExamples(10)
	result, err := CrossValidate(context.Background(), examples, 4, testFactory())
	require.NoError(t, err)

	assert.Greater(t, result.Accuracy(), 0.9)
	mean, stdDev := result.MeanAccuracy()
	assert.Greater(t, mean, 0.9)
	assert.GreaterOrEqual(t, stdDev, 0.0)
}

func TestCrossValidateRejectsBadArguments(t *testing.T) {
	examples := clusteredExamples(5)

	_, err := CrossValidate(context.Background(), examples, 1, testFactory())
	assert.Error(t, err)

	_, err = CrossValidate(context.Background(), examples[:2], 3, testFactory())
	assert.Error(t, err)
}
