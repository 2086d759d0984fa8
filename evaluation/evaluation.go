package evaluation

import (
	"cmp"
	"context"
	"fmt"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/C8PAN/rafl"
	"github.com/C8PAN/rafl/example"
)

/*
ForestFactory creates a fresh, untrained forest for one
cross-validation fold. Each fold trains its own forest so that no
fold sees its held-out examples during training.
*/
type ForestFactory[L cmp.Ordered] func(ctx context.Context) (*rafl.Forest[L], error)

/*
Result is the outcome of a cross-validation run: the confusion
matrix merged across all folds and the per-fold accuracies.
*/
type Result[L cmp.Ordered] struct {
	Matrix         *ConfusionMatrix[L]
	FoldAccuracies []float64
}

/*
Accuracy returns the overall accuracy across all folds.
*/
func (r *Result[L]) Accuracy() float64 {
	return r.Matrix.Accuracy()
}

/*
MeanAccuracy returns the mean and the standard deviation of the
per-fold accuracies.
*/
func (r *Result[L]) MeanAccuracy() (mean, stdDev float64) {
	mean = stat.Mean(r.FoldAccuracies, nil)
	if len(r.FoldAccuracies) < 2 {
		return mean, 0
	}
	return mean, stat.StdDev(r.FoldAccuracies, nil)
}

/*
CrossValidate takes a context, a slice of labelled examples, a fold
count and a forest factory, and runs k-fold cross-validation: the
examples are partitioned into foldCount contiguous folds whose sizes
differ by at most one, and for each fold a fresh forest is trained
on the remaining examples in their stored order and then evaluated
on the held-out fold. Every example is evaluated exactly once
across folds.

An error is returned if foldCount is smaller than 2, if there are
fewer examples than folds, or if creating, training or querying a
forest fails.
*/
func CrossValidate[L cmp.Ordered](ctx context.Context, examples []*example.Example[L], foldCount int, factory ForestFactory[L]) (*Result[L], error) {
	if foldCount < 2 {
		return nil, fmt.Errorf("cross-validating: fold count must be at least 2, got %d", foldCount)
	}
	if len(examples) < foldCount {
		return nil, fmt.Errorf("cross-validating: %d examples cannot fill %d folds", len(examples), foldCount)
	}
	result := &Result[L]{
		Matrix:         NewConfusionMatrix[L](),
		FoldAccuracies: make([]float64, 0, foldCount),
	}
	bounds := foldBounds(len(examples), foldCount)
	for k := 0; k < foldCount; k++ {
		lo, hi := bounds[k], bounds[k+1]
		foldMatrix, err := evaluateFold(ctx, examples, lo, hi, factory)
		if err != nil {
			return nil, fmt.Errorf("cross-validating fold %d: %v", k, err)
		}
		result.Matrix.Merge(foldMatrix)
		result.FoldAccuracies = append(result.FoldAccuracies, foldMatrix.Accuracy())
	}
	return result, nil
}

func evaluateFold[L cmp.Ordered](ctx context.Context, examples []*example.Example[L], lo, hi int, factory ForestFactory[L]) (*ConfusionMatrix[L], error) {
	f, err := factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating forest: %v", err)
	}
	for i, e := range examples {
		if i >= lo && i < hi {
			continue
		}
		if err := f.AddExample(ctx, e.Descriptor(), e.Label()); err != nil {
			return nil, fmt.Errorf("training forest: %v", err)
		}
	}
	if err := f.Work(ctx, 10*time.Millisecond); err != nil {
		return nil, fmt.Errorf("training forest: %v", err)
	}
	matrix := NewConfusionMatrix[L]()
	for _, e := range examples[lo:hi] {
		predicted, _, err := f.Predict(ctx, e.Descriptor())
		if err != nil {
			return nil, fmt.Errorf("evaluating forest: %v", err)
		}
		matrix.Add(e.Label(), predicted)
	}
	return matrix, nil
}

/*
foldBounds returns foldCount+1 offsets partitioning n examples into
contiguous folds whose sizes differ by at most one, the larger folds
first.
*/
func foldBounds(n, foldCount int) []int {
	bounds := make([]int, foldCount+1)
	size, extra := n/foldCount, n%foldCount
	for k := 0; k < foldCount; k++ {
		bounds[k+1] = bounds[k] + size
		if k < extra {
			bounds[k+1]++
		}
	}
	return bounds
}
