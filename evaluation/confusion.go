/*
Package evaluation provides the offline evaluation harness for
forests: k-fold cross-validation, confusion matrices and the scalar
metrics derived from them.
*/
package evaluation

import (
	"cmp"
	"fmt"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

/*
ConfusionMatrix accumulates (actual label, predicted label) counts
for a classifier under evaluation. Once an evaluation has finished
the matrix is only read.
*/
type ConfusionMatrix[L cmp.Ordered] struct {
	cells  map[L]map[L]int
	labels map[L]struct{}
	total  int
}

/*
NewConfusionMatrix returns an empty confusion matrix.
*/
func NewConfusionMatrix[L cmp.Ordered]() *ConfusionMatrix[L] {
	return &ConfusionMatrix[L]{
		cells:  make(map[L]map[L]int),
		labels: make(map[L]struct{}),
	}
}

/*
Add records one classification outcome: the actual label of an
example and the label predicted for it.
*/
func (cm *ConfusionMatrix[L]) Add(actual, predicted L) {
	row := cm.cells[actual]
	if row == nil {
		row = make(map[L]int)
		cm.cells[actual] = row
	}
	row[predicted]++
	cm.labels[actual] = struct{}{}
	cm.labels[predicted] = struct{}{}
	cm.total++
}

/*
Count returns the number of examples with the given actual label
that were classified with the given predicted label.
*/
func (cm *ConfusionMatrix[L]) Count(actual, predicted L) int {
	return cm.cells[actual][predicted]
}

/*
Total returns the number of outcomes recorded on the matrix.
*/
func (cm *ConfusionMatrix[L]) Total() int {
	return cm.total
}

/*
Labels returns every label appearing on the matrix, as actual or as
predicted, in ascending order.
*/
func (cm *ConfusionMatrix[L]) Labels() []L {
	labels := make([]L, 0, len(cm.labels))
	for label := range cm.labels {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })
	return labels
}

/*
Accuracy returns the fraction of recorded outcomes whose predicted
label matched the actual one: the trace of the matrix over its
total. It returns 0 for an empty matrix.
*/
func (cm *ConfusionMatrix[L]) Accuracy() float64 {
	if cm.total == 0 {
		return 0
	}
	var trace int
	for label := range cm.labels {
		trace += cm.Count(label, label)
	}
	return float64(trace) / float64(cm.total)
}

/*
Precision returns the fraction of examples predicted with the given
label whose actual label matched it, and whether any example was
predicted with the label at all.
*/
func (cm *ConfusionMatrix[L]) Precision(label L) (float64, bool) {
	var predicted int
	for actual := range cm.labels {
		predicted += cm.Count(actual, label)
	}
	if predicted == 0 {
		return 0, false
	}
	return float64(cm.Count(label, label)) / float64(predicted), true
}

/*
Recall returns the fraction of examples with the given actual label
that were predicted with it, and whether any example with the label
was evaluated at all.
*/
func (cm *ConfusionMatrix[L]) Recall(label L) (float64, bool) {
	var actual int
	for predicted := range cm.labels {
		actual += cm.Count(label, predicted)
	}
	if actual == 0 {
		return 0, false
	}
	return float64(cm.Count(label, label)) / float64(actual), true
}

/*
Merge adds every outcome recorded on the given matrix to the
receiver.
*/
func (cm *ConfusionMatrix[L]) Merge(other *ConfusionMatrix[L]) {
	for actual, row := range other.cells {
		for predicted, count := range row {
			for i := 0; i < count; i++ {
				cm.Add(actual, predicted)
			}
		}
	}
}

/*
Render returns a deterministic textual rendering of the matrix:
one row per actual label and one column per predicted label, both
in ascending label order.
*/
func (cm *ConfusionMatrix[L]) Render() string {
	labels := cm.Labels()
	t := table.NewWriter()
	header := table.Row{"actual \\ predicted"}
	for _, label := range labels {
		header = append(header, fmt.Sprintf("%v", label))
	}
	t.AppendHeader(header)
	for _, actual := range labels {
		row := table.Row{fmt.Sprintf("%v", actual)}
		for _, predicted := range labels {
			row = append(row, cm.Count(actual, predicted))
		}
		t.AppendRow(row)
	}
	return t.Render()
}

func (cm *ConfusionMatrix[L]) String() string {
	var sb strings.Builder
	for i, actual := range cm.Labels() {
		if i > 0 {
			sb.WriteString(" ")
		}
		fmt.Fprintf(&sb, "%v:%v", actual, cm.cells[actual])
	}
	return sb.String()
}
