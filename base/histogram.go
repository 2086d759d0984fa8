/*
Package base provides the per-label counting and probability
primitives on which split evaluation and prediction are built:
histograms of label occurrences and the probability mass functions
derived from them.
*/
package base

import (
	"cmp"
	"sort"
)

/*
Histogram accumulates per-label example counts over a label
alphabet that is open: labels not seen before get a bin on
their first Add.
*/
type Histogram[L cmp.Ordered] struct {
	bins  map[L]int
	count int
}

/*
NewHistogram returns an empty histogram.
*/
func NewHistogram[L cmp.Ordered]() *Histogram[L] {
	return &Histogram[L]{bins: make(map[L]int)}
}

/*
Add increments the count for the given label by 1, creating
its bin if the label has not been seen before.
*/
func (h *Histogram[L]) Add(label L) {
	h.bins[label]++
	h.count++
}

/*
Count returns the number of times the given label has been
added to the histogram, 0 if it has never been added.
*/
func (h *Histogram[L]) Count(label L) int {
	return h.bins[label]
}

/*
Total returns the number of additions to the histogram, that
is, the sum of the counts of all its bins.
*/
func (h *Histogram[L]) Total() int {
	return h.count
}

/*
Labels returns the labels with a bin on the histogram in
ascending order.
*/
func (h *Histogram[L]) Labels() []L {
	labels := make([]L, 0, len(h.bins))
	for label := range h.bins {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })
	return labels
}
