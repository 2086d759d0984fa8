package base

import (
	"cmp"
	"fmt"
	"math"
	"sort"
	"strings"
)

/*
smallEpsilon is the smallest empirical mass a label may take on a
probability mass function. The entropy calculations the engine relies
on degrade once masses collapse towards zero, so instead of letting an
unexplained numeric artifact propagate, NewProbabilityMassFunction
rejects the histogram and names the offending label.
*/
const smallEpsilon = 1e-9

// stringMassLimit caps how many label masses String renders.
const stringMassLimit = 3

/*
ProbabilityMassFunction represents a probability distribution over a
label alphabet, usually obtained by normalising a Histogram. Masses
sum to 1.0 within floating tolerance and every mass is strictly
positive.
*/
type ProbabilityMassFunction[L cmp.Ordered] struct {
	masses map[L]float64
}

/*
NewProbabilityMassFunction takes a histogram and returns the
probability mass function obtained by dividing each of its bins by
its total count. It returns an error if the histogram is empty or if
any resulting mass falls below the representable epsilon.
*/
func NewProbabilityMassFunction[L cmp.Ordered](h *Histogram[L]) (*ProbabilityMassFunction[L], error) {
	total := h.Total()
	if total == 0 {
		return nil, fmt.Errorf("building PMF: histogram is empty")
	}
	masses := make(map[L]float64)
	for _, label := range h.Labels() {
		mass := float64(h.Count(label)) / float64(total)
		if mass < smallEpsilon {
			return nil, fmt.Errorf("building PMF: mass for label %v fell below %g", label, smallEpsilon)
		}
		masses[label] = mass
	}
	return &ProbabilityMassFunction[L]{masses}, nil
}

/*
NewUniformProbabilityMassFunction takes a slice of labels and returns
a probability mass function that assigns every one of them the same
mass. It returns an error if the slice is empty. It is the fallback
distribution served for leaves that hold no examples yet.
*/
func NewUniformProbabilityMassFunction[L cmp.Ordered](labels []L) (*ProbabilityMassFunction[L], error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("building uniform PMF: no labels")
	}
	masses := make(map[L]float64)
	for _, label := range labels {
		masses[label] = 1.0 / float64(len(labels))
	}
	return &ProbabilityMassFunction[L]{masses}, nil
}

/*
AverageProbabilityMassFunctions takes a slice of PMFs and returns the
PMF that assigns each label the average of its masses across the
given PMFs. Labels missing from a PMF count as mass 0 on it. An error
is returned if the slice is empty.
*/
func AverageProbabilityMassFunctions[L cmp.Ordered](pmfs []*ProbabilityMassFunction[L]) (*ProbabilityMassFunction[L], error) {
	if len(pmfs) == 0 {
		return nil, fmt.Errorf("averaging PMFs: nothing to average")
	}
	masses := make(map[L]float64)
	for _, pmf := range pmfs {
		for label, mass := range pmf.masses {
			masses[label] += mass / float64(len(pmfs))
		}
	}
	return &ProbabilityMassFunction[L]{masses}, nil
}

/*
Mass returns the mass the PMF assigns to the given label, 0 if the
label is not part of its alphabet.
*/
func (pmf *ProbabilityMassFunction[L]) Mass(label L) float64 {
	return pmf.masses[label]
}

/*
Masses returns a copy of the map of labels to their masses.
*/
func (pmf *ProbabilityMassFunction[L]) Masses() map[L]float64 {
	masses := make(map[L]float64, len(pmf.masses))
	for label, mass := range pmf.masses {
		masses[label] = mass
	}
	return masses
}

/*
Labels returns the labels with non-zero mass in ascending order.
*/
func (pmf *ProbabilityMassFunction[L]) Labels() []L {
	labels := make([]L, 0, len(pmf.masses))
	for label := range pmf.masses {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })
	return labels
}

/*
Entropy returns the entropy of the PMF in bits, using the definition
H = -sum p*log2(p). Terms with mass 0 contribute 0, following the
limit of p*log2(p) as p approaches 0. The result is 0 exactly when a
single label holds all the mass, and log2(N) for a uniform PMF over
N labels.
*/
func (pmf *ProbabilityMassFunction[L]) Entropy() float64 {
	var entropy float64
	for _, mass := range pmf.masses {
		if mass > 0 {
			entropy += mass * math.Log2(mass)
		}
	}
	if entropy == 0 {
		return 0
	}
	return -entropy
}

/*
Best returns the label with the greatest mass and that mass. Ties are
broken deterministically in favour of the lowest label.
*/
func (pmf *ProbabilityMassFunction[L]) Best() (L, float64) {
	var best L
	var bestMass float64
	for _, label := range pmf.Labels() {
		if mass := pmf.masses[label]; mass > bestMass {
			best = label
			bestMass = mass
		}
	}
	return best, bestMass
}

func (pmf *ProbabilityMassFunction[L]) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, label := range pmf.Labels() {
		if i == stringMassLimit {
			sb.WriteString(" ...")
			break
		}
		if i > 0 {
			sb.WriteString(" ")
		}
		fmt.Fprintf(&sb, "%v:%.3f", label, pmf.masses[label])
	}
	sb.WriteString("]")
	return sb.String()
}
