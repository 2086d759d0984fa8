package example

import (
	"cmp"
	"fmt"
	"math/rand"

	"github.com/C8PAN/rafl/base"
)

/*
Reservoir is a bounded-size uniform random sample over an unbounded
stream of examples. The first K examples offered are kept; from then
on each newly offered example replaces a uniformly random slot with
probability K/n, n being the number of examples seen so far, so that
every example ever offered has the same probability of residing in
the sample. Memory stays at O(K) regardless of stream length.

A Reservoir is not safe for concurrent use; the tree that owns it
serialises access.
*/
type Reservoir[L cmp.Ordered] struct {
	capacity int
	seen     int
	examples []*Example[L]
	rng      *rand.Rand
}

/*
NewReservoir takes a capacity and a random source and returns an
empty reservoir with them, or an error if the capacity is not
positive.
*/
func NewReservoir[L cmp.Ordered](capacity int, rng *rand.Rand) (*Reservoir[L], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("creating reservoir: capacity must be positive, got %d", capacity)
	}
	return &Reservoir[L]{
		capacity: capacity,
		examples: make([]*Example[L], 0, capacity),
		rng:      rng,
	}, nil
}

/*
Add offers an example to the reservoir and returns whether it was
retained. When the reservoir is full the example evicts a uniformly
random resident with probability capacity/seen.
*/
func (r *Reservoir[L]) Add(e *Example[L]) bool {
	r.seen++
	if len(r.examples) < r.capacity {
		r.examples = append(r.examples, e)
		return true
	}
	slot := r.rng.Intn(r.seen)
	if slot >= r.capacity {
		return false
	}
	r.examples[slot] = e
	return true
}

/*
Examples returns a snapshot of the examples currently residing in
the reservoir.
*/
func (r *Reservoir[L]) Examples() []*Example[L] {
	snapshot := make([]*Example[L], len(r.examples))
	copy(snapshot, r.examples)
	return snapshot
}

/*
Len returns the number of examples currently residing in the
reservoir, at most its capacity.
*/
func (r *Reservoir[L]) Len() int {
	return len(r.examples)
}

/*
Seen returns the number of examples ever offered to the reservoir.
*/
func (r *Reservoir[L]) Seen() int {
	return r.seen
}

/*
Capacity returns the fixed capacity of the reservoir.
*/
func (r *Reservoir[L]) Capacity() int {
	return r.capacity
}

/*
Histogram returns the histogram of the labels of the examples
currently residing in the reservoir.
*/
func (r *Reservoir[L]) Histogram() *base.Histogram[L] {
	h := base.NewHistogram[L]()
	for _, e := range r.examples {
		h.Add(e.Label())
	}
	return h
}

/*
Restore reinstates a persisted reservoir state, discarding the
current contents: the examples that resided in the reservoir and the
number of examples it had seen. It is used when deserialising a
persisted tree.
*/
func (r *Reservoir[L]) Restore(examples []*Example[L], seen int) error {
	if len(examples) > r.capacity {
		return fmt.Errorf("restoring reservoir: %d examples exceed capacity %d", len(examples), r.capacity)
	}
	if seen < len(examples) {
		return fmt.Errorf("restoring reservoir: seen count %d below resident count %d", seen, len(examples))
	}
	r.examples = append(r.examples[:0], examples...)
	r.seen = seen
	return nil
}
