/*
Package example defines the labelled feature descriptors the engine
learns from and the bounded reservoirs that hold them at the leaves
of a growing tree.
*/
package example

import (
	"cmp"
	"fmt"
)

/*
Descriptor is a fixed-length numeric feature vector describing one
classifiable item. All descriptors fed to the same forest must have
the same length. Descriptors are not modified once produced.
*/
type Descriptor []float64

/*
Clone returns a copy of the descriptor.
*/
func (d Descriptor) Clone() Descriptor {
	clone := make(Descriptor, len(d))
	copy(clone, d)
	return clone
}

/*
Example pairs a descriptor with the label observed for it. Examples
are immutable: they are created once by the ingestion path and only
ever evicted, never altered.
*/
type Example[L cmp.Ordered] struct {
	descriptor Descriptor
	label      L
}

/*
New takes a descriptor and a label and returns an example pairing
them.
*/
func New[L cmp.Ordered](d Descriptor, label L) *Example[L] {
	return &Example[L]{descriptor: d, label: label}
}

/*
Descriptor returns the descriptor of the example.
*/
func (e *Example[L]) Descriptor() Descriptor {
	return e.descriptor
}

/*
Label returns the label of the example.
*/
func (e *Example[L]) Label() L {
	return e.label
}

func (e *Example[L]) String() string {
	return fmt.Sprintf("{%v %v}", e.descriptor, e.label)
}
