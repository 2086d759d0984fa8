package tree

import (
	"fmt"

	"github.com/C8PAN/rafl/example"
)

/*
SplitFunction is the binary decision predicate installed on an
internal node: descriptors whose component at FeatureIndex is below
Threshold are routed to the left child, the rest to the right child.
A split function is immutable once installed.
*/
type SplitFunction struct {
	FeatureIndex int     `json:"f"`
	Threshold    float64 `json:"t"`
}

/*
RoutesLeft takes a descriptor and returns whether the split function
sends it to the left child.
*/
func (sf *SplitFunction) RoutesLeft(d example.Descriptor) bool {
	return d[sf.FeatureIndex] < sf.Threshold
}

func (sf *SplitFunction) String() string {
	return fmt.Sprintf("feature[%d] < %g", sf.FeatureIndex, sf.Threshold)
}
