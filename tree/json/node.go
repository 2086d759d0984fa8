package json

import (
	"cmp"
	"encoding/json"
	"fmt"

	"github.com/C8PAN/rafl/example"
	"github.com/C8PAN/rafl/tree"
)

/*
NodeEncodeDecoder is an interface for objects that allow encoding
nodes into slices of bytes and decoding them back to nodes.
*/
type NodeEncodeDecoder[L cmp.Ordered] interface {

	// Encode receives a *tree.Node and returns a slice of bytes
	// with the node encoded or an error if the encoding could not
	// be performed for some reason.
	Encode(*tree.Node[L]) ([]byte, error)

	// Decode receives a slice of bytes and returns a *tree.Node
	// decoded from it or an error if the decoding could not be
	// performed for some reason.
	Decode([]byte) (*tree.Node[L], error)
}

type nodeEncodeDecoder[L cmp.Ordered] struct {
	t *tree.Tree[L]
}

type node[L cmp.Ordered] struct {
	ID        string              `json:"id"`
	ParentID  string              `json:"pId,omitempty"`
	LeftID    string              `json:"lId,omitempty"`
	RightID   string              `json:"rId,omitempty"`
	Depth     int                 `json:"d,omitempty"`
	Split     *tree.SplitFunction `json:"split,omitempty"`
	Reservoir *jsonReservoir[L]   `json:"res,omitempty"`
}

type jsonReservoir[L cmp.Ordered] struct {
	Seen     int              `json:"seen"`
	Examples []jsonExample[L] `json:"examples"`
}

type jsonExample[L cmp.Ordered] struct {
	Descriptor example.Descriptor `json:"d"`
	Label      L                  `json:"l"`
}

/*
NewNodeEncodeDecoder returns a NodeEncodeDecoder for nodes of the
given tree, which provides the reservoir capacity and random sources
for decoded leaves.
*/
func NewNodeEncodeDecoder[L cmp.Ordered](t *tree.Tree[L]) NodeEncodeDecoder[L] {
	return &nodeEncodeDecoder[L]{t}
}

func (ned *nodeEncodeDecoder[L]) Encode(n *tree.Node[L]) ([]byte, error) {
	jn := &node[L]{
		ID:       n.ID,
		ParentID: n.ParentID,
		LeftID:   n.LeftID,
		RightID:  n.RightID,
		Depth:    n.Depth,
		Split:    n.Split,
	}
	if n.Reservoir != nil {
		jr := &jsonReservoir[L]{Seen: n.Reservoir.Seen()}
		for _, e := range n.Reservoir.Examples() {
			jr.Examples = append(jr.Examples, jsonExample[L]{Descriptor: e.Descriptor(), Label: e.Label()})
		}
		jn.Reservoir = jr
	}
	return json.Marshal(jn)
}

func (ned *nodeEncodeDecoder[L]) Decode(data []byte) (*tree.Node[L], error) {
	jn := &node[L]{}
	if err := json.Unmarshal(data, jn); err != nil {
		return nil, err
	}
	n := &tree.Node[L]{
		ID:       jn.ID,
		ParentID: jn.ParentID,
		LeftID:   jn.LeftID,
		RightID:  jn.RightID,
		Depth:    jn.Depth,
		Split:    jn.Split,
	}
	if jn.Split == nil {
		reservoir, err := ned.t.NewLeafReservoir()
		if err != nil {
			return nil, fmt.Errorf("unmarshalling node %v: %v", jn.ID, err)
		}
		var examples []*example.Example[L]
		var labels []L
		if jn.Reservoir != nil {
			for _, je := range jn.Reservoir.Examples {
				examples = append(examples, example.New(je.Descriptor, je.Label))
				labels = append(labels, je.Label)
			}
			if err := reservoir.Restore(examples, jn.Reservoir.Seen); err != nil {
				return nil, fmt.Errorf("unmarshalling node %v: %v", jn.ID, err)
			}
		}
		n.Reservoir = reservoir
		ned.t.RecordLabels(labels)
	}
	return n, nil
}
