/*
Package json provides methods to serialize growing trees as JSON
and parse them back, preserving their online-training state: the
split functions of internal nodes and the example reservoirs of
leaves.
*/
package json

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/C8PAN/rafl/tree"
)

/*
WriteJSONTree takes a context.Context, a pointer to a tree.Tree, a
NodeEncodeDecoder and an io.Writer and serializes the given tree as
JSON onto the io.Writer.
A tree is serialized as a JSON object with the following fields:
  - "rootID": a string with the ID of the node at the root of the tree
  - "id": a string with the ID of the tree itself
  - "nodes": an array containing the nodes that can be traversed on
    the tree, serialized by the given NodeEncodeDecoder.

An error is returned if the tree cannot be traversed, serialized or
written onto the io.Writer.
*/
func WriteJSONTree[L cmp.Ordered](ctx context.Context, t *tree.Tree[L], ned NodeEncodeDecoder[L], w io.Writer) error {
	if err := marshalJSONTreeHeader(t, w); err != nil {
		return err
	}
	var i int
	err := t.Traverse(ctx, false, func(ctx context.Context, n *tree.Node[L]) error {
		err := writeNode(i, n, ned, w)
		i++
		return err
	})
	if err != nil {
		return err
	}
	_, err = w.Write([]byte(`]}`))
	return err
}

/*
ReadJSONTree takes a context.Context, a pointer to a tree.Tree, a
NodeEncodeDecoder and an io.Reader and unmarshals the contents of
the io.Reader onto the given tree, which is expected to have been
created with the config and node store the persisted tree should
live on. An error is returned if the JSON cannot be read from the
io.Reader or unmarshalled onto the tree.
*/
func ReadJSONTree[L cmp.Ordered](ctx context.Context, t *tree.Tree[L], ned NodeEncodeDecoder[L], r io.Reader) error {
	dec := json.NewDecoder(r)
	jt := &struct {
		RootID string             `json:"rootID"`
		ID     string             `json:"id"`
		Nodes  []*json.RawMessage `json:"nodes"`
	}{}
	if err := dec.Decode(jt); err != nil {
		return err
	}
	if jt.RootID == "" {
		return fmt.Errorf("no root node id available")
	}
	oldRootID := t.RootID
	t.RootID = jt.RootID
	if jt.ID != "" {
		t.ID = jt.ID
	}
	for _, jn := range jt.Nodes {
		n, err := ned.Decode(*jn)
		if err != nil {
			return err
		}
		if err := t.NodeStore.Store(ctx, n); err != nil {
			return err
		}
	}
	if oldRootID != "" && oldRootID != jt.RootID {
		// the empty root created with the tree is replaced by the
		// persisted one
		if old, err := t.NodeStore.Get(ctx, oldRootID); err == nil && old != nil {
			if err := t.NodeStore.Delete(ctx, old); err != nil {
				return err
			}
		}
	}
	return nil
}

func marshalJSONTreeHeader[L cmp.Ordered](t *tree.Tree[L], w io.Writer) error {
	jrootID, err := json.Marshal(t.RootID)
	if err != nil {
		return err
	}
	jID, err := json.Marshal(t.ID)
	if err != nil {
		return err
	}
	header := fmt.Sprintf(`{"rootID":%s,"id":%s,"nodes":[`, jrootID, jID)
	_, err = w.Write([]byte(header))
	return err
}

func writeNode[L cmp.Ordered](i int, n *tree.Node[L], ned NodeEncodeDecoder[L], w io.Writer) error {
	if i != 0 {
		if _, err := w.Write([]byte(",")); err != nil {
			return err
		}
	}
	jn, err := ned.Encode(n)
	if err != nil {
		return err
	}
	_, err = w.Write(jn)
	return err
}
