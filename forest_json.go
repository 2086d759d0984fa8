package rafl

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/C8PAN/rafl/queue"
	treejson "github.com/C8PAN/rafl/tree/json"
)

/*
WriteJSON serializes the forest as JSON onto the given io.Writer: a
JSON object with a "config" field holding the forest config and a
"trees" field holding an array with each tree serialized as by
tree/json.WriteJSONTree. An error is returned if a tree cannot be
traversed, serialized or written.
*/
func (f *Forest[L]) WriteJSON(ctx context.Context, w io.Writer) error {
	jcfg, err := json.Marshal(&f.cfg)
	if err != nil {
		return fmt.Errorf("serializing forest config: %v", err)
	}
	if _, err := fmt.Fprintf(w, `{"config":%s,"trees":[`, jcfg); err != nil {
		return err
	}
	for i, t := range f.trees {
		if i != 0 {
			if _, err := w.Write([]byte(",")); err != nil {
				return err
			}
		}
		if err := treejson.WriteJSONTree(ctx, t, treejson.NewNodeEncodeDecoder(t), w); err != nil {
			return fmt.Errorf("serializing tree %s: %v", t.ID, err)
		}
	}
	_, err = w.Write([]byte(`]}`))
	return err
}

/*
ReadJSONForest takes a context, an io.Reader with a forest
serialized as by WriteJSON and a queue for split-evaluation tasks,
and returns the deserialized forest ready to keep training and
predicting, or an error if the JSON cannot be read or does not
describe a usable forest.
*/
func ReadJSONForest[L cmp.Ordered](ctx context.Context, r io.Reader, q queue.Queue) (*Forest[L], error) {
	jf := &struct {
		Config ForestConfig      `json:"config"`
		Trees  []json.RawMessage `json:"trees"`
	}{}
	if err := json.NewDecoder(r).Decode(jf); err != nil {
		return nil, fmt.Errorf("parsing forest JSON: %v", err)
	}
	if len(jf.Trees) != jf.Config.Trees {
		return nil, fmt.Errorf("parsing forest JSON: config declares %d trees, %d found", jf.Config.Trees, len(jf.Trees))
	}
	f, err := New[L](ctx, jf.Config, q)
	if err != nil {
		return nil, fmt.Errorf("parsing forest JSON: %v", err)
	}
	for i, rawTree := range jf.Trees {
		t := f.trees[i]
		if err := treejson.ReadJSONTree(ctx, t, treejson.NewNodeEncodeDecoder(t), bytes.NewReader(rawTree)); err != nil {
			return nil, fmt.Errorf("parsing tree %d from forest JSON: %v", i, err)
		}
	}
	return f, nil
}
