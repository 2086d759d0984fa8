/*
Package json provides a JSON codec for split-evaluation tasks, used
to store them on queue backends that hold task data out of process,
such as redis.
*/
package json

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/C8PAN/rafl/queue"
)

/*
TaskEncodeDecoder is an interface for objects that allow encoding
tasks as slices of bytes and decoding them back to tasks.
*/
type TaskEncodeDecoder interface {

	// Encode receives a *queue.Task and returns a slice of bytes
	// with the task encoded or an error if the encoding could not
	// be performed for some reason.
	Encode(context.Context, *queue.Task) ([]byte, error)

	// Decode receives a slice of bytes and returns a *queue.Task
	// decoded from it or an error if the decoding could not be
	// performed for some reason.
	Decode(context.Context, []byte) (*queue.Task, error)
}

type jsonEncodeDecoder struct{}

type jsonTask struct {
	TreeID string `json:"tree"`
	NodeID string `json:"node"`
}

// New returns a TaskEncodeDecoder that serializes tasks as JSON
// objects with the tree and node IDs.
func New() TaskEncodeDecoder {
	return &jsonEncodeDecoder{}
}

func (jed *jsonEncodeDecoder) Encode(ctx context.Context, t *queue.Task) ([]byte, error) {
	return json.Marshal(&jsonTask{TreeID: t.TreeID, NodeID: t.NodeID})
}

func (jed *jsonEncodeDecoder) Decode(ctx context.Context, data []byte) (*queue.Task, error) {
	jt := &jsonTask{}
	if err := json.Unmarshal(data, jt); err != nil {
		return nil, fmt.Errorf("decoding task from json: %v", err)
	}
	if jt.TreeID == "" || jt.NodeID == "" {
		return nil, fmt.Errorf("decoding task from json: missing tree or node ID")
	}
	return &queue.Task{TreeID: jt.TreeID, NodeID: jt.NodeID}, nil
}
