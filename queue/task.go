package queue

import "fmt"

/*
Task represents a leaf due for a split evaluation: the ID of the
tree the leaf belongs to and the ID of the leaf node itself.
*/
type Task struct {
	// The ID of the tree owning the node
	TreeID string
	// The ID of the leaf node to evaluate
	NodeID string
}

/*
ID returns a string that identifies the task, the ID of its node.
Node IDs are unique across the trees of a forest.
*/
func (t *Task) ID() string {
	return t.NodeID
}

func (t *Task) String() string {
	return fmt.Sprintf("{Task %s/%s}", t.TreeID, t.NodeID)
}
