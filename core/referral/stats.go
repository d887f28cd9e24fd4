package referral

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrCycleDetected is matched by every *CycleDetectedError.
var ErrCycleDetected = errors.New("cycle detected in referral tree")

// CycleDetectedError reports a node ID reached twice while walking a tree.
type CycleDetectedError struct {
	ID int
}

func (err *CycleDetectedError) Error() string {
	return fmt.Sprintf("cycle detected in referral tree: node %d reached twice", err.ID)
}

func (err *CycleDetectedError) Is(target error) bool { return target == ErrCycleDetected }

// visit is a node reached during a walk, with its depth from the root (root = 0).
type visit struct {
	node  *Node
	depth int
}

// walk visits every node of the tree once, in pre-order, without recursion.
// It fails with a *CycleDetectedError when a node ID shows up twice.
func walk(root *Node, fn func(v visit)) error {
	if root == nil {
		return nil
	}
	seen := map[int]struct{}{root.ID: {}}
	stack := []visit{{node: root}}
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		fn(v)

		// push in reverse to pop children in order
		for i := len(v.node.Children) - 1; i >= 0; i-- {
			child := v.node.Children[i]
			if child == nil {
				continue
			}
			if _, ok := seen[child.ID]; ok {
				return &CycleDetectedError{ID: child.ID}
			}
			seen[child.ID] = struct{}{}
			stack = append(stack, visit{node: child, depth: v.depth + 1})
		}
	}
	return nil
}

// ComputeStats counts every member of the tree (root included) and finds the highest level.
// A nil root means "no data" and yields zero Stats.
func ComputeStats(root *Node) (Stats, error) {
	if root == nil {
		return Stats{}, nil
	}
	stats := Stats{MaxLevel: root.Level}
	err := walk(root, func(v visit) {
		stats.TotalMembers++
		if v.node.Level > stats.MaxLevel {
			stats.MaxLevel = v.node.Level
		}
	})
	if err != nil {
		return Stats{}, err
	}
	return stats, nil
}
