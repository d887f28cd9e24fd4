package referral

import (
	"time"

	"github.com/pkg/errors"
)

var (
	// errors
	ErrNodeNotFound = errors.New("node not found in referral tree")

	nowFunc = time.Now // mockable
)

type nodeRef struct {
	depth    int
	children int
}

// Snapshot is one load of a referral tree: the tree itself, its stats, and the
// expansion state of its nodes. Reloading a tree produces a new Snapshot.
// A Snapshot is not safe for concurrent use.
type Snapshot struct {
	Root     *Node
	Stats    Stats
	Depth    int // generations requested from the API
	LoadedAt time.Time

	index     map[int]nodeRef
	expansion Expansion
}

// NewSnapshot computes the stats & node index of root. root may be nil (no data).
func NewSnapshot(root *Node, depth int) (*Snapshot, error) {
	stats, err := ComputeStats(root)
	if err != nil {
		return nil, err
	}

	index := make(map[int]nodeRef, stats.TotalMembers)
	if err := walk(root, func(v visit) {
		index[v.node.ID] = nodeRef{depth: v.depth, children: len(v.node.Children)}
	}); err != nil {
		return nil, err
	}

	return &Snapshot{
		Root:      root,
		Stats:     stats,
		Depth:     depth,
		LoadedAt:  nowFunc().UTC(),
		index:     index,
		expansion: NewExpansion(),
	}, nil
}

// Empty reports that the API returned no tree.
func (s *Snapshot) Empty() bool { return s.Root == nil }

// View renders the visible part of the tree. Empty snapshots render to nil.
func (s *Snapshot) View() *ViewNode { return Render(s.Root, s.expansion) }

func (s *Snapshot) IsExpanded(id int) (bool, error) {
	ref, ok := s.index[id]
	if !ok {
		return false, ErrNodeNotFound
	}
	if ref.children == 0 {
		return DefaultExpanded(ref.depth), nil
	}
	return s.expansion.IsExpanded(id, ref.depth), nil
}

// Toggle flips the expansion of a node and returns its new state.
// Leaves cannot be toggled: they keep their default state.
// Stats are left untouched, they only change with a reload.
func (s *Snapshot) Toggle(id int) (bool, error) {
	ref, ok := s.index[id]
	if !ok {
		return false, ErrNodeNotFound
	}
	if ref.children == 0 {
		return DefaultExpanded(ref.depth), nil
	}
	return s.expansion.Toggle(id, ref.depth), nil
}

// ExpandAll expands every node having children.
func (s *Snapshot) ExpandAll() {
	for id, ref := range s.index {
		if ref.children > 0 {
			s.expansion[id] = true
		}
	}
}
