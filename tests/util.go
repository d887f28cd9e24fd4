package testutil

import (
	"context"
	"sync"
	"testing"

	"github.com/angeraphael/parrainage/core/referral"
)

// Node builds a referral tree node.
func Node(id int, first, last string, level int, children ...*referral.Node) *referral.Node {
	return &referral.Node{ID: id, FirstName: first, LastName: last, Level: level, Children: children}
}

// ScenarioTree returns the 4 members tree used across tests:
//
//	1 Awa Diop (0)
//	├── 2 Moussa Fall (1)
//	│   └── 4 Fatou Sarr (2)
//	└── 3 Ousmane Ba (1)
func ScenarioTree() *referral.Node {
	return Node(1, "Awa", "Diop", 0,
		Node(2, "Moussa", "Fall", 1,
			Node(4, "Fatou", "Sarr", 2),
		),
		Node(3, "Ousmane", "Ba", 1),
	)
}

// FakeRepository is an in-memory referral.Repository. Trees are served per token.
type FakeRepository struct {
	mu       sync.Mutex
	Trees    map[string]*referral.Node
	Info     referral.Info
	Filleuls []referral.Filleul
	Message  string
	Err      error

	// FetchTreeFunc, when set, replaces the Trees lookup.
	FetchTreeFunc func(ctx context.Context, token string, depth int) (*referral.Node, error)

	Depths []int // depths requested to FetchTree
}

var _ referral.Repository = (*FakeRepository)(nil)

func NewFakeRepository() *FakeRepository {
	return &FakeRepository{Trees: make(map[string]*referral.Node)}
}

func (r *FakeRepository) SetTree(token string, root *referral.Node) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Trees[token] = root
}

func (r *FakeRepository) FetchTree(ctx context.Context, token string, depth int) (*referral.Node, error) {
	r.mu.Lock()
	r.Depths = append(r.Depths, depth)
	fn := r.FetchTreeFunc
	root, err := r.Trees[token], r.Err
	r.mu.Unlock()

	if fn != nil {
		return fn(ctx, token, depth)
	}
	return root, err
}

func (r *FakeRepository) FetchInfo(context.Context, string) (referral.Info, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Info, r.Err
}

func (r *FakeRepository) FetchFilleuls(context.Context, string) ([]referral.Filleul, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]referral.Filleul(nil), r.Filleuls...), r.Err
}

func (r *FakeRepository) FetchShareMessage(context.Context, string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Message, r.Err
}

// LastDepth returns the depth of the last FetchTree call.
func (r *FakeRepository) LastDepth(t *testing.T) int {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Depths) == 0 {
		t.Fatalf("LastDepth(): FetchTree was never called")
	}
	return r.Depths[len(r.Depths)-1]
}
