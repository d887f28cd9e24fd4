package referral

// DefaultExpandDepth is the number of generations expanded when a tree is first shown.
const DefaultExpandDepth = 2

// Palette holds the tier colors, cycled by depth.
var Palette = [...]string{"#6C63FF", "#8B5CF6", "#EC4899", "#F59E0B", "#10B981"}

func ColorAt(depth int) string {
	if depth < 0 {
		depth = -depth
	}
	return Palette[depth%len(Palette)]
}

// DefaultExpanded is the expansion state of a node that has never been toggled.
func DefaultExpanded(depth int) bool { return depth < DefaultExpandDepth }

// Expansion maps node IDs to their expanded flag.
// It belongs to a single tree load: a reload starts from a new Expansion.
type Expansion map[int]bool

func NewExpansion() Expansion { return make(Expansion) }

func (e Expansion) IsExpanded(id, depth int) bool {
	if expanded, ok := e[id]; ok {
		return expanded
	}
	return DefaultExpanded(depth)
}

// Toggle flips the node's flag and returns the new state.
func (e Expansion) Toggle(id, depth int) bool {
	e[id] = !e.IsExpanded(id, depth)
	return e[id]
}

// ExpandAll marks every node having children as expanded.
func (e Expansion) ExpandAll(root *Node) error {
	return walk(root, func(v visit) {
		if v.node.HasChildren() {
			e[v.node.ID] = true
		}
	})
}

// ViewNode is a render-ready node. Collapsed nodes keep their ChildCount but carry no Children.
type ViewNode struct {
	ID             int         `json:"id"`
	FirstName      string      `json:"prenom"`
	LastName       string      `json:"nom"`
	FullName       string      `json:"nom_complet"`
	Initials       string      `json:"initiales"`
	Level          int         `json:"niveau"`
	LevelLabel     string      `json:"niveau_label"`
	Depth          int         `json:"profondeur"`
	Color          string      `json:"couleur"`
	ConnectorColor string      `json:"couleur_lien,omitempty"`
	ChildCount     int         `json:"nombre_enfants"`
	HasChildren    bool        `json:"a_des_enfants"`
	Expanded       bool        `json:"developpe"`
	Children       []*ViewNode `json:"enfants,omitempty"`
}

// Render builds the visible hierarchy of root according to exp.
// Nodes rendered for the first time get their default state recorded in exp (if not nil).
// A nil root renders to nil. Node IDs already rendered are skipped.
func Render(root *Node, exp Expansion) *ViewNode {
	if root == nil {
		return nil
	}

	type item struct {
		node  *Node
		depth int
		view  *ViewNode
	}

	rootView := new(ViewNode)
	seen := map[int]struct{}{root.ID: {}}
	stack := []item{{node: root, view: rootView}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n, v := it.node, it.view
		*v = ViewNode{
			ID:          n.ID,
			FirstName:   n.FirstName,
			LastName:    n.LastName,
			FullName:    n.FullName(),
			Initials:    n.Initials(),
			Level:       n.Level,
			LevelLabel:  LevelLabel(n.Level),
			Depth:       it.depth,
			Color:       ColorAt(it.depth),
			ChildCount:  len(n.Children),
			HasChildren: n.HasChildren(),
		}
		if it.depth > 0 {
			v.ConnectorColor = ColorAt(it.depth - 1)
		}
		if !v.HasChildren {
			// leaves follow the default rule but are never recorded: they cannot be toggled
			v.Expanded = DefaultExpanded(it.depth)
			continue
		}

		if exp != nil {
			if _, ok := exp[n.ID]; !ok {
				exp[n.ID] = DefaultExpanded(it.depth)
			}
		}
		v.Expanded = exp.IsExpanded(n.ID, it.depth)
		if !v.Expanded {
			continue
		}

		children := make([]*ViewNode, 0, len(n.Children))
		pending := make([]item, 0, len(n.Children))
		for _, child := range n.Children {
			if child == nil {
				continue
			}
			if _, ok := seen[child.ID]; ok {
				continue
			}
			seen[child.ID] = struct{}{}
			cv := new(ViewNode)
			children = append(children, cv)
			pending = append(pending, item{node: child, depth: it.depth + 1, view: cv})
		}
		v.Children = children
		for i := len(pending) - 1; i >= 0; i-- {
			stack = append(stack, pending[i])
		}
	}
	return rootView
}

// Rows flattens the visible hierarchy in display (pre-)order.
func (v *ViewNode) Rows() []*ViewNode {
	if v == nil {
		return nil
	}
	var rows []*ViewNode
	stack := []*ViewNode{v}
	for len(stack) > 0 {
		row := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		rows = append(rows, row)
		for i := len(row.Children) - 1; i >= 0; i-- {
			stack = append(stack, row.Children[i])
		}
	}
	return rows
}
