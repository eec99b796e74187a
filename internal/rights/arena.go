package rights

import (
	"errors"
	"fmt"
)

// NodeID addresses a node inside an Arena. IDs are stable for the lifetime
// of the arena and are never reused.
type NodeID int64

// ErrNodeNotFound is returned when a NodeID does not resolve.
var ErrNodeNotFound = errors.New("rights node not found")

// Arena is an editable representation of a work's rights chain: nodes are
// addressed by stable IDs with parent/children indices, and per-territory
// rollups are maintained incrementally so an edit costs O(path length)
// instead of a full re-traversal. Editors mutate the arena on every change
// and export a plain chain with Chain() when persisting.
type Arena struct {
	nextID      NodeID
	nodes       map[NodeID]*arenaNode
	order       []string
	territories map[string]*arenaTerritory
}

type arenaNode struct {
	id         NodeID
	territory  string
	parent     NodeID // 0 for roots
	children   []NodeID
	claimant   Claimant
	category   Category
	controlled bool
	shares     Shares
}

type arenaTerritory struct {
	roots  []NodeID
	totals Totals
}

// NewArena creates an empty chain editor.
func NewArena() *Arena {
	return &Arena{
		nextID:      1,
		nodes:       make(map[NodeID]*arenaNode),
		territories: make(map[string]*arenaTerritory),
	}
}

// LoadArena builds an editor from an existing chain.
func LoadArena(chain []TerritoryChain) (*Arena, error) {
	a := NewArena()
	for i := range chain {
		if err := a.AddTerritory(chain[i].Territory); err != nil {
			return nil, err
		}
		for j := range chain[i].Nodes {
			if err := a.loadNode(chain[i].Territory, 0, &chain[i].Nodes[j]); err != nil {
				return nil, err
			}
		}
	}
	return a, nil
}

func (a *Arena) loadNode(territory string, parent NodeID, n *Node) error {
	id, err := a.AddNode(territory, parent, n.Claimant, n.Category, n.Controlled, n.Shares)
	if err != nil {
		return err
	}
	for i := range n.Children {
		if err := a.loadNode(territory, id, &n.Children[i]); err != nil {
			return err
		}
	}
	return nil
}

// AddTerritory registers a territory. Adding a territory twice is an error,
// not a merge.
func (a *Arena) AddTerritory(code string) error {
	if !ValidTerritory(code) {
		return fmt.Errorf("invalid territory %q", code)
	}
	if _, exists := a.territories[code]; exists {
		return fmt.Errorf("territory %s already present", code)
	}
	a.territories[code] = &arenaTerritory{}
	a.order = append(a.order, code)
	return nil
}

// RemoveTerritory drops a territory and every node under it.
func (a *Arena) RemoveTerritory(code string) error {
	territory, ok := a.territories[code]
	if !ok {
		return fmt.Errorf("territory %s not present", code)
	}
	for _, root := range territory.roots {
		a.deleteSubtree(root)
	}
	delete(a.territories, code)
	for i, existing := range a.order {
		if existing == code {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}
	return nil
}

// Territories returns the configured territory codes in insertion order.
func (a *Arena) Territories() []string {
	cp := make([]string, len(a.order))
	copy(cp, a.order)
	return cp
}

// AddNode inserts a claimant under the given parent (0 for a territory
// root) and folds its shares into the territory totals.
func (a *Arena) AddNode(territory string, parent NodeID, claimant Claimant, category Category, controlled bool, shares Shares) (NodeID, error) {
	terr, ok := a.territories[territory]
	if !ok {
		return 0, fmt.Errorf("territory %s not present", territory)
	}
	node := &Node{Claimant: claimant, Category: category, Controlled: controlled, Shares: shares}
	if err := validateNode(node); err != nil {
		return 0, err
	}

	if parent != 0 {
		parentNode, ok := a.nodes[parent]
		if !ok {
			return 0, ErrNodeNotFound
		}
		if parentNode.territory != territory {
			return 0, fmt.Errorf("parent node belongs to territory %s", parentNode.territory)
		}
		if !parentNode.category.IsPublisher() {
			return 0, fmt.Errorf("parent category %s cannot carry children", parentNode.category)
		}
	}

	id := a.nextID
	a.nextID++
	a.nodes[id] = &arenaNode{
		id:         id,
		territory:  territory,
		parent:     parent,
		claimant:   claimant,
		category:   category,
		controlled: controlled,
		shares:     shares,
	}
	if parent == 0 {
		terr.roots = append(terr.roots, id)
	} else {
		a.nodes[parent].children = append(a.nodes[parent].children, id)
	}
	terr.totals.Add(shares)
	return id, nil
}

// UpdateShares replaces a node's shares, adjusting the territory totals by
// the delta.
func (a *Arena) UpdateShares(id NodeID, shares Shares) error {
	node, ok := a.nodes[id]
	if !ok {
		return ErrNodeNotFound
	}
	if err := shares.Validate(); err != nil {
		return err
	}
	terr := a.territories[node.territory]
	terr.totals.Subtract(node.shares)
	terr.totals.Add(shares)
	node.shares = shares
	return nil
}

// SetControlled flips the administration flag on a node.
func (a *Arena) SetControlled(id NodeID, controlled bool) error {
	node, ok := a.nodes[id]
	if !ok {
		return ErrNodeNotFound
	}
	node.controlled = controlled
	return nil
}

// RemoveNode deletes a node and cascades to its children, subtracting the
// subtree's shares from the territory totals.
func (a *Arena) RemoveNode(id NodeID) error {
	node, ok := a.nodes[id]
	if !ok {
		return ErrNodeNotFound
	}
	terr := a.territories[node.territory]
	if node.parent == 0 {
		for i, root := range terr.roots {
			if root == id {
				terr.roots = append(terr.roots[:i], terr.roots[i+1:]...)
				break
			}
		}
	} else if parent, ok := a.nodes[node.parent]; ok {
		for i, child := range parent.children {
			if child == id {
				parent.children = append(parent.children[:i], parent.children[i+1:]...)
				break
			}
		}
	}
	a.deleteSubtree(id)
	return nil
}

func (a *Arena) deleteSubtree(id NodeID) {
	node, ok := a.nodes[id]
	if !ok {
		return
	}
	for _, child := range node.children {
		a.deleteSubtree(child)
	}
	if terr, ok := a.territories[node.territory]; ok {
		terr.totals.Subtract(node.shares)
	}
	delete(a.nodes, id)
}

// Totals returns the incrementally maintained rollups for a territory.
func (a *Arena) Totals(territory string) (Totals, bool) {
	terr, ok := a.territories[territory]
	if !ok {
		return Totals{}, false
	}
	return terr.totals, true
}

// Chain exports the arena as a plain territory chain, one TerritoryChain per
// configured territory in insertion order, with cached totals populated.
func (a *Arena) Chain() []TerritoryChain {
	chain := make([]TerritoryChain, 0, len(a.order))
	for _, code := range a.order {
		terr := a.territories[code]
		tc := TerritoryChain{Territory: code, Totals: terr.totals}
		for _, root := range terr.roots {
			tc.Nodes = append(tc.Nodes, a.exportNode(root))
		}
		chain = append(chain, tc)
	}
	return chain
}

func (a *Arena) exportNode(id NodeID) Node {
	node := a.nodes[id]
	out := Node{
		Claimant:   node.claimant,
		Category:   node.category,
		Controlled: node.controlled,
		Shares:     node.shares,
	}
	for _, child := range node.children {
		out.Children = append(out.Children, a.exportNode(child))
	}
	return out
}
