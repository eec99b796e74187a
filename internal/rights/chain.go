package rights

import "fmt"

// TerritoryWorld is the wildcard territory covering every country not listed
// explicitly in a work's chain.
const TerritoryWorld = "World"

// ValidTerritory reports whether code is the World sentinel or an ISO-3166
// alpha-2 country code.
func ValidTerritory(code string) bool {
	if code == TerritoryWorld {
		return true
	}
	if len(code) != 2 {
		return false
	}
	for i := 0; i < 2; i++ {
		if code[i] < 'A' || code[i] > 'Z' {
			return false
		}
	}
	return true
}

// Node is a single claimant entry in a work's ownership tree. Children model
// sub-publishing or sub-administration relationships and are only meaningful
// under publisher-category nodes; their shares are additional entries in the
// territory rollup, not subtractions from the parent.
type Node struct {
	Claimant Claimant `json:"claimant"`
	Category Category `json:"category"`
	// Controlled marks claimants whose rights the owning account administers.
	Controlled bool    `json:"controlled"`
	Shares     Shares  `json:"shares"`
	Children   []Node  `json:"children,omitempty"`
}

// Walk visits the node and every descendant in depth-first order.
func (n *Node) Walk(visit func(*Node)) {
	visit(n)
	for i := range n.Children {
		n.Children[i].Walk(visit)
	}
}

// TerritoryChain is the ownership forest for one work in one territory,
// together with the cached rollup totals across all nodes at every depth.
type TerritoryChain struct {
	Territory string `json:"territory"`
	Nodes     []Node `json:"nodes"`
	Totals    Totals `json:"totals"`
}

// ComputeTotals recomputes the territory rollups by post-order traversal,
// summing every node's own shares at every depth. Node share values are
// never mutated.
func (tc *TerritoryChain) ComputeTotals() Totals {
	var totals Totals
	for i := range tc.Nodes {
		tc.Nodes[i].Walk(func(n *Node) {
			totals.Add(n.Shares)
		})
	}
	tc.Totals = totals
	return totals
}

// validateStructure checks claimants, categories, shares, and child placement
// for every node in the territory.
func (tc *TerritoryChain) validateStructure() error {
	for i := range tc.Nodes {
		if err := validateNode(&tc.Nodes[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateNode(n *Node) error {
	if err := n.Claimant.Validate(); err != nil {
		return err
	}
	if !n.Category.Valid() {
		return fmt.Errorf("unknown category %q", n.Category)
	}
	if n.Category.IsPublisher() && n.Claimant.Kind != ClaimantPublisher {
		return fmt.Errorf("category %s requires a publisher claimant, got %s", n.Category, n.Claimant.Kind)
	}
	if n.Category.IsWriter() && n.Claimant.Kind != ClaimantComposer {
		return fmt.Errorf("category %s requires a composer claimant, got %s", n.Category, n.Claimant.Kind)
	}
	if err := n.Shares.Validate(); err != nil {
		return fmt.Errorf("claimant %s: %w", n.Claimant.Ref(), err)
	}
	if len(n.Children) > 0 && !n.Category.IsPublisher() {
		return fmt.Errorf("claimant %s: children under %s category", n.Claimant.Ref(), n.Category)
	}
	for i := range n.Children {
		if err := validateNode(&n.Children[i]); err != nil {
			return err
		}
	}
	return nil
}
