package rights

import (
	"fmt"
	"strings"
)

// ClaimantKind selects which variant of a Claimant is populated.
type ClaimantKind string

const (
	ClaimantPublisher ClaimantKind = "publisher"
	ClaimantComposer  ClaimantKind = "composer"
)

// Claimant identifies the party behind a rights node: exactly one of a
// publisher reference or a composer reference. Construct values with
// PublisherClaim or ComposerClaim so the exactly-one invariant holds by
// construction; Validate catches values deserialized from untrusted input.
type Claimant struct {
	Kind        ClaimantKind `json:"kind"`
	PublisherID string       `json:"publisher_id,omitempty"`
	ComposerID  string       `json:"composer_id,omitempty"`
	// Name is the display name carried for operator-facing surfaces.
	Name string `json:"name,omitempty"`
	// IPI is the claimant's CAE/IPI number within performing-rights societies.
	IPI string `json:"ipi,omitempty"`
}

// PublisherClaim builds a publisher-variant claimant.
func PublisherClaim(id string) Claimant {
	return Claimant{Kind: ClaimantPublisher, PublisherID: id}
}

// ComposerClaim builds a composer-variant claimant.
func ComposerClaim(id string) Claimant {
	return Claimant{Kind: ClaimantComposer, ComposerID: id}
}

// Validate rejects claimants that reference neither or both parties, or whose
// kind does not match the populated reference.
func (c Claimant) Validate() error {
	pub := strings.TrimSpace(c.PublisherID)
	comp := strings.TrimSpace(c.ComposerID)
	switch c.Kind {
	case ClaimantPublisher:
		if pub == "" {
			return fmt.Errorf("publisher claimant missing publisher reference")
		}
		if comp != "" {
			return fmt.Errorf("publisher claimant %q also references composer %q", pub, comp)
		}
	case ClaimantComposer:
		if comp == "" {
			return fmt.Errorf("composer claimant missing composer reference")
		}
		if pub != "" {
			return fmt.Errorf("composer claimant %q also references publisher %q", comp, pub)
		}
	default:
		return fmt.Errorf("unknown claimant kind %q", c.Kind)
	}
	return nil
}

// Ref returns the populated reference for the claimant's kind.
func (c Claimant) Ref() string {
	if c.Kind == ClaimantPublisher {
		return c.PublisherID
	}
	return c.ComposerID
}
