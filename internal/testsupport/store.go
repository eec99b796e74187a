package testsupport

import (
	"context"
	"testing"

	"cadenza/internal/catalog"
	"cadenza/internal/config"
	"cadenza/internal/rights"
)

// MustOpenStore opens a catalog.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewWork inserts a work for tests using the provided store.
func NewWork(t testing.TB, store *catalog.Store, work *catalog.Work) *catalog.Work {
	t.Helper()

	inserted, err := store.InsertWork(context.Background(), work)
	if err != nil {
		t.Fatalf("store.InsertWork: %v", err)
	}
	return inserted
}

// SoleOwnershipChain builds a world chain where one composer owns the whole
// work and grants both collection rights to one controlled publisher.
func SoleOwnershipChain(composerID, publisherID string, ownership float64) []rights.TerritoryChain {
	return []rights.TerritoryChain{
		{
			Territory: rights.TerritoryWorld,
			Nodes: []rights.Node{
				{
					Claimant: rights.ComposerClaim(composerID),
					Category: rights.CategoryComposerAuthor,
					Shares: rights.Shares{
						MechanicalOwnership:  ownership,
						PerformanceOwnership: ownership,
					},
				},
				{
					Claimant:   rights.PublisherClaim(publisherID),
					Category:   rights.CategoryOriginalPublisher,
					Controlled: true,
					Shares: rights.Shares{
						MechanicalOwnership:   100 - ownership,
						PerformanceOwnership:  100 - ownership,
						MechanicalCollection:  100,
						PerformanceCollection: 100,
					},
				},
			},
		},
	}
}
