package conflict_test

import (
	"testing"

	"cadenza/internal/catalog"
	"cadenza/internal/conflict"
	"cadenza/internal/rights"
)

func testThresholds() conflict.Thresholds {
	return conflict.Thresholds{
		OverclaimEpsilon:     0.1,
		MediumExcess:         5,
		HighExcess:           20,
		CriticalExcess:       50,
		TitleSimilarityFloor: 0.6,
	}
}

func member(account string, mechanical float64) catalog.WorkSummary {
	return catalog.WorkSummary{
		AccountID: account,
		Title:     "Night Drive",
		ISWC:      "T0345246801",
		Claims: []catalog.OwnershipClaim{
			{
				Territory:   rights.TerritoryWorld,
				Category:    rights.CategoryComposer,
				Mechanical:  mechanical,
				Performance: 0,
			},
		},
	}
}

func TestDetectOverclaimSeverity(t *testing.T) {
	cases := []struct {
		name     string
		shares   []float64
		severity catalog.Severity
	}{
		{name: "just over epsilon", shares: []float64{60, 40.2}, severity: catalog.SeverityLow},
		{name: "medium boundary", shares: []float64{60, 45}, severity: catalog.SeverityMedium},
		{name: "high boundary", shares: []float64{80, 40}, severity: catalog.SeverityHigh},
		{name: "critical boundary stays high", shares: []float64{90, 60}, severity: catalog.SeverityHigh},
		{name: "past critical boundary", shares: []float64{90, 60.01}, severity: catalog.SeverityCritical},
	}

	detector := conflict.NewDetector(testThresholds())
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			members := make([]catalog.WorkSummary, 0, len(tc.shares))
			for i, share := range tc.shares {
				members = append(members, member(accountName(i), share))
			}
			candidates, _ := detector.Detect(members)
			if len(candidates) != 1 {
				t.Fatalf("expected 1 candidate, got %d: %#v", len(candidates), candidates)
			}
			got := candidates[0]
			if got.Type != catalog.ConflictOverclaim {
				t.Fatalf("type = %s, want overclaim", got.Type)
			}
			if got.Severity != tc.severity {
				t.Fatalf("severity = %s, want %s (total %.2f)", got.Severity, tc.severity, got.Total)
			}
		})
	}
}

func TestDetectWithinEpsilonIsClean(t *testing.T) {
	detector := conflict.NewDetector(testThresholds())
	candidates, total := detector.Detect([]catalog.WorkSummary{
		member("acct-a", 60),
		member("acct-b", 40.05),
	})
	if len(candidates) != 0 {
		t.Fatalf("expected no candidates within epsilon, got %#v", candidates)
	}
	if total < 100 || total > 100.1 {
		t.Fatalf("combined total = %.2f", total)
	}
}

func TestDetectOwnershipDispute(t *testing.T) {
	detector := conflict.NewDetector(testThresholds())

	candidates, _ := detector.Detect([]catalog.WorkSummary{
		member("acct-a", 100),
		member("acct-b", 100),
	})
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
	dispute := candidates[0]
	if dispute.Type != catalog.ConflictOwnershipDispute {
		t.Fatalf("duplicate complete claims must be a dispute, got %s", dispute.Type)
	}
	if dispute.Severity != catalog.SeverityHigh {
		t.Fatalf("two-account dispute severity = %s, want high", dispute.Severity)
	}
	if len(dispute.Accounts) != 2 {
		t.Fatalf("dispute accounts = %v", dispute.Accounts)
	}
}

func TestDetectThreeWayDisputeIsCritical(t *testing.T) {
	detector := conflict.NewDetector(testThresholds())
	candidates, _ := detector.Detect([]catalog.WorkSummary{
		member("acct-a", 100),
		member("acct-b", 100),
		member("acct-c", 99.95),
	})
	if len(candidates) != 1 || candidates[0].Type != catalog.ConflictOwnershipDispute {
		t.Fatalf("expected one dispute, got %#v", candidates)
	}
	if candidates[0].Severity != catalog.SeverityCritical {
		t.Fatalf("three-account dispute severity = %s, want critical", candidates[0].Severity)
	}
}

func TestDetectSameAccountDuplicatesNotAdditive(t *testing.T) {
	detector := conflict.NewDetector(testThresholds())
	candidates, _ := detector.Detect([]catalog.WorkSummary{
		member("acct-a", 100),
		member("acct-a", 100),
	})
	if len(candidates) != 0 {
		t.Fatalf("one account re-registering is not a cross-account conflict: %#v", candidates)
	}
}

func TestDetectISWCMismatch(t *testing.T) {
	detector := conflict.NewDetector(testThresholds())
	a := member("acct-a", 50)
	b := member("acct-b", 50)
	b.ISWC = "T9999999999"

	candidates, _ := detector.Detect([]catalog.WorkSummary{a, b})
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %#v", candidates)
	}
	if candidates[0].Type != catalog.ConflictDataMismatch || candidates[0].Severity != catalog.SeverityHigh {
		t.Fatalf("got %s/%s, want data_mismatch/high", candidates[0].Type, candidates[0].Severity)
	}
}

func TestDetectTitleMismatch(t *testing.T) {
	detector := conflict.NewDetector(testThresholds())
	a := member("acct-a", 50)
	b := member("acct-b", 50)
	a.ISWC = ""
	b.ISWC = ""
	b.Title = "Completely Unrelated Song"

	candidates, _ := detector.Detect([]catalog.WorkSummary{a, b})
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %#v", candidates)
	}
	if candidates[0].Type != catalog.ConflictDataMismatch || candidates[0].Severity != catalog.SeverityMedium {
		t.Fatalf("got %s/%s, want data_mismatch/medium", candidates[0].Type, candidates[0].Severity)
	}
}

func TestDetectShareConflictSuppressesMismatch(t *testing.T) {
	detector := conflict.NewDetector(testThresholds())
	a := member("acct-a", 80)
	b := member("acct-b", 80)
	b.ISWC = "T9999999999"

	candidates, _ := detector.Detect([]catalog.WorkSummary{a, b})
	if len(candidates) != 1 {
		t.Fatalf("expected only the overclaim, got %#v", candidates)
	}
	if candidates[0].Type != catalog.ConflictOverclaim {
		t.Fatalf("type = %s, want overclaim", candidates[0].Type)
	}
}

func TestDetectDeterministic(t *testing.T) {
	detector := conflict.NewDetector(testThresholds())
	members := []catalog.WorkSummary{
		member("acct-b", 80),
		member("acct-a", 80),
	}
	first, _ := detector.Detect(members)
	second, _ := detector.Detect(members)
	if len(first) != len(second) {
		t.Fatalf("candidate counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Description != second[i].Description {
			t.Fatalf("descriptions differ at %d", i)
		}
		for j := range first[i].Accounts {
			if first[i].Accounts[j] != second[i].Accounts[j] {
				t.Fatalf("account order differs at %d", i)
			}
		}
	}
}

func TestDetectSingleMember(t *testing.T) {
	detector := conflict.NewDetector(testThresholds())
	candidates, total := detector.Detect([]catalog.WorkSummary{member("acct-a", 100)})
	if len(candidates) != 0 {
		t.Fatalf("single-member groups cannot conflict: %#v", candidates)
	}
	if total != 100 {
		t.Fatalf("rollup total = %.2f, want 100", total)
	}
}

func accountName(i int) string {
	return string(rune('a'+i)) + "-account"
}
