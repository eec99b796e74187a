package scan

import (
	"context"
	"errors"
	"testing"

	"cadenza/internal/catalog"
	"cadenza/internal/logging"
	"cadenza/internal/metrics"
	"cadenza/internal/testsupport"
)

func newHarness(t *testing.T, opts ...testsupport.ConfigOption) (*catalog.Store, *Runner) {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)
	return store, NewRunner(cfg, store, metrics.New(), logging.NewNop())
}

func TestRunFullScanGroupsAndDetects(t *testing.T) {
	store, runner := newHarness(t)
	ctx := context.Background()

	// Two accounts register the same composition by ISWC, each claiming
	// the whole work, plus one unrelated registration.
	testsupport.NewWork(t, store, &catalog.Work{
		AccountID: "acct-north",
		Title:     "Night Drive",
		ISWC:      "T-034.524.680-1",
		Chain:     testsupport.SoleOwnershipChain("writer-a", "pub-a", 100),
	})
	testsupport.NewWork(t, store, &catalog.Work{
		AccountID: "acct-south",
		Title:     "NIGHT DRIVE",
		ISWC:      "T0345246801",
		Chain:     testsupport.SoleOwnershipChain("writer-b", "pub-b", 100),
	})
	testsupport.NewWork(t, store, &catalog.Work{
		AccountID: "acct-north",
		Title:     "Quiet Harbor",
		Chain:     testsupport.SoleOwnershipChain("writer-a", "pub-a", 75),
	})

	job, err := runner.Run(ctx, catalog.JobFullScan)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if job.Status != catalog.JobCompleted {
		t.Fatalf("status = %q, want %q (error: %q)", job.Status, catalog.JobCompleted, job.ErrorMessage)
	}
	if job.ProcessedWorks != 3 || job.TotalWorks != 3 {
		t.Fatalf("processed %d/%d works, want 3/3", job.ProcessedWorks, job.TotalWorks)
	}
	if job.MatchesFound != 1 {
		t.Fatalf("MatchesFound = %d, want 1", job.MatchesFound)
	}
	if job.ConflictsCreated == 0 {
		t.Fatal("expected at least one conflict from the dual full claims")
	}

	groups, err := store.CountGroups(ctx)
	if err != nil {
		t.Fatalf("CountGroups: %v", err)
	}
	if groups != 2 {
		t.Fatalf("CountGroups = %d, want 2", groups)
	}

	shared, err := store.GroupByFingerprint(ctx, "iswc:T0345246801")
	if err != nil {
		t.Fatalf("GroupByFingerprint: %v", err)
	}
	if shared == nil {
		t.Fatal("shared ISWC group not found")
	}
	if shared.MemberCount != 2 {
		t.Fatalf("shared group MemberCount = %d, want 2", shared.MemberCount)
	}
	if shared.CanonicalISWC != "T0345246801" {
		t.Fatalf("CanonicalISWC = %q, want %q", shared.CanonicalISWC, "T0345246801")
	}
	if shared.TotalClaimedOwnership < 199 {
		t.Fatalf("TotalClaimedOwnership = %.2f, want about 200", shared.TotalClaimedOwnership)
	}

	conflicts, _, err := store.ListConflicts(ctx, catalog.ConflictFilter{Type: catalog.ConflictOwnershipDispute}, 0, 10)
	if err != nil {
		t.Fatalf("ListConflicts: %v", err)
	}
	if len(conflicts) == 0 {
		t.Fatal("expected an ownership_dispute conflict")
	}
	if conflicts[0].GroupID != shared.ID {
		t.Fatalf("conflict GroupID = %d, want %d", conflicts[0].GroupID, shared.ID)
	}
}

func TestBeginRejectsConcurrentJob(t *testing.T) {
	store, runner := newHarness(t)
	ctx := context.Background()

	handle, err := runner.Begin(ctx, catalog.JobFullScan)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}

	if _, err := runner.Begin(ctx, catalog.JobIncremental); !errors.Is(err, catalog.ErrJobAlreadyRunning) {
		t.Fatalf("second Begin error = %v, want ErrJobAlreadyRunning", err)
	}

	jobs, err := store.ListJobs(ctx, 10)
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	var rejected *catalog.Job
	for _, job := range jobs {
		if job.ID != handle.Job().ID {
			rejected = job
		}
	}
	if rejected == nil {
		t.Fatal("rejected job row not found")
	}
	if rejected.Status != catalog.JobFailed {
		t.Fatalf("rejected job status = %q, want %q", rejected.Status, catalog.JobFailed)
	}

	final, err := handle.Run(ctx)
	if err != nil {
		t.Fatalf("Run after rejection: %v", err)
	}
	if final.Status != catalog.JobCompleted {
		t.Fatalf("held job status = %q, want %q", final.Status, catalog.JobCompleted)
	}
}

func TestRunObservesCancelRequest(t *testing.T) {
	store, runner := newHarness(t)
	ctx := context.Background()

	for _, title := range []string{"First Light", "Second Wind", "Third Rail"} {
		testsupport.NewWork(t, store, &catalog.Work{
			AccountID: "acct-solo",
			Title:     title,
			Chain:     testsupport.SoleOwnershipChain("writer-a", "pub-a", 70),
		})
	}

	handle, err := runner.Begin(ctx, catalog.JobFullScan)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	// Flag the pending job before execution ever looks at a work.
	if _, err := store.RequestJobCancel(ctx, handle.Job().ID); err != nil {
		t.Fatalf("RequestJobCancel: %v", err)
	}

	final, err := handle.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if final.Status != catalog.JobCancelled {
		t.Fatalf("status = %q, want %q", final.Status, catalog.JobCancelled)
	}
	if final.ProcessedWorks != 0 {
		t.Fatalf("ProcessedWorks = %d, want 0 after immediate cancellation", final.ProcessedWorks)
	}

	// The lease must be free again for the next job.
	if _, _, held, err := store.LeaseHolder(ctx); err != nil {
		t.Fatalf("LeaseHolder: %v", err)
	} else if held {
		t.Fatal("lease still held after cancelled run")
	}
}

func TestRunIncrementalUsesWatermark(t *testing.T) {
	store, runner := newHarness(t)
	ctx := context.Background()

	testsupport.NewWork(t, store, &catalog.Work{
		AccountID: "acct-north",
		Title:     "Morning Bell",
		Chain:     testsupport.SoleOwnershipChain("writer-a", "pub-a", 60),
	})
	testsupport.NewWork(t, store, &catalog.Work{
		AccountID: "acct-south",
		Title:     "Evening Bell",
		Chain:     testsupport.SoleOwnershipChain("writer-b", "pub-b", 55),
	})

	first, err := runner.Run(ctx, catalog.JobFullScan)
	if err != nil {
		t.Fatalf("full scan: %v", err)
	}
	if first.ProcessedWorks != 2 {
		t.Fatalf("full scan processed %d works, want 2", first.ProcessedWorks)
	}

	testsupport.NewWork(t, store, &catalog.Work{
		AccountID: "acct-east",
		Title:     "Harbor Lights",
		Chain:     testsupport.SoleOwnershipChain("writer-c", "pub-c", 40),
	})

	second, err := runner.Run(ctx, catalog.JobIncremental)
	if err != nil {
		t.Fatalf("incremental scan: %v", err)
	}
	if second.Status != catalog.JobCompleted {
		t.Fatalf("incremental status = %q (error: %q)", second.Status, second.ErrorMessage)
	}
	if second.TotalWorks != 1 || second.ProcessedWorks != 1 {
		t.Fatalf("incremental processed %d/%d works, want 1/1", second.ProcessedWorks, second.TotalWorks)
	}
}

func TestFullScanRebuildsGroups(t *testing.T) {
	store, runner := newHarness(t)
	ctx := context.Background()

	work := testsupport.NewWork(t, store, &catalog.Work{
		AccountID: "acct-north",
		Title:     "Paper Boats",
		Chain:     testsupport.SoleOwnershipChain("writer-a", "pub-a", 60),
	})

	if _, err := runner.Run(ctx, catalog.JobFullScan); err != nil {
		t.Fatalf("first full scan: %v", err)
	}

	// Retitling changes the fingerprint; a fresh full scan must not leave
	// the stale group behind.
	work.Title = "Stone Boats"
	if err := store.UpdateWork(ctx, work); err != nil {
		t.Fatalf("UpdateWork: %v", err)
	}
	if _, err := runner.Run(ctx, catalog.JobFullScan); err != nil {
		t.Fatalf("second full scan: %v", err)
	}

	groups, err := store.CountGroups(ctx)
	if err != nil {
		t.Fatalf("CountGroups: %v", err)
	}
	if groups != 1 {
		t.Fatalf("CountGroups = %d, want 1 after rebuild", groups)
	}
	rebuilt, err := store.GroupByFingerprint(ctx, "title:stone boats")
	if err != nil {
		t.Fatalf("GroupByFingerprint: %v", err)
	}
	if rebuilt == nil {
		t.Fatal("rebuilt group not found under the new fingerprint")
	}
}

func TestFullScanKeepsConflictHistory(t *testing.T) {
	store, runner := newHarness(t)
	ctx := context.Background()

	// Two groups, each overclaimed by a pair of registrations.
	for _, seed := range []struct {
		account string
		title   string
		iswc    string
	}{
		{"acct-north", "River Stone", "T0345246801"},
		{"acct-south", "River Stone", "T0345246801"},
		{"acct-north", "Glass Field", "T9070000012"},
		{"acct-east", "Glass Field", "T9070000012"},
	} {
		testsupport.NewWork(t, store, &catalog.Work{
			AccountID: seed.account,
			Title:     seed.title,
			ISWC:      seed.iswc,
			Chain:     testsupport.SoleOwnershipChain("writer-x", "pub-x", 60),
		})
	}

	first, err := runner.Run(ctx, catalog.JobFullScan)
	if err != nil {
		t.Fatalf("first full scan: %v", err)
	}
	if first.ConflictsCreated != 2 {
		t.Fatalf("first scan ConflictsCreated = %d, want 2", first.ConflictsCreated)
	}

	groupOne, err := store.GroupByFingerprint(ctx, "iswc:T0345246801")
	if err != nil || groupOne == nil {
		t.Fatalf("first group lookup: %v (%v)", groupOne, err)
	}
	groupTwo, err := store.GroupByFingerprint(ctx, "iswc:T9070000012")
	if err != nil || groupTwo == nil {
		t.Fatalf("second group lookup: %v (%v)", groupTwo, err)
	}

	resolvedTarget, err := store.OpenConflict(ctx, groupOne.ID, catalog.ConflictOverclaim)
	if err != nil || resolvedTarget == nil {
		t.Fatalf("open conflict lookup: %v (%v)", resolvedTarget, err)
	}
	surviving, err := store.OpenConflict(ctx, groupTwo.ID, catalog.ConflictOverclaim)
	if err != nil || surviving == nil {
		t.Fatalf("surviving conflict lookup: %v (%v)", surviving, err)
	}
	if _, err := store.ResolveConflict(ctx, resolvedTarget.ID); err != nil {
		t.Fatalf("ResolveConflict: %v", err)
	}

	second, err := runner.Run(ctx, catalog.JobFullScan)
	if err != nil {
		t.Fatalf("second full scan: %v", err)
	}

	// The resolved row is history and must outlive the rebuild.
	kept, err := store.GetConflict(ctx, resolvedTarget.ID)
	if err != nil {
		t.Fatalf("GetConflict: %v", err)
	}
	if kept == nil {
		t.Fatal("resolved conflict was deleted by the rebuild")
	}
	if !kept.Resolved {
		t.Fatalf("resolved conflict lost its resolution: %#v", kept)
	}

	// The still-open conflict keeps its identity; only the reopened one
	// counts as created.
	reopened, err := store.OpenConflict(ctx, groupTwo.ID, catalog.ConflictOverclaim)
	if err != nil || reopened == nil {
		t.Fatalf("open conflict after rebuild: %v (%v)", reopened, err)
	}
	if reopened.ID != surviving.ID {
		t.Fatalf("open conflict ID changed across rebuilds: %d != %d", reopened.ID, surviving.ID)
	}
	if second.ConflictsCreated != 1 {
		t.Fatalf("second scan ConflictsCreated = %d, want 1 (reopened only)", second.ConflictsCreated)
	}

	// Group identity is stable too.
	groupOneAfter, err := store.GroupByFingerprint(ctx, "iswc:T0345246801")
	if err != nil || groupOneAfter == nil {
		t.Fatalf("first group after rebuild: %v (%v)", groupOneAfter, err)
	}
	if groupOneAfter.ID != groupOne.ID {
		t.Fatalf("group ID changed across rebuilds: %d != %d", groupOneAfter.ID, groupOne.ID)
	}
}

func TestScanEvaluatesGroupsInStableOrder(t *testing.T) {
	store, runner := newHarness(t)
	ctx := context.Background()

	// Three overclaimed groups so one scan opens three conflicts.
	for _, seed := range []struct {
		title string
		iswc  string
	}{
		{"Alpha Street", "T1000000001"},
		{"Beta Avenue", "T1000000002"},
		{"Gamma Road", "T1000000003"},
	} {
		for _, account := range []string{"acct-north", "acct-south"} {
			testsupport.NewWork(t, store, &catalog.Work{
				AccountID: account,
				Title:     seed.title,
				ISWC:      seed.iswc,
				Chain:     testsupport.SoleOwnershipChain("writer-x", "pub-x", 60),
			})
		}
	}

	job, err := runner.Run(ctx, catalog.JobFullScan)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if job.ConflictsCreated != 3 {
		t.Fatalf("ConflictsCreated = %d, want 3", job.ConflictsCreated)
	}

	conflicts, _, err := store.ListConflicts(ctx, catalog.ConflictFilter{}, 0, 10)
	if err != nil {
		t.Fatalf("ListConflicts: %v", err)
	}
	if len(conflicts) != 3 {
		t.Fatalf("len(conflicts) = %d, want 3", len(conflicts))
	}
	// Newest first: conflict rows must have been inserted in ascending
	// group order regardless of map iteration during the scan.
	for i := 1; i < len(conflicts); i++ {
		if conflicts[i-1].GroupID <= conflicts[i].GroupID {
			t.Fatalf("conflict order not aligned with group order: %d before %d",
				conflicts[i-1].GroupID, conflicts[i].GroupID)
		}
	}
}

func TestIncrementalScanMovesRetitledWork(t *testing.T) {
	store, runner := newHarness(t)
	ctx := context.Background()

	testsupport.NewWork(t, store, &catalog.Work{
		AccountID: "acct-north",
		Title:     "Paper Boats",
		Chain:     testsupport.SoleOwnershipChain("writer-a", "pub-a", 60),
	})
	moved := testsupport.NewWork(t, store, &catalog.Work{
		AccountID: "acct-south",
		Title:     "Paper Boats",
		Chain:     testsupport.SoleOwnershipChain("writer-b", "pub-b", 30),
	})

	if _, err := runner.Run(ctx, catalog.JobFullScan); err != nil {
		t.Fatalf("full scan: %v", err)
	}
	shared, err := store.GroupByFingerprint(ctx, "title:paper boats")
	if err != nil || shared == nil {
		t.Fatalf("shared group lookup: %v (%v)", shared, err)
	}
	if shared.MemberCount != 2 {
		t.Fatalf("shared group MemberCount = %d, want 2", shared.MemberCount)
	}

	moved.Title = "Stone Boats"
	if err := store.UpdateWork(ctx, moved); err != nil {
		t.Fatalf("UpdateWork: %v", err)
	}
	if _, err := runner.Run(ctx, catalog.JobIncremental); err != nil {
		t.Fatalf("incremental scan: %v", err)
	}

	// The old group loses the work and its rollup shrinks accordingly.
	old, err := store.GroupByFingerprint(ctx, "title:paper boats")
	if err != nil || old == nil {
		t.Fatalf("old group after incremental: %v (%v)", old, err)
	}
	if old.MemberCount != 1 {
		t.Fatalf("old group MemberCount = %d, want 1", old.MemberCount)
	}
	fresh, err := store.GroupByFingerprint(ctx, "title:stone boats")
	if err != nil || fresh == nil {
		t.Fatalf("new group after incremental: %v (%v)", fresh, err)
	}
	if fresh.MemberCount != 1 {
		t.Fatalf("new group MemberCount = %d, want 1", fresh.MemberCount)
	}

	groups, err := store.GroupsForWork(ctx, moved.ID)
	if err != nil {
		t.Fatalf("GroupsForWork: %v", err)
	}
	if len(groups) != 1 || groups[0] != fresh.ID {
		t.Fatalf("GroupsForWork = %v, want only %d", groups, fresh.ID)
	}
}
