package catalog_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"cadenza/internal/catalog"
	"cadenza/internal/testsupport"
)

func TestOpenAppliesSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	work := testsupport.NewWork(t, store, &catalog.Work{
		AccountID: "acct-a",
		Title:     "Night Drive",
		ISWC:      "T-034.524.680-1",
		Chain:     testsupport.SoleOwnershipChain("W-1", "P-1", 50),
	})
	if work.ID == 0 {
		t.Fatal("expected work ID to be assigned")
	}
	if work.ISWC != "T0345246801" {
		t.Fatalf("ISWC should be normalized on insert, got %q", work.ISWC)
	}

	fetched, err := store.GetWork(ctx, work.ID)
	if err != nil {
		t.Fatalf("GetWork failed: %v", err)
	}
	if fetched == nil || fetched.Title != "Night Drive" {
		t.Fatalf("unexpected fetched work: %#v", fetched)
	}
	if len(fetched.Chain) != 1 || len(fetched.Chain[0].Nodes) != 2 {
		t.Fatalf("chain did not survive round trip: %#v", fetched.Chain)
	}
}

func TestListWorksSinceWatermark(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	old := testsupport.NewWork(t, store, &catalog.Work{AccountID: "acct-a", Title: "Old Work"})
	cutoff := time.Now().UTC()
	time.Sleep(5 * time.Millisecond)
	fresh := testsupport.NewWork(t, store, &catalog.Work{AccountID: "acct-a", Title: "Fresh Work"})

	works, err := store.ListWorks(ctx, &cutoff, 0, 10)
	if err != nil {
		t.Fatalf("ListWorks failed: %v", err)
	}
	if len(works) != 1 || works[0].ID != fresh.ID {
		t.Fatalf("expected only the fresh work, got %#v", works)
	}

	old.Title = "Old Work Revised"
	if err := store.UpdateWork(ctx, old); err != nil {
		t.Fatalf("UpdateWork failed: %v", err)
	}
	count, err := store.CountWorks(ctx, &cutoff)
	if err != nil {
		t.Fatalf("CountWorks failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("updated work should re-enter the watermark window, count = %d", count)
	}
}

func TestEnsureGroupAndMembership(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	group, created, err := store.EnsureGroup(ctx, "iswc:T0345246801")
	if err != nil {
		t.Fatalf("EnsureGroup failed: %v", err)
	}
	if !created {
		t.Fatal("first EnsureGroup should create")
	}
	again, created, err := store.EnsureGroup(ctx, "iswc:T0345246801")
	if err != nil {
		t.Fatalf("EnsureGroup failed: %v", err)
	}
	if created || again.ID != group.ID {
		t.Fatalf("second EnsureGroup should return the existing group")
	}

	work := testsupport.NewWork(t, store, &catalog.Work{AccountID: "acct-a", Title: "Night Drive"})
	added, err := store.AddGroupMember(ctx, group.ID, work.ID, work.AccountID)
	if err != nil {
		t.Fatalf("AddGroupMember failed: %v", err)
	}
	if !added {
		t.Fatal("first AddGroupMember should add")
	}
	added, err = store.AddGroupMember(ctx, group.ID, work.ID, work.AccountID)
	if err != nil {
		t.Fatalf("AddGroupMember failed: %v", err)
	}
	if added {
		t.Fatal("re-adding the same member should be a no-op")
	}

	ids, err := store.GroupMemberWorkIDs(ctx, group.ID)
	if err != nil {
		t.Fatalf("GroupMemberWorkIDs failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != work.ID {
		t.Fatalf("membership = %v", ids)
	}
}

func TestSweepEmptyGroupsKeepsConflictHistory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	populated, _, err := store.EnsureGroup(ctx, "iswc:T0345246801")
	if err != nil {
		t.Fatalf("EnsureGroup failed: %v", err)
	}
	work := testsupport.NewWork(t, store, &catalog.Work{AccountID: "acct-a", Title: "Night Drive"})
	if _, err := store.AddGroupMember(ctx, populated.ID, work.ID, work.AccountID); err != nil {
		t.Fatalf("AddGroupMember failed: %v", err)
	}

	// An emptied group with recorded conflicts keeps its row so the
	// history stays attached; only its rollups reset.
	orphaned, _, err := store.EnsureGroup(ctx, "title:glass field")
	if err != nil {
		t.Fatalf("EnsureGroup failed: %v", err)
	}
	orphaned.CanonicalTitle = "Glass Field"
	orphaned.MemberCount = 2
	orphaned.TotalClaimedOwnership = 120
	if err := store.UpdateGroupRollup(ctx, orphaned); err != nil {
		t.Fatalf("UpdateGroupRollup failed: %v", err)
	}
	if _, err := store.UpsertOpenConflict(ctx, &catalog.Conflict{
		GroupID:     orphaned.ID,
		Type:        catalog.ConflictOverclaim,
		Severity:    catalog.SeverityMedium,
		Description: "combined ownership totals 120%",
		Accounts:    []string{"acct-a", "acct-b"},
	}); err != nil {
		t.Fatalf("UpsertOpenConflict failed: %v", err)
	}

	disposable, _, err := store.EnsureGroup(ctx, "title:gone tomorrow")
	if err != nil {
		t.Fatalf("EnsureGroup failed: %v", err)
	}

	swept, err := store.SweepEmptyGroups(ctx)
	if err != nil {
		t.Fatalf("SweepEmptyGroups failed: %v", err)
	}
	if swept != 1 {
		t.Fatalf("swept = %d, want 1", swept)
	}

	gone, err := store.GetGroup(ctx, disposable.ID)
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}
	if gone != nil {
		t.Fatalf("conflict-free empty group should be deleted, got %#v", gone)
	}

	kept, err := store.GetGroup(ctx, orphaned.ID)
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}
	if kept == nil {
		t.Fatal("conflict-bearing group must survive the sweep")
	}
	if kept.MemberCount != 0 || kept.TotalClaimedOwnership != 0 {
		t.Fatalf("surviving empty group should have zeroed rollups: %#v", kept)
	}
	open, err := store.OpenConflict(ctx, orphaned.ID, catalog.ConflictOverclaim)
	if err != nil {
		t.Fatalf("OpenConflict failed: %v", err)
	}
	if open == nil {
		t.Fatal("conflict vanished with the sweep")
	}

	still, err := store.GetGroup(ctx, populated.ID)
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}
	if still == nil {
		t.Fatal("populated group must survive the sweep")
	}
}

func TestUpsertOpenConflictRevisesInPlace(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	group, _, err := store.EnsureGroup(ctx, "title:night drive")
	if err != nil {
		t.Fatalf("EnsureGroup failed: %v", err)
	}

	created, err := store.UpsertOpenConflict(ctx, &catalog.Conflict{
		GroupID:     group.ID,
		Type:        catalog.ConflictOverclaim,
		Severity:    catalog.SeverityLow,
		Description: "combined ownership totals 101%",
		Accounts:    []string{"acct-a", "acct-b"},
	})
	if err != nil {
		t.Fatalf("UpsertOpenConflict failed: %v", err)
	}
	if !created {
		t.Fatal("first upsert should create")
	}

	created, err = store.UpsertOpenConflict(ctx, &catalog.Conflict{
		GroupID:     group.ID,
		Type:        catalog.ConflictOverclaim,
		Severity:    catalog.SeverityHigh,
		Description: "combined ownership totals 130%",
		Accounts:    []string{"acct-a", "acct-b"},
	})
	if err != nil {
		t.Fatalf("UpsertOpenConflict failed: %v", err)
	}
	if created {
		t.Fatal("second upsert for the same open (group, type) must revise, not duplicate")
	}

	open, err := store.OpenConflict(ctx, group.ID, catalog.ConflictOverclaim)
	if err != nil {
		t.Fatalf("OpenConflict failed: %v", err)
	}
	if open == nil || open.Severity != catalog.SeverityHigh {
		t.Fatalf("expected revised severity, got %#v", open)
	}
}

func TestResolveConflictIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	group, _, err := store.EnsureGroup(ctx, "title:night drive")
	if err != nil {
		t.Fatalf("EnsureGroup failed: %v", err)
	}
	if _, err := store.UpsertOpenConflict(ctx, &catalog.Conflict{
		GroupID:     group.ID,
		Type:        catalog.ConflictOverclaim,
		Severity:    catalog.SeverityLow,
		Description: "combined ownership totals 101%",
		Accounts:    []string{"acct-a"},
	}); err != nil {
		t.Fatalf("UpsertOpenConflict failed: %v", err)
	}
	open, err := store.OpenConflict(ctx, group.ID, catalog.ConflictOverclaim)
	if err != nil {
		t.Fatalf("OpenConflict failed: %v", err)
	}

	changed, err := store.ResolveConflict(ctx, open.ID)
	if err != nil {
		t.Fatalf("ResolveConflict failed: %v", err)
	}
	if !changed {
		t.Fatal("first resolve should change state")
	}
	changed, err = store.ResolveConflict(ctx, open.ID)
	if err != nil {
		t.Fatalf("second ResolveConflict failed: %v", err)
	}
	if changed {
		t.Fatal("second resolve must be a no-op")
	}
	if _, err := store.ResolveConflict(ctx, open.ID+999); !errors.Is(err, catalog.ErrConflictNotFound) {
		t.Fatalf("expected ErrConflictNotFound, got %v", err)
	}

	resolved, err := store.GetConflict(ctx, open.ID)
	if err != nil {
		t.Fatalf("GetConflict failed: %v", err)
	}
	if !resolved.Resolved || resolved.ResolvedAt == nil {
		t.Fatalf("conflict not marked resolved: %#v", resolved)
	}

	// A new finding for the same (group, type) opens a fresh conflict
	// instead of reviving the resolved one.
	created, err := store.UpsertOpenConflict(ctx, &catalog.Conflict{
		GroupID:     group.ID,
		Type:        catalog.ConflictOverclaim,
		Severity:    catalog.SeverityMedium,
		Description: "combined ownership totals 110%",
		Accounts:    []string{"acct-a"},
	})
	if err != nil {
		t.Fatalf("UpsertOpenConflict after resolve failed: %v", err)
	}
	if !created {
		t.Fatal("resolved conflicts must not be reopened")
	}
}

func TestJobLifecycleGuards(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job, err := store.CreateJob(ctx, catalog.JobFullScan)
	if err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}
	if job.Status != catalog.JobPending {
		t.Fatalf("new job status = %s", job.Status)
	}

	if err := store.FinishJob(ctx, job.ID, catalog.JobCompleted, ""); err == nil {
		t.Fatal("finishing a pending job must fail")
	}
	if err := store.StartJob(ctx, job.ID, 10); err != nil {
		t.Fatalf("StartJob failed: %v", err)
	}
	if err := store.StartJob(ctx, job.ID, 10); err == nil {
		t.Fatal("starting a running job must fail")
	}
	if err := store.FinishJob(ctx, job.ID, catalog.JobRunning, ""); err == nil {
		t.Fatal("FinishJob must reject non-terminal states")
	}
	if err := store.FinishJob(ctx, job.ID, catalog.JobCompleted, ""); err != nil {
		t.Fatalf("FinishJob failed: %v", err)
	}

	flagged, err := store.RequestJobCancel(ctx, job.ID)
	if err != nil {
		t.Fatalf("RequestJobCancel failed: %v", err)
	}
	if flagged {
		t.Fatal("cancelling a finished job must be rejected")
	}

	watermark, err := store.LastSuccessfulFinish(ctx)
	if err != nil {
		t.Fatalf("LastSuccessfulFinish failed: %v", err)
	}
	if watermark == nil {
		t.Fatal("expected a watermark after a completed job")
	}
}

func TestJobLeaseMutualExclusion(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	acquired, err := store.AcquireLease(ctx, "owner-1", 1, time.Minute)
	if err != nil {
		t.Fatalf("AcquireLease failed: %v", err)
	}
	if !acquired {
		t.Fatal("free lease should be acquirable")
	}

	acquired, err = store.AcquireLease(ctx, "owner-2", 2, time.Minute)
	if err != nil {
		t.Fatalf("AcquireLease failed: %v", err)
	}
	if acquired {
		t.Fatal("held lease must not be reacquired")
	}

	renewed, err := store.RenewLease(ctx, "owner-2", time.Minute)
	if err != nil {
		t.Fatalf("RenewLease failed: %v", err)
	}
	if renewed {
		t.Fatal("non-holders must not renew")
	}

	if err := store.ReleaseLease(ctx, "owner-1"); err != nil {
		t.Fatalf("ReleaseLease failed: %v", err)
	}
	acquired, err = store.AcquireLease(ctx, "owner-2", 2, time.Minute)
	if err != nil {
		t.Fatalf("AcquireLease after release failed: %v", err)
	}
	if !acquired {
		t.Fatal("released lease should be acquirable")
	}
}

func TestJobLeaseExpiryTakeover(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	acquired, err := store.AcquireLease(ctx, "stale-owner", 1, -time.Second)
	if err != nil {
		t.Fatalf("AcquireLease failed: %v", err)
	}
	if !acquired {
		t.Fatal("initial acquire failed")
	}

	acquired, err = store.AcquireLease(ctx, "new-owner", 2, time.Minute)
	if err != nil {
		t.Fatalf("takeover AcquireLease failed: %v", err)
	}
	if !acquired {
		t.Fatal("expired lease should be claimable by a new owner")
	}
}
