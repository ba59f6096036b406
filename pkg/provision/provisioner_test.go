package provision

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-fieldvisit/pkg/store"
	"github.com/goliatone/go-fieldvisit/pkg/testsupport"
)

const rootID = "root"

func fastProvisioner(t *testing.T, files store.Files) *Provisioner {
	t.Helper()
	p, err := NewProvisioner(files, WithRetry(3, time.Millisecond, 5*time.Millisecond))
	if err != nil {
		t.Fatalf("new provisioner: %v", err)
	}
	return p
}

func TestResolveCreatesMissingSegments(t *testing.T) {
	files := testsupport.NewFakeFiles(rootID)
	p := fastProvisioner(t, files)

	ids, err := p.Resolve(context.Background(), rootID, "SchoolA", "2024", "March", "2024-03-05")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(ids) != 4 {
		t.Fatalf("expected 4 ids, got %v", ids)
	}
	if files.CreateCalls != 4 {
		t.Fatalf("expected 4 creates, got %d", files.CreateCalls)
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	files := testsupport.NewFakeFiles(rootID)
	p := fastProvisioner(t, files)
	ctx := context.Background()
	path := []string{"SchoolA", "2024", "March", "2024-03-05"}

	first, err := p.Resolve(ctx, rootID, path...)
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	second, err := p.Resolve(ctx, rootID, path...)
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("resolve not idempotent (-first +second):\n%s", diff)
	}
	if files.CreateCalls != 4 {
		t.Fatalf("expected no extra creates on re-resolve, got %d", files.CreateCalls)
	}
	// Exactly one folder per segment in the store.
	if n := files.ChildrenNamed(rootID, "SchoolA"); n != 1 {
		t.Fatalf("expected exactly one SchoolA folder, got %d", n)
	}
}

func TestResolveConvergesAcrossProvisioners(t *testing.T) {
	// Two independent sessions (separate caches) resolving the same path must
	// not create sibling duplicates.
	files := testsupport.NewFakeFiles(rootID)
	a := fastProvisioner(t, files)
	b := fastProvisioner(t, files)
	ctx := context.Background()
	path := []string{"SchoolA", "2024", "March"}

	idsA, err := a.Resolve(ctx, rootID, path...)
	if err != nil {
		t.Fatalf("resolve a: %v", err)
	}
	idsB, err := b.Resolve(ctx, rootID, path...)
	if err != nil {
		t.Fatalf("resolve b: %v", err)
	}
	if diff := cmp.Diff(idsA, idsB); diff != "" {
		t.Fatalf("sessions diverged (-a +b):\n%s", diff)
	}
}

func TestGetOrCreateExistingFolderIssuesNoCreate(t *testing.T) {
	files := testsupport.NewFakeFiles(rootID)
	monthID := files.InsertFolder(rootID, "2024-03-05")
	p := fastProvisioner(t, files)

	ids, err := p.Resolve(context.Background(), rootID, "2024-03-05")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if ids[0] != monthID {
		t.Fatalf("expected existing folder id %s, got %s", monthID, ids[0])
	}
	if files.CreateCalls != 0 {
		t.Fatalf("expected zero create calls, got %d", files.CreateCalls)
	}
}

func TestDuplicateSiblingsPickFirstByListingOrder(t *testing.T) {
	files := testsupport.NewFakeFiles(rootID)
	firstID := files.InsertFolder(rootID, "SchoolA")
	files.InsertFolder(rootID, "SchoolA")
	p := fastProvisioner(t, files)

	ids, err := p.Resolve(context.Background(), rootID, "SchoolA")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if ids[0] != firstID {
		t.Fatalf("expected first duplicate %s, got %s", firstID, ids[0])
	}
	if files.CreateCalls != 0 {
		t.Fatalf("duplicates must not trigger another create, got %d creates", files.CreateCalls)
	}
}

func TestUnknownCreateOutcomeRechecksBeforeRetry(t *testing.T) {
	files := testsupport.NewFakeFiles(rootID)
	// First create "times out" but actually lands; a blind retry would
	// duplicate the folder.
	files.FailCreatesBefore = 1
	files.CreateSucceedsDespiteError = true
	p := fastProvisioner(t, files)

	ids, err := p.Resolve(context.Background(), rootID, "SchoolA")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if n := files.ChildrenNamed(rootID, "SchoolA"); n != 1 {
		t.Fatalf("expected exactly one folder after recovered timeout, got %d", n)
	}
	if ids[0] == "" {
		t.Fatal("expected the surviving folder id")
	}
}

func TestTransientCreateRetriesWithinBudget(t *testing.T) {
	files := testsupport.NewFakeFiles(rootID)
	files.FailCreatesBefore = 2 // fail, fail, then succeed
	p := fastProvisioner(t, files)

	if _, err := p.Resolve(context.Background(), rootID, "SchoolA"); err != nil {
		t.Fatalf("expected retries to recover, got %v", err)
	}
}

func TestTransientFailureExhaustsBudget(t *testing.T) {
	files := testsupport.NewFakeFiles(rootID)
	files.ListErr = store.NewError(store.KindTransient, "list children", rootID, nil)
	p := fastProvisioner(t, files)

	_, err := p.Resolve(context.Background(), rootID, "SchoolA")
	if !store.IsTransient(err) {
		t.Fatalf("expected surfaced transient error, got %v", err)
	}
	if files.ListCalls != 4 {
		t.Fatalf("expected initial call plus 3 retries, got %d", files.ListCalls)
	}
}

func TestPermissionErrorIsNotRetried(t *testing.T) {
	files := testsupport.NewFakeFiles(rootID)
	files.ListErr = store.NewError(store.KindPermission, "list children", rootID, nil)
	p := fastProvisioner(t, files)

	_, err := p.Resolve(context.Background(), rootID, "SchoolA")
	if !store.IsPermission(err) {
		t.Fatalf("expected permission error, got %v", err)
	}
	if files.ListCalls != 1 {
		t.Fatalf("permission errors must not be retried, got %d calls", files.ListCalls)
	}
}

func TestMissingRootIsNotFound(t *testing.T) {
	files := testsupport.NewFakeFiles(rootID)
	p := fastProvisioner(t, files)

	_, err := p.Resolve(context.Background(), "no-such-root", "SchoolA")
	if !store.IsNotFound(err) {
		t.Fatalf("expected not-found for missing root, got %v", err)
	}
}

func TestStaleCacheEntryIsRevalidated(t *testing.T) {
	files := testsupport.NewFakeFiles(rootID)
	p := fastProvisioner(t, files)
	ctx := context.Background()

	first, err := p.Resolve(ctx, rootID, "SchoolA", "2024")
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	// The resolved folders disappear behind the cache; extending the path
	// hits the stale ids and must recover by re-resolving them fresh.
	files.RemoveNode(first[0])
	files.RemoveNode(first[1])

	second, err := p.Resolve(ctx, rootID, "SchoolA", "2024", "March")
	if err != nil {
		t.Fatalf("re-resolve after external delete: %v", err)
	}
	if second[0] == first[0] || second[1] == first[1] {
		t.Fatalf("expected freshly created folder ids, got %v after %v", second, first)
	}
}

func TestForgetDropsCachedPath(t *testing.T) {
	files := testsupport.NewFakeFiles(rootID)
	p := fastProvisioner(t, files)
	ctx := context.Background()

	first, err := p.Resolve(ctx, rootID, "SchoolA")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	files.RemoveNode(first[0])
	p.Forget(rootID, "SchoolA")

	second, err := p.Resolve(ctx, rootID, "SchoolA")
	if err != nil {
		t.Fatalf("resolve after forget: %v", err)
	}
	if second[0] == first[0] {
		t.Fatal("expected cache entry to be dropped and folder recreated")
	}
}

func TestDatePath(t *testing.T) {
	visited := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)
	want := []string{"SchoolA", "2024", "March", "2024-03-05"}
	if diff := cmp.Diff(want, DatePath("SchoolA", visited)); diff != "" {
		t.Fatalf("date path mismatch (-want +got):\n%s", diff)
	}
}

func TestRetryPolicyDelaysAreBoundedAndExponential(t *testing.T) {
	r := retryPolicy{attempts: 5, base: 100 * time.Millisecond, max: 500 * time.Millisecond}
	if got := r.delay(1); got != 100*time.Millisecond {
		t.Fatalf("attempt 1 delay: %v", got)
	}
	if got := r.delay(2); got != 200*time.Millisecond {
		t.Fatalf("attempt 2 delay: %v", got)
	}
	if got := r.delay(4); got != 500*time.Millisecond {
		t.Fatalf("attempt 4 delay must cap at max, got %v", got)
	}
}
