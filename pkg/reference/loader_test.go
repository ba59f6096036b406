package reference_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-fieldvisit/pkg/reference"
	"github.com/goliatone/go-fieldvisit/pkg/store"
	"github.com/goliatone/go-fieldvisit/pkg/testsupport"
)

const tableID = "sheet-1"

func seedTabular() *testsupport.FakeTabular {
	return testsupport.NewFakeTabular(map[string][][]string{
		tableID + "|" + reference.DefaultSchoolsRange: {
			{"Program Manager", "School Name", "District", "Block"},
			{"Asha", "Oak", "North", "B1"},
			{"Asha", "Pine", "North", "B2"},
			{"Ravi", "Maple", "South", "B3"},
			// Duplicate school row: later assignment wins.
			{"Ravi", "Oak", "South", "B4"},
		},
		tableID + "|" + reference.DefaultTeachersRange: {
			{"School Name", "Teacher Name", "Is Trained"},
			{"Oak", "Meena", "Yes"},
			{"Oak", "Sunil", "No"},
			{"Pine", "Lata", "yes"},
		},
	})
}

func TestLoadBuildsSortedIndexes(t *testing.T) {
	loader, err := reference.NewLoader(seedTabular(), tableID)
	if err != nil {
		t.Fatalf("new loader: %v", err)
	}

	ds, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if diff := cmp.Diff([]string{"Asha", "Ravi"}, ds.ProgramManagers()); diff != "" {
		t.Fatalf("program managers mismatch (-want +got):\n%s", diff)
	}
	// Oak moved to Ravi because the later row wins.
	if diff := cmp.Diff([]string{"Pine"}, ds.SchoolsFor("Asha")); diff != "" {
		t.Fatalf("schools for Asha mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Maple", "Oak"}, ds.SchoolsFor("Ravi")); diff != "" {
		t.Fatalf("schools for Ravi mismatch (-want +got):\n%s", diff)
	}

	pm, ok := ds.ManagerFor("Oak")
	if !ok || pm != "Ravi" {
		t.Fatalf("expected Oak to resolve to Ravi, got %q (known=%v)", pm, ok)
	}

	want := []reference.Teacher{
		{Name: "Meena", Trained: true},
		{Name: "Sunil", Trained: false},
	}
	if diff := cmp.Diff(want, ds.TeachersFor("Oak")); diff != "" {
		t.Fatalf("teachers mismatch (-want +got):\n%s", diff)
	}
}

func TestSchoolsForUnknownManagerIsEmptyNotError(t *testing.T) {
	loader, err := reference.NewLoader(seedTabular(), tableID)
	if err != nil {
		t.Fatalf("new loader: %v", err)
	}
	ds, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if got := ds.SchoolsFor("nobody"); len(got) != 0 {
		t.Fatalf("expected empty slice for unknown manager, got %v", got)
	}
}

func TestLoadEmptySchoolsIsUnavailable(t *testing.T) {
	tab := testsupport.NewFakeTabular(map[string][][]string{
		tableID + "|" + reference.DefaultSchoolsRange: {
			{"Program Manager", "School Name"},
		},
	})
	loader, err := reference.NewLoader(tab, tableID)
	if err != nil {
		t.Fatalf("new loader: %v", err)
	}

	_, err = loader.Load(context.Background())
	if !store.IsUnavailable(err) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
}

func TestLoadUnreachableStoreIsUnavailable(t *testing.T) {
	tab := seedTabular()
	tab.ReadErr = store.NewError(store.KindTransient, "read", tableID, nil)

	loader, err := reference.NewLoader(tab, tableID)
	if err != nil {
		t.Fatalf("new loader: %v", err)
	}
	_, err = loader.Load(context.Background())
	if !store.IsUnavailable(err) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
}

func TestLoadAuthFailurePassesThrough(t *testing.T) {
	tab := seedTabular()
	tab.ReadErr = store.NewError(store.KindAuth, "read", tableID, nil)

	loader, err := reference.NewLoader(tab, tableID)
	if err != nil {
		t.Fatalf("new loader: %v", err)
	}
	_, err = loader.Load(context.Background())
	if !store.IsAuth(err) {
		t.Fatalf("expected auth error to pass through, got %v", err)
	}
}

func TestLoadMissingColumnIsSchemaError(t *testing.T) {
	tab := testsupport.NewFakeTabular(map[string][][]string{
		tableID + "|" + reference.DefaultSchoolsRange: {
			{"Manager", "School Name"},
			{"Asha", "Oak"},
		},
	})
	loader, err := reference.NewLoader(tab, tableID)
	if err != nil {
		t.Fatalf("new loader: %v", err)
	}
	_, err = loader.Load(context.Background())
	if !store.IsSchema(err) {
		t.Fatalf("expected schema error, got %v", err)
	}
}

func TestLoadMissingTeachersSheetIsTolerated(t *testing.T) {
	tab := testsupport.NewFakeTabular(map[string][][]string{
		tableID + "|" + reference.DefaultSchoolsRange: {
			{"Program Manager", "School Name"},
			{"Asha", "Oak"},
		},
	})
	loader, err := reference.NewLoader(tab, tableID)
	if err != nil {
		t.Fatalf("new loader: %v", err)
	}
	ds, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := ds.TeachersFor("Oak"); len(got) != 0 {
		t.Fatalf("expected no teachers, got %v", got)
	}
}
