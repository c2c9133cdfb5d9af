package entity

import (
	"testing"

	"github.com/cockroachdb/errors"
)

func TestRegistryCoversClosedSet(t *testing.T) {
	reg := NewRegistry()
	for _, n := range Names {
		e := reg.Get(n)
		if e == nil {
			t.Fatalf("no entry for %q", n)
		}
		if e.Name != n {
			t.Errorf("entry %q has name %q", n, e.Name)
		}
		if e.Attribute("id") == nil {
			t.Errorf("entry %q has no id attribute", n)
		}
	}
	if len(reg.Entries()) != 8 {
		t.Fatalf("expected 8 entries, got %d", len(reg.Entries()))
	}
}

func TestLookupUnknownEntity(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"", "invoices", "Meetings", "meeting"} {
		_, err := reg.Lookup(name)
		if !errors.Is(err, ErrUnknownEntity) {
			t.Errorf("Lookup(%q): expected ErrUnknownEntity, got %v", name, err)
		}
	}
}

func TestRelationsDerivedFromForeignKeys(t *testing.T) {
	meetings := NewRegistry().Get(Meetings)

	cycle := meetings.Relation("cycle")
	if cycle == nil {
		t.Fatal("meetings has no cycle relation")
	}
	if cycle.Target != Cycles {
		t.Fatalf("cycle relation targets %q", cycle.Target)
	}
	if cycle.Via.Column != "cycle_id" {
		t.Fatalf("cycle relation column %q", cycle.Via.Column)
	}
	if meetings.Relation("branch") != nil {
		t.Fatal("meetings should not have a direct branch relation")
	}
}

func TestDefaultIncludesResolve(t *testing.T) {
	reg := NewRegistry()
	for _, e := range reg.Entries() {
		checkIncludes(t, reg, e, e.Includes)
	}

	meetings := reg.Get(Meetings)
	if len(meetings.Includes) != 2 || meetings.Includes[0].Relation != "cycle" {
		t.Fatalf("unexpected meetings includes: %+v", meetings.Includes)
	}
	if len(meetings.Includes[0].Children) != 2 {
		t.Fatalf("meetings.cycle should include branch and course")
	}
}

func checkIncludes(t *testing.T, reg *Registry, e *Entry, incs []Include) {
	t.Helper()
	for _, inc := range incs {
		rel := e.Relation(inc.Relation)
		if rel == nil {
			t.Fatalf("%s: include %q is not a relation", e.Name, inc.Relation)
		}
		checkIncludes(t, reg, reg.Get(rel.Target), inc.Children)
	}
}

func TestCatalogueHidesID(t *testing.T) {
	for _, a := range NewRegistry().Get(Cycles).Catalogue() {
		if a.Type == AttrID {
			t.Fatalf("catalogue exposes id attribute %q", a.Name)
		}
	}
}

func TestSnake(t *testing.T) {
	cases := map[string]string{
		"branchId":        "branch_id",
		"name":            "name",
		"pricePerStudent": "price_per_student",
		"durationMinutes": "duration_minutes",
		"createdAt":       "created_at",
	}
	for in, want := range cases {
		if got := snake(in); got != want {
			t.Errorf("snake(%q) = %q, want %q", in, got, want)
		}
	}
}
