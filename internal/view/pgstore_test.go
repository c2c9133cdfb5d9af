package view

import (
	"strings"
	"testing"

	"github.com/atlekbai/crm_backoffice/internal/entity"
)

func TestClearDefaultsSQL(t *testing.T) {
	v := testView(alice, "Default", entity.Meetings)
	sqlStr, args, err := ClearDefaultsSQL(v)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		`UPDATE "crm"."saved_views" SET "is_default" = $1, "updated_at" = $2`,
		`"created_by" = $3`,
		`"entity" = $4`,
		`"is_default" = $5`,
		`"id" <> $6`,
	} {
		if !strings.Contains(sqlStr, want) {
			t.Errorf("missing %q in %s", want, sqlStr)
		}
	}
	if len(args) != 6 || args[2] != alice.String() || args[3] != "meetings" || args[5] != v.ID.String() {
		t.Fatalf("args = %v", args)
	}
}

func TestEncodeLists(t *testing.T) {
	v := testView(alice, "Lists", entity.Meetings)
	filters, columns, err := encodeLists(v)
	if err != nil {
		t.Fatal(err)
	}
	if filters != `[{"field":"status","operator":"equals","value":"scheduled"}]` {
		t.Errorf("filters = %s", filters)
	}
	if columns != `["scheduledDate","topic"]` {
		t.Errorf("columns = %s", columns)
	}
	if sortOrder(v) != nil {
		t.Error("unsorted view has a sort order")
	}
}
