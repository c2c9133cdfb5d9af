package view

import (
	"context"
	"math"
	"strconv"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/atlekbai/crm_backoffice/internal/entity"
	"github.com/atlekbai/crm_backoffice/internal/filter"
)

func validInput() Input {
	return Input{
		Name:    "  Registrations over 100  ",
		Entity:  "registrations",
		Columns: []string{"invoiceNumber", "amount"},
		Filters: []filter.Predicate{
			{Field: "amount", Op: filter.OpGte, Value: filter.Scalar{V: 100.0}},
			{Field: "cycle.branchId", Op: filter.OpContains, Value: filter.Scalar{V: "Haifa"}},
		},
		SortBy:    new("student.name"),
		SortOrder: new("DESC"),
	}
}

func TestValidateAccepts(t *testing.T) {
	in := validInput()
	v, err := in.Validate(reg)
	if err != nil {
		t.Fatal(err)
	}
	if v.Name != "Registrations over 100" {
		t.Errorf("name not trimmed: %q", v.Name)
	}
	if v.Entity != entity.Registrations {
		t.Errorf("entity = %s", v.Entity)
	}
	if v.SortOrder == nil || *v.SortOrder != filter.Desc {
		t.Errorf("sort order = %v", v.SortOrder)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		field  string
		mutate func(*Input)
	}{
		{"empty name", "name", func(in *Input) { in.Name = " " }},
		{"unknown entity", "entity", func(in *Input) { in.Entity = "invoices" }},
		{"no columns", "columns", func(in *Input) { in.Columns = nil }},
		{"blank column", "columns", func(in *Input) { in.Columns = []string{"amount", ""} }},
		{"bad sort order", "sortOrder", func(in *Input) { in.SortOrder = new("sideways") }},
		{"unknown sort field", "sortBy", func(in *Input) { in.SortBy = new("nope") }},
		{"deep sort field", "sortBy", func(in *Input) { in.SortBy = new("cycle.branch.name") }},
		{"empty filter field", "filters[0].field", func(in *Input) { in.Filters[0].Field = "" }},
		{"deep filter field", "filters[1].field", func(in *Input) { in.Filters[1].Field = "cycle.branch.city" }},
		{"unknown relation", "filters[1].field", func(in *Input) { in.Filters[1].Field = "tutor.name" }},
		{"list operand for gt", "filters[0].value", func(in *Input) {
			in.Filters[0].Op = filter.OpGt
			in.Filters[0].Value = filter.List{Values: []any{1.0, 2.0}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			_, err := in.Validate(reg)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tt.field {
				t.Fatalf("field = %s, want %s", verr.Field, tt.field)
			}
		})
	}
}

func TestValidateEmptySortIsUnsorted(t *testing.T) {
	in := validInput()
	in.SortBy = new("")
	v, err := in.Validate(reg)
	if err != nil {
		t.Fatal(err)
	}
	if v.SortBy != nil || v.Order() != nil {
		t.Fatalf("expected no sort, got %v", v.SortBy)
	}
}

func TestServiceOwnership(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newTestStore(t), reg)

	in := validInput()
	in.IsPublic = true
	v, err := svc.Create(ctx, alice, in)
	if err != nil {
		t.Fatal(err)
	}
	if v.CreatedBy != alice || v.Creator == nil || v.Creator.Name != "Alice Levi" {
		t.Fatalf("unexpected creator %+v / %+v", v.CreatedBy, v.Creator)
	}

	if _, err := svc.Get(ctx, v.ID, bob); err != nil {
		t.Fatalf("public view hidden from bob: %v", err)
	}
	if _, err := svc.Update(ctx, v.ID, bob, in); !errors.Is(err, ErrForbidden) {
		t.Fatalf("bob updated alice's view: %v", err)
	}
	if err := svc.Delete(ctx, v.ID, bob); !errors.Is(err, ErrForbidden) {
		t.Fatalf("bob deleted alice's view: %v", err)
	}
	if _, err := svc.Update(ctx, uuid.New(), alice, in); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	in.Name = "Renamed"
	in.IsPublic = false
	updated, err := svc.Update(ctx, v.ID, alice, in)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Name != "Renamed" || !updated.CreatedAt.Equal(v.CreatedAt) {
		t.Fatalf("update result %+v", updated)
	}
	if _, err := svc.Get(ctx, v.ID, bob); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden once private, got %v", err)
	}

	if err := svc.Delete(ctx, v.ID, alice); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Get(ctx, v.ID, alice); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestServiceListRejectsUnknownEntity(t *testing.T) {
	svc := NewService(newTestStore(t), reg)
	if _, err := svc.List(context.Background(), alice, "invoices"); !errors.Is(err, entity.ErrUnknownEntity) {
		t.Fatalf("expected ErrUnknownEntity, got %v", err)
	}
}

func TestServiceFields(t *testing.T) {
	svc := NewService(newTestStore(t), reg)
	attrs, err := svc.Fields("meetings")
	if err != nil {
		t.Fatal(err)
	}
	for _, a := range attrs {
		if a.Name == "id" {
			t.Fatal("catalogue exposes the primary key")
		}
	}
	if _, err := svc.Fields("nope"); !errors.Is(err, entity.ErrUnknownEntity) {
		t.Fatalf("expected ErrUnknownEntity, got %v", err)
	}
}

func TestPagination(t *testing.T) {
	tests := []struct {
		page  Page
		total int64
		want  Pagination
	}{
		{Page{1, 50}, 0, Pagination{Page: 1, Limit: 50}},
		{Page{1, 50}, 50, Pagination{Page: 1, Limit: 50, Total: 50, TotalPages: 1}},
		{Page{1, 50}, 51, Pagination{Page: 1, Limit: 50, Total: 51, TotalPages: 2, HasNext: true}},
		{Page{2, 50}, 51, Pagination{Page: 2, Limit: 50, Total: 51, TotalPages: 2, HasPrev: true}},
		{Page{5, 10}, 20, Pagination{Page: 5, Limit: 10, Total: 20, TotalPages: 2, HasPrev: true}},
	}
	for _, tt := range tests {
		if got := NewPagination(tt.page, tt.total); got != tt.want {
			t.Errorf("NewPagination(%+v, %d) = %+v, want %+v", tt.page, tt.total, got, tt.want)
		}
	}
}

func TestParsePage(t *testing.T) {
	p, err := ParsePage("", "", DefaultLimit, MaxLimit)
	if err != nil || p != (Page{Page: 1, Limit: 50}) {
		t.Fatalf("defaults = %+v, %v", p, err)
	}
	p, err = ParsePage("3", "1000", DefaultLimit, MaxLimit)
	if err != nil || p != (Page{Page: 3, Limit: 200}) {
		t.Fatalf("clamped = %+v, %v", p, err)
	}
	if p.Offset() != 400 {
		t.Fatalf("offset = %d", p.Offset())
	}
	for _, bad := range [][2]string{{"0", ""}, {"x", ""}, {"", "-1"}, {"", "ten"}, {"9223372036854775807", "50"}} {
		if _, err := ParsePage(bad[0], bad[1], DefaultLimit, MaxLimit); err == nil {
			t.Errorf("ParsePage(%q, %q) accepted", bad[0], bad[1])
		}
	}

	last := strconv.Itoa(math.MaxInt / MaxLimit)
	p, err = ParsePage(last, "200", DefaultLimit, MaxLimit)
	if err != nil || p.Offset() < 0 {
		t.Fatalf("last page = %+v (offset %d), %v", p, p.Offset(), err)
	}
}
