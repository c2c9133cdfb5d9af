// Package view stores saved views and executes them against CRM records.
package view

import (
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/atlekbai/crm_backoffice/internal/entity"
	"github.com/atlekbai/crm_backoffice/internal/filter"
	"github.com/atlekbai/crm_backoffice/internal/path"
)

var (
	ErrNotFound  = errors.New("view not found")
	ErrForbidden = errors.New("view belongs to another user")
)

// MaxPathDepth bounds dotted filter and sort fields to one relation hop.
const MaxPathDepth = 2

// ValidationError reports a malformed view definition or request parameter.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// View is a saved, named query over one entity.
type View struct {
	ID        uuid.UUID          `json:"id"`
	Name      string             `json:"name"`
	Entity    entity.Name        `json:"entity"`
	Filters   []filter.Predicate `json:"filters"`
	Columns   []string           `json:"columns"`
	SortBy    *string            `json:"sortBy"`
	SortOrder *filter.Direction  `json:"sortOrder"`
	IsDefault bool               `json:"isDefault"`
	IsPublic  bool               `json:"isPublic"`
	CreatedBy uuid.UUID          `json:"createdBy"`
	Creator   *Creator           `json:"creator,omitempty"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// Creator holds the display fields of the user who owns a view.
type Creator struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// VisibleTo returns true if requester may read the view.
func (v *View) VisibleTo(requester uuid.UUID) bool {
	return v.IsPublic || v.CreatedBy == requester
}

// Order returns the ordering clause of the view, or nil when unsorted.
func (v *View) Order() filter.Order {
	if v.SortBy == nil {
		return nil
	}
	dir := filter.Asc
	if v.SortOrder != nil {
		dir = *v.SortOrder
	}
	return filter.SortBy(*v.SortBy, dir)
}

// Input is the body of create and update requests.
type Input struct {
	Name      string             `json:"name"`
	Entity    string             `json:"entity"`
	Filters   []filter.Predicate `json:"filters"`
	Columns   []string           `json:"columns"`
	SortBy    *string            `json:"sortBy"`
	SortOrder *string            `json:"sortOrder"`
	IsDefault bool               `json:"isDefault"`
	IsPublic  bool               `json:"isPublic"`
}

// Validate checks the definition against the registry and returns the view
// it describes. Identity, ownership and timestamps are left unset.
func (in *Input) Validate(reg *entity.Registry) (*View, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid("name", "must not be empty")
	}

	entry, err := reg.Lookup(in.Entity)
	if err != nil {
		return nil, invalid("entity", "%q is not one of %v", in.Entity, entity.Names)
	}

	if len(in.Columns) == 0 {
		return nil, invalid("columns", "at least one column is required")
	}
	for i, c := range in.Columns {
		if strings.TrimSpace(c) == "" {
			return nil, invalid("columns", "column %d is empty", i)
		}
	}

	filters := in.Filters
	if filters == nil {
		filters = []filter.Predicate{}
	}
	for i, p := range filters {
		if err := checkField(reg, entry, p.Field); err != nil {
			return nil, invalid(fmt.Sprintf("filters[%d].field", i), "%s", err)
		}
		if _, isList := p.Value.(filter.List); isList && p.Op.Ordered() {
			return nil, invalid(fmt.Sprintf("filters[%d].value", i), "%s takes a single value, not a list", p.Op)
		}
	}

	v := &View{
		Name:      name,
		Entity:    entry.Name,
		Filters:   filters,
		Columns:   in.Columns,
		IsDefault: in.IsDefault,
		IsPublic:  in.IsPublic,
	}

	if in.SortBy != nil && *in.SortBy != "" {
		if err := checkField(reg, entry, *in.SortBy); err != nil {
			return nil, invalid("sortBy", "%s", err)
		}
		sortBy := *in.SortBy
		v.SortBy = &sortBy
	}
	if in.SortOrder != nil {
		dir, ok := filter.ParseDirection(*in.SortOrder)
		if !ok {
			return nil, invalid("sortOrder", "%q must be asc or desc", *in.SortOrder)
		}
		v.SortOrder = &dir
	}
	return v, nil
}

// checkField verifies that field names an attribute of entry, directly or
// through one relation.
func checkField(reg *entity.Registry, entry *entity.Entry, field string) error {
	if field == "" {
		return errors.New("must not be empty")
	}
	if path.Depth(field) > MaxPathDepth {
		return errors.Newf("%q is nested deeper than %d levels", field, MaxPathDepth)
	}

	segs := path.Split(field)
	if len(segs) == 1 {
		if entry.Attribute(field) == nil {
			return errors.Newf("%s has no attribute %q", entry.Name, field)
		}
		return nil
	}
	rel := entry.Relation(segs[0])
	if rel == nil {
		return errors.Newf("%s has no relation %q", entry.Name, segs[0])
	}
	if reg.Get(rel.Target).Attribute(segs[1]) == nil {
		return errors.Newf("%s has no attribute %q", rel.Target, segs[1])
	}
	return nil
}
