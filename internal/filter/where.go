package filter

import (
	"maps"
	"strings"

	"github.com/atlekbai/crm_backoffice/internal/path"
)

// Comparator is one key of a compiled field condition.
type Comparator string

const (
	CmpEquals   Comparator = "equals"
	CmpContains Comparator = "contains"
	CmpGt       Comparator = "gt"
	CmpGte      Comparator = "gte"
	CmpLt       Comparator = "lt"
	CmpLte      Comparator = "lte"
	CmpIn       Comparator = "in"
	CmpNotIn    Comparator = "notIn"
	CmpNull     Comparator = "null" // true: IS NULL, false: IS NOT NULL
)

// Comparators lists every comparator in translation order.
var Comparators = []Comparator{
	CmpEquals, CmpContains, CmpGt, CmpGte, CmpLt, CmpLte, CmpIn, CmpNotIn, CmpNull,
}

// Cond is the compiled condition on a single field, e.g. {gte: 100, lte: 500}.
type Cond map[Comparator]any

// Merge returns the key union of c and next; keys in next win.
func (c Cond) Merge(next Cond) Cond {
	out := make(Cond, len(c)+len(next))
	maps.Copy(out, c)
	maps.Copy(out, next)
	return out
}

// Where is a conjunctive filter expression: field paths mapped to conditions,
// nested under relation names for dotted fields.
type Where = path.Tree[Cond]

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection accepts "asc" or "desc" in any case; empty means asc.
func ParseDirection(s string) (Direction, bool) {
	switch Direction(strings.ToLower(s)) {
	case "", Asc:
		return Asc, true
	case Desc:
		return Desc, true
	}
	return "", false
}

// Order is a nested ordering clause, e.g. {cycle: {branchId: desc}}.
type Order = path.Tree[Direction]

// SortBy builds the ordering clause for a flat or dotted sort field.
func SortBy(field string, dir Direction) Order {
	if field == "" {
		return nil
	}
	return path.Nest(field, dir)
}
