package query

import (
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/atlekbai/crm_backoffice/internal/entity"
	"github.com/atlekbai/crm_backoffice/internal/filter"
)

// DefaultOrder is applied when a view has no sort field: newest first.
var DefaultOrder = filter.SortBy("createdAt", filter.Desc)

// OrderBy translates an ordering clause into ORDER BY expressions. Sorting
// through a relation orders by the related record's column via a scalar
// subquery. The primary key is always appended as a tiebreaker so paging
// is stable.
func OrderBy(reg *entity.Registry, entry *entity.Entry, order filter.Order) ([]string, error) {
	if len(order) == 0 {
		order = DefaultOrder
	}

	var (
		clauses []string
		tieDir  = filter.Asc
	)
	for i, key := range order.Keys() {
		node := order[key]
		if node.HasLeaf {
			a := entry.Attribute(key)
			if a == nil {
				return nil, errors.Wrapf(ErrUnknownField, "sort by %s.%s", entry.Name, key)
			}
			clauses = append(clauses, fmt.Sprintf(`%s.%s %s`, qi(qAlias), qi(a.Column), sqlDir(node.Leaf)))
			if i == 0 {
				tieDir = node.Leaf
			}
		}
		if len(node.Sub) == 0 {
			continue
		}
		rel := entry.Relation(key)
		if rel == nil {
			return nil, errors.Wrapf(ErrUnknownField, "sort by %s.%s", entry.Name, key)
		}
		related, dir, err := relatedOrder(reg, rel, node.Sub)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, related...)
		if i == 0 {
			tieDir = dir
		}
	}

	clauses = append(clauses, fmt.Sprintf(`%s."id" %s`, qi(qAlias), sqlDir(tieDir)))
	return clauses, nil
}

func relatedOrder(reg *entity.Registry, rel *entity.Relation, sub filter.Order) ([]string, filter.Direction, error) {
	target := reg.Get(rel.Target)
	var (
		clauses []string
		first   = filter.Asc
	)
	for i, key := range sub.Keys() {
		node := sub[key]
		a := target.Attribute(key)
		if a == nil || !node.HasLeaf || len(node.Sub) > 0 {
			return nil, "", errors.Wrapf(ErrUnknownField, "sort by %s.%s", rel.Name, key)
		}
		clauses = append(clauses, fmt.Sprintf(`(SELECT _o.%s FROM %s _o WHERE _o."id" = %s.%s) %s`,
			qi(a.Column), target.TableName(), qi(qAlias), qi(rel.Via.Column), sqlDir(node.Leaf)))
		if i == 0 {
			first = node.Leaf
		}
	}
	return clauses, first, nil
}

func sqlDir(d filter.Direction) string {
	if d == filter.Desc {
		return "DESC"
	}
	return "ASC"
}
