package query

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/atlekbai/crm_backoffice/internal/entity"
	"github.com/atlekbai/crm_backoffice/internal/filter"
)

const qAlias = "_e"

// Builder generates SQL queries for one entity.
type Builder struct {
	reg   *entity.Registry
	entry *entity.Entry
}

// NewBuilder returns a query builder for the given entity.
func NewBuilder(reg *entity.Registry, entry *entity.Entry) *Builder {
	return &Builder{reg: reg, entry: entry}
}

// BuildList selects one page of records as JSON objects, with the entity's
// default includes embedded.
func (b *Builder) BuildList(where filter.Where, order filter.Order, offset, limit int) (string, []any, error) {
	qb := sq.Select(b.jsonObject() + " AS _row").
		From(b.entry.TableName() + " " + qi(qAlias)).
		PlaceholderFormat(sq.Dollar)

	qb, err := b.addLateralJoins(qb)
	if err != nil {
		return "", nil, err
	}
	qb, err = b.applyFilters(qb, where)
	if err != nil {
		return "", nil, err
	}

	clauses, err := OrderBy(b.reg, b.entry, order)
	if err != nil {
		return "", nil, err
	}
	qb = qb.OrderBy(clauses...)
	qb = qb.Suffix("LIMIT ? OFFSET ?", limit, offset)

	return qb.ToSql()
}

// BuildCount counts all records matching where.
func (b *Builder) BuildCount(where filter.Where) (string, []any, error) {
	qb := sq.Select("count(*)").
		From(b.entry.TableName() + " " + qi(qAlias)).
		PlaceholderFormat(sq.Dollar)

	qb, err := b.applyFilters(qb, where)
	if err != nil {
		return "", nil, err
	}
	return qb.ToSql()
}

// jsonObject builds a json_build_object(...) expression for the SELECT clause.
func (b *Builder) jsonObject() string {
	pairs := make([]string, 0, len(b.entry.Attributes)+len(b.entry.Includes))
	for _, a := range b.entry.Attributes {
		pairs = append(pairs, fmt.Sprintf(`%s, %s.%s`, quoteLit(a.Name), qi(qAlias), qi(a.Column)))
	}
	for _, inc := range b.entry.Includes {
		pairs = append(pairs, fmt.Sprintf(`%s, %s`, quoteLit(inc.Relation), includeExpr(includeAlias(inc.Relation))))
	}
	return fmt.Sprintf("json_build_object(%s)", strings.Join(pairs, ", "))
}

func (b *Builder) addLateralJoins(qb sq.SelectBuilder) (sq.SelectBuilder, error) {
	for _, inc := range b.entry.Includes {
		rel := b.entry.Relation(inc.Relation)
		if rel == nil {
			continue
		}
		outerRef := fmt.Sprintf(`%s.%s`, qi(qAlias), qi(rel.Via.Column))
		joinSQL, err := buildLateral(b.reg, b.entry, inc, outerRef, "")
		if err != nil {
			return qb, err
		}
		qb = qb.LeftJoin(joinSQL)
	}
	return qb, nil
}

func (b *Builder) applyFilters(qb sq.SelectBuilder, where filter.Where) (sq.SelectBuilder, error) {
	conds, err := Conditions(b.reg, b.entry, where)
	if err != nil {
		return qb, err
	}
	for _, c := range conds {
		qb = qb.Where(c)
	}
	return qb, nil
}
