package query

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/cockroachdb/errors"

	"github.com/atlekbai/crm_backoffice/internal/entity"
	"github.com/atlekbai/crm_backoffice/internal/filter"
)

// ErrUnknownField is returned when a filter or sort names an attribute or
// relation the entity does not have.
var ErrUnknownField = errors.New("unknown field")

// alwaysFalse matches no row. It replaces comparisons of id columns against
// values that are not UUIDs, which Postgres would reject with a type error.
var alwaysFalse = sq.Expr("FALSE")

// Conditions translates a compiled Where into squirrel conditions against
// the entity aliased as qAlias.
func Conditions(reg *entity.Registry, entry *entity.Entry, where filter.Where) ([]sq.Sqlizer, error) {
	return conditions(reg, entry, qAlias, where, 0)
}

func conditions(reg *entity.Registry, entry *entity.Entry, alias string, where filter.Where, level int) ([]sq.Sqlizer, error) {
	var out []sq.Sqlizer
	for _, key := range where.Keys() {
		node := where[key]
		if node.HasLeaf {
			a := entry.Attribute(key)
			if a == nil {
				return nil, errors.Wrapf(ErrUnknownField, "%s.%s", entry.Name, key)
			}
			out = append(out, fieldConditions(alias, a, node.Leaf)...)
		}
		if len(node.Sub) == 0 {
			continue
		}
		rel := entry.Relation(key)
		if rel == nil {
			return nil, errors.Wrapf(ErrUnknownField, "%s.%s", entry.Name, key)
		}
		cond, err := exists(reg, alias, rel, node.Sub, level+1)
		if err != nil {
			return nil, err
		}
		out = append(out, cond)
	}
	return out, nil
}

// exists filters through a many-to-one relation:
// EXISTS (SELECT 1 FROM target _rN WHERE _rN."id" = outer.fk AND ...).
func exists(reg *entity.Registry, outer string, rel *entity.Relation, sub filter.Where, level int) (sq.Sqlizer, error) {
	target := reg.Get(rel.Target)
	inner := fmt.Sprintf("_r%d", level)

	conds, err := conditions(reg, target, inner, sub, level)
	if err != nil {
		return nil, err
	}

	qb := sq.Select("1").
		From(target.TableName() + " " + qi(inner)).
		Where(fmt.Sprintf(`%s."id" = %s.%s`, qi(inner), qi(outer), qi(rel.Via.Column)))
	for _, c := range conds {
		qb = qb.Where(c)
	}
	sql, args, err := qb.ToSql()
	if err != nil {
		return nil, errors.Wrapf(err, "build %s filter", rel.Name)
	}
	return sq.Expr("EXISTS ("+sql+")", args...), nil
}

// fieldConditions returns one condition per comparator in cond, in
// filter.Comparators order so generated SQL is deterministic.
func fieldConditions(alias string, a *entity.Attribute, cond filter.Cond) []sq.Sqlizer {
	col := fmt.Sprintf(`%s.%s`, qi(alias), qi(a.Column))

	var out []sq.Sqlizer
	for _, cmp := range filter.Comparators {
		v, ok := cond[cmp]
		if !ok {
			continue
		}
		switch cmp {
		case filter.CmpEquals:
			out = append(out, equals(col, a, v))
		case filter.CmpContains:
			expr := col
			if !a.IsText() {
				expr += "::text"
			}
			out = append(out, sq.ILike{expr: "%" + EscapeLike(fmt.Sprint(v)) + "%"})
		case filter.CmpGt:
			out = append(out, sq.Gt{col: v})
		case filter.CmpGte:
			out = append(out, sq.GtOrEq{col: v})
		case filter.CmpLt:
			out = append(out, sq.Lt{col: v})
		case filter.CmpLte:
			out = append(out, sq.LtOrEq{col: v})
		case filter.CmpIn:
			out = append(out, sq.Eq{col: setValues(a, v)})
		case filter.CmpNotIn:
			out = append(out, sq.NotEq{col: setValues(a, v)})
		case filter.CmpNull:
			if isNull, _ := v.(bool); isNull {
				out = append(out, sq.Eq{col: nil})
			} else {
				out = append(out, sq.NotEq{col: nil})
			}
		}
	}
	return out
}

func equals(col string, a *entity.Attribute, v any) sq.Sqlizer {
	switch v := v.(type) {
	case nil:
		return sq.Eq{col: nil}
	case []any:
		return sq.Eq{col: setValues(a, v)}
	}
	if a.IsIdentifier() && !identifier(v) {
		return alwaysFalse
	}
	return sq.Eq{col: v}
}

// setValues normalises an in/notIn operand to a slice. For id columns,
// values that cannot be ids are left out: they match nothing anyway.
func setValues(a *entity.Attribute, v any) []any {
	values, ok := v.([]any)
	if !ok {
		values = []any{v}
	}
	if !a.IsIdentifier() {
		return values
	}
	out := make([]any, 0, len(values))
	for _, x := range values {
		if identifier(x) {
			out = append(out, x)
		}
	}
	return out
}

func identifier(v any) bool {
	s, ok := v.(string)
	return ok && filter.IsIdentifier(s)
}
