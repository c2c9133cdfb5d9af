package query

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/atlekbai/crm_backoffice/internal/entity"
)

// qi is shorthand for entity.QuoteIdent.
func qi(name string) string { return entity.QuoteIdent(name) }

// quoteLit returns a single-quoted SQL string literal with escaping.
func quoteLit(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// EscapeLike escapes LIKE wildcards so s matches literally.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// includeAlias returns the join alias for an included relation, e.g. "_xp_cycle".
func includeAlias(name string) string { return "_xp_" + name }

// includeInner returns the table alias inside a lateral, e.g. "_xp_cycle_t".
func includeInner(name string) string { return "_xp_" + name + "_t" }

// includeExpr renders a joined relation as a JSON object, or NULL when the
// foreign key is empty.
func includeExpr(alias string) string {
	return fmt.Sprintf(`CASE WHEN %s."id" IS NOT NULL THEN row_to_json(%s.*)::jsonb ELSE NULL END`,
		qi(alias), qi(alias))
}

// buildLateral builds the LATERAL subquery for an include of owner.
// outerRef is the SQL expression holding the foreign key in the outer query.
// prefix namespaces nested aliases to avoid collisions.
func buildLateral(reg *entity.Registry, owner *entity.Entry, inc entity.Include, outerRef, prefix string) (string, error) {
	rel := owner.Relation(inc.Relation)
	if rel == nil {
		return "", errors.Newf("%s has no relation %q", owner.Name, inc.Relation)
	}
	target := reg.Get(rel.Target)
	name := prefix + inc.Relation
	inner := includeInner(name)
	alias := includeAlias(name)

	cols := make([]string, 0, len(target.Attributes)+len(inc.Children))
	for _, a := range target.Attributes {
		cols = append(cols, fmt.Sprintf(`%s.%s AS %s`, qi(inner), qi(a.Column), qi(a.Name)))
	}

	var nested []string
	for _, child := range inc.Children {
		childRel := target.Relation(child.Relation)
		if childRel == nil {
			return "", errors.Newf("%s has no relation %q", target.Name, child.Relation)
		}
		childName := name + "__" + child.Relation
		cols = append(cols, includeExpr(includeAlias(childName))+" AS "+qi(child.Relation))

		childRef := fmt.Sprintf(`%s.%s`, qi(inner), qi(childRel.Via.Column))
		sql, err := buildLateral(reg, target, child, childRef, name+"__")
		if err != nil {
			return "", err
		}
		nested = append(nested, "LEFT JOIN "+sql)
	}

	return fmt.Sprintf(`LATERAL (SELECT %s FROM %s %s %s WHERE %s."id" = %s) %s ON TRUE`,
		strings.Join(cols, ", "),
		target.TableName(), qi(inner),
		strings.Join(nested, " "),
		qi(inner), outerRef, qi(alias)), nil
}
