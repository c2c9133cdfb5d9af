package filter

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/atlekbai/crm_backoffice/internal/entity"
)

// Lookup performs the read-only queries the resolver needs.
type Lookup interface {
	// MatchIDs returns ids of target records whose display name equals text,
	// or contains it case-insensitively when substring is set.
	MatchIDs(ctx context.Context, target entity.Name, text string, substring bool) ([]string, error)
	// IDsIn returns ids of target records whose attribute value is one of ids.
	IDsIn(ctx context.Context, target entity.Name, attribute string, ids []string) ([]string, error)
}

// relationRef describes where a human-typed relation value is looked up.
// via is set for fields reached through a cycle: the display name is matched
// on target, then cycles are selected by their via foreign key.
type relationRef struct {
	target entity.Name
	via    string
}

var relationFields = map[string]relationRef{
	"branchId":     {target: entity.Branches},
	"courseId":     {target: entity.Courses},
	"instructorId": {target: entity.Instructors},
	"cycleId":      {target: entity.Cycles},
	"customerId":   {target: entity.Customers},
	"studentId":    {target: entity.Students},

	"cycle.branchId":     {target: entity.Branches, via: "branchId"},
	"cycle.courseId":     {target: entity.Courses, via: "courseId"},
	"cycle.instructorId": {target: entity.Instructors, via: "instructorId"},
}

// IsRelationField returns true if field is resolved from display names.
func IsRelationField(field string) bool {
	_, ok := relationFields[field]
	return ok
}

// IsIdentifier returns true if s has the canonical 36-character UUID shape.
func IsIdentifier(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// Resolver rewrites relation filters typed as names (e.g. a branch called
// "Tel Aviv") into id-based filters.
type Resolver struct {
	lookup      Lookup
	concurrency int
	onLookup    func(entity.Name)
}

type ResolverOption func(*Resolver)

// WithConcurrency bounds the number of predicates resolved in parallel.
func WithConcurrency(n int) ResolverOption {
	return func(r *Resolver) { r.concurrency = n }
}

// WithLookupHook is called once per relation predicate sent to the lookup.
func WithLookupHook(fn func(entity.Name)) ResolverOption {
	return func(r *Resolver) { r.onLookup = fn }
}

func NewResolver(lookup Lookup, opts ...ResolverOption) *Resolver {
	r := &Resolver{lookup: lookup, concurrency: 1}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns preds with every name-valued relation filter replaced by an
// id filter. Output order always matches input order. When a name matches no
// record the predicate becomes NoMatch so the query returns nothing.
func (r *Resolver) Resolve(ctx context.Context, preds []Predicate) ([]Predicate, error) {
	out := make([]Predicate, len(preds))

	g, gctx := errgroup.WithContext(ctx)
	if r.concurrency > 0 {
		g.SetLimit(r.concurrency)
	}

	for i, p := range preds {
		ref, text, ok := needsResolution(p)
		if !ok {
			out[i] = p
			continue
		}
		g.Go(func() error {
			resolved, err := r.resolve(gctx, p, ref, text)
			if err != nil {
				return errors.Wrapf(err, "resolve filter %q", p.Field)
			}
			out[i] = resolved
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func needsResolution(p Predicate) (relationRef, string, bool) {
	if p.Op.ValueIndependent() {
		return relationRef{}, "", false
	}
	text, ok := p.Str()
	if !ok || IsIdentifier(text) {
		return relationRef{}, "", false
	}
	ref, ok := relationFields[p.Field]
	return ref, text, ok
}

func (r *Resolver) resolve(ctx context.Context, p Predicate, ref relationRef, text string) (Predicate, error) {
	if r.onLookup != nil {
		r.onLookup(ref.target)
	}

	ids, err := r.lookup.MatchIDs(ctx, ref.target, text, p.Op == OpContains)
	if err != nil {
		return Predicate{}, err
	}
	if len(ids) == 0 {
		return NoMatch(), nil
	}
	if ref.via == "" {
		return Predicate{Field: p.Field, Op: OpIn, Value: idList(ids)}, nil
	}

	cycleIDs, err := r.lookup.IDsIn(ctx, entity.Cycles, ref.via, ids)
	if err != nil {
		return Predicate{}, err
	}
	if len(cycleIDs) == 0 {
		return NoMatch(), nil
	}
	return Predicate{Field: "cycleId", Op: OpIn, Value: idList(cycleIDs)}, nil
}

func idList(ids []string) List {
	values := make([]any, len(ids))
	for i, id := range ids {
		values[i] = id
	}
	return List{Values: values}
}
