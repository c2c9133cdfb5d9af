package filter

import (
	"context"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"

	"github.com/atlekbai/crm_backoffice/internal/entity"
)

// fakeLookup matches names against an in-memory table per entity.
type fakeLookup struct {
	mu     sync.Mutex
	names  map[entity.Name]map[string]string // id -> display name
	cycles map[string]map[string]string      // cycle id -> fk attribute -> id
	calls  int
	err    error
}

func (f *fakeLookup) MatchIDs(_ context.Context, target entity.Name, text string, substring bool) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var ids []string
	for id, name := range f.names[target] {
		if name == text || (substring && strings.Contains(strings.ToLower(name), strings.ToLower(text))) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakeLookup) IDsIn(_ context.Context, target entity.Name, attribute string, ids []string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if target != entity.Cycles {
		return nil, errors.Newf("unexpected target %s", target)
	}
	var out []string
	for cycleID, fks := range f.cycles {
		for _, id := range ids {
			if fks[attribute] == id {
				out = append(out, cycleID)
			}
		}
	}
	return out, nil
}

const (
	branchTelAviv = "0d9a7c1e-1111-4c3e-9a55-000000000001"
	branchHaifa   = "0d9a7c1e-1111-4c3e-9a55-000000000002"
	cycleA        = "5b2f0c44-2222-4a1b-8f00-00000000000a"
)

func newFakeLookup() *fakeLookup {
	return &fakeLookup{
		names: map[entity.Name]map[string]string{
			entity.Branches: {branchTelAviv: "Tel Aviv Center", branchHaifa: "Haifa"},
			entity.Courses:  {"c1": "Robotics"},
		},
		cycles: map[string]map[string]string{
			cycleA: {"branchId": branchHaifa},
		},
	}
}

func TestResolveNoMatchBecomesUnsatisfiable(t *testing.T) {
	r := NewResolver(newFakeLookup())
	got, err := r.Resolve(context.Background(), []Predicate{
		{Field: "branchId", Op: OpContains, Value: Scalar{V: "Jerusalem"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []Predicate{NoMatch()}) {
		t.Fatalf("got %+v", got)
	}
}

func TestResolveDirectRelation(t *testing.T) {
	r := NewResolver(newFakeLookup())
	got, err := r.Resolve(context.Background(), []Predicate{
		{Field: "branchId", Op: OpContains, Value: Scalar{V: "tel aviv"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	want := Predicate{Field: "branchId", Op: OpIn, Value: List{Values: []any{branchTelAviv}}}
	if !reflect.DeepEqual(got[0], want) {
		t.Fatalf("got %+v, want %+v", got[0], want)
	}
}

func TestResolveEqualsIsExactMatch(t *testing.T) {
	r := NewResolver(newFakeLookup())
	got, err := r.Resolve(context.Background(), []Predicate{
		{Field: "branchId", Op: OpEquals, Value: Scalar{V: "Tel Aviv"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got[0], NoMatch()) {
		t.Fatalf("equals should not substring-match, got %+v", got[0])
	}
}

func TestResolveThroughCycle(t *testing.T) {
	r := NewResolver(newFakeLookup())
	got, err := r.Resolve(context.Background(), []Predicate{
		{Field: "cycle.branchId", Op: OpEquals, Value: Scalar{V: "Haifa"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	want := Predicate{Field: "cycleId", Op: OpIn, Value: List{Values: []any{cycleA}}}
	if !reflect.DeepEqual(got[0], want) {
		t.Fatalf("got %+v, want %+v", got[0], want)
	}
}

func TestResolveThroughCycleWithoutCycles(t *testing.T) {
	r := NewResolver(newFakeLookup())
	got, err := r.Resolve(context.Background(), []Predicate{
		{Field: "cycle.branchId", Op: OpContains, Value: Scalar{V: "Tel"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got[0], NoMatch()) {
		t.Fatalf("got %+v", got[0])
	}
}

func TestResolvePassthrough(t *testing.T) {
	preds := []Predicate{
		{Field: "branchId", Op: OpEquals, Value: Scalar{V: branchHaifa}},
		{Field: "branchId", Op: OpIsNull, Value: NoValue{}},
		{Field: "branchId", Op: OpIn, Value: List{Values: []any{"Haifa"}}},
		{Field: "status", Op: OpEquals, Value: Scalar{V: "Haifa"}},
		{Field: "amount", Op: OpGte, Value: Scalar{V: 100.0}},
		{Field: "cycle.status", Op: OpEquals, Value: Scalar{V: "open"}},
	}
	lookup := newFakeLookup()
	got, err := NewResolver(lookup).Resolve(context.Background(), preds)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, preds) {
		t.Fatalf("passthrough changed predicates:\n got %+v\nwant %+v", got, preds)
	}
	if lookup.calls != 0 {
		t.Fatalf("expected no lookups, got %d", lookup.calls)
	}
}

func TestResolvePreservesOrder(t *testing.T) {
	preds := []Predicate{
		{Field: "status", Op: OpEquals, Value: Scalar{V: "a"}},
		{Field: "branchId", Op: OpContains, Value: Scalar{V: "Haifa"}},
		{Field: "courseId", Op: OpContains, Value: Scalar{V: "robot"}},
		{Field: "instructorId", Op: OpEquals, Value: Scalar{V: "Nobody"}},
		{Field: "amount", Op: OpLt, Value: Scalar{V: 3.0}},
	}
	var (
		mu   sync.Mutex
		seen []entity.Name
	)
	r := NewResolver(newFakeLookup(),
		WithConcurrency(4),
		WithLookupHook(func(n entity.Name) {
			mu.Lock()
			seen = append(seen, n)
			mu.Unlock()
		}),
	)
	got, err := r.Resolve(context.Background(), preds)
	if err != nil {
		t.Fatal(err)
	}

	want := []Predicate{
		preds[0],
		{Field: "branchId", Op: OpIn, Value: List{Values: []any{branchHaifa}}},
		{Field: "courseId", Op: OpIn, Value: List{Values: []any{"c1"}}},
		NoMatch(),
		preds[4],
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v\nwant %+v", got, want)
	}
	if len(seen) != 3 {
		t.Fatalf("expected 3 lookups, got %v", seen)
	}
}

func TestResolvePropagatesLookupError(t *testing.T) {
	lookup := newFakeLookup()
	lookup.err = errors.New("connection refused")
	_, err := NewResolver(lookup).Resolve(context.Background(), []Predicate{
		{Field: "branchId", Op: OpContains, Value: Scalar{V: "x"}},
	})
	if err == nil || !strings.Contains(err.Error(), "connection refused") {
		t.Fatalf("expected lookup error, got %v", err)
	}
}

func TestIsIdentifier(t *testing.T) {
	if !IsIdentifier(branchHaifa) {
		t.Error("uuid not recognised")
	}
	for _, s := range []string{"", "Haifa", NoMatchValue, strings.Repeat("x", 36)} {
		if IsIdentifier(s) {
			t.Errorf("%q recognised as identifier", s)
		}
	}
}
