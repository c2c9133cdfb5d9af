package filter

import (
	"time"
)

// Compiler turns resolved predicates into a single conjunctive Where.
type Compiler struct {
	now    func() time.Time
	offset time.Duration
}

type CompilerOption func(*Compiler)

// WithClock overrides the source of "now" used by relative date operators.
func WithClock(now func() time.Time) CompilerOption {
	return func(c *Compiler) { c.now = now }
}

// WithUTCOffset sets the business timezone offset for relative date operators.
func WithUTCOffset(d time.Duration) CompilerOption {
	return func(c *Compiler) { c.offset = d }
}

func NewCompiler(opts ...CompilerOption) *Compiler {
	c := &Compiler{now: time.Now, offset: DefaultUTCOffset}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile ANDs all predicates together. Conditions landing on the same field
// are merged key by key, later predicates winning on overlap. Predicates with
// an unknown operator or a missing/malformed operand contribute nothing.
func (c *Compiler) Compile(preds []Predicate) Where {
	var (
		where Where
		now   = c.now()
	)
	for _, p := range preds {
		if p.Field == "" {
			continue
		}
		cond, ok := c.condition(p, now)
		if !ok {
			continue
		}
		where = where.Set(p.Field, cond, Cond.Merge)
	}
	return where
}

func (c *Compiler) condition(p Predicate, now time.Time) (Cond, bool) {
	switch p.Op {
	case OpEquals:
		return single(CmpEquals, p.Value)
	case OpContains:
		return single(CmpContains, p.Value)
	case OpGt:
		return scalar(CmpGt, p.Value)
	case OpGte:
		return scalar(CmpGte, p.Value)
	case OpLt:
		return scalar(CmpLt, p.Value)
	case OpLte:
		return scalar(CmpLte, p.Value)
	case OpIn:
		return set(CmpIn, p.Value)
	case OpNotIn:
		return set(CmpNotIn, p.Value)
	case OpIsNull:
		return Cond{CmpNull: true}, true
	case OpIsNotNull:
		return Cond{CmpNull: false}, true
	case OpBetween:
		r, ok := p.Value.(Range)
		if !ok {
			return nil, false
		}
		return Cond{CmpGte: r.Low, CmpLte: r.High}, true
	case OpToday, OpThisWeek, OpThisMonth:
		w, _ := RelativeWindow(p.Op, now, c.offset)
		return Cond{CmpGte: w.Start, CmpLt: w.End}, true
	}
	return nil, false
}

func single(cmp Comparator, v Value) (Cond, bool) {
	switch v := v.(type) {
	case Scalar:
		return Cond{cmp: v.V}, true
	case List:
		return Cond{cmp: v.Values}, true
	}
	return nil, false
}

// scalar accepts a single operand only; a list has no order to compare with.
func scalar(cmp Comparator, v Value) (Cond, bool) {
	if s, ok := v.(Scalar); ok {
		return Cond{cmp: s.V}, true
	}
	return nil, false
}

func set(cmp Comparator, v Value) (Cond, bool) {
	switch v := v.(type) {
	case List:
		return Cond{cmp: v.Values}, true
	case Scalar:
		return Cond{cmp: []any{v.V}}, true
	}
	return nil, false
}
