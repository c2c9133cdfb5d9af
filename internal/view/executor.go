package view

import (
	"context"
	"encoding/json"
	"slices"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/atlekbai/crm_backoffice/internal/entity"
	"github.com/atlekbai/crm_backoffice/internal/filter"
)

// Records reads entity records for a compiled filter.
type Records interface {
	Find(ctx context.Context, entry *entity.Entry, where filter.Where, order filter.Order, offset, limit int) ([]json.RawMessage, error)
	Count(ctx context.Context, entry *entity.Entry, where filter.Where) (int64, error)
}

// Observer is notified after every apply.
type Observer interface {
	ObserveApply(n entity.Name, d time.Duration, err error)
}

// Result is one page of a view.
type Result struct {
	Data       []json.RawMessage `json:"data"`
	Columns    []string          `json:"columns"`
	Pagination Pagination        `json:"pagination"`
}

// Executor applies saved views.
type Executor struct {
	views    *Service
	reg      *entity.Registry
	resolver *filter.Resolver
	compiler *filter.Compiler
	records  Records
	observer Observer
}

type ExecutorOption func(*Executor)

func WithObserver(o Observer) ExecutorOption {
	return func(e *Executor) { e.observer = o }
}

func NewExecutor(views *Service, reg *entity.Registry, resolver *filter.Resolver, compiler *filter.Compiler, records Records, opts ...ExecutorOption) *Executor {
	e := &Executor{
		views:    views,
		reg:      reg,
		resolver: resolver,
		compiler: compiler,
		records:  records,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Apply runs view id for requester with extra predicates ANDed to the
// stored ones, returning one page and the total match count.
func (e *Executor) Apply(ctx context.Context, id, requester uuid.UUID, extra []filter.Predicate, page Page) (*Result, error) {
	v, err := e.views.Get(ctx, id, requester)
	if err != nil {
		return nil, err
	}
	return e.ApplyView(ctx, v, extra, page)
}

// ApplyView runs an already loaded view. Callers are responsible for the
// visibility check done by Apply.
func (e *Executor) ApplyView(ctx context.Context, v *View, extra []filter.Predicate, page Page) (*Result, error) {
	start := time.Now()
	res, err := e.apply(ctx, v, extra, page)
	if e.observer != nil {
		e.observer.ObserveApply(v.Entity, time.Since(start), err)
	}
	return res, err
}

func (e *Executor) apply(ctx context.Context, v *View, extra []filter.Predicate, page Page) (*Result, error) {
	log := zerolog.Ctx(ctx).With().
		Stringer("view", v.ID).
		Str("entity", string(v.Entity)).
		Logger()

	entry, err := e.reg.Lookup(string(v.Entity))
	if err != nil {
		return nil, err
	}

	preds := slices.Concat(v.Filters, extra)
	resolved, err := e.resolver.Resolve(ctx, preds)
	if err != nil {
		log.Error().Err(err).Msg("resolve view filters")
		return nil, err
	}
	where := e.compiler.Compile(resolved)
	order := v.Order()

	log.Debug().
		Int("predicates", len(preds)).
		Interface("where", where.Map()).
		Msg("apply view")

	var (
		data  []json.RawMessage
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		data, err = e.records.Find(gctx, entry, where, order, page.Offset(), page.Limit)
		return errors.Wrap(err, "find records")
	})
	g.Go(func() error {
		var err error
		total, err = e.records.Count(gctx, entry, where)
		return errors.Wrap(err, "count records")
	})
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("apply view")
		return nil, err
	}

	if data == nil {
		data = []json.RawMessage{}
	}
	return &Result{
		Data:       data,
		Columns:    v.Columns,
		Pagination: NewPagination(page, total),
	}, nil
}
