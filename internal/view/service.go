package view

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/atlekbai/crm_backoffice/internal/entity"
)

// Service enforces visibility and ownership on top of a Store.
type Service struct {
	store Store
	reg   *entity.Registry
	now   func() time.Time
}

func NewService(store Store, reg *entity.Registry) *Service {
	return &Service{store: store, reg: reg, now: time.Now}
}

// List returns the views the requester can see, optionally for one entity.
func (s *Service) List(ctx context.Context, requester uuid.UUID, entityName string) ([]View, error) {
	q := ListQuery{Requester: requester}
	if entityName != "" {
		n, err := entity.Parse(entityName)
		if err != nil {
			return nil, err
		}
		q.Entity = &n
	}
	return s.store.List(ctx, q)
}

// Get loads a view the requester may read.
func (s *Service) Get(ctx context.Context, id, requester uuid.UUID) (*View, error) {
	v, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !v.VisibleTo(requester) {
		return nil, errors.Wrapf(ErrForbidden, "%s", id)
	}
	return v, nil
}

// Create saves a new view owned by requester.
func (s *Service) Create(ctx context.Context, requester uuid.UUID, in Input) (*View, error) {
	v, err := in.Validate(s.reg)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	v.ID = uuid.New()
	v.CreatedBy = requester
	v.CreatedAt = now
	v.UpdatedAt = now
	return s.store.Create(ctx, v)
}

// Update replaces the definition of a view owned by requester.
func (s *Service) Update(ctx context.Context, id, requester uuid.UUID, in Input) (*View, error) {
	current, err := s.owned(ctx, id, requester)
	if err != nil {
		return nil, err
	}
	v, err := in.Validate(s.reg)
	if err != nil {
		return nil, err
	}
	v.ID = current.ID
	v.CreatedBy = current.CreatedBy
	v.CreatedAt = current.CreatedAt
	v.UpdatedAt = s.now().UTC()
	return s.store.Update(ctx, v)
}

// Delete removes a view owned by requester.
func (s *Service) Delete(ctx context.Context, id, requester uuid.UUID) error {
	if _, err := s.owned(ctx, id, requester); err != nil {
		return err
	}
	return s.store.Delete(ctx, id)
}

// Fields returns the attribute catalogue of an entity for the view editor.
func (s *Service) Fields(entityName string) ([]entity.Attribute, error) {
	entry, err := s.reg.Lookup(entityName)
	if err != nil {
		return nil, err
	}
	return entry.Catalogue(), nil
}

func (s *Service) owned(ctx context.Context, id, requester uuid.UUID) (*View, error) {
	v, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if v.CreatedBy != requester {
		return nil, errors.Wrapf(ErrForbidden, "%s", id)
	}
	return v, nil
}
