package view

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/atlekbai/crm_backoffice/internal/entity"
)

// Store persists view definitions. Implementations keep at most one default
// view per (creator, entity): Create and Update of a default view clear the
// flag on the creator's other views for that entity in the same transaction.
type Store interface {
	// List returns views owned by Requester or public, default views first,
	// then by name.
	List(ctx context.Context, q ListQuery) ([]View, error)
	// Get returns ErrNotFound if no view has the id.
	Get(ctx context.Context, id uuid.UUID) (*View, error)
	Create(ctx context.Context, v *View) (*View, error)
	// Update replaces the definition and returns ErrNotFound if the view is gone.
	Update(ctx context.Context, v *View) (*View, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// Migrate creates the tables the store needs.
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
}

type ListQuery struct {
	Requester uuid.UUID
	Entity    *entity.Name
}

func displayName(first, last string) string {
	return strings.TrimSpace(first + " " + last)
}
