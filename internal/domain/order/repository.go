package order

import (
	"context"

	"github.com/google/uuid"

	"github.com/kotek/backend/internal/domain/shared"
)

// Repository defines persistence for the order aggregate.
// Every call is atomic on its own; the fulfillment engine relies on Update
// replacing the whole item set in one transaction so no partial item-array
// write is ever observable.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	FindByReference(ctx context.Context, reference string) (*Order, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Order, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	CountByStatus(ctx context.Context, status Status) (int64, error)
	Create(ctx context.Context, o *Order) error
	Update(ctx context.Context, o *Order) error
	Delete(ctx context.Context, id uuid.UUID) error
	GenerateReference(ctx context.Context) (string, error)
}
