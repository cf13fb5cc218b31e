package order

import (
	"context"

	"github.com/google/uuid"

	"github.com/kotek/backend/internal/domain/shared"
)

// Address is a registered customer address. Orders from signed-in customers
// reference one of these instead of embedding a guest address.
type Address struct {
	shared.BaseEntity
	UserID   uuid.UUID
	FullName string
	Phone    string
	WilayaID int
	Commune  string
	Street   string
	Default  bool `gorm:"column:is_default"`
}

// TableName returns the database table name for Address
func (Address) TableName() string {
	return "addresses"
}

// NewAddress creates a registered address for a customer
func NewAddress(userID uuid.UUID, details GuestAddress) (*Address, error) {
	if userID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "User ID cannot be empty")
	}
	if err := details.Validate(); err != nil {
		return nil, err
	}
	return &Address{
		BaseEntity: shared.NewBaseEntity(),
		UserID:     userID,
		FullName:   details.FullName,
		Phone:      details.Phone,
		WilayaID:   details.WilayaID,
		Commune:    details.Commune,
		Street:     details.Street,
	}, nil
}

// Details returns the address as the field bundle shared with guest orders
func (a *Address) Details() GuestAddress {
	return GuestAddress{
		FullName: a.FullName,
		Phone:    a.Phone,
		WilayaID: a.WilayaID,
		Commune:  a.Commune,
		Street:   a.Street,
	}
}

// AddressRepository provides lookup of registered customer addresses
type AddressRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Address, error)
	FindByUser(ctx context.Context, userID uuid.UUID) ([]Address, error)
	Save(ctx context.Context, a *Address) error
	Delete(ctx context.Context, id uuid.UUID) error
}
