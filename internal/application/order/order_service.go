// Package order exposes the storefront and back-office order operations:
// creating and editing pending orders, address selection and the shipping
// rate lookup that goes with it. Everything touching the carrier lives in
// the fulfillment package instead.
package order

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kotek/backend/internal/domain/order"
	"github.com/kotek/backend/internal/domain/shared"
	"github.com/kotek/backend/internal/domain/shared/valueobject"
	"github.com/kotek/backend/internal/domain/shipping"
)

// FeeSource supplies the carrier's per-wilaya fee table. The production
// implementation caches the table in Redis in front of the carrier API.
type FeeSource interface {
	Fees(ctx context.Context) (shipping.FeeTable, error)
}

// Service handles order business operations
type Service struct {
	orders    order.Repository
	addresses order.AddressRepository
	fees      FeeSource
}

// NewService creates a new order Service
func NewService(orders order.Repository, addresses order.AddressRepository, fees FeeSource) *Service {
	return &Service{
		orders:    orders,
		addresses: addresses,
		fees:      fees,
	}
}

// Create creates a new pending order
func (s *Service) Create(ctx context.Context, req CreateOrderRequest) (*OrderResponse, error) {
	reference, err := s.orders.GenerateReference(ctx)
	if err != nil {
		return nil, err
	}

	o, err := order.New(reference, req.UserID)
	if err != nil {
		return nil, err
	}
	if err := o.SetStopDesk(req.StopDesk); err != nil {
		return nil, err
	}

	if req.AddressID != nil && req.GuestAddress != nil {
		return nil, shared.NewDomainError("AMBIGUOUS_ADDRESS", "Provide either a saved address or a guest address, not both")
	}
	switch {
	case req.AddressID != nil:
		if err := s.applyRegisteredAddress(ctx, o, *req.AddressID); err != nil {
			return nil, err
		}
	case req.GuestAddress != nil:
		if err := s.applyGuestAddress(ctx, o, req.GuestAddress.toDomain()); err != nil {
			return nil, err
		}
	}

	for _, item := range req.Items {
		unitPrice := valueobject.NewMoneyDZD(item.UnitPrice)
		if _, err := o.AddItem(item.ProductID, item.ProductName, item.Quantity, unitPrice, item.Weight); err != nil {
			return nil, err
		}
	}

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, err
	}

	resp := ToOrderResponse(o)
	return &resp, nil
}

// GetByID retrieves an order by ID
func (s *Service) GetByID(ctx context.Context, orderID uuid.UUID) (*OrderResponse, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	resp := ToOrderResponse(o)
	return &resp, nil
}

// GetByReference retrieves an order by its human-readable reference
func (s *Service) GetByReference(ctx context.Context, reference string) (*OrderResponse, error) {
	o, err := s.orders.FindByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	resp := ToOrderResponse(o)
	return &resp, nil
}

// List retrieves orders with filtering and pagination
func (s *Service) List(ctx context.Context, filter OrderListFilter) (*OrderListResponse, error) {
	f := shared.DefaultFilter()
	if filter.Page > 0 {
		f.Page = filter.Page
	}
	if filter.PageSize > 0 {
		f.PageSize = filter.PageSize
	}
	if filter.OrderBy != "" {
		f.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		f.OrderDir = filter.OrderDir
	}
	f.Search = filter.Search
	if filter.Status != nil {
		f.Filters["status"] = string(*filter.Status)
	}

	orders, err := s.orders.FindAll(ctx, f)
	if err != nil {
		return nil, err
	}
	total, err := s.orders.Count(ctx, f)
	if err != nil {
		return nil, err
	}

	responses := make([]OrderResponse, len(orders))
	for i := range orders {
		responses[i] = ToOrderResponse(&orders[i])
	}
	return &OrderListResponse{
		Orders:   responses,
		Total:    total,
		Page:     f.Page,
		PageSize: f.PageSize,
	}, nil
}

// AddItem adds an item to a pending order
func (s *Service) AddItem(ctx context.Context, orderID uuid.UUID, req AddOrderItemRequest) (*OrderResponse, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	unitPrice := valueobject.NewMoneyDZD(req.UnitPrice)
	if _, err := o.AddItem(req.ProductID, req.ProductName, req.Quantity, unitPrice, req.Weight); err != nil {
		return nil, err
	}
	if err := s.orders.Update(ctx, o); err != nil {
		return nil, err
	}
	resp := ToOrderResponse(o)
	return &resp, nil
}

// UpdateItemQuantity changes an untracked item's quantity on a pending order
func (s *Service) UpdateItemQuantity(ctx context.Context, orderID, itemID uuid.UUID, req UpdateOrderItemRequest) (*OrderResponse, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := o.UpdateItemQuantity(itemID, req.Quantity); err != nil {
		return nil, err
	}
	if err := s.orders.Update(ctx, o); err != nil {
		return nil, err
	}
	resp := ToOrderResponse(o)
	return &resp, nil
}

// RemoveItem removes an untracked item from a pending order
func (s *Service) RemoveItem(ctx context.Context, orderID, itemID uuid.UUID) (*OrderResponse, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := o.RemoveItem(itemID); err != nil {
		return nil, err
	}
	if err := s.orders.Update(ctx, o); err != nil {
		return nil, err
	}
	resp := ToOrderResponse(o)
	return &resp, nil
}

// SetAddress points a pending order at a saved address or embeds a guest
// address, refreshing the shipping rate for the new destination
func (s *Service) SetAddress(ctx context.Context, orderID uuid.UUID, req SetAddressRequest) (*OrderResponse, error) {
	if (req.AddressID != nil) == (req.GuestAddress != nil) {
		return nil, shared.NewDomainError("AMBIGUOUS_ADDRESS", "Provide either a saved address or a guest address")
	}

	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if req.AddressID != nil {
		err = s.applyRegisteredAddress(ctx, o, *req.AddressID)
	} else {
		err = s.applyGuestAddress(ctx, o, req.GuestAddress.toDomain())
	}
	if err != nil {
		return nil, err
	}

	if err := s.orders.Update(ctx, o); err != nil {
		return nil, err
	}
	resp := ToOrderResponse(o)
	return &resp, nil
}

// SetStopDesk toggles stop-desk pickup and refreshes the shipping rate,
// since the carrier charges desk pickup and home delivery differently
func (s *Service) SetStopDesk(ctx context.Context, orderID uuid.UUID, req SetStopDeskRequest) (*OrderResponse, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := o.SetStopDesk(req.StopDesk); err != nil {
		return nil, err
	}

	if o.HasAddress() {
		switch {
		case o.AddressID != nil:
			err = s.applyRegisteredAddress(ctx, o, *o.AddressID)
		case o.GuestAddress != nil:
			err = s.applyGuestAddress(ctx, o, *o.GuestAddress)
		}
		if err != nil {
			return nil, err
		}
	}

	if err := s.orders.Update(ctx, o); err != nil {
		return nil, err
	}
	resp := ToOrderResponse(o)
	return &resp, nil
}

// MarkDelivered records the carrier's final delivery confirmation
func (s *Service) MarkDelivered(ctx context.Context, orderID uuid.UUID) (*OrderResponse, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := o.TransitionTo(order.StatusDelivered); err != nil {
		return nil, err
	}
	if err := s.orders.Update(ctx, o); err != nil {
		return nil, err
	}
	resp := ToOrderResponse(o)
	return &resp, nil
}

// Delete removes an order that never reached the carrier
func (s *Service) Delete(ctx context.Context, orderID uuid.UUID) error {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	if o.Status != order.StatusPending && o.Status != order.StatusCancelled {
		return shared.NewDomainError("INVALID_STATE", "Only pending or cancelled orders can be deleted")
	}
	return s.orders.Delete(ctx, orderID)
}

// DeliveryFees lists the carrier's fee table, sorted by wilaya
func (s *Service) DeliveryFees(ctx context.Context) ([]DeliveryFeeResponse, error) {
	table, err := s.fees.Fees(ctx)
	if err != nil {
		return nil, err
	}
	responses := make([]DeliveryFeeResponse, 0, len(table))
	for wilayaID, fee := range table {
		responses = append(responses, DeliveryFeeResponse{
			WilayaID:     wilayaID,
			HomeDelivery: fee.HomeDelivery,
			StopDesk:     fee.StopDesk,
		})
	}
	sort.Slice(responses, func(i, j int) bool { return responses[i].WilayaID < responses[j].WilayaID })
	return responses, nil
}

// applyRegisteredAddress resolves the saved address, looks up the shipping
// rate for its wilaya and binds both to the order
func (s *Service) applyRegisteredAddress(ctx context.Context, o *order.Order, addressID uuid.UUID) error {
	addr, err := s.addresses.FindByID(ctx, addressID)
	if err != nil {
		return err
	}
	rate, err := s.rateFor(ctx, addr.WilayaID, o.StopDesk)
	if err != nil {
		return err
	}
	return o.SetRegisteredAddress(addr.ID, rate)
}

// applyGuestAddress binds a one-off address and its shipping rate
func (s *Service) applyGuestAddress(ctx context.Context, o *order.Order, addr order.GuestAddress) error {
	if err := addr.Validate(); err != nil {
		return err
	}
	rate, err := s.rateFor(ctx, addr.WilayaID, o.StopDesk)
	if err != nil {
		return err
	}
	return o.SetGuestAddress(addr, rate)
}

func (s *Service) rateFor(ctx context.Context, wilayaID int, stopDesk bool) (decimal.Decimal, error) {
	table, err := s.fees.Fees(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	rate := table.RateFor(wilayaID, stopDesk)
	if rate.IsZero() {
		return decimal.Zero, shared.NewDomainError("NO_RATE", "Carrier has no rate for this destination")
	}
	return rate, nil
}
