package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kotek/backend/internal/domain/order"
)

// ==================== Order DTOs ====================

// CreateOrderRequest represents a request to create an order
type CreateOrderRequest struct {
	UserID       *uuid.UUID             `json:"user_id"`
	AddressID    *uuid.UUID             `json:"address_id"`
	GuestAddress *GuestAddressInput     `json:"guest_address"`
	StopDesk     bool                   `json:"stop_desk"`
	Items        []CreateOrderItemInput `json:"items"`
}

// GuestAddressInput represents a one-off shipping address on a guest order
type GuestAddressInput struct {
	FullName string `json:"full_name" binding:"required,min=1,max=200"`
	Phone    string `json:"phone" binding:"required,min=9,max=20"`
	WilayaID int    `json:"wilaya_id" binding:"required,min=1,max=58"`
	Commune  string `json:"commune" binding:"required,min=1,max=100"`
	Street   string `json:"street" binding:"max=255"`
}

// CreateOrderItemInput represents an item in the create order request
type CreateOrderItemInput struct {
	ProductID   uuid.UUID       `json:"product_id" binding:"required"`
	ProductName string          `json:"product_name" binding:"required,min=1,max=200"`
	Quantity    int             `json:"quantity" binding:"required,min=1"`
	UnitPrice   decimal.Decimal `json:"unit_price" binding:"required"`
	Weight      decimal.Decimal `json:"weight"`
}

// AddOrderItemRequest represents a request to add an item to a pending order
type AddOrderItemRequest struct {
	ProductID   uuid.UUID       `json:"product_id" binding:"required"`
	ProductName string          `json:"product_name" binding:"required,min=1,max=200"`
	Quantity    int             `json:"quantity" binding:"required,min=1"`
	UnitPrice   decimal.Decimal `json:"unit_price" binding:"required"`
	Weight      decimal.Decimal `json:"weight"`
}

// UpdateOrderItemRequest represents a request to change an item quantity
type UpdateOrderItemRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

// SetAddressRequest points the order at either a saved address or a guest
// address; exactly one of the two must be provided
type SetAddressRequest struct {
	AddressID    *uuid.UUID         `json:"address_id"`
	GuestAddress *GuestAddressInput `json:"guest_address"`
}

// SetStopDeskRequest toggles stop-desk pickup
type SetStopDeskRequest struct {
	StopDesk bool `json:"stop_desk"`
}

// OrderListFilter represents filter options for the order list
type OrderListFilter struct {
	Search   string        `form:"search"`
	Status   *order.Status `form:"status"`
	Page     int           `form:"page" binding:"min=0"`
	PageSize int           `form:"page_size" binding:"min=0,max=100"`
	OrderBy  string        `form:"order_by"`
	OrderDir string        `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// OrderItemResponse represents an order item in API responses
type OrderItemResponse struct {
	ID             uuid.UUID       `json:"id"`
	ProductID      uuid.UUID       `json:"product_id"`
	ProductName    string          `json:"product_name"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Amount         decimal.Decimal `json:"amount"`
	Weight         decimal.Decimal `json:"weight"`
	TrackingNumber string          `json:"tracking_number,omitempty"`
	TrackingStatus string          `json:"tracking_status,omitempty"`
}

// ShipmentGroupResponse represents one shipment (or the untracked pool) in
// API responses
type ShipmentGroupResponse struct {
	TrackingNumber string              `json:"tracking_number"`
	Pending        bool                `json:"pending"`
	Items          []OrderItemResponse `json:"items"`
}

// GuestAddressResponse represents the embedded guest address
type GuestAddressResponse struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	WilayaID int    `json:"wilaya_id"`
	Commune  string `json:"commune"`
	Street   string `json:"street,omitempty"`
}

// OrderResponse represents an order in API responses
type OrderResponse struct {
	ID            uuid.UUID               `json:"id"`
	Reference     string                  `json:"reference"`
	UserID        *uuid.UUID              `json:"user_id,omitempty"`
	AddressID     *uuid.UUID              `json:"address_id,omitempty"`
	GuestAddress  *GuestAddressResponse   `json:"guest_address,omitempty"`
	Items         []OrderItemResponse     `json:"items"`
	Shipments     []ShipmentGroupResponse `json:"shipments"`
	Subtotal      decimal.Decimal         `json:"subtotal"`
	ShippingPrice decimal.Decimal         `json:"shipping_price"`
	Total         decimal.Decimal         `json:"total"`
	Status        string                  `json:"status"`
	StopDesk      bool                    `json:"stop_desk"`
	CancelledAt   *time.Time              `json:"cancelled_at,omitempty"`
	DeliveredAt   *time.Time              `json:"delivered_at,omitempty"`
	CreatedAt     time.Time               `json:"created_at"`
	UpdatedAt     time.Time               `json:"updated_at"`
	Version       int                     `json:"version"`
}

// OrderListResponse represents a paginated order list
type OrderListResponse struct {
	Orders   []OrderResponse `json:"orders"`
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

// DeliveryFeeResponse represents the shipping rate for one destination
type DeliveryFeeResponse struct {
	WilayaID     int             `json:"wilaya_id"`
	HomeDelivery decimal.Decimal `json:"home_delivery"`
	StopDesk     decimal.Decimal `json:"stop_desk"`
}

// ==================== Mappers ====================

// ToOrderItemResponse converts a domain order item to its response DTO
func ToOrderItemResponse(item order.OrderItem) OrderItemResponse {
	resp := OrderItemResponse{
		ID:          item.ID,
		ProductID:   item.ProductID,
		ProductName: item.ProductName,
		Quantity:    item.Quantity,
		UnitPrice:   item.UnitPrice,
		Amount:      item.Amount(),
		Weight:      item.Weight,
	}
	if item.Tracking != nil {
		resp.TrackingNumber = item.Tracking.Number
		resp.TrackingStatus = string(item.Tracking.Status)
	}
	return resp
}

// ToOrderResponse converts a domain order to its response DTO
func ToOrderResponse(o *order.Order) OrderResponse {
	items := make([]OrderItemResponse, len(o.Items))
	for i, item := range o.Items {
		items[i] = ToOrderItemResponse(item)
	}

	groups := o.ShipmentGroups()
	shipments := make([]ShipmentGroupResponse, len(groups))
	for i, g := range groups {
		groupItems := make([]OrderItemResponse, len(g.Items))
		for j, item := range g.Items {
			groupItems[j] = ToOrderItemResponse(item)
		}
		shipments[i] = ShipmentGroupResponse{
			TrackingNumber: g.TrackingNumber,
			Pending:        g.IsPending(),
			Items:          groupItems,
		}
	}

	resp := OrderResponse{
		ID:            o.ID,
		Reference:     o.Reference,
		UserID:        o.UserID,
		AddressID:     o.AddressID,
		Items:         items,
		Shipments:     shipments,
		Subtotal:      o.Subtotal,
		ShippingPrice: o.ShippingPrice,
		Total:         o.Total,
		Status:        string(o.Status),
		StopDesk:      o.StopDesk,
		CancelledAt:   o.CancelledAt,
		DeliveredAt:   o.DeliveredAt,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
		Version:       o.Version,
	}
	if o.GuestAddress != nil {
		resp.GuestAddress = &GuestAddressResponse{
			FullName: o.GuestAddress.FullName,
			Phone:    o.GuestAddress.Phone,
			WilayaID: o.GuestAddress.WilayaID,
			Commune:  o.GuestAddress.Commune,
			Street:   o.GuestAddress.Street,
		}
	}
	return resp
}

func (in GuestAddressInput) toDomain() order.GuestAddress {
	return order.GuestAddress{
		FullName: in.FullName,
		Phone:    in.Phone,
		WilayaID: in.WilayaID,
		Commune:  in.Commune,
		Street:   in.Street,
	}
}
