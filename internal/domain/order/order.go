package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kotek/backend/internal/domain/shared"
	"github.com/kotek/backend/internal/domain/shared/valueobject"
)

// Tracking holds the carrier-side identity of a dispatched shipment.
// A tracking belongs to exactly one group of items created together.
type Tracking struct {
	Number string `gorm:"column:tracking_number"`
	Status Status `gorm:"column:tracking_status"`
}

// OrderItem represents a line item in an order.
// The unit price is snapshotted at order time so historical totals survive
// later catalog price changes.
type OrderItem struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	ProductID   uuid.UUID
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	Weight      decimal.Decimal // per-unit weight in kg
	NoestReady  bool            // item has been included in a carrier creation request
	Tracking    *Tracking       `gorm:"embedded"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName returns the database table name for OrderItem
func (OrderItem) TableName() string {
	return "order_items"
}

// NewOrderItem creates a new order item
func NewOrderItem(orderID, productID uuid.UUID, productName string, quantity int, unitPrice valueobject.Money, weight decimal.Decimal) (*OrderItem, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if productName == "" {
		return nil, shared.NewDomainError("INVALID_PRODUCT_NAME", "Product name cannot be empty")
	}
	if quantity < 1 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be at least 1")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}
	if weight.IsNegative() {
		return nil, shared.NewDomainError("INVALID_WEIGHT", "Weight cannot be negative")
	}

	now := time.Now()
	return &OrderItem{
		ID:          uuid.New(),
		OrderID:     orderID,
		ProductID:   productID,
		ProductName: productName,
		Quantity:    quantity,
		UnitPrice:   unitPrice.Amount(),
		Weight:      weight,
		NoestReady:  false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Amount returns quantity * unit price for the item
func (i *OrderItem) Amount() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// TotalWeight returns quantity * per-unit weight
func (i *OrderItem) TotalWeight() decimal.Decimal {
	return i.Weight.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// IsTracked returns true once the item is attached to a carrier shipment
func (i *OrderItem) IsTracked() bool {
	return i.Tracking != nil && i.Tracking.Number != ""
}

// TrackingNumber returns the carrier tracking number or the empty sentinel
func (i *OrderItem) TrackingNumber() string {
	if i.Tracking == nil {
		return NoTracking
	}
	return i.Tracking.Number
}

// GuestAddress is the embedded shipping address for orders placed without an
// account. Wilaya and commune follow the carrier's Algerian address model.
type GuestAddress struct {
	FullName string
	Phone    string
	WilayaID int
	Commune  string
	Street   string
}

// Validate checks that the guest address carries the fields the carrier needs
func (a GuestAddress) Validate() error {
	if strings.TrimSpace(a.FullName) == "" {
		return shared.NewDomainError("INVALID_ADDRESS", "Recipient name cannot be empty")
	}
	if strings.TrimSpace(a.Phone) == "" {
		return shared.NewDomainError("INVALID_ADDRESS", "Recipient phone cannot be empty")
	}
	if a.WilayaID < 1 || a.WilayaID > 58 {
		return shared.NewDomainError("INVALID_ADDRESS", fmt.Sprintf("Invalid wilaya ID %d", a.WilayaID))
	}
	if strings.TrimSpace(a.Commune) == "" {
		return shared.NewDomainError("INVALID_ADDRESS", "Commune cannot be empty")
	}
	return nil
}

// Order is the aggregate root for a customer order.
// It owns the item list, the address choice and the financial totals, and it
// enforces the fulfillment status machine.
type Order struct {
	shared.BaseAggregateRoot
	Reference     string
	UserID        *uuid.UUID    // nil means guest order
	AddressID     *uuid.UUID    // registered address reference
	GuestAddress  *GuestAddress `gorm:"embedded;embeddedPrefix:guest_"`
	Items         []OrderItem
	Subtotal      decimal.Decimal
	ShippingRate  decimal.Decimal // base rate for the destination, snapshotted from the fee table
	ShippingPrice decimal.Decimal
	Total         decimal.Decimal
	Status        Status
	StopDesk      bool
	CancelledAt   *time.Time
	DeliveredAt   *time.Time
}

// TableName returns the database table name for Order
func (Order) TableName() string {
	return "orders"
}

// New creates a new pending order. A nil userID marks a guest order; the
// address must then be provided as a guest address before fulfillment.
func New(reference string, userID *uuid.UUID) (*Order, error) {
	if reference == "" {
		return nil, shared.NewDomainError("INVALID_REFERENCE", "Order reference cannot be empty")
	}
	if len(reference) > 50 {
		return nil, shared.NewDomainError("INVALID_REFERENCE", "Order reference cannot exceed 50 characters")
	}

	return &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Reference:         reference,
		UserID:            userID,
		Items:             make([]OrderItem, 0),
		Subtotal:          decimal.Zero,
		ShippingRate:      decimal.Zero,
		ShippingPrice:     decimal.Zero,
		Total:             decimal.Zero,
		Status:            StatusPending,
	}, nil
}

// CanModify returns true while items and address may still be edited
func (o *Order) CanModify() bool {
	return o.Status == StatusPending
}

// HasAddress returns true when exactly one address source is present
func (o *Order) HasAddress() bool {
	return (o.AddressID != nil) != (o.GuestAddress != nil)
}

// SetRegisteredAddress points the order at a saved customer address.
// Clears any guest address so exactly one source remains.
func (o *Order) SetRegisteredAddress(addressID uuid.UUID, baseRate decimal.Decimal) error {
	if !o.CanModify() {
		return shared.ErrImmutableOrder
	}
	if addressID == uuid.Nil {
		return shared.NewDomainError("INVALID_ADDRESS", "Address ID cannot be empty")
	}
	o.AddressID = &addressID
	o.GuestAddress = nil
	o.ShippingRate = baseRate
	o.recalculateTotals()
	o.Touch()
	return nil
}

// SetGuestAddress embeds a one-off shipping address.
// Clears any registered address reference so exactly one source remains.
func (o *Order) SetGuestAddress(addr GuestAddress, baseRate decimal.Decimal) error {
	if !o.CanModify() {
		return shared.ErrImmutableOrder
	}
	if err := addr.Validate(); err != nil {
		return err
	}
	o.GuestAddress = &addr
	o.AddressID = nil
	o.ShippingRate = baseRate
	o.recalculateTotals()
	o.Touch()
	return nil
}

// SetStopDesk toggles stop-desk pickup for the order
func (o *Order) SetStopDesk(stopDesk bool) error {
	if !o.CanModify() {
		return shared.ErrImmutableOrder
	}
	o.StopDesk = stopDesk
	o.Touch()
	return nil
}

// AddItem adds a new line item. Only allowed while the order is pending.
func (o *Order) AddItem(productID uuid.UUID, productName string, quantity int, unitPrice valueobject.Money, weight decimal.Decimal) (*OrderItem, error) {
	if !o.CanModify() {
		return nil, shared.ErrImmutableOrder
	}
	for _, item := range o.Items {
		if item.ProductID == productID {
			return nil, shared.NewDomainError("DUPLICATE_PRODUCT", "Product already exists in order, update quantity instead")
		}
	}

	item, err := NewOrderItem(o.ID, productID, productName, quantity, unitPrice, weight)
	if err != nil {
		return nil, err
	}

	o.Items = append(o.Items, *item)
	o.recalculateTotals()
	o.Touch()
	return item, nil
}

// UpdateItemQuantity updates the quantity of an existing untracked item
func (o *Order) UpdateItemQuantity(itemID uuid.UUID, quantity int) error {
	if !o.CanModify() {
		return shared.ErrImmutableOrder
	}
	if quantity < 1 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be at least 1")
	}

	for idx := range o.Items {
		if o.Items[idx].ID == itemID {
			if o.Items[idx].IsTracked() {
				return shared.NewDomainError("ITEM_TRACKED", "Item is attached to a shipment and cannot be edited")
			}
			o.Items[idx].Quantity = quantity
			o.Items[idx].UpdatedAt = time.Now()
			o.recalculateTotals()
			o.Touch()
			return nil
		}
	}
	return shared.NewDomainError("ITEM_NOT_FOUND", "Order item not found")
}

// RemoveItem removes an untracked item from the order
func (o *Order) RemoveItem(itemID uuid.UUID) error {
	if !o.CanModify() {
		return shared.ErrImmutableOrder
	}

	for idx, item := range o.Items {
		if item.ID == itemID {
			if item.IsTracked() {
				return shared.NewDomainError("ITEM_TRACKED", "Item is attached to a shipment and cannot be removed")
			}
			o.Items = append(o.Items[:idx], o.Items[idx+1:]...)
			o.recalculateTotals()
			o.Touch()
			return nil
		}
	}
	return shared.NewDomainError("ITEM_NOT_FOUND", "Order item not found")
}

// GetItem returns an item by its ID
func (o *Order) GetItem(itemID uuid.UUID) *OrderItem {
	for idx := range o.Items {
		if o.Items[idx].ID == itemID {
			return &o.Items[idx]
		}
	}
	return nil
}

// UntrackedItems returns the items not yet attached to a carrier shipment,
// preserving their original order. Only these are eligible for a new split.
func (o *Order) UntrackedItems() []OrderItem {
	items := make([]OrderItem, 0, len(o.Items))
	for _, item := range o.Items {
		if !item.IsTracked() {
			items = append(items, item)
		}
	}
	return items
}

// TrackingNumbers returns the distinct tracking numbers on the order in
// first-appearance order
func (o *Order) TrackingNumbers() []string {
	seen := make(map[string]struct{})
	numbers := make([]string, 0)
	for _, item := range o.Items {
		tn := item.TrackingNumber()
		if tn == NoTracking {
			continue
		}
		if _, ok := seen[tn]; ok {
			continue
		}
		seen[tn] = struct{}{}
		numbers = append(numbers, tn)
	}
	return numbers
}

// AttachTracking marks the given items as included in a carrier shipment and
// records the tracking number the carrier assigned. Moves a pending order to
// PROCESSING. An item already tracked cannot be re-attached.
func (o *Order) AttachTracking(itemIDs []uuid.UUID, trackingNumber string) error {
	if trackingNumber == "" {
		return shared.NewDomainError("INVALID_TRACKING", "Tracking number cannot be empty")
	}
	if len(itemIDs) == 0 {
		return shared.NewDomainError("NO_ITEMS", "At least one item is required")
	}

	wanted := make(map[uuid.UUID]struct{}, len(itemIDs))
	for _, id := range itemIDs {
		wanted[id] = struct{}{}
	}

	matched := 0
	for idx := range o.Items {
		if _, ok := wanted[o.Items[idx].ID]; !ok {
			continue
		}
		if o.Items[idx].IsTracked() {
			return shared.NewDomainError("ITEM_TRACKED", "Item already belongs to a shipment")
		}
		matched++
	}
	if matched != len(wanted) {
		return shared.NewDomainError("ITEM_NOT_FOUND", "One or more items do not belong to this order")
	}

	now := time.Now()
	for idx := range o.Items {
		if _, ok := wanted[o.Items[idx].ID]; !ok {
			continue
		}
		o.Items[idx].NoestReady = true
		o.Items[idx].Tracking = &Tracking{Number: trackingNumber, Status: StatusProcessing}
		o.Items[idx].UpdatedAt = now
	}

	if o.Status == StatusPending {
		if err := o.TransitionTo(StatusProcessing); err != nil {
			return err
		}
	}
	o.Touch()
	return nil
}

// ReleaseTracking reverts every item carrying the given tracking number back
// to the untracked pending pool. Used after the carrier shipment is deleted.
func (o *Order) ReleaseTracking(trackingNumber string) error {
	if trackingNumber == "" {
		return shared.NewDomainError("INVALID_TRACKING", "Tracking number cannot be empty")
	}

	released := 0
	now := time.Now()
	for idx := range o.Items {
		if o.Items[idx].TrackingNumber() != trackingNumber {
			continue
		}
		o.Items[idx].NoestReady = false
		o.Items[idx].Tracking = nil
		o.Items[idx].UpdatedAt = now
		released++
	}
	if released == 0 {
		return shared.NewDomainError("TRACKING_NOT_FOUND", "No item carries this tracking number")
	}
	o.Touch()
	return nil
}

// ReviseItemQuantity changes an item quantity while shipments are already
// created but not yet dispatched. This is the only item mutation allowed
// outside PENDING; the caller is responsible for pushing the revised form to
// the carrier before persisting.
func (o *Order) ReviseItemQuantity(itemID uuid.UUID, quantity int) error {
	if o.Status != StatusProcessing {
		return shared.NewDomainError("INVALID_STATE", "Shipment revision is only allowed while the order is processing")
	}
	if quantity < 1 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be at least 1")
	}

	for idx := range o.Items {
		if o.Items[idx].ID == itemID {
			o.Items[idx].Quantity = quantity
			o.Items[idx].UpdatedAt = time.Now()
			o.recalculateTotals()
			o.Touch()
			return nil
		}
	}
	return shared.NewDomainError("ITEM_NOT_FOUND", "Order item not found")
}

// TransitionTo moves the order to the target status, enforcing the
// adjacent-only fulfillment chain
func (o *Order) TransitionTo(target Status) error {
	if !o.Status.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot transition order from %s to %s", o.Status, target))
	}

	now := time.Now()
	o.Status = target
	switch target {
	case StatusDelivered:
		o.DeliveredAt = &now
	case StatusCancelled:
		o.CancelledAt = &now
	}

	for idx := range o.Items {
		if o.Items[idx].Tracking != nil {
			o.Items[idx].Tracking.Status = target
			o.Items[idx].UpdatedAt = now
		}
	}
	o.Touch()
	return nil
}

// Cancel moves the order to CANCELLED. Legal from any non-terminal status.
func (o *Order) Cancel() error {
	return o.TransitionTo(StatusCancelled)
}

// recalculateTotals recomputes subtotal, then shipping, then total.
// Shipping is the destination base rate while the order carries items, so the
// invariant total = subtotal + shipping holds after every mutation.
func (o *Order) recalculateTotals() {
	subtotal := decimal.Zero
	for _, item := range o.Items {
		subtotal = subtotal.Add(item.Amount())
	}
	o.Subtotal = subtotal

	if len(o.Items) == 0 {
		o.ShippingPrice = decimal.Zero
	} else {
		o.ShippingPrice = o.ShippingRate
	}
	o.Total = o.Subtotal.Add(o.ShippingPrice)
}

// TotalWeight returns the summed item weight in kg, with a 1 kg floor the
// carrier requires on the order form
func (o *Order) TotalWeight() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.TotalWeight())
	}
	if total.LessThan(decimal.NewFromInt(1)) {
		return decimal.NewFromInt(1)
	}
	return total
}

// SubtotalMoney returns the subtotal as Money
func (o *Order) SubtotalMoney() valueobject.Money {
	return valueobject.NewMoneyDZD(o.Subtotal)
}

// TotalMoney returns the total as Money
func (o *Order) TotalMoney() valueobject.Money {
	return valueobject.NewMoneyDZD(o.Total)
}

// IsGuest returns true for orders placed without an account
func (o *Order) IsGuest() bool {
	return o.UserID == nil
}

// ItemCount returns the number of line items
func (o *Order) ItemCount() int {
	return len(o.Items)
}
