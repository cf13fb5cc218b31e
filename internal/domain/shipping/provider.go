// Package shipping defines the boundary to the third-party carrier that
// physically moves orders. The fulfillment engine only sees this interface;
// the HTTP adapter lives in infrastructure.
package shipping

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Carrier-boundary error taxonomy. A not-found response must stay
// distinguishable from an unreachable carrier: the former means there is
// nothing left to compensate, the latter means the shipment state is unknown.
var (
	ErrProviderNotConfigured   = errors.New("shipping: provider not configured")
	ErrProviderUnavailable     = errors.New("shipping: provider temporarily unavailable")
	ErrProviderRequestFailed   = errors.New("shipping: provider request failed")
	ErrProviderInvalidResponse = errors.New("shipping: invalid provider response")
	ErrProviderAuthFailed      = errors.New("shipping: provider authentication failed")
	ErrShipmentNotFound        = errors.New("shipping: shipment not found")
)

// OrderForm is the payload the carrier needs to create or update a shipment.
// Amount covers the items in this shipment plus the shipping price, since the
// carrier collects cash on delivery.
type OrderForm struct {
	Reference  string
	ClientName string
	Phone      string
	Street     string
	WilayaID   int
	Commune    string
	Amount     decimal.Decimal
	Products   string          // comma-separated product names
	Weight     decimal.Decimal // kg
	StopDesk   bool
}

// Validate checks the form before it leaves the process
func (f *OrderForm) Validate() error {
	if strings.TrimSpace(f.Reference) == "" {
		return errors.New("shipping: order form reference is required")
	}
	if strings.TrimSpace(f.ClientName) == "" {
		return errors.New("shipping: order form client name is required")
	}
	if strings.TrimSpace(f.Phone) == "" {
		return errors.New("shipping: order form phone is required")
	}
	if f.WilayaID < 1 || f.WilayaID > 58 {
		return errors.New("shipping: order form wilaya ID is out of range")
	}
	if strings.TrimSpace(f.Commune) == "" {
		return errors.New("shipping: order form commune is required")
	}
	if f.Amount.IsNegative() {
		return errors.New("shipping: order form amount cannot be negative")
	}
	return nil
}

// CreateResult is the carrier's answer to a successful shipment creation
type CreateResult struct {
	TrackingNumber string
	Raw            json.RawMessage // untouched provider response, surfaced to callers
}

// Fee holds the delivery prices for one destination wilaya
type Fee struct {
	HomeDelivery decimal.Decimal
	StopDesk     decimal.Decimal
}

// FeeTable maps wilaya ID to its delivery fee
type FeeTable map[int]Fee

// RateFor returns the base shipping rate for a destination, honoring the
// stop-desk flag. The zero value is returned for unknown wilayas.
func (t FeeTable) RateFor(wilayaID int, stopDesk bool) decimal.Decimal {
	fee, ok := t[wilayaID]
	if !ok {
		return decimal.Zero
	}
	if stopDesk {
		return fee.StopDesk
	}
	return fee.HomeDelivery
}

// Provider is the typed boundary to the remote carrier API. Every call is
// blocking network I/O; implementations apply a bounded timeout and translate
// provider error codes into the sentinel errors above.
type Provider interface {
	// Create registers a new shipment and returns the tracking number the
	// carrier assigned.
	Create(ctx context.Context, form *OrderForm) (*CreateResult, error)
	// Update replaces the shipment's order form before dispatch.
	Update(ctx context.Context, trackingNumber string, form *OrderForm) error
	// Validate confirms the shipment with the carrier, moving it out of the
	// editable pre-dispatch pool.
	Validate(ctx context.Context, trackingNumber string) error
	// Delete removes a not-yet-dispatched shipment. Returns
	// ErrShipmentNotFound when the carrier no longer knows the tracking
	// number, which callers treat as nothing left to undo.
	Delete(ctx context.Context, trackingNumber string) error
	// GetLabel downloads the shipment label PDF.
	GetLabel(ctx context.Context, trackingNumber string) ([]byte, error)
	// GetDeliveryFees fetches the per-wilaya fee table.
	GetDeliveryFees(ctx context.Context) (FeeTable, error)
}
