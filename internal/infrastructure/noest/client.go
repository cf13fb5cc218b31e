// Package noest implements the shipping.Provider boundary against the Noest
// Express delivery API.
package noest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kotek/backend/internal/domain/shipping"
)

// maxResponseSize is the maximum allowed response size from the Noest API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// shipmentTypeDelivery is the Noest order type for a plain delivery
const shipmentTypeDelivery = 1

// Client implements the shipping.Provider interface for Noest Express
type Client struct {
	config     *Config
	httpClient *http.Client
}

// NewClient creates a new Noest client with the given configuration
func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, shipping.ErrProviderNotConfigured
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
	}, nil
}

// Create registers a new shipment and returns the assigned tracking number
func (c *Client) Create(ctx context.Context, form *shipping.OrderForm) (*shipping.CreateResult, error) {
	if err := form.Validate(); err != nil {
		return nil, err
	}

	body, err := c.doRequest(ctx, "/api/public/create/order", c.payloadFor(form, ""))
	if err != nil {
		return nil, err
	}

	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", shipping.ErrProviderInvalidResponse, err)
	}
	if !resp.Success || resp.Tracking == "" {
		return nil, fmt.Errorf("%w: %s", shipping.ErrProviderRequestFailed, resp.Message)
	}

	return &shipping.CreateResult{
		TrackingNumber: resp.Tracking,
		Raw:            json.RawMessage(body),
	}, nil
}

// Update replaces the shipment's order form. Only possible before validation.
func (c *Client) Update(ctx context.Context, trackingNumber string, form *shipping.OrderForm) error {
	if err := form.Validate(); err != nil {
		return err
	}
	body, err := c.doRequest(ctx, "/api/public/update/order", c.payloadFor(form, trackingNumber))
	if err != nil {
		return err
	}
	return checkEnvelope(body)
}

// Validate confirms the shipment with the carrier, handing it to dispatch
func (c *Client) Validate(ctx context.Context, trackingNumber string) error {
	body, err := c.doRequest(ctx, "/api/public/valid/order", trackingPayload{
		APIToken: c.config.APIToken,
		UserGUID: c.config.UserGUID,
		Tracking: trackingNumber,
	})
	if err != nil {
		return err
	}
	return checkEnvelope(body)
}

// Delete removes a not-yet-validated shipment
func (c *Client) Delete(ctx context.Context, trackingNumber string) error {
	body, err := c.doRequest(ctx, "/api/public/delete/order", trackingPayload{
		APIToken: c.config.APIToken,
		UserGUID: c.config.UserGUID,
		Tracking: trackingNumber,
	})
	if err != nil {
		return err
	}
	return checkEnvelope(body)
}

// GetLabel downloads the shipment label PDF
func (c *Client) GetLabel(ctx context.Context, trackingNumber string) ([]byte, error) {
	return c.doRequest(ctx, "/api/public/get/order/label", trackingPayload{
		APIToken: c.config.APIToken,
		UserGUID: c.config.UserGUID,
		Tracking: trackingNumber,
	})
}

// GetDeliveryFees fetches the per-wilaya fee table
func (c *Client) GetDeliveryFees(ctx context.Context) (shipping.FeeTable, error) {
	body, err := c.doRequest(ctx, "/api/public/fees", authPayload{
		APIToken: c.config.APIToken,
		UserGUID: c.config.UserGUID,
	})
	if err != nil {
		return nil, err
	}

	var resp feesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", shipping.ErrProviderInvalidResponse, err)
	}
	if !resp.Success {
		return nil, shipping.ErrProviderRequestFailed
	}

	table := make(shipping.FeeTable, len(resp.Tarifs))
	for _, entry := range resp.Tarifs {
		table[entry.WilayaID] = shipping.Fee{
			HomeDelivery: entry.TarifDomicile,
			StopDesk:     entry.TarifStopDesk,
		}
	}
	return table, nil
}

// payloadFor maps the neutral order form onto the Noest wire format
func (c *Client) payloadFor(form *shipping.OrderForm, trackingNumber string) orderPayload {
	stopDesk := 0
	if form.StopDesk {
		stopDesk = 1
	}
	return orderPayload{
		APIToken:   c.config.APIToken,
		UserGUID:   c.config.UserGUID,
		Reference:  form.Reference,
		Client:     form.ClientName,
		Phone:      form.Phone,
		Adresse:    form.Street,
		WilayaID:   form.WilayaID,
		Commune:    form.Commune,
		Montant:    form.Amount,
		Produit:    form.Products,
		Poids:      form.Weight,
		TypeID:     shipmentTypeDelivery,
		IsStopDesk: stopDesk,
		Tracking:   trackingNumber,
	}
}

// doRequest performs an HTTP request against the Noest API and translates
// transport and status failures into the shipping error taxonomy
func (c *Client) doRequest(ctx context.Context, path string, payload any) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("noest: failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.APIBaseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("noest: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shipping.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("noest: failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, shipping.ErrProviderAuthFailed
	case resp.StatusCode == http.StatusNotFound:
		return nil, shipping.ErrShipmentNotFound
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: HTTP %d", shipping.ErrProviderUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: HTTP %d: %s", shipping.ErrProviderRequestFailed, resp.StatusCode, bytes.TrimSpace(body))
	}

	return body, nil
}

// checkEnvelope rejects a 200 response whose body reports failure
func checkEnvelope(body []byte) error {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("%w: %v", shipping.ErrProviderInvalidResponse, err)
	}
	if !resp.Success {
		return fmt.Errorf("%w: %s", shipping.ErrProviderRequestFailed, resp.Message)
	}
	return nil
}
