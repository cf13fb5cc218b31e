package noest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kotek/backend/internal/domain/shipping"
)

// ---------------------------------------------------------------------------
// Config Tests
// ---------------------------------------------------------------------------

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr error
	}{
		{
			name: "valid config",
			config: &Config{
				APIToken: "test_token",
				UserGUID: "test_guid",
			},
			wantErr: nil,
		},
		{
			name: "missing token",
			config: &Config{
				UserGUID: "test_guid",
			},
			wantErr: ErrConfigMissingToken,
		},
		{
			name: "missing guid",
			config: &Config{
				APIToken: "test_token",
			},
			wantErr: ErrConfigMissingGUID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, ProductionAPIURL, tt.config.APIBaseURL)
				assert.True(t, tt.config.TimeoutSeconds > 0)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Client Tests
// ---------------------------------------------------------------------------

func testForm() *shipping.OrderForm {
	return &shipping.OrderForm{
		Reference:  "KTK-2026-0001",
		ClientName: "Amine Benali",
		Phone:      "0550123456",
		Street:     "Cite 5 Juillet, Bt 12",
		WilayaID:   16,
		Commune:    "Bab Ezzouar",
		Amount:     decimal.NewFromInt(2300),
		Products:   "Clavier mecanique, Souris gamer",
		Weight:     decimal.NewFromFloat(1.2),
		StopDesk:   false,
	}
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(&Config{
		APIToken:   "test_token",
		UserGUID:   "test_guid",
		APIBaseURL: server.URL,
	})
	require.NoError(t, err)
	return client, server
}

func TestClient_Create(t *testing.T) {
	t.Run("sends credentials and returns the assigned tracking", func(t *testing.T) {
		var captured orderPayload
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/public/create/order", r.URL.Path)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
			_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "tracking": "NST-ABC123"})
		}))

		result, err := client.Create(context.Background(), testForm())

		require.NoError(t, err)
		assert.Equal(t, "NST-ABC123", result.TrackingNumber)
		assert.NotEmpty(t, result.Raw)

		assert.Equal(t, "test_token", captured.APIToken)
		assert.Equal(t, "test_guid", captured.UserGUID)
		assert.Equal(t, "KTK-2026-0001", captured.Reference)
		assert.Equal(t, 16, captured.WilayaID)
		assert.True(t, captured.Montant.Equal(decimal.NewFromInt(2300)))
		assert.Equal(t, 0, captured.IsStopDesk)
		assert.Equal(t, shipmentTypeDelivery, captured.TypeID)
	})

	t.Run("maps stop desk pickup onto the wire flag", func(t *testing.T) {
		var captured orderPayload
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
			_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "tracking": "NST-ABC124"})
		}))

		form := testForm()
		form.StopDesk = true
		_, err := client.Create(context.Background(), form)

		require.NoError(t, err)
		assert.Equal(t, 1, captured.IsStopDesk)
	})

	t.Run("a success=false body is a request failure", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "commune inconnue"})
		}))

		_, err := client.Create(context.Background(), testForm())

		require.ErrorIs(t, err, shipping.ErrProviderRequestFailed)
		assert.Contains(t, err.Error(), "commune inconnue")
	})

	t.Run("a server error maps to provider unavailable", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))

		_, err := client.Create(context.Background(), testForm())
		assert.ErrorIs(t, err, shipping.ErrProviderUnavailable)
	})

	t.Run("rejects an invalid form before any network call", func(t *testing.T) {
		called := false
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}))

		form := testForm()
		form.Phone = ""
		_, err := client.Create(context.Background(), form)

		require.Error(t, err)
		assert.False(t, called)
	})
}

func TestClient_Delete(t *testing.T) {
	t.Run("a 404 maps to shipment not found", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))

		err := client.Delete(context.Background(), "NST-GONE")
		assert.ErrorIs(t, err, shipping.ErrShipmentNotFound)
	})

	t.Run("sends the tracking number", func(t *testing.T) {
		var captured trackingPayload
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/public/delete/order", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
			_ = json.NewEncoder(w).Encode(map[string]any{"success": true})
		}))

		require.NoError(t, client.Delete(context.Background(), "NST-ABC123"))
		assert.Equal(t, "NST-ABC123", captured.Tracking)
	})
}

func TestClient_Validate(t *testing.T) {
	t.Run("confirms the shipment", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/public/valid/order", r.URL.Path)
			_ = json.NewEncoder(w).Encode(map[string]any{"success": true})
		}))

		assert.NoError(t, client.Validate(context.Background(), "NST-ABC123"))
	})

	t.Run("auth failure maps to the auth sentinel", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))

		err := client.Validate(context.Background(), "NST-ABC123")
		assert.ErrorIs(t, err, shipping.ErrProviderAuthFailed)
	})
}

func TestClient_GetDeliveryFees(t *testing.T) {
	t.Run("builds the fee table from the tarif rows", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/public/fees", r.URL.Path)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"tarifs": []map[string]any{
					{"wilaya_id": 16, "tarif": 500, "tarif_stopdesk": 300},
					{"wilaya_id": 31, "tarif": 800, "tarif_stopdesk": 450},
				},
			})
		}))

		table, err := client.GetDeliveryFees(context.Background())

		require.NoError(t, err)
		require.Len(t, table, 2)
		assert.True(t, table.RateFor(16, false).Equal(decimal.NewFromInt(500)))
		assert.True(t, table.RateFor(16, true).Equal(decimal.NewFromInt(300)))
		assert.True(t, table.RateFor(31, true).Equal(decimal.NewFromInt(450)))
		assert.True(t, table.RateFor(45, false).IsZero())
	})
}

func TestClient_GetLabel(t *testing.T) {
	t.Run("returns the raw label bytes", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/public/get/order/label", r.URL.Path)
			w.Header().Set("Content-Type", "application/pdf")
			_, _ = w.Write([]byte("%PDF-1.4 label"))
		}))

		label, err := client.GetLabel(context.Background(), "NST-ABC123")

		require.NoError(t, err)
		assert.Equal(t, []byte("%PDF-1.4 label"), label)
	})
}
