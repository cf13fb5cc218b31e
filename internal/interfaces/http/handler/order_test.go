package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	orderapp "github.com/kotek/backend/internal/application/order"
	"github.com/kotek/backend/internal/domain/order"
	"github.com/kotek/backend/internal/domain/shared"
	"github.com/kotek/backend/internal/domain/shared/valueobject"
	"github.com/kotek/backend/internal/domain/shipping"
)

// MockOrderRepository implements order.Repository for testing
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByReference(ctx context.Context, reference string) (*order.Order, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) FindAll(ctx context.Context, filter shared.Filter) ([]order.Order, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Order), args.Error(1)
}

func (m *MockOrderRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockOrderRepository) CountByStatus(ctx context.Context, status order.Status) (int64, error) {
	args := m.Called(ctx, status)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockOrderRepository) Create(ctx context.Context, o *order.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockOrderRepository) Update(ctx context.Context, o *order.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOrderRepository) GenerateReference(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// MockAddressRepository implements order.AddressRepository for testing
type MockAddressRepository struct {
	mock.Mock
}

func (m *MockAddressRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Address, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Address), args.Error(1)
}

func (m *MockAddressRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]order.Address, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Address), args.Error(1)
}

func (m *MockAddressRepository) Save(ctx context.Context, a *order.Address) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockAddressRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockFeeSource implements orderapp.FeeSource for testing
type MockFeeSource struct {
	mock.Mock
}

func (m *MockFeeSource) Fees(ctx context.Context) (shipping.FeeTable, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(shipping.FeeTable), args.Error(1)
}

func setupOrderTestRouter() (*gin.Engine, *MockOrderRepository, *MockFeeSource, *OrderHandler) {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	orders := new(MockOrderRepository)
	addresses := new(MockAddressRepository)
	fees := new(MockFeeSource)

	service := orderapp.NewService(orders, addresses, fees)
	handler := NewOrderHandler(service)

	return router, orders, fees, handler
}

func testFeeTable() shipping.FeeTable {
	return shipping.FeeTable{
		16: {HomeDelivery: decimal.NewFromInt(400), StopDesk: decimal.NewFromInt(250)},
		31: {HomeDelivery: decimal.NewFromInt(600), StopDesk: decimal.NewFromInt(350)},
	}
}

func createTestPendingOrder(t *testing.T) *order.Order {
	t.Helper()
	o, err := order.New("KTK-2026-00042", nil)
	require.NoError(t, err)
	addr := order.GuestAddress{
		FullName: "Amine Benali",
		Phone:    "0550123456",
		WilayaID: 16,
		Commune:  "Bab Ezzouar",
		Street:   "Cite 5 Juillet, Bt 12",
	}
	require.NoError(t, o.SetGuestAddress(addr, decimal.NewFromInt(400)))
	_, err = o.AddItem(uuid.New(), "Clavier mecanique", 2, valueobject.NewMoneyDZDFromFloat(500), decimal.NewFromFloat(0.5))
	require.NoError(t, err)
	return o
}

func TestOrderHandler_Create(t *testing.T) {
	t.Run("should create a guest order", func(t *testing.T) {
		router, orders, fees, handler := setupOrderTestRouter()
		router.POST("/orders", handler.Create)

		orders.On("GenerateReference", mock.Anything).Return("KTK-2026-00042", nil)
		fees.On("Fees", mock.Anything).Return(testFeeTable(), nil)
		orders.On("Create", mock.Anything, mock.AnythingOfType("*order.Order")).Return(nil)

		reqBody := orderapp.CreateOrderRequest{
			GuestAddress: &orderapp.GuestAddressInput{
				FullName: "Amine Benali",
				Phone:    "0550123456",
				WilayaID: 16,
				Commune:  "Bab Ezzouar",
			},
			Items: []orderapp.CreateOrderItemInput{
				{
					ProductID:   uuid.New(),
					ProductName: "Clavier mecanique",
					Quantity:    2,
					UnitPrice:   decimal.NewFromInt(500),
					Weight:      decimal.NewFromFloat(0.5),
				},
			},
		}
		body, _ := json.Marshal(reqBody)

		req, _ := http.NewRequest(http.MethodPost, "/orders", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)

		var response map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.True(t, response["success"].(bool))

		data := response["data"].(map[string]interface{})
		assert.Equal(t, "KTK-2026-00042", data["reference"])
		assert.Equal(t, "PENDING", data["status"])

		orders.AssertExpectations(t)
	})

	t.Run("should reject an item without product name", func(t *testing.T) {
		router, _, _, handler := setupOrderTestRouter()
		router.POST("/orders", handler.Create)

		reqBody := map[string]interface{}{
			"items": []map[string]interface{}{
				{"product_id": uuid.New().String(), "quantity": 1, "unit_price": "500"},
			},
		}
		body, _ := json.Marshal(reqBody)

		req, _ := http.NewRequest(http.MethodPost, "/orders", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("should reject both saved and guest address", func(t *testing.T) {
		router, orders, _, handler := setupOrderTestRouter()
		router.POST("/orders", handler.Create)

		orders.On("GenerateReference", mock.Anything).Return("KTK-2026-00043", nil)

		addressID := uuid.New()
		reqBody := orderapp.CreateOrderRequest{
			AddressID: &addressID,
			GuestAddress: &orderapp.GuestAddressInput{
				FullName: "Amine Benali",
				Phone:    "0550123456",
				WilayaID: 16,
				Commune:  "Bab Ezzouar",
			},
		}
		body, _ := json.Marshal(reqBody)

		req, _ := http.NewRequest(http.MethodPost, "/orders", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var response map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		errInfo := response["error"].(map[string]interface{})
		assert.Equal(t, "ERR_INVALID_INPUT", errInfo["code"])
	})
}

func TestOrderHandler_GetByID(t *testing.T) {
	t.Run("should get an order by ID", func(t *testing.T) {
		router, orders, _, handler := setupOrderTestRouter()
		router.GET("/orders/:id", handler.GetByID)

		o := createTestPendingOrder(t)
		orders.On("FindByID", mock.Anything, o.ID).Return(o, nil)

		req, _ := http.NewRequest(http.MethodGet, "/orders/"+o.ID.String(), nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		data := response["data"].(map[string]interface{})
		assert.Equal(t, o.ID.String(), data["id"])
		assert.Equal(t, "KTK-2026-00042", data["reference"])
	})

	t.Run("should return 404 when the order does not exist", func(t *testing.T) {
		router, orders, _, handler := setupOrderTestRouter()
		router.GET("/orders/:id", handler.GetByID)

		orderID := uuid.New()
		orders.On("FindByID", mock.Anything, orderID).Return(nil, shared.ErrNotFound)

		req, _ := http.NewRequest(http.MethodGet, "/orders/"+orderID.String(), nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)

		var response map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		errInfo := response["error"].(map[string]interface{})
		assert.Equal(t, "ERR_NOT_FOUND", errInfo["code"])
	})

	t.Run("should reject a malformed order ID", func(t *testing.T) {
		router, _, _, handler := setupOrderTestRouter()
		router.GET("/orders/:id", handler.GetByID)

		req, _ := http.NewRequest(http.MethodGet, "/orders/not-a-uuid", nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestOrderHandler_GetByReference(t *testing.T) {
	router, orders, _, handler := setupOrderTestRouter()
	router.GET("/orders/reference/:reference", handler.GetByReference)

	o := createTestPendingOrder(t)
	orders.On("FindByReference", mock.Anything, "KTK-2026-00042").Return(o, nil)

	req, _ := http.NewRequest(http.MethodGet, "/orders/reference/KTK-2026-00042", nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	data := response["data"].(map[string]interface{})
	assert.Equal(t, "KTK-2026-00042", data["reference"])
}

func TestOrderHandler_List(t *testing.T) {
	t.Run("should list orders with pagination meta", func(t *testing.T) {
		router, orders, _, handler := setupOrderTestRouter()
		router.GET("/orders", handler.List)

		o := createTestPendingOrder(t)
		orders.On("FindAll", mock.Anything, mock.Anything).Return([]order.Order{*o}, nil)
		orders.On("Count", mock.Anything, mock.Anything).Return(int64(1), nil)

		req, _ := http.NewRequest(http.MethodGet, "/orders?page=1&page_size=20", nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.True(t, response["success"].(bool))

		meta := response["meta"].(map[string]interface{})
		assert.Equal(t, float64(1), meta["total"])
		assert.Equal(t, float64(1), meta["page"])
	})

	t.Run("should filter by status", func(t *testing.T) {
		router, orders, _, handler := setupOrderTestRouter()
		router.GET("/orders", handler.List)

		orders.On("FindAll", mock.Anything, mock.MatchedBy(func(f shared.Filter) bool {
			return f.Filters["status"] == "PROCESSING"
		})).Return([]order.Order{}, nil)
		orders.On("Count", mock.Anything, mock.Anything).Return(int64(0), nil)

		req, _ := http.NewRequest(http.MethodGet, "/orders?status=PROCESSING", nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		orders.AssertExpectations(t)
	})

	t.Run("should reject an unknown status", func(t *testing.T) {
		router, _, _, handler := setupOrderTestRouter()
		router.GET("/orders", handler.List)

		req, _ := http.NewRequest(http.MethodGet, "/orders?status=teleported", nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestOrderHandler_AddItem(t *testing.T) {
	t.Run("should add an item to a pending order", func(t *testing.T) {
		router, orders, _, handler := setupOrderTestRouter()
		router.POST("/orders/:id/items", handler.AddItem)

		o := createTestPendingOrder(t)
		orders.On("FindByID", mock.Anything, o.ID).Return(o, nil)
		orders.On("Update", mock.Anything, o).Return(nil)

		reqBody := orderapp.AddOrderItemRequest{
			ProductID:   uuid.New(),
			ProductName: "Tapis de souris",
			Quantity:    1,
			UnitPrice:   decimal.NewFromInt(800),
		}
		body, _ := json.Marshal(reqBody)

		req, _ := http.NewRequest(http.MethodPost, "/orders/"+o.ID.String()+"/items", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		data := response["data"].(map[string]interface{})
		items := data["items"].([]interface{})
		assert.Len(t, items, 2)
	})

	t.Run("should reject a zero quantity", func(t *testing.T) {
		router, _, _, handler := setupOrderTestRouter()
		router.POST("/orders/:id/items", handler.AddItem)

		reqBody := map[string]interface{}{
			"product_id":   uuid.New().String(),
			"product_name": "Tapis de souris",
			"quantity":     0,
			"unit_price":   "800",
		}
		body, _ := json.Marshal(reqBody)

		req, _ := http.NewRequest(http.MethodPost, "/orders/"+uuid.New().String()+"/items", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestOrderHandler_UpdateItem(t *testing.T) {
	router, orders, _, handler := setupOrderTestRouter()
	router.PUT("/orders/:id/items/:item_id", handler.UpdateItem)

	o := createTestPendingOrder(t)
	itemID := o.Items[0].ID
	orders.On("FindByID", mock.Anything, o.ID).Return(o, nil)
	orders.On("Update", mock.Anything, o).Return(nil)

	body, _ := json.Marshal(orderapp.UpdateOrderItemRequest{Quantity: 5})

	req, _ := http.NewRequest(http.MethodPut, "/orders/"+o.ID.String()+"/items/"+itemID.String(), bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, o.Items[0].Quantity)
}

func TestOrderHandler_RemoveItem(t *testing.T) {
	t.Run("should return 422 when the item is tracked", func(t *testing.T) {
		router, orders, _, handler := setupOrderTestRouter()
		router.DELETE("/orders/:id/items/:item_id", handler.RemoveItem)

		o := createTestPendingOrder(t)
		itemID := o.Items[0].ID
		require.NoError(t, o.AttachTracking([]uuid.UUID{itemID}, "NST-1"))

		orders.On("FindByID", mock.Anything, o.ID).Return(o, nil)

		req, _ := http.NewRequest(http.MethodDelete, "/orders/"+o.ID.String()+"/items/"+itemID.String(), nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

		var response map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		errInfo := response["error"].(map[string]interface{})
		assert.Equal(t, "ERR_INVALID_STATE", errInfo["code"])
	})
}

func TestOrderHandler_Delete(t *testing.T) {
	router, orders, _, handler := setupOrderTestRouter()
	router.DELETE("/orders/:id", handler.Delete)

	o := createTestPendingOrder(t)
	orders.On("FindByID", mock.Anything, o.ID).Return(o, nil)
	orders.On("Delete", mock.Anything, o.ID).Return(nil)

	req, _ := http.NewRequest(http.MethodDelete, "/orders/"+o.ID.String(), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	orders.AssertExpectations(t)
}

func TestOrderHandler_DeliveryFees(t *testing.T) {
	router, _, fees, handler := setupOrderTestRouter()
	router.GET("/delivery-fees", handler.DeliveryFees)

	fees.On("Fees", mock.Anything).Return(testFeeTable(), nil)

	req, _ := http.NewRequest(http.MethodGet, "/delivery-fees", nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	data := response["data"].([]interface{})
	require.Len(t, data, 2)

	first := data[0].(map[string]interface{})
	assert.Equal(t, float64(16), first["wilaya_id"])
}
