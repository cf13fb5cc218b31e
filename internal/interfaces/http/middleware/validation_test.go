package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kotek/backend/internal/interfaces/http/dto"
)

type deliveryAddressInput struct {
	Name     string `json:"name" binding:"required"`
	Phone    string `json:"phone" binding:"required,phone_dz"`
	WilayaID int    `json:"wilaya_id" binding:"required,wilaya"`
	Commune  string `json:"commune" binding:"required"`
}

func newAddressEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	SetupValidator()

	r := gin.New()
	r.POST("/api/v1/orders", func(c *gin.Context) {
		var in deliveryAddressInput
		if err := c.ShouldBindJSON(&in); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusCreated, dto.NewSuccessResponse(in))
	})
	return r
}

func postOrder(r *gin.Engine, payload string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/api/v1/orders", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeValidationResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return resp
}

func TestSetupValidator(t *testing.T) {
	SetupValidator()

	v, ok := binding.Validator.Engine().(*validator.Validate)
	require.True(t, ok)

	t.Run("wilaya accepts the provinces the carrier serves", func(t *testing.T) {
		assert.NoError(t, v.Var(1, "wilaya"))
		assert.NoError(t, v.Var(16, "wilaya"))
		assert.NoError(t, v.Var(58, "wilaya"))
		assert.Error(t, v.Var(0, "wilaya"))
		assert.Error(t, v.Var(59, "wilaya"))
	})

	t.Run("phone_dz accepts dialable numbers", func(t *testing.T) {
		assert.NoError(t, v.Var("0550123456", "phone_dz"))
		assert.NoError(t, v.Var("+213550123456", "phone_dz"))
		assert.NoError(t, v.Var("021234567", "phone_dz"))
		assert.Error(t, v.Var("12345", "phone_dz"))
		assert.Error(t, v.Var("0850123456", "phone_dz"))
	})
}

func TestDeliveryAddressValidation(t *testing.T) {
	r := newAddressEngine()

	t.Run("accepts a complete delivery address", func(t *testing.T) {
		w := postOrder(r, `{"name":"Yacine Benali","phone":"0550123456","wilaya_id":16,"commune":"Bab El Oued"}`, nil)
		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("rejects a wilaya code outside the carrier grid", func(t *testing.T) {
		w := postOrder(r, `{"name":"Yacine Benali","phone":"0550123456","wilaya_id":59,"commune":"Bab El Oued"}`, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		resp := decodeValidationResponse(t, w)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "wilaya_id", resp.Error.Details[0].Field)
		assert.Equal(t, "Must be a wilaya code between 1 and 58", resp.Error.Details[0].Message)
	})

	t.Run("rejects a phone number the carrier cannot dial", func(t *testing.T) {
		w := postOrder(r, `{"name":"Yacine Benali","phone":"12345","wilaya_id":16,"commune":"Bab El Oued"}`, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		resp := decodeValidationResponse(t, w)
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "phone", resp.Error.Details[0].Field)
		assert.Equal(t, "Must be a valid Algerian phone number", resp.Error.Details[0].Message)
	})

	t.Run("reports every missing field under its wire name", func(t *testing.T) {
		w := postOrder(r, `{}`, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		resp := decodeValidationResponse(t, w)
		fields := make([]string, 0, len(resp.Error.Details))
		for _, d := range resp.Error.Details {
			fields = append(fields, d.Field)
		}
		assert.ElementsMatch(t, []string{"name", "phone", "wilaya_id", "commune"}, fields)
	})

	t.Run("carries the request id from the header", func(t *testing.T) {
		w := postOrder(r, `{}`, map[string]string{"X-Request-ID": "req-ktk-12"})

		resp := decodeValidationResponse(t, w)
		assert.Equal(t, "req-ktk-12", resp.Error.RequestID)
	})

	t.Run("malformed json yields no field details", func(t *testing.T) {
		w := postOrder(r, `{"name":`, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		resp := decodeValidationResponse(t, w)
		assert.Equal(t, "Request validation failed", resp.Error.Message)
		assert.Empty(t, resp.Error.Details)
	})
}

func TestValidationMessage(t *testing.T) {
	SetupValidator()
	v, ok := binding.Validator.Engine().(*validator.Validate)
	require.True(t, ok)

	type orderForm struct {
		Wilaya    int    `binding:"wilaya"`
		Phone     string `binding:"phone_dz"`
		Email     string `binding:"email"`
		Reference string `binding:"min=10"`
		Quantity  int    `binding:"gte=1"`
		Status    string `binding:"oneof=PENDING PROCESSING"`
		Note      string `binding:"numeric"`
	}

	err := v.Struct(orderForm{
		Wilaya:    59,
		Phone:     "12345",
		Email:     "not-an-email",
		Reference: "KTK-1",
		Quantity:  0,
		Status:    "SHIPPED",
		Note:      "abc",
	})
	require.Error(t, err)

	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)

	expected := map[string]string{
		"Wilaya":    "Must be a wilaya code between 1 and 58",
		"Phone":     "Must be a valid Algerian phone number",
		"Email":     "Invalid email format",
		"Reference": "Must be at least 10 characters",
		"Quantity":  "Must be greater than or equal to 1",
		"Status":    "Must be one of: PENDING PROCESSING",
		"Note":      "Invalid value",
	}

	require.Len(t, verrs, len(expected))
	for _, e := range verrs {
		assert.Equal(t, expected[e.Field()], validationMessage(e), e.Field())
	}
}
