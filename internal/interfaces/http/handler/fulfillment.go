package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kotek/backend/internal/application/fulfillment"
	orderapp "github.com/kotek/backend/internal/application/order"
	"github.com/kotek/backend/internal/domain/shared"
	"github.com/kotek/backend/internal/domain/shipping"
	"github.com/kotek/backend/internal/interfaces/http/dto"
)

// FulfillmentHandler handles shipment synchronization API endpoints
type FulfillmentHandler struct {
	BaseHandler
	syncService *fulfillment.SyncService
}

// NewFulfillmentHandler creates a new FulfillmentHandler
func NewFulfillmentHandler(syncService *fulfillment.SyncService) *FulfillmentHandler {
	return &FulfillmentHandler{
		syncService: syncService,
	}
}

// CreateShipmentRequest selects items for a new shipment; empty means all
// untracked items
type CreateShipmentRequest struct {
	ItemIDs []uuid.UUID `json:"item_ids"`
}

// SplitShipmentRequest selects the items to move into a separate shipment
type SplitShipmentRequest struct {
	ItemIDs []uuid.UUID `json:"item_ids" binding:"required,min=1"`
}

// ItemRevisionInput represents one quantity change in an update request
type ItemRevisionInput struct {
	ItemID   uuid.UUID `json:"item_id" binding:"required"`
	Quantity int       `json:"quantity" binding:"required,min=1"`
}

// UpdateShipmentRequest carries quantity revisions for tracked items
type UpdateShipmentRequest struct {
	Revisions []ItemRevisionInput `json:"revisions" binding:"required,min=1,dive"`
}

// ReportResponse is the API shape of a fulfillment report
type ReportResponse struct {
	Outcome          string                  `json:"outcome"`
	Order            *orderapp.OrderResponse `json:"order,omitempty"`
	ProviderResponse json.RawMessage         `json:"provider_response,omitempty"`
	DeletedCount     int                     `json:"deleted_count"`
	ValidatedCount   int                     `json:"validated_count"`
	Succeeded        []string                `json:"succeeded,omitempty"`
	Failed           []string                `json:"failed,omitempty"`
	FailedAt         string                  `json:"failed_at,omitempty"`
	FailureReason    string                  `json:"failure_reason,omitempty"`
	Retriable        bool                    `json:"retriable"`
	Compensated      *bool                   `json:"compensated,omitempty"`
}

func toReportResponse(r *fulfillment.Report) ReportResponse {
	resp := ReportResponse{
		Outcome:          string(r.Outcome),
		ProviderResponse: r.ProviderResponse,
		DeletedCount:     r.DeletedCount,
		ValidatedCount:   r.ValidatedCount,
		Succeeded:        r.Succeeded,
		Failed:           r.Failed,
		FailedAt:         r.FailedAt,
		FailureReason:    r.FailureReason,
		Retriable:        r.Retriable,
		Compensated:      r.Compensated,
	}
	if r.Order != nil {
		o := orderapp.ToOrderResponse(r.Order)
		resp.Order = &o
	}
	return resp
}

// CreateShipment handles POST /orders/:id/shipments
func (h *FulfillmentHandler) CreateShipment(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	var req CreateShipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		h.ValidationError(c, err)
		return
	}

	report := h.syncService.CreateShipment(c.Request.Context(), orderID, req.ItemIDs)
	h.renderReport(c, report)
}

// SplitShipment handles POST /orders/:id/shipments/split
func (h *FulfillmentHandler) SplitShipment(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	var req SplitShipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	report := h.syncService.SplitShipment(c.Request.Context(), orderID, req.ItemIDs)
	h.renderReport(c, report)
}

// DispatchAll handles POST /orders/:id/dispatch
func (h *FulfillmentHandler) DispatchAll(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	report := h.syncService.DispatchAll(c.Request.Context(), orderID)
	h.renderReport(c, report)
}

// CancelOrder handles POST /orders/:id/cancel
func (h *FulfillmentHandler) CancelOrder(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	report := h.syncService.CancelOrder(c.Request.Context(), orderID)
	h.renderReport(c, report)
}

// CancelShipment handles DELETE /orders/:id/shipments/:tracking
func (h *FulfillmentHandler) CancelShipment(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid order ID")
		return
	}
	tracking := c.Param("tracking")
	if tracking == "" {
		h.BadRequest(c, "Missing tracking number")
		return
	}

	report := h.syncService.CancelShipment(c.Request.Context(), orderID, tracking)
	h.renderReport(c, report)
}

// UpdateShipment handles PUT /orders/:id/shipments
func (h *FulfillmentHandler) UpdateShipment(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	var req UpdateShipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	revisions := make([]fulfillment.ItemRevision, len(req.Revisions))
	for i, rev := range req.Revisions {
		revisions[i] = fulfillment.ItemRevision{
			ItemID:   rev.ItemID,
			Quantity: rev.Quantity,
		}
	}

	report := h.syncService.UpdateShipment(c.Request.Context(), orderID, revisions)
	h.renderReport(c, report)
}

// GetLabel handles GET /orders/:id/shipments/:tracking/label
func (h *FulfillmentHandler) GetLabel(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid order ID")
		return
	}
	tracking := c.Param("tracking")
	if tracking == "" {
		h.BadRequest(c, "Missing tracking number")
		return
	}

	label, err := h.syncService.GetLabel(c.Request.Context(), orderID, tracking)
	if err != nil {
		h.handleCarrierError(c, err)
		return
	}

	c.Data(http.StatusOK, "application/pdf", label)
}

// renderReport maps a fulfillment report onto an HTTP response. Successful
// reports return 200; failed ones carry the report alongside the error so
// callers can see exactly how far the operation got.
func (h *FulfillmentHandler) renderReport(c *gin.Context, report *fulfillment.Report) {
	resp := toReportResponse(report)

	if report.IsSuccess() {
		h.Success(c, resp)
		return
	}

	code, status := classifyReportError(report)
	c.JSON(status, dto.Response{
		Success: false,
		Data:    resp,
		Error: &dto.ErrorInfo{
			Code:      code,
			Message:   report.FailureReason,
			RequestID: getRequestID(c),
		},
	})
}

// classifyReportError picks an API error code and HTTP status for a failed
// fulfillment report
func classifyReportError(report *fulfillment.Report) (string, int) {
	err := report.Err

	var critical *fulfillment.CriticalInconsistencyError
	if errors.As(err, &critical) {
		return dto.ErrCodeSyncInconsistent, http.StatusInternalServerError
	}

	if report.Outcome == fulfillment.OutcomePartialFailure {
		return dto.ErrCodeCarrierRejected, http.StatusBadGateway
	}

	var invalidState *fulfillment.InvalidStateError
	if errors.As(err, &invalidState) {
		return dto.ErrCodeInvalidState, http.StatusUnprocessableEntity
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		return code, dto.GetHTTPStatus(code)
	}

	switch {
	case errors.Is(err, shipping.ErrProviderUnavailable):
		return dto.ErrCodeCarrierUnavailable, http.StatusBadGateway
	case errors.Is(err, shipping.ErrProviderRequestFailed),
		errors.Is(err, shipping.ErrProviderAuthFailed),
		errors.Is(err, shipping.ErrProviderInvalidResponse):
		return dto.ErrCodeCarrierRejected, http.StatusBadGateway
	case errors.Is(err, shipping.ErrShipmentNotFound):
		return dto.ErrCodeNotFound, http.StatusNotFound
	}

	var remote *fulfillment.RemoteCreateFailedError
	if errors.As(err, &remote) {
		return dto.ErrCodeCarrierRejected, http.StatusBadGateway
	}

	return dto.ErrCodeInternal, http.StatusInternalServerError
}

// handleCarrierError maps direct carrier call failures (label fetch) onto
// HTTP responses
func (h *FulfillmentHandler) handleCarrierError(c *gin.Context, err error) {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		h.Error(c, dto.GetHTTPStatus(code), code, domainErr.Message)
		return
	}

	switch {
	case errors.Is(err, shipping.ErrShipmentNotFound):
		h.NotFound(c, "Shipment not found")
	case errors.Is(err, shipping.ErrProviderUnavailable):
		h.Error(c, http.StatusBadGateway, dto.ErrCodeCarrierUnavailable, "Shipping carrier is unavailable")
	case errors.Is(err, shipping.ErrProviderRequestFailed),
		errors.Is(err, shipping.ErrProviderAuthFailed),
		errors.Is(err, shipping.ErrProviderInvalidResponse):
		h.Error(c, http.StatusBadGateway, dto.ErrCodeCarrierRejected, "Shipping carrier rejected the request")
	default:
		h.InternalError(c, "An unexpected error occurred")
	}
}
