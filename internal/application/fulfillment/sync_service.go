package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kotek/backend/internal/domain/order"
	"github.com/kotek/backend/internal/domain/shared"
	"github.com/kotek/backend/internal/domain/shipping"
)

// splitCeiling is the maximum cash-on-delivery value the carrier accepts for
// a single shipment, in DZD
var splitCeiling = decimal.NewFromInt(150000)

// ItemRevision changes one item's quantity on an already-created shipment
type ItemRevision struct {
	ItemID   uuid.UUID
	Quantity int
}

// SyncService sequences remote carrier calls and local writes for each
// fulfillment operation. Remote calls always run strictly before the local
// write so a failed local write can be compensated remotely. Multi-shipment
// loops are sequential so the failure boundary stays well-defined.
type SyncService struct {
	orders    order.Repository
	addresses order.AddressRepository
	provider  shipping.Provider
	logger    *zap.Logger

	// serializes operations per order id; the repository's optimistic lock
	// still guards writers outside this process
	locks lockTable
}

// NewSyncService creates a new SyncService
func NewSyncService(orders order.Repository, addresses order.AddressRepository, provider shipping.Provider, logger *zap.Logger) *SyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncService{
		orders:    orders,
		addresses: addresses,
		provider:  provider,
		logger:    logger,
	}
}

// CreateShipment registers the given pending items (all untracked items when
// itemIDs is empty) as one carrier shipment and moves the order to
// PROCESSING. On a local-write failure after the carrier accepted the
// shipment, the shipment is deleted again best-effort and the inconsistency
// is reported.
func (s *SyncService) CreateShipment(ctx context.Context, orderID uuid.UUID, itemIDs []uuid.UUID) *Report {
	unlock := s.locks.acquire(orderID)
	defer unlock()

	o, rep := s.load(ctx, orderID)
	if rep != nil {
		return rep
	}
	if o.Status != order.StatusPending {
		return failureReport(NewInvalidStateError(fmt.Sprintf("shipment creation requires a pending order, got %s", o.Status)))
	}
	return s.createShipment(ctx, o, itemIDs, false)
}

// SplitShipment carves a caller-chosen subset of untracked items into its own
// carrier shipment; the remaining untracked items stay pending on the order.
// The subset's value must exceed the shipping price alone and must not exceed
// the carrier's cash-on-delivery ceiling.
func (s *SyncService) SplitShipment(ctx context.Context, orderID uuid.UUID, itemIDs []uuid.UUID) *Report {
	unlock := s.locks.acquire(orderID)
	defer unlock()

	o, rep := s.load(ctx, orderID)
	if rep != nil {
		return rep
	}
	if o.Status != order.StatusPending && o.Status != order.StatusProcessing {
		return failureReport(NewInvalidStateError(fmt.Sprintf("shipment split requires a pending or processing order, got %s", o.Status)))
	}
	if len(itemIDs) == 0 {
		return failureReport(NewInvalidStateError("shipment split requires an explicit item selection"))
	}
	return s.createShipment(ctx, o, itemIDs, true)
}

// createShipment is the shared create/split path. The order is already
// loaded and locked; guarded enables the split value checks.
func (s *SyncService) createShipment(ctx context.Context, o *order.Order, itemIDs []uuid.UUID, guarded bool) *Report {
	dest, err := s.resolveDestination(ctx, o)
	if err != nil {
		return failureReport(err)
	}

	items, err := selectUntracked(o, itemIDs)
	if err != nil {
		return failureReport(err)
	}

	if guarded {
		splitTotal := subtotalOf(items).Add(o.ShippingRate)
		if !splitTotal.GreaterThan(o.ShippingRate) {
			return failureReport(NewInvalidStateError("split value must exceed the shipping price"))
		}
		if splitTotal.GreaterThan(splitCeiling) {
			return failureReport(NewInvalidStateError(fmt.Sprintf("split value exceeds the %s DZD ceiling", splitCeiling)))
		}
	}

	form := buildForm(o, dest, items)
	if err := form.Validate(); err != nil {
		return failureReport(NewInvalidStateError(err.Error()))
	}

	res, err := s.provider.Create(ctx, form)
	if err != nil {
		return failureReport(&RemoteCreateFailedError{Op: "create", Err: err})
	}

	ids := make([]uuid.UUID, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	if err := o.AttachTracking(ids, res.TrackingNumber); err != nil {
		return failureReport(s.compensateCreate(ctx, "create", res.TrackingNumber, err))
	}

	if err := s.orders.Update(ctx, o); err != nil {
		return failureReport(s.compensateCreate(ctx, "create", res.TrackingNumber, err))
	}

	return successReport(o, res.Raw)
}

// compensateCreate deletes the just-created carrier shipment after a failed
// local write. The outcome is folded into the returned error so operators
// know whether manual cleanup remains.
func (s *SyncService) compensateCreate(ctx context.Context, op, trackingNumber string, cause error) error {
	compErr := s.provider.Delete(ctx, trackingNumber)
	if errors.Is(compErr, shipping.ErrShipmentNotFound) {
		// the carrier no longer knows the shipment, nothing left to undo
		compErr = nil
	}
	if compErr != nil {
		s.logger.Error("compensating shipment deletion failed",
			zap.String("op", op),
			zap.String("tracking_number", trackingNumber),
			zap.NamedError("local_error", cause),
			zap.Error(compErr))
	} else {
		s.logger.Warn("local write failed, carrier shipment was deleted again",
			zap.String("op", op),
			zap.String("tracking_number", trackingNumber),
			zap.NamedError("local_error", cause))
	}
	return &CriticalInconsistencyError{
		Op:              op,
		TrackingNumber:  trackingNumber,
		Err:             cause,
		Compensated:     compErr == nil,
		CompensationErr: compErr,
	}
}

// DispatchAll confirms every shipment on a processing order with the
// carrier, sequentially, then marks the order DISPATCHED in one local write.
// Validation stops at the first carrier failure; earlier confirmations are
// never rolled back and a retry resumes from the failure boundary.
func (s *SyncService) DispatchAll(ctx context.Context, orderID uuid.UUID) *Report {
	unlock := s.locks.acquire(orderID)
	defer unlock()

	o, rep := s.load(ctx, orderID)
	if rep != nil {
		return rep
	}
	if o.Status != order.StatusProcessing {
		return failureReport(NewInvalidStateError(fmt.Sprintf("dispatch requires a processing order, got %s", o.Status)))
	}

	trackings := o.TrackingNumbers()
	if len(trackings) == 0 {
		// nothing to confirm, the order stays processing
		rep := successReport(o, nil)
		return rep
	}

	validated := make([]string, 0, len(trackings))
	for _, tn := range trackings {
		if err := s.provider.Validate(ctx, tn); err != nil {
			perr := &PartialFailureError{Op: "dispatch", Succeeded: validated, FailedAt: tn, Err: err}
			r := partialReport(o, perr)
			r.ValidatedCount = len(validated)
			return r
		}
		validated = append(validated, tn)
	}

	if err := o.TransitionTo(order.StatusDispatched); err != nil {
		return failureReport(NewInvalidStateError(err.Error()))
	}
	if err := s.orders.Update(ctx, o); err != nil {
		s.logger.Error("local write failed after carrier confirmed all shipments",
			zap.String("op", "dispatch"),
			zap.Strings("tracking_numbers", validated),
			zap.Error(err))
		return failureReport(&CriticalInconsistencyError{
			Op:          "dispatch",
			Err:         err,
			Compensated: false, // carrier confirmations cannot be undone
		})
	}

	r := successReport(o, nil)
	r.ValidatedCount = len(validated)
	r.Succeeded = validated
	return r
}

// CancelOrder deletes every carrier shipment on the order, sequentially,
// then marks the order CANCELLED in one local write. On the first deletion
// failure the loop stops and the order keeps its prior status, so a retry
// resumes from the failed tracking number; shipments the carrier already
// forgot count as deleted.
func (s *SyncService) CancelOrder(ctx context.Context, orderID uuid.UUID) *Report {
	unlock := s.locks.acquire(orderID)
	defer unlock()

	o, rep := s.load(ctx, orderID)
	if rep != nil {
		return rep
	}
	if o.Status == order.StatusCancelled {
		// already cancelled, nothing to do
		return successReport(o, nil)
	}
	if o.Status.IsTerminal() {
		return failureReport(NewInvalidStateError(fmt.Sprintf("cannot cancel a %s order", o.Status)))
	}

	trackings := o.TrackingNumbers()
	deleted := make([]string, 0, len(trackings))
	for _, tn := range trackings {
		err := s.provider.Delete(ctx, tn)
		if err != nil && !errors.Is(err, shipping.ErrShipmentNotFound) {
			perr := &PartialFailureError{Op: "cancel", Succeeded: deleted, FailedAt: tn, Err: err}
			r := partialReport(o, perr)
			r.DeletedCount = len(deleted)
			return r
		}
		deleted = append(deleted, tn)
	}

	// the order is only mutated once every carrier deletion went through, so
	// a partial report always carries the order as it is stored
	for _, tn := range deleted {
		if releaseErr := o.ReleaseTracking(tn); releaseErr != nil {
			return failureReport(NewInvalidStateError(releaseErr.Error()))
		}
	}

	if err := o.Cancel(); err != nil {
		return failureReport(NewInvalidStateError(err.Error()))
	}
	if err := s.orders.Update(ctx, o); err != nil {
		s.logger.Error("local cancellation write failed after carrier shipments were deleted",
			zap.Strings("tracking_numbers", deleted),
			zap.Error(err))
		return failureReport(&CriticalInconsistencyError{
			Op:          "cancel",
			Err:         err,
			Compensated: false, // deleted shipments cannot be recreated
		})
	}

	r := successReport(o, nil)
	r.DeletedCount = len(deleted)
	r.Succeeded = deleted
	return r
}

// CancelShipment deletes a single carrier shipment and returns its items to
// the untracked pending pool. When no shipment remains the order steps back
// to PENDING.
func (s *SyncService) CancelShipment(ctx context.Context, orderID uuid.UUID, trackingNumber string) *Report {
	unlock := s.locks.acquire(orderID)
	defer unlock()

	o, rep := s.load(ctx, orderID)
	if rep != nil {
		return rep
	}
	if o.Status != order.StatusProcessing {
		return failureReport(NewInvalidStateError(fmt.Sprintf("shipment cancellation requires a processing order, got %s", o.Status)))
	}
	if !contains(o.TrackingNumbers(), trackingNumber) {
		return failureReport(NewInvalidStateError(fmt.Sprintf("tracking %q does not belong to this order", trackingNumber)))
	}

	if err := s.provider.Delete(ctx, trackingNumber); err != nil && !errors.Is(err, shipping.ErrShipmentNotFound) {
		return failureReport(&RemoteCreateFailedError{Op: "cancel-shipment", Err: err})
	}

	if err := o.ReleaseTracking(trackingNumber); err != nil {
		return failureReport(NewInvalidStateError(err.Error()))
	}
	if len(o.TrackingNumbers()) == 0 {
		if err := o.TransitionTo(order.StatusPending); err != nil {
			return failureReport(NewInvalidStateError(err.Error()))
		}
	}

	if err := s.orders.Update(ctx, o); err != nil {
		s.logger.Error("local write failed after carrier shipment was deleted",
			zap.String("tracking_number", trackingNumber),
			zap.Error(err))
		return failureReport(&CriticalInconsistencyError{
			Op:             "cancel-shipment",
			TrackingNumber: trackingNumber,
			Err:            err,
			Compensated:    false, // the deleted shipment cannot be recreated
		})
	}

	r := successReport(o, nil)
	r.DeletedCount = 1
	return r
}

// UpdateShipment applies item quantity revisions to an order whose shipments
// are created but not yet dispatched. The carrier receives the revised form
// for every shipment before the local write; if the local write then fails,
// the pre-revision forms are replayed to the carrier best-effort.
func (s *SyncService) UpdateShipment(ctx context.Context, orderID uuid.UUID, revisions []ItemRevision) *Report {
	unlock := s.locks.acquire(orderID)
	defer unlock()

	o, rep := s.load(ctx, orderID)
	if rep != nil {
		return rep
	}
	if o.Status != order.StatusProcessing {
		return failureReport(NewInvalidStateError(fmt.Sprintf("shipment update requires a processing order, got %s", o.Status)))
	}
	if len(revisions) == 0 {
		return failureReport(NewInvalidStateError("shipment update requires at least one revision"))
	}

	dest, err := s.resolveDestination(ctx, o)
	if err != nil {
		return failureReport(err)
	}

	trackings := o.TrackingNumbers()
	if len(trackings) == 0 {
		return failureReport(NewInvalidStateError("order has no shipment to update"))
	}

	// snapshot the carrier forms before touching anything, for rollback
	snapshot := s.trackedForms(o, dest)

	for _, rev := range revisions {
		if err := o.ReviseItemQuantity(rev.ItemID, rev.Quantity); err != nil {
			return failureReport(NewInvalidStateError(err.Error()))
		}
	}
	revised := s.trackedForms(o, dest)

	updated := make([]string, 0, len(trackings))
	for _, tn := range trackings {
		if err := s.provider.Update(ctx, tn, revised[tn]); err != nil {
			// undo the forms already pushed so no net remote effect remains
			if revertErr := s.replayForms(ctx, snapshot, updated); revertErr != nil {
				return failureReport(&CriticalInconsistencyError{
					Op:              "update",
					TrackingNumber:  tn,
					Err:             err,
					Compensated:     false,
					CompensationErr: revertErr,
				})
			}
			return failureReport(&RemoteCreateFailedError{Op: "update", Err: err})
		}
		updated = append(updated, tn)
	}

	if err := s.orders.Update(ctx, o); err != nil {
		compErr := s.replayForms(ctx, snapshot, updated)
		if compErr != nil {
			s.logger.Error("replaying pre-update shipment forms failed",
				zap.Strings("tracking_numbers", updated),
				zap.NamedError("local_error", err),
				zap.Error(compErr))
		} else {
			s.logger.Warn("local write failed, pre-update shipment forms were replayed",
				zap.Strings("tracking_numbers", updated),
				zap.NamedError("local_error", err))
		}
		return failureReport(&CriticalInconsistencyError{
			Op:              "update",
			Err:             err,
			Compensated:     compErr == nil,
			CompensationErr: compErr,
		})
	}

	return successReport(o, nil)
}

// GetLabel downloads the carrier label for one of the order's shipments
func (s *SyncService) GetLabel(ctx context.Context, orderID uuid.UUID, trackingNumber string) ([]byte, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !contains(o.TrackingNumbers(), trackingNumber) {
		return nil, shared.NewDomainError("TRACKING_NOT_FOUND", "Tracking number does not belong to this order")
	}
	return s.provider.GetLabel(ctx, trackingNumber)
}

// ---------------------------------------------------------------------------
// Internal helpers
// ---------------------------------------------------------------------------

func (s *SyncService) load(ctx context.Context, orderID uuid.UUID) (*order.Order, *Report) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, failureReport(NewInvalidStateError("order not found"))
		}
		return nil, failureReport(NewInvalidStateError(fmt.Sprintf("failed to load order: %v", err)))
	}
	return o, nil
}

// resolveDestination returns the order's shipping destination, whichever of
// the two address sources is present
func (s *SyncService) resolveDestination(ctx context.Context, o *order.Order) (order.GuestAddress, error) {
	if !o.HasAddress() {
		return order.GuestAddress{}, NewInvalidStateError(shared.ErrMissingAddress.Message)
	}
	if o.GuestAddress != nil {
		return *o.GuestAddress, nil
	}
	addr, err := s.addresses.FindByID(ctx, *o.AddressID)
	if err != nil {
		return order.GuestAddress{}, NewInvalidStateError(fmt.Sprintf("failed to resolve shipping address: %v", err))
	}
	return addr.Details(), nil
}

// trackedForms builds one carrier form per tracked shipment group
func (s *SyncService) trackedForms(o *order.Order, dest order.GuestAddress) map[string]*shipping.OrderForm {
	forms := make(map[string]*shipping.OrderForm)
	for _, group := range o.ShipmentGroups() {
		if group.IsPending() {
			continue
		}
		forms[group.TrackingNumber] = buildForm(o, dest, group.Items)
	}
	return forms
}

// replayForms pushes the given forms back to the carrier for the listed
// tracking numbers, stopping at the first failure
func (s *SyncService) replayForms(ctx context.Context, forms map[string]*shipping.OrderForm, trackings []string) error {
	for _, tn := range trackings {
		if err := s.provider.Update(ctx, tn, forms[tn]); err != nil {
			return fmt.Errorf("replaying form for %s: %w", tn, err)
		}
	}
	return nil
}

// buildForm assembles the carrier order form for a subset of an order's
// items. The cash-on-delivery amount covers the subset plus the shipping
// price the customer owes on delivery.
func buildForm(o *order.Order, dest order.GuestAddress, items []order.OrderItem) *shipping.OrderForm {
	names := make([]string, 0, len(items))
	weight := decimal.Zero
	for _, item := range items {
		names = append(names, item.ProductName)
		weight = weight.Add(item.TotalWeight())
	}
	if weight.LessThan(decimal.NewFromInt(1)) {
		weight = decimal.NewFromInt(1)
	}

	return &shipping.OrderForm{
		Reference:  o.Reference,
		ClientName: dest.FullName,
		Phone:      dest.Phone,
		Street:     dest.Street,
		WilayaID:   dest.WilayaID,
		Commune:    dest.Commune,
		Amount:     subtotalOf(items).Add(o.ShippingRate),
		Products:   strings.Join(names, ", "),
		Weight:     weight,
		StopDesk:   o.StopDesk,
	}
}

// selectUntracked resolves the requested item IDs against the order's
// untracked pool; an empty request selects the whole pool
func selectUntracked(o *order.Order, itemIDs []uuid.UUID) ([]order.OrderItem, error) {
	untracked := o.UntrackedItems()
	if len(untracked) == 0 {
		return nil, NewInvalidStateError("order has no untracked items")
	}
	if len(itemIDs) == 0 {
		return untracked, nil
	}

	byID := make(map[uuid.UUID]order.OrderItem, len(untracked))
	for _, item := range untracked {
		byID[item.ID] = item
	}

	items := make([]order.OrderItem, 0, len(itemIDs))
	seen := make(map[uuid.UUID]struct{}, len(itemIDs))
	for _, id := range itemIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		item, ok := byID[id]
		if !ok {
			return nil, NewInvalidStateError(fmt.Sprintf("item %s is not an untracked item of this order", id))
		}
		items = append(items, item)
	}
	return items, nil
}

func subtotalOf(items []order.OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Amount())
	}
	return total
}

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}
