package tracking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	orderapp "github.com/orderdesk/backend/internal/application/order"
	"github.com/orderdesk/backend/internal/domain/integration"
	"github.com/orderdesk/backend/internal/domain/order"
	"github.com/orderdesk/backend/internal/domain/shared"
	"github.com/orderdesk/backend/internal/infrastructure/persistence"
)

type fakeCarrier struct {
	returnID     string
	returnErr    error
	status       map[string]integration.TrackingUpdate
	statusErr    error
	createCalls  int
	statusCalls  int
	batchCalls   int
	lastPayload  integration.ReturnPayload
	lastBatchIDs []string
}

func (f *fakeCarrier) CreateReturn(ctx context.Context, payload integration.ReturnPayload) (string, error) {
	f.createCalls++
	f.lastPayload = payload
	if f.returnErr != nil {
		return "", f.returnErr
	}
	return f.returnID, nil
}

func (f *fakeCarrier) GetStatus(ctx context.Context, trackingID string) (integration.TrackingUpdate, error) {
	f.statusCalls++
	if f.statusErr != nil {
		return integration.TrackingUpdate{}, f.statusErr
	}
	update, ok := f.status[trackingID]
	if !ok {
		return integration.TrackingUpdate{}, errors.New("unknown tracking id")
	}
	return update, nil
}

func (f *fakeCarrier) GetStatusBatch(ctx context.Context, trackingIDs []string) (map[string]integration.TrackingUpdate, error) {
	f.batchCalls++
	f.lastBatchIDs = trackingIDs
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	result := make(map[string]integration.TrackingUpdate)
	for _, id := range trackingIDs {
		if update, ok := f.status[id]; ok {
			result[id] = update
		}
	}
	return result, nil
}

func seedOrder(t *testing.T, store *orderapp.ReconcileStore, identifier string) *order.OrderRecord {
	t.Helper()
	rec, err := store.Upsert(context.Background(), order.RawOrder{
		Identifier: identifier,
		Customer: order.CustomerPatch{
			Name:    order.Ptr("Asha Rao"),
			Phone:   order.Ptr("9000000001"),
			Address: order.Ptr("12 MG Road"),
		},
		Products: []order.ProductLine{
			{Name: "Blue Kurta", Quantity: 2, UnitPrice: decimal.NewFromInt(799)},
			{Name: "Silk Scarf", Quantity: 1, UnitPrice: decimal.NewFromInt(349)},
		},
	}, order.SourceManualEdit)
	require.NoError(t, err)
	return rec
}

func newFixture(t *testing.T, carrier integration.Carrier, opts ...Option) (*Service, *orderapp.ReconcileStore) {
	t.Helper()
	store := orderapp.NewReconcileStore(persistence.NewInMemoryOrderRepository(), zap.NewNop())
	return NewService(store, carrier, zap.NewNop(), opts...), store
}

func TestRequestReturn(t *testing.T) {
	carrier := &fakeCarrier{returnID: "EK001"}
	svc, store := newFixture(t, carrier)
	ctx := context.Background()
	seedOrder(t, store, "1001")

	updated, err := svc.RequestReturn(ctx, "#1001", []order.ReturnLine{{ProductIndex: 0, Quantity: 1}})
	require.NoError(t, err)

	assert.Equal(t, order.OrderStatusReturnRequested, updated.Status)
	assert.Equal(t, "EK001", updated.Tracking.CarrierTrackingID)
	require.Len(t, updated.Tracking.History, 1)
	assert.Equal(t, "Return Initiated", updated.Tracking.History[0].Status)

	// payload carries the selected line, not the whole order
	require.Len(t, carrier.lastPayload.Products, 1)
	assert.Equal(t, "Blue Kurta", carrier.lastPayload.Products[0].Name)
	assert.Equal(t, "1001", carrier.lastPayload.OrderID)
}

func TestRequestReturn_SecondAttemptRejected(t *testing.T) {
	carrier := &fakeCarrier{returnID: "EK001"}
	svc, store := newFixture(t, carrier)
	ctx := context.Background()
	seedOrder(t, store, "1001")

	_, err := svc.RequestReturn(ctx, "1001", []order.ReturnLine{{ProductIndex: 0}})
	require.NoError(t, err)

	_, err = svc.RequestReturn(ctx, "1001", []order.ReturnLine{{ProductIndex: 1}})
	assert.ErrorIs(t, err, shared.ErrInvalidState)
	assert.Equal(t, 1, carrier.createCalls)
}

func TestRequestReturn_RepeatAfterStatusReset(t *testing.T) {
	carrier := &fakeCarrier{returnID: "EK001"}
	clock := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	svc, store := newFixture(t, carrier, WithClock(func() time.Time { return clock }))
	ctx := context.Background()
	seedOrder(t, store, "1001")

	first, err := svc.RequestReturn(ctx, "1001", []order.ReturnLine{{ProductIndex: 0}})
	require.NoError(t, err)
	require.Len(t, first.Tracking.History, 1)

	// The return guard keys off the coarse status; once an operator moves the
	// order off RETURN_REQUESTED a second return is legal again.
	_, err = store.Update(ctx, order.RawOrder{
		Identifier: "1001",
		Status:     order.Ptr(order.OrderStatusDelivered),
	}, order.SourceManualEdit)
	require.NoError(t, err)

	carrier.returnID = "EK002"
	clock = clock.Add(72 * time.Hour)

	second, err := svc.RequestReturn(ctx, "1001", []order.ReturnLine{{ProductIndex: 1}})
	require.NoError(t, err)

	assert.Equal(t, order.OrderStatusReturnRequested, second.Status)
	assert.Equal(t, "EK002", second.Tracking.CarrierTrackingID)

	// the second initiation gets its own event even though the tail already
	// reads "Return Initiated"
	require.Len(t, second.Tracking.History, 2)
	assert.Equal(t, "Return Initiated", second.Tracking.History[1].Status)
	assert.Equal(t, clock, second.Tracking.History[1].Timestamp)
	require.NotNil(t, second.Tracking.LastUpdated)
	assert.Equal(t, clock, *second.Tracking.LastUpdated)
	assert.Equal(t, 2, carrier.createCalls)
}

func TestRequestReturn_GuardsBeforeCarrier(t *testing.T) {
	carrier := &fakeCarrier{returnID: "EK001"}
	svc, store := newFixture(t, carrier)
	ctx := context.Background()
	seedOrder(t, store, "1001")

	_, err := svc.RequestReturn(ctx, "1001", nil)
	assert.ErrorIs(t, err, shared.ErrNoProductsSelected)
	assert.Zero(t, carrier.createCalls)

	_, err = svc.RequestReturn(ctx, "1001", []order.ReturnLine{{ProductIndex: 9}})
	assert.ErrorIs(t, err, shared.ErrNoProductsSelected)
	assert.Zero(t, carrier.createCalls)
}

func TestRequestReturn_CarrierFailureLeavesOrderUntouched(t *testing.T) {
	carrier := &fakeCarrier{returnErr: errors.New("pickup zone not serviceable")}
	svc, store := newFixture(t, carrier)
	ctx := context.Background()
	seedOrder(t, store, "1001")

	_, err := svc.RequestReturn(ctx, "1001", []order.ReturnLine{{ProductIndex: 0}})
	assert.ErrorIs(t, err, shared.ErrCarrierRejected)

	rec, err := store.Get(ctx, "1001")
	require.NoError(t, err)
	assert.Equal(t, order.OrderStatusNew, rec.Status)
	assert.Empty(t, rec.Tracking.History)
}

func TestRequestReturn_NoCarrierConfigured(t *testing.T) {
	svc, store := newFixture(t, nil)
	seedOrder(t, store, "1001")

	_, err := svc.RequestReturn(context.Background(), "1001", []order.ReturnLine{{ProductIndex: 0}})
	require.Error(t, err)
	var derr *shared.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "CARRIER_NOT_CONFIGURED", derr.Code)
}

func TestRefreshTracking_Idempotent(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	carrier := &fakeCarrier{
		returnID: "EK001",
		status: map[string]integration.TrackingUpdate{
			"EK001": {Status: "Out for Pickup", Timestamp: ts},
		},
	}
	svc, store := newFixture(t, carrier)
	ctx := context.Background()
	seedOrder(t, store, "1001")

	_, err := svc.RequestReturn(ctx, "1001", []order.ReturnLine{{ProductIndex: 0}})
	require.NoError(t, err)

	first, err := svc.RefreshTracking(ctx, "1001")
	require.NoError(t, err)
	assert.Len(t, first.Tracking.History, 2)
	assert.Equal(t, "Out for Pickup", first.Tracking.CurrentStatus)

	// same upstream status: history does not grow, updatedAt untouched
	second, err := svc.RefreshTracking(ctx, "1001")
	require.NoError(t, err)
	assert.Len(t, second.Tracking.History, 2)
	assert.Equal(t, first.UpdatedAt, second.UpdatedAt)

	// coarse status is never driven by a refresh
	assert.Equal(t, order.OrderStatusReturnRequested, second.Status)

	carrier.status["EK001"] = integration.TrackingUpdate{Status: "Picked Up", Timestamp: ts.Add(time.Hour)}
	third, err := svc.RefreshTracking(ctx, "1001")
	require.NoError(t, err)
	assert.Len(t, third.Tracking.History, 3)
	assert.Equal(t, "Picked Up", third.Tracking.CurrentStatus)
}

func TestRefreshTracking_NoTrackingID(t *testing.T) {
	carrier := &fakeCarrier{}
	svc, store := newFixture(t, carrier)
	seedOrder(t, store, "1001")

	_, err := svc.RefreshTracking(context.Background(), "1001")
	assert.ErrorIs(t, err, shared.ErrTrackingUnavailable)
	assert.Zero(t, carrier.statusCalls)
}

// hookedCarrier runs a callback before each single-status fetch so tests can
// interleave store mutations with an in-flight refresh
type hookedCarrier struct {
	*fakeCarrier
	onGetStatus func()
}

func (c *hookedCarrier) GetStatus(ctx context.Context, trackingID string) (integration.TrackingUpdate, error) {
	if c.onGetStatus != nil {
		c.onGetStatus()
	}
	return c.fakeCarrier.GetStatus(ctx, trackingID)
}

func TestRefreshTracking_TrackingIDSwappedMidFlight(t *testing.T) {
	carrier := &hookedCarrier{fakeCarrier: &fakeCarrier{
		returnID: "EK001",
		status: map[string]integration.TrackingUpdate{
			"EK001": {Status: "In Transit", Timestamp: time.Now()},
		},
	}}
	svc, store := newFixture(t, carrier)
	ctx := context.Background()
	seedOrder(t, store, "1001")

	_, err := svc.RequestReturn(ctx, "1001", []order.ReturnLine{{ProductIndex: 0}})
	require.NoError(t, err)

	// While the refresh is talking to the carrier, a concurrent return swaps
	// the shipment out from under it.
	carrier.onGetStatus = func() {
		_, merr := store.Mutate(ctx, "1001", func(o *order.OrderRecord) (bool, error) {
			o.Tracking = order.TrackingState{CarrierTrackingID: "EK002"}
			return true, nil
		})
		require.NoError(t, merr)
	}

	rec, err := svc.RefreshTracking(ctx, "1001")
	require.NoError(t, err)

	// the old shipment's status must not fold into the new shipment
	assert.Equal(t, "EK002", rec.Tracking.CarrierTrackingID)
	assert.Empty(t, rec.Tracking.History)
	assert.Empty(t, rec.Tracking.CurrentStatus)
}

func TestRefreshTracking_CarrierFailure(t *testing.T) {
	carrier := &fakeCarrier{returnID: "EK001", statusErr: errors.New("carrier down")}
	svc, store := newFixture(t, carrier)
	ctx := context.Background()
	seedOrder(t, store, "1001")

	carrier.statusErr = nil
	_, err := svc.RequestReturn(ctx, "1001", []order.ReturnLine{{ProductIndex: 0}})
	require.NoError(t, err)
	carrier.statusErr = errors.New("carrier down")

	before, err := store.Get(ctx, "1001")
	require.NoError(t, err)

	_, err = svc.RefreshTracking(ctx, "1001")
	assert.ErrorIs(t, err, shared.ErrTrackingUnavailable)

	after, err := store.Get(ctx, "1001")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRefreshTrackingBatch_PartialSuccess(t *testing.T) {
	ts := time.Now()
	carrier := &fakeCarrier{
		returnID: "EK001",
		status: map[string]integration.TrackingUpdate{
			"EK001": {Status: "In Transit", Timestamp: ts},
		},
	}
	svc, store := newFixture(t, carrier)
	ctx := context.Background()
	seedOrder(t, store, "1001")
	seedOrder(t, store, "2001") // never gets a tracking id

	_, err := svc.RequestReturn(ctx, "1001", []order.ReturnLine{{ProductIndex: 0}})
	require.NoError(t, err)

	report, err := svc.RefreshTrackingBatch(ctx, []string{"#1001", "1001", "2001", "missing", "#"})
	require.NoError(t, err)

	assert.Equal(t, []string{"1001"}, report.Updated)
	assert.ErrorIs(t, report.Failed["2001"], shared.ErrTrackingUnavailable)
	assert.ErrorIs(t, report.Failed["missing"], shared.ErrNotFound)
	assert.ErrorIs(t, report.Failed["#"], shared.ErrInvalidIdentifier)

	// the duplicate identifier was deduped before the carrier call
	assert.Equal(t, 1, carrier.batchCalls)
	assert.Equal(t, []string{"EK001"}, carrier.lastBatchIDs)
}

func TestRefreshTrackingBatch_SharedTrackingIDFetchedOnce(t *testing.T) {
	ts := time.Now()
	carrier := &fakeCarrier{
		returnID: "EK001",
		status: map[string]integration.TrackingUpdate{
			"EK001": {Status: "In Transit", Timestamp: ts},
		},
	}
	svc, store := newFixture(t, carrier)
	ctx := context.Background()
	seedOrder(t, store, "1001")

	_, err := svc.RequestReturn(ctx, "1001", []order.ReturnLine{{ProductIndex: 0}})
	require.NoError(t, err)

	report, err := svc.RefreshTrackingBatch(ctx, []string{"1001"})
	require.NoError(t, err)
	assert.Len(t, report.Updated, 1)
	assert.Empty(t, report.Failed)
	assert.Len(t, carrier.lastBatchIDs, 1)
}

// Exercises the full lifecycle: manual create, return initiation, repeated
// refreshes with an unchanged then a changed upstream status.
func TestTrackingLifecycle(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	carrier := &fakeCarrier{
		returnID: "EK2001",
		status: map[string]integration.TrackingUpdate{
			"EK2001": {Status: "Out for Pickup", Timestamp: ts, City: "Bengaluru", HubName: "BLR_HUB_04"},
		},
	}
	svc, store := newFixture(t, carrier)
	ctx := context.Background()
	seedOrder(t, store, "#2001")

	rec, err := svc.RequestReturn(ctx, "2001", []order.ReturnLine{{ProductIndex: 1, Quantity: 1}})
	require.NoError(t, err)
	require.Len(t, rec.Tracking.History, 1)

	rec, err = svc.RefreshTracking(ctx, "#2001")
	require.NoError(t, err)
	require.Len(t, rec.Tracking.History, 2)
	assert.Equal(t, "BLR_HUB_04", rec.Tracking.History[1].HubName)

	rec, err = svc.RefreshTracking(ctx, "2001")
	require.NoError(t, err)
	require.Len(t, rec.Tracking.History, 2)

	carrier.status["EK2001"] = integration.TrackingUpdate{Status: "Delivered to Warehouse", Timestamp: ts.Add(48 * time.Hour)}
	rec, err = svc.RefreshTracking(ctx, "2001")
	require.NoError(t, err)
	require.Len(t, rec.Tracking.History, 3)
	assert.Equal(t, "Delivered to Warehouse", rec.Tracking.CurrentStatus)
	assert.Equal(t, order.OrderStatusReturnRequested, rec.Status)
}
