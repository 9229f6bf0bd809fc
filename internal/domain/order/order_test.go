package order

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderdesk/backend/internal/domain/shared"
)

func TestOrderStatus_IsValid(t *testing.T) {
	tests := []struct {
		status  OrderStatus
		isValid bool
	}{
		{OrderStatusNew, true},
		{OrderStatusProcessing, true},
		{OrderStatusShipped, true},
		{OrderStatusDelivered, true},
		{OrderStatusReturnRequested, true},
		{OrderStatus("INVALID"), false},
		{OrderStatus(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.isValid, tt.status.IsValid())
		})
	}
}

func TestTrackingState_AppendIdempotent(t *testing.T) {
	var state TrackingState
	ts := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	assert.True(t, state.Append(TrackingEvent{Status: "Picked Up", Timestamp: ts}))
	assert.False(t, state.Append(TrackingEvent{Status: "Picked Up", Timestamp: ts.Add(time.Hour)}))
	assert.True(t, state.Append(TrackingEvent{Status: "In Transit", Timestamp: ts.Add(2 * time.Hour)}))

	require.Len(t, state.History, 2)
	assert.Equal(t, "In Transit", state.CurrentStatus)
	require.NotNil(t, state.LastUpdated)
	assert.Equal(t, ts.Add(2*time.Hour), *state.LastUpdated)
}

func TestTrackingState_ReenteredStatusAppends(t *testing.T) {
	// A status equal to an older, non-tail entry is still a change
	var state TrackingState
	ts := time.Now()

	state.Append(TrackingEvent{Status: "In Transit", Timestamp: ts})
	state.Append(TrackingEvent{Status: "Held at Hub", Timestamp: ts.Add(time.Hour)})
	assert.True(t, state.Append(TrackingEvent{Status: "In Transit", Timestamp: ts.Add(2 * time.Hour)}))
	assert.Len(t, state.History, 3)
}

func returnableRecord() *OrderRecord {
	return &OrderRecord{
		Identifier: "1001",
		Status:     OrderStatusDelivered,
		Customer:   Customer{Name: "Asha Rao", Phone: "9000000001", Address: "12 MG Road"},
		Products: []ProductLine{
			{Name: "Blue Kurta", Quantity: 2, UnitPrice: decimal.NewFromInt(799)},
			{Name: "Silk Scarf", Quantity: 1, UnitPrice: decimal.NewFromInt(349)},
		},
	}
}

func TestValidateReturnLines(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*OrderRecord)
		lines   []ReturnLine
		wantErr error
	}{
		{
			name:  "valid single line",
			lines: []ReturnLine{{ProductIndex: 0, Quantity: 1}},
		},
		{
			name:  "zero quantity defaults to one",
			lines: []ReturnLine{{ProductIndex: 1}},
		},
		{
			name:    "empty selection",
			lines:   nil,
			wantErr: shared.ErrNoProductsSelected,
		},
		{
			name:    "index out of range",
			lines:   []ReturnLine{{ProductIndex: 5, Quantity: 1}},
			wantErr: shared.ErrNoProductsSelected,
		},
		{
			name:    "negative index",
			lines:   []ReturnLine{{ProductIndex: -1, Quantity: 1}},
			wantErr: shared.ErrNoProductsSelected,
		},
		{
			name:    "quantity exceeds ordered",
			lines:   []ReturnLine{{ProductIndex: 1, Quantity: 2}},
			wantErr: shared.ErrNoProductsSelected,
		},
		{
			name:    "already return requested",
			setup:   func(o *OrderRecord) { o.Status = OrderStatusReturnRequested },
			lines:   []ReturnLine{{ProductIndex: 0, Quantity: 1}},
			wantErr: shared.ErrInvalidState,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := returnableRecord()
			if tt.setup != nil {
				tt.setup(rec)
			}
			err := rec.ValidateReturnLines(tt.lines)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMarkReturnRequested(t *testing.T) {
	rec := returnableRecord()
	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)

	rec.MarkReturnRequested("EK987", now)

	assert.Equal(t, OrderStatusReturnRequested, rec.Status)
	assert.Equal(t, "EK987", rec.Tracking.CarrierTrackingID)
	require.Len(t, rec.Tracking.History, 1)
	assert.Equal(t, "Return Initiated", rec.Tracking.History[0].Status)
	assert.Equal(t, now, rec.UpdatedAt)
}

func TestMarkReturnRequested_Repeat(t *testing.T) {
	rec := returnableRecord()
	first := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	second := first.Add(72 * time.Hour)

	rec.MarkReturnRequested("EK987", first)
	rec.Status = OrderStatusDelivered

	// a repeat initiation lands its own event even though the tail already
	// reads "Return Initiated"
	rec.MarkReturnRequested("EK988", second)

	assert.Equal(t, "EK988", rec.Tracking.CarrierTrackingID)
	require.Len(t, rec.Tracking.History, 2)
	assert.Equal(t, "Return Initiated", rec.Tracking.History[1].Status)
	assert.Equal(t, second, rec.Tracking.History[1].Timestamp)
	require.NotNil(t, rec.Tracking.LastUpdated)
	assert.Equal(t, second, *rec.Tracking.LastUpdated)
	assert.Equal(t, second, rec.UpdatedAt)
}

func TestApplyTrackingUpdate(t *testing.T) {
	rec := returnableRecord()
	now := time.Now()
	ev := TrackingEvent{Status: "Out for Pickup", Timestamp: now}

	assert.True(t, rec.ApplyTrackingUpdate(ev, now))
	assert.Equal(t, now, rec.UpdatedAt)

	// unchanged upstream status leaves updatedAt alone
	later := now.Add(time.Hour)
	assert.False(t, rec.ApplyTrackingUpdate(TrackingEvent{Status: "Out for Pickup", Timestamp: later}, later))
	assert.Equal(t, now, rec.UpdatedAt)

	// the coarse status never moves on a refresh
	assert.Equal(t, OrderStatusDelivered, rec.Status)
}

func TestOrderRecord_CloneIsDeep(t *testing.T) {
	rec := returnableRecord()
	rec.Tracking.Append(TrackingEvent{Status: "Picked Up", Timestamp: time.Now()})
	d := time.Now()
	rec.OrderDate = &d

	clone := rec.Clone()
	clone.Products[0].Quantity = 99
	clone.Tracking.History[0].Status = "mutated"
	*clone.OrderDate = d.Add(time.Hour)

	assert.Equal(t, 2, rec.Products[0].Quantity)
	assert.Equal(t, "Picked Up", rec.Tracking.History[0].Status)
	assert.Equal(t, d, *rec.OrderDate)
}

func TestOrderRecord_SearchText(t *testing.T) {
	rec := returnableRecord()
	rec.Tag = "Priority"

	text := rec.SearchText()
	assert.Contains(t, text, "asha rao")
	assert.Contains(t, text, "blue kurta")
	assert.Contains(t, text, "priority")
	assert.Contains(t, text, "1001")
}
