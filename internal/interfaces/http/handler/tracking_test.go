package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderdesk/backend/internal/domain/integration"
	"github.com/orderdesk/backend/internal/interfaces/http/dto"
)

// stubCarrier serves canned responses for the tracking endpoints
type stubCarrier struct {
	returnID string
	status   map[string]integration.TrackingUpdate
}

func (c *stubCarrier) CreateReturn(ctx context.Context, payload integration.ReturnPayload) (string, error) {
	return c.returnID, nil
}

func (c *stubCarrier) GetStatus(ctx context.Context, trackingID string) (integration.TrackingUpdate, error) {
	update, ok := c.status[trackingID]
	if !ok {
		return integration.TrackingUpdate{}, assert.AnError
	}
	return update, nil
}

func (c *stubCarrier) GetStatusBatch(ctx context.Context, trackingIDs []string) (map[string]integration.TrackingUpdate, error) {
	results := make(map[string]integration.TrackingUpdate)
	for _, tid := range trackingIDs {
		if update, ok := c.status[tid]; ok {
			results[tid] = update
		}
	}
	return results, nil
}

func TestTrackingHandler_RequestReturn(t *testing.T) {
	carrier := &stubCarrier{returnID: "EK5551"}
	engine := newTestAPI(t, nil, carrier)
	doJSON(t, engine, http.MethodPost, "/api/v1/orders", sampleCreateRequest("#1001"))

	w := doJSON(t, engine, http.MethodPost, "/api/v1/orders/1001/return", map[string]any{
		"products": []map[string]any{{"product_index": 0, "quantity": 1}},
	})
	require.Equal(t, http.StatusOK, w.Code)

	rec := decodeOrder(t, w)
	assert.Equal(t, "RETURN_REQUESTED", rec.Status)
	assert.Equal(t, "EK5551", rec.Tracking.CarrierTrackingID)
	require.Len(t, rec.Tracking.History, 1)
	assert.Equal(t, "Return Initiated", rec.Tracking.History[0].Status)
}

func TestTrackingHandler_RequestReturnTwice(t *testing.T) {
	carrier := &stubCarrier{returnID: "EK5551"}
	engine := newTestAPI(t, nil, carrier)
	doJSON(t, engine, http.MethodPost, "/api/v1/orders", sampleCreateRequest("#1001"))

	body := map[string]any{"products": []map[string]any{{"product_index": 0}}}
	doJSON(t, engine, http.MethodPost, "/api/v1/orders/1001/return", body)

	w := doJSON(t, engine, http.MethodPost, "/api/v1/orders/1001/return", body)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	resp := decodeEnvelope(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_STATE", resp.Error.Code)
}

func TestTrackingHandler_RequestReturnWithoutCarrier(t *testing.T) {
	engine := newTestAPI(t, nil, nil)
	doJSON(t, engine, http.MethodPost, "/api/v1/orders", sampleCreateRequest("#1001"))

	w := doJSON(t, engine, http.MethodPost, "/api/v1/orders/1001/return", map[string]any{
		"products": []map[string]any{{"product_index": 0}},
	})
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	resp := decodeEnvelope(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "CARRIER_NOT_CONFIGURED", resp.Error.Code)
}

func TestTrackingHandler_Refresh(t *testing.T) {
	carrier := &stubCarrier{
		returnID: "EK5551",
		status: map[string]integration.TrackingUpdate{
			"EK5551": {
				Status:    "Out for Pickup",
				Timestamp: time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC),
				City:      "Bengaluru",
			},
		},
	}
	engine := newTestAPI(t, nil, carrier)
	doJSON(t, engine, http.MethodPost, "/api/v1/orders", sampleCreateRequest("#1001"))
	doJSON(t, engine, http.MethodPost, "/api/v1/orders/1001/return", map[string]any{
		"products": []map[string]any{{"product_index": 0}},
	})

	w := doJSON(t, engine, http.MethodPost, "/api/v1/orders/1001/tracking/refresh", nil)
	require.Equal(t, http.StatusOK, w.Code)

	rec := decodeOrder(t, w)
	assert.Equal(t, "Out for Pickup", rec.Tracking.CurrentStatus)
	require.Len(t, rec.Tracking.History, 2)
	// refresh never moves the coarse status
	assert.Equal(t, "RETURN_REQUESTED", rec.Status)
}

func TestTrackingHandler_RefreshWithoutTrackingID(t *testing.T) {
	carrier := &stubCarrier{}
	engine := newTestAPI(t, nil, carrier)
	doJSON(t, engine, http.MethodPost, "/api/v1/orders", sampleCreateRequest("#1001"))

	w := doJSON(t, engine, http.MethodPost, "/api/v1/orders/1001/tracking/refresh", nil)
	require.Equal(t, http.StatusBadGateway, w.Code)

	resp := decodeEnvelope(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "TRACKING_UNAVAILABLE", resp.Error.Code)
}

func TestTrackingHandler_BatchRefresh(t *testing.T) {
	carrier := &stubCarrier{
		returnID: "EK5551",
		status: map[string]integration.TrackingUpdate{
			"EK5551": {
				Status:    "In Transit",
				Timestamp: time.Date(2026, 3, 16, 9, 0, 0, 0, time.UTC),
			},
		},
	}
	engine := newTestAPI(t, nil, carrier)
	doJSON(t, engine, http.MethodPost, "/api/v1/orders", sampleCreateRequest("#1001"))
	doJSON(t, engine, http.MethodPost, "/api/v1/orders", sampleCreateRequest("#1002"))
	doJSON(t, engine, http.MethodPost, "/api/v1/orders/1001/return", map[string]any{
		"products": []map[string]any{{"product_index": 0}},
	})

	w := doJSON(t, engine, http.MethodPost, "/api/v1/tracking/refresh", map[string]any{
		"identifiers": []string{"#1001", "1002", "missing"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool                     `json:"success"`
		Data    dto.BatchRefreshResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"1001"}, resp.Data.Updated)
	assert.Contains(t, resp.Data.Failed, "1002")
	assert.Contains(t, resp.Data.Failed, "missing")
}

func TestTrackingHandler_BatchRefreshEmptyBody(t *testing.T) {
	engine := newTestAPI(t, nil, &stubCarrier{})

	w := doJSON(t, engine, http.MethodPost, "/api/v1/tracking/refresh", map[string]any{
		"identifiers": []string{},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
