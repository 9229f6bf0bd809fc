package carrier

// ---------------------------------------------------------------------------
// Ekart API wire types
// ---------------------------------------------------------------------------

// ekartResponse is the base response wrapper for all Ekart API calls
type ekartResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ekartReturnResponse is the response for the return creation endpoint
type ekartReturnResponse struct {
	ekartResponse
	TrackingID string `json:"tracking_id"`
}

// ekartTrackEvent is one scan event as reported by Ekart
type ekartTrackEvent struct {
	Status            string `json:"status"`
	EventTime         int64  `json:"event_time"` // Unix milliseconds
	PublicDescription string `json:"public_description,omitempty"`
	City              string `json:"city,omitempty"`
	HubName           string `json:"hub_name,omitempty"`
}

// ekartTrackResponse is the response for the single-shipment track endpoint.
// History is ordered newest first.
type ekartTrackResponse struct {
	ekartResponse
	Tracking struct {
		TrackingID string            `json:"tracking_id"`
		History    []ekartTrackEvent `json:"history"`
	} `json:"tracking"`
}
