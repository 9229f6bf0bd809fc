package carrier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/orderdesk/backend/internal/domain/integration"
)

// maxResponseSize is the maximum allowed response size from the Ekart API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// ErrEkartEmptyTrackingID indicates a missing tracking id
var ErrEkartEmptyTrackingID = errors.New("ekart: tracking id cannot be empty")

// EkartAdapter implements the Carrier interface for the Ekart
// reverse-logistics API.
type EkartAdapter struct {
	config     *EkartConfig
	httpClient *http.Client
}

// NewEkartAdapter creates a new Ekart adapter with the given configuration
func NewEkartAdapter(config *EkartConfig) (*EkartAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &EkartAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
	}, nil
}

// CreateReturn registers a reverse pickup and returns the carrier tracking id
func (a *EkartAdapter) CreateReturn(ctx context.Context, payload integration.ReturnPayload) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("ekart: encode return payload: %w", err)
	}

	var resp ekartReturnResponse
	if err := a.post(ctx, "/api/v1/returns", body, &resp); err != nil {
		return "", err
	}
	if !resp.Success {
		return "", fmt.Errorf("ekart: return rejected: %s", resp.Message)
	}
	if resp.TrackingID == "" {
		return "", errors.New("ekart: return accepted but no tracking id returned")
	}
	return resp.TrackingID, nil
}

// GetStatus fetches the current status for a single tracking id. Ekart
// reports history newest first; the head entry is the current status.
func (a *EkartAdapter) GetStatus(ctx context.Context, trackingID string) (integration.TrackingUpdate, error) {
	if trackingID == "" {
		return integration.TrackingUpdate{}, ErrEkartEmptyTrackingID
	}

	var resp ekartTrackResponse
	if err := a.get(ctx, "/api/v1/track/"+url.PathEscape(trackingID), &resp); err != nil {
		return integration.TrackingUpdate{}, err
	}
	if !resp.Success {
		return integration.TrackingUpdate{}, fmt.Errorf("ekart: track failed for %s: %s", trackingID, resp.Message)
	}
	if len(resp.Tracking.History) == 0 {
		return integration.TrackingUpdate{}, fmt.Errorf("ekart: no tracking history for %s", trackingID)
	}

	latest := resp.Tracking.History[0]
	return integration.TrackingUpdate{
		Status:      latest.Status,
		Timestamp:   time.UnixMilli(latest.EventTime).UTC(),
		Description: latest.PublicDescription,
		City:        latest.City,
		HubName:     latest.HubName,
	}, nil
}

// GetStatusBatch fans out GetStatus concurrently per distinct tracking id,
// bounded by the configured concurrency. Ids that fail individually are
// omitted from the result; one failure never aborts the others.
func (a *EkartAdapter) GetStatusBatch(ctx context.Context, trackingIDs []string) (map[string]integration.TrackingUpdate, error) {
	results := make(map[string]integration.TrackingUpdate, len(trackingIDs))
	if len(trackingIDs) == 0 {
		return results, nil
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, a.config.MaxConcurrency)
	)
	for _, tid := range trackingIDs {
		wg.Add(1)
		go func(tid string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			update, err := a.GetStatus(ctx, tid)
			if err != nil {
				return
			}
			mu.Lock()
			results[tid] = update
			mu.Unlock()
		}(tid)
	}
	wg.Wait()
	return results, nil
}

// ---------------------------------------------------------------------------
// HTTP plumbing
// ---------------------------------------------------------------------------

func (a *EkartAdapter) post(ctx context.Context, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("ekart: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return a.do(req, out)
}

func (a *EkartAdapter) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.config.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("ekart: build request: %w", err)
	}
	return a.do(req, out)
}

func (a *EkartAdapter) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+a.config.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ekart: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("ekart: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("ekart: unexpected status %d: %s", resp.StatusCode, string(raw))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("ekart: decode response: %w", err)
	}
	return nil
}
