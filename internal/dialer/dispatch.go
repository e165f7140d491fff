// Package dialer places outbound voice calls behind a persisted cooldown.
package dialer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Dispatcher places one outbound call to a fully qualified number.
type Dispatcher interface {
	Dispatch(ctx context.Context, toNumber string) error
}

// HTTPDispatcher dispatches through the call backend.
type HTTPDispatcher struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewHTTPDispatcher(baseURL string) *HTTPDispatcher {
	return &HTTPDispatcher{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type dispatchRequest struct {
	ToNumber string `json:"to_number"`
}

type dispatchError struct {
	Detail string `json:"detail"`
}

func (d *HTTPDispatcher) Dispatch(ctx context.Context, toNumber string) error {
	reqBody, _ := json.Marshal(dispatchRequest{ToNumber: toNumber})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.BaseURL+"/outbound-call", bytes.NewReader(reqBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("dialer: call request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var de dispatchError
		if json.NewDecoder(resp.Body).Decode(&de) == nil && de.Detail != "" {
			return fmt.Errorf("dialer: call failed: %s", de.Detail)
		}
		return fmt.Errorf("dialer: call failed: status=%d", resp.StatusCode)
	}
	return nil
}
