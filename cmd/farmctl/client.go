package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/farm-platform/farm-dashboard/pkg/middleware"
)

const inventoryPath = "/api/v1/inventory"

// dashboardClient calls the dashboard REST API
type dashboardClient struct {
	baseURL    string
	httpClient *http.Client
}

func newDashboardClient(baseURL string, timeout time.Duration) *dashboardClient {
	return &dashboardClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// apiError is a non-2xx dashboard response
type apiError struct {
	Status int
	Body   middleware.APIErrorResponse
}

func (e *apiError) Error() string {
	if e.Body.Message == "" {
		return fmt.Sprintf("dashboard returned %d", e.Status)
	}
	msg := fmt.Sprintf("%s (%d): %s", e.Body.Code, e.Status, e.Body.Message)
	if e.Body.Retryable {
		msg += "; the inventory service may recover, try again shortly"
	}
	return msg
}

// do sends body as JSON and decodes a successful response into out when out is non-nil
func (c *dashboardClient) do(ctx context.Context, method, path string, body, out interface{}) (int, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+inventoryPath+path, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("dashboard unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &apiError{Status: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr.Body)
		return resp.StatusCode, apiErr
	}
	if out != nil && resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusAccepted {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// streamURL returns the WebSocket URL of the snapshot stream
func (c *dashboardClient) streamURL() (string, error) {
	u, err := url.Parse(c.baseURL + inventoryPath + "/stream")
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	return u.String(), nil
}

func (c *dashboardClient) dialStream(ctx context.Context) (*websocket.Conn, error) {
	streamURL, err := c.streamURL()
	if err != nil {
		return nil, err
	}
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, streamURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot stream: %w", err)
	}
	return ws, nil
}
