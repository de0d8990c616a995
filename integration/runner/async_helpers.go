package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	// PollInterval is how often to check relay health
	PollInterval = 1 * time.Second
	// ReadyTimeout is max time to wait for the relay and its executor
	ReadyTimeout = 30 * time.Second
)

type healthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}

// WaitForReady polls /health until the relay reports healthy and the
// executor component is ready, or the timeout expires.
func WaitForReady(ctx context.Context, client *http.Client, baseURL string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	var last string
	for {
		health, err := getHealth(ctx, client, baseURL)
		if err == nil && health.Status == "healthy" && health.Components["executor"] == "ready" {
			return nil
		}
		if err != nil {
			last = err.Error()
		} else {
			last = fmt.Sprintf("status=%s executor=%s", health.Status, health.Components["executor"])
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("relay not ready after %v (last: %s)", timeout, last)
		case <-ticker.C:
		}
	}
}

func getHealth(ctx context.Context, client *http.Client, baseURL string) (healthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
	if err != nil {
		return healthResponse{}, fmt.Errorf("failed to create health request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return healthResponse{}, fmt.Errorf("failed to get health: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var health healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return healthResponse{}, fmt.Errorf("failed to decode health response: %w", err)
	}
	return health, nil
}
