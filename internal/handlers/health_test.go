package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/jwebster45206/interaction-relay/internal/executor"
	"github.com/jwebster45206/interaction-relay/internal/services"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError, // Reduce noise in tests
	}))
}

func TestHealthHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name             string
		setupConn        func() services.Connection
		setupExecutor    func() executor.Executor
		expectedStatus   int
		expectedHealth   string
		expectedRedis    string
		expectedExecutor string
	}{
		{
			name:             "all healthy",
			setupConn:        func() services.Connection { return services.NewMockConnection() },
			setupExecutor:    func() executor.Executor { return executor.NewMockExecutor() },
			expectedStatus:   http.StatusOK,
			expectedHealth:   "healthy",
			expectedRedis:    "healthy",
			expectedExecutor: "ready",
		},
		{
			name: "unhealthy redis",
			setupConn: func() services.Connection {
				conn := services.NewMockConnection()
				conn.SetPingError(errors.New("connection failed"))
				return conn
			},
			setupExecutor:    func() executor.Executor { return executor.NewMockExecutor() },
			expectedStatus:   http.StatusServiceUnavailable,
			expectedHealth:   "degraded",
			expectedRedis:    "unhealthy",
			expectedExecutor: "ready",
		},
		{
			name:      "executor not ready",
			setupConn: func() services.Connection { return services.NewMockConnection() },
			setupExecutor: func() executor.Executor {
				exec := executor.NewMockExecutor()
				exec.ReadyFunc = func(context.Context) bool { return false }
				return exec
			},
			expectedStatus:   http.StatusOK,
			expectedHealth:   "healthy",
			expectedRedis:    "healthy",
			expectedExecutor: "not_ready",
		},
		{
			name:             "no executor",
			setupConn:        func() services.Connection { return services.NewMockConnection() },
			setupExecutor:    func() executor.Executor { return nil },
			expectedStatus:   http.StatusOK,
			expectedHealth:   "healthy",
			expectedRedis:    "healthy",
			expectedExecutor: "not_ready",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHealthHandler(tt.setupConn(), tt.setupExecutor(), testLogger())

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, rr.Code)
			}

			if rr.Header().Get("Content-Type") != "application/json" {
				t.Errorf("Expected Content-Type application/json, got %s", rr.Header().Get("Content-Type"))
			}

			var response HealthResponse
			if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}

			if response.Status != tt.expectedHealth {
				t.Errorf("Expected status '%s', got '%s'", tt.expectedHealth, response.Status)
			}

			if response.Service != "interaction-relay" {
				t.Errorf("Expected service 'interaction-relay', got '%s'", response.Service)
			}

			if got := response.Components["redis"]; got != tt.expectedRedis {
				t.Errorf("Expected redis status '%s', got '%s'", tt.expectedRedis, got)
			}

			if got := response.Components["executor"]; got != tt.expectedExecutor {
				t.Errorf("Expected executor status '%s', got '%s'", tt.expectedExecutor, got)
			}

			if timeDiff := time.Since(response.Timestamp); timeDiff > time.Second {
				t.Errorf("Health check timestamp seems old: %v", timeDiff)
			}
		})
	}
}
