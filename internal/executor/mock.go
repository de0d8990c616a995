package executor

import (
	"context"
	"sync"
)

// MockExecutor is a mock implementation of Executor for testing
type MockExecutor struct {
	ReadyFunc       func(ctx context.Context) bool
	SendCommandFunc func(ctx context.Context, cmd Command) error

	mu         sync.Mutex
	readyCalls int
	sendCalls  []Command
}

// NewMockExecutor creates a mock executor that is ready and accepts everything.
func NewMockExecutor() *MockExecutor {
	return &MockExecutor{}
}

// Ready mocks the readiness check
func (m *MockExecutor) Ready(ctx context.Context) bool {
	m.mu.Lock()
	m.readyCalls++
	m.mu.Unlock()

	if m.ReadyFunc != nil {
		return m.ReadyFunc(ctx)
	}

	// Default behavior - ready
	return true
}

// SendCommand mocks command submission
func (m *MockExecutor) SendCommand(ctx context.Context, cmd Command) error {
	m.mu.Lock()
	m.sendCalls = append(m.sendCalls, cmd)
	m.mu.Unlock()

	if m.SendCommandFunc != nil {
		return m.SendCommandFunc(ctx, cmd)
	}

	// Default behavior - success
	return nil
}

// Commands returns every command sent so far.
func (m *MockExecutor) Commands() []Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Command(nil), m.sendCalls...)
}

// ReadyCalls returns how many times readiness was checked.
func (m *MockExecutor) ReadyCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readyCalls
}
