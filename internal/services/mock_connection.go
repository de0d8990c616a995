package services

import "context"

// MockConnection is a mock implementation of Connection for testing
type MockConnection struct {
	PingFunc              func(ctx context.Context) error
	CloseFunc             func() error
	WaitForConnectionFunc func(ctx context.Context) error

	// Track calls for testing
	PingCalls              int
	CloseCalls             int
	WaitForConnectionCalls int
}

// NewMockConnection creates a new mock connection
func NewMockConnection() *MockConnection {
	return &MockConnection{}
}

func (m *MockConnection) Ping(ctx context.Context) error {
	m.PingCalls++
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

func (m *MockConnection) Close() error {
	m.CloseCalls++
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

func (m *MockConnection) WaitForConnection(ctx context.Context) error {
	m.WaitForConnectionCalls++
	if m.WaitForConnectionFunc != nil {
		return m.WaitForConnectionFunc(ctx)
	}
	return nil
}

// SetPingError sets up the mock to return an error on Ping
func (m *MockConnection) SetPingError(err error) {
	m.PingFunc = func(ctx context.Context) error {
		return err
	}
}

// Ensure MockConnection implements Connection interface
var _ Connection = (*MockConnection)(nil)
