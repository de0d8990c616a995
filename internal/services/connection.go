package services

import "context"

// Connection is the shared Redis connection used by the relay transport and
// the command executor.
type Connection interface {
	// Ping tests the connection
	Ping(ctx context.Context) error

	// Close closes the connection
	Close() error

	// WaitForConnection waits for the server to be available with retries
	WaitForConnection(ctx context.Context) error
}
