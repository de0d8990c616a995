package executor

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jwebster45206/interaction-relay/pkg/relay"
)

// ErrNotReady is returned when the executor cannot accept commands yet.
var ErrNotReady = errors.New("command executor not ready")

// Command asks the external spawner to run behavior profiles around a point.
type Command struct {
	ProfileIDs []string   `json:"profile_ids"`
	Position   relay.Vec3 `json:"position"`
	Radius     float32    `json:"radius"`
	OwnerID    int64      `json:"owner_id"`
	IssuedAt   time.Time  `json:"issued_at"`
}

// ToJSON converts the command to JSON bytes for Redis
func (c *Command) ToJSON() ([]byte, error) {
	return json.Marshal(c)
}

// CommandFromJSON parses a command from JSON bytes
func CommandFromJSON(data []byte) (*Command, error) {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return nil, err
	}
	return &cmd, nil
}

// Executor is the external behavior-command service. Calls with the same
// arguments are safe to repeat.
type Executor interface {
	// Ready reports whether commands can be accepted.
	Ready(ctx context.Context) bool

	// SendCommand hands one command to the executor.
	SendCommand(ctx context.Context, cmd Command) error
}
