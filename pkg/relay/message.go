package relay

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidMessage is returned for relay messages that cannot be acted on.
var ErrInvalidMessage = errors.New("invalid relay message")

// Vec3 is a point in world space.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Distance returns the Euclidean distance between two points.
func (v Vec3) Distance(o Vec3) float64 {
	dx, dy, dz := v.X-o.X, v.Y-o.Y, v.Z-o.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

func (v Vec3) finite() bool {
	for _, f := range []float64{v.X, v.Y, v.Z} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

func (v Vec3) String() string {
	return fmt.Sprintf("{X:%.2f Y:%.2f Z:%.2f}", v.X, v.Y, v.Z)
}

// Message is one triggered interaction on its way from the initiating
// participant to the authority and from there to every observer.
// It is never modified after creation; each receiver derives its own effects.
type Message struct {
	Position          Vec3
	Radius            float32
	SenderName        string
	ChatText          string
	CommandProfileIDs []string
	OriginOwnerID     int64

	// InitiatorID and Sequence identify the send so receivers can drop
	// repeated deliveries. Both are optional on the wire.
	InitiatorID string
	Sequence    uint64
}

// Validate checks the fields a receiver depends on.
func (m *Message) Validate() error {
	if m == nil {
		return fmt.Errorf("%w: nil message", ErrInvalidMessage)
	}
	if !m.Position.finite() {
		return fmt.Errorf("%w: position is not finite", ErrInvalidMessage)
	}
	r := float64(m.Radius)
	if math.IsNaN(r) || math.IsInf(r, 0) || r < 0 {
		return fmt.Errorf("%w: radius %v", ErrInvalidMessage, m.Radius)
	}
	for _, id := range m.CommandProfileIDs {
		if strings.TrimSpace(id) != "" {
			return nil
		}
	}
	return fmt.Errorf("%w: no command profile ids", ErrInvalidMessage)
}

// HasChat reports whether the message carries a notification to show.
func (m *Message) HasChat() bool {
	return strings.TrimSpace(m.ChatText) != ""
}

// InRange reports whether an observer at the given position is within the
// broadcast radius of the message's origin.
func (m *Message) InRange(observer Vec3) bool {
	return observer.Distance(m.Position) <= float64(m.Radius)
}
