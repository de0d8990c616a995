package transport

import (
	"context"
	"errors"
)

// ErrNoAuthority is returned when a request has nowhere to go.
var ErrNoAuthority = errors.New("no authoritative participant connected")

// Disposition tells the transport what to do with a payload after the
// local handler has processed it.
type Disposition int

const (
	// Drop stops the payload here.
	Drop Disposition = iota
	// RelayToEveryone forwards the identical payload to every other
	// participant. Only the authority acts on it.
	RelayToEveryone
)

func (d Disposition) String() string {
	switch d {
	case RelayToEveryone:
		return "relay_to_everyone"
	default:
		return "drop"
	}
}

// Handler processes one inbound payload.
type Handler func(ctx context.Context, payload []byte) Disposition

// Transport moves opaque relay payloads between the participants of one session.
// Sends are fire-and-forget: no acknowledgement from the receiver is awaited.
type Transport interface {
	// SendToAuthority delivers a request to the authoritative participant.
	SendToAuthority(ctx context.Context, payload []byte) error

	// Broadcast delivers a payload to every non-authoritative participant.
	Broadcast(ctx context.Context, payload []byte) error

	// Subscribe starts delivering inbound payloads to h. The authority
	// receives requests; everyone else receives broadcasts.
	Subscribe(ctx context.Context, h Handler) (Subscription, error)

	// IsAuthority reports whether this endpoint is the session authority.
	IsAuthority() bool

	Close() error
}

// Subscription is an active Subscribe call.
type Subscription interface {
	// Done is closed once delivery has stopped.
	Done() <-chan struct{}
	Close() error
}
