package main

import (
	"sync"

	"github.com/jwebster45206/interaction-relay/internal/session"
	"github.com/jwebster45206/interaction-relay/pkg/relay"
)

// station is the player's antenna. The player stands at the antenna, so it
// is also the observer position for incoming radio calls.
type station struct {
	mu           sync.Mutex
	antennaID    int64
	ownerID      int64
	position     relay.Vec3
	radius       float32
	broadcasting bool
}

var _ session.ObserverLocator = (*station)(nil)

func (s *station) Device() session.Device {
	s.mu.Lock()
	defer s.mu.Unlock()
	return session.Device{
		ID:           s.antennaID,
		Enabled:      true,
		Broadcasting: s.broadcasting,
		OwnerID:      s.ownerID,
		Position:     s.position,
		Radius:       s.radius,
	}
}

func (s *station) ObserverPosition() (relay.Vec3, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position, true
}

func (s *station) Move(p relay.Vec3) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.position = p
}

func (s *station) SetRadius(r float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.radius = r
}

func (s *station) SetBroadcasting(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broadcasting = on
}
