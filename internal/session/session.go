package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/interaction-relay/internal/executor"
	"github.com/jwebster45206/interaction-relay/internal/metrics"
	"github.com/jwebster45206/interaction-relay/internal/transport"
	"github.com/jwebster45206/interaction-relay/pkg/interaction"
	"github.com/jwebster45206/interaction-relay/pkg/relay"
)

var (
	// ErrInvalidInput covers triggers that name no usable interaction or come
	// from a device that cannot broadcast.
	ErrInvalidInput = errors.New("invalid trigger input")

	// ErrServiceNotReady is returned while the command executor is missing or not ready.
	ErrServiceNotReady = errors.New("command executor not ready")

	// ErrNotStarted is returned by operations that need a built registry.
	ErrNotStarted = errors.New("session not started")
)

// DefaultSenderName is shown when the device owner has no known display name.
const DefaultSenderName = "Nobody"

// Device is the broadcasting block an interaction is triggered from.
type Device struct {
	ID           int64
	Enabled      bool
	Broadcasting bool
	OwnerID      int64
	Position     relay.Vec3
	Radius       float32
}

// Notification is a radio call shown to the local observer.
type Notification struct {
	SenderName string
	Text       string
	Distance   float64
	ReceivedAt time.Time
}

// Notifier surfaces radio calls to the local player.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification)

func (f NotifierFunc) Notify(ctx context.Context, n Notification) { f(ctx, n) }

// ObserverLocator reports where the local observer is, if there is one.
type ObserverLocator interface {
	ObserverPosition() (relay.Vec3, bool)
}

// ObserverFunc adapts a function to ObserverLocator.
type ObserverFunc func() (relay.Vec3, bool)

func (f ObserverFunc) ObserverPosition() (relay.Vec3, bool) { return f() }

// IdentityResolver maps device owners to display names.
type IdentityResolver interface {
	DisplayName(ownerID int64) (string, bool)
}

// Identities is a fixed owner-to-name table.
type Identities map[int64]string

func (ids Identities) DisplayName(ownerID int64) (string, bool) {
	name, ok := ids[ownerID]
	return name, ok && name != ""
}

// Options configures a Session. Transport is required; a nil Executor
// makes every trigger fail with ErrServiceNotReady.
type Options struct {
	Transport     transport.Transport
	Executor      executor.Executor
	Notifier      Notifier
	Observer      ObserverLocator
	Identities    IdentityResolver
	Rand          *rand.Rand
	ParticipantID string
	StrictIDs     bool
	Logger        *slog.Logger
}

// Session owns the interaction registry and the relay endpoint of one
// participant for the lifetime of a running game session.
type Session struct {
	id         string
	initiator  string
	transport  transport.Transport
	executor   executor.Executor
	notifier   Notifier
	observer   ObserverLocator
	identities IdentityResolver
	strictIDs  bool
	logger     *slog.Logger

	registry atomic.Pointer[interaction.Registry]
	sequence atomic.Uint64
	dedupe   *relay.Deduper

	randMu sync.Mutex
	rand   *rand.Rand

	selectionMu sync.Mutex
	selection   map[int64]string

	subMu sync.Mutex
	sub   transport.Subscription
}

// New creates a session. Call Start before use.
func New(opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	id := opts.ParticipantID
	if id == "" {
		id = uuid.New().String()
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	identities := opts.Identities
	if identities == nil {
		identities = Identities{}
	}

	return &Session{
		id:         id,
		initiator:  id + ":" + uuid.NewString(),
		transport:  opts.Transport,
		executor:   opts.Executor,
		notifier:   opts.Notifier,
		observer:   opts.Observer,
		identities: identities,
		strictIDs:  opts.StrictIDs,
		logger:     logger.With("participant_id", id),
		dedupe:     relay.NewDeduper(relay.DefaultDedupeWindow),
		rand:       rng,
		selection:  make(map[int64]string),
	}
}

// ID returns the configured participant id.
func (s *Session) ID() string {
	return s.id
}

// InitiatorID tags outgoing messages for de-duplication. It is unique to
// this Session value, so a participant restarted under the same id starts
// a fresh sequence on every receiver.
func (s *Session) InitiatorID() string {
	return s.initiator
}

// IsAuthority reports whether this participant runs behavior commands.
func (s *Session) IsAuthority() bool {
	return s.transport != nil && s.transport.IsAuthority()
}

// Start builds the registry from sources and subscribes to relay traffic.
// Registry problems are logged and returned as rejections; only a failed
// subscription is an error.
func (s *Session) Start(ctx context.Context, sources []interaction.Source) ([]interaction.Rejection, error) {
	if s.transport == nil {
		return nil, errors.New("session has no transport")
	}

	builder := interaction.NewBuilder(s.logger)
	builder.StrictIDs = s.strictIDs
	reg, rejections := builder.Build(sources)

	for _, r := range rejections {
		metrics.RegistryRejections.WithLabelValues(string(r.Kind)).Inc()
	}
	metrics.InteractionsLoaded.Set(float64(reg.Len()))
	s.registry.Store(reg)

	sub, err := s.transport.Subscribe(ctx, s.HandleRelay)
	if err != nil {
		s.registry.Store(nil)
		return rejections, fmt.Errorf("failed to subscribe to relay traffic: %w", err)
	}

	s.subMu.Lock()
	s.sub = sub
	s.subMu.Unlock()

	s.logger.Info("Session started",
		"interactions", reg.Len(),
		"rejections", len(rejections),
		"authority", s.IsAuthority())

	return rejections, nil
}

// Stop unsubscribes and discards all session state.
func (s *Session) Stop() {
	s.subMu.Lock()
	sub := s.sub
	s.sub = nil
	s.subMu.Unlock()

	if sub != nil {
		if err := sub.Close(); err != nil {
			s.logger.Error("Failed to close relay subscription", "error", err)
		}
	}

	s.registry.Store(nil)
	s.dedupe.Reset()

	s.selectionMu.Lock()
	s.selection = make(map[int64]string)
	s.selectionMu.Unlock()

	metrics.InteractionsLoaded.Set(0)
	s.logger.Info("Session stopped")
}

// Done is closed when relay delivery stops; nil before Start.
func (s *Session) Done() <-chan struct{} {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if s.sub == nil {
		return nil
	}
	return s.sub.Done()
}

// Registry returns the current registry, or nil when not started.
func (s *Session) Registry() *interaction.Registry {
	return s.registry.Load()
}

// ListAll returns the selectable interactions in registry order.
func (s *Session) ListAll() []interaction.Summary {
	return s.registry.Load().ListAll()
}

// Select remembers which interaction a device has highlighted.
func (s *Session) Select(deviceID int64, interactionID string) {
	s.selectionMu.Lock()
	defer s.selectionMu.Unlock()
	s.selection[deviceID] = interactionID
}

// Selected returns the highlighted interaction of a device.
func (s *Session) Selected(deviceID int64) (string, bool) {
	s.selectionMu.Lock()
	defer s.selectionMu.Unlock()
	id, ok := s.selection[deviceID]
	return id, ok
}

// ClearSelection forgets a device's highlighted interaction.
func (s *Session) ClearSelection(deviceID int64) {
	s.selectionMu.Lock()
	defer s.selectionMu.Unlock()
	delete(s.selection, deviceID)
}

func (s *Session) pickFlavor(messages []string) string {
	if len(messages) == 0 {
		return ""
	}
	s.randMu.Lock()
	defer s.randMu.Unlock()
	return messages[s.rand.IntN(len(messages))]
}

func (s *Session) senderName(ownerID int64) string {
	if name, ok := s.identities.DisplayName(ownerID); ok {
		return name
	}
	return DefaultSenderName
}

func (s *Session) executorReady(ctx context.Context) bool {
	return s.executor != nil && s.executor.Ready(ctx)
}
