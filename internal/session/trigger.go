package session

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/jwebster45206/interaction-relay/internal/metrics"
	"github.com/jwebster45206/interaction-relay/pkg/relay"
)

// Trigger outcomes, also used as metric labels.
const (
	outcomeDispatched      = "dispatched"
	outcomeInvalidInput    = "invalid_input"
	outcomeServiceNotReady = "service_not_ready"
	outcomeSendFailed      = "send_failed"
)

// Trigger validates a request to broadcast an interaction from a device and,
// if it is acceptable, sends it to the authority without waiting for an
// acknowledgement. Every failure is logged; callers that only need
// fire-and-forget semantics may ignore the returned error.
func (s *Session) Trigger(ctx context.Context, dev Device, interactionID string) error {
	log := s.logger.With("device_id", dev.ID, "interaction_id", interactionID)

	if strings.TrimSpace(interactionID) == "" {
		return s.rejectTrigger(log, outcomeInvalidInput, fmt.Errorf("%w: blank interaction id", ErrInvalidInput))
	}

	// No owner, not powered or not broadcasting: nothing to do.
	switch {
	case !dev.Enabled:
		return s.rejectTrigger(log, outcomeInvalidInput, fmt.Errorf("%w: device %d is disabled", ErrInvalidInput, dev.ID))
	case !dev.Broadcasting:
		return s.rejectTrigger(log, outcomeInvalidInput, fmt.Errorf("%w: device %d is not broadcasting", ErrInvalidInput, dev.ID))
	case dev.OwnerID == 0:
		return s.rejectTrigger(log, outcomeInvalidInput, fmt.Errorf("%w: device %d has no owner", ErrInvalidInput, dev.ID))
	}

	reg := s.registry.Load()
	if reg == nil {
		return s.rejectTrigger(log, outcomeInvalidInput, fmt.Errorf("%w: %w", ErrInvalidInput, ErrNotStarted))
	}
	in, err := reg.Get(interactionID)
	if err != nil {
		return s.rejectTrigger(log, outcomeInvalidInput, fmt.Errorf("%w: %w", ErrInvalidInput, err))
	}

	if !s.executorReady(ctx) {
		return s.rejectTrigger(log, outcomeServiceNotReady, fmt.Errorf("%w: try again later", ErrServiceNotReady))
	}

	msg := &relay.Message{
		Position:          dev.Position,
		Radius:            dev.Radius,
		SenderName:        s.senderName(dev.OwnerID),
		ChatText:          s.pickFlavor(in.FlavorMessages),
		CommandProfileIDs: slices.Clone(in.CommandProfileIDs),
		OriginOwnerID:     dev.OwnerID,
		InitiatorID:       s.initiator,
		Sequence:          s.sequence.Add(1),
	}

	payload, err := relay.Marshal(msg)
	if err != nil {
		return s.rejectTrigger(log, outcomeSendFailed, fmt.Errorf("failed to encode interaction %s: %w", in.ID, err))
	}

	if err := s.transport.SendToAuthority(ctx, payload); err != nil {
		return s.rejectTrigger(log, outcomeSendFailed, fmt.Errorf("failed to send interaction %s: %w", in.ID, err))
	}

	metrics.Triggers.WithLabelValues(outcomeDispatched).Inc()
	log.Debug("Interaction dispatched",
		"command_profile_ids", msg.CommandProfileIDs,
		"position", msg.Position.String(),
		"radius", msg.Radius,
		"owner_id", msg.OriginOwnerID,
		"sender_name", msg.SenderName,
		"chat_text", msg.ChatText,
		"sequence", msg.Sequence)

	return nil
}

// TriggerSelected triggers whatever interaction the device has selected.
func (s *Session) TriggerSelected(ctx context.Context, dev Device) error {
	id, ok := s.Selected(dev.ID)
	if !ok {
		log := s.logger.With("device_id", dev.ID)
		return s.rejectTrigger(log, outcomeInvalidInput, fmt.Errorf("%w: device %d has no selected interaction", ErrInvalidInput, dev.ID))
	}
	return s.Trigger(ctx, dev, id)
}

func (s *Session) rejectTrigger(log *slog.Logger, outcome string, err error) error {
	metrics.Triggers.WithLabelValues(outcome).Inc()
	if outcome == outcomeInvalidInput {
		log.Warn("Interaction trigger rejected", "reason", err)
	} else {
		log.Error("Interaction trigger failed", "error", err)
	}
	return err
}
