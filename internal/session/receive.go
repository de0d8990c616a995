package session

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jwebster45206/interaction-relay/internal/executor"
	"github.com/jwebster45206/interaction-relay/internal/metrics"
	"github.com/jwebster45206/interaction-relay/internal/transport"
	"github.com/jwebster45206/interaction-relay/pkg/relay"
)

// HandleRelay is the transport callback for every inbound relay payload.
// Each participant decides for itself whether its observer is in range;
// only the authority runs the behavior commands. The returned disposition
// asks the transport to fan the payload out to everyone else.
func (s *Session) HandleRelay(ctx context.Context, payload []byte) transport.Disposition {
	msg, err := relay.Unmarshal(payload)
	if err == nil {
		err = msg.Validate()
	}
	if err != nil {
		metrics.RelayMessages.WithLabelValues("invalid").Inc()
		s.logger.Error("Received an invalid relay message", "error", err, "bytes", len(payload))
		return transport.Drop
	}

	log := s.logger.With(
		"initiator_id", msg.InitiatorID,
		"sequence", msg.Sequence,
		"sender_name", msg.SenderName)

	if s.dedupe.Seen(msg.InitiatorID, msg.Sequence) {
		metrics.RelayMessages.WithLabelValues("duplicate").Inc()
		log.Debug("Dropping duplicate relay message")
		return transport.Drop
	}

	authority := s.IsAuthority()
	if authority && !s.executorReady(ctx) {
		metrics.RelayMessages.WithLabelValues(outcomeServiceNotReady).Inc()
		log.Error("Command executor is not ready, dropping relay message")
		return transport.Drop
	}

	s.notifyObserver(ctx, log, msg)

	if authority {
		s.executeCommands(ctx, log, msg)
	}

	metrics.RelayMessages.WithLabelValues("handled").Inc()
	log.Debug("Relay message handled",
		"position", msg.Position.String(),
		"radius", msg.Radius,
		"chat_text", msg.ChatText)

	return transport.RelayToEveryone
}

func (s *Session) notifyObserver(ctx context.Context, log *slog.Logger, msg *relay.Message) {
	if s.observer == nil || s.notifier == nil {
		return
	}
	pos, ok := s.observer.ObserverPosition()
	if !ok {
		return
	}
	if !msg.HasChat() {
		log.Debug("Relay message has no radio call")
		return
	}

	distance := pos.Distance(msg.Position)
	if !msg.InRange(pos) {
		log.Debug("Observer out of range", "distance", distance, "radius", msg.Radius)
		return
	}

	s.notifier.Notify(ctx, Notification{
		SenderName: msg.SenderName,
		Text:       msg.ChatText,
		Distance:   distance,
		ReceivedAt: time.Now(),
	})
	metrics.NotificationsShown.Inc()
}

func (s *Session) executeCommands(ctx context.Context, log *slog.Logger, msg *relay.Message) {
	for _, profileID := range msg.CommandProfileIDs {
		if strings.TrimSpace(profileID) == "" {
			continue
		}
		cmd := executor.Command{
			ProfileIDs: []string{profileID},
			Position:   msg.Position,
			Radius:     msg.Radius,
			OwnerID:    msg.OriginOwnerID,
		}
		if err := s.executor.SendCommand(ctx, cmd); err != nil {
			metrics.CommandsSent.WithLabelValues("error").Inc()
			log.Error("Failed to send behavior command", "error", err, "command_profile_id", profileID)
			continue
		}
		metrics.CommandsSent.WithLabelValues("ok").Inc()
		log.Info("Behavior command sent", "command_profile_id", profileID, "owner_id", msg.OriginOwnerID)
	}
}
