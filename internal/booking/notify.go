package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Notifier is the outbound notification port. Emit is fire-and-forget: it runs
// only after the triggering transition has committed, and its failures are
// logged, never surfaced to the caller.
type Notifier interface {
	Emit(ctx context.Context, ev NotificationEvent)
}

// OutboxNotifier appends notification events to the append-only notifications
// table, where the notify-worker picks them up for delivery.
type OutboxNotifier struct {
	repo Repository
	log  zerolog.Logger
}

func NewOutboxNotifier(repo Repository, log zerolog.Logger) *OutboxNotifier {
	return &OutboxNotifier{repo: repo, log: log.With().Str("component", "notifier").Logger()}
}

func (n *OutboxNotifier) Emit(ctx context.Context, ev NotificationEvent) {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	ev.Status = NotificationPending
	ev.CreatedAt = time.Now()

	if err := n.repo.InsertNotification(ctx, ev); err != nil {
		n.log.Error().
			Err(err).
			Str("event_type", ev.EventType).
			Str("appointment_id", ev.AppointmentID.String()).
			Msg("failed to enqueue notification")
	}
}

// NopNotifier discards events. Used where no notification surface is wired.
type NopNotifier struct{}

func (NopNotifier) Emit(context.Context, NotificationEvent) {}

// DispatchNotifications is called periodically by the notify-worker. Delivery
// transport lives outside this core, so dispatch hands each pending event to
// the log and marks it sent; a failed mark leaves the event pending for the
// next run, which duplicates delivery but never loses it.
func (s *Service) DispatchNotifications(ctx context.Context, batch int) (int, error) {
	pending, err := s.repo.ListPendingNotifications(ctx, batch)
	if err != nil {
		return 0, fmt.Errorf("list pending notifications: %w", err)
	}

	dispatched := 0
	for _, n := range pending {
		s.log.Info().
			Str("notification_id", n.ID.String()).
			Str("event_type", n.EventType).
			Str("recipient_id", n.RecipientID.String()).
			Str("recipient_role", string(n.RecipientRole)).
			Str("message", n.Message).
			Msg("delivering notification")

		if err := s.repo.MarkNotification(ctx, n.ID, NotificationSent); err != nil {
			s.log.Error().Err(err).Str("notification_id", n.ID.String()).Msg("failed to mark notification sent")
			continue
		}
		dispatched++
	}
	return dispatched, nil
}
