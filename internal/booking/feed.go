package booking

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Feed is the push side of the change-feed hook. The durable, exactly-once
// record of every transition is the appointment_events table written inside
// the transition transaction; Publish is only a best-effort nudge so
// subscribers refresh promptly instead of waiting for their next poll.
type Feed interface {
	Publish(ctx context.Context, eventType string, appointmentID uuid.UUID)
}

// FeedMessage is what subscribers receive on the Redis channel.
type FeedMessage struct {
	EventType     string    `json:"event_type"`
	AppointmentID uuid.UUID `json:"appointment_id"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type RedisFeed struct {
	client  *redis.Client
	channel string
	log     zerolog.Logger
}

func NewRedisFeed(client *redis.Client, channel string, log zerolog.Logger) *RedisFeed {
	return &RedisFeed{
		client:  client,
		channel: channel,
		log:     log.With().Str("component", "feed").Logger(),
	}
}

func (f *RedisFeed) Publish(ctx context.Context, eventType string, appointmentID uuid.UUID) {
	msg := FeedMessage{
		EventType:     eventType,
		AppointmentID: appointmentID,
		OccurredAt:    time.Now(),
	}

	data, err := json.Marshal(msg)
	if err != nil {
		f.log.Error().Err(err).Str("event_type", eventType).Msg("marshal feed message")
		return
	}

	if err := f.client.Publish(ctx, f.channel, data).Err(); err != nil {
		f.log.Warn().
			Err(err).
			Str("event_type", eventType).
			Str("appointment_id", appointmentID.String()).
			Msg("feed publish failed, subscribers will catch up by polling")
	}
}

// NopFeed discards publishes.
type NopFeed struct{}

func (NopFeed) Publish(context.Context, string, uuid.UUID) {}
