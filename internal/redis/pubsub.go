package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/kirinyoku/venue-go/internal/events"
)

const channelReservationEvents = "venuego:v1:reservations:events"

// EventsPubSub carries lifecycle events over redis pub/sub. It backs
// events.Publisher when no AMQP broker is configured; delivery is
// at-most-once to whoever is subscribed at publish time.
type EventsPubSub struct {
	rdb     *redis.Client
	channel string
}

func NewEventsPubSub(rdb *redis.Client) *EventsPubSub {
	return &EventsPubSub{
		rdb:     rdb,
		channel: channelReservationEvents,
	}
}

func (p *EventsPubSub) Publish(ctx context.Context, evt events.Event) error {
	const op = "redis.EventsPubSub.Publish"

	b, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	if err := p.rdb.Publish(ctx, p.channel, b).Err(); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// Subscribe calls handler for every well-formed event until ctx is done.
func (p *EventsPubSub) Subscribe(ctx context.Context, handler func(ctx context.Context, evt events.Event)) error {
	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}

	ch := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var evt events.Event
			if err := json.Unmarshal([]byte(m.Payload), &evt); err == nil && evt.ReservationID != 0 {
				handler(ctx, evt)
			}
		}
	}
}
