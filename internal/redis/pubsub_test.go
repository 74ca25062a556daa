package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/venue-go/internal/events"
)

func TestEventsPubSubRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	ps := NewEventsPubSub(rdb)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan events.Event, 1)
	go func() {
		_ = ps.Subscribe(ctx, func(_ context.Context, evt events.Event) {
			got <- evt
		})
	}()

	require.Eventually(t, func() bool {
		return mr.PubSubNumSub(channelReservationEvents)[channelReservationEvents] == 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, ps.Publish(ctx, events.Event{Type: events.ReservationApproved, ReservationID: 9}))

	select {
	case evt := <-got:
		assert.Equal(t, int64(9), evt.ReservationID)
		assert.Equal(t, events.ReservationApproved, evt.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}
