package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestBusPublisherDeliversToRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	sub := client.Subscribe(ctx, "grading")
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	publisher := NewBusPublisher(BusConfig{Redis: client, RedisChannel: "grading"}, zerolog.Nop())
	require.NoError(t, publisher.Publish(ctx, GradingEvent{
		Type:         TypeGraded,
		SubmissionID: 4,
		AssignmentID: 2,
		Grade:        "B+",
	}))

	receiveCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	msg, err := sub.ReceiveMessage(receiveCtx)
	require.NoError(t, err)

	var event GradingEvent
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &event))
	require.Equal(t, TypeGraded, event.Type)
	require.Equal(t, uint(4), event.SubmissionID)
	require.Equal(t, "B+", event.Grade)
	require.NotEmpty(t, event.ID)
	require.False(t, event.OccurredAt.IsZero())
}

func TestBusPublisherWithoutTransportsIsNoop(t *testing.T) {
	publisher := NewBusPublisher(BusConfig{}, zerolog.Nop())
	require.NoError(t, publisher.Publish(context.Background(), GradingEvent{Type: TypeFailed}))
}
