//go:build integration

package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"rollcall/pkg/platform/audit/outbox"
	"rollcall/pkg/testutil/containers"
)

func TestProducer_PublishesKeyedRecords(t *testing.T) {
	broker := containers.GetManager().GetRedpanda(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	topic := "rollcall.audit." + uuid.NewString()[:8]
	producer, err := NewProducer(broker.Brokers, topic)
	require.NoError(t, err)
	defer producer.Close()

	require.NoError(t, producer.EnsureTopic(ctx, 1, 1))
	require.NoError(t, producer.EnsureTopic(ctx, 1, 1), "second ensure is a no-op")

	sessionID := uuid.NewString()
	msgs := []outbox.Message{
		{ID: uuid.New(), Key: sessionID, EventType: "session_opened", Payload: []byte(`{"n":1}`)},
		{ID: uuid.New(), Key: sessionID, EventType: "attendance_marked", Payload: []byte(`{"n":2}`)},
	}
	require.NoError(t, producer.Publish(ctx, msgs))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(broker.Brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	var got []*kgo.Record
	for len(got) < len(msgs) {
		fetches := consumer.PollFetches(ctx)
		require.NoError(t, ctx.Err())
		fetches.EachRecord(func(r *kgo.Record) {
			got = append(got, r)
		})
	}

	require.Len(t, got, 2)
	for i, r := range got {
		assert.Equal(t, sessionID, string(r.Key))
		assert.Equal(t, msgs[i].Payload, r.Value)
		require.NotEmpty(t, r.Headers)
		assert.Equal(t, eventTypeHeader, r.Headers[0].Key)
		assert.Equal(t, msgs[i].EventType, string(r.Headers[0].Value))
	}
}
