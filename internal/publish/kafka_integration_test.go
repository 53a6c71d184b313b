//go:build integration

package publish

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkaContainer "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/Vencyderry/fitness-tracker-analytics/internal/domain"
	"github.com/Vencyderry/fitness-tracker-analytics/pkg/events"
)

func TestKafkaPublisherRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	kafkaC, err := kafkaContainer.Run(ctx,
		"confluentinc/confluent-local:7.5.0",
		testcontainers.WithEnv(map[string]string{
			"KAFKA_AUTO_CREATE_TOPICS_ENABLE": "true",
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = kafkaC.Terminate(context.Background())
	})

	brokers, err := kafkaC.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)

	topic := "fitness_events_it"
	conn, err := kafka.Dial("tcp", brokers[0])
	require.NoError(t, err)
	require.NoError(t, conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
	_ = conn.Close()

	publisher := NewKafkaPublisher(brokers, topic)
	t.Cleanup(func() {
		_ = publisher.Close()
	})

	event := domain.FitnessEvent{
		ID:           uuid.MustParse("8d7f3a52-4b8e-4a51-9f0c-2f6b1c9e7d44"),
		UserID:       4,
		ActivityType: "cycling",
		Steps:        7,
		HeartRate:    112,
		Calories:     6.43,
		GeneratedAt:  time.Date(2026, 10, 19, 7, 15, 30, 0, time.UTC),
	}

	// The topic may take a moment to get a leader after creation.
	require.Eventually(t, func() bool {
		publishCtx, publishCancel := context.WithTimeout(ctx, 5*time.Second)
		defer publishCancel()
		return publisher.Publish(publishCtx, event) == nil
	}, 30*time.Second, 500*time.Millisecond)

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		GroupID:     "fitness-generator-it",
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
	})
	t.Cleanup(func() {
		_ = reader.Close()
	})

	readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
	defer readCancel()
	msg, err := reader.ReadMessage(readCtx)
	require.NoError(t, err)

	require.Equal(t, "4", string(msg.Key))
	require.Equal(t, events.FitnessEventGeneratedType, headerValue(msg, "event_type"))
	require.Equal(t, event.ID.String(), headerValue(msg, "event_id"))
	require.JSONEq(t, `{
		"event_id":"8d7f3a52-4b8e-4a51-9f0c-2f6b1c9e7d44",
		"user_id":4,
		"activity_type":"cycling",
		"steps":7,
		"heart_rate":112,
		"calories":6.43,
		"generated_at":"2026-10-19T07:15:30Z"
	}`, string(msg.Value))
}
