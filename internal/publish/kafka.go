// Package publish streams committed fitness events to Kafka.
package publish

import (
	"context"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/segmentio/kafka-go"

	"github.com/Vencyderry/fitness-tracker-analytics/internal/domain"
	"github.com/Vencyderry/fitness-tracker-analytics/pkg/events"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type messageWriter interface {
	WriteMessages(context.Context, ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes one record per event to a single topic, keyed by user.
type KafkaPublisher struct {
	writer messageWriter
}

// NewKafkaPublisher creates a synchronous publisher for topic. Each Publish is a
// single attempt bounded by the caller's context.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return newKafkaPublisher(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Snappy,
		BatchSize:    1,
		MaxAttempts:  1,
		WriteTimeout: 5 * time.Second,
		Async:        false,
	})
}

func newKafkaPublisher(writer messageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: writer}
}

// Publish encodes the event and writes it, blocking until the brokers acknowledge.
func (p *KafkaPublisher) Publish(ctx context.Context, event domain.FitnessEvent) error {
	msg, err := encode(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

// Close flushes and releases the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func encode(event domain.FitnessEvent) (kafka.Message, error) {
	body, err := json.Marshal(events.FitnessEventGenerated{
		EventID:      event.ID.String(),
		UserID:       event.UserID,
		ActivityType: event.ActivityType,
		Steps:        event.Steps,
		HeartRate:    event.HeartRate,
		Calories:     event.Calories,
		GeneratedAt:  event.GeneratedAt.UTC(),
	})
	if err != nil {
		return kafka.Message{}, err
	}

	return kafka.Message{
		Key:   []byte(strconv.Itoa(event.UserID)),
		Value: body,
		Time:  event.GeneratedAt.UTC(),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(events.FitnessEventGeneratedType)},
			{Key: "event_id", Value: []byte(event.ID.String())},
		},
	}, nil
}
