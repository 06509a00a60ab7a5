package producer

import (
	"context"

	kafkago "github.com/segmentio/kafka-go"

	"go-leave/internal/messaging/kafka"
)

// Publisher abstracts the broker write so the outbox worker can be
// exercised without a running Kafka.
type Publisher interface {
	Publish(ctx context.Context, event kafka.OutboxEvent) error
}

type writerPublisher struct {
	writer *kafkago.Writer
}

func NewWriterPublisher(writer *kafkago.Writer) Publisher {
	return &writerPublisher{writer: writer}
}

func (p *writerPublisher) Publish(ctx context.Context, event kafka.OutboxEvent) error {
	msg := kafkago.Message{
		Topic: event.Topic,
		Key:   []byte(event.AggregateID),
		Value: event.Payload,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "aggregate_type", Value: []byte(event.AggregateType)},
		},
	}

	return p.writer.WriteMessages(ctx, msg)
}
