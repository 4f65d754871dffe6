package repository

import (
	"context"

	"DripView/internal/domain/models"
	domrepo "DripView/internal/domain/repository"
	pkgkafka "DripView/pkg/kafka"
)

// BatchProducer is the part of *kafka.Producer the publisher needs.
type BatchProducer interface {
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
	Close() error
}

// KafkaBarPublisher implements Publisher for Kafka. Messages are keyed by
// symbol so one symbol's bars stay on one partition.
type KafkaBarPublisher struct {
	producer BatchProducer
	topic    string
}

// NewKafkaBarPublisher creates Kafka publisher.
func NewKafkaBarPublisher(producer BatchProducer, topic string) *KafkaBarPublisher {
	return &KafkaBarPublisher{producer: producer, topic: topic}
}

func (p *KafkaBarPublisher) PublishBars(ctx context.Context, bars []models.ArchivedBar) error {
	if len(bars) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(bars))
	for i, b := range bars {
		msgs[i] = pkgkafka.Message{Key: []byte(b.Symbol), Value: b}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaBarPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

var _ domrepo.Publisher = (*KafkaBarPublisher)(nil)
