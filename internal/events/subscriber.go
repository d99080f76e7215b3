package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
)

// TestIngestedHandler runs the analysis pipeline for one ingested test.
type TestIngestedHandler func(ctx context.Context, event *TestIngestedEvent) error

// SubscriberConfig holds configuration for the event subscriber
type SubscriberConfig struct {
	KafkaBrokers  []string
	TopicName     string
	ConsumerGroup string
	Logger        *slog.Logger
}

// KafkaEventSubscriber consumes test.ingested events and hands them to
// the pipeline. Handler errors nack the message so Kafka redelivers it.
type KafkaEventSubscriber struct {
	subscriber message.Subscriber
	topicName  string
	handler    TestIngestedHandler
	logger     *slog.Logger
}

// NewKafkaEventSubscriber creates a Kafka-based subscriber using Watermill
func NewKafkaEventSubscriber(config SubscriberConfig, handler TestIngestedHandler) (*KafkaEventSubscriber, error) {
	logger := watermill.NewSlogLogger(config.Logger)

	subscriberConfig := kafka.SubscriberConfig{
		Brokers:       config.KafkaBrokers,
		Unmarshaler:   kafka.DefaultMarshaler{},
		ConsumerGroup: config.ConsumerGroup,
	}

	subscriber, err := kafka.NewSubscriber(subscriberConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka subscriber: %w", err)
	}

	return &KafkaEventSubscriber{
		subscriber: subscriber,
		topicName:  config.TopicName,
		handler:    handler,
		logger:     config.Logger,
	}, nil
}

// Run consumes messages until the context is cancelled.
func (s *KafkaEventSubscriber) Run(ctx context.Context) error {
	messages, err := s.subscriber.Subscribe(ctx, s.topicName)
	if err != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", s.topicName, err)
	}

	s.logger.Info("Subscribed to pipeline trigger topic", "topic", s.topicName)
	for msg := range messages {
		s.handleMessage(ctx, msg)
	}
	return nil
}

func (s *KafkaEventSubscriber) handleMessage(ctx context.Context, msg *message.Message) {
	var envelope PipelineEvent
	if err := json.Unmarshal(msg.Payload, &envelope); err != nil {
		s.logger.Error("Failed to unmarshal pipeline event, dropping message",
			"message_id", msg.UUID, "error", err)
		msg.Ack()
		return
	}
	if envelope.Type != EventTestIngested {
		s.logger.Debug("Ignoring event", "event_type", envelope.Type)
		msg.Ack()
		return
	}

	// Data round-trips through the envelope's interface{} field.
	data, err := json.Marshal(envelope.Data)
	if err != nil {
		s.logger.Error("Failed to re-marshal event data, dropping message",
			"message_id", msg.UUID, "error", err)
		msg.Ack()
		return
	}
	var event TestIngestedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		s.logger.Error("Malformed test.ingested payload, dropping message",
			"message_id", msg.UUID, "error", err)
		msg.Ack()
		return
	}

	if err := s.handler(ctx, &event); err != nil {
		s.logger.Error("Pipeline run failed, message will be redelivered",
			"class_id", event.ClassID, "test_id", event.TestID, "error", err)
		msg.Nack()
		return
	}
	msg.Ack()
}

// Close closes the subscriber and releases resources
func (s *KafkaEventSubscriber) Close() error {
	return s.subscriber.Close()
}
