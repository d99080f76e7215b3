package config

import (
	"log/slog"
	"strings"

	"github.com/SAP-F-2025/insight-service/internal/events"
)

// EventConfig holds configuration for event publishing and the pipeline
// trigger subscription
type EventConfig struct {
	Enabled       bool   `env:"EVENTS_ENABLED" envDefault:"true"`
	Publisher     string `env:"EVENTS_PUBLISHER" envDefault:"kafka"` // kafka or mock
	KafkaBrokers  string `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`
	PipelineTopic string `env:"PIPELINE_TOPIC" envDefault:"insight_pipeline"`
	TriggerTopic  string `env:"TRIGGER_TOPIC" envDefault:"test_ingested"`
	ConsumerGroup string `env:"CONSUMER_GROUP" envDefault:"insight-service"`
}

// GetKafkaBrokers returns Kafka brokers as a slice
func (c *EventConfig) GetKafkaBrokers() []string {
	return strings.Split(c.KafkaBrokers, ",")
}

// CreateEventPublisher creates an event publisher based on configuration
func (c *EventConfig) CreateEventPublisher(logger *slog.Logger) (events.EventPublisher, error) {
	if !c.Enabled {
		logger.Info("Event publishing disabled, using mock publisher")
		return events.NewMockEventPublisher(logger), nil
	}

	switch c.Publisher {
	case "kafka":
		logger.Info("Creating Kafka event publisher",
			"brokers", c.KafkaBrokers,
			"topic", c.PipelineTopic)

		return events.NewKafkaEventPublisher(events.PublisherConfig{
			KafkaBrokers: c.GetKafkaBrokers(),
			TopicName:    c.PipelineTopic,
			Logger:       logger,
		})
	case "mock":
		logger.Info("Using mock event publisher")
		return events.NewMockEventPublisher(logger), nil
	default:
		logger.Warn("Unknown event publisher type, falling back to mock", "publisher", c.Publisher)
		return events.NewMockEventPublisher(logger), nil
	}
}

// CreateTriggerSubscriber creates the Kafka subscriber that feeds
// test.ingested events into the pipeline.
func (c *EventConfig) CreateTriggerSubscriber(logger *slog.Logger, handler events.TestIngestedHandler) (*events.KafkaEventSubscriber, error) {
	return events.NewKafkaEventSubscriber(events.SubscriberConfig{
		KafkaBrokers:  c.GetKafkaBrokers(),
		TopicName:     c.TriggerTopic,
		ConsumerGroup: c.ConsumerGroup,
		Logger:        logger,
	}, handler)
}
