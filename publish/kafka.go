// Package publish fans freshly fetched forecast views out to Kafka so other
// processes can follow the tray without calling the provider themselves.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tray-weather/logger"
	"tray-weather/models"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Message is the record value written for every fetch
type Message struct {
	CapturedAt time.Time         `json:"capturedAt"`
	View       *models.ViewModel `json:"view"`
}

type producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

// KafkaPublisher writes one record per fetched view
type KafkaPublisher struct {
	topic  string
	client producer
	logger logger.Logger
}

// NewKafkaPublisher connects a producer to brokers. The client connects
// lazily, so an unreachable broker only shows up as publish errors.
func NewKafkaPublisher(brokers []string, topic string, log logger.Logger) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers configured")
	}
	if topic == "" {
		return nil, fmt.Errorf("no kafka topic configured")
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	return newKafkaPublisher(client, topic, log), nil
}

func newKafkaPublisher(client producer, topic string, log logger.Logger) *KafkaPublisher {
	if log == nil {
		log = logger.Nop()
	}
	return &KafkaPublisher{
		topic:  topic,
		client: client,
		logger: log.WithField("component", "kafka_publisher"),
	}
}

// Publish writes the view and waits for the broker to acknowledge it
func (p *KafkaPublisher) Publish(ctx context.Context, capturedAt time.Time, view *models.ViewModel) error {
	value, err := json.Marshal(Message{CapturedAt: capturedAt.UTC(), View: view})
	if err != nil {
		return fmt.Errorf("failed to marshal forecast message: %w", err)
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(view.Current.Time),
		Value: value,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", p.topic, err)
	}

	p.logger.Debugf("Published forecast to %s: key=%s", p.topic, view.Current.Time)
	return nil
}

// Close flushes and closes the producer
func (p *KafkaPublisher) Close() {
	p.client.Close()
}
