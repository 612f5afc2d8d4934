package optimizesvc

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"
)

// KafkaInsertPublisher publishes route-insert ids to the Kafka topic the
// "kafka" ROUTES_FEED_DRIVER variant consumes, as an alternative to the
// default Redis pub/sub channel for deployments that already run an event
// bus and want a shared, replayable change feed instead of a fire-and-forget
// Redis channel.
type KafkaInsertPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaInsertPublisher(brokers []string, topic string) (*KafkaInsertPublisher, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForLocal

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("optimizesvc: new kafka producer: %w", err)
	}
	return &KafkaInsertPublisher{producer: producer, topic: topic}, nil
}

func (p *KafkaInsertPublisher) PublishRouteInsert(ctx context.Context, id string) error {
	_, _, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(id),
		Value: sarama.StringEncoder(id),
	})
	return err
}

func (p *KafkaInsertPublisher) Close() error { return p.producer.Close() }
