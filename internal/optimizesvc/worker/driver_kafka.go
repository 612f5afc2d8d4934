package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/IBM/sarama"
)

// KafkaDriver is the alternative change-feed driver: route insert ids are
// published to a Kafka topic instead of a Redis channel, and consumed via
// a consumer group so multiple worker replicas share partitions.
type KafkaDriver struct {
	worker  *Worker
	brokers []string
	topic   string
	groupID string
}

func NewKafkaDriver(w *Worker, brokers []string, topic, groupID string) *KafkaDriver {
	return &KafkaDriver{worker: w, brokers: brokers, topic: topic, groupID: groupID}
}

func (d *KafkaDriver) Run(ctx context.Context) error {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	cfg.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(d.brokers, d.groupID, cfg)
	if err != nil {
		return fmt.Errorf("optimize worker kafka driver: new consumer group: %w", err)
	}
	defer group.Close()

	go func() {
		for err := range group.Errors() {
			d.worker.log.Error().Err(err).Msg("kafka driver: consumer group error")
		}
	}()

	handler := &insertClaimHandler{worker: d.worker}
	for {
		if err := group.Consume(ctx, []string{d.topic}, handler); err != nil {
			d.worker.log.Error().Err(err).Msg("kafka driver: consume error")
			select {
			case <-time.After(2 * time.Second):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

type insertClaimHandler struct {
	worker *Worker
}

func (h *insertClaimHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *insertClaimHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *insertClaimHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	ctx := sess.Context()
	for msg := range claim.Messages() {
		routeID := string(msg.Value)
		if err := h.worker.ProcessInsert(ctx, routeID); err != nil {
			h.worker.log.Warn().Err(err).Str("routeId", routeID).Msg("kafka driver: process insert failed")
		}
		sess.MarkMessage(msg, "")
	}
	return nil
}
