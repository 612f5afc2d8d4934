// Package metarconsumer is the narrow collaborator boundary between an
// external METAR decode job and the spatial store: it consumes
// already-decoded weather records off a Kafka topic, assigns them geohash
// partition keys, and writes them through the spatial store's batch path.
// Decoding METAR XML itself is out of scope.
package metarconsumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	"github.com/droneroute/flightcore/internal/core/observability"
	"github.com/droneroute/flightcore/internal/geohash"
	"github.com/droneroute/flightcore/internal/model"
)

// BatchWriter is the C3 collaborator this package writes decoded reports
// through.
type BatchWriter interface {
	WriteBatch(ctx context.Context, items []model.GeoPoint)
}

// decodedReport is the wire shape an upstream METAR decoder publishes.
// Optional fields are nil when the source observation did not carry that
// measurement.
type decodedReport struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`

	TemperatureC       *float64 `json:"temperatureC,omitempty"`
	WindSpeedMs        *float64 `json:"windSpeedMs,omitempty"`
	VisibilityMeters   *float64 `json:"visibilityMeters,omitempty"`
	PrecipitationLevel *int     `json:"precipitationLevel,omitempty"`

	DataTimestamp time.Time `json:"dataTimestamp"`
}

// Config holds the geohash precisions and retention window used to build
// each WeatherReport's partition keys, matching the precisions the rest of
// the spatial index uses.
type Config struct {
	PartitionKeyPrecision int // P_PK
	SortKeyPrecision      int // P_SK
	GSIPrecision          int // P_GSI
	ItemTTL               time.Duration
}

// Consumer is a sarama consumer-group handler that decodes and validates
// weather reports and hands each one to the spatial store's WriteBatch on
// its own.
type Consumer struct {
	store BatchWriter
	cfg   Config
	log   zerolog.Logger
}

func New(store BatchWriter, cfg Config) *Consumer {
	return &Consumer{store: store, cfg: cfg, log: zerolog.Nop()}
}

func (c *Consumer) WithLogger(l zerolog.Logger) *Consumer {
	c.log = l
	return c
}

func (c *Consumer) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (c *Consumer) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (c *Consumer) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		c.handleMessage(sess.Context(), msg.Value)
		sess.MarkMessage(msg, "")
	}
	return nil
}

// handleMessage decodes, validates and writes a single record. Split out of
// ConsumeClaim so it can be exercised without a live sarama session/claim.
func (c *Consumer) handleMessage(ctx context.Context, value []byte) {
	report, err := c.decode(value)
	if err != nil {
		c.log.Warn().Err(err).Msg("metar consumer: drop undecodable record")
		return
	}
	if !report.Valid() {
		observability.IncWeatherDropped()
		c.log.Warn().Float64("lat", report.Lat).Float64("lon", report.Lon).Msg("metar consumer: drop out-of-range coordinates")
		return
	}
	c.store.WriteBatch(ctx, []model.GeoPoint{report})
}

func (c *Consumer) decode(raw []byte) (model.WeatherReport, error) {
	var d decodedReport
	if err := json.Unmarshal(raw, &d); err != nil {
		return model.WeatherReport{}, fmt.Errorf("metar consumer: unmarshal: %w", err)
	}

	pk := geohash.Encode(d.Lat, d.Lon, c.cfg.PartitionKeyPrecision)
	sk := model.SKPrefix(model.TypeWeather) + geohash.Encode(d.Lat, d.Lon, c.cfg.SortKeyPrecision)
	gsiPK := geohash.Encode(d.Lat, d.Lon, c.cfg.GSIPrecision)

	now := d.DataTimestamp
	if now.IsZero() {
		now = time.Now().UTC()
	}

	return model.WeatherReport{
		Lat: d.Lat, Lon: d.Lon,

		TemperatureC:       d.TemperatureC,
		WindSpeedMs:        d.WindSpeedMs,
		VisibilityMeters:   d.VisibilityMeters,
		PrecipitationLevel: d.PrecipitationLevel,

		DataTimestamp:   d.DataTimestamp,
		RecordTimestamp: time.Now().UTC(),
		TTL:             now.Add(c.cfg.ItemTTL),

		PK: pk, SK: sk,
		GSI1PK: gsiPK, GSI1SK: sk,
	}, nil
}

// Driver runs a sarama consumer group against brokers/topic/groupID,
// handing each partition's claim to a Consumer.
type Driver struct {
	consumer *Consumer
	brokers  []string
	topic    string
	groupID  string
}

func NewDriver(consumer *Consumer, brokers []string, topic, groupID string) *Driver {
	return &Driver{consumer: consumer, brokers: brokers, topic: topic, groupID: groupID}
}

func (d *Driver) Run(ctx context.Context) error {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	cfg.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(d.brokers, d.groupID, cfg)
	if err != nil {
		return fmt.Errorf("metar consumer: new consumer group: %w", err)
	}
	defer group.Close()

	go func() {
		for err := range group.Errors() {
			d.consumer.log.Error().Err(err).Msg("metar consumer: consumer group error")
		}
	}()

	for {
		if err := group.Consume(ctx, []string{d.topic}, d.consumer); err != nil {
			d.consumer.log.Error().Err(err).Msg("metar consumer: consume error")
			select {
			case <-time.After(2 * time.Second):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}
