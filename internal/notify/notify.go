// Package notify provides the HTTP notification sink the optimize worker
// publishes routeOptimised events to. It is an async, drop-on-backpressure
// publisher: the persisted RouteRecord update is the system of record, not
// this delivery.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/droneroute/flightcore/internal/core/observability"
	"github.com/droneroute/flightcore/internal/errs"
)

// Event is one item in an envelope's events array, marshaled to a JSON
// string before being embedded (per the envelope's on-wire shape). ID
// lets the sink dedupe retried deliveries.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data any    `json:"data"`
}

// envelope is the on-wire shape POSTed to the notification sink:
// {channel, events: [string, ...]} where each string is itself a
// marshaled Event.
type envelope struct {
	Channel string   `json:"channel"`
	Events  []string `json:"events"`
}

// RouteOptimisedData is the payload of a "routeOptimised" event: the
// assess response shape plus the route id.
type RouteOptimisedData struct {
	ID               string   `json:"id"`
	Route            any      `json:"route"`
	RouteDistanceKm  float64  `json:"routeDistance"`
	PopulationImpact float64  `json:"populationImpact"`
	NoiseImpactScore *float64 `json:"noiseImpactScore,omitempty"`
	VisibilityRisk   *float64 `json:"visibilityRisk,omitempty"`
	WindRisk         *float64 `json:"windRisk,omitempty"`
}

type Publisher struct {
	domain  string
	apiKey  string
	channel string
	client  *http.Client
	events  chan Event
	stopCh  chan struct{}
	stopped chan struct{}
	log     zerolog.Logger
}

func NewPublisher(client *http.Client, domain, apiKey, channel string, queueSize int) *Publisher {
	if queueSize <= 0 {
		queueSize = 1024
	}
	if client == nil {
		client = http.DefaultClient
	}
	p := &Publisher{
		domain: domain, apiKey: apiKey, channel: channel,
		client: client, events: make(chan Event, queueSize),
		stopCh: make(chan struct{}), stopped: make(chan struct{}),
		log: zerolog.Nop(),
	}
	go p.run()
	return p
}

func (p *Publisher) WithLogger(l zerolog.Logger) *Publisher {
	p.log = l
	return p
}

func (p *Publisher) run() {
	defer close(p.stopped)
	for ev := range p.events {
		if err := p.send(ev); err != nil {
			observability.IncPublishFailure()
			p.log.Warn().Err(err).Str("eventType", ev.Type).Msg("notification publish failed")
		}
	}
}

func (p *Publisher) send(ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("notify: marshal event: %w", err)
	}
	body, err := json.Marshal(envelope{Channel: p.channel, Events: []string{string(data)}})
	if err != nil {
		return fmt.Errorf("notify: marshal envelope: %w", err)
	}

	if p.domain == "" {
		return errs.New(errs.KindPublishFailed, "notify: no EVENTS_HTTP_DOMAIN configured")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.domain, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return errs.Wrap(errs.KindPublishFailed, "notify: POST failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return errs.New(errs.KindPublishFailed, fmt.Sprintf("notify: sink returned status %d", resp.StatusCode))
	}
	return nil
}

// PublishRouteOptimised enqueues a routeOptimised event. Non-blocking: if
// the internal queue is full, the event is dropped rather than stalling
// the worker's critical path.
func (p *Publisher) PublishRouteOptimised(data RouteOptimisedData) {
	ev := Event{ID: uuid.NewString(), Type: "routeOptimised", Data: data}
	select {
	case p.events <- ev:
	default:
		observability.IncPublishFailure()
		p.log.Warn().Str("routeId", data.ID).Msg("notification queue full, dropping event")
	}
}

func (p *Publisher) Close() error {
	close(p.events)
	<-p.stopped
	return nil
}
