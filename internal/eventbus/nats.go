/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package eventbus forwards local sequencer events to NATS so other
// services can follow generation runs.
package eventbus

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/friendsincode/grimnir_sequencer/internal/events"
)

// NATSConfig contains NATS connection configuration.
type NATSConfig struct {
	URL           string
	Token         string
	SubjectPrefix string

	MaxReconnects int
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// DefaultNATSConfig returns default NATS configuration.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		SubjectPrefix: "grimnir.sequencer",
		MaxReconnects: -1, // Unlimited
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

// publisher is the part of *nats.Conn the forwarder needs.
type publisher interface {
	Publish(subject string, data []byte) error
}

// Forwarder republishes every event from a local bus on NATS subjects of
// the form <prefix>.<event type>.
type Forwarder struct {
	logger zerolog.Logger
	bus    *events.Bus
	conn   *nats.Conn
	pub    publisher
	prefix string
	nodeID string

	mu   sync.Mutex
	subs map[events.EventType]events.Subscriber
	wg   sync.WaitGroup
}

// Connect dials NATS and starts forwarding events from bus. The caller
// decides whether a connection failure is fatal; the local bus keeps
// working either way.
func Connect(cfg NATSConfig, bus *events.Bus, logger zerolog.Logger) (*Forwarder, error) {
	logger = logger.With().Str("component", "eventbus").Logger()

	opts := []nats.Option{
		nats.Name("grimnir-sequencer"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to nats %s: %w", cfg.URL, err)
	}

	f := newForwarder(conn, bus, cfg.SubjectPrefix, logger)
	f.conn = conn
	f.Start()

	logger.Info().Str("url", conn.ConnectedUrl()).Str("prefix", f.prefix).Msg("forwarding events to nats")
	return f, nil
}

func newForwarder(pub publisher, bus *events.Bus, prefix string, logger zerolog.Logger) *Forwarder {
	if prefix == "" {
		prefix = DefaultNATSConfig().SubjectPrefix
	}
	return &Forwarder{
		logger: logger,
		bus:    bus,
		pub:    pub,
		prefix: prefix,
		nodeID: generateNodeID(),
		subs:   make(map[events.EventType]events.Subscriber),
	}
}

// Start subscribes to every event type. Calling it twice is a no-op.
func (f *Forwarder) Start() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.subs) > 0 {
		return
	}

	for _, eventType := range events.AllTypes() {
		sub := f.bus.Subscribe(eventType)
		f.subs[eventType] = sub
		f.wg.Add(1)
		go f.forward(eventType, sub)
	}
}

func (f *Forwarder) forward(eventType events.EventType, sub events.Subscriber) {
	defer f.wg.Done()
	subject := Subject(f.prefix, eventType)

	for payload := range sub {
		data, err := marshalNATSMessage(eventType, payload, f.nodeID)
		if err != nil {
			f.logger.Error().Err(err).Str("event", string(eventType)).Msg("encode event")
			continue
		}
		if err := f.pub.Publish(subject, data); err != nil {
			f.logger.Warn().Err(err).Str("subject", subject).Msg("publish event to nats")
		}
	}
}

// Close stops forwarding and drains the connection so queued messages
// reach the server.
func (f *Forwarder) Close() error {
	if f == nil {
		return nil
	}

	f.mu.Lock()
	for eventType, sub := range f.subs {
		f.bus.Unsubscribe(eventType, sub)
		delete(f.subs, eventType)
	}
	f.mu.Unlock()
	f.wg.Wait()

	if f.conn == nil {
		return nil
	}
	if err := f.conn.Drain(); err != nil {
		f.conn.Close()
		return fmt.Errorf("drain nats connection: %w", err)
	}
	return nil
}

// Subject returns the NATS subject an event type is published on.
func Subject(prefix string, eventType events.EventType) string {
	return prefix + "." + string(eventType)
}

// Message is the JSON envelope published to NATS.
type Message struct {
	EventType events.EventType `json:"event_type"`
	Payload   events.Payload   `json:"payload"`
	Timestamp time.Time        `json:"timestamp"`
	NodeID    string           `json:"node_id"`
	MessageID string           `json:"message_id"` // For deduplication
}

func marshalNATSMessage(eventType events.EventType, payload events.Payload, nodeID string) ([]byte, error) {
	msg := Message{
		EventType: eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
		NodeID:    nodeID,
		MessageID: uuid.NewString(),
	}
	return json.Marshal(msg)
}

// DecodeMessage parses a message published by a Forwarder.
func DecodeMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal nats message: %w", err)
	}
	return &msg, nil
}

func generateNodeID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	return host + "-" + uuid.NewString()[:8]
}
