// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomengine

//go:build nats

package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/roomengine/internal/metrics"
)

// NATSChangeFeedConfig configures the JetStream-backed ChangeFeed.
type NATSChangeFeedConfig struct {
	URL           string
	StreamName    string
	StreamSubject string
	MaxAge        time.Duration
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultNATSChangeFeedConfig returns production defaults for the room
// engine's change feed stream.
func DefaultNATSChangeFeedConfig(url string) NATSChangeFeedConfig {
	return NATSChangeFeedConfig{
		URL:           url,
		StreamName:    "ROOM_EVENTS",
		StreamSubject: "rooms.>",
		MaxAge:        7 * 24 * time.Hour,
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// NATSChangeFeed publishes every storage mutation onto a durable
// JetStream stream and lets the vote consensus engine (and any other
// interested consumer) attach a durable, ordered, at-least-once
// subscription.
type NATSChangeFeed struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	stream jetstream.Stream
	cfg    NATSChangeFeedConfig
}

// NewNATSChangeFeed connects to the NATS server at cfg.URL and ensures the
// change-feed stream exists before returning.
func NewNATSChangeFeed(ctx context.Context, cfg NATSChangeFeedConfig) (*NATSChangeFeed, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	streamCfg := jetstream.StreamConfig{
		Name:      cfg.StreamName,
		Subjects:  []string{cfg.StreamSubject},
		Retention: jetstream.LimitsPolicy,
		MaxAge:    cfg.MaxAge,
		Storage:   jetstream.FileStorage,
		Discard:   jetstream.DiscardOld,
	}

	stream, err := js.Stream(ctx, cfg.StreamName)
	if err != nil {
		stream, err = js.CreateStream(ctx, streamCfg)
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("create stream: %w", err)
		}
	}

	return &NATSChangeFeed{nc: nc, js: js, stream: stream, cfg: cfg}, nil
}

func (f *NATSChangeFeed) subjectFor(event ChangeEvent) string {
	return "rooms." + string(event.Kind)
}

func (f *NATSChangeFeed) Publish(ctx context.Context, event ChangeEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		metrics.ChangeFeedEventsProcessed.WithLabelValues("marshal_error").Inc()
		return fmt.Errorf("marshal change event: %w", err)
	}

	_, err = f.js.Publish(ctx, f.subjectFor(event), payload, jetstream.WithMsgID(event.Key+":"+fmt.Sprint(event.Sequence)))
	if err != nil {
		metrics.ChangeFeedEventsProcessed.WithLabelValues("publish_error").Inc()
		return fmt.Errorf("publish change event: %w", err)
	}
	metrics.ChangeFeedEventsProcessed.WithLabelValues("published").Inc()
	return nil
}

// Subscribe creates (or attaches to) a durable JetStream consumer named
// durableName and delivers every message to handler in stream order.
// Handler errors and undecodable messages are negatively acknowledged, so
// JetStream redelivers them, up to MaxDeliver (5) deliveries per message.
// The consensus engine's conditional writes must tolerate the resulting
// duplicates.
func (f *NATSChangeFeed) Subscribe(ctx context.Context, durableName string, handler ChangeHandler) error {
	consumer, err := f.stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:       durableName,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverAllPolicy,
		MaxDeliver:    5,
		AckWait:       30 * time.Second,
		MaxAckPending: 1000,
	})
	if err != nil {
		return fmt.Errorf("create consumer %s: %w", durableName, err)
	}

	consumeCtx, err := consumer.Consume(func(msg jetstream.Msg) {
		var event ChangeEvent
		if err := json.Unmarshal(msg.Data(), &event); err != nil {
			metrics.ChangeFeedEventsProcessed.WithLabelValues("decode_error").Inc()
			_ = msg.Nak()
			return
		}

		if err := handler(ctx, event); err != nil {
			metrics.ChangeFeedEventsProcessed.WithLabelValues("handler_error").Inc()
			_ = msg.Nak()
			return
		}

		metrics.ChangeFeedEventsProcessed.WithLabelValues("handled").Inc()
		_ = msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("start consume %s: %w", durableName, err)
	}
	defer consumeCtx.Stop()

	<-ctx.Done()
	return ctx.Err()
}

// Healthy reports the cached NATS connection state without making a
// round trip.
func (f *NATSChangeFeed) Healthy(ctx context.Context) bool {
	return f.nc.Status() == nats.CONNECTED
}

func (f *NATSChangeFeed) Close() error {
	f.nc.Close()
	return nil
}
