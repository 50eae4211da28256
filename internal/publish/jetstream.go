// Package publish delivers domain events to the message bus. The gateway
// consumes them on the other side and fans out to connected clients.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/cluegrid/cluegrid/internal/events"
)

// JetStreamConfig holds connection and stream settings for the publisher.
type JetStreamConfig struct {
	URL             string
	StreamName      string
	SubjectPrefix   string
	MaxReconnects   int
	ReconnectWait   time.Duration
	MaxAge          time.Duration
	MaxMsgs         int64
	Replicas        int
	DuplicateWindow time.Duration
	PublishRetries  int
	RetryDelay      time.Duration
}

// DefaultJetStreamConfig returns default publisher configuration.
func DefaultJetStreamConfig() JetStreamConfig {
	return JetStreamConfig{
		URL:             nats.DefaultURL,
		StreamName:      "GAME_EVENTS",
		SubjectPrefix:   "game.events",
		MaxReconnects:   -1,
		ReconnectWait:   2 * time.Second,
		MaxAge:          24 * time.Hour,
		MaxMsgs:         -1,
		Replicas:        1,
		DuplicateWindow: 2 * time.Minute,
		PublishRetries:  3,
		RetryDelay:      200 * time.Millisecond,
	}
}

// JetStreamPublisher publishes game events to a JetStream stream with
// per-event-id deduplication.
type JetStreamPublisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	config JetStreamConfig
}

// NewJetStreamPublisher connects to NATS and ensures the stream exists.
func NewJetStreamPublisher(cfg JetStreamConfig) (*JetStreamPublisher, error) {
	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	p := &JetStreamPublisher{nc: nc, js: js, config: cfg}
	if err := p.ensureStream(context.Background()); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream: %w", err)
	}
	return p, nil
}

func (p *JetStreamPublisher) ensureStream(ctx context.Context) error {
	sc := jetstream.StreamConfig{
		Name:        p.config.StreamName,
		Description: "Game session event stream",
		Subjects:    []string{fmt.Sprintf("%s.>", p.config.SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      p.config.MaxAge,
		MaxMsgs:     p.config.MaxMsgs,
		Storage:     jetstream.FileStorage,
		Replicas:    p.config.Replicas,
		Duplicates:  p.config.DuplicateWindow,
	}

	if _, err := p.js.Stream(ctx, p.config.StreamName); err != nil {
		if _, err := p.js.CreateStream(ctx, sc); err != nil {
			return fmt.Errorf("create stream: %w", err)
		}
		log.Info().Str("stream", p.config.StreamName).Msg("created JetStream stream")
	}
	return nil
}

// Publish sends one event, retrying transient failures with backoff. The
// engine calls this off its hot path; a publish that exhausts its retries is
// logged and dropped rather than surfaced to gameplay.
func (p *JetStreamPublisher) Publish(ctx context.Context, event *events.GameEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	subject := fmt.Sprintf("%s.%s.%s", p.config.SubjectPrefix, event.GameID, event.Type)
	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
		Header: nats.Header{
			"Event-Type": []string{string(event.Type)},
			"Game-ID":    []string{event.GameID},
			"Event-ID":   []string{event.ID},
		},
	}

	for attempt := 1; ; attempt++ {
		_, err = p.js.PublishMsg(ctx, msg, jetstream.WithMsgID(event.ID))
		if err == nil {
			return nil
		}
		if attempt >= p.config.PublishRetries {
			return fmt.Errorf("publish %s after %d attempts: %w", event.Type, attempt, err)
		}
		log.Warn().
			Err(err).
			Str("event_type", string(event.Type)).
			Int("attempt", attempt).
			Msg("publish failed, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.config.RetryDelay * time.Duration(attempt)):
		}
	}
}

// Close shuts down the NATS connection.
func (p *JetStreamPublisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}
