package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	logx "github.com/Chative-core-poc-v1/salesagent/pkg/logger"
)

type Config struct {
	NATSURL       string `envconfig:"NATS_URL"`
	NATSToken     string `envconfig:"NATS_TOKEN"`
	SubjectPrefix string `envconfig:"TELEMETRY_SUBJECT_PREFIX" default:"salesagent"`
}

// Envelope is the JSON body published for every event.
type Envelope struct {
	ID         string         `json:"id"`
	Event      string         `json:"event"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload"`
}

// Publisher is the subset of a NATS connection the sink needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSSink publishes events fire-and-forget. Publish failures are logged and counted only.
type NATSSink struct {
	pub    Publisher
	prefix string
	conn   *nats.Conn
}

// NewNATSSink connects to NATS with reconnect handling.
func NewNATSSink(cfg Config) (*NATSSink, error) {
	opts := []nats.Option{
		nats.Name("salesagent"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logx.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logx.Info().Msg("nats reconnected")
		}),
	}
	if cfg.NATSToken != "" {
		opts = append(opts, nats.Token(cfg.NATSToken))
	}
	nc, err := nats.Connect(cfg.NATSURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	s := NewPublisherSink(nc, cfg.SubjectPrefix)
	s.conn = nc
	return s, nil
}

// NewPublisherSink builds a sink over any publisher.
func NewPublisherSink(pub Publisher, prefix string) *NATSSink {
	return &NATSSink{pub: pub, prefix: strings.TrimSuffix(prefix, ".")}
}

// Subject returns the subject an event is published on.
func (s *NATSSink) Subject(event string) string {
	if s.prefix == "" {
		return event
	}
	return s.prefix + "." + event
}

func (s *NATSSink) Emit(_ context.Context, event string, payload map[string]any) {
	b, err := json.Marshal(Envelope{
		ID:         uuid.NewString(),
		Event:      event,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	})
	if err != nil {
		logx.Warn().Err(err).Str("event", event).Msg("failed to marshal telemetry event")
		EventsPublished.WithLabelValues(event, "error").Inc()
		return
	}
	if err := s.pub.Publish(s.Subject(event), b); err != nil {
		logx.Warn().Err(err).Str("event", event).Msg("failed to publish telemetry event")
		EventsPublished.WithLabelValues(event, "error").Inc()
		return
	}
	EventsPublished.WithLabelValues(event, "published").Inc()
}

// Close drains the underlying connection when the sink owns one.
func (s *NATSSink) Close() {
	if s.conn != nil {
		_ = s.conn.Drain()
	}
}
