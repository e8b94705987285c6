package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/kaifufi/swap-sdk-go/events"
	"github.com/kaifufi/swap-sdk-go/metrics"
)

// DefaultSubjectPrefix is used when no subject prefix is configured
const DefaultSubjectPrefix = "swap.events"

// Publisher is the part of a NATS connection the sink needs
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSConfig holds the NATS connection settings
type NATSConfig struct {
	URL           string
	SubjectPrefix string
	Timeout       time.Duration
}

// NATSSink publishes every event as JSON to <prefix>.<event name>
type NATSSink struct {
	pub    Publisher
	conn   *nats.Conn
	prefix string
}

var _ events.Sink = (*NATSSink)(nil)

// NewNATSSink connects to the server and returns a sink publishing on it
func NewNATSSink(cfg NATSConfig, logger logrus.FieldLogger) (*NATSSink, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	log := logger.WithField("component", "nats")

	conn, err := nats.Connect(cfg.URL,
		nats.Name("swap-sdk-go"),
		nats.Timeout(cfg.Timeout),
		nats.ReconnectWait(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.WithError(err).Warn("NATS disconnected")
			metrics.NATSConnectionStatus.Set(0)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.WithField("url", nc.ConnectedUrl()).Info("NATS reconnected")
			metrics.NATSConnectionStatus.Set(1)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	metrics.NATSConnectionStatus.Set(1)

	sink := NewPublisherSink(conn, cfg.SubjectPrefix)
	sink.conn = conn
	return sink, nil
}

// NewPublisherSink wraps an existing publisher
func NewPublisherSink(pub Publisher, prefix string) *NATSSink {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATSSink{pub: pub, prefix: prefix}
}

// Subject returns the subject an event is published on
func (s *NATSSink) Subject(ev events.Event) string {
	return s.prefix + "." + ev.Name()
}

func (s *NATSSink) Publish(_ context.Context, ev events.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", ev.Name(), err)
	}
	if err := s.pub.Publish(s.Subject(ev), data); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", ev.Name(), err)
	}
	return nil
}

// Close drains the connection if the sink owns one
func (s *NATSSink) Close() error {
	if s.conn == nil {
		return nil
	}
	if err := s.conn.Drain(); err != nil {
		s.conn.Close()
		return err
	}
	return nil
}
