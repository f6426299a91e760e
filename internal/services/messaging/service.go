// Package messaging carries notification payloads over NATS or MQTT.
package messaging

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"fvgvision-worker-go/internal/config"
)

// Transport is a connected message bus.
type Transport interface {
	Publish(ctx context.Context, subject string, payload any) error
	IsConnected() bool
	Shutdown(ctx context.Context) error
}

// ErrUnknownTransport is returned for a transport name other than nats or mqtt.
var ErrUnknownTransport = errors.New("unknown notification transport")

// NewTransport connects the transport selected by NOTIFICATION_TRANSPORT.
func NewTransport(cfg *config.Config, logger zerolog.Logger) (Transport, error) {
	codec, err := NewCodec(cfg.NotificationEncoding)
	if err != nil {
		return nil, err
	}
	switch cfg.NotificationTransport {
	case "", "nats":
		return NewService(cfg, codec, logger)
	case "mqtt":
		return NewMQTTService(cfg, codec, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTransport, cfg.NotificationTransport)
	}
}

// Service is the NATS transport.
type Service struct {
	conn   *nats.Conn
	codec  Codec
	logger zerolog.Logger
	closed chan struct{}
}

var _ Transport = (*Service)(nil)

func NewService(cfg *config.Config, codec Codec, logger zerolog.Logger) (*Service, error) {
	s := &Service{
		codec:  codec,
		logger: logger.With().Str("transport", "nats").Logger(),
		closed: make(chan struct{}),
	}

	opts := []nats.Option{
		nats.Name("fvgvision-worker-" + cfg.WorkerID),
		nats.Timeout(cfg.NatsConnectTimeout),
		nats.ReconnectWait(cfg.NatsReconnectWait),
		nats.MaxReconnects(cfg.NatsMaxReconnects),
		nats.DrainTimeout(cfg.NatsDrainTimeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			s.logger.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			s.logger.Info().Str("url", c.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			close(s.closed)
		}),
	}

	conn, err := nats.Connect(cfg.NatsURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", cfg.NatsURL, err)
	}
	s.conn = conn

	s.logger.Info().Str("url", cfg.NatsURL).Str("encoding", codec.Name()).Msg("NATS connection established")
	return s, nil
}

// Publish encodes payload and publishes it. NATS publishes are buffered,
// so ctx is only checked before encoding.
func (s *Service) Publish(ctx context.Context, subject string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := s.codec.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", s.codec.Name(), err)
	}
	return s.conn.Publish(subject, data)
}

func (s *Service) Subscribe(subject string, handler func([]byte)) (*nats.Subscription, error) {
	return s.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Data)
	})
}

func (s *Service) IsConnected() bool {
	return s.conn != nil && s.conn.IsConnected()
}

// Shutdown drains the connection and waits for it to close, falling back to
// an immediate close when the drain fails or ctx expires.
func (s *Service) Shutdown(ctx context.Context) error {
	if s.conn == nil {
		return nil
	}
	if err := s.conn.Drain(); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to drain NATS connection gracefully, closing immediately")
		s.conn.Close()
		return nil
	}
	select {
	case <-s.closed:
		return nil
	case <-ctx.Done():
		s.conn.Close()
		return ctx.Err()
	}
}
