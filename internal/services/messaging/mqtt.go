package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"fvgvision-worker-go/internal/config"
)

const (
	mqttQoS            = 1
	mqttConnectTimeout = 5 * time.Second
	mqttPublishTimeout = 2 * time.Second
	mqttQuiesceMs      = 250
)

var (
	ErrNotConnected   = errors.New("mqtt not connected")
	ErrPublishTimeout = errors.New("mqtt publish timeout")
)

// MQTTService is the MQTT transport.
type MQTTService struct {
	client mqtt.Client
	codec  Codec
	logger zerolog.Logger
}

var _ Transport = (*MQTTService)(nil)

func NewMQTTService(cfg *config.Config, codec Codec, logger zerolog.Logger) (*MQTTService, error) {
	s := &MQTTService{
		codec:  codec,
		logger: logger.With().Str("transport", "mqtt").Logger(),
	}

	clientID := cfg.MQTTClientID
	if clientID == "" {
		clientID = "fvgvision-worker-" + cfg.WorkerID
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBrokerURL).
		SetClientID(clientID).
		SetUsername(cfg.MQTTUsername).
		SetPassword(cfg.MQTTPassword).
		SetAutoReconnect(true).
		SetConnectTimeout(mqttConnectTimeout).
		SetMaxReconnectInterval(30 * time.Second)
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		s.logger.Warn().Err(err).Msg("MQTT connection lost, will auto-reconnect")
	}
	opts.OnReconnecting = func(_ mqtt.Client, _ *mqtt.ClientOptions) {
		s.logger.Info().Str("broker", cfg.MQTTBrokerURL).Msg("MQTT reconnecting")
	}

	s.client = mqtt.NewClient(opts)
	token := s.client.Connect()
	if !token.WaitTimeout(mqttConnectTimeout) {
		return nil, fmt.Errorf("connect to MQTT broker %s: timeout", cfg.MQTTBrokerURL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to MQTT broker %s: %w", cfg.MQTTBrokerURL, err)
	}

	s.logger.Info().Str("broker", cfg.MQTTBrokerURL).Str("client_id", clientID).Str("encoding", codec.Name()).Msg("MQTT connection established")
	return s, nil
}

// Publish encodes payload and publishes it with QoS 1, waiting for the
// broker acknowledgement until ctx or the publish timeout expires.
func (s *MQTTService) Publish(ctx context.Context, topic string, payload any) error {
	if !s.IsConnected() {
		return ErrNotConnected
	}
	data, err := s.codec.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", s.codec.Name(), err)
	}

	token := s.client.Publish(topic, mqttQoS, false, data)
	timer := time.NewTimer(mqttPublishTimeout)
	defer timer.Stop()
	select {
	case <-token.Done():
		return token.Error()
	case <-timer.C:
		return ErrPublishTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *MQTTService) IsConnected() bool {
	return s.client != nil && s.client.IsConnectionOpen()
}

func (s *MQTTService) Shutdown(_ context.Context) error {
	if s.client != nil {
		s.client.Disconnect(mqttQuiesceMs)
	}
	return nil
}
