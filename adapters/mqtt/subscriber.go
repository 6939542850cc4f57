// Package mqtt ingests field sensor observations from an MQTT broker.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"cropadvisor/domain/core"
	"cropadvisor/domain/crop"
	"cropadvisor/internal"
	"cropadvisor/internal/metrics"
	"cropadvisor/internal/recommend"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// Recommender is the part of the recommendation service the subscriber uses
type Recommender interface {
	Recommend(ctx context.Context, req recommend.Request) (*crop.Recommendation, error)
}

// SensorMessage is the JSON payload published by field devices. The device
// ID falls back to the second topic segment (fields/<device>/observations).
type SensorMessage struct {
	DeviceID string `json:"device_id"`
	FarmerID string `json:"farmer_id"`
	crop.ObservationPayload
}

// Config holds the broker connection settings
type Config struct {
	Broker   string
	Topic    string
	ClientID string
	QoS      byte
	Timeout  time.Duration
}

// Subscriber recommends every observation received on the topic. Results
// leave the process through the recommender's event publisher.
type Subscriber struct {
	cfg         Config
	client      paho.Client
	recommender Recommender
	metrics     *metrics.Metrics
	logger      *internal.Logger
}

// NewSubscriber creates a subscriber; Start connects it
func NewSubscriber(cfg Config, recommender Recommender, m *metrics.Metrics, logger *internal.Logger) *Subscriber {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	s := &Subscriber{cfg: cfg, recommender: recommender, metrics: m, logger: logger}

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOrderMatters(false).
		SetOnConnectHandler(func(c paho.Client) {
			// subscriptions are not restored by the client after a reconnect
			token := c.Subscribe(cfg.Topic, cfg.QoS, s.HandleMessage)
			if token.WaitTimeout(cfg.Timeout) && token.Error() != nil {
				s.logger.Error("[SensorSubscriber] subscribe %s: %v", cfg.Topic, token.Error())
				return
			}
			s.logger.Info("[SensorSubscriber] subscribed to %s on %s", cfg.Topic, cfg.Broker)
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			s.logger.Warn("[SensorSubscriber] connection lost: %v", err)
		})
	s.client = paho.NewClient(opts)
	return s
}

// Start connects to the broker. The subscription is made by the connect
// handler, so it survives reconnects.
func (s *Subscriber) Start() error {
	token := s.client.Connect()
	if !token.WaitTimeout(s.cfg.Timeout) {
		return fmt.Errorf("connect to %s: timed out after %s", s.cfg.Broker, s.cfg.Timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect to %s: %w", s.cfg.Broker, err)
	}
	return nil
}

// Stop unsubscribes and disconnects
func (s *Subscriber) Stop() {
	if s.client.IsConnected() {
		s.client.Unsubscribe(s.cfg.Topic).WaitTimeout(time.Second)
	}
	s.client.Disconnect(250)
}

// HandleMessage recommends one sensor message. Malformed payloads are
// logged and dropped.
func (s *Subscriber) HandleMessage(_ paho.Client, msg paho.Message) {
	var payload SensorMessage
	if err := json.Unmarshal(msg.Payload(), &payload); err != nil {
		s.metrics.IngestMessage("malformed")
		s.logger.Warn("[SensorSubscriber] dropping malformed message on %s: %v", msg.Topic(), err)
		return
	}

	obs, err := payload.Observation()
	if err != nil {
		s.metrics.IngestMessage("invalid_input")
		s.logger.Warn("[SensorSubscriber] dropping message on %s: %v", msg.Topic(), err)
		return
	}

	deviceID := payload.DeviceID
	if deviceID == "" {
		deviceID = deviceFromTopic(msg.Topic())
	}

	var farmerID core.FarmerID
	if payload.FarmerID != "" {
		if farmerID, err = core.ParseFarmerID(payload.FarmerID); err != nil {
			s.metrics.IngestMessage("invalid_input")
			s.logger.Warn("[SensorSubscriber] dropping message from %s: %v", deviceID, err)
			return
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()

	rec, err := s.recommender.Recommend(ctx, recommend.Request{
		Observation: obs,
		FarmerID:    farmerID,
		DeviceID:    deviceID,
		Source:      crop.SourceSensor,
	})
	if err != nil {
		s.metrics.IngestMessage("error")
		s.logger.Error("[SensorSubscriber] recommendation for %s failed: %v", deviceID, err)
		return
	}

	s.metrics.IngestMessage("ok")
	s.logger.Debug("[SensorSubscriber] %s -> %s (%.1f%%)", deviceID, rec.Result.TopCrop, rec.Result.ConfidencePercent)
}

func deviceFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) >= 3 {
		return parts[1]
	}
	return topic
}
