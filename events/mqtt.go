/*
mqtt.go - Publishes assignment events to an MQTT broker

PURPOSE:
  Implements planning.Notifier. Every committed create, update, cancel or
  status change becomes one JSON message so dashboards and downstream
  planners can react without polling.

TOPICS:
  <prefix>/<event type>, for example planner/assignment.created

DELIVERY:
  Messages are published with the configured QoS and never retained. The
  planner calls Notify after the store commit, so a broker outage surfaces
  as a logged warning and the change stands.

SEE ALSO:
  - planning/hooks.go: Event and Notifier
  - config/sections.go: MQTTConfig
*/
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/warp/site-planner/config"
	"github.com/warp/site-planner/planning"
)

// pahoClient is the part of paho.Client the notifier needs.
type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// MQTTNotifier publishes planner events.
type MQTTNotifier struct {
	cli     pahoClient
	prefix  string
	qos     byte
	timeout time.Duration
	log     zerolog.Logger
}

var _ planning.Notifier = (*MQTTNotifier)(nil)

// NewMQTTNotifier connects to the broker in cfg.
func NewMQTTNotifier(cfg config.MQTTConfig, log zerolog.Logger) (*MQTTNotifier, error) {
	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(cfg.PublishTimeout)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.OnConnect = func(paho.Client) {
		log.Info().Str("broker", cfg.Broker).Msg("mqtt connected")
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Warn().Err(err).Msg("mqtt connection lost")
	}

	c := newMQTTClient(opts)
	token := c.Connect()
	if !token.WaitTimeout(cfg.PublishTimeout) {
		return nil, fmt.Errorf("mqtt connect to %s timed out", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", cfg.Broker, err)
	}
	return newNotifier(c, cfg, log), nil
}

func newNotifier(c pahoClient, cfg config.MQTTConfig, log zerolog.Logger) *MQTTNotifier {
	timeout := cfg.PublishTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &MQTTNotifier{
		cli:     c,
		prefix:  strings.TrimSuffix(cfg.TopicPrefix, "/"),
		qos:     cfg.QoS,
		timeout: timeout,
		log:     log,
	}
}

// Topic returns the topic an event type is published on.
func (n *MQTTNotifier) Topic(t planning.EventType) string {
	if n.prefix == "" {
		return string(t)
	}
	return n.prefix + "/" + string(t)
}

// Notify publishes e and waits for the broker up to the publish timeout or
// until ctx is done.
func (n *MQTTNotifier) Notify(ctx context.Context, e planning.Event) error {
	if !n.cli.IsConnected() {
		return fmt.Errorf("mqtt: not connected")
	}
	payload, err := json.Marshal(NewMessage(e))
	if err != nil {
		return fmt.Errorf("mqtt: encode %s: %w", e.Type, err)
	}

	topic := n.Topic(e.Type)
	token := n.cli.Publish(topic, n.qos, false, payload)

	timer := time.NewTimer(n.timeout)
	defer timer.Stop()
	select {
	case <-token.Done():
	case <-timer.C:
		return fmt.Errorf("mqtt: publish to %s timed out", topic)
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt: publish to %s: %w", topic, err)
	}
	n.log.Debug().Str("topic", topic).Str("assignment_id", string(e.Assignment.ID)).Msg("event published")
	return nil
}

// Close disconnects, giving in-flight messages 250ms to drain.
func (n *MQTTNotifier) Close() {
	n.cli.Disconnect(250)
}
