// Package mqttbridge exposes the thermostat on an MQTT broker: state is
// published on a timer and set commands are applied as they arrive.
package mqttbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/zberg/go-ditraheat/internal/accessory"
	"github.com/zberg/go-ditraheat/pkg/ditraheat"
)

const (
	qos = 1

	// commandTimeout bounds one cloud call triggered by a message.
	commandTimeout = 30 * time.Second

	payloadOnline  = "online"
	payloadOffline = "offline"
)

// Config holds broker and topic settings.
type Config struct {
	Broker       string
	ClientID     string
	Username     string
	Password     string
	TopicPrefix  string
	PollInterval time.Duration
}

// Topics derived from the prefix.
type Topics struct {
	State        string // retained JSON accessory.State
	Availability string // online | offline
	TargetSet    string // decimal degrees
	UnitsSet     string // celsius | fahrenheit | 0 | 1
}

// NewTopics builds the topic set under prefix.
func NewTopics(prefix string) Topics {
	prefix = strings.TrimRight(prefix, "/")
	return Topics{
		State:        prefix + "/state",
		Availability: prefix + "/availability",
		TargetSet:    prefix + "/target_temperature/set",
		UnitsSet:     prefix + "/display_units/set",
	}
}

// NewClientOptions returns paho options with a unique client id and an
// offline last will on the availability topic.
func NewClientOptions(cfg Config) *mqtt.ClientOptions {
	topics := NewTopics(cfg.TopicPrefix)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID + "-" + uuid.NewString()[:8])
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetWill(topics.Availability, payloadOffline, qos, true)
	return opts
}

// Connect dials the broker.
func Connect(cfg Config, logger *slog.Logger) (mqtt.Client, error) {
	opts := NewClientOptions(cfg)
	if logger != nil {
		opts.SetOnConnectHandler(func(mqtt.Client) {
			logger.Info("mqtt connected", "broker", cfg.Broker)
		})
		opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Warn("mqtt connection lost", "error", err)
		})
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to MQTT broker %s: %w", cfg.Broker, token.Error())
	}
	return client, nil
}

// Bridge relays between the broker and the thermostat.
type Bridge struct {
	client   mqtt.Client
	th       *accessory.Thermostat
	topics   Topics
	interval time.Duration
	logger   *slog.Logger
}

// New creates a bridge on an already connected client.
func New(client mqtt.Client, th *accessory.Thermostat, cfg Config, logger *slog.Logger) *Bridge {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = time.Minute
	}
	return &Bridge{
		client:   client,
		th:       th,
		topics:   NewTopics(cfg.TopicPrefix),
		interval: interval,
		logger:   logger,
	}
}

// Run subscribes to the command topics and publishes state until ctx is
// done. Failed polls are logged and retried on the next tick.
func (b *Bridge) Run(ctx context.Context) error {
	if err := b.subscribe(b.topics.TargetSet, b.handleTargetTemperature); err != nil {
		return err
	}
	if err := b.subscribe(b.topics.UnitsSet, b.handleDisplayUnits); err != nil {
		return err
	}
	if err := b.publish(b.topics.Availability, payloadOnline); err != nil {
		return err
	}

	b.poll(ctx)

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := b.publish(b.topics.Availability, payloadOffline); err != nil && b.logger != nil {
				b.logger.Warn("publish offline failed", "error", err)
			}
			return nil
		case <-ticker.C:
			b.poll(ctx)
		}
	}
}

func (b *Bridge) poll(ctx context.Context) {
	if err := b.PublishState(ctx); err != nil && b.logger != nil {
		b.logger.Error("publish state failed", "error", err)
	}
}

// PublishState reads the thermostat and publishes the retained state.
func (b *Bridge) PublishState(ctx context.Context) error {
	st, err := b.th.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("read state: %w", err)
	}
	payload, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	return b.publish(b.topics.State, payload)
}

func (b *Bridge) publish(topic string, payload any) error {
	token := b.client.Publish(topic, qos, true, payload)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("publish %s: %w", topic, token.Error())
	}
	return nil
}

func (b *Bridge) subscribe(topic string, handler mqtt.MessageHandler) error {
	token := b.client.Subscribe(topic, qos, handler)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", topic, token.Error())
	}
	if b.logger != nil {
		b.logger.Info("subscribed", "topic", topic)
	}
	return nil
}

func (b *Bridge) handleTargetTemperature(_ mqtt.Client, msg mqtt.Message) {
	raw := strings.TrimSpace(string(msg.Payload()))
	degrees, err := strconv.ParseFloat(raw, 64)
	if err == nil {
		err = ditraheat.CheckTemperature(degrees)
	}
	if err != nil {
		b.warn("invalid target temperature", msg, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if err := b.th.SetTargetTemperature(ctx, degrees); err != nil {
		b.warn("set target temperature failed", msg, err)
		return
	}
	b.poll(ctx)
}

func (b *Bridge) handleDisplayUnits(_ mqtt.Client, msg mqtt.Message) {
	units, err := parseDisplayUnits(string(msg.Payload()))
	if err != nil {
		b.warn("invalid display units", msg, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if err := b.th.SetTemperatureDisplayUnits(ctx, units); err != nil {
		b.warn("set display units failed", msg, err)
		return
	}
	b.poll(ctx)
}

func (b *Bridge) warn(what string, msg mqtt.Message, err error) {
	if b.logger != nil {
		b.logger.Warn(what, "topic", msg.Topic(), "payload", string(msg.Payload()), "error", err)
	}
}

// parseDisplayUnits accepts a unit name or the numeric display value.
func parseDisplayUnits(s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if _, err := accessory.DisplayToUnit(n); err != nil {
			return 0, err
		}
		return n, nil
	}
	unit, err := ditraheat.ParseTemperatureUnit(s)
	if err != nil {
		return 0, err
	}
	return accessory.UnitToDisplay(unit), nil
}
