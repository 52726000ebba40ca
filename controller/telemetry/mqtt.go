package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/reef-pi/hydrokit/controller/utils"
)

const (
	_connectTimeout = 5 * time.Second
	_publishTimeout = 5 * time.Second
	_disconnectWait = 250
)

// MQTTConfig holds the broker settings.
type MQTTConfig struct {
	Broker     string        `json:"broker" mapstructure:"broker" yaml:"broker"`
	ClientID   string        `json:"client_id" mapstructure:"client_id" yaml:"client_id"`
	Username   string        `json:"username" mapstructure:"username" yaml:"username"`
	Password   string        `json:"password" mapstructure:"password" yaml:"password"`
	Topic      string        `json:"topic" mapstructure:"topic" yaml:"topic"`
	QoS        byte          `json:"qos" mapstructure:"qos" yaml:"qos"`
	Retained   bool          `json:"retained" mapstructure:"retained" yaml:"retained"`
	RetryDelay time.Duration `json:"retry_delay" mapstructure:"retry_delay" yaml:"retry_delay"`
	Encoding   string        `json:"encoding" mapstructure:"encoding" yaml:"encoding"`
	Missing    float64       `json:"missing_value" mapstructure:"missing_value" yaml:"missing_value"`
}

var DefaultMQTTConfig = MQTTConfig{
	Broker:     "tcp://192.168.20.1:1883",
	Topic:      "hydroponic_kit/state",
	RetryDelay: time.Second,
	Encoding:   "json",
	Missing:    MissingValue,
}

// MQTTClient keeps a single broker session. Reconnection is driven by the
// caller through Connect, not by paho.
type MQTTClient struct {
	client paho.Client
	cfg    MQTTConfig
	sleep  func(context.Context, time.Duration) error
}

var _ Messenger = (*MQTTClient)(nil)

func NewMQTTClient(cfg MQTTConfig) *MQTTClient {
	if cfg.ClientID == "" {
		cfg.ClientID = "hydrokit-" + uuid.NewString()[:8]
	}
	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetAutoReconnect(false).
		SetConnectRetry(false).
		SetConnectTimeout(_connectTimeout).
		SetKeepAlive(10 * time.Second).
		SetOnConnectHandler(func(paho.Client) {
			slog.Info("connected to MQTT broker", "broker", cfg.Broker)
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			slog.Error("connection lost to MQTT broker", "error", err)
		})
	return newMQTTClient(paho.NewClient(opts), cfg)
}

func newMQTTClient(client paho.Client, cfg MQTTConfig) *MQTTClient {
	return &MQTTClient{client: client, cfg: cfg, sleep: utils.Sleep}
}

func (c *MQTTClient) Connected() bool {
	return c.client.IsConnectionOpen()
}

// Connect blocks until the broker accepts the session or ctx is done. There
// is no retry limit.
func (c *MQTTClient) Connect(ctx context.Context) error {
	for attempt := 1; !c.client.IsConnectionOpen(); attempt++ {
		slog.Info("connecting to MQTT broker", "broker", c.cfg.Broker, "attempt", attempt)
		token := c.client.Connect()
		if !token.WaitTimeout(_connectTimeout) {
			slog.Error("connecting to MQTT broker timed out", "broker", c.cfg.Broker)
		} else if err := token.Error(); err != nil {
			slog.Error("connecting to MQTT broker failed", "broker", c.cfg.Broker, "error", err)
		} else {
			continue
		}
		if err := c.sleep(ctx, c.cfg.RetryDelay); err != nil {
			return err
		}
	}
	return nil
}

func (c *MQTTClient) Publish(topic string, payload []byte) error {
	token := c.client.Publish(topic, c.cfg.QoS, c.cfg.Retained, payload)
	if !token.WaitTimeout(_publishTimeout) {
		return fmt.Errorf("publishing to topic %s: timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publishing to topic %s: %w", topic, err)
	}
	return nil
}

func (c *MQTTClient) Disconnect() {
	c.client.Disconnect(_disconnectWait)
}
