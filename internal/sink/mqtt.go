package sink

import (
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"tsipmon/internal/tsip"
)

type MQTTConfig struct {
	Broker      string
	ClientID    string
	TopicPrefix string
	QoS         byte
	Timeout     time.Duration
}

// publisher is the subset of mqtt.Client used by the sink.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTT publishes each envelope to <prefix>/<kind>.
type MQTT struct {
	cfg    MQTTConfig
	client publisher
}

func NewMQTT(cfg MQTTConfig) (*MQTT, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("mqtt broker is required")
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "tsipmon-" + uuid.NewString()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	opts := mqtt.NewClientOptions().AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Printf("mqtt connection lost broker=%s: %v", cfg.Broker, err)
	})

	client := mqtt.NewClient(opts)
	tk := client.Connect()
	if !tk.WaitTimeout(cfg.Timeout) {
		// ConnectRetry keeps trying in the background.
		log.Printf("mqtt connect pending broker=%s client_id=%s", cfg.Broker, cfg.ClientID)
	} else if err := tk.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.Broker, err)
	}
	log.Printf("mqtt enabled broker=%s client_id=%s prefix=%s", cfg.Broker, cfg.ClientID, cfg.TopicPrefix)
	return newMQTT(cfg, client), nil
}

func newMQTT(cfg MQTTConfig, client publisher) *MQTT {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &MQTT{cfg: cfg, client: client}
}

func (m *MQTT) Topic(k tsip.Kind) string {
	if m.cfg.TopicPrefix == "" {
		return k.String()
	}
	return m.cfg.TopicPrefix + "/" + k.String()
}

func (m *MQTT) Publish(now time.Time, rec tsip.Record) error {
	b, err := Encode(now, rec)
	if err != nil {
		return err
	}
	tk := m.client.Publish(m.Topic(rec.Kind()), m.cfg.QoS, false, b)
	if m.cfg.QoS == 0 {
		return nil
	}
	if !tk.WaitTimeout(m.cfg.Timeout) {
		return fmt.Errorf("mqtt publish timeout topic=%s", m.Topic(rec.Kind()))
	}
	return tk.Error()
}

func (m *MQTT) Close() error {
	m.client.Disconnect(250)
	return nil
}
