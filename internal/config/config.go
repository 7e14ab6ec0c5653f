package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Receiver ReceiverConfig `yaml:"receiver"`
	Capture  CaptureConfig  `yaml:"capture"`
	Replay   ReplayConfig   `yaml:"replay"`
	Console  ConsoleConfig  `yaml:"console"`
	Web      WebConfig      `yaml:"web"`
	UDP      UDPConfig      `yaml:"udp"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Influx   InfluxConfig   `yaml:"influx"`
	PPS      PPSConfig      `yaml:"pps"`
}

// ReceiverConfig selects where TSIP bytes come from.
//
// Source is one of "serial", "tcp" (a ser2net-style raw byte stream) or
// "replay" (a capture file; see ReplayConfig).
type ReceiverConfig struct {
	Source string `yaml:"source"`

	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`
	// Parity is "odd", "even" or "none". Trimble timing receivers default to odd.
	Parity string `yaml:"parity"`

	Addr string `yaml:"addr"`

	ReadSize int `yaml:"read_size"`
	// CarryPartial keeps an unfinished packet across reads. Nil means true.
	CarryPartial   *bool         `yaml:"carry_partial"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
}

// KeepPartial reports the effective carry_partial setting.
func (r ReceiverConfig) KeepPartial() bool {
	return r.CarryPartial == nil || *r.CarryPartial
}

type CaptureConfig struct {
	Enable bool   `yaml:"enable"`
	Path   string `yaml:"path"`
}

type ReplayConfig struct {
	Path  string  `yaml:"path"`
	Speed float64 `yaml:"speed"`
	Loop  bool    `yaml:"loop"`
}

type ConsoleConfig struct {
	Enable bool `yaml:"enable"`
}

type WebConfig struct {
	Enable bool   `yaml:"enable"`
	Listen string `yaml:"listen"`
}

type UDPConfig struct {
	Enable bool   `yaml:"enable"`
	Dest   string `yaml:"dest"`
}

type MQTTConfig struct {
	Enable      bool          `yaml:"enable"`
	Broker      string        `yaml:"broker"`
	TopicPrefix string        `yaml:"topic_prefix"`
	ClientID    string        `yaml:"client_id"`
	QoS         int           `yaml:"qos"`
	Timeout     time.Duration `yaml:"timeout"`
}

type InfluxConfig struct {
	Enable bool   `yaml:"enable"`
	URL    string `yaml:"url"`
	Token  string `yaml:"token"`
	Org    string `yaml:"org"`
	Bucket string `yaml:"bucket"`
}

type PPSConfig struct {
	Enable bool   `yaml:"enable"`
	Chip   string `yaml:"chip"`
	Line   int    `yaml:"line"`
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	if err := DefaultAndValidate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultAndValidate fills unset fields and rejects inconsistent settings.
func DefaultAndValidate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	r := &cfg.Receiver
	r.Source = strings.ToLower(strings.TrimSpace(r.Source))
	if r.Source == "" {
		r.Source = "serial"
	}
	if r.ReadSize == 0 {
		r.ReadSize = 300
	}
	if r.ReadSize < 0 {
		return fmt.Errorf("receiver.read_size must be > 0")
	}
	if r.ReconnectDelay <= 0 {
		r.ReconnectDelay = 1 * time.Second
	}

	switch r.Source {
	case "serial":
		if strings.TrimSpace(r.Device) == "" {
			r.Device = "/dev/ttyS0"
		}
		if r.Baud == 0 {
			r.Baud = 9600
		}
		if r.Baud < 0 {
			return fmt.Errorf("receiver.baud must be > 0")
		}
		r.Parity = strings.ToLower(strings.TrimSpace(r.Parity))
		if r.Parity == "" {
			r.Parity = "odd"
		}
		switch r.Parity {
		case "odd", "even", "none":
		default:
			return fmt.Errorf("receiver.parity must be one of: odd, even, none")
		}
	case "tcp":
		if strings.TrimSpace(r.Addr) == "" {
			return fmt.Errorf("receiver.addr is required when receiver.source is 'tcp'")
		}
	case "replay":
		if strings.TrimSpace(cfg.Replay.Path) == "" {
			return fmt.Errorf("replay.path is required when receiver.source is 'replay'")
		}
	default:
		return fmt.Errorf("receiver.source must be one of: serial, tcp, replay")
	}

	if cfg.Replay.Speed == 0 {
		cfg.Replay.Speed = 1
	}
	if cfg.Replay.Speed < 0 {
		return fmt.Errorf("replay.speed must be > 0")
	}

	if cfg.Capture.Enable {
		if cfg.Capture.Path == "" {
			return fmt.Errorf("capture.path is required when capture.enable is true")
		}
		if r.Source == "replay" {
			return fmt.Errorf("capture cannot be used with receiver.source=replay")
		}
	}

	if cfg.Web.Listen == "" {
		cfg.Web.Listen = ":8080"
	}

	if cfg.UDP.Enable && strings.TrimSpace(cfg.UDP.Dest) == "" {
		return fmt.Errorf("udp.dest is required when udp.enable is true")
	}

	if cfg.MQTT.Enable && strings.TrimSpace(cfg.MQTT.Broker) == "" {
		return fmt.Errorf("mqtt.broker is required when mqtt.enable is true")
	}
	if cfg.MQTT.TopicPrefix == "" {
		cfg.MQTT.TopicPrefix = "tsip"
	}
	cfg.MQTT.TopicPrefix = strings.TrimSuffix(cfg.MQTT.TopicPrefix, "/")
	if cfg.MQTT.QoS < 0 || cfg.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2")
	}
	if cfg.MQTT.Timeout <= 0 {
		cfg.MQTT.Timeout = 5 * time.Second
	}

	if cfg.Influx.Enable {
		if strings.TrimSpace(cfg.Influx.URL) == "" {
			return fmt.Errorf("influx.url is required when influx.enable is true")
		}
		if cfg.Influx.Bucket == "" {
			return fmt.Errorf("influx.bucket is required when influx.enable is true")
		}
	}

	if cfg.PPS.Chip == "" {
		cfg.PPS.Chip = "gpiochip0"
	}
	if cfg.PPS.Enable && cfg.PPS.Line < 0 {
		return fmt.Errorf("pps.line must be >= 0")
	}

	return nil
}
