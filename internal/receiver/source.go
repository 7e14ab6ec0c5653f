package receiver

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"tsipmon/internal/replay"
	"tsipmon/internal/serial"
)

// Source yields a byte stream from the receiver. Open is called again after
// a stream ends when Reconnect reports true.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	Reconnect() bool
	String() string
}

var (
	openSerial = serial.Open
	readReplay = replay.ReadFile
)

type serialSource struct {
	device string
	baud   int
	parity serial.Parity
}

func (s serialSource) Open(ctx context.Context) (io.ReadCloser, error) {
	return openSerial(s.device, s.baud, s.parity)
}

func (serialSource) Reconnect() bool { return true }

func (s serialSource) String() string {
	return fmt.Sprintf("serial device=%s baud=%d parity=%s", s.device, s.baud, s.parity)
}

type tcpSource struct {
	addr        string
	dialTimeout time.Duration
}

func (s tcpSource) Open(ctx context.Context) (io.ReadCloser, error) {
	d := &net.Dialer{Timeout: s.dialTimeout}
	return d.DialContext(ctx, "tcp", s.addr)
}

func (tcpSource) Reconnect() bool { return true }

func (s tcpSource) String() string { return "tcp addr=" + s.addr }

type replaySource struct {
	path  string
	speed float64
	loop  bool
}

// Open plays the capture into a pipe. Closing the returned reader stops the
// playback goroutine.
func (s replaySource) Open(ctx context.Context) (io.ReadCloser, error) {
	c, err := readReplay(s.path)
	if err != nil {
		return nil, err
	}
	pr, pw := io.Pipe()
	go func() {
		err := replay.Play(ctx, c.Records, s.speed, s.loop, nil, func(chunk []byte) error {
			_, err := pw.Write(chunk)
			return err
		})
		_ = pw.CloseWithError(err)
	}()
	return pr, nil
}

func (replaySource) Reconnect() bool { return false }

func (s replaySource) String() string {
	return fmt.Sprintf("replay path=%s speed=%g loop=%t", s.path, s.speed, s.loop)
}

func newSource(cfg Config) (Source, error) {
	switch cfg.Source {
	case "", "serial":
		p, err := serial.ParseParity(cfg.Parity)
		if err != nil {
			return nil, err
		}
		return serialSource{device: cfg.Device, baud: cfg.Baud, parity: p}, nil
	case "tcp":
		if cfg.Addr == "" {
			return nil, fmt.Errorf("receiver tcp addr is required")
		}
		return tcpSource{addr: cfg.Addr, dialTimeout: cfg.DialTimeout}, nil
	case "replay":
		if cfg.ReplayPath == "" {
			return nil, fmt.Errorf("receiver replay path is required")
		}
		return replaySource{path: cfg.ReplayPath, speed: cfg.ReplaySpeed, loop: cfg.ReplayLoop}, nil
	default:
		return nil, fmt.Errorf("unknown receiver source %q", cfg.Source)
	}
}
