package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"tsipmon/internal/config"
	"tsipmon/internal/pps"
	"tsipmon/internal/receiver"
	"tsipmon/internal/replay"
	"tsipmon/internal/sink"
	"tsipmon/internal/tsip"
	"tsipmon/internal/udp"
	"tsipmon/internal/web"
)

// Constructors for outputs that need the network; swapped in tests.
var (
	newUDPSender  = func(dest string) (sink.Sender, error) { return udp.NewBroadcaster(dest) }
	newMQTTSink   = func(c sink.MQTTConfig) (sink.Sink, error) { return sink.NewMQTT(c) }
	newInfluxSink = func(c sink.InfluxConfig) (sink.Sink, error) { return sink.NewInflux(c) }
)

type liveRuntime struct {
	cfg    config.Config
	status *web.Status

	rx      *receiver.Service
	fanout  *sink.Fanout
	capture *replay.Writer
	pps     *pps.Monitor

	udpStats func() udp.Stats

	captureErrOnce sync.Once
}

func receiverConfig(c config.Config) receiver.Config {
	return receiver.Config{
		Source:         c.Receiver.Source,
		Device:         c.Receiver.Device,
		Baud:           c.Receiver.Baud,
		Parity:         c.Receiver.Parity,
		Addr:           c.Receiver.Addr,
		ReplayPath:     c.Replay.Path,
		ReplaySpeed:    c.Replay.Speed,
		ReplayLoop:     c.Replay.Loop,
		ReadSize:       c.Receiver.ReadSize,
		CarryPartial:   c.Receiver.KeepPartial(),
		ReconnectDelay: c.Receiver.ReconnectDelay,
	}
}

// newLiveRuntime builds the receiver and every enabled output. console is
// where the text sink writes; it is ignored when console output is off.
func newLiveRuntime(cfg config.Config, status *web.Status, console io.Writer) (*liveRuntime, error) {
	c := cfg
	if err := config.DefaultAndValidate(&c); err != nil {
		return nil, err
	}
	if status == nil {
		return nil, fmt.Errorf("status is nil")
	}

	rx, err := receiver.New(receiverConfig(c))
	if err != nil {
		return nil, err
	}

	r := &liveRuntime{cfg: c, status: status, rx: rx, fanout: &sink.Fanout{}}
	if err := r.initSinks(console); err != nil {
		r.Close()
		return nil, err
	}

	if c.Capture.Enable {
		w, err := replay.CreateWriter(c.Capture.Path)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("capture create failed: %w", err)
		}
		r.capture = w
		log.Printf("capture enabled path=%s session=%s", c.Capture.Path, w.Session())
		rx.Tap(r.writeCapture)
	}

	if c.PPS.Enable {
		r.pps = pps.New(pps.Config{Enable: true, Chip: c.PPS.Chip, Line: c.PPS.Line})
		status.SetPPS(r.pps.Snapshot)
	}

	rx.Subscribe(func(rec tsip.Record) {
		_ = r.fanout.Publish(time.Now().UTC(), rec)
	})
	status.SetReceiver(rx.Snapshot)
	status.SetSinks(r.fanout.Names())
	return r, nil
}

func (r *liveRuntime) initSinks(console io.Writer) error {
	c := r.cfg
	if c.Console.Enable && console != nil {
		r.fanout.Add("console", sink.NewText(console))
	}
	if c.UDP.Enable {
		s, err := newUDPSender(c.UDP.Dest)
		if err != nil {
			return fmt.Errorf("udp init failed: %w", err)
		}
		if st, ok := s.(interface{ Stats() udp.Stats }); ok {
			r.udpStats = st.Stats
		}
		log.Printf("udp enabled dest=%s", c.UDP.Dest)
		r.fanout.Add("udp", sink.NewDatagram(s))
	}
	if c.MQTT.Enable {
		s, err := newMQTTSink(sink.MQTTConfig{
			Broker:      c.MQTT.Broker,
			ClientID:    c.MQTT.ClientID,
			TopicPrefix: c.MQTT.TopicPrefix,
			QoS:         byte(c.MQTT.QoS),
			Timeout:     c.MQTT.Timeout,
		})
		if err != nil {
			return fmt.Errorf("mqtt init failed: %w", err)
		}
		r.fanout.Add("mqtt", s)
	}
	if c.Influx.Enable {
		s, err := newInfluxSink(sink.InfluxConfig{
			URL:    c.Influx.URL,
			Token:  c.Influx.Token,
			Org:    c.Influx.Org,
			Bucket: c.Influx.Bucket,
		})
		if err != nil {
			return fmt.Errorf("influx init failed: %w", err)
		}
		r.fanout.Add("influx", s)
	}
	return nil
}

func (r *liveRuntime) writeCapture(now time.Time, chunk []byte) {
	if err := r.capture.WriteChunk(now, chunk); err != nil {
		r.captureErrOnce.Do(func() {
			log.Printf("capture write failed path=%s: %v", r.cfg.Capture.Path, err)
		})
	}
}

func (r *liveRuntime) Start(ctx context.Context) error {
	if r.pps != nil {
		// A missing PPS line is not fatal; the error shows in the snapshot.
		_ = r.pps.Start(ctx)
	}
	return r.rx.Start(ctx)
}

// Done is closed when the receiver stops, e.g. at the end of a replay.
func (r *liveRuntime) Done() <-chan struct{} {
	return r.rx.Done()
}

func (r *liveRuntime) Close() {
	if r.rx != nil {
		r.rx.Close()
	}
	if r.pps != nil {
		r.pps.Close()
	}
	if r.capture != nil {
		if err := r.capture.Close(); err != nil {
			log.Printf("capture close failed path=%s: %v", r.cfg.Capture.Path, err)
		}
		r.capture = nil
	}
	if r.fanout != nil {
		_ = r.fanout.Close()
	}
	if r.udpStats != nil {
		st := r.udpStats()
		log.Printf("udp closed dest=%s datagrams=%d bytes=%d errors=%d", r.cfg.UDP.Dest, st.Datagrams, st.Bytes, st.Errors)
		r.udpStats = nil
	}
}
