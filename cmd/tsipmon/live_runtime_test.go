package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"tsipmon/internal/config"
	"tsipmon/internal/replay"
	"tsipmon/internal/sink"
	"tsipmon/internal/tsip"
	"tsipmon/internal/web"
)

type lockedBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (l *lockedBuffer) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.Write(p)
}

func (l *lockedBuffer) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.String()
}

type recordingSink struct {
	mu     sync.Mutex
	kinds  []tsip.Kind
	closed bool
}

func (r *recordingSink) Publish(_ time.Time, rec tsip.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, rec.Kind())
	return nil
}

func (r *recordingSink) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

type recordingSender struct {
	mu      sync.Mutex
	payload [][]byte
}

func (r *recordingSender) Send(p []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payload = append(r.payload, append([]byte(nil), p...))
	return nil
}

func (r *recordingSender) Close() error { return nil }

func replayConfig(t *testing.T, path string) config.Config {
	t.Helper()
	cfg := config.Config{
		Receiver: config.ReceiverConfig{Source: "replay"},
		Replay:   config.ReplayConfig{Path: path, Speed: 100},
		Console:  config.ConsoleConfig{Enable: true},
	}
	if err := config.DefaultAndValidate(&cfg); err != nil {
		t.Fatalf("DefaultAndValidate() error: %v", err)
	}
	return cfg
}

func swapSinks(t *testing.T, udpS *recordingSender, mqttS, influxS *recordingSink) {
	t.Helper()
	oldUDP, oldMQTT, oldInflux := newUDPSender, newMQTTSink, newInfluxSink
	newUDPSender = func(string) (sink.Sender, error) { return udpS, nil }
	newMQTTSink = func(sink.MQTTConfig) (sink.Sink, error) { return mqttS, nil }
	newInfluxSink = func(sink.InfluxConfig) (sink.Sink, error) { return influxS, nil }
	t.Cleanup(func() {
		newUDPSender, newMQTTSink, newInfluxSink = oldUDP, oldMQTT, oldInflux
	})
}

func TestRunLive_ReplayToAllSinks(t *testing.T) {
	wire := utcWire(4321)
	path := writeCapture(t, [][]byte{wire[:7], wire[7:], utcWire(4322)})

	udpS := &recordingSender{}
	mqttS := &recordingSink{}
	influxS := &recordingSink{}
	swapSinks(t, udpS, mqttS, influxS)

	cfg := replayConfig(t, path)
	cfg.UDP = config.UDPConfig{Enable: true, Dest: "127.0.0.1:4000"}
	cfg.MQTT.Enable, cfg.MQTT.Broker = true, "tcp://localhost:1883"
	cfg.Influx = config.InfluxConfig{Enable: true, URL: "http://localhost:8086", Bucket: "tsip"}

	var console lockedBuffer
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := runLive(ctx, cfg, web.NewLogBuffer(10), &console, false); err != nil {
		t.Fatalf("runLive() error: %v", err)
	}
	if ctx.Err() != nil {
		t.Fatalf("replay did not finish before timeout")
	}

	out := console.String()
	if strings.Count(out, "8FAB: TOW: ") != 2 || !strings.Contains(out, "TOW: 004321") {
		t.Fatalf("console:\n%s", out)
	}
	if len(udpS.payload) != 2 || !bytes.Contains(udpS.payload[0], []byte(`"kind":"utc_time"`)) {
		t.Fatalf("udp payloads=%q", udpS.payload)
	}
	if len(mqttS.kinds) != 2 || len(influxS.kinds) != 2 {
		t.Fatalf("mqtt=%v influx=%v", mqttS.kinds, influxS.kinds)
	}
	if !mqttS.closed || !influxS.closed {
		t.Fatalf("sinks not closed")
	}
}

func TestNewLiveRuntime_StatusWiring(t *testing.T) {
	path := writeCapture(t, [][]byte{utcWire(1)})
	cfg := replayConfig(t, path)
	cfg.Console.Enable = false

	st := web.NewStatus()
	rt, err := newLiveRuntime(cfg, st, nil)
	if err != nil {
		t.Fatalf("newLiveRuntime() error: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rt.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	select {
	case <-rt.Done():
	case <-ctx.Done():
		t.Fatalf("replay did not finish")
	}
	rt.Close()

	snap := st.Snapshot(time.Now().UTC())
	if snap.Receiver.UTCTime == nil || snap.Receiver.UTCTime.TimeOfWeek != 1 {
		t.Fatalf("receiver snapshot=%+v", snap.Receiver)
	}
	if len(snap.Sinks) != 0 {
		t.Fatalf("sinks=%v", snap.Sinks)
	}
	if !strings.HasPrefix(snap.Receiver.Source, "replay") {
		t.Fatalf("source=%q", snap.Receiver.Source)
	}
}

func TestNewLiveRuntime_SinkInitFailure(t *testing.T) {
	old := newMQTTSink
	newMQTTSink = func(sink.MQTTConfig) (sink.Sink, error) { return nil, errors.New("refused") }
	t.Cleanup(func() { newMQTTSink = old })

	cfg := replayConfig(t, writeCapture(t, [][]byte{utcWire(1)}))
	cfg.MQTT.Enable, cfg.MQTT.Broker = true, "tcp://localhost:1883"
	_, err := newLiveRuntime(cfg, web.NewStatus(), nil)
	if err == nil || !strings.Contains(err.Error(), "mqtt init failed: refused") {
		t.Fatalf("err=%v", err)
	}
}

func TestNewLiveRuntime_RequiresStatus(t *testing.T) {
	cfg := replayConfig(t, writeCapture(t, [][]byte{utcWire(1)}))
	if _, err := newLiveRuntime(cfg, nil, nil); err == nil {
		t.Fatalf("expected error")
	}
}

func TestLiveRuntime_CaptureTap(t *testing.T) {
	capPath := filepath.Join(t.TempDir(), "out.log")
	cfg := config.Config{
		Receiver: config.ReceiverConfig{Source: "tcp", Addr: "127.0.0.1:1"},
		Capture:  config.CaptureConfig{Enable: true, Path: capPath},
	}
	rt, err := newLiveRuntime(cfg, web.NewStatus(), nil)
	if err != nil {
		t.Fatalf("newLiveRuntime() error: %v", err)
	}
	rt.writeCapture(time.Now(), utcWire(5))
	rt.Close()

	c, err := replay.ReadFile(capPath)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if len(c.Chunks()) != 1 || !bytes.Equal(c.Chunks()[0], utcWire(5)) {
		t.Fatalf("chunks=%x", c.Chunks())
	}
}

func TestReceiverConfig(t *testing.T) {
	off := false
	cfg := config.Config{Receiver: config.ReceiverConfig{
		Source: "serial", Device: "/dev/ttyUSB0", Baud: 9600, Parity: "odd",
		ReadSize: 64, CarryPartial: &off,
	}}
	rc := receiverConfig(cfg)
	if rc.Device != "/dev/ttyUSB0" || rc.ReadSize != 64 || rc.CarryPartial {
		t.Fatalf("receiver config=%+v", rc)
	}
}
